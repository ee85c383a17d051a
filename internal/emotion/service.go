package emotion

import (
	"context"
	"fmt"

	"github.com/lumichat/character-engine/internal/embedding"
	"github.com/lumichat/character-engine/internal/types"
)

// triggerContentLimit caps the stored trigger excerpt, in characters.
const triggerContentLimit = 200

// DefaultSmoothingWeight is the share of the previous state kept on update.
const DefaultSmoothingWeight = 0.7

// Repo is the emotion log surface the service needs.
type Repo interface {
	Insert(ctx context.Context, sample types.EmotionSample) error
	Latest(ctx context.Context, characterID, userID, chatID string) (*types.EmotionSample, error)
	History(ctx context.Context, characterID, userID string, limit int) ([]types.EmotionSample, error)
	Reset(ctx context.Context, characterID, userID string) error
	DeleteForChat(ctx context.Context, chatID string) error
}

// AnalyzeParams describes one emotion update.
type AnalyzeParams struct {
	CharacterID string
	UserID      string
	ChatID      string
	Text        string
	MessageID   string
}

// Service derives smoothed emotional state from message sentiment.
type Service struct {
	repo     Repo
	provider embedding.Provider
	weight   float64
}

// NewService returns an emotion service. weight <= 0 uses the default.
func NewService(repo Repo, provider embedding.Provider, weight float64) *Service {
	if weight <= 0 || weight >= 1 {
		weight = DefaultSmoothingWeight
	}
	return &Service{
		repo:     repo,
		provider: provider,
		weight:   weight,
	}
}

// AnalyzeAndUpdate runs sentiment on text, smooths it against the previous
// sample for the key, appends a new sample, and returns the labeled state.
func (s *Service) AnalyzeAndUpdate(ctx context.Context, params AnalyzeParams) (types.EmotionState, error) {
	sentiment := s.provider.AnalyzeSentiment(ctx, params.Text)

	current, err := s.repo.Latest(ctx, params.CharacterID, params.UserID, params.ChatID)
	if err != nil {
		return types.EmotionState{}, err
	}

	final := sentiment
	if current != nil {
		final = Smooth(types.SentimentResult{
			Valence: current.Valence,
			Arousal: current.Arousal,
		}, sentiment, s.weight)
	}
	final = Clamp(final)

	if err := s.repo.Insert(ctx, types.EmotionSample{
		CharacterID:      params.CharacterID,
		UserID:           params.UserID,
		ChatID:           params.ChatID,
		Valence:          final.Valence,
		Arousal:          final.Arousal,
		TriggerMessageID: params.MessageID,
		TriggerContent:   truncate(params.Text, triggerContentLimit),
	}); err != nil {
		return types.EmotionState{}, err
	}

	label := LabelFor(final.Valence, final.Arousal)
	return types.EmotionState{
		Valence:     final.Valence,
		Arousal:     final.Arousal,
		Label:       label,
		Description: fmt.Sprintf("Current emotion: %s", label),
	}, nil
}

// CurrentEmotion returns the labeled latest state, or nil when no sample
// exists. Callers must treat nil as "no emotion section", not a default mood.
func (s *Service) CurrentEmotion(ctx context.Context, characterID, userID, chatID string) (*types.EmotionState, error) {
	sample, err := s.repo.Latest(ctx, characterID, userID, chatID)
	if err != nil {
		return nil, err
	}
	if sample == nil {
		return nil, nil
	}

	label := LabelFor(sample.Valence, sample.Arousal)
	return &types.EmotionState{
		Valence:     sample.Valence,
		Arousal:     sample.Arousal,
		Label:       label,
		Description: fmt.Sprintf("Current emotion: %s", label),
	}, nil
}

// History returns recent samples, newest first.
func (s *Service) History(ctx context.Context, characterID, userID string, limit int) ([]types.EmotionSample, error) {
	return s.repo.History(ctx, characterID, userID, limit)
}

// Reset clears the emotion log for a character×user pair.
func (s *Service) Reset(ctx context.Context, characterID, userID string) error {
	return s.repo.Reset(ctx, characterID, userID)
}

// DeleteForChat clears samples tied to one chat.
func (s *Service) DeleteForChat(ctx context.Context, chatID string) error {
	return s.repo.DeleteForChat(ctx, chatID)
}

// truncate bounds s to limit characters without splitting a rune.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
