package emotion

import (
	"context"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/lumichat/character-engine/internal/types"
)

type fakeEmotionRepo struct {
	latest   *types.EmotionSample
	inserted []types.EmotionSample
	history  []types.EmotionSample
	resets   int
}

func (r *fakeEmotionRepo) Insert(ctx context.Context, sample types.EmotionSample) error {
	r.inserted = append(r.inserted, sample)
	return nil
}

func (r *fakeEmotionRepo) Latest(ctx context.Context, characterID, userID, chatID string) (*types.EmotionSample, error) {
	return r.latest, nil
}

func (r *fakeEmotionRepo) History(ctx context.Context, characterID, userID string, limit int) ([]types.EmotionSample, error) {
	return r.history, nil
}

func (r *fakeEmotionRepo) Reset(ctx context.Context, characterID, userID string) error {
	r.resets++
	return nil
}

func (r *fakeEmotionRepo) DeleteForChat(ctx context.Context, chatID string) error {
	return nil
}

type fakeSentimentProvider struct {
	sentiment types.SentimentResult
	calls     []string
}

func (p *fakeSentimentProvider) Embed(ctx context.Context, text string) []float32 {
	return make([]float32, 384)
}

func (p *fakeSentimentProvider) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	return nil
}

func (p *fakeSentimentProvider) AnalyzeSentiment(ctx context.Context, text string) types.SentimentResult {
	p.calls = append(p.calls, text)
	return p.sentiment
}

func (p *fakeSentimentProvider) Healthy(ctx context.Context) bool {
	return true
}

func TestAnalyzeAndUpdateFirstSampleUnsmoothed(t *testing.T) {
	repo := &fakeEmotionRepo{}
	provider := &fakeSentimentProvider{sentiment: types.SentimentResult{Valence: 0.7, Arousal: 0.5}}
	service := NewService(repo, provider, 0.7)

	state, err := service.AnalyzeAndUpdate(context.Background(), AnalyzeParams{
		CharacterID: "char-1",
		UserID:      "user-1",
		ChatID:      "chat-1",
		Text:        "I am feeling great today!",
	})
	if err != nil {
		t.Fatalf("AnalyzeAndUpdate returned error: %v", err)
	}
	if state.Valence != 0.7 || state.Arousal != 0.5 {
		t.Fatalf("expected raw sentiment on first sample, got %+v", state)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 inserted sample, got %d", len(repo.inserted))
	}
	if len(provider.calls) != 1 || provider.calls[0] != "I am feeling great today!" {
		t.Fatalf("unexpected sentiment calls: %v", provider.calls)
	}
}

func TestAnalyzeAndUpdateSmoothsAgainstCurrent(t *testing.T) {
	repo := &fakeEmotionRepo{latest: &types.EmotionSample{Valence: 0.2, Arousal: 0.3}}
	provider := &fakeSentimentProvider{sentiment: types.SentimentResult{Valence: 0.8, Arousal: 0.6}}
	service := NewService(repo, provider, 0.7)

	state, err := service.AnalyzeAndUpdate(context.Background(), AnalyzeParams{
		CharacterID: "char-1",
		UserID:      "user-1",
		Text:        "good news",
	})
	if err != nil {
		t.Fatalf("AnalyzeAndUpdate returned error: %v", err)
	}
	if math.Abs(state.Valence-0.38) > 0.001 {
		t.Fatalf("smoothed valence = %v, want 0.38", state.Valence)
	}
	if math.Abs(state.Arousal-0.39) > 0.001 {
		t.Fatalf("smoothed arousal = %v, want 0.39", state.Arousal)
	}
}

func TestAnalyzeAndUpdateClampsOutOfRangeSentiment(t *testing.T) {
	repo := &fakeEmotionRepo{}
	provider := &fakeSentimentProvider{sentiment: types.SentimentResult{Valence: 1.8, Arousal: -0.4}}
	service := NewService(repo, provider, 0.7)

	state, err := service.AnalyzeAndUpdate(context.Background(), AnalyzeParams{
		CharacterID: "char-1",
		UserID:      "user-1",
		Text:        "off the scale",
	})
	if err != nil {
		t.Fatalf("AnalyzeAndUpdate returned error: %v", err)
	}
	if state.Valence != 1 || state.Arousal != 0 {
		t.Fatalf("expected clamped state, got %+v", state)
	}
	stored := repo.inserted[0]
	if stored.Valence != 1 || stored.Arousal != 0 {
		t.Fatalf("expected clamped values persisted, got %+v", stored)
	}
}

func TestAnalyzeAndUpdateTruncatesTriggerContent(t *testing.T) {
	repo := &fakeEmotionRepo{}
	provider := &fakeSentimentProvider{sentiment: types.SentimentResult{Valence: 0, Arousal: 0.3}}
	service := NewService(repo, provider, 0.7)

	long := strings.Repeat("记", 300)
	if _, err := service.AnalyzeAndUpdate(context.Background(), AnalyzeParams{
		CharacterID: "char-1",
		UserID:      "user-1",
		Text:        long,
	}); err != nil {
		t.Fatalf("AnalyzeAndUpdate returned error: %v", err)
	}

	stored := repo.inserted[0].TriggerContent
	if utf8.RuneCountInString(stored) != 200 {
		t.Fatalf("expected 200-char trigger content, got %d", utf8.RuneCountInString(stored))
	}
	if !utf8.ValidString(stored) {
		t.Fatal("trigger content is not valid UTF-8")
	}
}

func TestCurrentEmotionNilWhenNoHistory(t *testing.T) {
	service := NewService(&fakeEmotionRepo{}, &fakeSentimentProvider{}, 0.7)

	state, err := service.CurrentEmotion(context.Background(), "char-1", "user-1", "")
	if err != nil {
		t.Fatalf("CurrentEmotion returned error: %v", err)
	}
	if state != nil {
		t.Fatalf("expected nil state with no history, got %+v", state)
	}
}

func TestCurrentEmotionLabelsLatestSample(t *testing.T) {
	repo := &fakeEmotionRepo{latest: &types.EmotionSample{Valence: 0.8, Arousal: 0.9}}
	service := NewService(repo, &fakeSentimentProvider{}, 0.7)

	state, err := service.CurrentEmotion(context.Background(), "char-1", "user-1", "chat-1")
	if err != nil {
		t.Fatalf("CurrentEmotion returned error: %v", err)
	}
	if state == nil || state.Label != "excited" {
		t.Fatalf("expected excited state, got %+v", state)
	}
	if state.Description != "Current emotion: excited" {
		t.Fatalf("unexpected description: %q", state.Description)
	}
}
