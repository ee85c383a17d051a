package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumichat/character-engine/internal/types"
)

// emotionModel maps to the character_emotions table. Rows are append-only;
// the latest row for a key is the current emotion.
type emotionModel struct {
	ID               string `gorm:"primaryKey"`
	CharacterID      string
	UserID           string
	ChatID           *string
	Valence          float64
	Arousal          float64
	TriggerMessageID *string
	TriggerContent   string
	CreatedAt        time.Time
}

func (emotionModel) TableName() string {
	return "character_emotions"
}

// EmotionRepo accesses the emotion sample log.
type EmotionRepo struct {
	db *gorm.DB
}

// NewEmotionRepo returns an EmotionRepo.
func NewEmotionRepo(db *gorm.DB) *EmotionRepo {
	return &EmotionRepo{db: db}
}

// Insert appends a new emotion sample. Samples are never mutated afterward.
func (r *EmotionRepo) Insert(ctx context.Context, sample types.EmotionSample) error {
	record := emotionModel{
		ID:             uuid.NewString(),
		CharacterID:    sample.CharacterID,
		UserID:         sample.UserID,
		Valence:        sample.Valence,
		Arousal:        sample.Arousal,
		TriggerContent: sample.TriggerContent,
		CreatedAt:      time.Now(),
	}
	if sample.ChatID != "" {
		chatID := sample.ChatID
		record.ChatID = &chatID
	}
	if sample.TriggerMessageID != "" {
		messageID := sample.TriggerMessageID
		record.TriggerMessageID = &messageID
	}

	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert emotion sample: %w", err)
	}
	return nil
}

// Latest returns the most recent sample for the key, or nil when none exists.
// When chatID is empty the state is scoped to the character×user pair.
func (r *EmotionRepo) Latest(ctx context.Context, characterID, userID, chatID string) (*types.EmotionSample, error) {
	query := r.db.WithContext(ctx).
		Where("character_id = ? AND user_id = ?", characterID, userID)
	if chatID != "" {
		query = query.Where("chat_id = ?", chatID)
	}

	var record emotionModel
	err := query.Order("created_at DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest emotion: %w", err)
	}

	sample := emotionFromModel(record)
	return &sample, nil
}

// History returns recent samples, newest first.
func (r *EmotionRepo) History(ctx context.Context, characterID, userID string, limit int) ([]types.EmotionSample, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []emotionModel
	if err := r.db.WithContext(ctx).
		Where("character_id = ? AND user_id = ?", characterID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load emotion history: %w", err)
	}

	results := make([]types.EmotionSample, 0, len(records))
	for _, record := range records {
		results = append(results, emotionFromModel(record))
	}
	return results, nil
}

// Reset clears all samples for a character×user pair.
func (r *EmotionRepo) Reset(ctx context.Context, characterID, userID string) error {
	if err := r.db.WithContext(ctx).
		Where("character_id = ? AND user_id = ?", characterID, userID).
		Delete(&emotionModel{}).Error; err != nil {
		return fmt.Errorf("failed to reset emotions: %w", err)
	}
	return nil
}

// DeleteForChat clears all samples tied to one chat.
func (r *EmotionRepo) DeleteForChat(ctx context.Context, chatID string) error {
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&emotionModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete chat emotions: %w", err)
	}
	return nil
}

func emotionFromModel(model emotionModel) types.EmotionSample {
	sample := types.EmotionSample{
		ID:             model.ID,
		CharacterID:    model.CharacterID,
		UserID:         model.UserID,
		Valence:        model.Valence,
		Arousal:        model.Arousal,
		TriggerContent: model.TriggerContent,
		CreatedAt:      model.CreatedAt,
	}
	if model.ChatID != nil {
		sample.ChatID = *model.ChatID
	}
	if model.TriggerMessageID != nil {
		sample.TriggerMessageID = *model.TriggerMessageID
	}
	return sample
}
