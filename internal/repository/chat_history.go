package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumichat/character-engine/internal/types"
)

// chatMessageModel maps to the chat_messages table.
type chatMessageModel struct {
	ID          string `gorm:"primaryKey"`
	ChatID      string
	CharacterID string
	UserID      string
	Role        string
	Content     string
	CreatedAt   time.Time
}

func (chatMessageModel) TableName() string {
	return "chat_messages"
}

// ChatLogRepo persists the raw conversation turns. The extraction window is
// read back from here so it survives process restarts.
type ChatLogRepo struct {
	db *gorm.DB
}

// NewChatLogRepo returns a ChatLogRepo.
func NewChatLogRepo(db *gorm.DB) *ChatLogRepo {
	return &ChatLogRepo{db: db}
}

// Append records one conversation turn.
func (r *ChatLogRepo) Append(ctx context.Context, chatID, characterID, userID string, msg types.ChatMessage) error {
	record := chatMessageModel{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		CharacterID: characterID,
		UserID:      userID,
		Role:        msg.Role,
		Content:     msg.Content,
		CreatedAt:   time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

// Recent returns the last limit turns for a chat, oldest first.
func (r *ChatLogRepo) Recent(ctx context.Context, chatID string, limit int) ([]types.ChatMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []chatMessageModel
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	results := make([]types.ChatMessage, len(records))
	for i, record := range records {
		results[len(records)-1-i] = types.ChatMessage{
			Role:    record.Role,
			Content: record.Content,
		}
	}
	return results, nil
}

// DeleteForChat drops every turn of one chat.
func (r *ChatLogRepo) DeleteForChat(ctx context.Context, chatID string) error {
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&chatMessageModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete chat history: %w", err)
	}
	return nil
}
