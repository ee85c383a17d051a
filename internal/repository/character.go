package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lumichat/character-engine/internal/types"
)

// characterModel maps to the characters table. The engine only reads cards;
// authoring lives in the character service that owns this table.
type characterModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string
	Description  string
	Personality  string
	Scenario     string
	SystemPrompt string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (characterModel) TableName() string {
	return "characters"
}

// CharacterRepo provides read access to character cards.
type CharacterRepo struct {
	db *gorm.DB
}

// NewCharacterRepo returns a CharacterRepo.
func NewCharacterRepo(db *gorm.DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// GetByID fetches a character card, or nil when no card exists.
func (r *CharacterRepo) GetByID(ctx context.Context, id string) (*types.Character, error) {
	var record characterModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get character by id: %w", err)
	}
	card := characterFromModel(record)
	return &card, nil
}

// GetDefault fetches the oldest available character card, or nil when the
// table is empty.
func (r *CharacterRepo) GetDefault(ctx context.Context) (*types.Character, error) {
	var record characterModel
	err := r.db.WithContext(ctx).Order("created_at ASC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default character: %w", err)
	}
	card := characterFromModel(record)
	return &card, nil
}

func characterFromModel(model characterModel) types.Character {
	return types.Character{
		ID:           model.ID,
		Name:         model.Name,
		Description:  model.Description,
		Personality:  model.Personality,
		Scenario:     model.Scenario,
		SystemPrompt: model.SystemPrompt,
	}
}
