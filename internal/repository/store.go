package repository

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Store holds the DB pool and repositories.
type Store struct {
	db         *gorm.DB
	Memories   *MemoryRepo
	Emotions   *EmotionRepo
	Characters *CharacterRepo
	ChatLog    *ChatLogRepo
}

// NewStore initializes the PostgreSQL pool and repositories.
// recencyDecaySeconds tunes hybrid-search recency; <= 0 uses the default.
func NewStore(ctx context.Context, databaseURL string, recencyDecaySeconds int) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{
		db:         db,
		Memories:   NewMemoryRepo(db, recencyDecaySeconds),
		Emotions:   NewEmotionRepo(db),
		Characters: NewCharacterRepo(db),
		ChatLog:    NewChatLogRepo(db),
	}
	return store, nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
