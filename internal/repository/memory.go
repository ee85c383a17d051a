package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumichat/character-engine/internal/types"
)

// memoryModel maps to the character_memories table.
type memoryModel struct {
	ID          string `gorm:"primaryKey"`
	CharacterID string
	UserID      string
	Type        string
	Content     string
	// Importance is a 0-1 weight seeded by the extraction category.
	Importance   float64
	AccessCount  int
	SourceChatID *string
	CreatedAt    time.Time
	LastAccessed time.Time
}

func (memoryModel) TableName() string {
	return "character_memories"
}

// memoryVectorModel maps to the character_memory_vectors table. A vector is
// written once per memory and never updated in place.
type memoryVectorModel struct {
	ID        string `gorm:"primaryKey"`
	MemoryID  string
	Embedding pgvector.Vector `gorm:"type:vector(384)"`
	CreatedAt time.Time
}

func (memoryVectorModel) TableName() string {
	return "character_memory_vectors"
}

// DefaultRecencyDecaySeconds is the window over which the recency term
// decays from 1 to 0: 30 days.
const DefaultRecencyDecaySeconds = 2592000

// RetrievedMemory is one hybrid-search row with its score components.
type RetrievedMemory struct {
	ID         string
	Content    string
	Type       string
	Score      float64
	Similarity float64
	Importance float64
	Recency    float64
}

// MemoryRepo accesses memory records and their vectors.
type MemoryRepo struct {
	db                  *gorm.DB
	recencyDecaySeconds int
}

// NewMemoryRepo returns a MemoryRepo. recencyDecaySeconds <= 0 uses the
// default 30-day window.
func NewMemoryRepo(db *gorm.DB, recencyDecaySeconds int) *MemoryRepo {
	if recencyDecaySeconds <= 0 {
		recencyDecaySeconds = DefaultRecencyDecaySeconds
	}
	return &MemoryRepo{db: db, recencyDecaySeconds: recencyDecaySeconds}
}

// RecencyDecaySeconds reports the configured recency decay window.
func (r *MemoryRepo) RecencyDecaySeconds() int {
	return r.recencyDecaySeconds
}

// Upsert stores a memory and its vector as one logical unit. Re-ingesting
// identical (character, user, content) updates importance and last_accessed
// on the existing row instead of duplicating; the existing vector is kept.
func (r *MemoryRepo) Upsert(ctx context.Context, mem types.Memory, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("memory embedding is required")
	}

	record := memoryModel{
		ID:           uuid.NewString(),
		CharacterID:  mem.CharacterID,
		UserID:       mem.UserID,
		Type:         string(mem.Type),
		Content:      mem.Content,
		Importance:   mem.Importance,
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
	}
	if mem.SourceChatID != "" {
		chatID := mem.SourceChatID
		record.SourceChatID = &chatID
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "character_id"}, {Name: "user_id"}, {Name: "content"}},
				DoUpdates: clause.Assignments(map[string]any{
					"importance":    mem.Importance,
					"last_accessed": time.Now(),
				}),
			},
			clause.Returning{},
		).Create(&record).Error; err != nil {
			return fmt.Errorf("failed to upsert memory: %w", err)
		}

		var vectorCount int64
		if err := tx.Model(&memoryVectorModel{}).
			Where("memory_id = ?", record.ID).
			Count(&vectorCount).Error; err != nil {
			return fmt.Errorf("failed to check memory vector: %w", err)
		}
		if vectorCount > 0 {
			return nil
		}

		vector := memoryVectorModel{
			ID:        uuid.NewString(),
			MemoryID:  record.ID,
			Embedding: pgvector.NewVector(embedding),
			CreatedAt: time.Now(),
		}
		if err := tx.Create(&vector).Error; err != nil {
			return fmt.Errorf("failed to insert memory vector: %w", err)
		}
		return nil
	})
}

// HybridSearch ranks memories by the combined similarity, importance and
// recency score, computed server-side so full vector sets never leave the
// database. The recency term is deliberately unclamped: very stale memories
// go negative and sink to the bottom.
func (r *MemoryRepo) HybridSearch(ctx context.Context, characterID, userID string, embedding []float32, chatID string, limit int) ([]RetrievedMemory, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	vector := pgvector.NewVector(embedding)
	conditions := "m.character_id = ? AND m.user_id = ?"
	// The vector and decay parameters each appear twice: once for the
	// reported component columns and once inside the score expression.
	decay := r.recencyDecaySeconds
	args := []any{vector, decay, vector, decay, characterID, userID}
	if chatID != "" {
		conditions += " AND m.source_chat_id = ?"
		args = append(args, chatID)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT m.id, m.content, m.type,
		       1 - (v.embedding <=> ?) AS similarity,
		       COALESCE(m.importance, 0.5) AS importance,
		       1 - EXTRACT(EPOCH FROM (NOW() - m.last_accessed)) / ? AS recency,
		       (
		         0.5 * (1 - (v.embedding <=> ?)) +
		         0.3 * COALESCE(m.importance, 0.5) +
		         0.2 * (1 - EXTRACT(EPOCH FROM (NOW() - m.last_accessed)) / ?)
		       ) AS score
		FROM character_memories m
		JOIN character_memory_vectors v ON v.memory_id = m.id
		WHERE %s
		ORDER BY score DESC, m.created_at ASC
		LIMIT ?`, conditions)

	var results []RetrievedMemory
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	return results, nil
}

// TouchAccess bumps the access counter and refreshes last_accessed.
func (r *MemoryRepo) TouchAccess(ctx context.Context, memoryID string) error {
	if err := r.db.WithContext(ctx).Model(&memoryModel{}).
		Where("id = ?", memoryID).
		Updates(map[string]any{
			"access_count":  gorm.Expr("access_count + 1"),
			"last_accessed": time.Now(),
		}).Error; err != nil {
		return fmt.Errorf("failed to touch memory access: %w", err)
	}
	return nil
}

// FindByCharacterAndUser lists memories ordered by most recently accessed.
func (r *MemoryRepo) FindByCharacterAndUser(ctx context.Context, characterID, userID string, limit int) ([]types.Memory, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []memoryModel
	if err := r.db.WithContext(ctx).
		Where("character_id = ? AND user_id = ?", characterID, userID).
		Order("last_accessed DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}

	results := make([]types.Memory, 0, len(records))
	for _, record := range records {
		results = append(results, memoryFromModel(record))
	}
	return results, nil
}

// Count returns the number of live memories for a character×user pair.
func (r *MemoryRepo) Count(ctx context.Context, characterID, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&memoryModel{}).
		Where("character_id = ? AND user_id = ?", characterID, userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count memories: %w", err)
	}
	return count, nil
}

// CountByType returns per-category counts for a character×user pair.
func (r *MemoryRepo) CountByType(ctx context.Context, characterID, userID string) (map[types.MemoryType]int, error) {
	var rows []struct {
		Type  string
		Count int
	}
	if err := r.db.WithContext(ctx).Model(&memoryModel{}).
		Select("type, COUNT(*) AS count").
		Where("character_id = ? AND user_id = ?", characterID, userID).
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count memories by type: %w", err)
	}

	counts := make(map[types.MemoryType]int, len(rows))
	for _, row := range rows {
		counts[types.MemoryType(row.Type)] = row.Count
	}
	return counts, nil
}

// Delete removes a single memory; its vector row cascades.
func (r *MemoryRepo) Delete(ctx context.Context, memoryID string) error {
	if err := r.db.WithContext(ctx).
		Where("id = ?", memoryID).
		Delete(&memoryModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return nil
}

// DeleteAll wipes every memory for a character×user pair.
func (r *MemoryRepo) DeleteAll(ctx context.Context, characterID, userID string) error {
	if err := r.db.WithContext(ctx).
		Where("character_id = ? AND user_id = ?", characterID, userID).
		Delete(&memoryModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete memories: %w", err)
	}
	return nil
}

func memoryFromModel(model memoryModel) types.Memory {
	mem := types.Memory{
		ID:           model.ID,
		CharacterID:  model.CharacterID,
		UserID:       model.UserID,
		Type:         types.MemoryType(model.Type),
		Content:      model.Content,
		Importance:   model.Importance,
		AccessCount:  model.AccessCount,
		CreatedAt:    model.CreatedAt,
		LastAccessed: model.LastAccessed,
	}
	if model.SourceChatID != nil {
		mem.SourceChatID = *model.SourceChatID
	}
	return mem
}
