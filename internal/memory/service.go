// Package memory implements persistent character memory with hybrid
// scored retrieval.
package memory

import (
	"context"
	"log/slog"

	"github.com/lumichat/character-engine/internal/embedding"
	"github.com/lumichat/character-engine/internal/repository"
	"github.com/lumichat/character-engine/internal/types"
)

// MemoryLimits caps live records per character×user pair by subscription tier.
var MemoryLimits = map[string]int{
	"free": 100,
	"pro":  500,
	"team": 2000,
}

// Repo is the persistence surface the service needs.
type Repo interface {
	Upsert(ctx context.Context, mem types.Memory, embedding []float32) error
	HybridSearch(ctx context.Context, characterID, userID string, embedding []float32, chatID string, limit int) ([]repository.RetrievedMemory, error)
	TouchAccess(ctx context.Context, memoryID string) error
	FindByCharacterAndUser(ctx context.Context, characterID, userID string, limit int) ([]types.Memory, error)
	Count(ctx context.Context, characterID, userID string) (int64, error)
	CountByType(ctx context.Context, characterID, userID string) (map[types.MemoryType]int, error)
	Delete(ctx context.Context, memoryID string) error
	DeleteAll(ctx context.Context, characterID, userID string) error
}

// Query describes one retrieval call.
type Query struct {
	CharacterID string
	UserID      string
	Query       string
	ChatID      string
	Limit       int
}

// DefaultRetrievalLimit caps retrieval results when the query asks for none.
const DefaultRetrievalLimit = 10

// Service stores and retrieves character memories.
type Service struct {
	repo           Repo
	provider       embedding.Provider
	limits         map[string]int
	retrievalLimit int
}

// NewService returns a memory service. A nil limits map uses MemoryLimits;
// retrievalLimit <= 0 uses DefaultRetrievalLimit.
func NewService(repo Repo, provider embedding.Provider, limits map[string]int, retrievalLimit int) *Service {
	if limits == nil {
		limits = MemoryLimits
	}
	if retrievalLimit <= 0 {
		retrievalLimit = DefaultRetrievalLimit
	}
	return &Service{
		repo:           repo,
		provider:       provider,
		limits:         limits,
		retrievalLimit: retrievalLimit,
	}
}

// Store persists one memory candidate. At the tier ceiling the call is a
// silent no-op; everything else that fails is a hard error so a successful
// return always means a record+vector pair exists.
func (s *Service) Store(ctx context.Context, characterID, userID string, fact types.MemoryFact, chatID, tier string) error {
	count, err := s.repo.Count(ctx, characterID, userID)
	if err != nil {
		return err
	}
	limit, ok := s.limits[tier]
	if !ok {
		limit = s.limits["free"]
	}
	if count >= int64(limit) {
		slog.Warn("memory limit reached, dropping candidate",
			"character_id", characterID, "user_id", userID, "tier", tier, "limit", limit)
		return nil
	}

	vector := s.provider.Embed(ctx, fact.Content)
	return s.repo.Upsert(ctx, types.Memory{
		CharacterID:  characterID,
		UserID:       userID,
		Type:         fact.Type,
		Content:      fact.Content,
		Importance:   fact.Importance,
		SourceChatID: chatID,
	}, vector)
}

// Retrieve ranks memories for the query and touches every returned record.
// An empty result is not an error.
func (s *Service) Retrieve(ctx context.Context, q Query) ([]types.ScoredMemory, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = s.retrievalLimit
	}

	vector := s.provider.Embed(ctx, q.Query)
	rows, err := s.repo.HybridSearch(ctx, q.CharacterID, q.UserID, vector, q.ChatID, limit)
	if err != nil {
		return nil, err
	}

	results := make([]types.ScoredMemory, 0, len(rows))
	for _, row := range rows {
		if err := s.repo.TouchAccess(ctx, row.ID); err != nil {
			return nil, err
		}
		results = append(results, types.ScoredMemory{
			ID:      row.ID,
			Content: row.Content,
			Type:    types.MemoryType(row.Type),
			Score:   row.Score,
		})
	}
	return results, nil
}

// RetrieveDetailed is Retrieve with the per-row score components kept, used
// by the debug collector.
func (s *Service) RetrieveDetailed(ctx context.Context, q Query) ([]repository.RetrievedMemory, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = s.retrievalLimit
	}
	vector := s.provider.Embed(ctx, q.Query)
	rows, err := s.repo.HybridSearch(ctx, q.CharacterID, q.UserID, vector, q.ChatID, limit)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := s.repo.TouchAccess(ctx, row.ID); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// List returns stored memories ordered by most recently accessed.
func (s *Service) List(ctx context.Context, characterID, userID string, limit int) ([]types.Memory, error) {
	return s.repo.FindByCharacterAndUser(ctx, characterID, userID, limit)
}

// Count returns the live record count for a character×user pair.
func (s *Service) Count(ctx context.Context, characterID, userID string) (int64, error) {
	return s.repo.Count(ctx, characterID, userID)
}

// CountByType returns per-category counts for a character×user pair.
func (s *Service) CountByType(ctx context.Context, characterID, userID string) (map[types.MemoryType]int, error) {
	return s.repo.CountByType(ctx, characterID, userID)
}

// Delete removes a single memory.
func (s *Service) Delete(ctx context.Context, memoryID string) error {
	return s.repo.Delete(ctx, memoryID)
}

// Reset wipes all memories for a character×user pair.
func (s *Service) Reset(ctx context.Context, characterID, userID string) error {
	return s.repo.DeleteAll(ctx, characterID, userID)
}
