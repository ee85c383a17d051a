package memory

import (
	"context"
	"testing"

	"github.com/lumichat/character-engine/internal/repository"
	"github.com/lumichat/character-engine/internal/types"
)

type touchCall struct {
	id string
}

type mockMemoryRepo struct {
	count      int64
	upserted   []types.Memory
	embeddings [][]float32
	searchRows []repository.RetrievedMemory
	lastLimit  int
	touched    []touchCall
	deleted    []string
	wiped      bool
}

func (r *mockMemoryRepo) Upsert(ctx context.Context, mem types.Memory, embedding []float32) error {
	r.upserted = append(r.upserted, mem)
	r.embeddings = append(r.embeddings, embedding)
	return nil
}

func (r *mockMemoryRepo) HybridSearch(ctx context.Context, characterID, userID string, embedding []float32, chatID string, limit int) ([]repository.RetrievedMemory, error) {
	r.lastLimit = limit
	if limit < len(r.searchRows) {
		return r.searchRows[:limit], nil
	}
	return r.searchRows, nil
}

func (r *mockMemoryRepo) TouchAccess(ctx context.Context, memoryID string) error {
	r.touched = append(r.touched, touchCall{id: memoryID})
	return nil
}

func (r *mockMemoryRepo) FindByCharacterAndUser(ctx context.Context, characterID, userID string, limit int) ([]types.Memory, error) {
	return nil, nil
}

func (r *mockMemoryRepo) Count(ctx context.Context, characterID, userID string) (int64, error) {
	return r.count, nil
}

func (r *mockMemoryRepo) CountByType(ctx context.Context, characterID, userID string) (map[types.MemoryType]int, error) {
	return nil, nil
}

func (r *mockMemoryRepo) Delete(ctx context.Context, memoryID string) error {
	r.deleted = append(r.deleted, memoryID)
	return nil
}

func (r *mockMemoryRepo) DeleteAll(ctx context.Context, characterID, userID string) error {
	r.wiped = true
	return nil
}

type mockProvider struct {
	vector []float32
	calls  []string
}

func (p *mockProvider) Embed(ctx context.Context, text string) []float32 {
	p.calls = append(p.calls, text)
	if p.vector != nil {
		return p.vector
	}
	return make([]float32, 384)
}

func (p *mockProvider) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	return nil
}

func (p *mockProvider) AnalyzeSentiment(ctx context.Context, text string) types.SentimentResult {
	return types.SentimentResult{Arousal: 0.3}
}

func (p *mockProvider) Healthy(ctx context.Context) bool {
	return true
}

func TestStorePersistsRecordWithEmbedding(t *testing.T) {
	repo := &mockMemoryRepo{}
	provider := &mockProvider{vector: []float32{0.1, 0.2}}
	svc := NewService(repo, provider, nil, 0)

	err := svc.Store(context.Background(), "char-1", "user-1", types.MemoryFact{
		Type:       types.MemoryTypePreference,
		Content:    "User loves hiking",
		Importance: 0.8,
	}, "chat-1", "free")
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	if len(repo.upserted) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(repo.upserted))
	}
	stored := repo.upserted[0]
	if stored.CharacterID != "char-1" || stored.UserID != "user-1" {
		t.Fatalf("unexpected memory keys: %+v", stored)
	}
	if stored.Type != types.MemoryTypePreference || stored.Importance != 0.8 {
		t.Fatalf("unexpected memory payload: %+v", stored)
	}
	if stored.SourceChatID != "chat-1" {
		t.Fatalf("expected source chat to be recorded, got %q", stored.SourceChatID)
	}
	if len(repo.embeddings[0]) != 2 {
		t.Fatalf("expected provider embedding to be stored, got %v", repo.embeddings[0])
	}
	if len(provider.calls) != 1 || provider.calls[0] != "User loves hiking" {
		t.Fatalf("expected content to be embedded, got %v", provider.calls)
	}
}

func TestStoreDropsSilentlyAtTierCeiling(t *testing.T) {
	repo := &mockMemoryRepo{count: 100}
	svc := NewService(repo, &mockProvider{}, nil, 0)

	err := svc.Store(context.Background(), "char-1", "user-1", types.MemoryFact{
		Type:       types.MemoryTypeFact,
		Content:    "one fact too many",
		Importance: 0.7,
	}, "", "free")
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if len(repo.upserted) != 0 {
		t.Fatalf("expected no upsert at ceiling, got %d", len(repo.upserted))
	}
}

func TestStoreHigherTierRaisesCeiling(t *testing.T) {
	repo := &mockMemoryRepo{count: 100}
	svc := NewService(repo, &mockProvider{}, nil, 0)

	err := svc.Store(context.Background(), "char-1", "user-1", types.MemoryFact{
		Type:       types.MemoryTypeFact,
		Content:    "within pro limit",
		Importance: 0.7,
	}, "", "pro")
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if len(repo.upserted) != 1 {
		t.Fatalf("expected upsert under pro ceiling, got %d", len(repo.upserted))
	}
}

func TestStoreUnknownTierFallsBackToFree(t *testing.T) {
	repo := &mockMemoryRepo{count: 100}
	svc := NewService(repo, &mockProvider{}, nil, 0)

	err := svc.Store(context.Background(), "char-1", "user-1", types.MemoryFact{
		Type:       types.MemoryTypeFact,
		Content:    "mystery tier",
		Importance: 0.7,
	}, "", "platinum")
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if len(repo.upserted) != 0 {
		t.Fatalf("expected unknown tier to use the free ceiling, got %d upserts", len(repo.upserted))
	}
}

func TestRetrieveOrdersByScoreAndTouchesAccess(t *testing.T) {
	repo := &mockMemoryRepo{searchRows: []repository.RetrievedMemory{
		{ID: "m1", Content: "strongest", Type: "fact", Score: 0.92},
		{ID: "m2", Content: "middle", Type: "preference", Score: 0.61},
		{ID: "m3", Content: "weakest", Type: "event", Score: 0.20},
	}}
	svc := NewService(repo, &mockProvider{}, nil, 0)

	results, err := svc.Retrieve(context.Background(), Query{
		CharacterID: "char-1",
		UserID:      "user-1",
		Query:       "what matters",
	})
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ID != "m1" || results[0].Score != 0.92 {
		t.Fatalf("expected highest score first, got %+v", results[0])
	}
	if len(repo.touched) != 3 {
		t.Fatalf("expected every returned record to be touched, got %d", len(repo.touched))
	}
	if repo.touched[0].id != "m1" {
		t.Fatalf("unexpected touch order: %+v", repo.touched)
	}
}

func TestRetrieveEmptyResultIsNotAnError(t *testing.T) {
	repo := &mockMemoryRepo{}
	svc := NewService(repo, &mockProvider{}, nil, 0)

	results, err := svc.Retrieve(context.Background(), Query{
		CharacterID: "char-1",
		UserID:      "user-1",
		Query:       "unknown topic",
	})
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %d", len(results))
	}
	if len(repo.touched) != 0 {
		t.Fatalf("expected no access touches on empty result, got %d", len(repo.touched))
	}
}

func TestRetrieveUsesConfiguredDefaultLimit(t *testing.T) {
	repo := &mockMemoryRepo{}
	svc := NewService(repo, &mockProvider{}, nil, 7)

	if _, err := svc.Retrieve(context.Background(), Query{
		CharacterID: "char-1",
		UserID:      "user-1",
		Query:       "anything",
	}); err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if repo.lastLimit != 7 {
		t.Fatalf("expected configured default limit 7, got %d", repo.lastLimit)
	}

	if _, err := svc.Retrieve(context.Background(), Query{
		CharacterID: "char-1",
		UserID:      "user-1",
		Query:       "anything",
		Limit:       3,
	}); err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if repo.lastLimit != 3 {
		t.Fatalf("expected explicit limit 3 to win, got %d", repo.lastLimit)
	}

	svc = NewService(repo, &mockProvider{}, nil, 0)
	if _, err := svc.RetrieveDetailed(context.Background(), Query{
		CharacterID: "char-1",
		UserID:      "user-1",
		Query:       "anything",
	}); err != nil {
		t.Fatalf("RetrieveDetailed returned error: %v", err)
	}
	if repo.lastLimit != DefaultRetrievalLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultRetrievalLimit, repo.lastLimit)
	}
}

func TestResetWipesAllMemories(t *testing.T) {
	repo := &mockMemoryRepo{}
	svc := NewService(repo, &mockProvider{}, nil, 0)

	if err := svc.Reset(context.Background(), "char-1", "user-1"); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if !repo.wiped {
		t.Fatal("expected DeleteAll to be called")
	}
}
