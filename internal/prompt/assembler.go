package prompt

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumichat/character-engine/internal/debug"
	"github.com/lumichat/character-engine/internal/emotion"
	"github.com/lumichat/character-engine/internal/memory"
	"github.com/lumichat/character-engine/internal/repository"
	"github.com/lumichat/character-engine/internal/types"
)

// DefaultPromptMemories is how many memories the prompt requests per turn
// when no override is configured.
const DefaultPromptMemories = 5

// extractionTimeout bounds a detached extraction pass.
const extractionTimeout = 60 * time.Second

// MemoryService is the memory surface the assembler needs.
type MemoryService interface {
	RetrieveDetailed(ctx context.Context, q memory.Query) ([]repository.RetrievedMemory, error)
	Store(ctx context.Context, characterID, userID string, fact types.MemoryFact, chatID, tier string) error
	Count(ctx context.Context, characterID, userID string) (int64, error)
	CountByType(ctx context.Context, characterID, userID string) (map[types.MemoryType]int, error)
}

// EmotionService is the emotion surface the assembler needs.
type EmotionService interface {
	AnalyzeAndUpdate(ctx context.Context, params emotion.AnalyzeParams) (types.EmotionState, error)
	CurrentEmotion(ctx context.Context, characterID, userID, chatID string) (*types.EmotionState, error)
}

// Extractor produces memory candidates from a message window.
type Extractor interface {
	Extract(ctx context.Context, messages []types.ChatMessage) []types.MemoryFact
}

// EmotionNotifier receives before/after state on every emotion update.
type EmotionNotifier func(chatID string, before, after *types.EmotionState)

// BuildParams describes one prompt build.
type BuildParams struct {
	Character   *types.Character
	CharacterID string
	UserID      string
	ChatID      string
	UserMessage string
}

// Assembler composes the enhanced system prompt and orchestrates the
// per-message memory and emotion flow.
type Assembler struct {
	memories  MemoryService
	emotions  EmotionService
	extractor Extractor
	collector *debug.Collector

	extractionThreshold int
	extractionWindow    int
	promptMemories      int
	notifier            EmotionNotifier
}

// Options tunes assembler behavior.
type Options struct {
	// ExtractionThreshold is the message count that triggers extraction.
	ExtractionThreshold int
	// ExtractionWindow is how many trailing messages extraction sees.
	ExtractionWindow int
	// PromptMemories is how many memories the prompt requests per turn.
	PromptMemories int
	// Notifier, when set, receives emotion transitions.
	Notifier EmotionNotifier
}

// NewAssembler returns an Assembler. A nil collector gets a fresh one.
func NewAssembler(memories MemoryService, emotions EmotionService, extractor Extractor, collector *debug.Collector, opts Options) *Assembler {
	if collector == nil {
		collector = debug.NewCollector()
	}
	if opts.ExtractionThreshold <= 0 {
		opts.ExtractionThreshold = 1
	}
	if opts.ExtractionWindow <= 0 {
		opts.ExtractionWindow = 2
	}
	if opts.PromptMemories <= 0 {
		opts.PromptMemories = DefaultPromptMemories
	}
	return &Assembler{
		memories:            memories,
		emotions:            emotions,
		extractor:           extractor,
		collector:           collector,
		extractionThreshold: opts.ExtractionThreshold,
		extractionWindow:    opts.ExtractionWindow,
		promptMemories:      opts.PromptMemories,
		notifier:            opts.Notifier,
	}
}

// Collector exposes the debug collector for external inspection endpoints.
func (a *Assembler) Collector() *debug.Collector {
	return a.collector
}

// BuildEnhancedPrompt assembles the full system prompt for one user message.
// Missing memories or emotion simply omit their sections.
func (a *Assembler) BuildEnhancedPrompt(ctx context.Context, params BuildParams) (string, error) {
	sections, err := a.buildSections(ctx, params)
	if err != nil {
		return "", err
	}
	return JoinSections(sections.CharacterBase, sections.Memories, sections.Emotion, sections.Guidelines), nil
}

// buildSections builds each prompt section and records latencies and the
// last retrieval into the collector.
func (a *Assembler) buildSections(ctx context.Context, params BuildParams) (debug.PromptSections, error) {
	key := debug.Key(params.CharacterID, params.UserID, params.ChatID)
	buildStart := time.Now()

	sections := debug.PromptSections{
		CharacterBase: BuildCharacterBase(params.Character),
		Guidelines:    Guidelines,
	}

	retrievalStart := time.Now()
	rows, err := a.memories.RetrieveDetailed(ctx, memory.Query{
		CharacterID: params.CharacterID,
		UserID:      params.UserID,
		Query:       params.UserMessage,
		ChatID:      params.ChatID,
		Limit:       a.promptMemories,
	})
	if err != nil {
		return debug.PromptSections{}, err
	}
	retrievalLatency := time.Since(retrievalStart)

	scored := make([]types.ScoredMemory, 0, len(rows))
	results := make([]debug.RetrievalResult, 0, len(rows))
	for _, row := range rows {
		scored = append(scored, types.ScoredMemory{
			ID:      row.ID,
			Content: row.Content,
			Type:    types.MemoryType(row.Type),
			Score:   row.Score,
		})
		results = append(results, debug.RetrievalResult{
			ID:         row.ID,
			Content:    row.Content,
			Type:       row.Type,
			Score:      row.Score,
			Similarity: row.Similarity,
			Importance: row.Importance,
			Recency:    row.Recency,
		})
	}
	sections.Memories = BuildMemoriesSection(scored)
	a.collector.RecordRetrieval(key, params.UserMessage, results, retrievalLatency)
	a.collector.RecordLatency(key, debug.MetricRetrieval, retrievalLatency)

	state, err := a.emotions.CurrentEmotion(ctx, params.CharacterID, params.UserID, params.ChatID)
	if err != nil {
		return debug.PromptSections{}, err
	}
	sections.Emotion = BuildEmotionSection(state)

	full := JoinSections(sections.CharacterBase, sections.Memories, sections.Emotion, sections.Guidelines)
	a.collector.RecordLatency(key, debug.MetricPromptBuild, time.Since(buildStart))
	a.collector.RecordPromptTokens(key, debug.EstimateTokens(full))

	return sections, nil
}

// UpdateEmotionFromMessage updates emotional state from the triggering text
// and forwards the transition to the notifier, if any.
func (a *Assembler) UpdateEmotionFromMessage(ctx context.Context, params emotion.AnalyzeParams) (types.EmotionState, error) {
	key := debug.Key(params.CharacterID, params.UserID, params.ChatID)

	before, err := a.emotions.CurrentEmotion(ctx, params.CharacterID, params.UserID, params.ChatID)
	if err != nil {
		return types.EmotionState{}, err
	}

	start := time.Now()
	after, err := a.emotions.AnalyzeAndUpdate(ctx, params)
	a.collector.RecordLatency(key, debug.MetricEmotionAnalysis, time.Since(start))
	if err != nil {
		return types.EmotionState{}, err
	}

	if a.notifier != nil {
		a.notifier(params.ChatID, before, &after)
	}
	return after, nil
}

// CheckAndExtractMemories bumps the cadence counter and, at the threshold,
// runs extraction over the trailing message window as a detached task.
// Extraction is fire-and-forget: its failures are logged, never surfaced.
func (a *Assembler) CheckAndExtractMemories(ctx context.Context, chatID, characterID, userID, tier string, recentMessages []types.ChatMessage) {
	key := debug.Key(characterID, userID, chatID)

	counter := a.collector.IncrementMessageCounter(key)
	if counter < a.extractionThreshold {
		return
	}
	a.collector.ResetMessageCounter(key)

	window := recentMessages
	if len(window) > a.extractionWindow {
		window = window[len(window)-a.extractionWindow:]
	}
	if len(window) == 0 {
		return
	}

	// Detached from the request lifecycle: the triggering turn may finish
	// or be cancelled while extraction is still running.
	go func() {
		taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), extractionTimeout)
		defer cancel()

		facts := a.extractor.Extract(taskCtx, window)
		for _, fact := range facts {
			if err := a.memories.Store(taskCtx, characterID, userID, fact, chatID, tier); err != nil {
				slog.Error("failed to store extracted memory",
					"error", err, "character_id", characterID, "user_id", userID, "type", fact.Type)
			}
		}
	}()
}

// DebugState aggregates the collector snapshot with current emotion and
// fresh memory counts. Read-mostly; no side effects on engine state.
func (a *Assembler) DebugState(ctx context.Context, characterID, userID, chatID string) (debug.State, error) {
	key := debug.Key(characterID, userID, chatID)
	snap := a.collector.Snapshot(key)

	state := debug.State{
		LastRetrieval:       snap.LastRetrieval,
		Performance:         snap.Performance,
		MessageCounter:      snap.MessageCounter,
		ExtractionThreshold: a.extractionThreshold,
		MemoryStats: debug.MemoryStats{
			ByType:          make(map[string]int),
			LastExtractedAt: snap.LastExtractedAt,
		},
	}

	current, err := a.emotions.CurrentEmotion(ctx, characterID, userID, chatID)
	if err != nil {
		return debug.State{}, err
	}
	state.CurrentEmotion = current

	counts, err := a.memories.CountByType(ctx, characterID, userID)
	if err != nil {
		return debug.State{}, err
	}
	total := 0
	for t, count := range counts {
		state.MemoryStats.ByType[string(t)] = count
		total += count
	}
	state.MemoryStats.Total = total

	return state, nil
}

// SystemPromptDetails rebuilds the prompt section by section so each
// section's token cost can be reported independently.
func (a *Assembler) SystemPromptDetails(ctx context.Context, params BuildParams) (debug.PromptDetails, error) {
	sections, err := a.buildSections(ctx, params)
	if err != nil {
		return debug.PromptDetails{}, err
	}
	full := JoinSections(sections.CharacterBase, sections.Memories, sections.Emotion, sections.Guidelines)
	return debug.DetailsFor(sections, full), nil
}
