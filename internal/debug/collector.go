// Package debug collects per-conversation observability state for the
// intelligence engine. The collector is diagnostic only: it observes every
// step without participating in the data path's correctness.
package debug

import (
	"sync"
	"time"
)

// Metric names one of the tracked latency measurements.
type Metric string

const (
	MetricEmbedding       Metric = "embedding"
	MetricRetrieval       Metric = "retrieval"
	MetricEmotionAnalysis Metric = "emotion_analysis"
	MetricPromptBuild     Metric = "prompt_build"
)

// RetrievalResult is one scored memory with its score components, kept for
// after-the-fact inspection of "why did the agent say that".
type RetrievalResult struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Type       string  `json:"type"`
	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
	Importance float64 `json:"importance"`
	Recency    float64 `json:"recency"`
}

// LastRetrieval captures the most recent memory retrieval for a chat.
type LastRetrieval struct {
	Query     string            `json:"query"`
	Results   []RetrievalResult `json:"results"`
	Timestamp time.Time         `json:"timestamp"`
	Latency   time.Duration     `json:"latency_ms"`
}

// Performance holds the tracked latency metrics and the last prompt size.
type Performance struct {
	EmbeddingLatency       time.Duration `json:"embedding_latency"`
	RetrievalLatency       time.Duration `json:"retrieval_latency"`
	EmotionAnalysisLatency time.Duration `json:"emotion_analysis_latency"`
	PromptBuildLatency     time.Duration `json:"prompt_build_latency"`
	LastPromptTokenCount   int           `json:"last_prompt_token_count"`
}

// Snapshot is the observed state for one chat.
type Snapshot struct {
	LastRetrieval   *LastRetrieval `json:"last_retrieval"`
	Performance     Performance    `json:"performance"`
	MessageCounter  int            `json:"message_counter"`
	LastExtractedAt *time.Time     `json:"last_extracted_at"`
}

type chatState struct {
	lastRetrieval   *LastRetrieval
	performance     Performance
	messageCounter  int
	lastExtractedAt *time.Time
}

// Collector holds per-chat debug state. It is an explicit object owned by
// the caller, created per engine instance rather than looked up from a
// package global; lifecycle is tied to session teardown via Clear.
type Collector struct {
	mu    sync.Mutex
	chats map[string]*chatState
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{chats: make(map[string]*chatState)}
}

// Key derives the state key: the chat id when present, otherwise the
// character×user pair.
func Key(characterID, userID, chatID string) string {
	if chatID != "" {
		return chatID
	}
	return characterID + "-" + userID
}

func (c *Collector) stateFor(key string) *chatState {
	state, ok := c.chats[key]
	if !ok {
		state = &chatState{}
		c.chats[key] = state
	}
	return state
}

// RecordRetrieval stores the last retrieval for the chat.
func (c *Collector) RecordRetrieval(key, query string, results []RetrievalResult, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateFor(key).lastRetrieval = &LastRetrieval{
		Query:     query,
		Results:   results,
		Timestamp: time.Now(),
		Latency:   latency,
	}
}

// RecordLatency stores one latency metric for the chat.
func (c *Collector) RecordLatency(key string, metric Metric, value time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	perf := &c.stateFor(key).performance
	switch metric {
	case MetricEmbedding:
		perf.EmbeddingLatency = value
	case MetricRetrieval:
		perf.RetrievalLatency = value
	case MetricEmotionAnalysis:
		perf.EmotionAnalysisLatency = value
	case MetricPromptBuild:
		perf.PromptBuildLatency = value
	}
}

// RecordPromptTokens stores the size of the last assembled prompt.
func (c *Collector) RecordPromptTokens(key string, tokens int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateFor(key).performance.LastPromptTokenCount = tokens
}

// IncrementMessageCounter bumps the cadence counter and returns it.
func (c *Collector) IncrementMessageCounter(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.stateFor(key)
	state.messageCounter++
	return state.messageCounter
}

// ResetMessageCounter zeroes the counter and stamps the extraction time.
func (c *Collector) ResetMessageCounter(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.stateFor(key)
	state.messageCounter = 0
	now := time.Now()
	state.lastExtractedAt = &now
}

// Snapshot returns a copy of the chat's observed state.
func (c *Collector) Snapshot(key string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.stateFor(key)
	snap := Snapshot{
		Performance:     state.performance,
		MessageCounter:  state.messageCounter,
		LastExtractedAt: state.lastExtractedAt,
	}
	if state.lastRetrieval != nil {
		retrieval := *state.lastRetrieval
		snap.LastRetrieval = &retrieval
	}
	return snap
}

// Clear drops all state for one chat.
func (c *Collector) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.chats, key)
}
