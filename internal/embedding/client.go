// Package embedding talks to the embedding/sentiment sidecar service.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/lumichat/character-engine/internal/types"
)

// Dimensions is the fixed embedding vector length.
const Dimensions = 384

// NeutralSentiment is the fallback returned when the sidecar is unreachable.
var NeutralSentiment = types.SentimentResult{Valence: 0, Arousal: 0.3}

// Provider produces embeddings and 2D sentiment. Implementations must not
// return errors for provider unavailability: callers rely on the neutral
// fallback contract and treat every call as infallible.
type Provider interface {
	Embed(ctx context.Context, text string) []float32
	EmbedBatch(ctx context.Context, texts []string) [][]float32
	AnalyzeSentiment(ctx context.Context, text string) types.SentimentResult
	Healthy(ctx context.Context) bool
}

// Client is the HTTP implementation of Provider.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	healthTimeout time.Duration
	embedTimeout  time.Duration
	batchTimeout  time.Duration
	available     atomic.Bool
}

// Options tunes per-call timeouts.
type Options struct {
	HealthTimeout time.Duration
	EmbedTimeout  time.Duration
	BatchTimeout  time.Duration
}

// NewClient creates an HTTP Provider against the sidecar base URL.
func NewClient(baseURL string, opts Options) *Client {
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = 2 * time.Second
	}
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = 10 * time.Second
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 30 * time.Second
	}
	c := &Client{
		baseURL:       baseURL,
		httpClient:    &http.Client{},
		healthTimeout: opts.HealthTimeout,
		embedTimeout:  opts.EmbedTimeout,
		batchTimeout:  opts.BatchTimeout,
	}
	c.available.Store(true)
	return c
}

// Available reports whether the last sidecar call succeeded.
func (c *Client) Available() bool {
	return c.available.Load()
}

// Embed returns the embedding for text, or a zero vector on any failure.
func (c *Client) Embed(ctx context.Context, text string) []float32 {
	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := c.post(ctx, "/embed", c.embedTimeout, map[string]string{"text": text}, &out); err != nil {
		slog.Warn("embedding service unavailable, using zero vector", "error", err)
		return make([]float32, Dimensions)
	}
	if len(out.Embedding) != Dimensions {
		slog.Warn("unexpected embedding dimensions, using zero vector", "got", len(out.Embedding), "want", Dimensions)
		return make([]float32, Dimensions)
	}
	return out.Embedding
}

// EmbedBatch returns one embedding per text; zero vectors on failure.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return nil
	}
	var out struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := c.post(ctx, "/embed/batch", c.batchTimeout, map[string][]string{"texts": texts}, &out); err != nil || len(out.Embeddings) != len(texts) {
		if err != nil {
			slog.Warn("batch embedding failed, using zero vectors", "error", err, "count", len(texts))
		}
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = make([]float32, Dimensions)
		}
		return vectors
	}
	return out.Embeddings
}

// AnalyzeSentiment returns 2D sentiment for text, or the neutral fallback.
func (c *Client) AnalyzeSentiment(ctx context.Context, text string) types.SentimentResult {
	var out types.SentimentResult
	if err := c.post(ctx, "/sentiment", c.embedTimeout, map[string]string{"text": text}, &out); err != nil {
		slog.Warn("sentiment service unavailable, using neutral fallback", "error", err)
		return NeutralSentiment
	}
	return out
}

// Healthy probes the sidecar health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.available.Store(false)
		return false
	}
	defer resp.Body.Close()

	var out struct {
		Initialized bool `json:"initialized"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false
	}
	c.available.Store(out.Initialized)
	return out.Initialized
}

func (c *Client) post(ctx context.Context, path string, timeout time.Duration, payload, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.available.Store(false)
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.available.Store(false)
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, path, data)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	c.available.Store(true)
	return nil
}
