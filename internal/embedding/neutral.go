package embedding

import (
	"context"

	"github.com/lumichat/character-engine/internal/types"
)

// Neutral is a Provider that always returns the degraded fallbacks. It is
// selected at construction time when no sidecar is configured, and makes the
// fallback contract explicit for tests.
type Neutral struct{}

func (Neutral) Embed(ctx context.Context, text string) []float32 {
	return make([]float32, Dimensions)
}

func (Neutral) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = make([]float32, Dimensions)
	}
	return vectors
}

func (Neutral) AnalyzeSentiment(ctx context.Context, text string) types.SentimentResult {
	return NeutralSentiment
}

func (Neutral) Healthy(ctx context.Context) bool {
	return false
}
