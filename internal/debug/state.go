package debug

import (
	"time"

	"github.com/lumichat/character-engine/internal/types"
)

// MemoryStats summarizes stored memories for one character×user pair.
type MemoryStats struct {
	Total           int            `json:"total"`
	ByType          map[string]int `json:"by_type"`
	LastExtractedAt *time.Time     `json:"last_extracted_at"`
}

// State is the full debug view for one conversation: current emotion and
// memory counts fetched fresh from storage, plus the collector's snapshot.
type State struct {
	CurrentEmotion      *types.EmotionState `json:"current_emotion"`
	MemoryStats         MemoryStats         `json:"memory_stats"`
	LastRetrieval       *LastRetrieval      `json:"last_retrieval"`
	Performance         Performance         `json:"performance"`
	MessageCounter      int                 `json:"message_counter"`
	ExtractionThreshold int                 `json:"extraction_threshold"`
}

// PromptSections holds the prompt broken down section by section. Memories
// and Emotion are empty when the corresponding section was omitted.
type PromptSections struct {
	CharacterBase string `json:"character_base"`
	Memories      string `json:"memories"`
	Emotion       string `json:"emotion"`
	Guidelines    string `json:"guidelines"`
}

// PromptTokenCounts is the per-section token estimate.
type PromptTokenCounts struct {
	Total         int `json:"total"`
	CharacterBase int `json:"character_base"`
	Memories      int `json:"memories"`
	Emotion       int `json:"emotion"`
	Guidelines    int `json:"guidelines"`
}

// PromptDetails is a section-by-section reconstruction of the system prompt,
// built from the same section builders as the real prompt rather than by
// re-parsing the concatenated string.
type PromptDetails struct {
	FullPrompt string            `json:"full_prompt"`
	Sections   PromptSections    `json:"sections"`
	TokenCount PromptTokenCounts `json:"token_count"`
}

// DetailsFor fills token estimates for the given sections.
func DetailsFor(sections PromptSections, fullPrompt string) PromptDetails {
	return PromptDetails{
		FullPrompt: fullPrompt,
		Sections:   sections,
		TokenCount: PromptTokenCounts{
			Total:         EstimateTokens(fullPrompt),
			CharacterBase: EstimateTokens(sections.CharacterBase),
			Memories:      EstimateTokens(sections.Memories),
			Emotion:       EstimateTokens(sections.Emotion),
			Guidelines:    EstimateTokens(sections.Guidelines),
		},
	}
}
