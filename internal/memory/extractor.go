package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/lumichat/character-engine/internal/types"
)

// perCategoryCap bounds how many entries a single extraction pass may yield
// per category, mirroring the cap stated in the extraction prompt.
const perCategoryCap = 3

// Completer is the LLM completion surface the extractor needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Extractor turns a window of recent messages into memory candidates.
type Extractor struct {
	completer Completer
}

// NewExtractor returns an Extractor.
func NewExtractor(completer Completer) *Extractor {
	return &Extractor{completer: completer}
}

const extractionSystemPrompt = `You are a memory extraction assistant. Output valid JSON only.`

const extractionPromptHeader = `分析以下对话，提取关于用户的记忆信息。

对话内容:
`

const extractionPromptFooter = `

请以 JSON 格式输出:
{
  "facts": ["事实性信息..."],
  "preferences": ["用户偏好..."],
  "relationships": ["关系信息..."],
  "events": ["重要事件..."]
}

只提取明确或可合理推断的信息，不要编造。每个类别最多3条。`

// extractionOutput is the structured shape requested from the model.
type extractionOutput struct {
	Facts         []string `json:"facts"`
	Preferences   []string `json:"preferences"`
	Relationships []string `json:"relationships"`
	Events        []string `json:"events"`
}

// Extract runs one extraction pass over messages. It is best-effort: any
// provider or parse failure yields an empty result, never an error. With no
// input messages the provider is not called at all.
func (e *Extractor) Extract(ctx context.Context, messages []types.ChatMessage) []types.MemoryFact {
	if len(messages) == 0 {
		return nil
	}

	var conversation strings.Builder
	for i, msg := range messages {
		if i > 0 {
			conversation.WriteString("\n")
		}
		conversation.WriteString(msg.Role)
		conversation.WriteString(": ")
		conversation.WriteString(msg.Content)
	}

	prompt := extractionPromptHeader + conversation.String() + extractionPromptFooter
	raw, err := e.completer.Complete(ctx, extractionSystemPrompt, prompt)
	if err != nil {
		slog.Warn("memory extraction call failed", "error", err)
		return nil
	}

	output, err := parseExtractionJSON(raw)
	if err != nil {
		slog.Warn("memory extraction output unparsable", "error", err)
		return nil
	}

	var facts []types.MemoryFact
	appendCategory := func(items []string, t types.MemoryType) {
		if len(items) > perCategoryCap {
			items = items[:perCategoryCap]
		}
		for _, content := range items {
			content = strings.TrimSpace(content)
			if content == "" {
				continue
			}
			facts = append(facts, types.MemoryFact{
				Type:       t,
				Content:    content,
				Importance: t.ImportanceWeight(),
			})
		}
	}
	appendCategory(output.Facts, types.MemoryTypeFact)
	appendCategory(output.Preferences, types.MemoryTypePreference)
	appendCategory(output.Relationships, types.MemoryTypeRelationship)
	appendCategory(output.Events, types.MemoryTypeEvent)

	return facts
}

// parseExtractionJSON tolerates code fences and prose around the JSON object
// by slicing to the outermost braces before decoding.
func parseExtractionJSON(raw string) (extractionOutput, error) {
	clean := strings.TrimSpace(raw)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}
	var output extractionOutput
	if err := json.Unmarshal([]byte(clean), &output); err != nil {
		return extractionOutput{}, err
	}
	return output, nil
}
