// Package prompt assembles the system prompt from character definition,
// retrieved memories, emotional state and fixed behavioral guidance.
package prompt

import (
	"fmt"
	"strings"

	"github.com/lumichat/character-engine/internal/types"
)

// Guidelines is the fixed behavioral guidance appended to every prompt.
const Guidelines = `## 行为指引
- 根据记忆中的信息个性化回复
- 保持情感状态的一致性，情感变化应自然过渡
- 可以主动提及相关记忆，但不要生硬
Stay in character at all times.`

// memoryGroupHeaders maps each category to its section marker, in the fixed
// rendering order of types.MemoryTypes.
var memoryGroupHeaders = map[types.MemoryType]string{
	types.MemoryTypeFact:         "【事实】",
	types.MemoryTypePreference:   "【偏好】",
	types.MemoryTypeRelationship: "【关系】",
	types.MemoryTypeEvent:        "【事件】",
}

// BuildCharacterBase renders the character block. Absent fields are omitted
// rather than emitted empty.
func BuildCharacterBase(character *types.Character) string {
	parts := []string{fmt.Sprintf("You are %s.", character.Name)}
	if character.Description != "" {
		parts = append(parts, character.Description)
	}
	if character.Personality != "" {
		parts = append(parts, "Personality: "+character.Personality)
	}
	if character.Scenario != "" {
		parts = append(parts, "Scenario: "+character.Scenario)
	}
	if character.SystemPrompt != "" {
		parts = append(parts, character.SystemPrompt)
	}
	return strings.Join(parts, "\n")
}

// BuildMemoriesSection groups retrieved memories by category in the fixed
// order, omitting empty groups. Returns "" when there are no memories.
func BuildMemoriesSection(memories []types.ScoredMemory) string {
	if len(memories) == 0 {
		return ""
	}

	grouped := make(map[types.MemoryType][]string)
	for _, mem := range memories {
		grouped[mem.Type] = append(grouped[mem.Type], mem.Content)
	}

	parts := []string{"## 关于用户的记忆"}
	for _, t := range types.MemoryTypes {
		contents := grouped[t]
		if len(contents) == 0 {
			continue
		}
		parts = append(parts, memoryGroupHeaders[t]+strings.Join(contents, "；"))
	}
	return strings.Join(parts, "\n")
}

// BuildEmotionSection renders the one-line emotion state. Returns "" for a
// nil state so the section is omitted entirely.
func BuildEmotionSection(state *types.EmotionState) string {
	if state == nil {
		return ""
	}
	return fmt.Sprintf("## 当前情感状态\n当前情感: %s, Valence: %.2f, Arousal: %.2f",
		state.Label, state.Valence, state.Arousal)
}

// JoinSections concatenates present sections with blank-line separation.
func JoinSections(sections ...string) string {
	present := make([]string, 0, len(sections))
	for _, s := range sections {
		if s != "" {
			present = append(present, s)
		}
	}
	return strings.Join(present, "\n\n")
}
