package prompt

import (
	"strings"
	"testing"

	"github.com/lumichat/character-engine/internal/types"
)

func TestBuildCharacterBaseOmitsAbsentFields(t *testing.T) {
	got := BuildCharacterBase(&types.Character{Name: "Aria"})
	if got != "You are Aria." {
		t.Fatalf("expected bare base block, got %q", got)
	}

	full := BuildCharacterBase(&types.Character{
		Name:         "Aria",
		Description:  "A thoughtful companion.",
		Personality:  "warm, curious",
		Scenario:     "a quiet cafe",
		SystemPrompt: "Answer briefly.",
	})
	for _, want := range []string{
		"You are Aria.",
		"A thoughtful companion.",
		"Personality: warm, curious",
		"Scenario: a quiet cafe",
		"Answer briefly.",
	} {
		if !strings.Contains(full, want) {
			t.Fatalf("expected base block to contain %q, got %q", want, full)
		}
	}
}

func TestBuildMemoriesSectionGroupsByTypeInFixedOrder(t *testing.T) {
	section := BuildMemoriesSection([]types.ScoredMemory{
		{Content: "went to the beach", Type: types.MemoryTypeEvent},
		{Content: "loves hiking", Type: types.MemoryTypePreference},
		{Content: "lives in Shanghai", Type: types.MemoryTypeFact},
		{Content: "prefers tea", Type: types.MemoryTypePreference},
	})

	if !strings.HasPrefix(section, "## 关于用户的记忆") {
		t.Fatalf("expected memories header, got %q", section)
	}
	factIdx := strings.Index(section, "【事实】")
	prefIdx := strings.Index(section, "【偏好】")
	eventIdx := strings.Index(section, "【事件】")
	if factIdx < 0 || prefIdx < 0 || eventIdx < 0 {
		t.Fatalf("missing group headers in %q", section)
	}
	if !(factIdx < prefIdx && prefIdx < eventIdx) {
		t.Fatalf("groups out of order in %q", section)
	}
	if strings.Contains(section, "【关系】") {
		t.Fatalf("empty group should be omitted, got %q", section)
	}
	if !strings.Contains(section, "loves hiking；prefers tea") {
		t.Fatalf("expected same-group contents joined, got %q", section)
	}
}

func TestBuildMemoriesSectionEmpty(t *testing.T) {
	if got := BuildMemoriesSection(nil); got != "" {
		t.Fatalf("expected empty section, got %q", got)
	}
}

func TestBuildEmotionSection(t *testing.T) {
	if got := BuildEmotionSection(nil); got != "" {
		t.Fatalf("expected empty section for nil state, got %q", got)
	}

	got := BuildEmotionSection(&types.EmotionState{Valence: 0.381, Arousal: 0.39, Label: "happy"})
	if !strings.Contains(got, "当前情感: happy, Valence: 0.38, Arousal: 0.39") {
		t.Fatalf("unexpected emotion section: %q", got)
	}
}

func TestJoinSectionsSkipsAbsent(t *testing.T) {
	got := JoinSections("a", "", "b", "")
	if got != "a\n\nb" {
		t.Fatalf("expected blank-line joined present sections, got %q", got)
	}
}
