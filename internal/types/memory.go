package types

import (
	"fmt"
	"time"
)

// MemoryType is the closed set of memory categories. Each category carries
// its own extraction importance weight.
type MemoryType string

const (
	MemoryTypeFact         MemoryType = "fact"
	MemoryTypePreference   MemoryType = "preference"
	MemoryTypeRelationship MemoryType = "relationship"
	MemoryTypeEvent        MemoryType = "event"
)

// MemoryTypes lists the categories in the fixed order used for prompt
// grouping and extraction mapping.
var MemoryTypes = []MemoryType{
	MemoryTypeFact,
	MemoryTypePreference,
	MemoryTypeRelationship,
	MemoryTypeEvent,
}

// ImportanceWeight is the seed importance assigned to extracted memories of
// this category.
func (t MemoryType) ImportanceWeight() float64 {
	switch t {
	case MemoryTypeFact:
		return 0.7
	case MemoryTypePreference:
		return 0.6
	case MemoryTypeRelationship:
		return 0.8
	case MemoryTypeEvent:
		return 0.5
	default:
		return 0.5
	}
}

// Valid reports whether t is one of the four known categories.
func (t MemoryType) Valid() bool {
	switch t {
	case MemoryTypeFact, MemoryTypePreference, MemoryTypeRelationship, MemoryTypeEvent:
		return true
	}
	return false
}

// ParseMemoryType converts a raw string into a MemoryType.
func ParseMemoryType(s string) (MemoryType, error) {
	t := MemoryType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown memory type: %q", s)
	}
	return t, nil
}

// MemoryFact is a memory candidate before persistence.
type MemoryFact struct {
	Type       MemoryType `json:"type"`
	Content    string     `json:"content"`
	Importance float64    `json:"importance"`
}

// Memory is a stored long-term memory record scoped to a character×user pair.
type Memory struct {
	ID           string     `json:"id"`
	CharacterID  string     `json:"character_id"`
	UserID       string     `json:"user_id"`
	Type         MemoryType `json:"type"`
	Content      string     `json:"content"`
	Importance   float64    `json:"importance"`
	AccessCount  int        `json:"access_count"`
	SourceChatID string     `json:"source_chat_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastAccessed time.Time  `json:"last_accessed"`
}

// ScoredMemory is a retrieval result with its hybrid score.
type ScoredMemory struct {
	ID      string     `json:"id"`
	Content string     `json:"content"`
	Type    MemoryType `json:"type"`
	Score   float64    `json:"score"`
}

// ChatMessage is one turn of the conversation window handed to extraction.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
