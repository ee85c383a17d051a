package types

import "time"

// SentimentResult is the raw 2D affect output of the sentiment provider.
// Valence is in [-1,1], arousal in [0,1].
type SentimentResult struct {
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
}

// EmotionSample is one append-only row of the emotion log. The most recent
// sample for a (character, user, chat-or-none) key is the current emotion.
type EmotionSample struct {
	ID               string    `json:"id"`
	CharacterID      string    `json:"character_id"`
	UserID           string    `json:"user_id"`
	ChatID           string    `json:"chat_id,omitempty"`
	Valence          float64   `json:"valence"`
	Arousal          float64   `json:"arousal"`
	TriggerMessageID string    `json:"trigger_message_id,omitempty"`
	TriggerContent   string    `json:"trigger_content,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// EmotionState is the labeled current emotion returned to callers.
type EmotionState struct {
	Valence     float64 `json:"valence"`
	Arousal     float64 `json:"arousal"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
}
