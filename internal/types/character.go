package types

// Character is the persona card the prompt assembler renders. The card is
// owned by an external character service; the engine only reads it.
type Character struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Personality  string `json:"personality"`
	Scenario     string `json:"scenario"`
	SystemPrompt string `json:"system_prompt"`
}
