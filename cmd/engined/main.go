// Package main runs a console harness around the character intelligence
// engine: each line of input is treated as a user message, the enhanced
// prompt is printed, and the memory/emotion flow runs as it would per turn.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lumichat/character-engine/internal/config"
	"github.com/lumichat/character-engine/internal/debug"
	"github.com/lumichat/character-engine/internal/embedding"
	"github.com/lumichat/character-engine/internal/emotion"
	"github.com/lumichat/character-engine/internal/memory"
	"github.com/lumichat/character-engine/internal/models"
	"github.com/lumichat/character-engine/internal/prompt"
	"github.com/lumichat/character-engine/internal/repository"
	"github.com/lumichat/character-engine/internal/types"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nshutting down...")
		cancel()
	}()

	store, err := repository.NewStore(ctx, cfg.DatabaseURL, cfg.RecencyDecaySeconds)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	var provider embedding.Provider
	if cfg.EmbeddingBaseURL != "" {
		client := embedding.NewClient(cfg.EmbeddingBaseURL, embedding.Options{
			HealthTimeout: cfg.HealthTimeout,
			EmbedTimeout:  cfg.EmbedTimeout,
			BatchTimeout:  cfg.BatchTimeout,
		})
		if !client.Healthy(ctx) {
			slog.Warn("embedding service not healthy at startup, continuing degraded", "base_url", cfg.EmbeddingBaseURL)
		}
		provider = client
	} else {
		slog.Warn("no embedding service configured, running with neutral provider")
		provider = embedding.Neutral{}
	}

	completer, err := models.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ExtractionModel)
	if err != nil {
		log.Fatalf("failed to create completion client: %v", err)
	}

	memories := memory.NewService(store.Memories, provider, cfg.MemoryLimits, cfg.RetrievalLimit)
	emotions := emotion.NewService(store.Emotions, provider, cfg.SmoothingWeight)
	extractor := memory.NewExtractor(completer)
	collector := debug.NewCollector()

	assembler := prompt.NewAssembler(memories, emotions, extractor, collector, prompt.Options{
		ExtractionThreshold: cfg.ExtractionThreshold,
		ExtractionWindow:    cfg.ExtractionWindow,
		PromptMemories:      cfg.PromptMemories,
	})

	character := loadCharacter(ctx, store.Characters)
	userID := envOr("USER_ID", "demo-user")
	chatID := envOr("CHAT_ID", "demo-chat")
	tier := envOr("SUBSCRIPTION_TIER", "free")

	slog.Info("character intelligence engine ready",
		"character", character.Name,
		"extraction_threshold", cfg.ExtractionThreshold,
		"extraction_window", cfg.ExtractionWindow)
	fmt.Println("commands: /debug /memories /emotions /reset /quit")

	// Stdin is read on its own goroutine so the loop can also end on signal
	// cancellation and run the deferred store shutdown.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				return
			}
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var message string
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			message = line
		}
		if message == "" {
			continue
		}
		if strings.HasPrefix(message, "/") {
			if message == "/quit" {
				return
			}
			runCommand(ctx, message, assembler, memories, emotions, store, collector, character.ID, userID, chatID)
			continue
		}

		built, err := assembler.BuildEnhancedPrompt(ctx, prompt.BuildParams{
			Character:   character,
			CharacterID: character.ID,
			UserID:      userID,
			ChatID:      chatID,
			UserMessage: message,
		})
		if err != nil {
			slog.Error("failed to build prompt", "error", err)
			continue
		}
		fmt.Println(built)

		state, err := assembler.UpdateEmotionFromMessage(ctx, emotion.AnalyzeParams{
			CharacterID: character.ID,
			UserID:      userID,
			ChatID:      chatID,
			Text:        message,
		})
		if err != nil {
			slog.Error("failed to update emotion", "error", err)
		} else {
			fmt.Printf("[emotion] %s (v=%.2f a=%.2f)\n", state.Label, state.Valence, state.Arousal)
		}

		turn := types.ChatMessage{Role: "user", Content: message}
		if err := store.ChatLog.Append(ctx, chatID, character.ID, userID, turn); err != nil {
			slog.Error("failed to persist chat message", "error", err)
		}
		window, err := store.ChatLog.Recent(ctx, chatID, cfg.ExtractionWindow)
		if err != nil {
			slog.Error("failed to load chat window", "error", err)
			window = []types.ChatMessage{turn}
		}
		assembler.CheckAndExtractMemories(ctx, chatID, character.ID, userID, tier, window)
	}
}

// runCommand handles the REPL's inspection and maintenance commands.
func runCommand(ctx context.Context, command string, assembler *prompt.Assembler, memories *memory.Service, emotions *emotion.Service, store *repository.Store, collector *debug.Collector, characterID, userID, chatID string) {
	switch command {
	case "/debug":
		state, err := assembler.DebugState(ctx, characterID, userID, chatID)
		if err != nil {
			slog.Error("failed to collect debug state", "error", err)
			return
		}
		printJSON(state)
	case "/memories":
		records, err := memories.List(ctx, characterID, userID, 20)
		if err != nil {
			slog.Error("failed to list memories", "error", err)
			return
		}
		for _, record := range records {
			fmt.Printf("[%s] %s (importance=%.2f, accessed=%d)\n",
				record.Type, record.Content, record.Importance, record.AccessCount)
		}
	case "/emotions":
		samples, err := emotions.History(ctx, characterID, userID, 10)
		if err != nil {
			slog.Error("failed to load emotion history", "error", err)
			return
		}
		for _, sample := range samples {
			fmt.Printf("%s v=%.2f a=%.2f %q\n",
				sample.CreatedAt.Format("15:04:05"), sample.Valence, sample.Arousal, sample.TriggerContent)
		}
	case "/reset":
		if err := memories.Reset(ctx, characterID, userID); err != nil {
			slog.Error("failed to reset memories", "error", err)
		}
		if err := emotions.Reset(ctx, characterID, userID); err != nil {
			slog.Error("failed to reset emotions", "error", err)
		}
		if err := store.ChatLog.DeleteForChat(ctx, chatID); err != nil {
			slog.Error("failed to clear chat history", "error", err)
		}
		collector.Clear(debug.Key(characterID, userID, chatID))
		fmt.Println("session state cleared")
	default:
		fmt.Println("unknown command; available: /debug /memories /emotions /reset /quit")
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		slog.Error("failed to encode output", "error", err)
		return
	}
	fmt.Println(string(data))
}

// loadCharacter resolves the character card: the configured id first, then
// the oldest card in the database, then a built-in demo card.
func loadCharacter(ctx context.Context, characters *repository.CharacterRepo) *types.Character {
	if id := os.Getenv("CHARACTER_ID"); id != "" {
		card, err := characters.GetByID(ctx, id)
		if err != nil {
			log.Fatalf("failed to load character %s: %v", id, err)
		}
		if card != nil {
			return card
		}
		slog.Warn("configured character not found, falling back", "character_id", id)
	}

	card, err := characters.GetDefault(ctx)
	if err != nil {
		log.Fatalf("failed to load default character: %v", err)
	}
	if card != nil {
		return card
	}

	slog.Warn("no character cards in database, using built-in demo card")
	return &types.Character{
		ID:          "demo-character",
		Name:        envOr("CHARACTER_NAME", "Aria"),
		Description: os.Getenv("CHARACTER_DESCRIPTION"),
	}
}

func envOr(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
