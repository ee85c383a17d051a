// Package models adapts LLM completion providers behind a small interface.
package models

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// OpenAIClient wraps an OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	client openai.Client
	model  string
	schema map[string]any
}

// NewOpenAIClient creates a completion client. baseURL may be empty for the
// default endpoint. The extraction response schema is generated once.
func NewOpenAIClient(apiKey, baseURL, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
		schema: GenerateSchema[extractionSchema](),
	}, nil
}

// extractionSchema mirrors the JSON object the extraction prompt requests.
type extractionSchema struct {
	Facts         []string `json:"facts"`
	Preferences   []string `json:"preferences"`
	Relationships []string `json:"relationships"`
	Events        []string `json:"events"`
}

// Complete sends one system+user exchange and returns the raw text content.
// The response format is pinned to the extraction schema; callers still
// parse defensively since not every backend honors structured outputs.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "memory_extraction",
					Schema: c.schema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call completion API: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
