package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient talks to the Gemini API through the google genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

var _ LLMClient = &GeminiClient{}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New(errors.CodeConfigurationInvalid, "ai", "Gemini API key is required", nil)
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.New(errors.CodeConfigurationInvalid, "ai", "failed to create GenAI client", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

func (c *GeminiClient) GetChatCompletion(ctx context.Context, promptText string) (string, TokenUsage, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(promptText), nil)
	if err != nil {
		return "", TokenUsage{}, errors.New(errors.CodeNetworkError, "ai", fmt.Sprintf("%s request failed", c.model), err)
	}

	usage := geminiUsage(resp.UsageMetadata)
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", usage, errors.New(errors.CodeGenerationFailed, "ai", "no completion received from LLM", nil)
	}
	return text, usage, nil
}

func (c *GeminiClient) String() string {
	return fmt.Sprintf("gemini(%s)", c.model)
}

func geminiUsage(meta *genai.GenerateContentResponseUsageMetadata) TokenUsage {
	if meta == nil {
		return TokenUsage{}
	}
	return TokenUsage{
		PromptTokens:     int(meta.PromptTokenCount),
		CompletionTokens: int(meta.CandidatesTokenCount),
		TotalTokens:      int(meta.TotalTokenCount),
	}
}
