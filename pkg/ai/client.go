package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/logger"
)

const (
	ProviderGemini = "gemini"
	ProviderAzure  = "azure"
)

// ClientOptions carries the credentials of every supported provider; only
// the ones of Provider are read.
type ClientOptions struct {
	Provider string
	Model    string

	GeminiAPIKey string

	AzureEndpoint     string
	AzureAPIKey       string
	AzureDeploymentID string
}

// NewClient builds the client of the configured provider.
func NewClient(ctx context.Context, opts ClientOptions) (LLMClient, error) {
	switch opts.Provider {
	case ProviderGemini, "":
		return NewGeminiClient(ctx, opts.GeminiAPIKey, opts.Model)
	case ProviderAzure:
		deployment := opts.AzureDeploymentID
		if deployment == "" {
			deployment = opts.Model
		}
		return NewAzOpenAIClient(opts.AzureEndpoint, opts.AzureAPIKey, deployment)
	default:
		return nil, errors.Newf(errors.CodeConfigurationInvalid, "ai", "unknown LLM provider %q", opts.Provider)
	}
}

// TrackingClient adds up the token usage of every call made through it.
// Safe for concurrent use.
type TrackingClient struct {
	next LLMClient

	mu    sync.Mutex
	usage TokenUsage
	calls int
}

var _ LLMClient = &TrackingClient{}

func NewTrackingClient(next LLMClient) *TrackingClient {
	return &TrackingClient{next: next}
}

func (t *TrackingClient) GetChatCompletion(ctx context.Context, promptText string) (string, TokenUsage, error) {
	content, usage, err := t.next.GetChatCompletion(ctx, promptText)

	t.mu.Lock()
	t.usage.Add(usage)
	t.calls++
	t.mu.Unlock()

	return content, usage, err
}

func (t *TrackingClient) Usage() TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

func (t *TrackingClient) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// TestConnection sends a short prompt and logs the reply.
func TestConnection(ctx context.Context, client LLMClient) error {
	if client == nil {
		return errors.New(errors.CodeConfigurationInvalid, "ai", "no LLM client configured", nil)
	}
	content, tokenUsage, err := client.GetChatCompletion(ctx, "Hello! Tell me this is working in one short sentence.")
	if err != nil {
		return errors.New(errors.CodeNetworkError, "ai", fmt.Sprintf("failed to get chat completion: %v", err), err)
	}

	logger.Infof("LLM connection test (%v)", client)
	logger.Infof("Response: %s", content)
	logger.Infof("Total tokens used: %d, Prompt tokens: %d, Completion tokens: %d", tokenUsage.TotalTokens, tokenUsage.PromptTokens, tokenUsage.CompletionTokens)
	return nil
}
