package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
)

type AzOpenAIClient struct {
	client       *azopenai.Client
	deploymentID string

	mu         sync.Mutex
	tokenUsage TokenUsage
}

var _ LLMClient = &AzOpenAIClient{}

// NewAzOpenAIClient creates and returns a new AzOpenAIClient using the provided credentials
// The deploymentID is stored and used for all subsequent API calls
func NewAzOpenAIClient(endpoint, apiKey, deploymentID string) (*AzOpenAIClient, error) {
	if endpoint == "" || apiKey == "" || deploymentID == "" {
		return nil, errors.New(errors.CodeConfigurationInvalid, "ai", "Azure OpenAI needs an endpoint, a key and a deployment ID", nil)
	}
	keyCredential := azcore.NewKeyCredential(apiKey)
	client, err := azopenai.NewClientWithKeyCredential(endpoint, keyCredential, nil)
	if err != nil {
		return nil, errors.New(errors.CodeConfigurationInvalid, "ai", "error creating Azure OpenAI client", err)
	}
	return &AzOpenAIClient{
		client:       client,
		deploymentID: deploymentID,
	}, nil
}

// GetChatCompletion sends a prompt to the LLM and returns the completion text.
func (c *AzOpenAIClient) GetChatCompletion(ctx context.Context, promptText string) (string, TokenUsage, error) {
	resp, err := c.client.GetChatCompletions(
		ctx,
		azopenai.ChatCompletionsOptions{
			DeploymentName: to.Ptr(c.deploymentID),
			Messages: []azopenai.ChatRequestMessageClassification{
				&azopenai.ChatRequestUserMessage{
					Content: azopenai.NewChatRequestUserMessageContent(promptText),
				},
			},
		},
		nil,
	)
	if err != nil {
		return "", TokenUsage{}, errors.New(errors.CodeNetworkError, "ai", "chat completion request failed", err)
	}

	usage := c.IncrementTokenUsage(resp.Usage)

	if len(resp.Choices) > 0 && resp.Choices[0].Message != nil && resp.Choices[0].Message.Content != nil {
		return *resp.Choices[0].Message.Content, usage, nil
	}

	return "", usage, errors.New(errors.CodeGenerationFailed, "ai", "no completion received from LLM", nil)
}

// IncrementTokenUsage adds one response's usage to the running total and
// returns that response's share.
func (c *AzOpenAIClient) IncrementTokenUsage(usage *azopenai.CompletionsUsage) TokenUsage {
	if usage == nil {
		return TokenUsage{}
	}
	delta := TokenUsage{
		PromptTokens:     int32Value(usage.PromptTokens),
		CompletionTokens: int32Value(usage.CompletionTokens),
		TotalTokens:      int32Value(usage.TotalTokens),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenUsage.Add(delta)
	return delta
}

func (c *AzOpenAIClient) GetTokenUsage() TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenUsage
}

func (c *AzOpenAIClient) ResetTokenUsage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenUsage = TokenUsage{}
}

func (c *AzOpenAIClient) String() string {
	return fmt.Sprintf("azure-openai(%s)", c.deploymentID)
}

func int32Value(p *int32) int {
	if p == nil {
		return 0
	}
	return int(*p)
}
