package ai

import (
	"context"
)

// LLMClient is the generative capability: one prompt in, one text reply out.
type LLMClient interface {
	GetChatCompletion(ctx context.Context, promptText string) (string, TokenUsage, error)
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
