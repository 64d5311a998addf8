package pipeline

import (
	"time"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/ai"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/verifier"
)

// Variant is one copy of a challenge whose front end gets generated.
type Variant struct {
	Challenge string `json:"challenge"`
	Name      string `json:"name"`
	// Dir is where the deployment runs.
	Dir string `json:"dir"`
	// SandboxRoot is the only directory replies may write into.
	SandboxRoot string `json:"sandbox_root"`
	// Payload is the extracted backend handlers sent to the model.
	Payload string `json:"-"`
}

// Status is the final state of a variant.
type Status string

const (
	StatusCrafted    Status = "crafted"
	StatusUnresolved Status = "unresolved"
	StatusSkipped    Status = "skipped"
)

// RetryState is threaded through the repair loop of one variant.
type RetryState struct {
	AttemptsUsed int
	MaxRetries   int
	LastReply    string
	LastOutcome  verifier.Outcome
	LastFailure  string
}

// Exhausted reports whether no repair attempt is left.
func (s *RetryState) Exhausted() bool {
	return s.AttemptsUsed >= s.MaxRetries
}

// Result is reported once per variant.
type Result struct {
	Variant      Variant       `json:"variant"`
	Status       Status        `json:"status"`
	Reason       string        `json:"reason,omitempty"`
	Cycles       int           `json:"cycles"`
	AttemptsUsed int           `json:"attempts_used"`
	Style        string        `json:"style,omitempty"`
	Theme        string        `json:"theme,omitempty"`
	TokenUsage   ai.TokenUsage `json:"token_usage"`
	Duration     time.Duration `json:"duration_ns"`
}
