package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/ai"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/metrics"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/prompts"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/reply"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/utils"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/verifier"
)

// Verifier is the part of *verifier.Verifier the loop needs.
type Verifier interface {
	Verify(ctx context.Context, dir string, timeout time.Duration) verifier.Outcome
}

// RunnerOptions defines configuration options for a repair loop
type RunnerOptions struct {
	MaxRetries    int
	HealthTimeout time.Duration
	// SnapshotDir enables per-cycle snapshots when set.
	SnapshotDir string
}

// Runner drives generate → materialize → verify → repair for one variant at
// a time. It holds no per-variant state, so one Runner may serve several
// goroutines.
type Runner struct {
	logger   zerolog.Logger
	llm      ai.LLMClient
	verifier Verifier
	prompts  *prompts.Builder
	metrics  *metrics.Collector
	opts     RunnerOptions
}

func NewRunner(logger zerolog.Logger, llm ai.LLMClient, v Verifier, builder *prompts.Builder, collector *metrics.Collector, opts RunnerOptions) *Runner {
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = verifier.DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if builder == nil {
		builder = prompts.NewBuilder(nil, nil, time.Now().UnixNano())
	}
	return &Runner{
		logger:   logger.With().Str("component", "repair_loop").Logger(),
		llm:      llm,
		verifier: v,
		prompts:  builder,
		metrics:  collector,
		opts:     opts,
	}
}

// Run crafts one variant. Each repair prompt is built from the most recent
// reply and failure, and every reply is written over the same sandbox.
func (r *Runner) Run(ctx context.Context, v Variant) Result {
	start := time.Now()
	log := r.logger.With().Str("challenge", v.Challenge).Str("variant", v.Name).Logger()

	state := &RetryState{MaxRetries: r.opts.MaxRetries}
	result := Result{Variant: v}

	prompt, style, theme := r.prompts.Generate(v.Payload)
	result.Style, result.Theme = style, theme
	log.Info().Str("style", style).Str("theme", theme).Msg("Generating front end")

	content, err := r.complete(ctx, prompt, &result)
	if err != nil {
		return r.finish(log, start, state, result, StatusUnresolved, fmt.Sprintf("generation failed: %v", err))
	}
	state.LastReply = content

	for {
		result.Cycles++
		outcome, failure, retryable := r.cycle(ctx, log, v, state.LastReply)
		state.LastOutcome = outcome
		if failure == "" {
			return r.finish(log, start, state, result, StatusCrafted, "")
		}
		state.LastFailure = failure
		r.snapshot(log, v, state, result.Cycles)

		if !retryable {
			return r.finish(log, start, state, result, StatusSkipped, failure)
		}
		if state.Exhausted() {
			return r.finish(log, start, state, result, StatusUnresolved, failure)
		}
		if ctx.Err() != nil {
			return r.finish(log, start, state, result, StatusUnresolved, fmt.Sprintf("%s (cancelled: %v)", failure, ctx.Err()))
		}

		state.AttemptsUsed++
		r.metrics.RecordRepairAttempt()
		log.Warn().
			Int("attempt", state.AttemptsUsed).
			Int("max_retries", state.MaxRetries).
			Str("failure", failure).
			Msg("Variant failed, asking the model for a fix")

		tree, err := utils.GenerateFileTree(v.SandboxRoot, utils.DefaultFileTreeOptions())
		if err != nil {
			log.Debug().Err(err).Msg("Could not list sandbox")
		}
		next, err := r.complete(ctx, prompts.Repair(state.LastReply, state.LastFailure, tree), &result)
		if err != nil {
			return r.finish(log, start, state, result, StatusUnresolved, fmt.Sprintf("repair generation failed: %v", err))
		}
		state.LastReply = next
	}
}

// cycle materializes content and verifies the variant. failure is empty on
// success.
func (r *Runner) cycle(ctx context.Context, log zerolog.Logger, v Variant, content string) (verifier.Outcome, string, bool) {
	written, err := reply.Materialize(content, v.SandboxRoot)
	if err != nil {
		log.Warn().Err(err).Msg("Reply rejected")
		return verifier.Outcome{}, errors.MessageOf(err), errors.IsRetryable(err)
	}
	log.Debug().Int("files", written).Str("sandbox", v.SandboxRoot).Msg("Reply materialized")

	outcome := r.verifier.Verify(ctx, v.Dir, r.opts.HealthTimeout)
	r.metrics.ObserveVerification(string(outcome.Status), outcome.Duration)
	log.Info().
		Str("status", string(outcome.Status)).
		Dur("duration", outcome.Duration).
		Msg("Verification finished")

	if outcome.Healthy() {
		return outcome, "", false
	}
	failure := outcome.Reason
	if failure == "" {
		failure = string(outcome.Status)
	}
	return outcome, failure, outcome.Retryable()
}

func (r *Runner) complete(ctx context.Context, prompt string, result *Result) (string, error) {
	content, usage, err := r.llm.GetChatCompletion(ctx, prompt)
	result.TokenUsage.Add(usage)
	r.metrics.RecordTokens(usage.PromptTokens, usage.CompletionTokens)
	return content, err
}

func (r *Runner) snapshot(log zerolog.Logger, v Variant, state *RetryState, cycle int) {
	if r.opts.SnapshotDir == "" {
		return
	}
	if err := WriteAttemptSnapshot(r.opts.SnapshotDir, v, cycle, state); err != nil {
		log.Warn().Err(err).Msg("Could not write attempt snapshot")
	}
}

func (r *Runner) finish(log zerolog.Logger, start time.Time, state *RetryState, result Result, status Status, reason string) Result {
	result.Status = status
	result.Reason = reason
	result.AttemptsUsed = state.AttemptsUsed
	result.Duration = time.Since(start)
	r.metrics.RecordVariant(string(status))

	event := log.Info()
	if status != StatusCrafted {
		event = log.Warn().Str("reason", reason)
	}
	event.
		Str("status", string(status)).
		Int("cycles", result.Cycles).
		Int("attempts_used", result.AttemptsUsed).
		Int("total_tokens", result.TokenUsage.TotalTokens).
		Msg("Variant finished")
	return result
}
