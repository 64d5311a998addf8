package pipeline

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/ai"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/metrics"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/prompts"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/verifier"
)

const healthTimeout = time.Second

type MockLLMClient struct {
	mock.Mock
	prompts []string
}

func (m *MockLLMClient) GetChatCompletion(ctx context.Context, promptText string) (string, ai.TokenUsage, error) {
	m.prompts = append(m.prompts, promptText)
	args := m.Called(ctx, promptText)
	return args.String(0), args.Get(1).(ai.TokenUsage), args.Error(2)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, dir string, timeout time.Duration) verifier.Outcome {
	args := m.Called(ctx, dir, timeout)
	return args.Get(0).(verifier.Outcome)
}

func page(body string) string {
	return "Here you go:\ntemplates/index.html\n```html\n" + body + "\n```\n"
}

var (
	healthy    = verifier.Outcome{Status: verifier.StatusHealthy}
	timedOut   = verifier.Outcome{Status: verifier.StatusHealthCheckFailed, Reason: "Health check failed after 1s", Err: errors.New(errors.CodeHealthTimeout, "verifier", "Health check failed after 1s", nil)}
	noCompose  = verifier.Outcome{Status: verifier.StatusConfigMissing, Reason: "no docker-compose.yml found", Err: errors.New(errors.CodeConfigMissing, "compose", "no docker-compose.yml found", nil)}
	oneUsage   = ai.TokenUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10}
	emptyUsage = ai.TokenUsage{}
)

func newVariant(t *testing.T) Variant {
	t.Helper()
	dir := t.TempDir()
	sandbox := filepath.Join(dir, "resources")
	require.NoError(t, os.MkdirAll(sandbox, 0755))
	return Variant{
		Challenge:   "shop-web",
		Name:        "shop-web-1",
		Dir:         dir,
		SandboxRoot: sandbox,
		Payload:     "@app.route('/')\ndef index():\n    return render_template('index.html')\n",
	}
}

func newTestRunner(llm ai.LLMClient, v Verifier, collector *metrics.Collector, maxRetries int) *Runner {
	return NewRunner(zerolog.Nop(), llm, v, prompts.NewBuilder(nil, nil, 1), collector, RunnerOptions{
		MaxRetries:    maxRetries,
		HealthTimeout: healthTimeout,
	})
}

func TestRun_SucceedsOnThirdCycle(t *testing.T) {
	variant := newVariant(t)
	llm := &MockLLMClient{}
	llm.On("GetChatCompletion", mock.Anything, mock.Anything).Return(page("<p>v1</p>"), oneUsage, nil).Once()
	llm.On("GetChatCompletion", mock.Anything, mock.Anything).Return(page("<p>v2</p>"), oneUsage, nil).Once()
	llm.On("GetChatCompletion", mock.Anything, mock.Anything).Return(page("<p>v3</p>"), oneUsage, nil).Once()

	v := &MockVerifier{}
	v.On("Verify", mock.Anything, variant.Dir, healthTimeout).Return(timedOut).Twice()
	v.On("Verify", mock.Anything, variant.Dir, healthTimeout).Return(healthy).Once()

	collector := metrics.NewCollector(zerolog.Nop(), "")
	result := newTestRunner(llm, v, collector, 2).Run(context.Background(), variant)

	assert.Equal(t, StatusCrafted, result.Status)
	assert.Equal(t, 3, result.Cycles)
	assert.Equal(t, 2, result.AttemptsUsed)
	assert.Empty(t, result.Reason)
	assert.Equal(t, 30, result.TokenUsage.TotalTokens)
	llm.AssertNumberOfCalls(t, "GetChatCompletion", 3)
	v.AssertNumberOfCalls(t, "Verify", 3)

	data, err := os.ReadFile(filepath.Join(variant.SandboxRoot, "templates", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>v3</p>\n", string(data))

	require.Len(t, llm.prompts, 3)
	assert.Contains(t, llm.prompts[0], variant.Payload[:20])
	assert.Contains(t, llm.prompts[2], "<p>v2</p>", "repair uses the most recent reply")
	assert.NotContains(t, llm.prompts[2], "<p>v1</p>")
	assert.Contains(t, llm.prompts[2], "Health check failed after 1s")
	assert.Contains(t, llm.prompts[2], "index.html", "repair prompt lists the sandbox")

	assert.Equal(t, 2.0, counterValue(t, collector, "forge_repair_attempts_total"))
}

func TestRun_NoRetriesReportsFirstOutcome(t *testing.T) {
	variant := newVariant(t)
	llm := &MockLLMClient{}
	llm.On("GetChatCompletion", mock.Anything, mock.Anything).Return(page("<p>v1</p>"), oneUsage, nil)

	v := &MockVerifier{}
	v.On("Verify", mock.Anything, variant.Dir, healthTimeout).Return(timedOut)

	result := newTestRunner(llm, v, nil, 0).Run(context.Background(), variant)

	assert.Equal(t, StatusUnresolved, result.Status)
	assert.Equal(t, "Health check failed after 1s", result.Reason)
	assert.Equal(t, 1, result.Cycles)
	assert.Zero(t, result.AttemptsUsed)
	llm.AssertNumberOfCalls(t, "GetChatCompletion", 1)
	v.AssertNumberOfCalls(t, "Verify", 1)
}

func TestRun_ExhaustsRetries(t *testing.T) {
	variant := newVariant(t)
	llm := &MockLLMClient{}
	llm.On("GetChatCompletion", mock.Anything, mock.Anything).Return(page("<p>x</p>"), oneUsage, nil)

	v := &MockVerifier{}
	v.On("Verify", mock.Anything, variant.Dir, healthTimeout).Return(timedOut)

	result := newTestRunner(llm, v, nil, 2).Run(context.Background(), variant)

	assert.Equal(t, StatusUnresolved, result.Status)
	assert.Equal(t, 3, result.Cycles)
	assert.Equal(t, 2, result.AttemptsUsed)
	llm.AssertNumberOfCalls(t, "GetChatCompletion", 3)
}

func TestRun_ConfigMissingIsNotRetried(t *testing.T) {
	variant := newVariant(t)
	llm := &MockLLMClient{}
	llm.On("GetChatCompletion", mock.Anything, mock.Anything).Return(page("<p>x</p>"), oneUsage, nil)

	v := &MockVerifier{}
	v.On("Verify", mock.Anything, variant.Dir, healthTimeout).Return(noCompose)

	result := newTestRunner(llm, v, nil, 3).Run(context.Background(), variant)

	assert.Equal(t, StatusSkipped, result.Status)
	assert.Contains(t, result.Reason, "no docker-compose.yml found")
	assert.Zero(t, result.AttemptsUsed)
	llm.AssertNumberOfCalls(t, "GetChatCompletion", 1)
}

func TestRun_FormatErrorIsRepaired(t *testing.T) {
	variant := newVariant(t)
	llm := &MockLLMClient{}
	llm.On("GetChatCompletion", mock.Anything, mock.Anything).Return("I cannot help with that.", oneUsage, nil).Once()
	llm.On("GetChatCompletion", mock.Anything, mock.Anything).Return(page("<p>fixed</p>"), oneUsage, nil).Once()

	v := &MockVerifier{}
	v.On("Verify", mock.Anything, variant.Dir, healthTimeout).Return(healthy)

	result := newTestRunner(llm, v, nil, 1).Run(context.Background(), variant)

	assert.Equal(t, StatusCrafted, result.Status)
	assert.Equal(t, 2, result.Cycles)
	assert.Equal(t, 1, result.AttemptsUsed)
	v.AssertNumberOfCalls(t, "Verify", 1)
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[1], "no valid file sections found")
}

func TestRun_SandboxViolationWritesNothing(t *testing.T) {
	variant := newVariant(t)
	llm := &MockLLMClient{}
	llm.On("GetChatCompletion", mock.Anything, mock.Anything).
		Return("templates/ok.html\n```html\n<p/>\n```\n../../etc/passwd\n```\nroot\n```\n", oneUsage, nil)

	v := &MockVerifier{}
	result := newTestRunner(llm, v, nil, 0).Run(context.Background(), variant)

	assert.Equal(t, StatusUnresolved, result.Status)
	assert.Contains(t, result.Reason, "path traversal attempt detected")
	v.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)

	entries, err := os.ReadDir(variant.SandboxRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_GenerationError(t *testing.T) {
	variant := newVariant(t)
	llm := &MockLLMClient{}
	llm.On("GetChatCompletion", mock.Anything, mock.Anything).Return("", emptyUsage, stderrors.New("quota exceeded"))

	v := &MockVerifier{}
	result := newTestRunner(llm, v, nil, 3).Run(context.Background(), variant)

	assert.Equal(t, StatusUnresolved, result.Status)
	assert.Contains(t, result.Reason, "quota exceeded")
	assert.Zero(t, result.Cycles)
	v.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_RepairGenerationError(t *testing.T) {
	variant := newVariant(t)
	llm := &MockLLMClient{}
	llm.On("GetChatCompletion", mock.Anything, mock.Anything).Return(page("<p>v1</p>"), oneUsage, nil).Once()
	llm.On("GetChatCompletion", mock.Anything, mock.Anything).Return("", emptyUsage, stderrors.New("network down")).Once()

	v := &MockVerifier{}
	v.On("Verify", mock.Anything, variant.Dir, healthTimeout).Return(timedOut)

	result := newTestRunner(llm, v, nil, 3).Run(context.Background(), variant)

	assert.Equal(t, StatusUnresolved, result.Status)
	assert.Contains(t, result.Reason, "repair generation failed")
	assert.Equal(t, 1, result.Cycles)
	assert.Equal(t, 1, result.AttemptsUsed)
}

func TestRun_WritesSnapshots(t *testing.T) {
	variant := newVariant(t)
	llm := &MockLLMClient{}
	llm.On("GetChatCompletion", mock.Anything, mock.Anything).Return(page("<p>v1</p>"), oneUsage, nil)

	v := &MockVerifier{}
	v.On("Verify", mock.Anything, variant.Dir, healthTimeout).Return(timedOut)

	snapshots := t.TempDir()
	runner := NewRunner(zerolog.Nop(), llm, v, nil, nil, RunnerOptions{HealthTimeout: healthTimeout, SnapshotDir: snapshots})
	result := runner.Run(context.Background(), variant)
	require.Equal(t, StatusUnresolved, result.Status)

	snap := filepath.Join(snapshots, "shop-web", "shop-web-1", "cycle_1")
	assert.Equal(t, snap, SnapshotPath(snapshots, variant, 1))
	data, err := os.ReadFile(filepath.Join(snap, "reply.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<p>v1</p>")
	assert.FileExists(t, filepath.Join(snap, "metadata.json"))

	entries, err := os.ReadDir(variant.Dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, SnapshotDirectory, e.Name())
	}
}

func TestRetryState_Exhausted(t *testing.T) {
	assert.True(t, (&RetryState{MaxRetries: 0}).Exhausted())
	assert.False(t, (&RetryState{AttemptsUsed: 1, MaxRetries: 2}).Exhausted())
	assert.True(t, (&RetryState{AttemptsUsed: 2, MaxRetries: 2}).Exhausted())
}

func counterValue(t *testing.T, c *metrics.Collector, name string) float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		total := 0.0
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	return 0
}
