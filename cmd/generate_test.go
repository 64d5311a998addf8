package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/ai"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/challenge"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/runner"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/config"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/deploy"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/pipeline"
)

type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) GetChatCompletion(ctx context.Context, promptText string) (string, ai.TokenUsage, error) {
	args := m.Called(ctx, promptText)
	return args.String(0), args.Get(1).(ai.TokenUsage), args.Error(2)
}

const shopBackend = `from flask import Flask, request

app = Flask(__name__)

@app.route('/login', methods=['POST'])
def login():
    return {'ok': request.form['user'] == 'admin'}

@app.route('/health')
def health():
    return 'ok'
`

func writeChallenge(t *testing.T, root, name string, server *httptest.Server) {
	t.Helper()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "app", "templates"), 0755))
	compose := fmt.Sprintf("services:\n  web:\n    build: .\n    ports:\n      - \"%s:5000\"\n", u.Port())
	files := map[string]string{
		"docker-compose.yml":       compose,
		"app/WebServer.py":         shopBackend,
		"app/templates/index.html": "<h1>old</h1>\n",
	}
	for rel, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.FromSlash(rel)), []byte(content), 0644))
	}
}

func healthServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunGenerate(t *testing.T) {
	server := healthServer(t)
	root := t.TempDir()
	output := t.TempDir()
	reportDir := t.TempDir()
	metricsFile := filepath.Join(t.TempDir(), "forge.prom")
	writeChallenge(t, root, "shop-web", server)
	require.NoError(t, os.Mkdir(filepath.Join(root, "notes"), 0755))

	llm := new(MockLLMClient)
	llm.On("GetChatCompletion", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "def login()") && !strings.Contains(p, "def health()")
	})).Return("app/templates/index.html\n```html\n<h1>new</h1>\n```\n", ai.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil)

	fake := &runner.FakeCommandRunner{}
	cfg := &config.Config{Provider: ai.ProviderGemini, HealthTimeout: 5 * time.Second}
	opts := generateOptions{
		directory:   root,
		output:      output,
		variants:    2,
		parallel:    1,
		metricsFile: metricsFile,
		reportDir:   reportDir,
	}

	var out bytes.Buffer
	err := runGenerate(context.Background(), &out, opts, cfg, llm, deploy.NewScriptDeployer(fake, ""))
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		page := filepath.Join(output, "shop-web-versions", fmt.Sprintf("shop-web-%d", i), "app", "templates", "index.html")
		data, err := os.ReadFile(page)
		require.NoError(t, err)
		assert.Equal(t, "<h1>new</h1>\n", string(data))
	}
	original, err := os.ReadFile(filepath.Join(root, "shop-web", "app", "templates", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>old</h1>\n", string(original))

	llm.AssertNumberOfCalls(t, "GetChatCompletion", 2)
	// baseline plus one verification per variant
	assert.Equal(t, 3, fake.CallCount("docker compose up"))
	assert.Equal(t, 3, fake.CallCount("docker compose down"))

	summary := out.String()
	assert.Contains(t, summary, "shop-web-1")
	assert.Contains(t, summary, "shop-web-2")
	assert.Contains(t, summary, "2 crafted")
	assert.Contains(t, summary, "tokens: 30")

	data, err := os.ReadFile(filepath.Join(reportDir, pipeline.RunReportFileName))
	require.NoError(t, err)
	var report pipeline.RunReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Counts[pipeline.StatusCrafted])
	assert.Equal(t, 30, report.TokenUsage.TotalTokens)

	metricsText, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), `forge_variants_total{status="crafted"} 2`)
}

func TestRunGenerate_AlreadyProcessed(t *testing.T) {
	server := healthServer(t)
	root := t.TempDir()
	writeChallenge(t, root, "shop-web", server)
	require.NoError(t, os.Mkdir(filepath.Join(root, "shop-web-versions"), 0755))

	llm := new(MockLLMClient)
	fake := &runner.FakeCommandRunner{}
	cfg := &config.Config{Provider: ai.ProviderGemini, HealthTimeout: time.Second}

	var out bytes.Buffer
	err := runGenerate(context.Background(), &out, generateOptions{directory: root, variants: 1}, cfg, llm, deploy.NewScriptDeployer(fake, ""))
	require.NoError(t, err)

	llm.AssertNotCalled(t, "GetChatCompletion", mock.Anything, mock.Anything)
	assert.Empty(t, fake.Calls)
	assert.Contains(t, out.String(), string(challenge.StatusDone))
}

func TestRunGenerate_NoChallenges(t *testing.T) {
	llm := new(MockLLMClient)
	var out bytes.Buffer
	err := runGenerate(context.Background(), &out, generateOptions{directory: t.TempDir(), variants: 1}, &config.Config{}, llm, deploy.NewScriptDeployer(&runner.FakeCommandRunner{}, ""))
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestRunGenerate_InvalidVariants(t *testing.T) {
	server := healthServer(t)
	root := t.TempDir()
	writeChallenge(t, root, "shop-web", server)

	err := runGenerate(context.Background(), &bytes.Buffer{}, generateOptions{directory: root, variants: 0}, &config.Config{}, new(MockLLMClient), deploy.NewScriptDeployer(&runner.FakeCommandRunner{}, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "number of versions should be greater than zero")
}

func TestChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x", Run: func(*cobra.Command, []string) {}}
	cmd.Flags().String("model", "", "")
	cmd.Flags().String("styles", "", "")
	require.NoError(t, cmd.Flags().Set("model", "gemini-2.5-pro"))

	got := changedFlags(cmd, map[string]string{
		"model":   config.KeyModel,
		"styles":  config.KeyStylesFile,
		"missing": config.KeyThemesFile,
	})
	assert.Equal(t, map[string]string{config.KeyModel: "gemini-2.5-pro"}, got)
}

func TestSnapshotDir(t *testing.T) {
	assert.Empty(t, snapshotDir(generateOptions{}, "/out"))
	assert.Equal(t, filepath.Join("/out", pipeline.SnapshotDirectory), snapshotDir(generateOptions{snapshot: true}, "/out"))
	assert.Equal(t, filepath.Join("/reports", pipeline.SnapshotDirectory), snapshotDir(generateOptions{snapshot: true, reportDir: "/reports"}, "/out"))
}
