package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runExtract(t *testing.T, args ...string) (string, error) {
	t.Helper()
	extractLang = ""
	var out bytes.Buffer
	extractCmd.SetOut(&out)
	extractCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"extract"}, args...))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExtractCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "WebServer.py")
	require.NoError(t, os.WriteFile(path, []byte(shopBackend), 0644))

	out, err := runExtract(t, path)
	require.NoError(t, err)
	assert.Contains(t, out, "@app.route('/login', methods=['POST'])")
	assert.Contains(t, out, "def login():")
	assert.NotContains(t, out, "def health():")
}

func TestExtractCommand_LangOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.txt")
	require.NoError(t, os.WriteFile(path, []byte("app.get('/items', (req, res) => res.json([]));\n"), 0644))

	out, err := runExtract(t, "--lang", "js", path)
	require.NoError(t, err)
	assert.Contains(t, out, "app.get('/items'")
}

func TestExtractCommand_Errors(t *testing.T) {
	empty := filepath.Join(t.TempDir(), "empty.py")
	require.NoError(t, os.WriteFile(empty, []byte("print('hi')\n"), 0644))

	_, err := runExtract(t, empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler blocks found")

	_, err = runExtract(t, filepath.Join(t.TempDir(), "missing.py"))
	require.Error(t, err)

	_, err = runExtract(t, "--lang", "cobol", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported language "cobol"`)
}
