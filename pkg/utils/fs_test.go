package utils

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestGenerateFileTree(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"app.py":                  "",
		"templates/index.html":    "",
		"static/css/style.css":    "",
		"node_modules/x/index.js": "",
		".env":                    "",
		"__pycache__/app.pyc":     "",
	})

	tree, err := GenerateFileTree(root, DefaultFileTreeOptions())
	require.NoError(t, err)
	assert.Equal(t, "app.py\nstatic/\n  css/\n    style.css\ntemplates/\n  index.html\n", tree)
}

func TestGenerateFileTree_GitIgnoreAndDepth(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".gitignore":    "secrets/\n",
		"secrets/key":   "",
		"a/b/c/deep.js": "",
		"a/top.js":      "",
	})

	opts := DefaultFileTreeOptions()
	opts.MaxDepth = 2
	tree, err := GenerateFileTree(root, opts)
	require.NoError(t, err)
	assert.Equal(t, "a/\n  b/\n  top.js\n", tree)
}

func TestWalk_RelativeSlashPaths(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"src/main/App.java": ""})

	var seen []string
	err := Walk(root, DefaultFileTreeOptions(), func(rel string, d fs.DirEntry) error {
		seen = append(seen, rel)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "src/main", "src/main/App.java"}, seen)
}

func TestFindDir(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"deep/nested/resources/x": "",
		"src/main/resources/y":    "",
	})

	rel, ok := FindDir(root, "resources")
	require.True(t, ok)
	assert.Equal(t, filepath.Join("deep", "nested", "resources"), rel)

	_, ok = FindDir(root, "missing")
	assert.False(t, ok)
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"docker-compose.yml": "services: {}\n",
		"app/main.py":        "print('hi')\n",
	})
	require.NoError(t, os.Chmod(filepath.Join(src, "app", "main.py"), 0755))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyDir(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "app", "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(data))

	info, err := os.Stat(filepath.Join(dst, "app", "main.py"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	assert.True(t, FileExists(filepath.Join(dst, "docker-compose.yml")))
	assert.True(t, DirExists(filepath.Join(dst, "app")))
	assert.False(t, DirExists(filepath.Join(dst, "docker-compose.yml")))
}
