// Package utils provides the file system helpers shared by challenge
// processing and prompt building: ignore-aware walking, file trees and
// directory copies.
package utils

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// FileExists checks if a file exists at the given path
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DirExists reports whether path is an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// DefaultIgnorePatterns are skipped when looking for backend sources and
// when listing a sandbox for the model.
var DefaultIgnorePatterns = []string{
	"node_modules/",
	"vendor/",
	"target/",
	"build/",
	"out/",
	"dist/",
	"bin/",
	"obj/",
	".git/",
	".DS_Store",
	".idea/",
	".vscode/",
	"*.class",
	"*.jar",
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.ico",
	"*.woff",
	"*.woff2",
	"*.ttf",
	"__pycache__/",
	"*.pyc",
	".pytest_cache/",
	"coverage/",
}

// FileTreeOptions configures how file trees are generated, including
// depth limits, ignore patterns, and visibility settings.
type FileTreeOptions struct {
	// MaxDepth limits how deep into the directory structure to traverse
	MaxDepth int
	// IgnorePatterns is a list of gitignore patterns for files/directories to skip
	IgnorePatterns []string
	// UseGitIgnore determines whether to respect .gitignore files
	UseGitIgnore bool
	// ShowHidden determines whether to include hidden files/directories
	ShowHidden bool
}

func DefaultFileTreeOptions() FileTreeOptions {
	return FileTreeOptions{
		MaxDepth:       5,
		IgnorePatterns: DefaultIgnorePatterns,
		UseGitIgnore:   true,
		ShowHidden:     false,
	}
}

// NewIgnoreMatcher compiles patterns, plus root's .gitignore when
// useGitIgnore is set.
func NewIgnoreMatcher(root string, patterns []string, useGitIgnore bool) *ignore.GitIgnore {
	lines := append([]string(nil), patterns...)
	if useGitIgnore {
		if content, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
			lines = append(lines, strings.Split(string(content), "\n")...)
		}
	}
	return ignore.CompileIgnoreLines(lines...)
}

// Walk visits every entry under root in lexical order, skipping ignored and
// hidden entries. Paths handed to fn are relative to root and slash separated.
func Walk(root string, options FileTreeOptions, fn func(rel string, d fs.DirEntry) error) error {
	matcher := NewIgnoreMatcher(root, options.IgnorePatterns, options.UseGitIgnore)

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)

		depth := strings.Count(rel, "/")
		skip := options.MaxDepth > 0 && depth >= options.MaxDepth
		skip = skip || matcher.MatchesPath(rel) || (d.IsDir() && matcher.MatchesPath(rel+"/"))
		skip = skip || (!options.ShowHidden && strings.HasPrefix(d.Name(), "."))
		if skip {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		return fn(rel, d)
	})
}

// GenerateFileTree renders the directory under rootPath as an indented
// listing, directories suffixed with "/".
func GenerateFileTree(rootPath string, options FileTreeOptions) (string, error) {
	var builder strings.Builder
	err := Walk(rootPath, options, func(rel string, d fs.DirEntry) error {
		indent := strings.Repeat("  ", strings.Count(rel, "/"))
		if d.IsDir() {
			builder.WriteString(indent + d.Name() + "/\n")
		} else {
			builder.WriteString(indent + d.Name() + "\n")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return builder.String(), nil
}

// FindDir returns the first directory named name under root, relative to
// root, searching breadth-first so the shallowest match wins.
func FindDir(root, name string) (string, bool) {
	queue := []string{"."}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(filepath.Join(root, current))
		if err != nil {
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			rel := filepath.Join(current, e.Name())
			if e.Name() == name {
				return rel, true
			}
			queue = append(queue, rel)
		}
	}
	return "", false
}

// CopyDir copies the tree under src to dst, keeping file modes. Symlinks are
// recreated, not followed.
func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return copyFile(path, target, info.Mode().Perm())
		}
	})
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
