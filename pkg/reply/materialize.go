package reply

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/logger"
)

const domain = "reply"

// Materialize decodes text and writes every file section under sandboxRoot,
// returning the number of files written.
//
// Every unit is validated before the first write, so a reply carrying one
// escaping path leaves the sandbox untouched.
func Materialize(text string, sandboxRoot string) (int, error) {
	units := Parse(text)
	if len(units) == 0 {
		return 0, errors.New(errors.CodeFormatError, domain, "no valid file sections found in the reply", nil)
	}

	root, err := ResolveRoot(sandboxRoot)
	if err != nil {
		return 0, err
	}

	targets := make([]string, len(units))
	for i, u := range units {
		target, err := SafePath(root, u.Path)
		if err != nil {
			return 0, err
		}
		targets[i] = target
	}

	for i, u := range units {
		if err := writeUnit(targets[i], u.Content); err != nil {
			return i, err
		}
		logger.Debugf("Wrote %s", u.Path)
	}

	return len(units), nil
}

// ResolveRoot returns the absolute, symlink-free form of a sandbox directory.
func ResolveRoot(sandboxRoot string) (string, error) {
	abs, err := filepath.Abs(sandboxRoot)
	if err != nil {
		return "", errors.New(errors.CodeIoError, domain, fmt.Sprintf("resolving sandbox root %s", sandboxRoot), err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errors.New(errors.CodeIoError, domain, fmt.Sprintf("resolving sandbox root %s", sandboxRoot), err)
	}
	return resolved, nil
}

// SafePath maps a reply path onto the resolved root or reports a sandbox
// violation. Absolute paths and paths that leave the root lexically are
// rejected. Symlinks are followed, and the path they lead to must stay
// inside the root.
func SafePath(root string, relPath string) (string, error) {
	if filepath.IsAbs(relPath) || strings.HasPrefix(relPath, "/") || strings.HasPrefix(relPath, `\`) {
		return "", errors.New(errors.CodeSandboxViolation, domain, fmt.Sprintf("absolute paths are not allowed: %s", relPath), nil)
	}

	lexical := filepath.Join(root, relPath)
	if !within(root, lexical) || lexical == root {
		return "", errors.New(errors.CodeSandboxViolation, domain, fmt.Sprintf("path traversal attempt detected: %s", relPath), nil)
	}

	secure, err := securejoin.SecureJoin(root, relPath)
	if err != nil {
		return "", errors.New(errors.CodeSandboxViolation, domain, fmt.Sprintf("cannot resolve %s inside the sandbox", relPath), err)
	}

	// securejoin clamps escaping links into root; the OS would not.
	followed := resolveExisting(lexical)
	if !within(root, followed) || followed != secure {
		return "", errors.New(errors.CodeSandboxViolation, domain, fmt.Sprintf("path traversal attempt detected: %s resolves outside the sandbox", relPath), nil)
	}

	return secure, nil
}

// resolveExisting evaluates the symlinks of the longest existing prefix of
// path and appends the components that do not exist yet.
func resolveExisting(path string) string {
	for p := path; ; p = filepath.Dir(p) {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			rest, _ := filepath.Rel(p, path)
			return filepath.Join(resolved, rest)
		}
		if filepath.Dir(p) == p {
			return path
		}
	}
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func writeUnit(target, content string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.New(errors.CodeIoError, domain, fmt.Sprintf("creating directory for %s", target), err)
	}
	if err := os.WriteFile(target, []byte(Normalize(content)), 0644); err != nil {
		return errors.New(errors.CodeIoError, domain, fmt.Sprintf("writing %s", target), err)
	}
	return nil
}
