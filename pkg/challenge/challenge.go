// Package challenge discovers backend challenges, prepares variant copies of
// them and runs every variant through the repair loop.
package challenge

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/utils"
)

const domain = "challenge"

// ErrAlreadyProcessed is returned when a challenge's versions directory exists.
var ErrAlreadyProcessed = stderrors.New("challenge already processed")

// Challenge is one backend exercise directory.
type Challenge struct {
	Name string
	Dir  string
}

// Discover lists the challenge directories directly under root: names that
// contain "web" but not "versions", sorted.
func Discover(root string) ([]Challenge, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.New(errors.CodeIoError, domain, "resolving "+root, err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, errors.New(errors.CodeIoError, domain, "listing "+abs, err)
	}

	var challenges []Challenge
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !strings.Contains(name, "web") || strings.Contains(name, "versions") {
			continue
		}
		challenges = append(challenges, Challenge{Name: name, Dir: filepath.Join(abs, name)})
	}
	sort.Slice(challenges, func(i, j int) bool { return challenges[i].Name < challenges[j].Name })
	return challenges, nil
}

// VersionsDir is where the variants of a challenge live.
func VersionsDir(output, name string) string {
	return filepath.Join(output, name+"-versions")
}

// VariantName is the directory name of the i-th variant, counting from 1.
func VariantName(name string, i int) string {
	return fmt.Sprintf("%s-%d", name, i)
}

// PrepareVariants creates the versions directory and n copies of the
// challenge inside it. An existing versions directory yields
// ErrAlreadyProcessed.
func PrepareVariants(ch Challenge, output string, n int) ([]string, error) {
	versions, err := filepath.Abs(VersionsDir(output, ch.Name))
	if err != nil {
		return nil, errors.New(errors.CodeIoError, domain, "resolving output directory", err)
	}
	if rel, err := filepath.Rel(ch.Dir, versions); err == nil && !strings.HasPrefix(rel, "..") {
		return nil, errors.Newf(errors.CodeConfigurationInvalid, domain, "output %s is inside challenge %s", versions, ch.Dir)
	}

	if err := os.MkdirAll(filepath.Dir(versions), 0755); err != nil {
		return nil, errors.New(errors.CodeIoError, domain, "creating output directory", err)
	}
	if err := os.Mkdir(versions, 0755); err != nil {
		if os.IsExist(err) {
			return nil, ErrAlreadyProcessed
		}
		return nil, errors.New(errors.CodeIoError, domain, "creating "+versions, err)
	}

	dirs := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		dst := filepath.Join(versions, VariantName(ch.Name, i))
		if err := utils.CopyDir(ch.Dir, dst); err != nil {
			return dirs, errors.New(errors.CodeIoError, domain, fmt.Sprintf("copying %s to %s", ch.Dir, dst), err)
		}
		dirs = append(dirs, dst)
	}
	return dirs, nil
}

// SandboxRoot returns the first directory named "resources" inside the
// variant, or the variant itself.
func SandboxRoot(variantDir string) string {
	if rel, ok := utils.FindDir(variantDir, "resources"); ok {
		return filepath.Join(variantDir, rel)
	}
	return variantDir
}
