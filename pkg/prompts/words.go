package prompts

import (
	"bufio"
	"math/rand"
	"os"
	"strings"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/logger"
)

var DefaultStyles = []string{
	"minimalist",
	"brutalist",
	"retro 80s",
	"glassmorphism",
	"material design",
	"neumorphic",
	"cyberpunk",
	"corporate",
	"hand-drawn",
	"dark mode",
}

var DefaultThemes = []string{
	"bookstore",
	"coffee shop",
	"space agency",
	"pet adoption",
	"weather station",
	"music festival",
	"online bank",
	"hospital",
	"museum",
	"gaming forum",
}

// WordList is a non-empty list of entries, one per line of its source file.
type WordList struct {
	entries []string
}

func NewWordList(entries []string) *WordList {
	return &WordList{entries: append([]string(nil), entries...)}
}

// LoadWordList reads one entry per non-blank line of path. An empty path, a
// missing file or a file without entries yields the defaults.
func LoadWordList(path string, defaults []string) (*WordList, error) {
	if path == "" {
		return NewWordList(defaults), nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		logger.Debugf("Word list %s not found, using built-in entries", path)
		return NewWordList(defaults), nil
	}
	if err != nil {
		return nil, errors.New(errors.CodeIoError, "prompts", "opening word list "+path, err)
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			entries = append(entries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(errors.CodeIoError, "prompts", "reading word list "+path, err)
	}

	if len(entries) == 0 {
		logger.Warnf("Word list %s has no entries, using built-in entries", path)
		return NewWordList(defaults), nil
	}
	return &WordList{entries: entries}, nil
}

func (w *WordList) Entries() []string {
	return append([]string(nil), w.entries...)
}

// Pick returns a random entry, or "" for an empty list.
func (w *WordList) Pick(rng *rand.Rand) string {
	if len(w.entries) == 0 {
		return ""
	}
	return w.entries[rng.Intn(len(w.entries))]
}
