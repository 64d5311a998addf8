// Package extractor reduces a backend source file to its request handlers.
//
// Handlers are found line by line with per-language entry patterns (a Flask
// route decorator, a Spring mapping annotation or an Express route call) and
// captured with the matching block rule. Health-check handlers are dropped
// so the prompt only describes endpoints the front end should use.
package extractor

import (
	"strings"
)

// Block is one captured handler definition.
type Block struct {
	Language  Language
	StartLine int // 1-based
	Lines     []string
	Excluded  bool
}

// Text returns the block exactly as it appeared in the source.
func (b Block) Text() string {
	return strings.Join(b.Lines, "")
}

// Result holds the kept handler blocks in source order.
type Result struct {
	Blocks   []Block
	Excluded int
}

// Empty reports whether nothing extractable was found.
func (r Result) Empty() bool {
	return len(r.Blocks) == 0
}

// Texts returns the kept blocks' text.
func (r Result) Texts() []string {
	out := make([]string, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		out = append(out, b.Text())
	}
	return out
}

// Payload concatenates the kept blocks into the prompt payload.
func (r Result) Payload() string {
	return strings.Join(r.Texts(), "\n")
}

// Languages returns the distinct languages of the kept blocks.
func (r Result) Languages() []Language {
	var out []Language
	seen := map[Language]bool{}
	for _, b := range r.Blocks {
		if !seen[b.Language] {
			seen[b.Language] = true
			out = append(out, b.Language)
		}
	}
	return out
}

// Extract detects handlers of any supported language.
func Extract(text string) Result {
	return collect(scan(text, dialects))
}

// ExtractAs only looks for handlers of the declared language. Unknown falls
// back to detection.
func ExtractAs(text string, lang Language) Result {
	d, ok := dialectFor(lang)
	if !ok {
		return Extract(text)
	}
	return collect(scan(text, []dialect{d}))
}

// Merge appends the blocks of other results in order.
func (r Result) Merge(others ...Result) Result {
	for _, o := range others {
		r.Blocks = append(r.Blocks, o.Blocks...)
		r.Excluded += o.Excluded
	}
	return r
}

// ScanAll returns every captured block, excluded ones included.
func ScanAll(text string) []Block {
	return scan(text, dialects)
}

// scan walks the lines once. A line that starts a handler is handed to its
// dialect's capture rule; every other line is skipped.
func scan(text string, ds []dialect) []Block {
	lines := splitLines(text)
	var blocks []Block

	for i := 0; i < len(lines); {
		d, ok := match(lines[i], ds)
		if !ok {
			i++
			continue
		}

		block, next := d.capture(lines, i)
		if next <= i {
			next = i + 1
		}
		block.Excluded = isHealthCheck(block)
		blocks = append(blocks, block)
		i = next
	}

	return blocks
}

func collect(blocks []Block) Result {
	var r Result
	for _, b := range blocks {
		if b.Excluded {
			r.Excluded++
			continue
		}
		r.Blocks = append(r.Blocks, b)
	}
	return r
}

func match(line string, ds []dialect) (dialect, bool) {
	for _, d := range ds {
		if d.entry.MatchString(line) {
			return d, true
		}
	}
	return dialect{}, false
}

// isHealthCheck covers both "health" and "healthcheck" handlers.
func isHealthCheck(b Block) bool {
	return strings.Contains(strings.ToLower(b.Text()), "health")
}

// splitLines splits keeping line terminators.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
