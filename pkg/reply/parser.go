// Package reply decodes a generative model's free-text answer into files and
// writes them under a sandbox root.
//
// The wire format is a path line immediately followed by a fenced code block:
//
//	templates/index.html
//	```html
//	<h1>Shop</h1>
//	```
//
// Any prose around the sections is ignored.
package reply

import (
	"regexp"
	"strings"
)

// FileUnit is one decoded (relative path, content) pair.
type FileUnit struct {
	Path    string
	Content string
}

var sectionPattern = regexp.MustCompile("(?m)^([\\w\\-/.]+)[ \\t]*\\r?\\n```[\\w+\\-]*[ \\t]*\\r?\\n([\\s\\S]*?)```")

// Parse extracts every file section in order. Duplicated paths are kept;
// the later unit wins when written.
func Parse(text string) []FileUnit {
	matches := sectionPattern.FindAllStringSubmatch(text, -1)
	units := make([]FileUnit, 0, len(matches))
	for _, m := range matches {
		units = append(units, FileUnit{
			Path:    m[1],
			Content: m[2],
		})
	}
	return units
}

// Normalize strips trailing whitespace and terminates with exactly one newline.
func Normalize(content string) string {
	return strings.TrimRight(content, " \t\r\n") + "\n"
}
