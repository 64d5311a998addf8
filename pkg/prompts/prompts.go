// Package prompts holds the text sent to the generative model and the
// style/theme word lists that make each variant look different.
package prompts

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

const generateTemplate = `Create a %s frontend for this backend with theme %s (invent fake data if necessary).
Retrieve all the necessary html, js and css files (use only percentages for sizes in css).
Return only code. Put the relative path of each file alone on the line right above its fenced code block, using static/<name> or templates/<name>. This format is important.
Ignore the healthcheck endpoint, and create any file the backend references that is missing.

Backend request handlers:
%s
`

const repairTemplate = `You gave me this code and the deployment is failing with the error below.
Return the corrected files with exactly the same format: the relative path alone on one line, immediately followed by a fenced code block. This format is really important.
Files you do not return are left untouched.

Previous answer:
%s

Error:
%s

Current files:
%s
`

// Builder renders prompts, drawing a random style and theme for every
// generation. Safe for concurrent use.
type Builder struct {
	styles *WordList
	themes *WordList

	mu  sync.Mutex
	rng *rand.Rand
}

func NewBuilder(styles, themes *WordList, seed int64) *Builder {
	if styles == nil {
		styles = NewWordList(DefaultStyles)
	}
	if themes == nil {
		themes = NewWordList(DefaultThemes)
	}
	return &Builder{
		styles: styles,
		themes: themes,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Generate returns the first prompt of a variant along with the style and
// theme it picked.
func (b *Builder) Generate(payload string) (prompt, style, theme string) {
	b.mu.Lock()
	style = b.styles.Pick(b.rng)
	theme = b.themes.Pick(b.rng)
	b.mu.Unlock()

	return fmt.Sprintf(generateTemplate, style, theme, strings.TrimSpace(payload)), style, theme
}

// Repair returns the prompt asking the model to fix its most recent answer.
func Repair(lastReply, failure, fileTree string) string {
	if strings.TrimSpace(fileTree) == "" {
		fileTree = "(none)"
	}
	return fmt.Sprintf(repairTemplate, strings.TrimSpace(lastReply), strings.TrimSpace(failure), strings.TrimRight(fileTree, "\n"))
}
