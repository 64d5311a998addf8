package extractor

import (
	"fmt"
	"regexp"
	"strings"
)

// Language is the closed set of backend languages the extractor understands.
type Language int

const (
	Unknown Language = iota
	Python
	Java
	JavaScript
)

func (l Language) String() string {
	switch l {
	case Python:
		return "python"
	case Java:
		return "java"
	case JavaScript:
		return "javascript"
	default:
		return "unknown"
	}
}

// Extensions lists source file extensions in discovery order.
var Extensions = []string{".py", ".js", ".java"}

// LanguageFromExtension maps a file extension (with or without the dot) to a Language.
func LanguageFromExtension(ext string) Language {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "py":
		return Python
	case "java":
		return Java
	case "js", "mjs", "cjs":
		return JavaScript
	default:
		return Unknown
	}
}

// ParseLanguage accepts the names used on the command line.
func ParseLanguage(name string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "python", "py":
		return Python, nil
	case "java":
		return Java, nil
	case "javascript", "js", "node":
		return JavaScript, nil
	case "", "auto":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("unsupported language %q", name)
}

// captureFunc consumes one handler block starting at cursor and returns it
// together with the index of the first line it did not consume.
type captureFunc func(lines []string, cursor int) (Block, int)

type dialect struct {
	lang    Language
	entry   *regexp.Regexp
	capture captureFunc
}

// dialects are tried in order for every line.
var dialects = []dialect{
	{
		lang:    Python,
		entry:   regexp.MustCompile(`^\s*@\w+\.(?:route|get|post|put|delete|patch)\s*\(`),
		capture: captureIndented,
	},
	{
		lang:    Java,
		entry:   regexp.MustCompile(`^\s*@(?:Get|Post|Put|Delete|Patch|Request)Mapping\b`),
		capture: captureAnnotated,
	},
	{
		lang:    JavaScript,
		entry:   regexp.MustCompile(`^\s*(?:app|router)\.(?:get|post|put|delete|patch)\s*\(`),
		capture: captureBraced,
	},
}

func dialectFor(lang Language) (dialect, bool) {
	for _, d := range dialects {
		if d.lang == lang {
			return d, true
		}
	}
	return dialect{}, false
}
