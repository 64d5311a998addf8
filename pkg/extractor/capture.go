package extractor

import "strings"

// captureAnnotated handles annotation+method handlers (Spring style):
// decorators, then everything up to the public signature, then the brace
// balanced body.
func captureAnnotated(lines []string, cursor int) (Block, int) {
	start, i, n := cursor, cursor, len(lines)

	for i < n && strings.HasPrefix(strings.TrimSpace(lines[i]), "@") {
		i++
	}
	for i < n && !strings.HasPrefix(strings.TrimSpace(lines[i]), "public") {
		i++
	}

	if i < n {
		signature := lines[i]
		depth := braceDelta(signature)
		opened := strings.Contains(signature, "{")
		i++

		// Interface or abstract declaration.
		if !opened && strings.HasSuffix(strings.TrimSpace(signature), ";") {
			return newBlock(Java, lines, start, i), i
		}

		for i < n && (!opened || depth > 0) {
			depth += braceDelta(lines[i])
			if strings.Contains(lines[i], "{") {
				opened = true
			}
			i++
		}
	}

	return newBlock(Java, lines, start, i), i
}

// captureIndented handles decorator+def handlers (Flask style). The body is
// every following line that is blank or indented deeper than the def.
func captureIndented(lines []string, cursor int) (Block, int) {
	start, i, n := cursor, cursor, len(lines)
	ref := -1

	for i < n {
		trimmed := strings.TrimSpace(lines[i])
		i++
		if strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "async def ") {
			ref = indentWidth(lines[i-1])
			break
		}
	}

	if ref >= 0 {
		for i < n {
			if strings.TrimSpace(lines[i]) != "" && indentWidth(lines[i]) <= ref {
				break
			}
			i++
		}
	}

	return newBlock(Python, lines, start, i), i
}

// captureBraced handles route registration calls (Express style) by brace
// balancing from the registration line itself.
func captureBraced(lines []string, cursor int) (Block, int) {
	start, i, n := cursor, cursor, len(lines)

	depth := braceDelta(lines[i])
	i++
	for i < n && depth > 0 {
		depth += braceDelta(lines[i])
		i++
	}

	return newBlock(JavaScript, lines, start, i), i
}

func braceDelta(line string) int {
	return strings.Count(line, "{") - strings.Count(line, "}")
}

func indentWidth(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

func newBlock(lang Language, lines []string, start, end int) Block {
	captured := make([]string, end-start)
	copy(captured, lines[start:end])
	return Block{
		Language:  lang,
		StartLine: start + 1,
		Lines:     captured,
	}
}
