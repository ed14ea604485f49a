//go:build !cgo

package syntax

import (
	"regexp"
	"strings"
)

var assignLHS = regexp.MustCompile(`^\s*([A-Za-z_][\w\s,\[\]*]*?)\s*(:[^=]+)?=[^=]`)
var nameRe = regexp.MustCompile(`[A-Za-z_]\w*`)

// AnalyzePython without cgo approximates the tree-sitter analysis with a
// line scanner that tracks brackets and triple-quoted strings.
func AnalyzePython(code string) (*PythonAnalysis, error) {
	a := &PythonAnalysis{Valid: true}
	depth := 0
	inTriple := ""
	continued := false

	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		startsStatement := depth == 0 && inTriple == "" && !continued

		scanned, newDepth, newTriple := scanLine(line, depth, inTriple)
		depth, inTriple = newDepth, newTriple
		continued = strings.HasSuffix(strings.TrimRight(scanned, " \t"), "\\")

		if !startsStatement || trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		topLevel := len(line) > 0 && line[0] != ' ' && line[0] != '\t' && !isClauseContinuation(trimmed)
		for _, part := range splitSemicolons(scanned) {
			names := lhsNames(part)
			a.Assigned = append(a.Assigned, names...)
			if topLevel {
				a.Statements++
				a.TopLevelTargets = append(a.TopLevelTargets, names...)
			}
		}
	}

	if depth != 0 || inTriple != "" {
		return &PythonAnalysis{Valid: false}, nil
	}
	return a, nil
}

// scanLine blanks out string contents and comments and tracks bracket depth.
func scanLine(line string, depth int, inTriple string) (string, int, string) {
	out := []byte(line)
	quote := ""
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inTriple != "":
			if strings.HasPrefix(line[i:], inTriple) {
				i += 2
				inTriple = ""
			} else {
				out[i] = ' '
			}
		case quote != "":
			if c == '\\' {
				i++
			} else if string(c) == quote {
				quote = ""
			} else {
				out[i] = ' '
			}
		case strings.HasPrefix(line[i:], `"""`) || strings.HasPrefix(line[i:], "'''"):
			inTriple = line[i : i+3]
			i += 2
		case c == '"' || c == '\'':
			quote = string(c)
		case c == '#':
			return string(out[:i]), depth, inTriple
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		}
	}
	return string(out), depth, inTriple
}

func splitSemicolons(line string) []string {
	var parts []string
	for _, p := range strings.Split(line, ";") {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func lhsNames(stmt string) []string {
	m := assignLHS.FindStringSubmatch(stmt + " ")
	if m == nil || m[2] != "" {
		return nil
	}
	lhs := m[1]
	head := strings.Fields(strings.TrimSpace(lhs))
	if len(head) > 0 {
		switch head[0] {
		case "if", "elif", "while", "for", "with", "def", "class", "return", "assert", "lambda":
			return nil
		}
	}
	return nameRe.FindAllString(lhs, -1)
}

// isClauseContinuation reports lines that extend the previous compound
// statement rather than starting a new one.
func isClauseContinuation(trimmed string) bool {
	if strings.HasPrefix(trimmed, "@") {
		return true
	}
	word := trimmed
	if idx := strings.IndexAny(word, " :("); idx >= 0 {
		word = word[:idx]
	}
	switch word {
	case "else", "elif", "except", "finally", "case":
		return true
	}
	return false
}
