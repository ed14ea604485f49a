// Package redact masks credentials before text is written to disk.
package redact

import (
	"regexp"
	"sort"
	"strings"
)

// Placeholder replaces every masked span.
const Placeholder = "[REDACTED]"

// minLiteral is the shortest literal value worth masking.
const minLiteral = 8

// Pattern is a named credential format.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
}

// DefaultPatterns covers the API keys and private key headers a model run
// is most likely to echo.
var DefaultPatterns = []Pattern{
	{Name: "aws_access_key_id", Regex: regexp.MustCompile(`(A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}`)},
	{Name: "anthropic_api_key", Regex: regexp.MustCompile(`sk-ant-api03-[a-zA-Z0-9_\-]{20,}`)},
	{Name: "openai_project_key", Regex: regexp.MustCompile(`sk-proj-[a-zA-Z0-9_\-]{32,}`)},
	{Name: "openrouter_api_key", Regex: regexp.MustCompile(`sk-or-v1-[a-f0-9]{64}`)},
	{Name: "openai_api_key", Regex: regexp.MustCompile(`sk-[a-zA-Z0-9]{32,}`)},
	{Name: "google_api_key", Regex: regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`)},
	{Name: "github_token", Regex: regexp.MustCompile(`gh[po]_[a-zA-Z0-9]{36}`)},
	{Name: "slack_token", Regex: regexp.MustCompile(`xox[bp]-[0-9]{10,12}-[0-9]{10,12}-[a-zA-Z0-9-]{24,}`)},
	{Name: "private_key", Regex: regexp.MustCompile(`-----BEGIN (RSA |OPENSSH |PGP )?PRIVATE KEY( BLOCK)?-----`)},
}

// Redactor masks pattern matches and known literal values.
type Redactor struct {
	patterns []Pattern
	literals []string
}

// New returns a Redactor over DefaultPatterns plus the given literal
// values. Literals shorter than eight bytes are ignored.
func New(literals ...string) *Redactor {
	r := &Redactor{patterns: DefaultPatterns}
	for _, lit := range literals {
		if len(lit) >= minLiteral {
			r.literals = append(r.literals, lit)
		}
	}
	// Longest first so a literal containing another is masked whole.
	sort.Slice(r.literals, func(i, j int) bool { return len(r.literals[i]) > len(r.literals[j]) })
	return r
}

// Match is one masked span.
type Match struct {
	Name  string
	Start int
	End   int
}

// Find returns the non-overlapping spans that Redact would mask, in order.
func (r *Redactor) Find(s string) []Match {
	if r == nil {
		return nil
	}
	var found []Match
	for _, lit := range r.literals {
		for off := 0; ; {
			i := strings.Index(s[off:], lit)
			if i < 0 {
				break
			}
			found = append(found, Match{Name: "literal", Start: off + i, End: off + i + len(lit)})
			off += i + len(lit)
		}
	}
	for _, p := range r.patterns {
		for _, loc := range p.Regex.FindAllStringIndex(s, -1) {
			found = append(found, Match{Name: p.Name, Start: loc[0], End: loc[1]})
		}
	}
	return merge(found)
}

// Redact returns s with every match replaced by Placeholder. A nil
// Redactor returns s unchanged.
func (r *Redactor) Redact(s string) string {
	matches := r.Find(s)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m.Start])
		b.WriteString(Placeholder)
		last = m.End
	}
	b.WriteString(s[last:])
	return b.String()
}

// merge sorts spans and folds overlapping ones into the earliest.
func merge(spans []Match) []Match {
	if len(spans) < 2 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
	out := spans[:1]
	for _, m := range spans[1:] {
		cur := &out[len(out)-1]
		if m.Start < cur.End {
			cur.End = max(cur.End, m.End)
			continue
		}
		out = append(out, m)
	}
	return out
}
