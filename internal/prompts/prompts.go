// Package prompts renders the model prompts used by the planner and the
// step runner.
package prompts

import (
	"strings"
	"text/template"
	"time"
)

// DateLayout is how the current date appears in prompt headers.
const DateLayout = "2006-01-02"

var templates = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(
	planTemplate + decisionTemplate + replanTemplate + stepSystemTemplate + stepUserTemplate,
))

func render(name string, data any) string {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		// Templates are fixed at build time and the data types are ours.
		panic(err)
	}
	return strings.TrimSpace(sb.String())
}

func today(now time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	return now.Format(DateLayout)
}
