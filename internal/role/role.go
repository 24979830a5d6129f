// Package role renders the preamble that opens every conversation.
// The configured system prompt is a text/template with the sprig functions.
package role

import (
	"bytes"
	"runtime"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/pkg/errors"
)

// TemplateData for rendering the system prompt.
type TemplateData struct {
	Username string
	OS       string
	Arch     string
	Date     string
}

// NewTemplateData returns the data available to the system prompt.
func NewTemplateData(username string, now time.Time) *TemplateData {
	return &TemplateData{
		Username: username,
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		Date:     now.Format("Monday, January 2, 2006"),
	}
}

// Render the system prompt. Prompts without template actions are returned as is.
func Render(prompt string, data *TemplateData) (string, error) {
	if !strings.Contains(prompt, "{{") {
		return prompt, nil
	}
	tmpl, err := template.New("system_prompt").Funcs(sprig.TxtFuncMap()).Parse(prompt)
	if err != nil {
		return "", errors.Wrap(err, "parsing system prompt template")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "executing system prompt template")
	}
	return buf.String(), nil
}
