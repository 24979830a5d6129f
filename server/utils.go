package server

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/malonaz/talkzen/chat"
)

// Raw HTML in messages is not rendered.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// formatMessage renders message markdown to HTML.
func formatMessage(content string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(content) + "</pre>")
	}
	return template.HTML(buf.String())
}

func messageRole(role chat.Role) string {
	if role == chat.RoleUser {
		return "You"
	}
	return "TalkZen-AI"
}
