package markdown

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

// Renderer renders markdown for the terminal, with syntax highlighting.
type Renderer struct {
	glamour *glamour.TermRenderer
	width   int
	dark    bool
	cache   map[string]string

	// Rendering of the complete lines of the text being revealed.
	partialLines int
	partialMd    string
}

// NewRenderer creates a new markdown renderer.
func NewRenderer(width int, dark bool) (*Renderer, error) {
	gr, err := glamour.NewTermRenderer(
		glamour.WithStyles(customStyle(dark)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		glamour: gr,
		width:   width,
		dark:    dark,
		cache:   map[string]string{},
	}, nil
}

// Render renders complete markdown content. Results are cached by content.
func (r *Renderer) Render(content string) string {
	if md, ok := r.cache[content]; ok {
		return md
	}
	md := r.render(content)
	r.cache[content] = md
	return md
}

// RenderPartial renders content that is still growing. Complete lines are
// rendered as markdown, the trailing incomplete line is returned as is.
// Call ResetPartial before rendering a different text.
func (r *Renderer) RenderPartial(content string) string {
	lines := strings.Split(content, "\n")
	complete := len(lines) - 1
	if complete != r.partialLines {
		r.partialLines = complete
		r.partialMd = ""
		if complete > 0 {
			toRender := strings.Join(lines[:complete], "\n")
			// Close a dangling fence so the code renders as code.
			if strings.Count(toRender, "```")%2 == 1 {
				toRender += "\n```"
			}
			r.partialMd = r.render(toRender)
		}
	}
	latest := lines[len(lines)-1]
	if r.partialMd == "" {
		return latest
	}
	if latest == "" {
		return r.partialMd
	}
	return r.partialMd + "\n" + latest
}

// ResetPartial forgets the partial rendering state.
func (r *Renderer) ResetPartial() {
	r.partialLines = 0
	r.partialMd = ""
}

// SetWidth updates the renderer width, recreating internals if needed.
func (r *Renderer) SetWidth(width int) error {
	if r.width == width {
		return nil
	}
	return r.reset(width, r.dark)
}

// SetDark switches between the dark and light styles.
func (r *Renderer) SetDark(dark bool) error {
	if r.dark == dark {
		return nil
	}
	return r.reset(r.width, dark)
}

func (r *Renderer) reset(width int, dark bool) error {
	newRenderer, err := NewRenderer(width, dark)
	if err != nil {
		return err
	}
	*r = *newRenderer
	return nil
}

func (r *Renderer) render(content string) string {
	rendered, err := r.glamour.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

// customStyle returns a modified glamour style for cleaner output.
func customStyle(dark bool) ansi.StyleConfig {
	style := styles.LightStyleConfig
	if dark {
		style = styles.DraculaStyleConfig
	}
	zero := uint(0)
	style.Document.Margin = &zero
	style.CodeBlock.Margin = &zero
	style.CodeBlock.Indent = &zero
	style.CodeBlock.Prefix = ""
	style.CodeBlock.BlockPrefix = ""

	style.Code.Margin = &zero
	style.Code.Indent = &zero
	style.Code.Prefix = ""
	style.Code.Suffix = ""

	style.Paragraph.BlockPrefix = ""
	style.Paragraph.BlockSuffix = ""

	return style
}
