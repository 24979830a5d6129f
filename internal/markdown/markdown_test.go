package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlocks(t *testing.T) {
	content := "Here is code:\n```go\nfmt.Println(\"hi\")\n```\nand more\n```\nplain\n```\n"
	blocks := ParseBlocks(content)
	require.Len(t, blocks, 5)
	assert.Equal(t, "Here is code:\n", blocks[0].Content())
	code, ok := blocks[1].(*CodeBlock)
	require.True(t, ok)
	assert.Equal(t, "go", code.Language)
	assert.Equal(t, `fmt.Println("hi")`, code.Code)
	assert.Equal(t, "\nand more\n", blocks[2].Content())
	assert.Equal(t, "", blocks[3].(*CodeBlock).Language)
	assert.Equal(t, "\n", blocks[4].Content())

	codeBlocks := CodeBlocks(content)
	require.Len(t, codeBlocks, 2)
	assert.Equal(t, "plain", codeBlocks[1].Code)
}

func TestParseBlocks_NoCode(t *testing.T) {
	assert.Empty(t, ParseBlocks(""))
	blocks := ParseBlocks("just text")
	require.Len(t, blocks, 1)
	assert.Equal(t, "just text", blocks[0].Content())
	assert.Empty(t, CodeBlocks("just text"))
}

func TestRenderer(t *testing.T) {
	for _, dark := range []bool{true, false} {
		renderer, err := NewRenderer(80, dark)
		require.NoError(t, err)
		md := renderer.Render("# Title\n\nsome **bold** text")
		assert.Contains(t, md, "Title")
		assert.Contains(t, md, "bold")
		assert.Equal(t, md, renderer.Render("# Title\n\nsome **bold** text"))
	}
}

func TestRenderPartial(t *testing.T) {
	renderer, err := NewRenderer(80, true)
	require.NoError(t, err)

	assert.Equal(t, "hello", renderer.RenderPartial("hello"))
	out := renderer.RenderPartial("hello\nwor")
	assert.True(t, strings.HasSuffix(out, "\nwor"), out)
	assert.Contains(t, out, "hello")

	renderer.ResetPartial()
	assert.Equal(t, "fresh", renderer.RenderPartial("fresh"))
}

func TestSetDarkAndWidth(t *testing.T) {
	renderer, err := NewRenderer(80, true)
	require.NoError(t, err)
	require.NoError(t, renderer.SetDark(false))
	require.NoError(t, renderer.SetWidth(40))
	assert.False(t, renderer.dark)
	assert.Equal(t, 40, renderer.width)
}
