package markdown

import (
	"regexp"
	"strings"
)

var (
	// Group 1: language (optional)
	// Group 2: code content
	codeBlockRegexp = regexp.MustCompile("(?sm)^```([a-zA-Z0-9_+-]*)\\n(.*?)^```")
)

// Block is a parsed content segment.
type Block interface {
	Content() string
}

// TextBlock represents plain text content.
type TextBlock struct {
	Text string
}

// Content returns the text.
func (b *TextBlock) Content() string { return b.Text }

// CodeBlock represents a fenced code block.
type CodeBlock struct {
	// Empty if the fence did not name one.
	Language string
	Code     string
}

// Content returns the code without its fences.
func (b *CodeBlock) Content() string { return b.Code }

// ParseBlocks splits markdown content into text and code blocks, in order.
func ParseBlocks(content string) []Block {
	var result []Block
	lastEnd := 0
	for _, match := range codeBlockRegexp.FindAllStringSubmatchIndex(content, -1) {
		fullStart, fullEnd := match[0], match[1]
		if fullStart > lastEnd {
			result = append(result, &TextBlock{Text: content[lastEnd:fullStart]})
		}
		result = append(result, &CodeBlock{
			Language: content[match[2]:match[3]],
			Code:     strings.Trim(content[match[4]:match[5]], "\n"),
		})
		lastEnd = fullEnd
	}
	if lastEnd < len(content) {
		result = append(result, &TextBlock{Text: content[lastEnd:]})
	}
	return result
}

// CodeBlocks returns the code blocks of content.
func CodeBlocks(content string) []*CodeBlock {
	var codeBlocks []*CodeBlock
	for _, block := range ParseBlocks(content) {
		if codeBlock, ok := block.(*CodeBlock); ok {
			codeBlocks = append(codeBlocks, codeBlock)
		}
	}
	return codeBlocks
}
