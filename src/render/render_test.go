package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownHeadingAndParagraph(t *testing.T) {
	doc, err := Markdown("# Answer\n\nThe result is **42**.")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 2)

	assert.Equal(t, Heading, doc.Blocks[0].Kind)
	assert.Equal(t, 1, doc.Blocks[0].Level)
	assert.Equal(t, "Answer", doc.Blocks[0].Text())

	assert.Equal(t, Paragraph, doc.Blocks[1].Kind)
	assert.Equal(t, []Inline{
		{Text: "The result is ", Style: Plain},
		{Text: "42", Style: Strong},
		{Text: ".", Style: Plain},
	}, doc.Blocks[1].Inlines)
}

func TestMarkdownLists(t *testing.T) {
	doc, err := Markdown("1. first\n2. *second*\n\n- bullet")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 3)

	assert.Equal(t, ListItem, doc.Blocks[0].Kind)
	assert.True(t, doc.Blocks[0].Ordered)
	assert.Equal(t, 1, doc.Blocks[0].Number)
	assert.Equal(t, "first", doc.Blocks[0].Text())

	assert.Equal(t, 2, doc.Blocks[1].Number)
	assert.Equal(t, []Inline{{Text: "second", Style: Emphasis}}, doc.Blocks[1].Inlines)

	assert.False(t, doc.Blocks[2].Ordered)
	assert.Equal(t, 1, doc.Blocks[2].Level)
	assert.Equal(t, "bullet", doc.Blocks[2].Text())
}

func TestMarkdownNestedList(t *testing.T) {
	doc, err := Markdown("- outer\n  - inner")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, 1, doc.Blocks[0].Level)
	assert.Equal(t, 2, doc.Blocks[1].Level)
	assert.Equal(t, "inner", doc.Blocks[1].Text())
}

func TestMarkdownCode(t *testing.T) {
	doc, err := Markdown("Use `x := 1`\n\n```go\nfmt.Println(x)\n```")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, Inline{Text: "x := 1", Style: Code}, doc.Blocks[0].Inlines[1])
	assert.Equal(t, CodeBlock, doc.Blocks[1].Kind)
	assert.Equal(t, "fmt.Println(x)", doc.Blocks[1].Text())
}

func TestMarkdownQuoteAndRule(t *testing.T) {
	doc, err := Markdown("> quoted\n\n---\n\nafter")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 3)
	assert.Equal(t, Quote, doc.Blocks[0].Kind)
	assert.Equal(t, Rule, doc.Blocks[1].Kind)
	assert.Equal(t, Paragraph, doc.Blocks[2].Kind)
}

func TestMarkdownSoftBreakJoins(t *testing.T) {
	doc, err := Markdown("line one\nline two")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "line one line two", doc.Blocks[0].Text())
}

func TestRenderUsesFixedStyle(t *testing.T) {
	doc := Render("hello")
	assert.Equal(t, float32(14), doc.Style.FontSize)
	assert.Equal(t, float32(4), doc.Style.LineSpacing)
	assert.Equal(t, uint8(217), doc.Style.Background.A)
	assert.Equal(t, "hello", doc.PlainText())
}

func TestRenderWhitespaceOnlyFallsBack(t *testing.T) {
	doc := Render("   ")
	assert.Empty(t, doc.Blocks)

	doc = Render("")
	assert.Empty(t, doc.Blocks)
}

func TestPlainDocument(t *testing.T) {
	doc := PlainDocument("a\n**b**")
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, "**b**", doc.Blocks[1].Text())
	assert.Equal(t, "a\n**b**", doc.PlainText())
}
