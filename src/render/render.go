// Package render turns model answers (lightweight markdown) into a small
// styled document model that the overlay surface can draw.
package render

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"
)

type BlockKind int

const (
	Paragraph BlockKind = iota
	Heading
	ListItem
	CodeBlock
	Quote
	Rule
)

type InlineStyle int

const (
	Plain InlineStyle = iota
	Strong
	Emphasis
	Code
)

type Inline struct {
	Text  string
	Style InlineStyle
}

type Block struct {
	Kind    BlockKind
	Level   int // heading level, or list nesting depth starting at 1
	Ordered bool
	Number  int // ordinal for ordered list items
	Inlines []Inline
}

// Text returns the block's inline content without styling.
func (b Block) Text() string {
	var sb strings.Builder
	for _, in := range b.Inlines {
		sb.WriteString(in.Text)
	}
	return sb.String()
}

// Style is the fixed presentation used for every overlay document.
type Style struct {
	FontSize    float32
	LineSpacing float32
	Foreground  color.NRGBA
	Background  color.NRGBA
}

var DefaultStyle = Style{
	FontSize:    14,
	LineSpacing: 4,
	Foreground:  color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	Background:  color.NRGBA{R: 0, G: 0, B: 0, A: 217},
}

type Document struct {
	Blocks []Block
	Style  Style
}

// PlainText flattens the document, one block per line.
func (d Document) PlainText() string {
	lines := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		lines = append(lines, b.Text())
	}
	return strings.Join(lines, "\n")
}

var md = goldmark.New()

// Markdown parses src into a document.
func Markdown(src string) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("markdown parse panic: %v", r)
		}
	}()

	source := []byte(src)
	root := md.Parser().Parse(text.NewReader(source))
	b := &builder{src: source}
	if err := ast.Walk(root, b.visit); err != nil {
		return Document{}, err
	}
	return Document{Blocks: b.blocks, Style: DefaultStyle}, nil
}

// PlainDocument wraps text as unstyled paragraphs, one per line.
func PlainDocument(s string) Document {
	var blocks []Block
	for _, line := range strings.Split(s, "\n") {
		blocks = append(blocks, Block{Kind: Paragraph, Inlines: []Inline{{Text: line}}})
	}
	return Document{Blocks: blocks, Style: DefaultStyle}
}

// Render parses markup and falls back to plain text on any failure.
func Render(s string) Document {
	doc, err := Markdown(s)
	if err != nil {
		zap.L().Warn("markdown rendering failed, showing plain text", zap.Error(err))
		return PlainDocument(s)
	}
	if len(doc.Blocks) == 0 && strings.TrimSpace(s) != "" {
		return PlainDocument(s)
	}
	return doc
}

type builder struct {
	src    []byte
	blocks []Block
	cur    *Block
	styles []InlineStyle
	depth  int
	quote  int
}

func (b *builder) style() InlineStyle {
	if len(b.styles) == 0 {
		return Plain
	}
	return b.styles[len(b.styles)-1]
}

func (b *builder) open(kind BlockKind) {
	if kind == Paragraph && b.quote > 0 {
		kind = Quote
	}
	b.blocks = append(b.blocks, Block{Kind: kind})
	b.cur = &b.blocks[len(b.blocks)-1]
}

func (b *builder) emit(s string, st InlineStyle) {
	if b.cur == nil {
		b.open(Paragraph)
	}
	n := len(b.cur.Inlines)
	if n > 0 && b.cur.Inlines[n-1].Style == st {
		b.cur.Inlines[n-1].Text += s
		return
	}
	b.cur.Inlines = append(b.cur.Inlines, Inline{Text: s, Style: st})
}

func (b *builder) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			b.open(Heading)
			b.cur.Level = node.Level
		} else {
			b.cur = nil
		}
	case *ast.List:
		if entering {
			b.depth++
		} else {
			b.depth--
		}
	case *ast.ListItem:
		if entering {
			list, _ := node.Parent().(*ast.List)
			b.open(ListItem)
			b.cur.Level = b.depth
			if list != nil && list.IsOrdered() {
				b.cur.Ordered = true
				b.cur.Number = list.Start + indexOf(list, node)
			}
		} else {
			b.cur = nil
		}
	case *ast.Paragraph, *ast.TextBlock:
		if entering {
			// Paragraphs directly inside a list item continue that item.
			if b.cur == nil || b.cur.Kind != ListItem || len(b.cur.Inlines) > 0 {
				b.open(Paragraph)
			}
		} else {
			b.cur = nil
		}
	case *ast.Blockquote:
		if entering {
			b.quote++
		} else {
			b.quote--
		}
	case *ast.ThematicBreak:
		if entering {
			b.open(Rule)
			b.cur = nil
		}
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			b.open(CodeBlock)
			lines := n.Lines()
			var sb strings.Builder
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(b.src))
			}
			b.cur.Inlines = []Inline{{Text: strings.TrimRight(sb.String(), "\n"), Style: Code}}
			b.cur = nil
		}
		return ast.WalkSkipChildren, nil
	case *ast.HTMLBlock:
		if entering {
			b.open(Paragraph)
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.emit(strings.TrimRight(string(seg.Value(b.src)), "\n"), Plain)
			}
			b.cur = nil
		}
		return ast.WalkSkipChildren, nil
	case *ast.Emphasis:
		if entering {
			st := Emphasis
			if node.Level >= 2 {
				st = Strong
			}
			b.styles = append(b.styles, st)
		} else if len(b.styles) > 0 {
			b.styles = b.styles[:len(b.styles)-1]
		}
	case *ast.CodeSpan:
		if entering {
			var sb strings.Builder
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					sb.Write(t.Segment.Value(b.src))
				}
			}
			b.emit(sb.String(), Code)
		}
		return ast.WalkSkipChildren, nil
	case *ast.AutoLink:
		if entering {
			b.emit(string(node.Label(b.src)), b.style())
		}
		return ast.WalkSkipChildren, nil
	case *ast.Text:
		if entering {
			b.emit(string(node.Segment.Value(b.src)), b.style())
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.emit(" ", b.style())
			}
		}
	case *ast.String:
		if entering {
			b.emit(string(node.Value), b.style())
		}
	}
	return ast.WalkContinue, nil
}

func indexOf(list *ast.List, item ast.Node) int {
	i := 0
	for c := list.FirstChild(); c != nil; c = c.NextSibling() {
		if c == item {
			return i
		}
		i++
	}
	return 0
}
