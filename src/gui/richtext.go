package gui

import (
	"strings"

	"fyne.io/fyne/v2/widget"

	"screen-assistant/src/render"
)

// segments converts a rendered document into fyne rich text segments.
// Consecutive list items are grouped into one list segment.
func segments(doc render.Document) []widget.RichTextSegment {
	var out []widget.RichTextSegment
	var list *widget.ListSegment

	flush := func() {
		if list != nil {
			out = append(out, list)
			list = nil
		}
	}

	for _, b := range doc.Blocks {
		if b.Kind == render.ListItem {
			if list == nil || list.Ordered != b.Ordered {
				flush()
				list = &widget.ListSegment{Ordered: b.Ordered}
			}
			item := &widget.ParagraphSegment{Texts: inlineSegments(b, widget.RichTextStyleInline)}
			if b.Level > 1 {
				item.Texts = append([]widget.RichTextSegment{&widget.TextSegment{
					Style: widget.RichTextStyleInline,
					Text:  indent(b.Level - 1),
				}}, item.Texts...)
			}
			list.Items = append(list.Items, item)
			continue
		}
		flush()

		switch b.Kind {
		case render.Heading:
			style := widget.RichTextStyleHeading
			if b.Level > 1 {
				style = widget.RichTextStyleSubHeading
			}
			out = append(out, &widget.TextSegment{Style: style, Text: b.Text()})
		case render.CodeBlock:
			out = append(out, &widget.TextSegment{Style: widget.RichTextStyleCodeBlock, Text: b.Text()})
		case render.Quote:
			out = append(out, &widget.TextSegment{Style: widget.RichTextStyleBlockquote, Text: b.Text()})
		case render.Rule:
			out = append(out, &widget.SeparatorSegment{})
		default:
			out = append(out, closeParagraph(inlineSegments(b, widget.RichTextStyleInline))...)
		}
	}
	flush()
	return out
}

func inlineSegments(b render.Block, base widget.RichTextStyle) []widget.RichTextSegment {
	segs := make([]widget.RichTextSegment, 0, len(b.Inlines))
	for _, in := range b.Inlines {
		style := base
		switch in.Style {
		case render.Strong:
			style = widget.RichTextStyleStrong
		case render.Emphasis:
			style = widget.RichTextStyleEmphasis
		case render.Code:
			style = widget.RichTextStyleCodeInline
		}
		segs = append(segs, &widget.TextSegment{Style: style, Text: in.Text})
	}
	return segs
}

// closeParagraph marks the last inline segment as ending the line.
func closeParagraph(segs []widget.RichTextSegment) []widget.RichTextSegment {
	if len(segs) == 0 {
		return []widget.RichTextSegment{&widget.TextSegment{Style: widget.RichTextStyleParagraph}}
	}
	last := segs[len(segs)-1].(*widget.TextSegment)
	style := last.Style
	style.Inline = false
	last.Style = style
	return segs
}

func indent(depth int) string { return strings.Repeat("    ", depth) }
