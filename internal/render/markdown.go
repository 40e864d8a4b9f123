package render

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockList
	blockRule
	blockCode
	blockQuote
)

// mdBlock is one top-level block of narrative text. Inline markup is
// flattened to plain text; pages carry no rich inline runs.
type mdBlock struct {
	kind  blockKind
	level int
	text  string
	items []string
}

var markdown = goldmark.New()

// parseNarrative splits Markdown source into layout blocks.
func parseNarrative(source string) []mdBlock {
	src := []byte(source)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var blocks []mdBlock
	for child := doc.FirstChild(); child != nil; child = child.NextSibling() {
		blocks = appendBlock(blocks, child, src)
	}
	return blocks
}

func appendBlock(blocks []mdBlock, n ast.Node, src []byte) []mdBlock {
	switch node := n.(type) {
	case *ast.Heading:
		return append(blocks, mdBlock{kind: blockHeading, level: node.Level, text: inlineText(node, src)})
	case *ast.Paragraph, *ast.TextBlock:
		if t := inlineText(node, src); t != "" {
			return append(blocks, mdBlock{kind: blockParagraph, text: t})
		}
		return blocks
	case *ast.ThematicBreak:
		return append(blocks, mdBlock{kind: blockRule})
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return append(blocks, mdBlock{kind: blockCode, text: strings.TrimRight(rawLines(node, src), "\n")})
	case *ast.Blockquote:
		var parts []string
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			parts = append(parts, inlineText(c, src))
		}
		return append(blocks, mdBlock{kind: blockQuote, text: strings.Join(parts, "\n")})
	case *ast.List:
		b := mdBlock{kind: blockList}
		i := node.Start
		if i == 0 {
			i = 1
		}
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			marker := "•"
			if node.IsOrdered() {
				marker = strconv.Itoa(i) + "."
				i++
			}
			var parts []string
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				parts = append(parts, inlineText(c, src))
			}
			b.items = append(b.items, marker+" "+strings.Join(parts, " "))
		}
		return append(blocks, b)
	case *ast.HTMLBlock:
		// raw HTML is shown as its source text
		return append(blocks, mdBlock{kind: blockParagraph, text: strings.TrimSpace(rawLines(node, src))})
	default:
		if t := inlineText(node, src); t != "" {
			return append(blocks, mdBlock{kind: blockParagraph, text: t})
		}
		return blocks
	}
}

// inlineText concatenates the text of n's inline descendants.
func inlineText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			switch {
			case t.HardLineBreak():
				sb.WriteByte('\n')
			case t.SoftLineBreak():
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.AutoLink:
			sb.Write(t.URL(src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func rawLines(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}
