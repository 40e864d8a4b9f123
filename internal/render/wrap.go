package render

import (
	"strings"
	"unicode/utf8"
)

// wrap breaks s into lines no wider than width. Explicit newlines are
// kept; a word wider than the line is broken between runes.
func wrap(m Measurer, s string, style TextStyle, width float64) []string {
	if width <= 0 {
		return []string{s}
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, word := range words {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if m.Width(candidate, style) <= width {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			if m.Width(word, style) <= width {
				line = word
				continue
			}
			pieces := breakWord(m, word, style, width)
			lines = append(lines, pieces[:len(pieces)-1]...)
			line = pieces[len(pieces)-1]
		}
		lines = append(lines, line)
	}
	return lines
}

// breakWord splits a single word into pieces that each fit width. Every
// piece holds at least one rune.
func breakWord(m Measurer, word string, style TextStyle, width float64) []string {
	var pieces []string
	for word != "" {
		end := len(word)
		for end > 0 && m.Width(word[:end], style) > width {
			_, size := utf8.DecodeLastRuneInString(word[:end])
			end -= size
		}
		if end == 0 {
			_, end = utf8.DecodeRuneInString(word)
		}
		pieces = append(pieces, word[:end])
		word = word[end:]
	}
	return pieces
}

func linesHeight(n int, style TextStyle) float64 {
	return float64(n) * style.Size * style.LineHeight
}
