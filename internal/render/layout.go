package render

import (
	"fmt"
	"strconv"

	"github.com/verustcode/reportdesk/consts"
	"github.com/verustcode/reportdesk/internal/model"
)

// Page geometry.
const (
	marginX       = 64.0
	contentTop    = 72.0
	contentBottom = PageHeight - 80.0
	contentWidth  = PageWidth - 2*marginX
	footerY       = PageHeight - 56.0

	sectionGap = 28.0
	blockGap   = 12.0
	cellPad    = CellPadding
	imageGap   = 16.0
)

// Text styles shared by layout and the rasterizers.
var (
	styleTitle    = TextStyle{Size: 34, Bold: true, LineHeight: 1.25, Align: AlignCenter}
	styleSubtitle = TextStyle{Size: 20, LineHeight: 1.35, Color: "#4b5563", Align: AlignCenter}
	styleMeta     = TextStyle{Size: 14, LineHeight: 1.6, Color: "#374151", Align: AlignCenter}
	stylePageHead = TextStyle{Size: 24, Bold: true, LineHeight: 1.3}
	styleSection  = TextStyle{Size: 20, Bold: true, LineHeight: 1.3}
	styleBody     = TextStyle{Size: 13, LineHeight: 1.5}
	styleQuote    = TextStyle{Size: 13, LineHeight: 1.5, Color: "#4b5563"}
	styleCode     = TextStyle{Size: 12, Mono: true, LineHeight: 1.45}
	styleCell     = TextStyle{Size: 12, LineHeight: 1.4}
	styleCellHead = TextStyle{Size: 12, Bold: true, LineHeight: 1.4}
	styleTOC      = TextStyle{Size: 15, LineHeight: 1.8}
	styleTOCPage  = TextStyle{Size: 15, LineHeight: 1.8, Align: AlignRight}
	styleFooter   = TextStyle{Size: 10, LineHeight: 1.4, Color: "#6b7280", Align: AlignRight}
	styleNotice   = TextStyle{Size: 14, LineHeight: 1.6, Color: "#374151"}
)

// ConfidentialityNotice is printed on the closing page.
const ConfidentialityNotice = consts.ConfidentialityNotice

// Layouter turns documents into pages.
type Layouter struct {
	m Measurer
}

// NewLayouter returns a Layouter that wraps text with m.
func NewLayouter(m Measurer) *Layouter {
	return &Layouter{m: m}
}

// Layout lays doc out with the default Go fonts.
func Layout(doc *model.Document) ([]Page, error) {
	fonts, err := DefaultFonts()
	if err != nil {
		return nil, err
	}
	return NewLayouter(fonts).Layout(doc), nil
}

// Layout returns the full page sequence: cover, contents, the content
// pages and the closing page. Pages are numbered from 1.
func (l *Layouter) Layout(doc *model.Document) []Page {
	content, starts := l.layoutContent(doc.Sections)

	pages := make([]Page, 0, len(content)+3)
	pages = append(pages, l.cover(doc.Header))
	pages = append(pages, l.contents(doc, starts))
	pages = append(pages, content...)
	pages = append(pages, l.closing(doc.Header))

	for i := range pages {
		pages[i].Number = i + 1
		if pages[i].Kind != PageCover {
			pages[i].Regions = append(pages[i].Regions, l.footer(pages[i].Number))
		}
	}
	return pages
}

func (l *Layouter) cover(h model.Header) Page {
	p := Page{Kind: PageCover}
	y := 150.0

	if h.LogoImage != "" {
		const logoW, logoH = 200.0, 120.0
		p.Regions = append(p.Regions, Region{
			Kind: RegionImage,
			Box:  Box{X: (PageWidth - logoW) / 2, Y: y, W: logoW, H: logoH},
			Src:  h.LogoImage,
		})
	}
	y = 340

	title := l.textRegion(RegionHeading, h.Title, styleTitle, marginX, y, contentWidth)
	p.Regions = append(p.Regions, title)
	y = title.Box.Bottom() + 16

	if h.Subtitle != "" {
		sub := l.textRegion(RegionText, h.Subtitle, styleSubtitle, marginX, y, contentWidth)
		p.Regions = append(p.Regions, sub)
		y = sub.Box.Bottom()
	}
	p.Regions = append(p.Regions, Region{
		Kind: RegionRule,
		Box:  Box{X: marginX + contentWidth/4, Y: y + 32, W: contentWidth / 2, H: 1},
	})

	meta := []string{
		"Prepared for: " + h.PreparedForName,
		"Prepared by: " + h.PreparedByName,
		"Issue date: " + h.IssueDate,
	}
	metaH := linesHeight(len(meta), styleMeta)
	p.Regions = append(p.Regions, Region{
		Kind:  RegionText,
		Box:   Box{X: marginX, Y: contentBottom - 120 - metaH, W: contentWidth, H: metaH},
		Style: styleMeta,
		Lines: meta,
	})
	return p
}

// tocEntry pairs a contents line with the page its section starts on.
type tocEntry struct {
	title string
	page  int
}

func (l *Layouter) contents(doc *model.Document, starts map[string]int) Page {
	p := Page{Kind: PageContents}
	head := l.textRegion(RegionHeading, "Table of Contents", stylePageHead, marginX, contentTop, contentWidth)
	p.Regions = append(p.Regions, head)

	// doc.TableOfContents holds the titles of the titled sections, in order
	var entries []tocEntry
	n := 0
	for _, s := range doc.Sections {
		if s.Title == "" {
			continue
		}
		if n >= len(doc.TableOfContents) {
			break
		}
		entries = append(entries, tocEntry{title: doc.TableOfContents[n], page: starts[s.ID]})
		n++
	}

	rowH := styleTOC.Size * styleTOC.LineHeight
	top := head.Box.Bottom() + 24
	perColumn := int((contentBottom - top) / rowH)
	columns := 1
	if len(entries) > perColumn {
		columns = 2
	}
	colW := (contentWidth - float64(columns-1)*24) / float64(columns)
	capacity := perColumn * columns

	overflow := 0
	if len(entries) > capacity {
		overflow = len(entries) - (capacity - 1)
		entries = entries[:capacity-1]
	}

	for i, e := range entries {
		col := i / perColumn
		x := marginX + float64(col)*(colW+24)
		y := top + float64(i%perColumn)*rowH
		label := l.fit(strconv.Itoa(i+1)+". "+e.title, styleTOC, colW-48)
		p.Regions = append(p.Regions,
			Region{Kind: RegionText, Box: Box{X: x, Y: y, W: colW - 48, H: rowH}, Style: styleTOC, Lines: []string{label}},
			Region{Kind: RegionText, Box: Box{X: x + colW - 48, Y: y, W: 48, H: rowH}, Style: styleTOCPage, Lines: []string{strconv.Itoa(e.page)}},
		)
	}
	if overflow > 0 {
		i := len(entries)
		x := marginX + float64(i/perColumn)*(colW+24)
		y := top + float64(i%perColumn)*rowH
		p.Regions = append(p.Regions, Region{
			Kind:  RegionText,
			Box:   Box{X: x, Y: y, W: colW, H: rowH},
			Style: styleQuote,
			Lines: []string{fmt.Sprintf("… and %d more", overflow)},
		})
	}
	return p
}

func (l *Layouter) closing(h model.Header) Page {
	p := Page{Kind: PageClosing}
	y := 420.0
	head := l.textRegion(RegionHeading, "Confidentiality Notice", stylePageHead, marginX, y, contentWidth)
	p.Regions = append(p.Regions, head)
	y = head.Box.Bottom() + 16

	notice := l.textRegion(RegionText, ConfidentialityNotice, styleNotice, marginX, y, contentWidth)
	p.Regions = append(p.Regions, notice)
	y = notice.Box.Bottom() + 24

	p.Regions = append(p.Regions, Region{Kind: RegionRule, Box: Box{X: marginX, Y: y, W: contentWidth, H: 1}})
	if h.PreparedByName != "" {
		p.Regions = append(p.Regions,
			l.textRegion(RegionText, "© "+h.PreparedByName, styleQuote, marginX, y+16, contentWidth))
	}
	return p
}

func (l *Layouter) footer(number int) Region {
	return Region{
		Kind:  RegionText,
		Box:   Box{X: marginX, Y: footerY, W: contentWidth, H: linesHeight(1, styleFooter)},
		Style: styleFooter,
		Lines: []string{"Page " + strconv.Itoa(number)},
	}
}

// textRegion wraps s into a region of width w at (x, y).
func (l *Layouter) textRegion(kind RegionKind, s string, style TextStyle, x, y, w float64) Region {
	lines := wrap(l.m, s, style, w)
	return Region{
		Kind:  kind,
		Box:   Box{X: x, Y: y, W: w, H: linesHeight(len(lines), style)},
		Style: style,
		Lines: lines,
	}
}

// fit truncates s with an ellipsis so it is no wider than w.
func (l *Layouter) fit(s string, style TextStyle, w float64) string {
	if l.m.Width(s, style) <= w {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && l.m.Width(string(r)+"…", style) > w {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
