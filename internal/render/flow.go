package render

import (
	"github.com/verustcode/reportdesk/internal/model"
)

// flow places regions top to bottom across content pages, opening a new
// page when the next region does not fit.
type flow struct {
	m     Measurer
	pages []Page
	y     float64

	// section being placed and whether its edit anchor is still unset
	sectionID string
	anchor    bool
}

// layoutContent flows every section and returns the content pages with
// the page number each section starts on.
func (l *Layouter) layoutContent(sections []*model.Section) ([]Page, map[string]int) {
	f := &flow{m: l.m, y: contentTop}
	starts := make(map[string]int, len(sections))

	for i, s := range sections {
		if i > 0 && !f.fresh() {
			f.y += sectionGap
		}
		f.sectionID = s.ID
		f.anchor = true
		f.placeSection(s)
		starts[s.ID] = f.startPage(s.ID)
	}
	return f.pages, starts
}

func (f *flow) startPage(sectionID string) int {
	for i, p := range f.pages {
		for _, r := range p.Regions {
			if r.SectionID == sectionID {
				return FirstContentPage + i
			}
		}
	}
	return FirstContentPage + len(f.pages)
}

func (f *flow) placeSection(s *model.Section) {
	if s.Title != "" {
		lines := wrap(f.m, s.Title, styleSection, contentWidth)
		// keep the heading with at least one line of what follows
		need := linesHeight(len(lines), styleSection) + linesHeight(1, styleBody) + blockGap
		if !f.fresh() && f.remaining() < need {
			f.newPage()
		}
		f.placeLines(RegionHeading, lines, styleSection, 0)
	}

	switch c := s.Content.(type) {
	case *model.ParameterTable:
		rows := make([][]string, len(c.Rows))
		for i, row := range c.Rows {
			cells := make([]string, len(c.Columns))
			for j, col := range c.Columns {
				cells[j] = row[col]
			}
			rows[i] = cells
		}
		f.placeTable(c.Columns, rows)
	case *model.CustomTable:
		if c.ColumnCount > 0 {
			f.placeTable(c.ColumnHeaders, c.Rows)
		}
	case *model.Narrative:
		f.placeNarrative(c.Text)
	}

	f.placeImages(s.Images)

	if f.anchor {
		// nothing drawable: keep one blank line so the section stays editable
		f.placeLines(RegionText, []string{""}, styleBody, 0)
	}
}

func (f *flow) placeNarrative(text string) {
	for _, b := range parseNarrative(text) {
		switch b.kind {
		case blockHeading:
			style := narrativeHeadingStyle(b.level)
			lines := wrap(f.m, b.text, style, contentWidth)
			need := linesHeight(len(lines), style) + linesHeight(1, styleBody)
			if !f.fresh() && f.remaining() < need {
				f.newPage()
			}
			f.placeLines(RegionHeading, lines, style, 0)
		case blockParagraph:
			f.placeLines(RegionText, wrap(f.m, b.text, styleBody, contentWidth), styleBody, 0)
		case blockQuote:
			const indent = 16.0
			f.placeLines(RegionText, wrap(f.m, b.text, styleQuote, contentWidth-indent), styleQuote, indent)
		case blockCode:
			f.placeLines(RegionText, wrap(f.m, b.text, styleCode, contentWidth), styleCode, 0)
		case blockList:
			f.placeList(b.items)
		case blockRule:
			f.placeRule()
		}
	}
}

func narrativeHeadingStyle(level int) TextStyle {
	switch level {
	case 1:
		return TextStyle{Size: 18, Bold: true, LineHeight: 1.35}
	case 2:
		return TextStyle{Size: 16, Bold: true, LineHeight: 1.35}
	default:
		return TextStyle{Size: 14, Bold: true, LineHeight: 1.4}
	}
}

// placeLines places lines as one or more regions, splitting between lines
// at page breaks.
func (f *flow) placeLines(kind RegionKind, lines []string, style TextStyle, indent float64) {
	lh := linesHeight(1, style)
	for len(lines) > 0 {
		fit := int(f.remaining() / lh)
		if fit < 1 {
			if !f.fresh() {
				f.newPage()
				continue
			}
			fit = 1
		}
		n := min(fit, len(lines))
		f.place(Region{
			Kind:  kind,
			Box:   Box{X: marginX + indent, W: contentWidth - indent, H: linesHeight(n, style)},
			Style: style,
			Lines: lines[:n],
		})
		lines = lines[n:]
		if len(lines) > 0 {
			f.newPage()
		}
	}
}

// placeList places list items, splitting between items.
func (f *flow) placeList(items []string) {
	const indent = 12.0
	wrapped := make([][]string, len(items))
	for i, item := range items {
		wrapped[i] = wrap(f.m, item, styleBody, contentWidth-indent)
	}
	lh := linesHeight(1, styleBody)

	for len(wrapped) > 0 {
		avail := f.remaining()
		n := 0
		h := 0.0
		for n < len(wrapped) && h+float64(len(wrapped[n]))*lh <= avail {
			h += float64(len(wrapped[n])) * lh
			n++
		}
		if n == 0 {
			if !f.fresh() {
				f.newPage()
				continue
			}
			n = 1
			h = min(float64(len(wrapped[0]))*lh, avail)
		}
		f.place(Region{
			Kind:  RegionList,
			Box:   Box{X: marginX + indent, W: contentWidth - indent, H: h},
			Style: styleBody,
			Items: wrapped[:n],
		})
		wrapped = wrapped[n:]
		if len(wrapped) > 0 {
			f.newPage()
		}
	}
}

func (f *flow) placeRule() {
	if f.remaining() < 1 {
		f.newPage()
	}
	f.place(Region{Kind: RegionRule, Box: Box{X: marginX, W: contentWidth, H: 1}})
}

// placeTable places a table, splitting it by rows across pages. Every
// part repeats the header row.
func (f *flow) placeTable(header []string, rows [][]string) {
	n := len(header)
	colW := contentWidth / float64(n)
	widths := make([]float64, n)
	for i := range widths {
		widths[i] = colW
	}

	headCells, headH := f.wrapRow(header, styleCellHead, colW)
	cells := make([][][]string, len(rows))
	heights := make([]float64, len(rows))
	for i, row := range rows {
		cells[i], heights[i] = f.wrapRow(row, styleCell, colW)
	}

	next := 0
	continued := false
	for {
		avail := f.remaining() - headH
		k := 0
		h := headH
		for next+k < len(rows) && heights[next+k] <= avail {
			avail -= heights[next+k]
			h += heights[next+k]
			k++
		}
		if k == 0 && next < len(rows) {
			if !f.fresh() {
				f.newPage()
				continue
			}
			// a single row taller than a page: clip it
			clipped := clipRow(cells[next], f.remaining()-headH)
			cells[next] = clipped
			heights[next] = rowHeight(clipped, styleCell)
			h += heights[next]
			k = 1
		}
		if k == 0 && next == 0 && !f.fresh() && f.remaining() < headH {
			f.newPage()
			continue
		}

		part := &Table{
			Header:     header,
			Rows:       rows[next : next+k],
			ColWidths:  widths,
			HeaderH:    headH,
			RowHeights: heights[next : next+k],
			Cells:      append([][][]string{headCells}, cells[next:next+k]...),
			Continued:  continued,
		}
		f.place(Region{
			Kind:  RegionTable,
			Box:   Box{X: marginX, W: contentWidth, H: h},
			Style: styleCell,
			Table: part,
		})
		next += k
		if next >= len(rows) {
			return
		}
		f.newPage()
		continued = true
	}
}

func (f *flow) wrapRow(row []string, style TextStyle, colW float64) ([][]string, float64) {
	out := make([][]string, len(row))
	for i, cell := range row {
		out[i] = wrap(f.m, cell, style, colW-2*cellPad)
	}
	return out, rowHeight(out, style)
}

func rowHeight(cells [][]string, style TextStyle) float64 {
	most := 1
	for _, c := range cells {
		most = max(most, len(c))
	}
	return linesHeight(most, style) + 2*cellPad
}

func clipRow(cells [][]string, avail float64) [][]string {
	maxLines := max(1, int((avail-2*cellPad)/linesHeight(1, styleCell)))
	out := make([][]string, len(cells))
	for i, c := range cells {
		if len(c) > maxLines {
			c = c[:maxLines]
		}
		out[i] = c
	}
	return out
}

// placeImages lays filled image slots out two per row. Empty slots are
// placeholders and take no space.
func (f *flow) placeImages(images []string) {
	const perRow = 2
	w := (contentWidth - imageGap) / perRow
	h := w * 3 / 4

	var srcs []string
	for _, src := range images {
		if src != model.EmptyImageSlot {
			srcs = append(srcs, src)
		}
	}
	for i := 0; i < len(srcs); i += perRow {
		if f.remaining() < h && !f.fresh() {
			f.newPage()
		}
		y := f.y
		for j := i; j < min(i+perRow, len(srcs)); j++ {
			f.appendRegion(Region{
				Kind: RegionImage,
				Box:  Box{X: marginX + float64(j-i)*(w+imageGap), Y: y, W: w, H: h},
				Src:  srcs[j],
			})
		}
		f.y = y + h + blockGap
	}
}

// place sets r at the cursor and advances past it.
func (f *flow) place(r Region) {
	r.Box.Y = f.y
	f.appendRegion(r)
	f.y = r.Box.Bottom() + blockGap
}

func (f *flow) appendRegion(r Region) {
	if len(f.pages) == 0 {
		f.newPage()
	}
	r.SectionID = f.sectionID
	if f.anchor {
		r.Editable = true
		f.anchor = false
	}
	p := &f.pages[len(f.pages)-1]
	p.Regions = append(p.Regions, r)
}

func (f *flow) newPage() {
	f.pages = append(f.pages, Page{Kind: PageContent})
	f.y = contentTop
}

// fresh reports whether nothing has been placed on the current page.
func (f *flow) fresh() bool {
	return len(f.pages) == 0 || len(f.pages[len(f.pages)-1].Regions) == 0
}

func (f *flow) remaining() float64 {
	if len(f.pages) == 0 {
		return contentBottom - contentTop
	}
	return contentBottom - f.y
}
