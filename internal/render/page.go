// Package render lays a report document out as fixed-size A4 pages and
// renders those pages as preview HTML.
//
// Layout and capture are separate: Layout produces pages of positioned
// regions in CSS pixels, and both the HTML preview and the export
// rasterizers draw from that one description.
package render

// A4 canvas size in CSS pixels at 96 DPI.
const (
	PageWidth  = 794
	PageHeight = 1123
)

// FirstContentPage is the number of the first content page: the cover is
// page 1 and the table of contents page 2.
const FirstContentPage = 3

// CellPadding is the inner padding of table cells.
const CellPadding = 6.0

// PageKind identifies the role of a page in the fixed sequence.
type PageKind string

const (
	PageCover    PageKind = "cover"
	PageContents PageKind = "contents"
	PageContent  PageKind = "content"
	PageClosing  PageKind = "closing"
)

// RegionKind is the type of a drawable region.
type RegionKind string

const (
	RegionHeading RegionKind = "heading"
	RegionText    RegionKind = "text"
	RegionTable   RegionKind = "table"
	RegionImage   RegionKind = "image"
	RegionList    RegionKind = "list"
	RegionRule    RegionKind = "rule"
)

// Align is horizontal text alignment inside a region box.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Box is a rectangle in canvas pixels, origin at the top-left of the page.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Bottom returns the y coordinate of the lower edge.
func (b Box) Bottom() float64 {
	return b.Y + b.H
}

// TextStyle describes how the lines of a region are set.
type TextStyle struct {
	Size       float64 `json:"size"`
	Bold       bool    `json:"bold,omitempty"`
	Mono       bool    `json:"mono,omitempty"`
	LineHeight float64 `json:"line_height"`
	Color      string  `json:"color,omitempty"`
	Align      Align   `json:"align,omitempty"`
}

// Table is the payload of a table region. Header is repeated on every
// page a table is split across.
type Table struct {
	Header     []string   `json:"header"`
	Rows       [][]string `json:"rows"`
	ColWidths  []float64  `json:"col_widths"`
	HeaderH    float64    `json:"header_h"`
	RowHeights []float64  `json:"row_heights"`
	// Cells holds wrapped cell lines as [row][col][line]; row 0 is the header.
	Cells     [][][]string `json:"cells"`
	Continued bool         `json:"continued,omitempty"`
}

// Region is one drawable element of a page.
type Region struct {
	Kind      RegionKind `json:"kind"`
	Box       Box        `json:"box"`
	SectionID string     `json:"section_id,omitempty"`
	Style     TextStyle  `json:"style"`

	// heading and text
	Lines []string `json:"lines,omitempty"`
	// list items, each already wrapped
	Items [][]string `json:"items,omitempty"`
	Table *Table     `json:"table,omitempty"`
	// image source: a data: URI or an external URL
	Src string `json:"src,omitempty"`
	// section edit affordance anchor; only set on the first region of a section
	Editable bool `json:"editable,omitempty"`
}

// Page is one fixed-size page.
type Page struct {
	Number  int      `json:"number"`
	Kind    PageKind `json:"kind"`
	Regions []Region `json:"regions"`
}
