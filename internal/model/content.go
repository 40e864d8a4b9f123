package model

import (
	"encoding/json"
	"fmt"
)

// Variant tags which content kind a section carries.
type Variant string

const (
	VariantParameterTable Variant = "parameter_table"
	VariantCustomTable    Variant = "custom_table"
	VariantNarrative      Variant = "narrative"
)

// Default column names of a fresh parameter table.
const (
	ParameterColumn = "Parameter"
	DetailsColumn   = "Details"
)

// DefaultCustomColumns is the column count of a fresh custom table.
const DefaultCustomColumns = 2

// Variants lists every content kind in display order.
func Variants() []Variant {
	return []Variant{VariantParameterTable, VariantCustomTable, VariantNarrative}
}

// ParseVariant converts a tag string to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantParameterTable, VariantCustomTable, VariantNarrative:
		return Variant(s), nil
	default:
		return "", fmt.Errorf("unknown section variant %q", s)
	}
}

// Label is the human-readable variant name.
func (v Variant) Label() string {
	switch v {
	case VariantParameterTable:
		return "Parameter table"
	case VariantCustomTable:
		return "Custom table"
	case VariantNarrative:
		return "Narrative"
	default:
		return string(v)
	}
}

// Content is the closed set of section payloads. Only the three types in this
// file implement it.
type Content interface {
	Variant() Variant
	Clone() Content
	isContent()
}

// ParameterTable is a two-or-more column key/value table. Rows map a column
// name to its cell value; a missing key renders as an empty cell.
type ParameterTable struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

// CustomTable is a free grid. len(ColumnHeaders) == ColumnCount and every row
// has ColumnCount cells.
type CustomTable struct {
	ColumnCount   int        `json:"column_count"`
	ColumnHeaders []string   `json:"column_headers"`
	Rows          [][]string `json:"rows"`
}

// Narrative is a single block of Markdown text.
type Narrative struct {
	Text string `json:"text"`
}

func (*ParameterTable) Variant() Variant { return VariantParameterTable }
func (*CustomTable) Variant() Variant    { return VariantCustomTable }
func (*Narrative) Variant() Variant      { return VariantNarrative }

func (*ParameterTable) isContent() {}
func (*CustomTable) isContent()    {}
func (*Narrative) isContent()      {}

// Clone returns a deep copy.
func (t *ParameterTable) Clone() Content {
	out := &ParameterTable{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]map[string]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		cp := make(map[string]string, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// Clone returns a deep copy.
func (t *CustomTable) Clone() Content {
	out := &CustomTable{
		ColumnCount:   t.ColumnCount,
		ColumnHeaders: append([]string(nil), t.ColumnHeaders...),
		Rows:          make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// Clone returns a copy.
func (n *Narrative) Clone() Content {
	return &Narrative{Text: n.Text}
}

// NewContent returns the fresh, empty value for v.
func NewContent(v Variant) (Content, error) {
	switch v {
	case VariantParameterTable:
		return NewParameterTable(), nil
	case VariantCustomTable:
		return NewCustomTable(DefaultCustomColumns), nil
	case VariantNarrative:
		return &Narrative{}, nil
	default:
		return nil, fmt.Errorf("unknown section variant %q", v)
	}
}

// NewParameterTable returns an empty Parameter/Details table.
func NewParameterTable() *ParameterTable {
	return &ParameterTable{
		Columns: []string{ParameterColumn, DetailsColumn},
		Rows:    []map[string]string{},
	}
}

// NewCustomTable returns an empty grid with n generically titled columns.
func NewCustomTable(n int) *CustomTable {
	if n < 0 {
		n = 0
	}
	headers := make([]string, n)
	for i := range headers {
		headers[i] = DefaultColumnHeader(i)
	}
	return &CustomTable{ColumnCount: n, ColumnHeaders: headers, Rows: [][]string{}}
}

// DefaultColumnHeader names the column at index i ("Column 1" for i == 0).
func DefaultColumnHeader(i int) string {
	return fmt.Sprintf("Column %d", i+1)
}

// decodeContent decodes raw into the fresh content type for v.
func decodeContent(v Variant, raw json.RawMessage) (Content, error) {
	c, err := NewContent(v)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return c, nil
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("decode %s content: %w", v, err)
	}
	switch t := c.(type) {
	case *ParameterTable:
		if t.Rows == nil {
			t.Rows = []map[string]string{}
		}
	case *CustomTable:
		if t.Rows == nil {
			t.Rows = [][]string{}
		}
	}
	return c, nil
}
