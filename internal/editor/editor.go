// Package editor implements the per-section mutations of a report.
//
// Every operation validates its arguments before touching the section, so a
// returned error always means the section is unchanged.
package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/pkg/errors"
)

// Editor mutates one section in place.
type Editor struct {
	section *model.Section

	// staged slot count, applied only by CommitSlotCount
	slotDraft string
}

// New returns an editor bound to s.
func New(s *model.Section) *Editor {
	return &Editor{section: s}
}

// Section returns the section being edited.
func (e *Editor) Section() *model.Section {
	return e.section
}

// SetTitle replaces the section title. Empty titles are allowed.
func (e *Editor) SetTitle(title string) {
	e.section.Title = model.NormalizeText(title)
}

// SetVariant switches the content kind. The previous content is discarded
// and replaced by a fresh empty value; choosing the current variant is a no-op.
func (e *Editor) SetVariant(v model.Variant) error {
	if e.section.Variant() == v {
		return nil
	}
	c, err := model.NewContent(v)
	if err != nil {
		return errors.ErrValidation(err.Error())
	}
	e.section.Content = c
	return nil
}

// AddRow appends an empty row to either table variant.
func (e *Editor) AddRow() error {
	switch c := e.section.Content.(type) {
	case *model.ParameterTable:
		row := make(map[string]string, len(c.Columns))
		for _, col := range c.Columns {
			row[col] = ""
		}
		c.Rows = append(c.Rows, row)
	case *model.CustomTable:
		c.Rows = append(c.Rows, make([]string, c.ColumnCount))
	default:
		return e.mismatch("add a row to")
	}
	return nil
}

// DeleteRow removes row i. Tables may end up with zero rows.
func (e *Editor) DeleteRow(i int) error {
	switch c := e.section.Content.(type) {
	case *model.ParameterTable:
		if i < 0 || i >= len(c.Rows) {
			return errors.ErrIndex("row", i, len(c.Rows))
		}
		c.Rows = append(c.Rows[:i], c.Rows[i+1:]...)
	case *model.CustomTable:
		if i < 0 || i >= len(c.Rows) {
			return errors.ErrIndex("row", i, len(c.Rows))
		}
		c.Rows = append(c.Rows[:i], c.Rows[i+1:]...)
	default:
		return e.mismatch("delete a row from")
	}
	return nil
}

// UpdateCell sets the cell at (row, col). For a parameter table col indexes
// its column names.
func (e *Editor) UpdateCell(row, col int, value string) error {
	value = model.NormalizeText(value)
	switch c := e.section.Content.(type) {
	case *model.ParameterTable:
		if row < 0 || row >= len(c.Rows) {
			return errors.ErrIndex("row", row, len(c.Rows))
		}
		if col < 0 || col >= len(c.Columns) {
			return errors.ErrIndex("column", col, len(c.Columns))
		}
		if c.Rows[row] == nil {
			c.Rows[row] = make(map[string]string, len(c.Columns))
		}
		c.Rows[row][c.Columns[col]] = value
	case *model.CustomTable:
		if row < 0 || row >= len(c.Rows) {
			return errors.ErrIndex("row", row, len(c.Rows))
		}
		if col < 0 || col >= c.ColumnCount {
			return errors.ErrIndex("column", col, c.ColumnCount)
		}
		c.Rows[row][col] = value
	default:
		return e.mismatch("edit a cell of")
	}
	return nil
}

// AddColumn appends a column to a custom table, extending every row.
// An empty header gets the default "Column N" name.
func (e *Editor) AddColumn(header string) error {
	c, err := e.customTable("add a column to")
	if err != nil {
		return err
	}
	if header == "" {
		header = model.DefaultColumnHeader(c.ColumnCount)
	}
	c.ColumnHeaders = append(c.ColumnHeaders, model.NormalizeText(header))
	for i := range c.Rows {
		c.Rows[i] = append(c.Rows[i], "")
	}
	c.ColumnCount = len(c.ColumnHeaders)
	return nil
}

// DeleteColumn removes column i from the headers and from every row.
// Deleting the last column leaves zero-cell rows.
func (e *Editor) DeleteColumn(i int) error {
	c, err := e.customTable("delete a column from")
	if err != nil {
		return err
	}
	if i < 0 || i >= c.ColumnCount {
		return errors.ErrIndex("column", i, c.ColumnCount)
	}
	c.ColumnHeaders = append(c.ColumnHeaders[:i], c.ColumnHeaders[i+1:]...)
	for r, row := range c.Rows {
		c.Rows[r] = append(row[:i], row[i+1:]...)
	}
	c.ColumnCount = len(c.ColumnHeaders)
	return nil
}

// RenameColumn changes the header of column i.
func (e *Editor) RenameColumn(i int, name string) error {
	c, err := e.customTable("rename a column of")
	if err != nil {
		return err
	}
	if i < 0 || i >= c.ColumnCount {
		return errors.ErrIndex("column", i, c.ColumnCount)
	}
	c.ColumnHeaders[i] = model.NormalizeText(name)
	return nil
}

// SetColumnCount grows or shrinks a custom table to n columns. Shrinking
// drops trailing columns from the headers and from every row.
func (e *Editor) SetColumnCount(n int) error {
	c, err := e.customTable("resize")
	if err != nil {
		return err
	}
	if n < 0 {
		return errors.ErrValidation(fmt.Sprintf("column count %d must not be negative", n))
	}
	for c.ColumnCount < n {
		c.ColumnHeaders = append(c.ColumnHeaders, model.DefaultColumnHeader(c.ColumnCount))
		for i := range c.Rows {
			c.Rows[i] = append(c.Rows[i], "")
		}
		c.ColumnCount++
	}
	if n < c.ColumnCount {
		c.ColumnHeaders = c.ColumnHeaders[:n]
		for i := range c.Rows {
			c.Rows[i] = c.Rows[i][:n]
		}
		c.ColumnCount = n
	}
	return nil
}

// SetNarrativeText replaces the narrative block.
func (e *Editor) SetNarrativeText(text string) error {
	c, ok := e.section.Content.(*model.Narrative)
	if !ok {
		return e.mismatch("set narrative text on")
	}
	c.Text = model.NormalizeText(text)
	return nil
}

// ReserveSlots creates n empty image slots. It only acts while the section
// has no slots; once any exist it leaves the list unchanged.
func (e *Editor) ReserveSlots(n int) error {
	if n < 0 {
		return errors.ErrValidation(fmt.Sprintf("slot count %d must not be negative", n))
	}
	if len(e.section.Images) > 0 {
		return nil
	}
	slots := make([]string, n)
	for i := range slots {
		slots[i] = model.EmptyImageSlot
	}
	e.section.Images = slots
	return nil
}

// SetImageAt fills slot i with src (a data: URI or an external URL).
func (e *Editor) SetImageAt(i int, src string) error {
	if i < 0 || i >= len(e.section.Images) {
		return errors.ErrIndex("image", i, len(e.section.Images))
	}
	src = strings.TrimSpace(src)
	if err := ValidateImageSource(src); err != nil {
		return err
	}
	e.section.Images[i] = src
	return nil
}

// RemoveImageAt deletes slot i and shifts later slots down.
func (e *Editor) RemoveImageAt(i int) error {
	if i < 0 || i >= len(e.section.Images) {
		return errors.ErrIndex("image", i, len(e.section.Images))
	}
	e.section.Images = append(e.section.Images[:i], e.section.Images[i+1:]...)
	return nil
}

// StageSlotCount records the raw slot-count input without applying it.
// The slot count field commits on blur or Enter, unlike every other field.
func (e *Editor) StageSlotCount(raw string) {
	e.slotDraft = raw
}

// StagedSlotCount returns the uncommitted slot-count input.
func (e *Editor) StagedSlotCount() string {
	return e.slotDraft
}

// CommitSlotCount parses the staged input and reserves that many slots.
// The staged value is cleared whether or not it was valid.
func (e *Editor) CommitSlotCount() error {
	raw := strings.TrimSpace(e.slotDraft)
	e.slotDraft = ""
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return errors.ErrValidation(fmt.Sprintf("slot count %q is not a number", raw))
	}
	return e.ReserveSlots(n)
}

// ValidateImageSource accepts data: URIs and http(s) URLs.
func ValidateImageSource(src string) error {
	switch {
	case src == model.EmptyImageSlot:
		return nil
	case strings.HasPrefix(src, "data:image/"):
		return nil
	case strings.HasPrefix(src, "https://"), strings.HasPrefix(src, "http://"):
		return nil
	default:
		return errors.ErrValidation("image source must be a data:image URI or an http(s) URL")
	}
}

func (e *Editor) customTable(action string) (*model.CustomTable, error) {
	c, ok := e.section.Content.(*model.CustomTable)
	if !ok {
		return nil, e.mismatch(action)
	}
	return c, nil
}

func (e *Editor) mismatch(action string) error {
	return errors.New(errors.ErrCodeVariantMismatch,
		fmt.Sprintf("cannot %s a %s section", action, e.section.Variant().Label()))
}
