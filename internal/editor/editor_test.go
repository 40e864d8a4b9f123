package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/pkg/errors"
)

func newEditor(t *testing.T, v model.Variant) *Editor {
	t.Helper()
	s, err := model.NewSection("sec", "Title", v)
	require.NoError(t, err)
	return New(s)
}

func customOf(e *Editor) *model.CustomTable {
	return e.Section().Content.(*model.CustomTable)
}

// TestDeleteColumn_Scenario tests deleting column 1 of a two column table
func TestDeleteColumn_Scenario(t *testing.T) {
	e := newEditor(t, model.VariantCustomTable)
	require.NoError(t, e.AddRow())
	require.NoError(t, e.AddRow())
	require.NoError(t, e.UpdateCell(0, 1, "drop me"))

	require.NoError(t, e.DeleteColumn(1))

	c := customOf(e)
	assert.Equal(t, 1, c.ColumnCount)
	assert.Equal(t, []string{"Column 1"}, c.ColumnHeaders)
	for i, row := range c.Rows {
		assert.Len(t, row, 1, "row %d", i)
	}
	assert.True(t, model.ValidateCustomTable(c))
}

// TestColumnOps_KeepArity tests that every column operation preserves the
// header/row arity invariant
func TestColumnOps_KeepArity(t *testing.T) {
	e := newEditor(t, model.VariantCustomTable)
	require.NoError(t, e.AddRow())

	steps := []func() error{
		func() error { return e.AddColumn("Owner") },
		func() error { return e.AddRow() },
		func() error { return e.AddColumn("") },
		func() error { return e.DeleteColumn(0) },
		func() error { return e.SetColumnCount(6) },
		func() error { return e.SetColumnCount(2) },
		func() error { return e.RenameColumn(1, "Status") },
		func() error { return e.DeleteColumn(1) },
		func() error { return e.DeleteColumn(0) },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		c := customOf(e)
		assert.Equal(t, c.ColumnCount, len(c.ColumnHeaders), "step %d", i)
		assert.True(t, model.ValidateCustomTable(c), "step %d", i)
	}

	// Deleting the last column is allowed and leaves zero-cell rows
	c := customOf(e)
	assert.Equal(t, 0, c.ColumnCount)
	assert.Len(t, c.Rows, 2)
	for _, row := range c.Rows {
		assert.Empty(t, row)
	}
}

func TestAddColumn_DefaultHeader(t *testing.T) {
	e := newEditor(t, model.VariantCustomTable)
	require.NoError(t, e.AddColumn(""))
	assert.Equal(t, "Column 3", customOf(e).ColumnHeaders[2])
}

func TestSetColumnCount_Negative(t *testing.T) {
	e := newEditor(t, model.VariantCustomTable)
	err := e.SetColumnCount(-1)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	assert.Equal(t, 2, customOf(e).ColumnCount)
}

// TestSetVariant_ResetsContent tests that switching variant discards data
func TestSetVariant_ResetsContent(t *testing.T) {
	e := newEditor(t, model.VariantNarrative)
	require.NoError(t, e.SetNarrativeText("Findings were severe."))

	require.NoError(t, e.SetVariant(model.VariantParameterTable))

	pt, ok := e.Section().Content.(*model.ParameterTable)
	require.True(t, ok)
	assert.Equal(t, []string{model.ParameterColumn, model.DetailsColumn}, pt.Columns)
	assert.Empty(t, pt.Rows)

	// Switching back yields an empty narrative: the text is gone for good
	require.NoError(t, e.SetVariant(model.VariantNarrative))
	assert.Equal(t, "", e.Section().Content.(*model.Narrative).Text)
}

func TestSetVariant_SameVariantKeepsContent(t *testing.T) {
	e := newEditor(t, model.VariantNarrative)
	require.NoError(t, e.SetNarrativeText("keep"))
	require.NoError(t, e.SetVariant(model.VariantNarrative))
	assert.Equal(t, "keep", e.Section().Content.(*model.Narrative).Text)
}

func TestSetVariant_Unknown(t *testing.T) {
	e := newEditor(t, model.VariantNarrative)
	assert.Error(t, e.SetVariant("chart"))
	assert.Equal(t, model.VariantNarrative, e.Section().Variant())
}

func TestParameterTableRows(t *testing.T) {
	e := newEditor(t, model.VariantParameterTable)
	require.NoError(t, e.AddRow())
	require.NoError(t, e.UpdateCell(0, 0, "Region"))
	require.NoError(t, e.UpdateCell(0, 1, "APAC"))

	pt := e.Section().Content.(*model.ParameterTable)
	assert.Equal(t, map[string]string{"Parameter": "Region", "Details": "APAC"}, pt.Rows[0])

	assert.True(t, errors.HasCode(e.UpdateCell(0, 2, "x"), errors.ErrCodeIndexOutOfRange))
	assert.True(t, errors.HasCode(e.UpdateCell(3, 0, "x"), errors.ErrCodeIndexOutOfRange))

	require.NoError(t, e.DeleteRow(0))
	assert.Empty(t, pt.Rows, "rows may reach zero")
	assert.Error(t, e.DeleteRow(0))
}

// TestVariantMismatch tests that operations for other variants are refused
func TestVariantMismatch(t *testing.T) {
	param := newEditor(t, model.VariantParameterTable)
	narrative := newEditor(t, model.VariantNarrative)

	tests := []struct {
		name string
		fn   func() error
	}{
		{"add column on parameter table", func() error { return param.AddColumn("x") }},
		{"delete column on parameter table", func() error { return param.DeleteColumn(0) }},
		{"rename column on parameter table", func() error { return param.RenameColumn(0, "x") }},
		{"narrative text on table", func() error { return param.SetNarrativeText("x") }},
		{"add row on narrative", func() error { return narrative.AddRow() }},
		{"delete row on narrative", func() error { return narrative.DeleteRow(0) }},
		{"update cell on narrative", func() error { return narrative.UpdateCell(0, 0, "x") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.HasCode(tt.fn(), errors.ErrCodeVariantMismatch))
		})
	}
}

// TestFailedOperation_NoPartialWrite tests that a refused call leaves the section unchanged
func TestFailedOperation_NoPartialWrite(t *testing.T) {
	e := newEditor(t, model.VariantCustomTable)
	require.NoError(t, e.AddRow())
	before := e.Section().Clone()

	assert.Error(t, e.DeleteColumn(5))
	assert.Error(t, e.RenameColumn(-1, "x"))
	assert.Error(t, e.UpdateCell(0, 9, "x"))
	assert.Error(t, e.SetImageAt(0, "https://example.com/a.png"))

	assert.Equal(t, before, e.Section())
}

// TestReserveSlots_Idempotent tests that a second reservation is a no-op
func TestReserveSlots_Idempotent(t *testing.T) {
	e := newEditor(t, model.VariantNarrative)

	require.NoError(t, e.ReserveSlots(3))
	require.NoError(t, e.SetImageAt(1, "https://example.com/chart.png"))
	before := append([]string(nil), e.Section().Images...)

	require.NoError(t, e.ReserveSlots(5))
	assert.Equal(t, before, e.Section().Images)

	assert.Error(t, e.ReserveSlots(-1))
}

func TestReserveSlots_Zero(t *testing.T) {
	e := newEditor(t, model.VariantNarrative)
	require.NoError(t, e.ReserveSlots(0))
	assert.Empty(t, e.Section().Images)

	// Still zero slots, so a later reservation acts
	require.NoError(t, e.ReserveSlots(2))
	assert.Len(t, e.Section().Images, 2)
}

func TestImageSlots(t *testing.T) {
	e := newEditor(t, model.VariantNarrative)
	require.NoError(t, e.ReserveSlots(3))
	require.NoError(t, e.SetImageAt(0, "data:image/png;base64,AAAA"))
	require.NoError(t, e.SetImageAt(2, "  https://cdn.example.com/c.png "))

	assert.Error(t, e.SetImageAt(1, "file:///etc/passwd"))
	assert.Error(t, e.SetImageAt(3, "https://example.com/x.png"))

	// Removal compacts the list
	require.NoError(t, e.RemoveImageAt(0))
	assert.Equal(t, []string{model.EmptyImageSlot, "https://cdn.example.com/c.png"}, e.Section().Images)
	assert.Error(t, e.RemoveImageAt(2))
}

// TestSlotCount_CommitOnly tests that staged slot input has no effect until committed
func TestSlotCount_CommitOnly(t *testing.T) {
	e := newEditor(t, model.VariantNarrative)

	e.StageSlotCount("4")
	assert.Empty(t, e.Section().Images, "staging must not live-apply")
	assert.Equal(t, "4", e.StagedSlotCount())

	require.NoError(t, e.CommitSlotCount())
	assert.Len(t, e.Section().Images, 4)
	assert.Equal(t, "", e.StagedSlotCount())

	e.StageSlotCount("abc")
	assert.Error(t, e.CommitSlotCount())
	assert.Equal(t, "", e.StagedSlotCount())

	// Nothing staged is a no-op
	assert.NoError(t, e.CommitSlotCount())
}

func TestSetTitle_Normalizes(t *testing.T) {
	e := newEditor(t, model.VariantNarrative)
	e.SetTitle("Résumé")
	assert.Equal(t, "Résumé", e.Section().Title)

	e.SetTitle("")
	assert.Equal(t, "", e.Section().Title)
}
