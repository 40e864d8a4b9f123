package editor

import (
	"fmt"

	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/pkg/errors"
)

// OpKind names one editor operation in a serialized request.
type OpKind string

const (
	OpSetTitle        OpKind = "set_title"
	OpSetVariant      OpKind = "set_variant"
	OpAddRow          OpKind = "add_row"
	OpDeleteRow       OpKind = "delete_row"
	OpUpdateCell      OpKind = "update_cell"
	OpAddColumn       OpKind = "add_column"
	OpDeleteColumn    OpKind = "delete_column"
	OpRenameColumn    OpKind = "rename_column"
	OpSetColumnCount  OpKind = "set_column_count"
	OpSetNarrative    OpKind = "set_narrative_text"
	OpReserveSlots    OpKind = "reserve_slots"
	OpSetImage        OpKind = "set_image"
	OpRemoveImage     OpKind = "remove_image"
	OpStageSlotCount  OpKind = "stage_slot_count"
	OpCommitSlotCount OpKind = "commit_slot_count"
)

// Op is a serialized editor call, as sent by the API and built by the
// terminal composer. Only the fields relevant to Kind are read.
type Op struct {
	Kind    OpKind        `json:"op" binding:"required"`
	Row     int           `json:"row,omitempty"`
	Column  int           `json:"column,omitempty"`
	Index   int           `json:"index,omitempty"`
	Count   int           `json:"count,omitempty"`
	Value   string        `json:"value,omitempty"`
	Variant model.Variant `json:"variant,omitempty"`
}

// Apply runs op against e.
func (op Op) Apply(e *Editor) error {
	switch op.Kind {
	case OpSetTitle:
		e.SetTitle(op.Value)
		return nil
	case OpSetVariant:
		return e.SetVariant(op.Variant)
	case OpAddRow:
		return e.AddRow()
	case OpDeleteRow:
		return e.DeleteRow(op.Row)
	case OpUpdateCell:
		return e.UpdateCell(op.Row, op.Column, op.Value)
	case OpAddColumn:
		return e.AddColumn(op.Value)
	case OpDeleteColumn:
		return e.DeleteColumn(op.Column)
	case OpRenameColumn:
		return e.RenameColumn(op.Column, op.Value)
	case OpSetColumnCount:
		return e.SetColumnCount(op.Count)
	case OpSetNarrative:
		return e.SetNarrativeText(op.Value)
	case OpReserveSlots:
		return e.ReserveSlots(op.Count)
	case OpSetImage:
		return e.SetImageAt(op.Index, op.Value)
	case OpRemoveImage:
		return e.RemoveImageAt(op.Index)
	case OpStageSlotCount:
		e.StageSlotCount(op.Value)
		return nil
	case OpCommitSlotCount:
		return e.CommitSlotCount()
	default:
		return errors.ErrValidation(fmt.Sprintf("unknown editor operation %q", op.Kind))
	}
}
