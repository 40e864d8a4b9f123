// Package compose drives the report wizard from a terminal. Every change
// goes through the same Assembler the HTTP API uses, so drafts started in
// one surface can be finished in the other.
package compose

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/internal/editor"
	"github.com/verustcode/reportdesk/internal/export"
	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/internal/wizard"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/logger"
)

// Menu keys
const (
	keyAdd      = "add"
	keyBack     = "back"
	keyFinalize = "finalize"
	keyExport   = "export"
	keyReset    = "reset"
	keyQuit     = "quit"
	keyDone     = "done"
	editPrefix  = "edit:"
)

// Exporter renders a finalized document and returns where it was written.
type Exporter func(ctx context.Context, doc *model.Document) (string, error)

// Composer runs the wizard screens over one form.
type Composer struct {
	form   *wizard.Assembler
	p      Prompter
	export Exporter
	log    *zap.Logger
}

// New returns a Composer. export may be nil, in which case finalized
// reports can only be left for the API to export.
func New(form *wizard.Assembler, p Prompter, export Exporter) *Composer {
	return &Composer{
		form:   form,
		p:      p,
		export: export,
		log:    logger.WithForm(form.FormID()),
	}
}

// errQuit ends Run without error.
var errQuit = stderrors.New("quit")

// Run shows screens until the user quits. The draft is flushed on return.
func (c *Composer) Run(ctx context.Context) error {
	defer func() {
		if err := c.form.Flush(context.WithoutCancel(ctx)); err != nil {
			c.log.Warn("Failed to save draft", zap.Error(err))
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		switch c.form.Step() {
		case model.StepCapturingHeader:
			err = c.header()
		case model.StepEditingSections:
			err = c.sections()
		case model.StepFinalized:
			err = c.finished(ctx)
		}
		if err == nil {
			continue
		}
		if stderrors.Is(err, errQuit) || stderrors.Is(err, ErrAborted) {
			c.p.Notify("Draft saved as " + c.form.FormID())
			return nil
		}
		return err
	}
}

func (c *Composer) header() error {
	h := c.form.Document().Header
	if err := c.p.Header(&h); err != nil {
		return err
	}
	logo, err := resolveImage(h.LogoImage)
	if err != nil {
		c.p.Notify(err.Error())
		h.LogoImage = ""
	} else {
		h.LogoImage = logo
	}
	if err := c.form.SetHeader(h); err != nil {
		c.p.Notify(message(err))
		return nil
	}

	err = c.form.Next()
	if err == nil {
		return nil
	}
	if !errors.HasCode(err, errors.ErrCodeHeaderIncomplete) {
		return err
	}
	missing := model.MissingHeaderFields(c.form.Document().Header)
	c.p.Notify("Missing: " + strings.Join(missing, ", "))
	again, err := c.p.Confirm("Keep editing the header?")
	if err != nil {
		return err
	}
	if !again {
		return errQuit
	}
	return nil
}

func (c *Composer) sections() error {
	doc := c.form.Document()
	options := []Option{{Key: keyAdd, Label: "Add section"}}
	for i, s := range doc.Sections {
		options = append(options, Option{
			Key:   editPrefix + s.ID,
			Label: fmt.Sprintf("%d. %s (%s)", i+1, displayTitle(s), s.Variant().Label()),
		})
	}
	options = append(options,
		Option{Key: keyBack, Label: "Back to header"},
		Option{Key: keyFinalize, Label: "Finalize"},
		Option{Key: keyQuit, Label: "Save and quit"},
	)

	choice, err := c.p.Menu(doc.Header.Title, options)
	if err != nil {
		return err
	}
	switch {
	case choice == keyAdd:
		return c.addSection()
	case strings.HasPrefix(choice, editPrefix):
		return c.editSection(strings.TrimPrefix(choice, editPrefix))
	case choice == keyBack:
		return c.form.Back()
	case choice == keyFinalize:
		if _, err := c.form.Finalize(); err != nil {
			c.p.Notify(message(err))
		}
		return nil
	case choice == keyQuit:
		return errQuit
	}
	return nil
}

func (c *Composer) addSection() error {
	title, err := c.p.Input("Section title", "", nil)
	if err != nil {
		return err
	}
	variants := make([]Option, 0, 3)
	for _, v := range model.Variants() {
		variants = append(variants, Option{Key: string(v), Label: v.Label()})
	}
	choice, err := c.p.Menu("Content", variants)
	if err != nil {
		return err
	}
	v, err := model.ParseVariant(choice)
	if err != nil {
		return err
	}
	s, err := c.form.AddSection(title, v)
	if err != nil {
		c.p.Notify(message(err))
		return nil
	}
	return c.editSection(s.ID)
}

// editSection loops on one section until the user picks done.
func (c *Composer) editSection(id string) error {
	for {
		s := c.form.Document().Section(id)
		if s == nil {
			return nil
		}
		choice, err := c.p.Menu(displayTitle(s), sectionOptions(s))
		if err != nil {
			return err
		}
		if choice == keyDone {
			return nil
		}
		removed, err := c.applySectionChoice(s, choice)
		if err != nil {
			if _, ok := errors.AsAppError(err); !ok {
				return err
			}
			c.p.Notify(message(err))
		}
		if removed {
			return nil
		}
	}
}

func sectionOptions(s *model.Section) []Option {
	opts := []Option{{Key: "title", Label: "Rename"}}
	switch s.Variant() {
	case model.VariantParameterTable:
		opts = append(opts,
			Option{Key: "add_row", Label: "Add row"},
			Option{Key: "cell", Label: "Edit cell"},
			Option{Key: "delete_row", Label: "Delete row"},
		)
	case model.VariantCustomTable:
		opts = append(opts,
			Option{Key: "add_row", Label: "Add row"},
			Option{Key: "add_column", Label: "Add column"},
			Option{Key: "rename_column", Label: "Rename column"},
			Option{Key: "cell", Label: "Edit cell"},
			Option{Key: "delete_row", Label: "Delete row"},
			Option{Key: "delete_column", Label: "Delete column"},
		)
	case model.VariantNarrative:
		opts = append(opts, Option{Key: "text", Label: "Edit text"})
	}
	return append(opts,
		Option{Key: "slots", Label: fmt.Sprintf("Image slots (%d)", len(s.Images))},
		Option{Key: "image", Label: "Set image"},
		Option{Key: "up", Label: "Move up"},
		Option{Key: "down", Label: "Move down"},
		Option{Key: "remove", Label: "Remove section"},
		Option{Key: keyDone, Label: "Done"},
	)
}

// applySectionChoice performs one section menu action. It reports whether
// the section was removed.
func (c *Composer) applySectionChoice(s *model.Section, choice string) (bool, error) {
	ops := func(ops ...editor.Op) error { return c.form.ApplyOps(s.ID, ops...) }

	switch choice {
	case "title":
		title, err := c.p.Input("Section title", s.Title, nil)
		if err != nil {
			return false, err
		}
		return false, ops(editor.Op{Kind: editor.OpSetTitle, Value: title})

	case "add_row":
		return false, ops(editor.Op{Kind: editor.OpAddRow})

	case "delete_row":
		row, err := c.askIndex("Row number", rowCount(s))
		if err != nil {
			return false, err
		}
		return false, ops(editor.Op{Kind: editor.OpDeleteRow, Row: row})

	case "cell":
		return false, c.editCell(s)

	case "add_column":
		name, err := c.p.Input("Column header", "", nil)
		if err != nil {
			return false, err
		}
		return false, ops(editor.Op{Kind: editor.OpAddColumn, Value: name})

	case "rename_column", "delete_column":
		col, err := c.askColumn(s)
		if err != nil {
			return false, err
		}
		if choice == "delete_column" {
			return false, ops(editor.Op{Kind: editor.OpDeleteColumn, Column: col})
		}
		name, err := c.p.Input("Column header", columnNames(s)[col], nil)
		if err != nil {
			return false, err
		}
		return false, ops(editor.Op{Kind: editor.OpRenameColumn, Column: col, Value: name})

	case "text":
		current := ""
		if n, ok := s.Content.(*model.Narrative); ok {
			current = n.Text
		}
		text, err := c.p.Text("Text", current)
		if err != nil {
			return false, err
		}
		return false, ops(editor.Op{Kind: editor.OpSetNarrative, Value: text})

	case "slots":
		raw, err := c.p.Input("Number of image slots", strconv.Itoa(len(s.Images)), nil)
		if err != nil {
			return false, err
		}
		// staged then committed, the same sequence as the form's field blur
		return false, ops(
			editor.Op{Kind: editor.OpStageSlotCount, Value: raw},
			editor.Op{Kind: editor.OpCommitSlotCount},
		)

	case "image":
		return false, c.setImage(s)

	case "up", "down":
		to := c.form.Document().SectionIndex(s.ID) - 1
		if choice == "down" {
			to += 2
		}
		return false, c.form.MoveSection(s.ID, to)

	case "remove":
		ok, err := c.p.Confirm(fmt.Sprintf("Remove %q?", displayTitle(s)))
		if err != nil || !ok {
			return false, err
		}
		return true, c.form.RemoveSection(s.ID)
	}
	return false, nil
}

func (c *Composer) editCell(s *model.Section) error {
	row, err := c.askIndex("Row number", rowCount(s))
	if err != nil {
		return err
	}
	col, err := c.askColumn(s)
	if err != nil {
		return err
	}
	value, err := c.p.Input("Value", cellValue(s, row, col), nil)
	if err != nil {
		return err
	}
	return c.form.ApplyOps(s.ID, editor.Op{Kind: editor.OpUpdateCell, Row: row, Column: col, Value: value})
}

func (c *Composer) setImage(s *model.Section) error {
	if len(s.Images) == 0 {
		c.p.Notify("Reserve an image slot first")
		return nil
	}
	slot, err := c.askIndex("Slot number", len(s.Images))
	if err != nil {
		return err
	}
	src, err := c.p.Input("Image", s.Images[slot], nil)
	if err != nil {
		return err
	}
	resolved, err := resolveImage(src)
	if err != nil {
		c.p.Notify(err.Error())
		return nil
	}
	return c.form.EditSection(s.ID, func(e *editor.Editor) error {
		return e.SetImageAt(slot, resolved)
	})
}

// askIndex asks for a 1-based position within n and returns it 0-based.
func (c *Composer) askIndex(title string, n int) (int, error) {
	if n == 0 {
		return 0, errors.New(errors.ErrCodeIndexOutOfRange, "nothing to pick from")
	}
	raw, err := c.p.Input(fmt.Sprintf("%s (1-%d)", title, n), "1", func(v string) error {
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || i < 1 || i > n {
			return fmt.Errorf("enter a number from 1 to %d", n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || i < 1 || i > n {
		return 0, errors.New(errors.ErrCodeIndexOutOfRange, fmt.Sprintf("%q is not between 1 and %d", raw, n))
	}
	return i - 1, nil
}

func (c *Composer) askColumn(s *model.Section) (int, error) {
	names := columnNames(s)
	if len(names) == 0 {
		return 0, errors.New(errors.ErrCodeIndexOutOfRange, "the table has no columns")
	}
	options := make([]Option, len(names))
	for i, n := range names {
		label := n
		if label == "" {
			label = fmt.Sprintf("Column %d", i+1)
		}
		options[i] = Option{Key: strconv.Itoa(i), Label: label}
	}
	choice, err := c.p.Menu("Column", options)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(choice)
}

func (c *Composer) finished(ctx context.Context) error {
	options := []Option{}
	if c.export != nil {
		options = append(options, Option{Key: keyExport, Label: "Export PDF"})
	}
	options = append(options,
		Option{Key: keyReset, Label: "Start a new report"},
		Option{Key: keyQuit, Label: "Quit"},
	)
	choice, err := c.p.Menu("Report finalized", options)
	if err != nil {
		return err
	}

	switch choice {
	case keyExport:
		path, err := c.export(ctx, c.form.Document())
		if err != nil {
			c.log.Error("Export failed", zap.Error(err))
			c.p.Notify("Export failed: " + message(err))
			return nil
		}
		c.p.Notify("Saved " + path)
	case keyReset:
		ok, err := c.p.Confirm("Discard this report and start over?")
		if err != nil || !ok {
			return err
		}
		return c.form.Reset(ctx)
	case keyQuit:
		return errQuit
	}
	return nil
}

// resolveImage turns a local file path into a data URI; URLs and data URIs
// pass through unchanged.
func resolveImage(src string) (string, error) {
	src = strings.TrimSpace(src)
	if src == "" || editor.ValidateImageSource(src) == nil {
		return src, nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("cannot read image %s: %w", src, err)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", src, mt.String())
	}
	return export.ToDataURI(data, mt.String()), nil
}

func message(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

func displayTitle(s *model.Section) string {
	if s.Title == "" {
		return "Untitled section"
	}
	return s.Title
}

func rowCount(s *model.Section) int {
	switch t := s.Content.(type) {
	case *model.ParameterTable:
		return len(t.Rows)
	case *model.CustomTable:
		return len(t.Rows)
	}
	return 0
}

func columnNames(s *model.Section) []string {
	switch t := s.Content.(type) {
	case *model.ParameterTable:
		return t.Columns
	case *model.CustomTable:
		return t.ColumnHeaders
	}
	return nil
}

func cellValue(s *model.Section, row, col int) string {
	switch t := s.Content.(type) {
	case *model.ParameterTable:
		if row < len(t.Rows) && col < len(t.Columns) {
			return t.Rows[row][t.Columns[col]]
		}
	case *model.CustomTable:
		if row < len(t.Rows) && col < len(t.Rows[row]) {
			return t.Rows[row][col]
		}
	}
	return ""
}
