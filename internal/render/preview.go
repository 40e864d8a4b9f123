package render

import (
	"github.com/verustcode/reportdesk/internal/editor"
	"github.com/verustcode/reportdesk/internal/model"
)

// DocumentOwner is the live owner of a document. wizard.Assembler
// satisfies it.
type DocumentOwner interface {
	Document() *model.Document
	EditSection(id string, fn func(*editor.Editor) error) error
}

// Preview renders the owner's current document. It keeps no document of
// its own: every call lays out a fresh copy, so derived fields always come
// from the owner.
type Preview struct {
	owner    DocumentOwner
	layouter *Layouter
}

// NewPreview returns a Preview over owner.
func NewPreview(owner DocumentOwner, l *Layouter) *Preview {
	return &Preview{owner: owner, layouter: l}
}

// Pages lays out the owner's current document.
func (p *Preview) Pages() []Page {
	return p.layouter.Layout(p.owner.Document())
}

// EditSection routes an edit affordance to the owner and returns the
// pages laid out from the updated document.
func (p *Preview) EditSection(id string, fn func(*editor.Editor) error) ([]Page, error) {
	if err := p.owner.EditSection(id, fn); err != nil {
		return nil, err
	}
	return p.Pages(), nil
}

// HTML renders the current pages.
func (p *Preview) HTML(opts HTMLOptions) (string, error) {
	return HTML(p.Pages(), opts)
}
