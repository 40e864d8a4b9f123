package model

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// EmptyImageSlot marks a reserved image slot that has no source yet.
const EmptyImageSlot = ""

// Header is the cover metadata of a report. Every field except LogoImage is
// required before the wizard leaves the header step.
type Header struct {
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	PreparedForName string `json:"prepared_for_name"`
	PreparedByName  string `json:"prepared_by_name"`
	IssueDate       string `json:"issue_date"`
	LogoImage       string `json:"logo_image,omitempty"`
}

// Document is a report under composition. TableOfContents is derived from
// Sections and is only written by DeriveTableOfContents callers.
type Document struct {
	Header          Header     `json:"header"`
	TableOfContents []string   `json:"table_of_contents"`
	Sections        []*Section `json:"sections"`
}

// Section is one titled unit of report content.
type Section struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content Content  `json:"-"`
	Images  []string `json:"images"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		TableOfContents: []string{},
		Sections:        []*Section{},
	}
}

// NewSection creates a section holding fresh content of variant v.
func NewSection(id, title string, v Variant) (*Section, error) {
	c, err := NewContent(v)
	if err != nil {
		return nil, err
	}
	return &Section{ID: id, Title: NormalizeText(title), Content: c, Images: []string{}}, nil
}

// Variant returns the section's content kind.
func (s *Section) Variant() Variant {
	if s.Content == nil {
		return ""
	}
	return s.Content.Variant()
}

// Clone returns a deep copy of the section.
func (s *Section) Clone() *Section {
	out := &Section{
		ID:     s.ID,
		Title:  s.Title,
		Images: append([]string{}, s.Images...),
	}
	if s.Content != nil {
		out.Content = s.Content.Clone()
	}
	return out
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		Header:          d.Header,
		TableOfContents: append([]string{}, d.TableOfContents...),
		Sections:        make([]*Section, len(d.Sections)),
	}
	for i, s := range d.Sections {
		out.Sections[i] = s.Clone()
	}
	return out
}

// SectionIndex returns the position of the section with id, or -1.
func (d *Document) SectionIndex(id string) int {
	for i, s := range d.Sections {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Section returns the section with id, or nil.
func (d *Document) Section(id string) *Section {
	if i := d.SectionIndex(id); i >= 0 {
		return d.Sections[i]
	}
	return nil
}

// sectionJSON is the wire shape of a Section: the variant tag travels next
// to the content so decoding picks the right concrete type.
type sectionJSON struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Variant Variant         `json:"variant"`
	Content json.RawMessage `json:"content"`
	Images  []string        `json:"images"`
}

// MarshalJSON implements json.Marshaler.
func (s Section) MarshalJSON() ([]byte, error) {
	if s.Content == nil {
		return nil, fmt.Errorf("section %s has no content", s.ID)
	}
	content, err := json.Marshal(s.Content)
	if err != nil {
		return nil, err
	}
	images := s.Images
	if images == nil {
		images = []string{}
	}
	return json.Marshal(sectionJSON{
		ID:      s.ID,
		Title:   s.Title,
		Variant: s.Content.Variant(),
		Content: content,
		Images:  images,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Section) UnmarshalJSON(data []byte) error {
	var raw sectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseVariant(string(raw.Variant))
	if err != nil {
		return err
	}
	c, err := decodeContent(v, raw.Content)
	if err != nil {
		return err
	}
	s.ID = raw.ID
	s.Title = raw.Title
	s.Content = c
	s.Images = raw.Images
	if s.Images == nil {
		s.Images = []string{}
	}
	return nil
}

// NormalizeText returns s in Unicode NFC so that visually identical input
// compares, wraps and rasterizes identically.
func NormalizeText(s string) string {
	return norm.NFC.String(s)
}

// NormalizeHeader applies NormalizeText to every text field of h.
func NormalizeHeader(h Header) Header {
	h.Title = NormalizeText(h.Title)
	h.Subtitle = NormalizeText(h.Subtitle)
	h.PreparedForName = NormalizeText(h.PreparedForName)
	h.PreparedByName = NormalizeText(h.PreparedByName)
	h.IssueDate = NormalizeText(h.IssueDate)
	return h
}
