package model

import (
	"fmt"
	"strings"
)

// Header field names reported by MissingHeaderFields.
const (
	FieldTitle           = "title"
	FieldSubtitle        = "subtitle"
	FieldPreparedForName = "prepared_for_name"
	FieldPreparedByName  = "prepared_by_name"
	FieldIssueDate       = "issue_date"
)

// IsHeaderComplete reports whether every mandatory header field is non-blank.
func IsHeaderComplete(h Header) bool {
	return len(MissingHeaderFields(h)) == 0
}

// MissingHeaderFields lists the mandatory fields that are blank, in form order.
func MissingHeaderFields(h Header) []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check(FieldTitle, h.Title)
	check(FieldSubtitle, h.Subtitle)
	check(FieldPreparedForName, h.PreparedForName)
	check(FieldPreparedByName, h.PreparedByName)
	check(FieldIssueDate, h.IssueDate)
	return missing
}

// DeriveTableOfContents maps sections to their titles, dropping empty ones.
func DeriveTableOfContents(sections []*Section) []string {
	toc := make([]string, 0, len(sections))
	for _, s := range sections {
		if s.Title != "" {
			toc = append(toc, s.Title)
		}
	}
	return toc
}

// ValidateCustomTable reports whether the header count matches ColumnCount
// and every row has exactly len(ColumnHeaders) cells.
func ValidateCustomTable(t *CustomTable) bool {
	if t == nil || len(t.ColumnHeaders) != t.ColumnCount {
		return false
	}
	for _, row := range t.Rows {
		if len(row) != len(t.ColumnHeaders) {
			return false
		}
	}
	return true
}

// ValidateDocument checks the structural invariants of a document decoded
// from outside the wizard: unique non-empty section ids, at least one
// parameter table column and consistent custom table arity.
func ValidateDocument(d *Document) error {
	seen := make(map[string]bool, len(d.Sections))
	for i, s := range d.Sections {
		if s == nil {
			return fmt.Errorf("section %d is null", i)
		}
		if s.ID == "" {
			return fmt.Errorf("section %d has no id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate section id %s", s.ID)
		}
		seen[s.ID] = true

		switch c := s.Content.(type) {
		case *ParameterTable:
			if len(c.Columns) == 0 {
				return fmt.Errorf("section %s: parameter table needs at least one column", s.ID)
			}
		case *CustomTable:
			if !ValidateCustomTable(c) {
				return fmt.Errorf("section %s: custom table rows do not match %d columns", s.ID, c.ColumnCount)
			}
		case *Narrative:
		default:
			return fmt.Errorf("section %s has no content", s.ID)
		}
	}
	return nil
}
