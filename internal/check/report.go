package check

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// Report collects the results printed at the end of a check run
type Report struct {
	FileResults       []FileCheckResult
	ValidationResults []ValidationResult
}

// NewReport creates an empty report
func NewReport() *Report {
	return &Report{
		FileResults:       make([]FileCheckResult, 0),
		ValidationResults: make([]ValidationResult, 0),
	}
}

// AddFileResult adds a file check result
func (r *Report) AddFileResult(result FileCheckResult) {
	r.FileResults = append(r.FileResults, result)
}

// AddValidationResult adds a validation result
func (r *Report) AddValidationResult(result ValidationResult) {
	r.ValidationResults = append(r.ValidationResults, result)
}

// Summary tallies a report.
type Summary struct {
	FilesCreated int
	FilesMissing int
	Invalid      int
	Warnings     int
	HasErrors    bool
}

// Summary counts created and missing files, failed validations and warnings.
func (r *Report) Summary() Summary {
	var s Summary
	for _, f := range r.FileResults {
		switch {
		case f.Error != nil:
			s.HasErrors = true
		case f.Created:
			s.FilesCreated++
		case !f.Exists:
			s.FilesMissing++
		}
	}
	for _, v := range r.ValidationResults {
		if !v.Valid {
			s.Invalid++
			if v.Error != nil {
				s.HasErrors = true
			}
		}
		s.Warnings += len(v.Warnings)
	}
	return s
}

// Line renders the outcome after the status mark.
func (s Summary) Line() string {
	var details []string
	if s.FilesCreated > 0 {
		details = append(details, fmt.Sprintf("%d file(s) created", s.FilesCreated))
	}
	if s.FilesMissing > 0 {
		details = append(details, fmt.Sprintf("%d file(s) missing", s.FilesMissing))
	}
	if s.Invalid > 0 {
		details = append(details, fmt.Sprintf("%d check(s) failed", s.Invalid))
	}
	if s.Warnings > 0 {
		details = append(details, fmt.Sprintf("%d warning(s)", s.Warnings))
	}
	if len(details) == 0 {
		return "all checks passed"
	}
	return strings.Join(details, ", ")
}

var separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

// Print prints a separator and the one-line outcome
func (r *Report) Print() {
	fmt.Println(separatorStyle.Render(strings.Repeat("─", 50)))

	s := r.Summary()
	mark := color.New(color.FgGreen, color.Bold)
	prefix := "✓"
	switch {
	case s.HasErrors || s.Invalid > 0:
		mark = color.New(color.FgRed, color.Bold)
		prefix = "✗"
	case s.Warnings > 0 || s.FilesMissing > 0:
		mark = color.New(color.FgYellow, color.Bold)
		prefix = "⚠"
	}
	mark.Printf("%s Check completed: %s\n", prefix, s.Line())
}
