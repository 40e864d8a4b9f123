package compose

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/verustcode/reportdesk/internal/model"
)

// ErrAborted is returned by a Prompter when the user cancels a screen.
var ErrAborted = errors.New("compose: aborted")

// Option is one entry of a menu.
type Option struct {
	Key   string
	Label string
}

// Prompter asks the questions of one terminal screen at a time.
type Prompter interface {
	// Header edits h in place.
	Header(h *model.Header) error
	Menu(title string, options []Option) (string, error)
	Input(title, value string, validate func(string) error) (string, error)
	Text(title, value string) (string, error)
	Confirm(title string) (bool, error)
	// Notify shows a one-line status message.
	Notify(msg string)
}

// HuhPrompter renders screens with charmbracelet/huh forms.
type HuhPrompter struct {
	out   io.Writer
	theme *huh.Theme
}

// NewHuhPrompter returns a prompter writing status lines to stdout.
func NewHuhPrompter() *HuhPrompter {
	return &HuhPrompter{out: os.Stdout, theme: huh.ThemeCharm()}
}

func (p *HuhPrompter) run(fields ...huh.Field) error {
	err := huh.NewForm(huh.NewGroup(fields...)).WithTheme(p.theme).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

// Header implements Prompter.
func (p *HuhPrompter) Header(h *model.Header) error {
	if h.IssueDate == "" {
		h.IssueDate = time.Now().Format(time.DateOnly)
	}
	return p.run(
		huh.NewInput().Title("Title").Value(&h.Title),
		huh.NewInput().Title("Subtitle").Value(&h.Subtitle),
		huh.NewInput().Title("Prepared for").Value(&h.PreparedForName),
		huh.NewInput().Title("Prepared by").Value(&h.PreparedByName),
		huh.NewInput().Title("Issue date").Value(&h.IssueDate),
		huh.NewInput().Title("Logo").Description("file path or URL, optional").Value(&h.LogoImage),
	)
}

// Menu implements Prompter.
func (p *HuhPrompter) Menu(title string, options []Option) (string, error) {
	var choice string
	opts := make([]huh.Option[string], 0, len(options))
	for _, o := range options {
		opts = append(opts, huh.NewOption(o.Label, o.Key))
	}
	err := p.run(huh.NewSelect[string]().Title(title).Options(opts...).Value(&choice))
	return choice, err
}

// Input implements Prompter.
func (p *HuhPrompter) Input(title, value string, validate func(string) error) (string, error) {
	in := huh.NewInput().Title(title).Value(&value)
	if validate != nil {
		in = in.Validate(validate)
	}
	err := p.run(in)
	return value, err
}

// Text implements Prompter.
func (p *HuhPrompter) Text(title, value string) (string, error) {
	err := p.run(huh.NewText().Title(title).Description("Markdown").Value(&value))
	return value, err
}

// Confirm implements Prompter.
func (p *HuhPrompter) Confirm(title string) (bool, error) {
	var ok bool
	err := p.run(huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&ok))
	return ok, err
}

var notifyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)

// Notify implements Prompter.
func (p *HuhPrompter) Notify(msg string) {
	fmt.Fprintln(p.out, notifyStyle.Render("› "+msg))
}
