package check

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/verustcode/reportdesk/internal/configfiles"
)

// TemplateType represents the type of template file
type TemplateType int

const (
	TemplateBootstrap TemplateType = iota
)

// FileConfig represents a configuration file to check
type FileConfig struct {
	Path        string
	Description string
	Template    TemplateType
}

// FileCheckResult represents the result of a file check
type FileCheckResult struct {
	Path        string
	Exists      bool
	Created     bool
	Description string
	Error       error
}

// checkFiles checks all required configuration files
func (c *Checker) checkFiles() error {
	for _, file := range c.RequiredFiles() {
		result := c.checkFile(file)
		c.report.AddFileResult(result)

		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// checkFile checks a single file and prompts for creation if missing
func (c *Checker) checkFile(file FileConfig) FileCheckResult {
	result := FileCheckResult{
		Path:        file.Path,
		Description: file.Description,
	}

	if fileExists(file.Path) {
		result.Exists = true
		printFileStatus(file.Path, true, false)
		return result
	}
	printFileStatus(file.Path, false, false)

	confirm, err := c.confirm(file.Path)
	if err != nil {
		result.Error = fmt.Errorf("failed to get user confirmation: %w", err)
		return result
	}
	if !confirm {
		return result
	}

	created, err := writeTemplate(file.Template, file.Path)
	if err != nil {
		result.Error = err
		return result
	}
	result.Created = created
	if created {
		printFileCreated(file.Path)
	}
	return result
}

// writeTemplate writes the embedded template t to path
func writeTemplate(t TemplateType, path string) (bool, error) {
	switch t {
	case TemplateBootstrap:
		return configfiles.WriteBootstrap(path)
	default:
		return false, fmt.Errorf("unknown template type: %d", t)
	}
}

// printFileStatus prints the status of a file check
func printFileStatus(path string, exists bool, created bool) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	if exists {
		green.Printf("  ✓ %s\n", path)
	} else if created {
		green.Printf("  ✓ %s (created)\n", path)
	} else {
		yellow.Printf("  ⚠ %s does not exist\n", path)
	}
}

// printFileCreated prints a message when a file is created
func printFileCreated(path string) {
	green := color.New(color.FgGreen)
	green.Printf("  ✓ Created %s\n", path)
}
