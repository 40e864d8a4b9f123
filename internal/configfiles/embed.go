// Package configfiles provides embedded configuration templates for ReportDesk.
// They seed the user's config directory on first run.
package configfiles

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed bootstrap.example.yaml
var bootstrapExample []byte

// GetBootstrapExample returns the example configuration file content
func GetBootstrapExample() []byte {
	out := make([]byte, len(bootstrapExample))
	copy(out, bootstrapExample)
	return out
}

// WriteBootstrap writes the example configuration to path unless a file
// already exists there. It reports whether a file was created.
func WriteBootstrap(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, bootstrapExample, 0644); err != nil {
		return false, fmt.Errorf("failed to write config: %w", err)
	}
	return true, nil
}
