package check

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/reportdesk/internal/config"
)

// newTestChecker returns a Checker over dir/bootstrap.yaml that never
// prompts and finds no browser.
func newTestChecker(t *testing.T, answer bool) *Checker {
	t.Helper()
	t.Setenv("CHROME_PATH", "")
	checker := NewChecker(filepath.Join(t.TempDir(), "config", "bootstrap.yaml"))
	checker.confirm = func(string) (bool, error) { return answer, nil }
	checker.lookPath = func(file string) (string, error) { return "", errors.New("not found") }
	return checker
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// TestNewChecker tests the NewChecker function
func TestNewChecker(t *testing.T) {
	checker := NewChecker("")
	if checker == nil {
		t.Fatal("NewChecker returned nil")
	}
	if checker.ConfigPath() != config.DefaultPath {
		t.Errorf("Expected config path %q, got %q", config.DefaultPath, checker.ConfigPath())
	}
	if checker.report == nil {
		t.Error("Report should be initialized")
	}
}

// TestRequiredFiles tests the RequiredFiles method
func TestRequiredFiles(t *testing.T) {
	checker := NewChecker("etc/rd.yaml")
	files := checker.RequiredFiles()

	if len(files) != 1 {
		t.Fatalf("Expected 1 required file, got %d", len(files))
	}
	if files[0].Path != "etc/rd.yaml" {
		t.Errorf("First file should be etc/rd.yaml, got %s", files[0].Path)
	}
	if files[0].Template != TemplateBootstrap {
		t.Errorf("Expected bootstrap template, got %d", files[0].Template)
	}
}

// TestFileExists tests the fileExists function
func TestFileExists(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test_exists.txt")
	if err := os.WriteFile(tmpFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	if !fileExists(tmpFile) {
		t.Error("fileExists should return true for existing file")
	}
	if fileExists("/non/existent/file.txt") {
		t.Error("fileExists should return false for non-existing file")
	}
}

func TestRun_CreatesConfig(t *testing.T) {
	checker := newTestChecker(t, true)
	checker.lookPath = func(file string) (string, error) {
		if file == "chromium" {
			return "/usr/bin/chromium", nil
		}
		return "", errors.New("not found")
	}

	require.NoError(t, checker.Run())
	assert.True(t, fileExists(checker.ConfigPath()))

	require.Len(t, checker.report.FileResults, 1)
	assert.True(t, checker.report.FileResults[0].Created)
	require.Len(t, checker.report.ValidationResults, 2)
	assert.True(t, checker.report.ValidationResults[0].Valid)
	assert.Equal(t, "chrome at /usr/bin/chromium", checker.report.ValidationResults[1].Detail)
}

func TestRun_InvalidConfigFails(t *testing.T) {
	checker := newTestChecker(t, false)
	writeConfig(t, checker.ConfigPath(), "export:\n  rasterizer: postscript\n")

	err := checker.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export.rasterizer")
}

func TestRun_MissingBrowserIsReported(t *testing.T) {
	checker := newTestChecker(t, false)
	writeConfig(t, checker.ConfigPath(), "export:\n  rasterizer: chrome\n")

	require.NoError(t, checker.Run())
	browser := checker.report.ValidationResults[1]
	assert.False(t, browser.Valid)
	assert.Error(t, browser.Error)
	assert.True(t, checker.report.Summary().HasErrors)
}

func TestRunNonInteractive(t *testing.T) {
	tests := []struct {
		name        string
		content     string // empty means no file
		wantSuccess bool
		wantErrors  int
		wantWarning string
	}{
		{
			name:        "missing file uses defaults",
			wantSuccess: true,
			wantWarning: "using defaults",
		},
		{
			name:        "native rasterizer needs no browser",
			content:     "export:\n  rasterizer: native\n",
			wantSuccess: true,
		},
		{
			name:        "chrome without browser warns",
			content:     "export:\n  rasterizer: chrome\n",
			wantSuccess: true,
			wantWarning: "no Chrome or Chromium browser found",
		},
		{
			name:        "out of range port",
			content:     "server:\n  port: 70000\nexport:\n  rasterizer: native\n",
			wantSuccess: false,
			wantErrors:  1,
		},
		{
			name:        "broken yaml",
			content:     "server: [\n",
			wantSuccess: false,
			wantErrors:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := newTestChecker(t, false)
			if tt.content != "" {
				writeConfig(t, checker.ConfigPath(), tt.content)
			}

			result := checker.RunNonInteractive()
			assert.Equal(t, tt.wantSuccess, result.Success, "errors: %v", result.Errors)
			assert.Len(t, result.Errors, tt.wantErrors)
			if tt.wantWarning != "" {
				assert.True(t, containsSubstring(result.Warnings, tt.wantWarning), "warnings: %v", result.Warnings)
			}
			assert.False(t, fileExists(checker.ConfigPath()) && tt.content == "", "non-interactive check must not create files")
		})
	}
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
