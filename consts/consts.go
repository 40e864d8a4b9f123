// Package consts defines cross-module constants used throughout the application.
package consts

import (
	"sync"
	"time"
)

// ServiceName is the application service name
const ServiceName = "reportdesk"

// Project information constants
const (
	// ProjectName is the display name of the project
	ProjectName = "ReportDesk"

	// ProjectURL is the repository URL
	ProjectURL = "https://github.com/verustcode/reportdesk"
)

// Document constants shared by the renderer, the exporter and the CLI.
const (
	// ExportFilePrefix prefixes every exported artifact name: Report_<YYYY-MM-DD>.pdf
	ExportFilePrefix = "Report_"

	// ExportFileExtension is the artifact extension, including the dot
	ExportFileExtension = ".pdf"

	// ConfidentialityNotice is printed on the closing page of every report
	ConfidentialityNotice = "This document is confidential and intended solely for the named recipient. " +
		"Any review, distribution or copying by others is prohibited."
)

// Build information - set via ldflags during build or programmatically
var (
	// Version is the application version
	Version = "dev"

	// BuildTime is the build timestamp
	BuildTime = "unknown"

	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// Server runtime information
var (
	startedAt   time.Time
	startedOnce sync.Once
)

// SetStartedAt records the server start time (can only be called once)
func SetStartedAt(t time.Time) {
	startedOnce.Do(func() {
		startedAt = t
	})
}

// GetStartedAt returns the server start time
func GetStartedAt() time.Time {
	return startedAt
}

// GetUptime returns the duration since server started
func GetUptime() time.Duration {
	if startedAt.IsZero() {
		return 0
	}
	return time.Since(startedAt)
}
