package consts

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestServiceName(t *testing.T) {
	if ServiceName != "reportdesk" {
		t.Errorf("ServiceName = %q, want %q", ServiceName, "reportdesk")
	}
}

func TestExportNaming(t *testing.T) {
	if ExportFilePrefix != "Report_" {
		t.Errorf("ExportFilePrefix = %q", ExportFilePrefix)
	}
	if !strings.HasPrefix(ExportFileExtension, ".") {
		t.Errorf("ExportFileExtension = %q, want leading dot", ExportFileExtension)
	}
	if ConfidentialityNotice == "" {
		t.Error("ConfidentialityNotice must not be empty")
	}
}

func TestSetStartedAt(t *testing.T) {
	startedAt = time.Time{}
	startedOnce = sync.Once{}

	now := time.Now()
	SetStartedAt(now)
	SetStartedAt(now.Add(time.Hour))

	if !GetStartedAt().Equal(now) {
		t.Errorf("GetStartedAt() = %v, want %v", GetStartedAt(), now)
	}
}

func TestGetUptime(t *testing.T) {
	startedAt = time.Time{}
	startedOnce = sync.Once{}

	if GetUptime() != 0 {
		t.Error("GetUptime() should be 0 before start")
	}

	SetStartedAt(time.Now().Add(-time.Minute))
	if GetUptime() < time.Minute {
		t.Errorf("GetUptime() = %v, want >= 1m", GetUptime())
	}
}
