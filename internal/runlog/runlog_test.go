package runlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWrite_OverwritesPreviousStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refresh.log")

	l := NewFileLog(path)
	l.now = func() time.Time {
		return time.Date(2024, 2, 1, 14, 30, 0, 0, time.UTC)
	}

	if err := l.Write(context.Background(), "Ledger refreshed successfully: 120 transactions"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := l.Write(context.Background(), "pipeline step 2 failed: connection refused"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	want := "02/01/2024 02:30 PM - pipeline step 2 failed: connection refused\n"
	if string(data) != want {
		t.Errorf("log = %q, want %q", data, want)
	}
}

func TestNewFileLog_ClockIsReady(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refresh.log")

	// Write must work straight from the constructor, with no clock setup.
	l := NewFileLog(path)
	if err := l.Write(context.Background(), "ok"); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	line := string(data)
	if !strings.HasSuffix(line, " - ok\n") {
		t.Fatalf("log = %q, want a timestamped status line", line)
	}
	stamp := strings.TrimSuffix(line, " - ok\n")
	if _, err := time.Parse("01/02/2006 03:04 PM", stamp); err != nil {
		t.Errorf("timestamp %q does not parse: %v", stamp, err)
	}
}
