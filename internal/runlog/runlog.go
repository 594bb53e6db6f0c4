// Package runlog keeps a one-line status file for the latest refresh.
// Each write replaces the previous status; the file always reflects the
// most recent run only.
package runlog

import (
	"context"
	"fmt"
	"os"
	"time"
)

// FileLog writes the run status to a local file. The zero value is not
// usable; construct with NewFileLog.
type FileLog struct {
	path string

	// now is swapped in tests for a fixed clock.
	now func() time.Time
}

func NewFileLog(path string) *FileLog {
	return &FileLog{path: path, now: time.Now}
}

// Write replaces the file's contents with a timestamped status line.
func (l *FileLog) Write(ctx context.Context, status string) error {
	line := fmt.Sprintf("%s - %s\n", l.now().Format("01/02/2006 03:04 PM"), status)
	if err := os.WriteFile(l.path, []byte(line), 0o644); err != nil {
		return fmt.Errorf("runlog: writing %s: %w", l.path, err)
	}
	return nil
}
