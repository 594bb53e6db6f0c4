// Package statements maintains merged per-account statement archives. It
// downloads each account's monthly eStatement PDFs from the archive
// bucket and joins them into a single file with the external pdfunite
// tool; no PDF bytes are interpreted in-process.
package statements

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dvloznov/money-manager/internal/gcs"
	"github.com/dvloznov/money-manager/internal/logger"
)

// Merger downloads and merges statement PDFs. Statements are archived
// under <prefix>/<account>/ in the bucket.
type Merger struct {
	storage gcs.StorageService
	bucket  string
	prefix  string
	workDir string

	// pdfuniteBin overrides the merge binary, used in tests.
	pdfuniteBin string
}

func NewMerger(storage gcs.StorageService, bucket, prefix, workDir string) *Merger {
	return &Merger{
		storage:     storage,
		bucket:      bucket,
		prefix:      prefix,
		workDir:     workDir,
		pdfuniteBin: "pdfunite",
	}
}

// MergedFilename is the name of the merged archive for an account.
func MergedFilename(account string) string {
	return "Merged " + account + " eStatements.pdf"
}

// MergeAccount downloads every statement for the account and merges them
// into one PDF in the work directory. It returns the merged file path.
func (m *Merger) MergeAccount(ctx context.Context, account string) (string, error) {
	log := logger.FromContext(ctx)

	prefix := m.prefix + account + "/"
	objects, err := m.storage.ListObjects(ctx, m.bucket, prefix)
	if err != nil {
		return "", fmt.Errorf("statements: listing %s: %w", prefix, err)
	}

	var localPaths []string
	for _, name := range objects {
		if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
			continue
		}
		data, err := m.storage.Download(ctx, m.bucket, name)
		if err != nil {
			return "", fmt.Errorf("statements: downloading %s: %w", name, err)
		}
		local := filepath.Join(m.workDir, filepath.Base(name))
		if err := os.WriteFile(local, data, 0o644); err != nil {
			return "", fmt.Errorf("statements: writing %s: %w", local, err)
		}
		localPaths = append(localPaths, local)
	}

	if len(localPaths) == 0 {
		return "", fmt.Errorf("statements: no statements found for account %q", account)
	}

	merged := filepath.Join(m.workDir, MergedFilename(account))
	if err := m.mergePDFs(ctx, localPaths, merged); err != nil {
		return "", err
	}

	log.Info().
		Str("account", account).
		Int("statements", len(localPaths)).
		Str("merged", merged).
		Msg("Merged account statements")
	return merged, nil
}

// MergeAll merges statements for every listed account and uploads the
// merged files back to the archive bucket.
func (m *Merger) MergeAll(ctx context.Context, accounts []string) error {
	for _, account := range accounts {
		merged, err := m.MergeAccount(ctx, account)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(merged)
		if err != nil {
			return fmt.Errorf("statements: reading merged file: %w", err)
		}
		object := m.prefix + MergedFilename(account)
		if err := m.storage.Upload(ctx, m.bucket, object, data); err != nil {
			return fmt.Errorf("statements: uploading merged file for %q: %w", account, err)
		}
	}
	return nil
}

func (m *Merger) mergePDFs(ctx context.Context, inputs []string, output string) error {
	args := append(append([]string{}, inputs...), output)
	cmd := exec.CommandContext(ctx, m.pdfuniteBin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("statements: %s failed: %w: %s", m.pdfuniteBin, err, strings.TrimSpace(string(out)))
	}
	return nil
}
