// Package firstbank reads transaction exports from the bank's CSV files
// stored in a GCS prefix. Each export carries the columns Date, Account,
// Amount, Description, and Type; amounts are signed strings as exported
// (leading $, thousands separators, parenthesized negatives).
package firstbank

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dvloznov/money-manager/internal/domain"
	"github.com/dvloznov/money-manager/internal/gcs"
	"github.com/dvloznov/money-manager/internal/logger"
)

// Adapter fetches bank raw records from exported CSVs.
type Adapter struct {
	storage gcs.StorageService
	bucket  string
	prefix  string
}

func New(storage gcs.StorageService, bucket, prefix string) *Adapter {
	return &Adapter{storage: storage, bucket: bucket, prefix: prefix}
}

func (a *Adapter) Source() domain.Source {
	return domain.SourceBank
}

// Fetch lists the export objects under the configured prefix and parses
// each CSV into raw records, preserving object order then row order.
func (a *Adapter) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	log := logger.FromContext(ctx)

	objects, err := a.storage.ListObjects(ctx, a.bucket, a.prefix)
	if err != nil {
		return nil, &domain.SourceUnavailableError{Source: a.Source(), Err: err}
	}

	var records []domain.RawRecord
	for _, name := range objects {
		if !strings.HasSuffix(name, ".csv") {
			continue
		}
		data, err := a.storage.Download(ctx, a.bucket, name)
		if err != nil {
			return nil, &domain.SourceUnavailableError{Source: a.Source(), Err: err}
		}
		parsed, err := ParseExport(data)
		if err != nil {
			return nil, fmt.Errorf("firstbank: parsing export %s: %w", name, err)
		}
		log.Debug().
			Str("object", name).
			Int("records", len(parsed)).
			Msg("Parsed bank export")
		records = append(records, parsed...)
	}

	return records, nil
}

// ParseExport parses one export CSV. The header row names the columns;
// order in the file is not assumed.
func ParseExport(data []byte) ([]domain.RawRecord, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Date", "Account", "Amount", "Description"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("export missing column %q", required)
		}
	}

	var records []domain.RawRecord
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		postDate, err := time.Parse(domain.DateLayout, strings.TrimSpace(row[col["Date"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing date %q: %w", line, row[col["Date"]], err)
		}

		rec := domain.RawRecord{
			PostDate:    postDate,
			Account:     strings.TrimSpace(row[col["Account"]]),
			Amount:      strings.TrimSpace(row[col["Amount"]]),
			Description: strings.TrimSpace(row[col["Description"]]),
		}
		if i, ok := col["Type"]; ok && i < len(row) {
			rec.Type = strings.TrimSpace(row[i])
		}
		records = append(records, rec)
	}

	return records, nil
}
