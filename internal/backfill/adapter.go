package backfill

import (
	"context"
	"strings"

	"github.com/dvloznov/money-manager/internal/domain"
	"github.com/dvloznov/money-manager/internal/gcs"
	"github.com/dvloznov/money-manager/internal/logger"
)

// Adapter parses every archived statement PDF under a GCS prefix into
// bank raw records. The prefix maps to one account: statements are
// archived per account.
type Adapter struct {
	storage   gcs.StorageService
	bucket    string
	prefix    string
	account   string
	modelName string
}

func New(storage gcs.StorageService, bucket, prefix, account string) *Adapter {
	return &Adapter{
		storage: storage,
		bucket:  bucket,
		prefix:  prefix,
		account: account,
	}
}

// WithModel overrides the parsing model.
func (a *Adapter) WithModel(modelName string) *Adapter {
	a.modelName = modelName
	return a
}

func (a *Adapter) Source() domain.Source {
	return domain.SourceStatementBackfill
}

func (a *Adapter) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	log := logger.FromContext(ctx)

	objects, err := a.storage.ListObjects(ctx, a.bucket, a.prefix)
	if err != nil {
		return nil, &domain.SourceUnavailableError{Source: a.Source(), Err: err}
	}

	var records []domain.RawRecord
	for _, name := range objects {
		if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
			continue
		}
		pdfBytes, err := a.storage.Download(ctx, a.bucket, name)
		if err != nil {
			return nil, &domain.SourceUnavailableError{Source: a.Source(), Err: err}
		}

		parsed, err := parseStatementWithModel(ctx, pdfBytes, a.modelName)
		if err != nil {
			return nil, &domain.SourceUnavailableError{Source: a.Source(), Err: err}
		}
		statementRecords, err := transformModelOutput(parsed, a.account)
		if err != nil {
			return nil, err
		}

		log.Info().
			Str("statement", name).
			Int("records", len(statementRecords)).
			Msg("Parsed archived statement")
		records = append(records, statementRecords...)
	}

	return records, nil
}
