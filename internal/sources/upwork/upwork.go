// Package upwork reads the manually maintained freelance income worksheet
// (a CSV export) and turns its income rows into ledger-ready transactions.
// The worksheet is out of band: its rows skip normalization and
// classification and are appended by the assembler as-is.
package upwork

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
	"github.com/dvloznov/money-manager/internal/normalize"
)

const (
	accountName = "Upwork"
	category    = "Upwork Income"
)

// incomeTypes are the worksheet transaction types that count as income;
// everything else (fees, withdrawals) is skipped.
var incomeTypes = map[string]bool{
	"Bonus":                 true,
	"Fixed-price":           true,
	"Hourly":                true,
	"Expense reimbursement": true,
}

// Sheet reads the income worksheet CSV from GCS. It satisfies
// pipeline.IncomeSheet.
type Sheet struct {
	storage gcs.StorageService
	bucket  string
	object  string
}

func NewSheet(storage gcs.StorageService, bucket, object string) *Sheet {
	return &Sheet{storage: storage, bucket: bucket, object: object}
}

// FetchTransactions downloads and parses the worksheet.
func (s *Sheet) FetchTransactions(ctx context.Context) ([]domain.Transaction, error) {
	data, err := s.storage.Download(ctx, s.bucket, s.object)
	if err != nil {
		return nil, &domain.SourceUnavailableError{Source: domain.SourceOtherIncome, Err: err}
	}
	return ParseWorksheet(data)
}

// ParseWorksheet parses the worksheet CSV. Expected columns: Date,
// Amount $, Transaction Type, Transaction Summary. Income rows come out
// already classified: Flow Income, category "Upwork Income", transaction
// date equal to post date.
func ParseWorksheet(data []byte) ([]domain.Transaction, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("upwork: reading header: %w", err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Date", "Amount $", "Transaction Type", "Transaction Summary"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("upwork: worksheet missing column %q", required)
		}
	}

	var txs []domain.Transaction
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("upwork: reading line %d: %w", line, err)
		}

		txnType := strings.TrimSpace(row[col["Transaction Type"]])
		if !incomeTypes[txnType] {
			continue
		}

		postDate, err := time.Parse(domain.DateLayout, strings.TrimSpace(row[col["Date"]]))
		if err != nil {
			return nil, fmt.Errorf("upwork: line %d: parsing date %q: %w", line, row[col["Date"]], err)
		}
		amount, err := normalize.ParseAmount(row[col["Amount $"]])
		if err != nil {
			return nil, fmt.Errorf("upwork: line %d: parsing amount %q: %w", line, row[col["Amount $"]], err)
		}

		txs = append(txs, domain.Transaction{
			PostDate:    postDate,
			TxnDate:     postDate,
			Account:     accountName,
			Amount:      amount,
			Description: strings.TrimSpace(row[col["Transaction Summary"]]),
			Type:        txnType,
			Indicator:   domain.IndicatorCredit,
			Flow:        domain.FlowIncome,
			Category:    category,
		})
	}

	return txs, nil
}
