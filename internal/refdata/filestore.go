package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/money-manager/internal/domain"
	"github.com/shopspring/decimal"
)

// FileStore loads reference data from a local JSON file. It backs local
// runs and tests; production runs load the same shape from BigQuery.
type FileStore struct {
	Path string
}

// NewFileStore creates a FileStore reading from path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// fileDocument is the on-disk JSON shape. Dates are MM/DD/YYYY strings,
// amounts are decimal strings.
type fileDocument struct {
	Rules []struct {
		Pattern  string `json:"pattern"`
		Category string `json:"category"`
	} `json:"category_rules"`
	Exclusions      []string `json:"exclusions"`
	ManualOverrides []struct {
		PostDate    string `json:"post_date"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
		Category    string `json:"category"`
	} `json:"manual_overrides"`
	FlowOverrides []struct {
		Account   string `json:"account"`
		Indicator string `json:"indicator"`
		Flow      string `json:"flow"`
	} `json:"flow_overrides"`
	Corrections []struct {
		Removals []struct {
			Amount   string `json:"amount"`
			Flow     string `json:"flow"`
			PostDate string `json:"post_date"`
		} `json:"removals"`
		Replacement struct {
			PostDate    string `json:"post_date"`
			Account     string `json:"account"`
			Amount      string `json:"amount"`
			Description string `json:"description"`
			Type        string `json:"type"`
			Flow        string `json:"flow"`
			Category    string `json:"category"`
		} `json:"replacement"`
	} `json:"corrections"`
	AccountNames      []string `json:"account_names"`
	CreditCardAccount string   `json:"credit_card_account"`
}

// Load reads and validates the reference data file.
func (s *FileStore) Load(ctx context.Context) (*ReferenceData, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &ConfigurationError{Field: "file " + s.Path, Err: err}
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ConfigurationError{Field: "file " + s.Path, Err: err}
	}

	ref := &ReferenceData{
		AccountNames:      doc.AccountNames,
		CreditCardAccount: doc.CreditCardAccount,
		Exclusions:        doc.Exclusions,
	}

	for _, r := range doc.Rules {
		ref.Rules = append(ref.Rules, CategoryRule{Pattern: r.Pattern, Category: r.Category})
	}

	for i, o := range doc.ManualOverrides {
		date, err := parseDate(o.PostDate)
		if err != nil {
			return nil, &ConfigurationError{Field: fmt.Sprintf("manual override %d post_date", i), Err: err}
		}
		amount, err := parseAmount(o.Amount)
		if err != nil {
			return nil, &ConfigurationError{Field: fmt.Sprintf("manual override %d amount", i), Err: err}
		}
		ref.ManualOverrides = append(ref.ManualOverrides, ManualOverride{
			PostDate:    date,
			Amount:      amount,
			Description: o.Description,
			Category:    o.Category,
		})
	}

	for _, o := range doc.FlowOverrides {
		ref.FlowOverrides = append(ref.FlowOverrides, FlowOverride{
			Account:   o.Account,
			Indicator: domain.Indicator(o.Indicator),
			Flow:      domain.Flow(o.Flow),
		})
	}

	for i, c := range doc.Corrections {
		var corr Correction
		for j, rm := range c.Removals {
			date, err := parseDate(rm.PostDate)
			if err != nil {
				return nil, &ConfigurationError{Field: fmt.Sprintf("correction %d removal %d post_date", i, j), Err: err}
			}
			amount, err := parseAmount(rm.Amount)
			if err != nil {
				return nil, &ConfigurationError{Field: fmt.Sprintf("correction %d removal %d amount", i, j), Err: err}
			}
			corr.Removals = append(corr.Removals, CorrectionKey{
				Amount:   amount,
				Flow:     domain.Flow(rm.Flow),
				PostDate: date,
			})
		}

		rep := c.Replacement
		date, err := parseDate(rep.PostDate)
		if err != nil {
			return nil, &ConfigurationError{Field: fmt.Sprintf("correction %d replacement post_date", i), Err: err}
		}
		amount, err := parseAmount(rep.Amount)
		if err != nil {
			return nil, &ConfigurationError{Field: fmt.Sprintf("correction %d replacement amount", i), Err: err}
		}
		corr.Replacement = &domain.Transaction{
			PostDate:    date,
			TxnDate:     date, // manual entries carry no separate transaction date
			Account:     rep.Account,
			Amount:      amount,
			Description: rep.Description,
			Type:        rep.Type,
			Flow:        domain.Flow(rep.Flow),
			Category:    rep.Category,
		}
		ref.Corrections = append(ref.Corrections, corr)
	}

	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return ref, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(domain.DateLayout, s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
