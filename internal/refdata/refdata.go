package refdata

import (
	"fmt"
	"time"

	"github.com/dvloznov/money-manager/internal/domain"
	"github.com/shopspring/decimal"
)

// CategoryRule maps a description substring to a category label.
// Rules are an ordered list, never a map: the classifier takes the first
// rule whose pattern appears (case-insensitively) in a description, so
// rule order is significant. Note the hazard this carries: with rules
// ["AMAZON" -> Shopping, "AMAZON PRIME" -> Subscriptions] a description
// containing "AMAZON PRIME" resolves to Shopping. The stored order is
// user-maintained data and is preserved exactly as configured.
type CategoryRule struct {
	Pattern  string
	Category string
}

// ManualOverride forces a category onto any transaction whose post date,
// amount, and description all match exactly. Overrides run after the
// automatic rules and win over them.
type ManualOverride struct {
	PostDate    time.Time
	Amount      decimal.Decimal
	Description string
	Category    string
}

// FlowOverride labels (account, indicator) pairs ahead of the generic
// credit-card rule. These exist because some source schemas use an
// inverted sign convention relative to the bank feed.
type FlowOverride struct {
	Account   string
	Indicator domain.Indicator
	Flow      domain.Flow
}

// CorrectionKey identifies ledger rows to remove: an exact match on
// amount, flow label, and post date.
type CorrectionKey struct {
	Amount   decimal.Decimal
	Flow     domain.Flow
	PostDate time.Time
}

// Correction is a best-effort patch for a known historical data anomaly:
// remove the rows matching every key, then add the replacement row. When
// any key matches nothing the whole correction is skipped, which makes
// the step idempotent across repeated runs.
type Correction struct {
	Removals    []CorrectionKey
	Replacement *domain.Transaction
}

// ReferenceData is everything the pipeline reads at run start. It is
// assumed static for the duration of one run.
type ReferenceData struct {
	Rules           []CategoryRule
	Exclusions      []string
	ManualOverrides []ManualOverride
	FlowOverrides   []FlowOverride
	Corrections     []Correction

	AccountNames      []string
	CreditCardAccount string
}

// ConfigurationError reports missing or malformed reference data. It is
// fatal at run start.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reference data: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("reference data: %s", e.Field)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Validate checks the loaded reference data for the problems that would
// otherwise surface mid-run.
func (r *ReferenceData) Validate() error {
	if r.CreditCardAccount == "" {
		return &ConfigurationError{Field: "credit_card_account is not set"}
	}
	if len(r.AccountNames) == 0 {
		return &ConfigurationError{Field: "no account names configured"}
	}
	for i, rule := range r.Rules {
		if rule.Pattern == "" {
			return &ConfigurationError{Field: fmt.Sprintf("category rule %d has an empty pattern", i)}
		}
	}
	for i, ex := range r.Exclusions {
		if ex == "" {
			return &ConfigurationError{Field: fmt.Sprintf("exclusion %d is empty", i)}
		}
	}
	for i, c := range r.Corrections {
		if len(c.Removals) == 0 {
			return &ConfigurationError{Field: fmt.Sprintf("correction %d has no removal keys", i)}
		}
		if c.Replacement == nil {
			return &ConfigurationError{Field: fmt.Sprintf("correction %d has no replacement row", i)}
		}
	}
	for i, o := range r.FlowOverrides {
		if o.Account == "" || o.Indicator == "" || o.Flow == "" {
			return &ConfigurationError{Field: fmt.Sprintf("flow override %d is incomplete", i)}
		}
	}
	return nil
}
