package normalize

import (
	"fmt"
	"strings"

	"github.com/dvloznov/money-manager/internal/domain"
	"github.com/shopspring/decimal"
)

// ParseError reports a raw record whose amount field could not be parsed.
// It is fatal for the whole batch: a bad amount must never be silently
// coerced to zero.
type ParseError struct {
	Source domain.Source
	Index  int
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("source %s record %d: cannot parse %s %q: %v",
		e.Source, e.Index, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Normalizer converts source-native raw records into canonical
// transactions. It is a pure function of its inputs and the configured
// exclusion list.
type Normalizer struct {
	exclusions []string
}

// New creates a Normalizer with the configured exclusion substrings.
func New(exclusions []string) *Normalizer {
	return &Normalizer{exclusions: exclusions}
}

// Normalize maps one source's raw records into Transactions. Output
// order follows input order. On the first unparseable amount the whole
// batch fails with a ParseError identifying the offending record.
func (n *Normalizer) Normalize(src domain.Source, records []domain.RawRecord) ([]domain.Transaction, error) {
	txs := make([]domain.Transaction, 0, len(records))
	for i, rec := range records {
		amount, err := ParseAmount(rec.Amount)
		if err != nil {
			return nil, &ParseError{Source: src, Index: i, Field: "amount", Value: rec.Amount, Err: err}
		}

		tx := domain.Transaction{
			PostDate:    rec.PostDate,
			TxnDate:     rec.PostDate,
			Account:     rec.Account,
			Amount:      amount,
			Description: rec.Description,
			Type:        rec.Type,
			Indicator:   indicatorFor(amount),
			Exclude:     n.excluded(rec.Description),
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// ParseAmount parses a source-native amount string to a decimal.
// Currency symbols and thousands separators are stripped; a
// parenthesized amount is negative.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// indicatorFor derives the credit/debit indicator from the sign of the
// parsed amount: non-negative is Credit, negative is Debit. The rule is
// uniform across all sources.
func indicatorFor(amount decimal.Decimal) domain.Indicator {
	if amount.Sign() >= 0 {
		return domain.IndicatorCredit
	}
	return domain.IndicatorDebit
}

// excluded tests the not-yet-cleaned description against the exclusion
// list. Matching is a literal, case-sensitive substring test, exactly as
// the exclusions are configured.
func (n *Normalizer) excluded(description string) bool {
	for _, ex := range n.exclusions {
		if strings.Contains(description, ex) {
			return true
		}
	}
	return false
}
