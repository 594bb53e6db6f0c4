package classify

import (
	"regexp"
	"strings"

	"github.com/dvloznov/money-manager/internal/domain"
	"github.com/dvloznov/money-manager/internal/refdata"
)

// noisePattern matches the "VISA " prefix the card feed injects into
// merchant descriptions.
var noisePattern = regexp.MustCompile(`\bVISA \b`)

// Classifier assigns the income/expense label and description category
// to already-normalized transactions. Excluded transactions are dropped
// on the way through, so classifier output satisfies the final-ledger
// invariants: no excluded rows, no negative amounts.
type Classifier struct {
	creditCardAccount string
	flowOverrides     []refdata.FlowOverride
	rules             []refdata.CategoryRule
	manual            []refdata.ManualOverride
}

// New creates a Classifier from the run's reference data.
func New(ref *refdata.ReferenceData) *Classifier {
	return &Classifier{
		creditCardAccount: ref.CreditCardAccount,
		flowOverrides:     ref.FlowOverrides,
		rules:             ref.Rules,
		manual:            ref.ManualOverrides,
	}
}

// Classify labels, cleans, and categorizes one normalized batch.
func (c *Classifier) Classify(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Exclude {
			continue
		}

		tx.Flow = c.flowFor(tx.Account, tx.Indicator)
		// Sign information now lives entirely in the indicator.
		tx.Amount = tx.Amount.Abs()

		tx.Description = stripNoise(tx.Description)
		tx.TxnDate, tx.Description = ExtractTransactionDate(tx.Description, tx.PostDate)
		tx.Category = c.categorize(tx.Description)

		out = append(out, tx)
	}

	// Manual overrides run after the automatic rules and win over them.
	// Batches are small; a full cross-product scan is fine.
	for _, o := range c.manual {
		for i := range out {
			if out[i].PostDate.Equal(o.PostDate) &&
				out[i].Amount.Equal(o.Amount) &&
				out[i].Description == o.Description {
				out[i].Category = o.Category
			}
		}
	}

	return out
}

// flowFor resolves the income/expense label. Configured per-account
// overrides are checked first; they cover sources whose sign convention
// is inverted relative to the bank feed. The generic rule then inverts
// on the credit card account, where a credit is a purchase and a debit
// is a payment or refund.
func (c *Classifier) flowFor(account string, indicator domain.Indicator) domain.Flow {
	for _, o := range c.flowOverrides {
		if o.Account == account && o.Indicator == indicator {
			return o.Flow
		}
	}

	onCreditCard := account == c.creditCardAccount
	isCredit := indicator == domain.IndicatorCredit
	switch {
	case onCreditCard && isCredit:
		return domain.FlowExpense
	case onCreditCard && !isCredit:
		return domain.FlowIncome
	case !onCreditCard && isCredit:
		return domain.FlowIncome
	default:
		return domain.FlowExpense
	}
}

// categorize scans the configured rules in order and returns the
// category of the first rule whose pattern appears case-insensitively in
// the description, or the empty string if none matches.
func (c *Classifier) categorize(description string) string {
	upper := strings.ToUpper(description)
	for _, rule := range c.rules {
		if strings.Contains(upper, strings.ToUpper(rule.Pattern)) {
			return rule.Category
		}
	}
	return ""
}

func stripNoise(description string) string {
	return noisePattern.ReplaceAllString(description, "")
}
