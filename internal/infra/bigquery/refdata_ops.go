package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/money-manager/internal/domain"
	"github.com/dvloznov/money-manager/internal/refdata"
)

// LoadReferenceData loads the full reference dataset from BigQuery and
// validates it. Any malformed or missing data surfaces as ConfigurationError.
func LoadReferenceData(ctx context.Context) (*refdata.ReferenceData, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("LoadReferenceData: bigquery client: %w", err)
	}
	defer client.Close()

	return LoadReferenceDataWithClient(ctx, client)
}

// LoadReferenceDataWithClient loads the reference dataset using the provided
// BigQuery client.
func LoadReferenceDataWithClient(ctx context.Context, client *bigquery.Client) (*refdata.ReferenceData, error) {
	ref := &refdata.ReferenceData{}

	rules, err := loadCategoryRules(ctx, client)
	if err != nil {
		return nil, &refdata.ConfigurationError{Field: "category_rules", Err: err}
	}
	ref.Rules = rules

	exclusions, err := loadExclusions(ctx, client)
	if err != nil {
		return nil, &refdata.ConfigurationError{Field: "exclusions", Err: err}
	}
	ref.Exclusions = exclusions

	overrides, err := loadManualOverrides(ctx, client)
	if err != nil {
		return nil, &refdata.ConfigurationError{Field: "manual_overrides", Err: err}
	}
	ref.ManualOverrides = overrides

	flows, err := loadFlowOverrides(ctx, client)
	if err != nil {
		return nil, &refdata.ConfigurationError{Field: "flow_overrides", Err: err}
	}
	ref.FlowOverrides = flows

	corrections, err := loadCorrections(ctx, client)
	if err != nil {
		return nil, &refdata.ConfigurationError{Field: "corrections", Err: err}
	}
	ref.Corrections = corrections

	if err := loadAccounts(ctx, client, ref); err != nil {
		return nil, &refdata.ConfigurationError{Field: "accounts", Err: err}
	}

	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return ref, nil
}

// loadCategoryRules returns the rules ordered by position. First match wins
// downstream, so the stored order is the evaluation order.
func loadCategoryRules(ctx context.Context, client *bigquery.Client) ([]refdata.CategoryRule, error) {
	q := client.Query(`
		SELECT position, pattern, category
		FROM ` + datasetID + `.` + categoryRulesTable + `
		ORDER BY position
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("loadCategoryRules: query read: %w", err)
	}

	var rules []refdata.CategoryRule
	for {
		var r CategoryRuleRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("loadCategoryRules: iter next: %w", err)
		}
		rules = append(rules, refdata.CategoryRule{Pattern: r.Pattern, Category: r.Category})
	}

	return rules, nil
}

func loadExclusions(ctx context.Context, client *bigquery.Client) ([]string, error) {
	q := client.Query(`
		SELECT pattern
		FROM ` + datasetID + `.` + exclusionsTable + `
		ORDER BY pattern
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("loadExclusions: query read: %w", err)
	}

	var patterns []string
	for {
		var r ExclusionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("loadExclusions: iter next: %w", err)
		}
		patterns = append(patterns, r.Pattern)
	}

	return patterns, nil
}

func loadManualOverrides(ctx context.Context, client *bigquery.Client) ([]refdata.ManualOverride, error) {
	q := client.Query(`
		SELECT post_date, amount, description, category
		FROM ` + datasetID + `.` + manualOverridesTable + `
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("loadManualOverrides: query read: %w", err)
	}

	var overrides []refdata.ManualOverride
	for {
		var r ManualOverrideRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("loadManualOverrides: iter next: %w", err)
		}
		if r.Amount == nil {
			return nil, fmt.Errorf("loadManualOverrides: override %q has no amount", r.Description)
		}
		overrides = append(overrides, refdata.ManualOverride{
			PostDate:    r.PostDate.In(time.UTC),
			Amount:      decimal.NewFromBigRat(r.Amount, 2),
			Description: r.Description,
			Category:    r.Category,
		})
	}

	return overrides, nil
}

func loadFlowOverrides(ctx context.Context, client *bigquery.Client) ([]refdata.FlowOverride, error) {
	q := client.Query(`
		SELECT account, indicator, flow
		FROM ` + datasetID + `.` + flowOverridesTable + `
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("loadFlowOverrides: query read: %w", err)
	}

	var overrides []refdata.FlowOverride
	for {
		var r FlowOverrideRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("loadFlowOverrides: iter next: %w", err)
		}
		overrides = append(overrides, refdata.FlowOverride{
			Account:   r.Account,
			Indicator: domain.Indicator(r.Indicator),
			Flow:      domain.Flow(r.Flow),
		})
	}

	return overrides, nil
}

func loadCorrections(ctx context.Context, client *bigquery.Client) ([]refdata.Correction, error) {
	q := client.Query(`
		SELECT
			correction_id,
			kind,
			amount,
			flow,
			post_date,
			transaction_date,
			account,
			description,
			txn_type,
			category
		FROM ` + datasetID + `.` + correctionsTable + `
		ORDER BY correction_id, kind
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("loadCorrections: query read: %w", err)
	}

	var rows []CorrectionRow
	for {
		var r CorrectionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("loadCorrections: iter next: %w", err)
		}
		rows = append(rows, r)
	}

	return groupCorrectionRows(rows)
}

// groupCorrectionRows folds kind-tagged rows into corrections, keeping
// the rows' correction_id order (the query already sorts them).
func groupCorrectionRows(rows []CorrectionRow) ([]refdata.Correction, error) {
	grouped := map[string]*refdata.Correction{}
	var order []string
	for _, r := range rows {
		if r.Amount == nil {
			return nil, fmt.Errorf("loadCorrections: correction %s row has no amount", r.CorrectionID)
		}

		corr, ok := grouped[r.CorrectionID]
		if !ok {
			corr = &refdata.Correction{}
			grouped[r.CorrectionID] = corr
			order = append(order, r.CorrectionID)
		}

		amount := decimal.NewFromBigRat(r.Amount, 2)
		postDate := r.PostDate.In(time.UTC)

		switch r.Kind {
		case "REMOVE":
			corr.Removals = append(corr.Removals, refdata.CorrectionKey{
				Amount:   amount,
				Flow:     domain.Flow(r.Flow),
				PostDate: postDate,
			})
		case "ADD":
			if corr.Replacement != nil {
				return nil, fmt.Errorf("loadCorrections: correction %s has multiple ADD rows", r.CorrectionID)
			}
			txnDate := postDate
			if r.TransactionDate.Valid {
				txnDate = r.TransactionDate.Date.In(time.UTC)
			}
			corr.Replacement = &domain.Transaction{
				PostDate:    postDate,
				TxnDate:     txnDate,
				Account:     r.Account.StringVal,
				Amount:      amount,
				Description: r.Description.StringVal,
				Type:        r.TxnType.StringVal,
				Flow:        domain.Flow(r.Flow),
				Category:    r.Category.StringVal,
			}
		default:
			return nil, fmt.Errorf("loadCorrections: correction %s has unknown kind %q", r.CorrectionID, r.Kind)
		}
	}

	corrections := make([]refdata.Correction, 0, len(order))
	for _, id := range order {
		corrections = append(corrections, *grouped[id])
	}
	return corrections, nil
}

func loadAccounts(ctx context.Context, client *bigquery.Client, ref *refdata.ReferenceData) error {
	q := client.Query(`
		SELECT account_name, is_credit_card
		FROM ` + datasetID + `.` + accountsTable + `
		ORDER BY account_name
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return fmt.Errorf("loadAccounts: query read: %w", err)
	}

	for {
		var r AccountRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("loadAccounts: iter next: %w", err)
		}
		ref.AccountNames = append(ref.AccountNames, r.AccountName)
		if r.IsCreditCard {
			if ref.CreditCardAccount != "" {
				return fmt.Errorf("loadAccounts: multiple credit card accounts: %s and %s", ref.CreditCardAccount, r.AccountName)
			}
			ref.CreditCardAccount = r.AccountName
		}
	}

	return nil
}
