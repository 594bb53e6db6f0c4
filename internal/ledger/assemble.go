package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/money-manager/internal/domain"
	"github.com/dvloznov/money-manager/internal/logger"
	"github.com/dvloznov/money-manager/internal/refdata"
	"github.com/google/uuid"
)

// rowNamespace seeds deterministic ledger row IDs so that the same
// transaction produces the same ID across runs. Stable IDs let the
// Notion mirror update rows in place instead of churning every page on
// every full replacement.
var rowNamespace = uuid.MustParse("f2f1b9d6-4c93-4c43-9a3b-0d4a2f1c7e55")

// Assembler merges classified batches into the final ledger: apply the
// configured corrections, concatenate, and sort for presentation. No
// categorization or exclusion logic happens here; that is already
// resolved upstream.
type Assembler struct {
	corrections []refdata.Correction
}

// New creates an Assembler with the run's corrections.
func New(corrections []refdata.Correction) *Assembler {
	return &Assembler{corrections: corrections}
}

// Assemble concatenates the given batches, applies corrections, sorts
// by post date descending (ties retain input order), and assigns row
// IDs.
func (a *Assembler) Assemble(ctx context.Context, batches ...[]domain.Transaction) []domain.Transaction {
	var out []domain.Transaction
	for _, b := range batches {
		out = append(out, b...)
	}

	out = a.applyCorrections(ctx, out)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PostDate.After(out[j].PostDate)
	})

	assignRowIDs(out)
	return out
}

// applyCorrections patches known one-off data anomalies. A correction
// applies only when every removal key matches at least one row; the
// matched rows are removed and the replacement row is added. When any
// key matches nothing the ledger is left unchanged for that correction,
// which makes the step a no-op on already-corrected data.
func (a *Assembler) applyCorrections(ctx context.Context, txs []domain.Transaction) []domain.Transaction {
	log := logger.FromContext(ctx)

	for _, corr := range a.corrections {
		matched := make(map[int]bool)
		complete := true
		for _, key := range corr.Removals {
			found := false
			for i, tx := range txs {
				if tx.Amount.Equal(key.Amount) && tx.Flow == key.Flow && tx.PostDate.Equal(key.PostDate) {
					matched[i] = true
					found = true
				}
			}
			if !found {
				complete = false
				break
			}
		}

		if !complete {
			log.Info().
				Str("replacement", corr.Replacement.Description).
				Msg("Correction target not found, skipping")
			continue
		}

		kept := make([]domain.Transaction, 0, len(txs))
		for i, tx := range txs {
			if !matched[i] {
				kept = append(kept, tx)
			}
		}
		kept = append(kept, *corr.Replacement)
		txs = kept
	}

	return txs
}

// assignRowIDs gives every row a content-derived UUID. Duplicate rows
// (same date, account, amount, description) are disambiguated by their
// position among their duplicates.
func assignRowIDs(txs []domain.Transaction) {
	seen := make(map[string]int)
	for i := range txs {
		key := fmt.Sprintf("%s|%s|%s|%s|%s|%s",
			domain.FormatDate(txs[i].PostDate),
			txs[i].Account,
			txs[i].Amount.String(),
			txs[i].Description,
			txs[i].Type,
			txs[i].Flow,
		)
		n := seen[key]
		seen[key] = n + 1
		txs[i].ID = uuid.NewSHA1(rowNamespace, []byte(fmt.Sprintf("%s|%d", key, n))).String()
	}
}
