// migration/migrate_legacy_expenses.go
// One-shot migration converting legacy share-shaped expense records to the
// canonical responsible_for/paid shape, then rebuilding the per-currency
// balances and totals from the converted expense list.
//
// USAGE: call MigrateAllEvents(db) from main.go once, or from an admin task.
// Documents without legacy records are left untouched.

package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/splitbills/splitbills-api/models"
	"github.com/splitbills/splitbills-api/services"
	"github.com/splitbills/splitbills-api/utils"
)

// legacyExpense mirrors the persisted shape of pre-canonical records: a
// payer_id and per-participant shares instead of paid/responsible_for pairs.
type legacyExpense struct {
	models.Expense
	PayerID string `json:"payer_id,omitempty"`
}

type legacyDocument struct {
	Expenses         []legacyExpense               `json:"expenses"`
	CurrencyBalances map[string]map[string]float64 `json:"currency_balances"`
	TotalByCurrency  map[string]float64            `json:"total_expenses_by_currency"`
	Finalized        *models.FinalizedSummary      `json:"finalized,omitempty"`
}

// MigrateAllEvents converts every stored event document that still carries
// legacy records. Returns the number of migrated documents.
func MigrateAllEvents(db *sql.DB) (int, error) {
	ctx := context.Background()

	rows, err := db.QueryContext(ctx, `SELECT event_id FROM event_data`)
	if err != nil {
		return 0, fmt.Errorf("listing event documents: %w", err)
	}
	defer rows.Close()

	eventIDs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		eventIDs = append(eventIDs, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	migrated := 0
	for _, eventID := range eventIDs {
		changed, err := migrateEvent(ctx, db, eventID)
		if err != nil {
			return migrated, fmt.Errorf("migrating event %s: %w", eventID, err)
		}
		if changed {
			migrated++
			log.Printf("✅ Migrated legacy expenses for event %s", eventID)
		}
	}

	log.Printf("🏁 Legacy expense migration complete: %d of %d documents converted", migrated, len(eventIDs))
	return migrated, nil
}

func migrateEvent(ctx context.Context, db *sql.DB, eventID string) (bool, error) {
	changed := false
	err := utils.WithTransaction(db, func(tx *sql.Tx) error {
		var raw []byte
		var version int
		query := `SELECT data, version FROM event_data WHERE event_id = $1 FOR UPDATE`
		if err := tx.QueryRowContext(ctx, query, eventID).Scan(&raw, &version); err != nil {
			return err
		}

		var legacy legacyDocument
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return err
		}

		doc, converted, err := ConvertDocument(&legacy)
		if err != nil {
			return err
		}
		if !converted {
			return nil
		}
		changed = true

		updated, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		update := `
			UPDATE event_data
			SET data = $1, version = $2, updated_at = NOW()
			WHERE event_id = $3 AND version = $4
		`
		result, err := tx.ExecContext(ctx, update, updated, version+1, eventID, version)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected != 1 {
			return fmt.Errorf("version conflict on event %s", eventID)
		}
		return nil
	})
	return changed, err
}

// ConvertDocument rewrites legacy participants into the canonical shape and
// rebuilds balances and totals from the full expense list. The second return
// is false when the document had nothing to convert. Fails when a legacy
// record names no payer among its participants; assigning nobody the paid
// amount would leave that expense's deltas summing to -amount.
func ConvertDocument(legacy *legacyDocument) (*models.LedgerDocument, bool, error) {
	converted := false
	doc := models.NewLedgerDocument()
	doc.Finalized = legacy.Finalized

	for i, le := range legacy.Expenses {
		expense := le.Expense
		changed, err := convertExpense(&expense, le.PayerID)
		if err != nil {
			return nil, false, fmt.Errorf("expense %d: %w", i, err)
		}
		if changed {
			converted = true
		}
		doc.Expenses = append(doc.Expenses, expense)
	}

	if !converted {
		return nil, false, nil
	}

	// Rebuild the running state from scratch; the converted deltas are
	// zero-sum by construction, so the rebuilt ledger is too.
	for _, expense := range doc.Expenses {
		for _, p := range expense.Participants {
			services.ApplyDelta(doc, expense.Currency, p.UserID, p.Delta())
		}
		services.AccumulateTotal(doc, expense.Currency, expense.Amount)
	}

	return doc, true, nil
}

// convertExpense maps each share-only participant to responsible_for = share
// and paid = full amount for the payer, 0 for everyone else. The payer must
// appear among the participants, otherwise the converted deltas cannot sum
// to zero.
func convertExpense(expense *models.Expense, payerID string) (bool, error) {
	payer := expense.CreatedBy
	if payer == "" {
		payer = payerID
	}
	expense.CreatedBy = payer

	hasLegacy := false
	payerIncluded := false
	for _, p := range expense.Participants {
		if p.Legacy() {
			hasLegacy = true
		}
		if p.UserID == payer {
			payerIncluded = true
		}
	}
	if !hasLegacy {
		return false, nil
	}
	if !payerIncluded {
		return false, fmt.Errorf("legacy record has no payer among participants")
	}

	for i, p := range expense.Participants {
		if !p.Legacy() {
			continue
		}

		paid := 0.0
		if p.UserID == payer {
			paid = expense.Amount
		}
		expense.Participants[i] = models.Participant{
			UserID:         p.UserID,
			ResponsibleFor: *p.Share,
			Paid:           paid,
		}
	}
	return true, nil
}
