package services

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/splitbills/splitbills-api/models"
)

// ============================================================================
// EXPENSE PROCESSOR
// ============================================================================
// Every mutation is validate-then-apply: all error conditions are checked
// before the first write to the document, so a failed call never leaves a
// partial ledger behind.

// NormalizeCurrency upper-cases and checks a currency code (2-4 letters).
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 2 || len(code) > 4 {
		return "", fmt.Errorf("%w: currency code must be 2-4 characters", ErrValidation)
	}
	for _, r := range code {
		if !unicode.IsLetter(r) {
			return "", fmt.Errorf("%w: currency code must contain only letters", ErrValidation)
		}
	}
	return code, nil
}

// ValidateExpense checks an expense against the event's member set and the
// acting user, without touching the document.
//
// Rules: every participant is an event member, the actor appears among the
// participants, and both the responsible_for and paid columns sum to the
// expense amount within Epsilon.
func ValidateExpense(expense models.Expense, members map[string]bool, actorID string) error {
	totalResponsible := 0.0
	totalPaid := 0.0
	actorIncluded := false

	for _, p := range expense.Participants {
		if !members[p.UserID] {
			return fmt.Errorf("%w: %s", ErrNotMember, p.UserID)
		}
		if p.ResponsibleFor < 0 || p.Paid < 0 {
			return fmt.Errorf("%w: amounts must be non-negative", ErrValidation)
		}
		if p.UserID == actorID {
			actorIncluded = true
		}
		totalResponsible += p.ResponsibleFor
		totalPaid += p.Paid
	}

	if !actorIncluded {
		return ErrActorNotIncluded
	}
	if math.Abs(totalResponsible-expense.Amount) > Epsilon {
		return fmt.Errorf("%w: responsibilities (%.2f) must equal expense amount (%.2f)",
			ErrValidation, totalResponsible, expense.Amount)
	}
	if math.Abs(totalPaid-expense.Amount) > Epsilon {
		return fmt.Errorf("%w: payments (%.2f) must equal expense amount (%.2f)",
			ErrValidation, totalPaid, expense.Amount)
	}
	return nil
}

// AddExpense validates the expense and applies it: one delta per participant,
// the amount added to the currency total, and the expense appended.
func AddExpense(doc *models.LedgerDocument, expense models.Expense, members map[string]bool, actorID string) error {
	if doc.Finalized != nil {
		return ErrEventFinalized
	}
	if err := ValidateExpense(expense, members, actorID); err != nil {
		return err
	}

	applyDeltas(doc, expense)
	doc.Expenses = append(doc.Expenses, expense)
	return nil
}

// UpdateExpense replaces the expense at index in place, modeled as
// reverse-then-reapply. All checks (index, finalized state, legacy shape of
// the stored record, validity of the replacement) run before any mutation;
// the old deltas are then reversed and pruned before the new ones are
// applied, even when both use the same currency.
func UpdateExpense(doc *models.LedgerDocument, index int, newExpense models.Expense, members map[string]bool, actorID string) error {
	if doc.Finalized != nil {
		return ErrEventFinalized
	}
	if index < 0 || index >= len(doc.Expenses) {
		return ErrExpenseNotFound
	}
	old := doc.Expenses[index]
	if hasLegacyParticipant(old) {
		return ErrLegacyExpense
	}
	if err := ValidateExpense(newExpense, members, actorID); err != nil {
		return err
	}

	reverseDeltas(doc, old)
	applyDeltas(doc, newExpense)

	now := time.Now().UTC()
	newExpense.CreatedAt = old.CreatedAt
	newExpense.UpdatedAt = &now
	doc.Expenses[index] = newExpense
	return nil
}

// DeleteExpense reverses the stored expense's deltas and total, prunes its
// currency if emptied, and removes the expense from the list.
func DeleteExpense(doc *models.LedgerDocument, index int) error {
	if doc.Finalized != nil {
		return ErrEventFinalized
	}
	if index < 0 || index >= len(doc.Expenses) {
		return ErrExpenseNotFound
	}
	expense := doc.Expenses[index]
	if hasLegacyParticipant(expense) {
		return ErrLegacyExpense
	}

	reverseDeltas(doc, expense)
	doc.Expenses = append(doc.Expenses[:index], doc.Expenses[index+1:]...)
	return nil
}

func applyDeltas(doc *models.LedgerDocument, expense models.Expense) {
	for _, p := range expense.Participants {
		ApplyDelta(doc, expense.Currency, p.UserID, p.Delta())
	}
	AccumulateTotal(doc, expense.Currency, expense.Amount)
}

func reverseDeltas(doc *models.LedgerDocument, expense models.Expense) {
	for _, p := range expense.Participants {
		ApplyDelta(doc, expense.Currency, p.UserID, -p.Delta())
	}
	AccumulateTotal(doc, expense.Currency, -expense.Amount)
	Prune(doc, expense.Currency)
}

func hasLegacyParticipant(expense models.Expense) bool {
	for _, p := range expense.Participants {
		if p.Legacy() {
			return true
		}
	}
	return false
}
