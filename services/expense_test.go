package services

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/splitbills/splitbills-api/models"
)

var testMembers = map[string]bool{"alice": true, "bob": true, "carol": true}

func makeExpense(amount float64, currency string, participants ...models.Participant) models.Expense {
	return models.Expense{
		CreatedBy:    participants[0].UserID,
		Amount:       amount,
		Currency:     currency,
		Participants: participants,
		CreatedAt:    time.Now().UTC(),
	}
}

func part(userID string, responsibleFor, paid float64) models.Participant {
	return models.Participant{UserID: userID, ResponsibleFor: responsibleFor, Paid: paid}
}

func cloneDoc(t *testing.T, doc *models.LedgerDocument) *models.LedgerDocument {
	t.Helper()
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	out := models.NewLedgerDocument()
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatal(err)
	}
	return out
}

func assertZeroSum(t *testing.T, doc *models.LedgerDocument) {
	t.Helper()
	for currency, balances := range doc.CurrencyBalances {
		sum := 0.0
		for _, b := range balances {
			sum += b
		}
		if math.Abs(sum) > Epsilon {
			t.Fatalf("currency %s balances sum to %v, expected ~0", currency, sum)
		}
	}
}

// ============================================================================
// VALIDATION
// ============================================================================

func TestValidateExpense(t *testing.T) {
	tests := []struct {
		name    string
		expense models.Expense
		actor   string
		wantErr error
	}{
		{
			name:    "valid split",
			expense: makeExpense(100, "USD", part("alice", 50, 100), part("bob", 50, 0)),
			actor:   "alice",
		},
		{
			name:    "responsibilities do not sum to amount",
			expense: makeExpense(100, "USD", part("alice", 50, 100), part("bob", 40, 0)),
			actor:   "alice",
			wantErr: ErrValidation,
		},
		{
			name:    "payments do not sum to amount",
			expense: makeExpense(100, "USD", part("alice", 50, 90), part("bob", 50, 0)),
			actor:   "alice",
			wantErr: ErrValidation,
		},
		{
			name:    "rounding tolerance accepted",
			expense: makeExpense(100, "USD", part("alice", 33.33, 100), part("bob", 33.33, 0), part("carol", 33.34, 0)),
			actor:   "alice",
		},
		{
			name:    "negative amounts rejected",
			expense: makeExpense(100, "USD", part("alice", 150, 100), part("bob", -50, 0)),
			actor:   "alice",
			wantErr: ErrValidation,
		},
		{
			name:    "participant not a member",
			expense: makeExpense(100, "USD", part("alice", 50, 100), part("mallory", 50, 0)),
			actor:   "alice",
			wantErr: ErrNotMember,
		},
		{
			name:    "actor not among participants",
			expense: makeExpense(100, "USD", part("alice", 50, 100), part("bob", 50, 0)),
			actor:   "carol",
			wantErr: ErrActorNotIncluded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExpense(tt.expense, testMembers, tt.actor)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// ============================================================================
// ADD
// ============================================================================

func TestAddExpenseAppliesDeltas(t *testing.T) {
	doc := models.NewLedgerDocument()
	expense := makeExpense(100, "USD", part("alice", 50, 100), part("bob", 50, 0))

	if err := AddExpense(doc, expense, testMembers, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := doc.CurrencyBalances["USD"]["alice"]; got != 50 {
		t.Fatalf("expected alice +50, got %v", got)
	}
	if got := doc.CurrencyBalances["USD"]["bob"]; got != -50 {
		t.Fatalf("expected bob -50, got %v", got)
	}
	if got := doc.TotalByCurrency["USD"]; got != 100 {
		t.Fatalf("expected USD total 100, got %v", got)
	}
	if len(doc.Expenses) != 1 {
		t.Fatalf("expected 1 stored expense, got %d", len(doc.Expenses))
	}
	assertZeroSum(t, doc)
}

func TestAddExpenseValidationLeavesLedgerUntouched(t *testing.T) {
	doc := models.NewLedgerDocument()
	good := makeExpense(60, "EUR", part("alice", 30, 60), part("bob", 30, 0))
	if err := AddExpense(doc, good, testMembers, "alice"); err != nil {
		t.Fatal(err)
	}
	before := cloneDoc(t, doc)

	bad := makeExpense(100, "USD", part("alice", 50, 100), part("bob", 40, 0))
	err := AddExpense(doc, bad, testMembers, "alice")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if len(doc.Expenses) != len(before.Expenses) {
		t.Fatal("failed add must not append the expense")
	}
	if _, ok := doc.CurrencyBalances["USD"]; ok {
		t.Fatal("failed add must not touch balances")
	}
	if doc.TotalByCurrency["EUR"] != before.TotalByCurrency["EUR"] {
		t.Fatal("failed add must not touch totals")
	}
}

func TestAddExpenseRejectedWhenFinalized(t *testing.T) {
	doc := models.NewLedgerDocument()
	doc.Finalized = &models.FinalizedSummary{BaseCurrency: "USD"}

	expense := makeExpense(100, "USD", part("alice", 50, 100), part("bob", 50, 0))
	if err := AddExpense(doc, expense, testMembers, "alice"); !errors.Is(err, ErrEventFinalized) {
		t.Fatalf("expected ErrEventFinalized, got %v", err)
	}
}

// ============================================================================
// DELETE
// ============================================================================

func TestDeleteExpenseRestoresPriorState(t *testing.T) {
	doc := models.NewLedgerDocument()
	first := makeExpense(60, "USD", part("alice", 20, 60), part("bob", 20, 0), part("carol", 20, 0))
	if err := AddExpense(doc, first, testMembers, "alice"); err != nil {
		t.Fatal(err)
	}
	before := cloneDoc(t, doc)

	second := makeExpense(90, "USD", part("bob", 45, 90), part("carol", 45, 0))
	if err := AddExpense(doc, second, testMembers, "bob"); err != nil {
		t.Fatal(err)
	}
	if err := DeleteExpense(doc, 1); err != nil {
		t.Fatal(err)
	}

	for user, want := range before.CurrencyBalances["USD"] {
		if got := doc.CurrencyBalances["USD"][user]; math.Abs(got-want) > Epsilon {
			t.Fatalf("user %s balance %v after delete, expected %v", user, got, want)
		}
	}
	if math.Abs(doc.TotalByCurrency["USD"]-before.TotalByCurrency["USD"]) > Epsilon {
		t.Fatalf("total %v after delete, expected %v", doc.TotalByCurrency["USD"], before.TotalByCurrency["USD"])
	}
	if len(doc.Expenses) != 1 {
		t.Fatalf("expected 1 expense left, got %d", len(doc.Expenses))
	}
	assertZeroSum(t, doc)
}

func TestDeleteOnlyExpenseRemovesCurrency(t *testing.T) {
	doc := models.NewLedgerDocument()
	expense := makeExpense(500, "JPY", part("alice", 250, 500), part("bob", 250, 0))
	if err := AddExpense(doc, expense, testMembers, "alice"); err != nil {
		t.Fatal(err)
	}

	if err := DeleteExpense(doc, 0); err != nil {
		t.Fatal(err)
	}

	if _, ok := doc.CurrencyBalances["JPY"]; ok {
		t.Fatal("expected JPY balances removed with its last expense")
	}
	if _, ok := doc.TotalByCurrency["JPY"]; ok {
		t.Fatal("expected JPY total removed with its last expense")
	}
	if len(doc.Expenses) != 0 {
		t.Fatalf("expected no expenses, got %d", len(doc.Expenses))
	}
}

func TestDeleteExpenseOutOfRange(t *testing.T) {
	doc := models.NewLedgerDocument()

	if err := DeleteExpense(doc, 0); !errors.Is(err, ErrExpenseNotFound) {
		t.Fatalf("expected ErrExpenseNotFound, got %v", err)
	}
	if err := DeleteExpense(doc, -1); !errors.Is(err, ErrExpenseNotFound) {
		t.Fatalf("expected ErrExpenseNotFound, got %v", err)
	}
}

func TestDeleteLegacyExpenseRejected(t *testing.T) {
	doc := models.NewLedgerDocument()
	share := 50.0
	doc.Expenses = append(doc.Expenses, models.Expense{
		CreatedBy: "alice",
		Amount:    100,
		Currency:  "USD",
		Participants: []models.Participant{
			{UserID: "alice", Share: &share},
			{UserID: "bob", Share: &share},
		},
	})

	if err := DeleteExpense(doc, 0); !errors.Is(err, ErrLegacyExpense) {
		t.Fatalf("expected ErrLegacyExpense, got %v", err)
	}
	if len(doc.Expenses) != 1 {
		t.Fatal("rejected delete must not remove the expense")
	}
}

// ============================================================================
// UPDATE
// ============================================================================

func TestUpdateExpenseMatchesDeleteThenAdd(t *testing.T) {
	build := func() *models.LedgerDocument {
		doc := models.NewLedgerDocument()
		first := makeExpense(100, "USD", part("alice", 50, 100), part("bob", 50, 0))
		second := makeExpense(80, "EUR", part("bob", 40, 80), part("carol", 40, 0))
		if err := AddExpense(doc, first, testMembers, "alice"); err != nil {
			t.Fatal(err)
		}
		if err := AddExpense(doc, second, testMembers, "bob"); err != nil {
			t.Fatal(err)
		}
		return doc
	}

	replacement := makeExpense(120, "USD", part("alice", 40, 120), part("bob", 40, 0), part("carol", 40, 0))

	updated := build()
	if err := UpdateExpense(updated, 0, replacement, testMembers, "alice"); err != nil {
		t.Fatal(err)
	}

	rebuilt := build()
	if err := DeleteExpense(rebuilt, 0); err != nil {
		t.Fatal(err)
	}
	if err := AddExpense(rebuilt, replacement, testMembers, "alice"); err != nil {
		t.Fatal(err)
	}

	for currency, balances := range rebuilt.CurrencyBalances {
		for user, want := range balances {
			if got := updated.CurrencyBalances[currency][user]; math.Abs(got-want) > Epsilon {
				t.Fatalf("%s/%s: update gave %v, delete+add gave %v", currency, user, got, want)
			}
		}
	}
	for currency, want := range rebuilt.TotalByCurrency {
		if got := updated.TotalByCurrency[currency]; math.Abs(got-want) > Epsilon {
			t.Fatalf("total %s: update gave %v, delete+add gave %v", currency, got, want)
		}
	}
	assertZeroSum(t, updated)
}

func TestUpdateExpenseReplacesInPlace(t *testing.T) {
	doc := models.NewLedgerDocument()
	first := makeExpense(100, "USD", part("alice", 50, 100), part("bob", 50, 0))
	second := makeExpense(80, "USD", part("bob", 40, 80), part("carol", 40, 0))
	if err := AddExpense(doc, first, testMembers, "alice"); err != nil {
		t.Fatal(err)
	}
	if err := AddExpense(doc, second, testMembers, "bob"); err != nil {
		t.Fatal(err)
	}

	replacement := makeExpense(60, "USD", part("alice", 30, 60), part("carol", 30, 0))
	if err := UpdateExpense(doc, 0, replacement, testMembers, "alice"); err != nil {
		t.Fatal(err)
	}

	if doc.Expenses[0].Amount != 60 {
		t.Fatalf("expected expense 0 replaced, got amount %v", doc.Expenses[0].Amount)
	}
	if doc.Expenses[1].Amount != 80 {
		t.Fatalf("expected expense 1 untouched, got amount %v", doc.Expenses[1].Amount)
	}
	if doc.Expenses[0].UpdatedAt == nil {
		t.Fatal("expected updated_at stamped on the replaced expense")
	}
}

// Updating the only expense of a currency to the same currency must not make
// the currency vanish mid-update.
func TestUpdateSameCurrencyKeepsCurrency(t *testing.T) {
	doc := models.NewLedgerDocument()
	expense := makeExpense(100, "GBP", part("alice", 50, 100), part("bob", 50, 0))
	if err := AddExpense(doc, expense, testMembers, "alice"); err != nil {
		t.Fatal(err)
	}

	replacement := makeExpense(70, "GBP", part("alice", 35, 70), part("bob", 35, 0))
	if err := UpdateExpense(doc, 0, replacement, testMembers, "alice"); err != nil {
		t.Fatal(err)
	}

	if got := doc.TotalByCurrency["GBP"]; got != 70 {
		t.Fatalf("expected GBP total 70 after update, got %v", got)
	}
	if got := doc.CurrencyBalances["GBP"]["alice"]; got != 35 {
		t.Fatalf("expected alice GBP balance 35, got %v", got)
	}
	assertZeroSum(t, doc)
}

func TestUpdateExpenseInvalidReplacementLeavesLedgerUntouched(t *testing.T) {
	doc := models.NewLedgerDocument()
	expense := makeExpense(100, "USD", part("alice", 50, 100), part("bob", 50, 0))
	if err := AddExpense(doc, expense, testMembers, "alice"); err != nil {
		t.Fatal(err)
	}
	before := cloneDoc(t, doc)

	bad := makeExpense(100, "USD", part("alice", 10, 100), part("bob", 50, 0))
	if err := UpdateExpense(doc, 0, bad, testMembers, "alice"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if got := doc.CurrencyBalances["USD"]["alice"]; got != before.CurrencyBalances["USD"]["alice"] {
		t.Fatal("failed update must not touch balances")
	}
	if got := doc.TotalByCurrency["USD"]; got != before.TotalByCurrency["USD"] {
		t.Fatal("failed update must not touch totals")
	}
}

func TestUpdateExpenseOutOfRange(t *testing.T) {
	doc := models.NewLedgerDocument()
	replacement := makeExpense(60, "USD", part("alice", 30, 60), part("bob", 30, 0))

	if err := UpdateExpense(doc, 3, replacement, testMembers, "alice"); !errors.Is(err, ErrExpenseNotFound) {
		t.Fatalf("expected ErrExpenseNotFound, got %v", err)
	}
}

// ============================================================================
// ZERO-SUM PROPERTY
// ============================================================================

func TestZeroSumAcrossOperationSequence(t *testing.T) {
	doc := models.NewLedgerDocument()

	ops := []func() error{
		func() error {
			return AddExpense(doc, makeExpense(100, "USD", part("alice", 50, 100), part("bob", 50, 0)), testMembers, "alice")
		},
		func() error {
			return AddExpense(doc, makeExpense(90, "EUR", part("bob", 30, 90), part("alice", 30, 0), part("carol", 30, 0)), testMembers, "bob")
		},
		func() error {
			return AddExpense(doc, makeExpense(45, "USD", part("carol", 15, 45), part("alice", 15, 0), part("bob", 15, 0)), testMembers, "carol")
		},
		func() error {
			return UpdateExpense(doc, 1, makeExpense(120, "EUR", part("bob", 60, 120), part("carol", 60, 0)), testMembers, "bob")
		},
		func() error { return DeleteExpense(doc, 0) },
		func() error { return DeleteExpense(doc, 1) },
	}

	for i, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("operation %d failed: %v", i, err)
		}
		assertZeroSum(t, doc)
	}
}

// ============================================================================
// CURRENCY NORMALIZATION
// ============================================================================

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "usd", want: "USD"},
		{input: " EUR ", want: "EUR"},
		{input: "ils", want: "ILS"},
		{input: "x", wantErr: true},
		{input: "TOOLONG", wantErr: true},
		{input: "U2D", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeCurrency(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
