package migration

import (
	"math"
	"testing"

	"github.com/splitbills/splitbills-api/models"
	"github.com/splitbills/splitbills-api/services"
)

func sharePtr(v float64) *float64 { return &v }

func TestConvertDocumentRewritesLegacyShares(t *testing.T) {
	legacy := &legacyDocument{
		Expenses: []legacyExpense{
			{
				Expense: models.Expense{
					Amount:   100,
					Currency: "USD",
					Participants: []models.Participant{
						{UserID: "alice", Share: sharePtr(60)},
						{UserID: "bob", Share: sharePtr(40)},
					},
				},
				PayerID: "alice",
			},
		},
	}

	doc, converted, err := ConvertDocument(legacy)
	if err != nil {
		t.Fatal(err)
	}
	if !converted {
		t.Fatal("expected document to be converted")
	}

	exp := doc.Expenses[0]
	if exp.CreatedBy != "alice" {
		t.Fatalf("expected payer_id promoted to created_by, got %q", exp.CreatedBy)
	}
	for _, p := range exp.Participants {
		if p.Legacy() {
			t.Fatalf("participant %s still legacy after conversion", p.UserID)
		}
	}

	alice := exp.Participants[0]
	if alice.ResponsibleFor != 60 || alice.Paid != 100 {
		t.Fatalf("expected alice {60, 100}, got {%v, %v}", alice.ResponsibleFor, alice.Paid)
	}
	bob := exp.Participants[1]
	if bob.ResponsibleFor != 40 || bob.Paid != 0 {
		t.Fatalf("expected bob {40, 0}, got {%v, %v}", bob.ResponsibleFor, bob.Paid)
	}
}

func TestConvertDocumentRebuildsLedger(t *testing.T) {
	legacy := &legacyDocument{
		Expenses: []legacyExpense{
			{
				Expense: models.Expense{
					Amount:   100,
					Currency: "USD",
					Participants: []models.Participant{
						{UserID: "alice", Share: sharePtr(50)},
						{UserID: "bob", Share: sharePtr(50)},
					},
				},
				PayerID: "alice",
			},
			{
				// Already canonical, must survive untouched.
				Expense: models.Expense{
					CreatedBy: "bob",
					Amount:    30,
					Currency:  "EUR",
					Participants: []models.Participant{
						{UserID: "bob", ResponsibleFor: 15, Paid: 30},
						{UserID: "alice", ResponsibleFor: 15, Paid: 0},
					},
				},
			},
		},
		// Stale running state that the rebuild must replace.
		CurrencyBalances: map[string]map[string]float64{"USD": {"alice": 999}},
		TotalByCurrency:  map[string]float64{"USD": 999},
	}

	doc, converted, err := ConvertDocument(legacy)
	if err != nil {
		t.Fatal(err)
	}
	if !converted {
		t.Fatal("expected document to be converted")
	}

	if got := doc.CurrencyBalances["USD"]["alice"]; got != 50 {
		t.Fatalf("expected alice USD +50 after rebuild, got %v", got)
	}
	if got := doc.CurrencyBalances["EUR"]["alice"]; got != -15 {
		t.Fatalf("expected alice EUR -15 after rebuild, got %v", got)
	}
	if got := doc.TotalByCurrency["USD"]; got != 100 {
		t.Fatalf("expected USD total 100 after rebuild, got %v", got)
	}

	for currency, balances := range doc.CurrencyBalances {
		sum := 0.0
		for _, b := range balances {
			sum += b
		}
		if math.Abs(sum) > services.Epsilon {
			t.Fatalf("rebuilt %s balances sum to %v, expected ~0", currency, sum)
		}
	}
}

func TestConvertDocumentLeavesCanonicalDocsAlone(t *testing.T) {
	legacy := &legacyDocument{
		Expenses: []legacyExpense{
			{
				Expense: models.Expense{
					CreatedBy: "alice",
					Amount:    100,
					Currency:  "USD",
					Participants: []models.Participant{
						{UserID: "alice", ResponsibleFor: 50, Paid: 100},
						{UserID: "bob", ResponsibleFor: 50, Paid: 0},
					},
				},
			},
		},
	}

	_, converted, err := ConvertDocument(legacy)
	if err != nil {
		t.Fatal(err)
	}
	if converted {
		t.Fatal("canonical documents must not be rewritten")
	}
}

func TestConvertDocumentRejectsPayerlessLegacyRecord(t *testing.T) {
	legacy := &legacyDocument{
		Expenses: []legacyExpense{
			{
				// Neither created_by nor payer_id names a participant, so
				// nobody can absorb the paid amount.
				Expense: models.Expense{
					CreatedBy: "mallory",
					Amount:    100,
					Currency:  "USD",
					Participants: []models.Participant{
						{UserID: "alice", Share: sharePtr(50)},
						{UserID: "bob", Share: sharePtr(50)},
					},
				},
			},
		},
	}

	if _, _, err := ConvertDocument(legacy); err == nil {
		t.Fatal("expected error for legacy record without a payer among participants")
	}
}
