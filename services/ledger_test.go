package services

import (
	"math"
	"testing"

	"github.com/splitbills/splitbills-api/models"
)

func TestApplyDeltaCreatesEntries(t *testing.T) {
	doc := models.NewLedgerDocument()

	ApplyDelta(doc, "USD", "alice", 50)
	ApplyDelta(doc, "USD", "bob", -50)
	ApplyDelta(doc, "EUR", "alice", 10)

	if got := doc.CurrencyBalances["USD"]["alice"]; got != 50 {
		t.Fatalf("expected alice USD balance 50, got %v", got)
	}
	if got := doc.CurrencyBalances["USD"]["bob"]; got != -50 {
		t.Fatalf("expected bob USD balance -50, got %v", got)
	}
	if got := doc.CurrencyBalances["EUR"]["alice"]; got != 10 {
		t.Fatalf("expected alice EUR balance 10, got %v", got)
	}
}

func TestApplyDeltaAccumulates(t *testing.T) {
	doc := models.NewLedgerDocument()

	ApplyDelta(doc, "USD", "alice", 30)
	ApplyDelta(doc, "USD", "alice", -12.5)

	if got := doc.CurrencyBalances["USD"]["alice"]; math.Abs(got-17.5) > 1e-9 {
		t.Fatalf("expected alice balance 17.5, got %v", got)
	}
}

func TestAccumulateTotal(t *testing.T) {
	doc := models.NewLedgerDocument()

	AccumulateTotal(doc, "EUR", 100)
	AccumulateTotal(doc, "EUR", 40)

	if got := doc.TotalByCurrency["EUR"]; got != 140 {
		t.Fatalf("expected EUR total 140, got %v", got)
	}
}

func TestPruneRemovesDeadCurrency(t *testing.T) {
	doc := models.NewLedgerDocument()

	ApplyDelta(doc, "JPY", "alice", 1000)
	ApplyDelta(doc, "JPY", "bob", -1000)
	AccumulateTotal(doc, "JPY", 1000)

	AccumulateTotal(doc, "JPY", -1000)
	ApplyDelta(doc, "JPY", "alice", -1000)
	ApplyDelta(doc, "JPY", "bob", 1000)
	Prune(doc, "JPY")

	if _, ok := doc.CurrencyBalances["JPY"]; ok {
		t.Fatal("expected JPY balances removed after prune")
	}
	if _, ok := doc.TotalByCurrency["JPY"]; ok {
		t.Fatal("expected JPY total removed after prune")
	}
}

func TestPruneKeepsLiveCurrency(t *testing.T) {
	doc := models.NewLedgerDocument()

	AccumulateTotal(doc, "USD", 100)
	ApplyDelta(doc, "USD", "alice", 50)
	ApplyDelta(doc, "USD", "bob", -50)
	Prune(doc, "USD")

	if _, ok := doc.TotalByCurrency["USD"]; !ok {
		t.Fatal("prune must keep a currency with a non-zero total")
	}
}

func TestPruneToleratesRoundingResidue(t *testing.T) {
	doc := models.NewLedgerDocument()

	AccumulateTotal(doc, "USD", 0.004)
	Prune(doc, "USD")

	if _, ok := doc.TotalByCurrency["USD"]; ok {
		t.Fatal("a total within epsilon of zero must be pruned")
	}
}
