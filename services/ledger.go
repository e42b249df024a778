package services

import (
	"math"

	"github.com/splitbills/splitbills-api/models"
)

// Epsilon is the tolerance used for every monetary comparison: expense
// validation, zero-balance filtering and dead-currency pruning.
const Epsilon = 0.01

// ApplyDelta adds delta to the balance of userID in the given currency,
// creating the currency bucket and the user entry at 0 when absent.
func ApplyDelta(doc *models.LedgerDocument, currency, userID string, delta float64) {
	if doc.CurrencyBalances == nil {
		doc.CurrencyBalances = map[string]map[string]float64{}
	}
	balances, ok := doc.CurrencyBalances[currency]
	if !ok {
		balances = map[string]float64{}
		doc.CurrencyBalances[currency] = balances
	}
	balances[userID] += delta
}

// AccumulateTotal adds amount to the running expense total of the currency.
func AccumulateTotal(doc *models.LedgerDocument, currency string, amount float64) {
	if doc.TotalByCurrency == nil {
		doc.TotalByCurrency = map[string]float64{}
	}
	doc.TotalByCurrency[currency] += amount
}

// Prune drops the currency from both maps once its accumulated total is back
// within Epsilon of zero, so deleted expenses do not leave dead currencies
// behind.
func Prune(doc *models.LedgerDocument, currency string) {
	if math.Abs(doc.TotalByCurrency[currency]) < Epsilon {
		delete(doc.TotalByCurrency, currency)
		delete(doc.CurrencyBalances, currency)
	}
}
