package services

import (
	"fmt"
	"math"
	"time"

	"github.com/splitbills/splitbills-api/models"
)

// ============================================================================
// CURRENCY CONSOLIDATOR
// ============================================================================
// Rates are quoted against USD: rates["EUR"] is the price of 1 USD in EUR.
// Any conversion between two non-USD currencies routes through USD.

// conversionFactor returns the multiplier that converts an amount in currency
// into finalCurrency, or ErrUnsupportedCurrency when a needed rate is absent.
func conversionFactor(currency, finalCurrency string, rates map[string]float64) (float64, error) {
	if currency == finalCurrency {
		return 1, nil
	}

	if finalCurrency == "USD" {
		rate, ok := rates[currency]
		if !ok || rate <= 0 {
			return 0, fmt.Errorf("%w: no rate for %s", ErrUnsupportedCurrency, currency)
		}
		return 1 / rate, nil
	}

	if currency == "USD" {
		rate, ok := rates[finalCurrency]
		if !ok || rate <= 0 {
			return 0, fmt.Errorf("%w: no rate for %s", ErrUnsupportedCurrency, finalCurrency)
		}
		return rate, nil
	}

	fromRate, ok := rates[currency]
	if !ok || fromRate <= 0 {
		return 0, fmt.Errorf("%w: no rate for %s", ErrUnsupportedCurrency, currency)
	}
	toRate, ok := rates[finalCurrency]
	if !ok || toRate <= 0 {
		return 0, fmt.Errorf("%w: no rate for %s", ErrUnsupportedCurrency, finalCurrency)
	}
	return (1 / fromRate) * toRate, nil
}

// Consolidate folds every per-currency balance and total into finalCurrency
// and settles the combined balances with one solver pass. The input document
// is not mutated; the returned snapshot is a separate finalized summary.
// All-or-nothing: a single missing rate fails the whole consolidation.
func Consolidate(doc *models.LedgerDocument, rates map[string]float64, finalCurrency string) (*models.FinalizedSummary, error) {
	finalBalances := map[string]float64{}
	totalFinal := 0.0

	for currency, balances := range doc.CurrencyBalances {
		factor, err := conversionFactor(currency, finalCurrency, rates)
		if err != nil {
			return nil, err
		}
		for userID, balance := range balances {
			finalBalances[userID] += balance * factor
		}
	}

	for currency, total := range doc.TotalByCurrency {
		factor, err := conversionFactor(currency, finalCurrency, rates)
		if err != nil {
			return nil, err
		}
		totalFinal += total * factor
	}

	for userID, balance := range finalBalances {
		if math.Abs(balance) <= Epsilon {
			delete(finalBalances, userID)
			continue
		}
		finalBalances[userID] = round2(balance)
	}

	ratesUsed := make(map[string]float64, len(rates))
	for code, rate := range rates {
		ratesUsed[code] = rate
	}

	return &models.FinalizedSummary{
		BaseCurrency:       finalCurrency,
		FinalBalances:      finalBalances,
		FinalPayments:      SolvePayments(finalBalances, finalCurrency),
		ExchangeRatesUsed:  ratesUsed,
		TotalExpensesFinal: round2(totalFinal),
		FinalizedAt:        time.Now().UTC(),
	}, nil
}
