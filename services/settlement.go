package services

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/splitbills/splitbills-api/models"
)

type party struct {
	userID string
	amount float64
}

// SolvePayments turns a map of user -> signed balance into the ordered list
// of payments that settles every balance in the given currency.
//
// Greedy two-pointer sweep: debtors and creditors are each sorted ascending
// by user id, then the front debtor pays the front creditor
// min(debt, credit) until one side is exhausted. Deterministic for a given
// input, fully settling, and never more than n-1 payments for n non-zero
// balances. Entries within Epsilon of zero are ignored.
func SolvePayments(balances map[string]float64, currency string) []models.Payment {
	debtors := []party{}
	creditors := []party{}

	for userID, balance := range balances {
		switch {
		case balance < -Epsilon:
			debtors = append(debtors, party{userID: userID, amount: -balance})
		case balance > Epsilon:
			creditors = append(creditors, party{userID: userID, amount: balance})
		}
	}

	sort.Slice(debtors, func(i, j int) bool { return debtors[i].userID < debtors[j].userID })
	sort.Slice(creditors, func(i, j int) bool { return creditors[i].userID < creditors[j].userID })

	payments := []models.Payment{}
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		settled := math.Min(debtors[i].amount, creditors[j].amount)

		payments = append(payments, models.Payment{
			FromUserID: debtors[i].userID,
			ToUserID:   creditors[j].userID,
			Amount:     round2(settled),
			Currency:   currency,
		})

		debtors[i].amount -= settled
		creditors[j].amount -= settled

		if debtors[i].amount <= Epsilon {
			i++
		}
		if creditors[j].amount <= Epsilon {
			j++
		}
	}

	return payments
}

// round2 rounds a monetary amount to 2 decimal places.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// round4 rounds an exchange rate to 4 decimal places.
func round4(v float64) float64 {
	return decimal.NewFromFloat(v).Round(4).InexactFloat64()
}
