package models

import "time"

// ============================================================================
// EVENT & MEMBERS
// ============================================================================

type Event struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	IsOwner   bool            `json:"is_owner"`
	Members   []Member        `json:"members"`
	Document  *LedgerDocument `json:"document,omitempty"`
}

type Member struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}

// ============================================================================
// EXPENSES
// ============================================================================

// Participant is the canonical shape: how much a member is liable for and how
// much they actually contributed, both in the expense's currency. Legacy
// documents written before the canonical shape carry only Share; those records
// are converted once by the migration package and are otherwise rejected.
type Participant struct {
	UserID         string   `json:"user_id"`
	ResponsibleFor float64  `json:"responsible_for"`
	Paid           float64  `json:"paid"`
	Share          *float64 `json:"share,omitempty"` // legacy records only
}

// Legacy reports whether this participant predates the canonical shape.
func (p Participant) Legacy() bool {
	return p.Share != nil
}

// Delta is the signed balance contribution of this participant.
func (p Participant) Delta() float64 {
	return p.Paid - p.ResponsibleFor
}

type Expense struct {
	CreatedBy    string        `json:"created_by"`
	Amount       float64       `json:"amount"`
	Currency     string        `json:"currency"`
	Participants []Participant `json:"participants"`
	Note         string        `json:"note,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    *time.Time    `json:"updated_at,omitempty"`
}

// ============================================================================
// LEDGER DOCUMENT
// ============================================================================

// LedgerDocument is the whole-document state persisted for one event:
// the expense list, the running per-currency balances and totals, and the
// finalize snapshot once the event is sealed. It is always read, mutated and
// written back as a single unit.
type LedgerDocument struct {
	Expenses         []Expense                     `json:"expenses"`
	CurrencyBalances map[string]map[string]float64 `json:"currency_balances"`
	TotalByCurrency  map[string]float64            `json:"total_expenses_by_currency"`
	Finalized        *FinalizedSummary             `json:"finalized,omitempty"`
}

func NewLedgerDocument() *LedgerDocument {
	return &LedgerDocument{
		Expenses:         []Expense{},
		CurrencyBalances: map[string]map[string]float64{},
		TotalByCurrency:  map[string]float64{},
	}
}

type FinalizedSummary struct {
	BaseCurrency       string             `json:"base_currency"`
	FinalBalances      map[string]float64 `json:"final_balances"`
	FinalPayments      []Payment          `json:"final_payments"`
	ExchangeRatesUsed  map[string]float64 `json:"exchange_rates_used"`
	TotalExpensesFinal float64            `json:"total_expenses_final"`
	FinalizedAt        time.Time          `json:"finalized_at"`
}

// Payment is a settlement directive, derived output only, never ledger state.
type Payment struct {
	FromUserID string  `json:"from_user_id"`
	ToUserID   string  `json:"to_user_id"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
}

// ============================================================================
// EVENT REQUESTS
// ============================================================================

type MemberInput struct {
	Email string `json:"email" binding:"required,email"`
}

type CreateEventRequest struct {
	Name    string        `json:"name" binding:"required"`
	Members []MemberInput `json:"members"`
}

// ParticipantInput is the advanced expense input shape.
type ParticipantInput struct {
	Email          string  `json:"email" binding:"required,email"`
	ResponsibleFor float64 `json:"responsible_for"`
	Paid           float64 `json:"paid"`
}

type AdvancedExpenseRequest struct {
	Amount       float64            `json:"amount" binding:"required,gt=0"`
	Currency     string             `json:"currency" binding:"required"`
	Participants []ParticipantInput `json:"participants" binding:"required,min=1"`
	Note         string             `json:"note"`
}

// SimpleExpenseRequest splits the amount equally; the acting user paid it all.
type SimpleExpenseRequest struct {
	Amount       float64  `json:"amount" binding:"required,gt=0"`
	Currency     string   `json:"currency" binding:"required"`
	Participants []string `json:"participants" binding:"required,min=1"`
	Note         string   `json:"note"`
}

type ShareInput struct {
	Email string  `json:"email" binding:"required,email"`
	Share float64 `json:"share" binding:"required,gt=0"`
}

// CustomExpenseRequest carries explicit per-member shares; the acting user
// paid it all.
type CustomExpenseRequest struct {
	Amount       float64      `json:"amount" binding:"required,gt=0"`
	Currency     string       `json:"currency" binding:"required"`
	Participants []ShareInput `json:"participants" binding:"required,min=1"`
	Note         string       `json:"note"`
}

type FinalizeRequest struct {
	FinalCurrency string `json:"final_currency" binding:"required"`
}

// ============================================================================
// EVENT RESPONSES
// ============================================================================

// EventSummary is the per-currency view: balances, suggested payments and
// totals for every currency still present in the ledger.
type EventSummary struct {
	EventID          string                        `json:"event_id"`
	EventName        string                        `json:"event_name"`
	CurrencyBalances map[string]map[string]float64 `json:"currency_balances"`
	PaymentsNeeded   []Payment                     `json:"payments_needed"`
	TotalByCurrency  map[string]float64            `json:"total_expenses_by_currency"`
}

type EventCurrencyInfo struct {
	EventID         string             `json:"event_id"`
	EventName       string             `json:"event_name"`
	Currencies      []string           `json:"currencies_in_event"`
	SuggestedRates  map[string]float64 `json:"suggested_rates"`
	TotalByCurrency map[string]float64 `json:"total_expenses_by_currency"`
}
