package services

import "errors"

// Stable error kinds surfaced by the event and expense operations. Handlers
// map each one to a fixed HTTP status; none of them is ever downgraded to a
// default value.
var (
	// ErrValidation: participant sums do not match the expense amount.
	ErrValidation = errors.New("expense validation failed")

	// ErrNotMember: a participant is not a member of the event.
	ErrNotMember = errors.New("user is not a member of this event")

	// ErrActorNotIncluded: the acting user is absent from the participants.
	ErrActorNotIncluded = errors.New("you must include yourself in the participants list")

	// ErrEventNotFound: unknown event, or the caller has no access to it.
	ErrEventNotFound = errors.New("event not found")

	// ErrExpenseNotFound: expense index out of range.
	ErrExpenseNotFound = errors.New("expense not found")

	// ErrUnsupportedCurrency: no rate path between a ledger currency and the
	// chosen final currency.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrLegacyExpense: a stored share-only participant record cannot be
	// reversed; it must be migrated first (migration package).
	ErrLegacyExpense = errors.New("legacy expense record must be migrated before modification")

	// ErrEventFinalized: the event is sealed; no further mutations.
	ErrEventFinalized = errors.New("event is finalized")

	// ErrUserNotFound: an email does not resolve to a registered user.
	ErrUserNotFound = errors.New("user not found")
)
