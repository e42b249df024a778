package handlers

import (
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/splitbills/splitbills-api/middleware"
	"github.com/splitbills/splitbills-api/models"
	"github.com/splitbills/splitbills-api/services"
	"github.com/splitbills/splitbills-api/utils"
)

type EventHandler struct {
	Events *services.EventService
	Rates  *services.ExchangeRateService
	WS     *WSHandler
}

func NewEventHandler(events *services.EventService, rates *services.ExchangeRateService, ws *WSHandler) *EventHandler {
	return &EventHandler{Events: events, Rates: rates, WS: ws}
}

// CreateEvent creates an event; the creator becomes the first member and the
// other members are resolved by email through the user directory.
func (h *EventHandler) CreateEvent(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	emails := make([]string, 0, len(req.Members))
	for _, m := range req.Members {
		emails = append(emails, m.Email)
	}

	event, err := h.Events.Create(c.Request.Context(), req.Name, userID, emails)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

// GetEvents lists every event the caller belongs to.
func (h *EventHandler) GetEvents(c *gin.Context) {
	userID := middleware.GetUserID(c)

	events, err := h.Events.GetUserEvents(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}

// GetEvent returns one event with members and the full ledger document.
func (h *EventHandler) GetEvent(c *gin.Context) {
	userID := middleware.GetUserID(c)
	eventID := c.Param("id")

	event, err := h.Events.GetByID(c.Request.Context(), eventID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// ============================================================================
// EXPENSES
// ============================================================================
// Three input shapes, all normalized to the canonical participant list
// (responsible_for / paid) before the processor runs.

// AddExpense handles the advanced shape: explicit responsible_for and paid
// per participant.
func (h *EventHandler) AddExpense(c *gin.Context) {
	var req models.AdvancedExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.applyExpense(c, req.Amount, req.Currency, req.Note, func(members map[string]string) ([]models.Participant, error) {
		participants := make([]models.Participant, 0, len(req.Participants))
		for _, p := range req.Participants {
			id, ok := members[p.Email]
			if !ok {
				return nil, services.ErrNotMember
			}
			participants = append(participants, models.Participant{
				UserID:         id,
				ResponsibleFor: p.ResponsibleFor,
				Paid:           p.Paid,
			})
		}
		return participants, nil
	}, -1)
}

// AddSimpleExpense handles the equal-split shape: the amount is divided
// evenly between the listed emails and the acting user paid it all.
func (h *EventHandler) AddSimpleExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req models.SimpleExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	share := req.Amount / float64(len(req.Participants))

	h.applyExpense(c, req.Amount, req.Currency, req.Note, func(members map[string]string) ([]models.Participant, error) {
		participants := make([]models.Participant, 0, len(req.Participants))
		for _, email := range req.Participants {
			id, ok := members[email]
			if !ok {
				return nil, services.ErrNotMember
			}
			paid := 0.0
			if id == userID {
				paid = req.Amount
			}
			participants = append(participants, models.Participant{
				UserID:         id,
				ResponsibleFor: share,
				Paid:           paid,
			})
		}
		return participants, nil
	}, -1)
}

// AddCustomExpense handles the custom-share shape: explicit shares per
// member, paid in full by the acting user.
func (h *EventHandler) AddCustomExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req models.CustomExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.applyExpense(c, req.Amount, req.Currency, req.Note, func(members map[string]string) ([]models.Participant, error) {
		participants := make([]models.Participant, 0, len(req.Participants))
		for _, p := range req.Participants {
			id, ok := members[p.Email]
			if !ok {
				return nil, services.ErrNotMember
			}
			paid := 0.0
			if id == userID {
				paid = req.Amount
			}
			participants = append(participants, models.Participant{
				UserID:         id,
				ResponsibleFor: p.Share,
				Paid:           paid,
			})
		}
		return participants, nil
	}, -1)
}

// UpdateExpense replaces the expense at :index with a new advanced-shape
// expense (reverse-then-reapply underneath).
func (h *EventHandler) UpdateExpense(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense index"})
		return
	}

	var req models.AdvancedExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.applyExpense(c, req.Amount, req.Currency, req.Note, func(members map[string]string) ([]models.Participant, error) {
		participants := make([]models.Participant, 0, len(req.Participants))
		for _, p := range req.Participants {
			id, ok := members[p.Email]
			if !ok {
				return nil, services.ErrNotMember
			}
			participants = append(participants, models.Participant{
				UserID:         id,
				ResponsibleFor: p.ResponsibleFor,
				Paid:           p.Paid,
			})
		}
		return participants, nil
	}, index)
}

// DeleteExpense removes the expense at :index and reverses its ledger effect.
func (h *EventHandler) DeleteExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)
	eventID := c.Param("id")

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense index"})
		return
	}

	doc, err := h.Events.UpdateDocument(c.Request.Context(), eventID, userID, func(doc *models.LedgerDocument, _ []models.Member) error {
		return services.DeleteExpense(doc, index)
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.WS.BroadcastUpdate(eventID, "expense_deleted", userID)
	c.JSON(http.StatusOK, doc)
}

// applyExpense runs one add or update against the event document. build
// turns the request's participant list into canonical participants using the
// event's email -> user id mapping; index -1 means append, otherwise replace.
func (h *EventHandler) applyExpense(c *gin.Context, amount float64, currency, note string, build func(members map[string]string) ([]models.Participant, error), index int) {
	userID := middleware.GetUserID(c)
	eventID := c.Param("id")

	normalized, err := services.NormalizeCurrency(currency)
	if err != nil {
		h.respondError(c, err)
		return
	}

	updateType := "expense_added"
	doc, err := h.Events.UpdateDocument(c.Request.Context(), eventID, userID, func(doc *models.LedgerDocument, members []models.Member) error {
		emailToID := make(map[string]string, len(members))
		memberIDs := make(map[string]bool, len(members))
		for _, m := range members {
			emailToID[m.Email] = m.UserID
			memberIDs[m.UserID] = true
		}

		participants, err := build(emailToID)
		if err != nil {
			return err
		}

		expense := models.Expense{
			CreatedBy:    userID,
			Amount:       amount,
			Currency:     normalized,
			Participants: participants,
			Note:         note,
			CreatedAt:    time.Now().UTC(),
		}

		if index < 0 {
			return services.AddExpense(doc, expense, memberIDs, userID)
		}
		updateType = "expense_updated"
		return services.UpdateExpense(doc, index, expense, memberIDs, userID)
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	log.Printf("💸 Expense %s on event %s by %s: %s %s", updateType, eventID, userID, utils.MaskAmount(amount), normalized)
	h.WS.BroadcastUpdate(eventID, updateType, userID)
	c.JSON(http.StatusOK, doc)
}

// ============================================================================
// SUMMARY / CURRENCIES / FINALIZE
// ============================================================================

// GetSummary returns balances, payment plans and totals per currency.
func (h *EventHandler) GetSummary(c *gin.Context) {
	userID := middleware.GetUserID(c)
	eventID := c.Param("id")

	summary, err := h.Events.BuildSummary(c.Request.Context(), eventID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetCurrencyInfo lists the currencies used in the event with totals and the
// provider's suggested rates.
func (h *EventHandler) GetCurrencyInfo(c *gin.Context) {
	userID := middleware.GetUserID(c)
	eventID := c.Param("id")

	event, err := h.Events.GetByID(c.Request.Context(), eventID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	currencies := make([]string, 0, len(event.Document.CurrencyBalances))
	for currency := range event.Document.CurrencyBalances {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	rates := h.Rates.GetRates()
	suggested := map[string]float64{}
	for _, currency := range currencies {
		if rate, ok := rates[currency]; ok {
			suggested[currency] = rate
		}
	}

	c.JSON(http.StatusOK, models.EventCurrencyInfo{
		EventID:         event.ID,
		EventName:       event.Name,
		Currencies:      currencies,
		SuggestedRates:  suggested,
		TotalByCurrency: event.Document.TotalByCurrency,
	})
}

// Finalize consolidates the whole ledger into one currency, settles it with
// a single payment plan, and seals the event. All-or-nothing: a missing rate
// aborts without writing anything.
func (h *EventHandler) Finalize(c *gin.Context) {
	userID := middleware.GetUserID(c)
	eventID := c.Param("id")

	var req models.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	finalCurrency, err := services.NormalizeCurrency(req.FinalCurrency)
	if err != nil {
		h.respondError(c, err)
		return
	}

	rates := h.Rates.GetRates()
	doc, err := h.Events.UpdateDocument(c.Request.Context(), eventID, userID, func(doc *models.LedgerDocument, _ []models.Member) error {
		if doc.Finalized != nil {
			return services.ErrEventFinalized
		}
		finalized, err := services.Consolidate(doc, rates, finalCurrency)
		if err != nil {
			return err
		}
		doc.Finalized = finalized
		return nil
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	log.Printf("🏁 Event %s finalized in %s by %s", eventID, finalCurrency, userID)
	h.WS.BroadcastUpdate(eventID, "event_finalized", userID)
	c.JSON(http.StatusOK, doc.Finalized)
}

// respondError maps service errors to their stable HTTP statuses.
func (h *EventHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrActorNotIncluded),
		errors.Is(err, services.ErrLegacyExpense):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotMember):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrExpenseNotFound),
		errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrEventFinalized):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnsupportedCurrency):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("❌ Event operation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
