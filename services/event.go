package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/splitbills/splitbills-api/models"
	"github.com/splitbills/splitbills-api/utils"
)

type EventService struct {
	db *sql.DB
}

func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db}
}

// Create creates a new event with the creator as first member, resolves the
// other member emails through the user directory, and seeds an empty ledger
// document — all in one transaction.
func (s *EventService) Create(ctx context.Context, name, creatorID string, memberEmails []string) (*models.Event, error) {
	event := &models.Event{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedBy: creatorID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
		IsOwner:   true,
	}

	err := utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO events (id, name, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.ExecContext(ctx, query, event.ID, event.Name, event.CreatedBy, event.CreatedAt, event.UpdatedAt); err != nil {
			return err
		}

		var creatorEmail string
		if err := tx.QueryRowContext(ctx, `SELECT email FROM users WHERE id = $1`, creatorID).Scan(&creatorEmail); err != nil {
			if err == sql.ErrNoRows {
				return ErrUserNotFound
			}
			return err
		}

		memberQuery := `
			INSERT INTO event_members (id, event_id, user_id, joined_at)
			VALUES ($1, $2, $3, $4)
		`
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, memberQuery, uuid.New().String(), event.ID, creatorID, now); err != nil {
			return err
		}
		event.Members = append(event.Members, models.Member{UserID: creatorID, Email: creatorEmail, JoinedAt: now})

		seen := map[string]bool{creatorID: true}
		for _, email := range memberEmails {
			var userID string
			err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&userID)
			if err == sql.ErrNoRows {
				return fmt.Errorf("%w: %s", ErrUserNotFound, email)
			}
			if err != nil {
				return err
			}
			if seen[userID] {
				continue
			}
			seen[userID] = true

			if _, err := tx.ExecContext(ctx, memberQuery, uuid.New().String(), event.ID, userID, now); err != nil {
				return err
			}
			event.Members = append(event.Members, models.Member{UserID: userID, Email: email, JoinedAt: now})
		}

		doc, err := json.Marshal(models.NewLedgerDocument())
		if err != nil {
			return err
		}
		dataQuery := `
			INSERT INTO event_data (id, event_id, data, updated_by)
			VALUES ($1, $2, $3, $4)
		`
		_, err = tx.ExecContext(ctx, dataQuery, uuid.New().String(), event.ID, doc, creatorID)
		return err
	})

	if err != nil {
		return nil, err
	}

	event.Document = models.NewLedgerDocument()
	return event, nil
}

// GetByID fetches an event with its members and ledger document, scoped to
// events the user is a member of.
func (s *EventService) GetByID(ctx context.Context, eventID, userID string) (*models.Event, error) {
	query := `
		SELECT e.id, e.name, e.created_by, e.created_at, e.updated_at,
		       CASE WHEN e.created_by = $2 THEN true ELSE false END as is_owner,
		       ed.data
		FROM events e
		INNER JOIN event_members em ON e.id = em.event_id
		INNER JOIN event_data ed ON e.id = ed.event_id
		WHERE e.id = $1 AND em.user_id = $2
	`

	var event models.Event
	var raw []byte
	err := s.db.QueryRowContext(ctx, query, eventID, userID).Scan(
		&event.ID,
		&event.Name,
		&event.CreatedBy,
		&event.CreatedAt,
		&event.UpdatedAt,
		&event.IsOwner,
		&raw,
	)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}

	doc := models.NewLedgerDocument()
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, err
	}
	event.Document = doc

	members, err := s.GetMembers(ctx, eventID)
	if err != nil {
		return nil, err
	}
	event.Members = members

	return &event, nil
}

// GetUserEvents lists every event the user belongs to, newest first.
func (s *EventService) GetUserEvents(ctx context.Context, userID string) ([]models.Event, error) {
	query := `
		SELECT e.id, e.name, e.created_by, e.created_at, e.updated_at,
		       CASE WHEN e.created_by = $1 THEN true ELSE false END as is_owner
		FROM events e
		INNER JOIN event_members em ON e.id = em.event_id
		WHERE em.user_id = $1
		ORDER BY e.created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.Name,
			&event.CreatedBy,
			&event.CreatedAt,
			&event.UpdatedAt,
			&event.IsOwner,
		)
		if err != nil {
			return nil, err
		}

		members, _ := s.GetMembers(ctx, event.ID)
		event.Members = members

		events = append(events, event)
	}

	return events, rows.Err()
}

// GetMembers returns the event's members with their directory emails.
func (s *EventService) GetMembers(ctx context.Context, eventID string) ([]models.Member, error) {
	query := `
		SELECT em.user_id, u.email, em.joined_at
		FROM event_members em
		INNER JOIN users u ON em.user_id = u.id
		WHERE em.event_id = $1
		ORDER BY em.joined_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.Email, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// UpdateDocument runs fn against the event's ledger document inside one
// transaction, holding a row lock on the document for the duration. This
// serializes concurrent mutations per event and makes the read-modify-write
// an atomic whole-document replace: the expense list and the balances can
// never be persisted out of step.
//
// The document row is only written back when fn returns nil.
func (s *EventService) UpdateDocument(ctx context.Context, eventID, actorID string, fn func(doc *models.LedgerDocument, members []models.Member) error) (*models.LedgerDocument, error) {
	isMember, err := s.isMember(ctx, eventID, actorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrEventNotFound
	}

	doc := models.NewLedgerDocument()
	err = utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		var raw []byte
		var version int
		query := `SELECT data, version FROM event_data WHERE event_id = $1 FOR UPDATE`
		if err := tx.QueryRowContext(ctx, query, eventID).Scan(&raw, &version); err != nil {
			if err == sql.ErrNoRows {
				return ErrEventNotFound
			}
			return err
		}
		if err := json.Unmarshal(raw, doc); err != nil {
			return err
		}

		members, err := s.membersTx(ctx, tx, eventID)
		if err != nil {
			return err
		}

		if err := fn(doc, members); err != nil {
			return err
		}

		updated, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		update := `
			UPDATE event_data
			SET data = $1, version = $2, updated_by = $3, updated_at = NOW()
			WHERE event_id = $4 AND version = $5
		`
		result, err := tx.ExecContext(ctx, update, updated, version+1, actorID, eventID, version)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected != 1 {
			return fmt.Errorf("event document version conflict for %s", eventID)
		}

		_, err = tx.ExecContext(ctx, `UPDATE events SET updated_at = NOW() WHERE id = $1`, eventID)
		return err
	})

	if err != nil {
		return nil, err
	}
	return doc, nil
}

// BuildSummary reads the event and computes balances, payment plans and
// totals for every currency currently in the ledger. Currencies are iterated
// in sorted order so the payment list is reproducible.
func (s *EventService) BuildSummary(ctx context.Context, eventID, userID string) (*models.EventSummary, error) {
	event, err := s.GetByID(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	doc := event.Document

	currencies := make([]string, 0, len(doc.CurrencyBalances))
	for currency := range doc.CurrencyBalances {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	payments := []models.Payment{}
	for _, currency := range currencies {
		payments = append(payments, SolvePayments(doc.CurrencyBalances[currency], currency)...)
	}

	return &models.EventSummary{
		EventID:          event.ID,
		EventName:        event.Name,
		CurrencyBalances: doc.CurrencyBalances,
		PaymentsNeeded:   payments,
		TotalByCurrency:  doc.TotalByCurrency,
	}, nil
}

func (s *EventService) isMember(ctx context.Context, eventID, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM event_members WHERE event_id = $1 AND user_id = $2)`
	if err := s.db.QueryRowContext(ctx, query, eventID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *EventService) membersTx(ctx context.Context, tx *sql.Tx, eventID string) ([]models.Member, error) {
	query := `
		SELECT em.user_id, u.email, em.joined_at
		FROM event_members em
		INNER JOIN users u ON em.user_id = u.id
		WHERE em.event_id = $1
	`
	rows, err := tx.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.Email, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
