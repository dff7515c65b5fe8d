// Package storage is the Postgres implementation of the scheduling store.
// Two database constraints carry the core guarantees: the partial unique
// index on (property_id, viewing_date, start_time) over occupying statuses
// settles slot races, and the conditional credit decrement settles balances.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/toto1384/doors-sub001/libs/db"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/model"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/outbox"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/scheduling"
)

type Store struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewStore(pool *db.Pool, outboxRepo *outbox.Repository) *Store {
	return &Store{pool: pool, outbox: outboxRepo}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) GetProperty(ctx context.Context, propertyID string) (scheduling.PropertySummary, bool, error) {
	var p scheduling.PropertySummary
	err := s.pool.QueryRow(ctx, `
		SELECT id, seller_id, title, location, COALESCE(image_url, '')
		FROM properties
		WHERE id = $1
	`, propertyID).Scan(&p.ID, &p.SellerID, &p.Title, &p.Location, &p.ImageURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return scheduling.PropertySummary{}, false, nil
	}
	if err != nil {
		return scheduling.PropertySummary{}, false, err
	}
	return p, true, nil
}

// UpsertProperty maintains the catalog projection fed by
// catalog.property.upserted.v1 events.
func (s *Store) UpsertProperty(ctx context.Context, p scheduling.PropertySummary) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO properties (id, seller_id, title, location, image_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET seller_id = EXCLUDED.seller_id,
		              title = EXCLUDED.title,
		              location = EXCLUDED.location,
		              image_url = EXCLUDED.image_url,
		              updated_at = now()
	`, p.ID, p.SellerID, p.Title, p.Location, p.ImageURL)
	return err
}

func (s *Store) DeclaredSlots(ctx context.Context, propertyID string, date model.Date) ([]string, error) {
	var slots []string
	err := s.pool.QueryRow(ctx, `
		SELECT slots
		FROM viewing_availability
		WHERE property_id = $1 AND viewing_date = $2
	`, propertyID, date.String()).Scan(&slots)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (s *Store) UpsertAvailability(ctx context.Context, propertyID string, date model.Date, slots []string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO viewing_availability (property_id, viewing_date, slots)
		VALUES ($1, $2, $3)
		ON CONFLICT (property_id, viewing_date)
		DO UPDATE SET slots = EXCLUDED.slots,
		              updated_at = now()
	`, propertyID, date.String(), slots)
	return err
}

func (s *Store) OccupiedStarts(ctx context.Context, propertyID string, date model.Date) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT start_time
		FROM viewing_appointments
		WHERE property_id = $1
		  AND viewing_date = $2
		  AND status IN ('requested', 'confirmed')
	`, propertyID, date.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var starts []string
	for rows.Next() {
		var start string
		if err := rows.Scan(&start); err != nil {
			return nil, err
		}
		starts = append(starts, start)
	}
	return starts, rows.Err()
}

// CreateViewing runs the whole booking in one transaction: consume a credit,
// insert the appointment, stage the requested event. Losing a slot race
// surfaces as a unique violation on the active-slot index and rolls back the
// credit decrement with everything else.
func (s *Store) CreateViewing(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var balance int
	err = tx.QueryRow(ctx, `
		UPDATE viewing_credits
		SET balance = balance - 1,
		    updated_at = now()
		WHERE buyer_id = $1 AND balance > 0
		RETURNING balance
	`, appt.BuyerID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, scheduling.ErrEntitlementExhausted
	}
	if err != nil {
		return model.Appointment{}, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO viewing_appointments
			(id, property_id, buyer_id, seller_id, viewing_date, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, appt.ID, appt.PropertyID, appt.BuyerID, appt.SellerID,
		appt.Date.String(), appt.StartTime, appt.EndTime, string(appt.Status)).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Appointment{}, scheduling.ErrSlotUnavailable
		}
		return model.Appointment{}, err
	}

	evt, err := outbox.NewEvent(appt.ID, outbox.TopicViewingRequested, map[string]any{
		"appointment_id": appt.ID,
		"property_id":    appt.PropertyID,
		"buyer_id":       appt.BuyerID,
		"seller_id":      appt.SellerID,
		"date":           appt.Date.String(),
		"start_time":     appt.StartTime,
		"end_time":       appt.EndTime,
	})
	if err != nil {
		return model.Appointment{}, err
	}
	if err := s.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// TransitionViewing locks the row, lets decide pick the next status against
// the locked state, and commits the update plus its event atomically.
func (s *Store) TransitionViewing(ctx context.Context, appointmentID string, decide func(model.Appointment) (model.Status, error)) (model.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := scanAppointment(tx.QueryRow(ctx, appointmentColumns+`
		FROM viewing_appointments
		WHERE id = $1
		FOR UPDATE
	`, appointmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, scheduling.ErrNotFound
	}
	if err != nil {
		return model.Appointment{}, err
	}

	next, err := decide(appt)
	if err != nil {
		return model.Appointment{}, err
	}

	err = tx.QueryRow(ctx, `
		UPDATE viewing_appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, appointmentID, string(next)).Scan(&appt.UpdatedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = next

	evt, err := transitionEvent(appt)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := s.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func transitionEvent(appt model.Appointment) (outbox.Event, error) {
	var topic string
	payload := map[string]any{
		"appointment_id": appt.ID,
		"property_id":    appt.PropertyID,
		"buyer_id":       appt.BuyerID,
		"seller_id":      appt.SellerID,
		"date":           appt.Date.String(),
		"start_time":     appt.StartTime,
		"status":         string(appt.Status),
	}
	switch appt.Status {
	case model.StatusConfirmed:
		topic = outbox.TopicViewingConfirmed
	case model.StatusCancelledByBuyer, model.StatusCancelledBySeller:
		topic = outbox.TopicViewingCancelled
	case model.StatusCompleted:
		topic = outbox.TopicViewingCompleted
	default:
		return outbox.Event{}, fmt.Errorf("no event mapped for status %q", appt.Status)
	}
	return outbox.NewEvent(appt.ID, topic, payload)
}

const appointmentColumns = `
		SELECT id, property_id, buyer_id, seller_id, viewing_date, start_time, end_time, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var date, status string
	err := row.Scan(
		&appt.ID,
		&appt.PropertyID,
		&appt.BuyerID,
		&appt.SellerID,
		&date,
		&appt.StartTime,
		&appt.EndTime,
		&status,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Date = model.Date(date)
	appt.Status = model.Status(status)
	return appt, nil
}

func (s *Store) GetViewing(ctx context.Context, appointmentID string) (model.Appointment, bool, error) {
	appt, err := scanAppointment(s.pool.QueryRow(ctx, appointmentColumns+`
		FROM viewing_appointments
		WHERE id = $1
	`, appointmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, false, nil
	}
	if err != nil {
		return model.Appointment{}, false, err
	}
	return appt, true, nil
}

func (s *Store) ListViewings(ctx context.Context, userID string, role model.Role) ([]model.Appointment, error) {
	column := "buyer_id"
	if role == model.RoleSeller {
		column = "seller_id"
	}
	rows, err := s.pool.Query(ctx, appointmentColumns+`
		FROM viewing_appointments
		WHERE `+column+` = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

func (s *Store) CreditBalance(ctx context.Context, buyerID string) (int, error) {
	var balance int
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT balance FROM viewing_credits WHERE buyer_id = $1), 0)
	`, buyerID).Scan(&balance)
	return balance, err
}

// GrantCredits applies a billing.viewing_credits.granted.v1 event to the
// buyer's balance.
func (s *Store) GrantCredits(ctx context.Context, buyerID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("grant amount must be positive, got %d", amount)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO viewing_credits (buyer_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (buyer_id)
		DO UPDATE SET balance = viewing_credits.balance + EXCLUDED.balance,
		              updated_at = now()
	`, buyerID, amount)
	return err
}
