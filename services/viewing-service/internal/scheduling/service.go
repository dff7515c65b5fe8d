// Package scheduling is the façade over slot resolution and the appointment
// state machine: it owns every server-side re-validation so that nothing a
// client computed (open slots, roles, "today") is ever trusted at commit time.
package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/availability"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/lifecycle"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/model"
)

type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func New(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// ListAvailableSlots resolves the bookable slots for a property and date:
// the seller's declared tokens minus the occupying appointments' starts, in
// declared order. A date the seller never opened resolves to an empty list.
func (s *Service) ListAvailableSlots(ctx context.Context, propertyID string, date model.Date) ([]string, error) {
	if _, ok, err := s.store.GetProperty(ctx, propertyID); err != nil {
		return nil, fmt.Errorf("load property: %w", err)
	} else if !ok {
		return nil, ErrNotFound
	}

	declared, err := s.store.DeclaredSlots(ctx, propertyID, date)
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	if len(declared) == 0 {
		return []string{}, nil
	}

	occupied, err := s.store.OccupiedStarts(ctx, propertyID, date)
	if err != nil {
		return nil, fmt.Errorf("load occupied slots: %w", err)
	}
	return availability.OpenSlots(declared, occupied), nil
}

// ScheduleViewing creates a requested appointment for the buyer, consuming one
// viewing credit. The open-slot membership check here is advisory; the store's
// active-slot uniqueness is the authority, so a losing concurrent request gets
// ErrSlotUnavailable instead of a silent double booking.
func (s *Service) ScheduleViewing(ctx context.Context, propertyID, buyerID string, date model.Date, startTime string) (model.Appointment, error) {
	start, err := availability.NormalizeToken(startTime)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("%w: %v", ErrInvalidSlot, err)
	}

	prop, ok, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("load property: %w", err)
	}
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	if prop.SellerID == buyerID {
		return model.Appointment{}, ErrForbidden
	}

	// Clients disable past dates in the picker; re-check against the server's
	// UTC calendar day anyway.
	if date.Before(model.Today(s.now())) {
		return model.Appointment{}, ErrSlotUnavailable
	}

	open, err := s.ListAvailableSlots(ctx, propertyID, date)
	if err != nil {
		return model.Appointment{}, err
	}
	if !contains(open, start) {
		return model.Appointment{}, ErrSlotUnavailable
	}

	appt := model.Appointment{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		BuyerID:    buyerID,
		SellerID:   prop.SellerID,
		Date:       date,
		StartTime:  start,
		EndTime:    availability.EndToken(start),
		Status:     model.StatusRequested,
	}

	created, err := s.store.CreateViewing(ctx, appt)
	if err != nil {
		return model.Appointment{}, err
	}

	s.logger.Info("viewing scheduled",
		"appointment_id", created.ID,
		"property_id", propertyID,
		"date", date.String(),
		"start_time", start,
	)
	return created, nil
}

// UpdateAppointmentStatus applies one state-machine transition on behalf of
// the requester. The requester's role is derived from the stored appointment,
// and the transition is validated against the row read inside the same
// transaction that writes it, so stale-read-then-write cannot slip through.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, appointmentID, requesterID string, newStatus model.Status) (model.Appointment, error) {
	updated, err := s.store.TransitionViewing(ctx, appointmentID, func(current model.Appointment) (model.Status, error) {
		role, ok := current.RoleOf(requesterID)
		if !ok {
			return "", ErrForbidden
		}
		if err := lifecycle.Validate(current.Status, newStatus, role); err != nil {
			return "", err
		}
		return newStatus, nil
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.logger.Info("viewing status updated",
		"appointment_id", updated.ID,
		"status", string(updated.Status),
	)
	return updated, nil
}

// ListAppointmentsForUser returns every appointment where the user holds the
// given role, sorted by date then start time for display.
func (s *Service) ListAppointmentsForUser(ctx context.Context, userID string, role model.Role) ([]model.Appointment, error) {
	appts, err := s.store.ListViewings(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("list viewings: %w", err)
	}
	sort.SliceStable(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date.Before(appts[j].Date)
		}
		return appts[i].StartTime < appts[j].StartTime
	})
	return appts, nil
}

// DeclareAvailability replaces the seller's declared slots for one date.
// Tokens are normalized, deduplicated, and kept in chronological order.
func (s *Service) DeclareAvailability(ctx context.Context, propertyID, sellerID string, date model.Date, slots []string) ([]string, error) {
	prop, ok, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("load property: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	if prop.SellerID != sellerID {
		return nil, ErrForbidden
	}

	normalized := make([]string, 0, len(slots))
	seen := make(map[string]struct{}, len(slots))
	for _, raw := range slots {
		tok, err := availability.NormalizeToken(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSlot, err)
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		normalized = append(normalized, tok)
	}
	sort.Strings(normalized)

	if err := s.store.UpsertAvailability(ctx, propertyID, date, normalized); err != nil {
		return nil, fmt.Errorf("save availability: %w", err)
	}
	return normalized, nil
}

// CreditBalance reports the buyer's remaining viewing credits.
func (s *Service) CreditBalance(ctx context.Context, buyerID string) (int, error) {
	return s.store.CreditBalance(ctx, buyerID)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
