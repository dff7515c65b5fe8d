package scheduling

import (
	"context"

	"github.com/toto1384/doors-sub001/services/viewing-service/internal/model"
)

// PropertySummary is the slice of the catalog projection scheduling needs:
// ownership for authorization plus display metadata for event payloads.
type PropertySummary struct {
	ID       string
	SellerID string
	Title    string
	Location string
	ImageURL string
}

// Store is the persistence contract behind the scheduling service. The
// Postgres implementation lives in internal/storage; tests use an in-memory
// fake. Mutating calls are single atomic units: they either fully commit or
// leave no trace (no orphaned appointments, no stray credit decrements).
type Store interface {
	GetProperty(ctx context.Context, propertyID string) (PropertySummary, bool, error)

	// DeclaredSlots returns the seller's ordered slot tokens for the date, or
	// an empty list when the seller declared nothing (not an error).
	DeclaredSlots(ctx context.Context, propertyID string, date model.Date) ([]string, error)

	// UpsertAvailability replaces the declaration for one property/date.
	UpsertAvailability(ctx context.Context, propertyID string, date model.Date, slots []string) error

	// OccupiedStarts returns start tokens of occupying appointments
	// (requested or confirmed) for the property on the date.
	OccupiedStarts(ctx context.Context, propertyID string, date model.Date) ([]string, error)

	// CreateViewing atomically consumes one of the buyer's viewing credits and
	// inserts the appointment. A concurrent booking of the same
	// (property, date, start) yields ErrSlotUnavailable; an empty credit
	// balance yields ErrEntitlementExhausted. Both leave no partial write.
	CreateViewing(ctx context.Context, appt model.Appointment) (model.Appointment, error)

	// TransitionViewing loads the appointment under a row lock, asks decide
	// for the next status, and commits it. A decide error aborts with the
	// stored row untouched. Missing id yields ErrNotFound.
	TransitionViewing(ctx context.Context, appointmentID string, decide func(model.Appointment) (model.Status, error)) (model.Appointment, error)

	GetViewing(ctx context.Context, appointmentID string) (model.Appointment, bool, error)

	ListViewings(ctx context.Context, userID string, role model.Role) ([]model.Appointment, error)

	// CreditBalance returns the buyer's remaining viewing credits (0 if the
	// buyer has no balance row yet).
	CreditBalance(ctx context.Context, buyerID string) (int, error)
}
