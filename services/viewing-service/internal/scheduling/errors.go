package scheduling

import (
	"errors"

	"github.com/toto1384/doors-sub001/services/viewing-service/internal/lifecycle"
)

// Failure taxonomy surfaced to callers. Nothing is retried inside the core:
// a caller reacting to ErrSlotUnavailable re-queries the open slots and picks
// another one.
var (
	// ErrNotFound: the referenced property or appointment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSlotUnavailable: the requested slot is not open, or a concurrent
	// request took it between the availability check and the insert.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrInvalidSlot: the slot token does not parse as HH:MM. A validation
	// failure, never an occupancy outcome.
	ErrInvalidSlot = errors.New("invalid slot time")

	// ErrEntitlementExhausted: the buyer has no viewing credits left.
	ErrEntitlementExhausted = errors.New("viewing credits exhausted")

	// ErrForbidden: requester lacks the role required for the operation.
	ErrForbidden = lifecycle.ErrForbidden

	// ErrInvalidTransition: transition from a terminal state or to an
	// undefined state. Indicates stale client state, not a server fault.
	ErrInvalidTransition = lifecycle.ErrInvalidTransition
)
