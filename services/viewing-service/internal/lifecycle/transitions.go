// Package lifecycle holds the viewing appointment state machine.
package lifecycle

import (
	"errors"

	"github.com/toto1384/doors-sub001/services/viewing-service/internal/model"
)

var (
	// ErrInvalidTransition covers terminal, undefined, and ungraphed transitions.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrForbidden means the transition exists but not for the requester's role.
	ErrForbidden = errors.New("role not permitted for this transition")
)

// transitions maps current status -> next status -> role required to apply it.
// Only the buyer cancels as buyer; confirmation, seller cancellation, and
// completion belong to the seller.
var transitions = map[model.Status]map[model.Status]model.Role{
	model.StatusRequested: {
		model.StatusConfirmed:         model.RoleSeller,
		model.StatusCancelledByBuyer:  model.RoleBuyer,
		model.StatusCancelledBySeller: model.RoleSeller,
		model.StatusCompleted:         model.RoleSeller,
	},
	model.StatusConfirmed: {
		model.StatusCompleted:         model.RoleSeller,
		model.StatusCancelledByBuyer:  model.RoleBuyer,
		model.StatusCancelledBySeller: model.RoleSeller,
	},
}

// Validate checks a single transition against the table without mutating
// anything. Terminal states reject every transition regardless of role.
func Validate(current, next model.Status, role model.Role) error {
	if !next.Valid() {
		return ErrInvalidTransition
	}
	if current.Terminal() {
		return ErrInvalidTransition
	}

	allowed, ok := transitions[current]
	if !ok {
		return ErrInvalidTransition
	}
	required, ok := allowed[next]
	if !ok {
		return ErrInvalidTransition
	}
	// Each edge belongs to exactly one role: a buyer asking for "confirmed"
	// hits an existing edge and fails on role, not on the graph.
	if role != required {
		return ErrForbidden
	}
	return nil
}
