package model

import "fmt"

// Status is the closed set of viewing appointment lifecycle states.
type Status string

const (
	StatusRequested         Status = "requested"
	StatusConfirmed         Status = "confirmed"
	StatusCancelledByBuyer  Status = "cancelled-by-buyer"
	StatusCancelledBySeller Status = "cancelled-by-seller"
	StatusCompleted         Status = "completed"
)

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown viewing status %q", raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusCancelledByBuyer, StatusCancelledBySeller, StatusCompleted:
		return true
	}
	return false
}

// Occupying reports whether an appointment in this state consumes its slot.
// Cancelled and completed appointments free the slot for re-booking.
func (s Status) Occupying() bool {
	return s == StatusRequested || s == StatusConfirmed
}

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusCancelledByBuyer, StatusCancelledBySeller, StatusCompleted:
		return true
	}
	return false
}

// OccupyingStatuses is the filter used by the booking ledger when deciding
// which appointments block a slot. Must stay in sync with Occupying.
var OccupyingStatuses = []Status{StatusRequested, StatusConfirmed}

// Role of a user relative to a specific appointment, derived from its
// buyer/seller fields on every authorization check.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleBuyer:
		return RoleBuyer, nil
	case RoleSeller:
		return RoleSeller, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}
