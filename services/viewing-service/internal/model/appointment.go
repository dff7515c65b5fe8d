package model

import "time"

// Appointment is one buyer/seller viewing of a property. Appointments are
// never deleted; cancellation is a status change and the row stays as history.
type Appointment struct {
	ID         string
	PropertyID string
	BuyerID    string
	SellerID   string
	Date       Date
	StartTime  string
	EndTime    string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RoleOf derives the requester's role from the appointment's own relationship
// keys. Returns false when the user is neither party.
func (a Appointment) RoleOf(userID string) (Role, bool) {
	switch userID {
	case a.BuyerID:
		return RoleBuyer, true
	case a.SellerID:
		return RoleSeller, true
	}
	return "", false
}
