package lifecycle

import (
	"errors"
	"testing"

	"github.com/toto1384/doors-sub001/services/viewing-service/internal/model"
)

func TestValidate_SellerConfirms(t *testing.T) {
	if err := Validate(model.StatusRequested, model.StatusConfirmed, model.RoleSeller); err != nil {
		t.Fatalf("seller confirm should be allowed: %v", err)
	}
}

func TestValidate_RoleGating(t *testing.T) {
	cases := []struct {
		name    string
		current model.Status
		next    model.Status
		role    model.Role
	}{
		{"buyer cannot confirm", model.StatusRequested, model.StatusConfirmed, model.RoleBuyer},
		{"buyer cannot complete", model.StatusConfirmed, model.StatusCompleted, model.RoleBuyer},
		{"buyer cannot cancel as seller", model.StatusRequested, model.StatusCancelledBySeller, model.RoleBuyer},
		{"seller cannot cancel as buyer", model.StatusConfirmed, model.StatusCancelledByBuyer, model.RoleSeller},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.current, tc.next, tc.role)
			if !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
		})
	}
}

func TestValidate_TerminalStatesAreImmutable(t *testing.T) {
	terminals := []model.Status{
		model.StatusCancelledByBuyer,
		model.StatusCancelledBySeller,
		model.StatusCompleted,
	}
	targets := []model.Status{
		model.StatusRequested,
		model.StatusConfirmed,
		model.StatusCancelledByBuyer,
		model.StatusCancelledBySeller,
		model.StatusCompleted,
	}
	for _, current := range terminals {
		for _, next := range targets {
			for _, role := range []model.Role{model.RoleBuyer, model.RoleSeller} {
				if err := Validate(current, next, role); !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("%s -> %s as %s: expected ErrInvalidTransition, got %v", current, next, role, err)
				}
			}
		}
	}
}

func TestValidate_UndefinedTarget(t *testing.T) {
	if err := Validate(model.StatusRequested, model.Status("postponed"), model.RoleSeller); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for undefined status, got %v", err)
	}
}

func TestValidate_NoSelfTransition(t *testing.T) {
	if err := Validate(model.StatusRequested, model.StatusRequested, model.RoleBuyer); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestValidate_CancellationsByEitherParty(t *testing.T) {
	if err := Validate(model.StatusConfirmed, model.StatusCancelledByBuyer, model.RoleBuyer); err != nil {
		t.Fatalf("buyer cancel from confirmed should be allowed: %v", err)
	}
	if err := Validate(model.StatusConfirmed, model.StatusCancelledBySeller, model.RoleSeller); err != nil {
		t.Fatalf("seller cancel from confirmed should be allowed: %v", err)
	}
}
