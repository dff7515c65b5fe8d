package availability

import (
	"reflect"
	"testing"
)

func TestOpenSlots_Basic(t *testing.T) {
	declared := []string{"10:00", "12:00", "14:00", "16:00"}
	occupied := []string{"12:00", "16:00"}

	got := OpenSlots(declared, occupied)
	want := []string{"10:00", "14:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestOpenSlots_EmptyDeclaration(t *testing.T) {
	got := OpenSlots(nil, []string{"10:00"})
	if got == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Fatalf("expected no slots, got %v", got)
	}
}

func TestOpenSlots_AllOccupied(t *testing.T) {
	declared := []string{"10:00", "14:00"}
	got := OpenSlots(declared, []string{"14:00", "10:00"})
	if len(got) != 0 {
		t.Fatalf("expected no slots, got %v", got)
	}
}

func TestOpenSlots_PreservesDeclaredOrder(t *testing.T) {
	// Sellers declare in chronological order; occupancy must not reorder.
	declared := []string{"09:00", "11:00", "13:00", "15:00"}
	got := OpenSlots(declared, []string{"11:00"})
	want := []string{"09:00", "13:00", "15:00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestOpenSlots_OccupiedNotDeclared(t *testing.T) {
	// Occupied tokens outside the declaration are ignored.
	got := OpenSlots([]string{"10:00"}, []string{"18:00"})
	if !reflect.DeepEqual(got, []string{"10:00"}) {
		t.Fatalf("expected [10:00], got %v", got)
	}
}

func TestNormalizeToken(t *testing.T) {
	tok, err := NormalizeToken("9:00")
	if err != nil {
		t.Fatalf("NormalizeToken failed: %v", err)
	}
	if tok != "09:00" {
		t.Fatalf("expected 09:00, got %s", tok)
	}
	if _, err := NormalizeToken("25:00"); err == nil {
		t.Fatal("expected error for 25:00")
	}
	if _, err := NormalizeToken("noon"); err == nil {
		t.Fatal("expected error for non-time token")
	}
}

func TestEndToken(t *testing.T) {
	if got := EndToken("14:00"); got != "15:00" {
		t.Fatalf("expected 15:00, got %s", got)
	}
	if got := EndToken("23:30"); got != "00:30" {
		t.Fatalf("expected 00:30, got %s", got)
	}
}
