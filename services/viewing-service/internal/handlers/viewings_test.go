package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/toto1384/doors-sub001/libs/auth"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/model"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/scheduling"
)

type fakeScheduler struct {
	listSlots     func(ctx context.Context, propertyID string, date model.Date) ([]string, error)
	schedule      func(ctx context.Context, propertyID, buyerID string, date model.Date, startTime string) (model.Appointment, error)
	updateStatus  func(ctx context.Context, appointmentID, requesterID string, newStatus model.Status) (model.Appointment, error)
	listForUser   func(ctx context.Context, userID string, role model.Role) ([]model.Appointment, error)
	declare       func(ctx context.Context, propertyID, sellerID string, date model.Date, slots []string) ([]string, error)
	creditBalance func(ctx context.Context, buyerID string) (int, error)
}

func (f *fakeScheduler) ListAvailableSlots(ctx context.Context, propertyID string, date model.Date) ([]string, error) {
	return f.listSlots(ctx, propertyID, date)
}

func (f *fakeScheduler) ScheduleViewing(ctx context.Context, propertyID, buyerID string, date model.Date, startTime string) (model.Appointment, error) {
	return f.schedule(ctx, propertyID, buyerID, date, startTime)
}

func (f *fakeScheduler) UpdateAppointmentStatus(ctx context.Context, appointmentID, requesterID string, newStatus model.Status) (model.Appointment, error) {
	return f.updateStatus(ctx, appointmentID, requesterID, newStatus)
}

func (f *fakeScheduler) ListAppointmentsForUser(ctx context.Context, userID string, role model.Role) ([]model.Appointment, error) {
	return f.listForUser(ctx, userID, role)
}

func (f *fakeScheduler) DeclareAvailability(ctx context.Context, propertyID, sellerID string, date model.Date, slots []string) ([]string, error) {
	return f.declare(ctx, propertyID, sellerID, date, slots)
}

func (f *fakeScheduler) CreditBalance(ctx context.Context, buyerID string) (int, error) {
	return f.creditBalance(ctx, buyerID)
}

const testSecret = "test-secret"

func bearerFor(t *testing.T, sub string) string {
	t.Helper()
	token, err := auth.SignHS256(auth.Claims{
		Sub: sub,
		Exp: time.Now().Add(time.Hour).Unix(),
		Iat: time.Now().Unix(),
	}, testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func authed(h http.HandlerFunc) http.Handler {
	return RequireAuth(testSecret)(h)
}

func TestRequireAuth(t *testing.T) {
	handler := NewViewingHandler(&fakeScheduler{
		creditBalance: func(context.Context, string) (int, error) { return 3, nil },
	}, slog.Default())
	srv := authed(handler.Credits)

	req := httptest.NewRequest(http.MethodGet, "/v1/credits", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/credits", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/credits", nil)
	req.Header.Set("Authorization", bearerFor(t, "buyer-1"))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: expected 200, got %d (%s)", rec.Code, rec.Body)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["balance"] != 3 {
		t.Fatalf("expected balance 3, got %d", body["balance"])
	}
}

func TestSlots(t *testing.T) {
	handler := NewViewingHandler(&fakeScheduler{
		listSlots: func(_ context.Context, propertyID string, date model.Date) ([]string, error) {
			if propertyID == "missing" {
				return nil, scheduling.ErrNotFound
			}
			return []string{"10:00", "14:00"}, nil
		},
	}, slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/v1/viewings/slots?property_id=prop-1&date=20-06-2025", nil)
	rec := httptest.NewRecorder()
	handler.Slots(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body)
	}
	var resp struct {
		Slots []string `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(resp.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %v", resp.Slots)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/viewings/slots?property_id=prop-1&date=2025-06-20", nil)
	rec = httptest.NewRecorder()
	handler.Slots(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ISO date: expected 400, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/viewings/slots?property_id=missing&date=20-06-2025", nil)
	rec = httptest.NewRecorder()
	handler.Slots(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown property: expected 404, got %d", rec.Code)
	}
}

func TestCreateViewing(t *testing.T) {
	var gotBuyer string
	handler := NewViewingHandler(&fakeScheduler{
		schedule: func(_ context.Context, propertyID, buyerID string, date model.Date, startTime string) (model.Appointment, error) {
			gotBuyer = buyerID
			switch startTime {
			case "14:00":
				return model.Appointment{
					ID:         "appt-1",
					PropertyID: propertyID,
					BuyerID:    buyerID,
					SellerID:   "seller-1",
					Date:       date,
					StartTime:  startTime,
					EndTime:    "15:00",
					Status:     model.StatusRequested,
				}, nil
			case "10:00":
				return model.Appointment{}, scheduling.ErrSlotUnavailable
			case "16:00":
				return model.Appointment{}, scheduling.ErrEntitlementExhausted
			default:
				return model.Appointment{}, scheduling.ErrInvalidSlot
			}
		},
		creditBalance: func(context.Context, string) (int, error) { return 0, nil },
	}, slog.Default())
	srv := authed(handler.Create)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/viewings", strings.NewReader(body))
		req.Header.Set("Authorization", bearerFor(t, "buyer-1"))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	rec := post(`{"property_id":"prop-1","date":"20-06-2025","start_time":"14:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body)
	}
	if gotBuyer != "buyer-1" {
		t.Fatalf("buyer must come from the token, got %q", gotBuyer)
	}
	var item appointmentItem
	if err := json.Unmarshal(rec.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if item.AppointmentID != "appt-1" || item.Status != "requested" || item.EndTime != "15:00" {
		t.Fatalf("unexpected response: %+v", item)
	}

	if rec := post(`{"property_id":"prop-1","date":"20-06-2025","start_time":"10:00"}`); rec.Code != http.StatusConflict {
		t.Fatalf("taken slot: expected 409, got %d", rec.Code)
	}

	rec = post(`{"property_id":"prop-1","date":"20-06-2025","start_time":"16:00"}`)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("no credits: expected 402, got %d", rec.Code)
	}
	var exhausted struct {
		Error   string `json:"error"`
		Balance *int   `json:"balance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &exhausted); err != nil {
		t.Fatalf("decode 402 body: %v", err)
	}
	if exhausted.Error == "" || exhausted.Balance == nil {
		t.Fatalf("402 body must carry error and remaining balance, got %s", rec.Body)
	}
	if *exhausted.Balance != 0 {
		t.Fatalf("expected balance 0, got %d", *exhausted.Balance)
	}

	if rec := post(`{"property_id":"prop-1","date":"junk","start_time":"14:00"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d", rec.Code)
	}
	if rec := post(`{"property_id":"prop-1","date":"20-06-2025","start_time":"25:99"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed slot time: expected 400, got %d", rec.Code)
	}
	if rec := post(`not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body: expected 400, got %d", rec.Code)
	}
}

func TestUpdateStatus(t *testing.T) {
	handler := NewViewingHandler(&fakeScheduler{
		updateStatus: func(_ context.Context, appointmentID, requesterID string, newStatus model.Status) (model.Appointment, error) {
			switch requesterID {
			case "seller-1":
				return model.Appointment{ID: appointmentID, Status: newStatus}, nil
			case "buyer-1":
				return model.Appointment{}, scheduling.ErrForbidden
			default:
				return model.Appointment{}, scheduling.ErrInvalidTransition
			}
		},
	}, slog.Default())
	srv := authed(handler.UpdateStatus)

	post := func(sub, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/viewings/status", strings.NewReader(body))
		req.Header.Set("Authorization", bearerFor(t, sub))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	rec := post("seller-1", `{"appointment_id":"appt-1","status":"confirmed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body)
	}

	if rec := post("buyer-1", `{"appointment_id":"appt-1","status":"confirmed"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("wrong role: expected 403, got %d", rec.Code)
	}
	if rec := post("other", `{"appointment_id":"appt-1","status":"completed"}`); rec.Code != http.StatusConflict {
		t.Fatalf("invalid transition: expected 409, got %d", rec.Code)
	}
	if rec := post("seller-1", `{"appointment_id":"appt-1","status":"nonsense"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: expected 400, got %d", rec.Code)
	}
}

func TestListViewings_RoleRequired(t *testing.T) {
	handler := NewViewingHandler(&fakeScheduler{
		listForUser: func(_ context.Context, _ string, _ model.Role) ([]model.Appointment, error) {
			return nil, nil
		},
	}, slog.Default())
	srv := authed(handler.List)

	req := httptest.NewRequest(http.MethodGet, "/v1/viewings?role=landlord", nil)
	req.Header.Set("Authorization", bearerFor(t, "buyer-1"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad role: expected 400, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/viewings?role=buyer", nil)
	req.Header.Set("Authorization", bearerFor(t, "buyer-1"))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("empty list must encode as [], got %s", body)
	}
}

func TestDeclareAvailability(t *testing.T) {
	handler := NewViewingHandler(&fakeScheduler{
		declare: func(_ context.Context, _, sellerID string, _ model.Date, slots []string) ([]string, error) {
			if sellerID != "seller-1" {
				return nil, scheduling.ErrForbidden
			}
			return slots, nil
		},
	}, slog.Default())
	srv := authed(handler.DeclareAvailability)

	put := func(sub, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/v1/availability", strings.NewReader(body))
		req.Header.Set("Authorization", bearerFor(t, sub))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	rec := put("seller-1", `{"property_id":"prop-1","date":"20-06-2025","slots":["10:00","14:00"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body)
	}
	if rec := put("intruder", `{"property_id":"prop-1","date":"20-06-2025","slots":["10:00"]}`); rec.Code != http.StatusForbidden {
		t.Fatalf("non-owner: expected 403, got %d", rec.Code)
	}
}
