package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/toto1384/doors-sub001/services/viewing-service/internal/model"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/scheduling"
)

// Scheduler is the slice of the scheduling service the HTTP layer needs.
type Scheduler interface {
	ListAvailableSlots(ctx context.Context, propertyID string, date model.Date) ([]string, error)
	ScheduleViewing(ctx context.Context, propertyID, buyerID string, date model.Date, startTime string) (model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, appointmentID, requesterID string, newStatus model.Status) (model.Appointment, error)
	ListAppointmentsForUser(ctx context.Context, userID string, role model.Role) ([]model.Appointment, error)
	DeclareAvailability(ctx context.Context, propertyID, sellerID string, date model.Date, slots []string) ([]string, error)
	CreditBalance(ctx context.Context, buyerID string) (int, error)
}

type ViewingHandler struct {
	svc    Scheduler
	logger *slog.Logger
}

func NewViewingHandler(svc Scheduler, logger *slog.Logger) *ViewingHandler {
	return &ViewingHandler{svc: svc, logger: logger}
}

type appointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	PropertyID    string `json:"property_id"`
	BuyerID       string `json:"buyer_id"`
	SellerID      string `json:"seller_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toItem(appt model.Appointment) appointmentItem {
	return appointmentItem{
		AppointmentID: appt.ID,
		PropertyID:    appt.PropertyID,
		BuyerID:       appt.BuyerID,
		SellerID:      appt.SellerID,
		Date:          appt.Date.String(),
		StartTime:     appt.StartTime,
		EndTime:       appt.EndTime,
		Status:        string(appt.Status),
		CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     appt.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Slots handles GET /api/v1/public/viewings/slots?property_id=...&date=DD-MM-YYYY.
// It is served without authentication so buyers can browse openings.
func (h *ViewingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	propertyID := strings.TrimSpace(r.URL.Query().Get("property_id"))
	if propertyID == "" {
		writeError(w, http.StatusBadRequest, "property_id required")
		return
	}
	date, err := model.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be DD-MM-YYYY")
		return
	}

	slots, err := h.svc.ListAvailableSlots(r.Context(), propertyID, date)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"property_id": propertyID,
		"date":        date.String(),
		"slots":       slots,
	})
}

// Route dispatches /api/v1/viewings: GET lists, POST books.
func (h *ViewingHandler) Route(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Create(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type createViewingRequest struct {
	PropertyID string `json:"property_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
}

// Create handles POST /api/v1/viewings. The buyer is the authenticated user.
func (h *ViewingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	buyerID, ok := userID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createViewingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.PropertyID = strings.TrimSpace(req.PropertyID)
	if req.PropertyID == "" {
		writeError(w, http.StatusBadRequest, "property_id required")
		return
	}
	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be DD-MM-YYYY")
		return
	}

	appt, err := h.svc.ScheduleViewing(r.Context(), req.PropertyID, buyerID, date, strings.TrimSpace(req.StartTime))
	if err != nil {
		if errors.Is(err, scheduling.ErrEntitlementExhausted) {
			// The 402 body carries the remaining balance so clients can show
			// it next to the upsell prompt.
			balance := 0
			if b, berr := h.svc.CreditBalance(r.Context(), buyerID); berr == nil {
				balance = b
			}
			writeJSON(w, http.StatusPaymentRequired, map[string]any{
				"error":   "viewing credits exhausted",
				"balance": balance,
			})
			return
		}
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItem(appt))
}

type updateStatusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

// UpdateStatus handles POST /api/v1/viewings/status.
func (h *ViewingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	requesterID, ok := userID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		writeError(w, http.StatusBadRequest, "appointment_id required")
		return
	}
	status, err := model.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	appt, err := h.svc.UpdateAppointmentStatus(r.Context(), req.AppointmentID, requesterID, status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItem(appt))
}

// List handles GET /api/v1/viewings?role=buyer|seller.
func (h *ViewingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uid, ok := userID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	role, err := model.ParseRole(strings.TrimSpace(r.URL.Query().Get("role")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "role must be buyer or seller")
		return
	}

	appts, err := h.svc.ListAppointmentsForUser(r.Context(), uid, role)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		items = append(items, toItem(appt))
	}
	writeJSON(w, http.StatusOK, items)
}

type declareAvailabilityRequest struct {
	PropertyID string   `json:"property_id"`
	Date       string   `json:"date"`
	Slots      []string `json:"slots"`
}

// DeclareAvailability handles PUT /api/v1/availability. The seller is the
// authenticated user; ownership is checked against the catalog projection.
func (h *ViewingHandler) DeclareAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	sellerID, ok := userID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req declareAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.PropertyID = strings.TrimSpace(req.PropertyID)
	if req.PropertyID == "" {
		writeError(w, http.StatusBadRequest, "property_id required")
		return
	}
	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be DD-MM-YYYY")
		return
	}

	slots, err := h.svc.DeclareAvailability(r.Context(), req.PropertyID, sellerID, date, req.Slots)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"property_id": req.PropertyID,
		"date":        date.String(),
		"slots":       slots,
	})
}

// Credits handles GET /api/v1/credits for the authenticated buyer.
func (h *ViewingHandler) Credits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uid, ok := userID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	balance, err := h.svc.CreditBalance(r.Context(), uid)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance})
}

func (h *ViewingHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, scheduling.ErrEntitlementExhausted):
		writeError(w, http.StatusPaymentRequired, "viewing credits exhausted")
	case errors.Is(err, scheduling.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, scheduling.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid status transition")
	case errors.Is(err, scheduling.ErrInvalidSlot):
		writeError(w, http.StatusBadRequest, "slot time must be HH:MM")
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot unavailable")
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
