package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"net/http"
	"strings"

	"github.com/ohhaus/cafe-booking/internal/booking"
	"github.com/ohhaus/cafe-booking/internal/models"
	"github.com/ohhaus/cafe-booking/internal/store"
)

// BookingService is what the handler needs from the orchestration layer.
type BookingService interface {
	Create(ctx context.Context, req booking.CreateRequest) (models.Booking, error)
	Transition(ctx context.Context, req booking.TransitionRequest) (models.Booking, error)
	Get(ctx context.Context, actorID, actorRole, bookingID string) (models.Booking, error)
	List(ctx context.Context, actorID, actorRole string, filter store.ListBookingsFilter) ([]models.Booking, error)
	Events(ctx context.Context, actorID, actorRole, bookingID string) ([]store.BookingEvent, error)
	IsAvailable(ctx context.Context, cafeID, tableID, slotID, date string) (bool, error)
	ListFree(ctx context.Context, cafeID, date string) ([]store.FreeTableSlot, error)
}

type Handler struct {
	service BookingService
}

func NewHandler(service BookingService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/api/bookings", h.handleBookings)
	mux.HandleFunc("/api/bookings/", h.handleBookingByID)
	mux.HandleFunc("/api/availability", h.handleAvailability)
	mux.HandleFunc("/api/availability/free", h.handleFree)
	return mux
}

type createBookingRequest struct {
	RequestID   string `json:"request_id"`
	CafeID      string `json:"cafe_id"`
	TableID     string `json:"table_id"`
	SlotID      string `json:"slot_id"`
	BookingDate string `json:"booking_date"`
	PartySize   int    `json:"party_size"`
	Note        string `json:"note"`
}

type transitionBookingRequest struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreateBooking(w, r)
	case http.MethodGet:
		h.handleListBookings(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, "", http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req createBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.CafeID = strings.TrimSpace(req.CafeID)
	req.TableID = strings.TrimSpace(req.TableID)
	req.SlotID = strings.TrimSpace(req.SlotID)
	req.BookingDate = strings.TrimSpace(req.BookingDate)

	if req.RequestID == "" || req.CafeID == "" || req.TableID == "" || req.SlotID == "" || req.BookingDate == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id, cafe_id, table_id, slot_id, and booking_date are required")
		return
	}

	created, err := h.service.Create(r.Context(), booking.CreateRequest{
		RequestID:   req.RequestID,
		UserID:      session.UserID,
		CafeID:      req.CafeID,
		TableID:     req.TableID,
		SlotID:      req.SlotID,
		BookingDate: req.BookingDate,
		PartySize:   req.PartySize,
		Note:        req.Note,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListBookings(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, "", http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	filter := store.ListBookingsFilter{
		CafeID:     strings.TrimSpace(r.URL.Query().Get("cafe_id")),
		Date:       strings.TrimSpace(r.URL.Query().Get("date")),
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}
	if userID := strings.TrimSpace(r.URL.Query().Get("user_id")); userID != "" {
		filter.UserID = userID
	}

	bookings, err := h.service.List(r.Context(), session.UserID, session.Role, filter)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// handleBookingByID routes /api/bookings/{id}, /api/bookings/{id}/status
// and /api/bookings/{id}/events.
func (h *Handler) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, "", http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/bookings/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	bookingID := parts[0]
	if bookingID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleGetBooking(w, r, session, bookingID)
	case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPost:
		h.handleTransition(w, r, session, bookingID)
	case len(parts) == 2 && parts[1] == "events" && r.Method == http.MethodGet:
		h.handleBookingEvents(w, r, session, bookingID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGetBooking(w http.ResponseWriter, r *http.Request, session store.Session, bookingID string) {
	found, err := h.service.Get(r.Context(), session.UserID, session.Role, bookingID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, session store.Session, bookingID string) {
	var req transitionBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.RequestID = strings.TrimSpace(req.RequestID)
	req.Status = strings.TrimSpace(req.Status)
	if req.RequestID == "" || req.Status == "" {
		writeError(w, req.RequestID, http.StatusBadRequest, "invalid_request", "request_id and status are required")
		return
	}

	updated, err := h.service.Transition(r.Context(), booking.TransitionRequest{
		RequestID:    req.RequestID,
		BookingID:    bookingID,
		ActorID:      session.UserID,
		ActorRole:    session.Role,
		TargetStatus: req.Status,
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, req.RequestID, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleBookingEvents(w http.ResponseWriter, r *http.Request, session store.Session, bookingID string) {
	events, err := h.service.Events(r.Context(), session.UserID, session.Role, bookingID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	if events == nil {
		events = []store.BookingEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cafeID := strings.TrimSpace(r.URL.Query().Get("cafe_id"))
	tableID := strings.TrimSpace(r.URL.Query().Get("table_id"))
	slotID := strings.TrimSpace(r.URL.Query().Get("slot_id"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if cafeID == "" || tableID == "" || slotID == "" || date == "" {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "cafe_id, table_id, slot_id, and date are required")
		return
	}

	free, err := h.service.IsAvailable(r.Context(), cafeID, tableID, slotID, date)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cafe_id":   cafeID,
		"table_id":  tableID,
		"slot_id":   slotID,
		"date":      date,
		"available": free,
	})
}

func (h *Handler) handleFree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cafeID := strings.TrimSpace(r.URL.Query().Get("cafe_id"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if cafeID == "" || date == "" {
		writeError(w, "", http.StatusBadRequest, "invalid_request", "cafe_id and date are required")
		return
	}

	free, err := h.service.ListFree(r.Context(), cafeID, date)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, "", status, code, msg)
		return
	}
	if free == nil {
		free = []store.FreeTableSlot{}
	}
	writeJSON(w, http.StatusOK, free)
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusUnprocessableEntity, "invalid_input", err.Error()
	case errors.Is(err, store.ErrDateInPast):
		return http.StatusUnprocessableEntity, "date_in_past", "booking date is in the past"
	case errors.Is(err, store.ErrCapacityExceeded):
		return http.StatusUnprocessableEntity, "capacity_exceeded", "party size exceeds table capacity"
	case errors.Is(err, store.ErrCafeNotFound):
		return http.StatusNotFound, "cafe_not_found", "cafe not found"
	case errors.Is(err, store.ErrTableNotFound):
		return http.StatusNotFound, "table_not_found", "table not found"
	case errors.Is(err, store.ErrSlotNotFound):
		return http.StatusNotFound, "slot_not_found", "slot not found"
	case errors.Is(err, store.ErrBookingNotFound):
		return http.StatusNotFound, "booking_not_found", "booking not found"
	case errors.Is(err, store.ErrSlotUnavailable):
		return http.StatusConflict, "slot_unavailable", "table already booked for this slot and date"
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", "booking status does not allow this change"
	case errors.Is(err, store.ErrAccessDenied):
		return http.StatusForbidden, "access_denied", "access denied"
	case errors.Is(err, store.ErrSessionNotFound):
		return http.StatusUnauthorized, "unauthorized", "invalid session"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
