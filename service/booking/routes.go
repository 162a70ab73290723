package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/consultly/consultly-server/cmd/models"
	"github.com/consultly/consultly-server/cmd/utils"
	"github.com/gorilla/mux"
)

type Handler struct {
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/bookings", utils.AuthMiddleware(h.CreateBooking)).Methods("POST")
	router.HandleFunc("/bookings/{id}", utils.AuthMiddleware(h.GetBooking)).Methods("GET")
	router.HandleFunc("/bookings/{id}/confirm", utils.AuthMiddleware(h.ConfirmBooking)).Methods("POST")
	router.HandleFunc("/bookings/{id}/reject", utils.AuthMiddleware(h.RejectBooking)).Methods("POST")
	router.HandleFunc("/bookings/{id}/cancel", utils.AuthMiddleware(h.CancelBooking)).Methods("POST")
	router.HandleFunc("/bookings/expert/{expertId}", utils.AuthMiddleware(h.GetExpertBookings)).Methods("GET")
	router.HandleFunc("/bookings/client/{clientId}", utils.AuthMiddleware(h.GetClientBookings)).Methods("GET")
}

type createBookingRequest struct {
	ExpertID      uint   `json:"expert_id"`
	Date          string `json:"date"`
	TimeRange     string `json:"time_range"`
	ClientMessage string `json:"client_message,omitempty"`
}

type reasonRequest struct {
	Reason string `json:"reason,omitempty"`
}

func splitTimeRange(s string) (start, end string, ok bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	clientID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ExpertID == 0 {
		utils.WriteError(w, models.NewValidationError("expert_id", "is required"))
		return
	}
	date, err := utils.ParseDate(req.Date)
	if err != nil {
		utils.WriteError(w, models.NewValidationError("date", "must be a YYYY-MM-DD date"))
		return
	}
	start, end, ok := splitTimeRange(req.TimeRange)
	if !ok {
		utils.WriteError(w, models.NewValidationError("time_range", "must be HH:MM-HH:MM"))
		return
	}

	booking, err := h.ledger.Create(r.Context(), clientID, CreateParams{
		ExpertID:      req.ExpertID,
		Date:          date,
		StartTime:     start,
		EndTime:       end,
		ClientMessage: req.ClientMessage,
	})
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, booking)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	actorID, bookingID, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	booking, err := h.ledger.Get(r.Context(), actorID, bookingID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, booking)
}

func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	actorID, bookingID, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	booking, err := h.ledger.Confirm(r.Context(), actorID, bookingID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, booking)
}

func (h *Handler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	actorID, bookingID, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var req reasonRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	booking, err := h.ledger.Reject(r.Context(), actorID, bookingID, req.Reason)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, booking)
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	actorID, bookingID, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var req reasonRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	booking, err := h.ledger.Cancel(r.Context(), actorID, bookingID, req.Reason)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, booking)
}

func (h *Handler) GetExpertBookings(w http.ResponseWriter, r *http.Request) {
	h.listBookings(w, r, "expertId", h.ledger.ListForExpert)
}

func (h *Handler) GetClientBookings(w http.ResponseWriter, r *http.Request) {
	h.listBookings(w, r, "clientId", h.ledger.ListForClient)
}

type listFunc func(ctx context.Context, id uint, status string, page, pageSize int) ([]models.Booking, int64, error)

func (h *Handler) listBookings(w http.ResponseWriter, r *http.Request, pathVar string, list listFunc) {
	id, err := strconv.ParseUint(mux.Vars(r)[pathVar], 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 100
	status := r.URL.Query().Get("status")

	bookings, total, err := list(r.Context(), uint(id), status, page, pageSize)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"bookings":    bookings,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *Handler) actorAndID(w http.ResponseWriter, r *http.Request) (uint, uint, bool) {
	actorID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return 0, 0, false
	}

	bookingID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return 0, 0, false
	}
	return actorID, uint(bookingID), true
}
