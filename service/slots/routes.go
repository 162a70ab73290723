package slots

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/consultly/consultly-server/cmd/utils"
	"github.com/gorilla/mux"
)

type Handler struct {
	projector *Projector
}

func NewHandler(projector *Projector) *Handler {
	return &Handler{projector: projector}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/experts/{expertId}/slots", h.GetSlots).Methods("GET")
}

type slotResponse struct {
	Date            string `json:"date"`
	TimeRange       string `json:"time_range"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	expertID, err := strconv.ParseUint(vars["expertId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid expert ID", http.StatusBadRequest)
		return
	}

	windowStart := utils.DateOnly(time.Now())
	if s := r.URL.Query().Get("start_date"); s != "" {
		windowStart, err = utils.ParseDate(s)
		if err != nil {
			http.Error(w, "Invalid start_date. Use YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	windowEnd := windowStart.AddDate(0, 0, DefaultWindowDays)
	if s := r.URL.Query().Get("end_date"); s != "" {
		windowEnd, err = utils.ParseDate(s)
		if err != nil {
			http.Error(w, "Invalid end_date. Use YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	candidates, err := h.projector.Project(r.Context(), uint(expertID), windowStart, windowEnd)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].Date.Equal(candidates[j].Date) {
			return candidates[i].Date.Before(candidates[j].Date)
		}
		return candidates[i].StartTime < candidates[j].StartTime
	})

	out := make([]slotResponse, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, slotResponse{
			Date:            c.Date.Format(utils.DateLayout),
			TimeRange:       c.TimeRange(),
			DurationMinutes: c.DurationMinutes,
		})
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expert_id": expertID,
		"slots":     out,
		"total":     len(out),
	})
}
