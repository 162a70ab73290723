package schedule

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/consultly/consultly-server/cmd/models"
	"github.com/consultly/consultly-server/cmd/utils"
	"github.com/gorilla/mux"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/experts/{expertId}/schedule", utils.AuthMiddleware(h.CreateTemplate)).Methods("POST")
	router.HandleFunc("/experts/{expertId}/schedule", h.ListTemplates).Methods("GET")
	router.HandleFunc("/schedule/{id}", utils.AuthMiddleware(h.DeactivateTemplate)).Methods("DELETE")
}

type createTemplateRequest struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	expertID, err := strconv.ParseUint(vars["expertId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid expert ID", http.StatusBadRequest)
		return
	}

	actorID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	role, _ := utils.GetUserRoleFromContext(r.Context())
	if actorID != uint(expertID) && role != models.RoleAdmin {
		utils.WriteError(w, models.ErrNotFound)
		return
	}

	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	template, err := h.store.Add(r.Context(), uint(expertID), req.DayOfWeek, req.StartTime, req.EndTime)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, template)
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	expertID, err := strconv.ParseUint(vars["expertId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid expert ID", http.StatusBadRequest)
		return
	}

	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	templates, err := h.store.List(r.Context(), uint(expertID), !includeInactive)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, templates)
}

func (h *Handler) DeactivateTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	templateID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid template ID", http.StatusBadRequest)
		return
	}

	actorID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.store.Deactivate(r.Context(), uint(templateID), actorID); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Template deactivated successfully",
	})
}
