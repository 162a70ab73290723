package chat

import (
	"net/http"
	"strconv"

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
	router.HandleFunc("/threads", utils.AuthMiddleware(h.GetThreads)).Methods("GET")
	router.HandleFunc("/messages/peer/{userId}", utils.AuthMiddleware(h.GetPeerMessages)).Methods("GET")
}

func (h *Handler) GetThreads(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	threads, err := h.store.ThreadsFor(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, threads)
}

func (h *Handler) GetPeerMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	peerID, err := strconv.ParseUint(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	messages, err := h.store.MessagesBetween(r.Context(), userID, uint(peerID))
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, messages)
}
