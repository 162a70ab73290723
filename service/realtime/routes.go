package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/consultly/consultly-server/cmd/models"
	"github.com/consultly/consultly-server/cmd/utils"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// MessageSink handles chat messages arriving over the websocket.
type MessageSink interface {
	SendPeerMessage(ctx context.Context, senderID, receiverID uint, content string) (*models.Message, error)
}

type Handler struct {
	hub    *Hub
	sink   MessageSink
	logger zerolog.Logger
}

func NewHandler(hub *Hub, sink MessageSink, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		sink:   sink,
		logger: logger.With().Str("component", "ws_transport").Logger(),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", utils.AuthMiddleware(h.HandleWebSocket))
}

type inboundMessage struct {
	Type       string `json:"type"`
	ReceiverID uint   `json:"receiver_id,omitempty"`
	Content    string `json:"content,omitempty"`
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(userID, conn)
	h.hub.Register(userID, client)

	go client.WritePump()
	go h.readPump(client)
}

func (h *Handler) readPump(client *Client) {
	defer h.hub.Unregister(client.UserID, client)

	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Uint("user_id", client.UserID).Msg("websocket read error")
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.logger.Warn().Err(err).Uint("user_id", client.UserID).Msg("malformed websocket message")
			continue
		}

		switch msg.Type {
		case "message":
			if _, err := h.sink.SendPeerMessage(context.Background(), client.UserID, msg.ReceiverID, msg.Content); err != nil {
				h.logger.Warn().Err(err).Uint("user_id", client.UserID).Msg("failed to handle peer message")
			}
		}
	}
}
