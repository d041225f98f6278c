package handlers

import (
	"net/http"

	"termchat/internal/chat"
	ws "termchat/internal/websocket"
	"termchat/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	manager  *chat.Manager
	upgrader websocket.Upgrader
}

func NewWebSocketHandlers(manager *chat.Manager) *WebSocketHandlers {
	return &WebSocketHandlers{
		manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get JWT token from query parameters
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	// Upgrade connection to WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	// Bind the connection to a session; a bad token closes the socket
	// without touching any shared state.
	client := ws.NewClient(conn, h.manager)
	if err := client.Start(tokenStr); err != nil {
		logger.Warn("Rejected websocket connection: %v", err)
	}
}
