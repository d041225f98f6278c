package handlers

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strings"
	"time"

	"termchat/internal/chat"
	"termchat/internal/store"
	"termchat/pkg/logger"
)

// APIHandlers serves the read-only JSON API: room list, retained history,
// and server stats.
type APIHandlers struct {
	users     store.UserStore
	manager   *chat.Manager
	directory *chat.Directory
	log       *chat.MessageLog
	presence  *chat.Presence
	started   time.Time
}

func NewAPIHandlers(users store.UserStore, manager *chat.Manager, directory *chat.Directory, log *chat.MessageLog, presence *chat.Presence) *APIHandlers {
	return &APIHandlers{
		users:     users,
		manager:   manager,
		directory: directory,
		log:       log,
		presence:  presence,
		started:   time.Now(),
	}
}

func (h *APIHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.directory.List())
}

// RoomMessages serves the retained history for one room, oldest first.
// Path: /api/messages/{roomId}
func (h *APIHandlers) RoomMessages(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimPrefix(r.URL.Path, "/api/messages/")
	if roomID == "" || strings.Contains(roomID, "/") {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	if !h.manager.RoomExists(roomID) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	writeJSON(w, h.manager.RecentMessages(roomID))
}

type statsResponse struct {
	TotalUsers    int `json:"totalUsers"`
	OnlineUsers   int `json:"onlineUsers"`
	TotalRooms    int `json:"totalRooms"`
	TotalMessages int `json:"totalMessages"`
	UptimeSeconds int `json:"uptime"`
	MemoryMB      int `json:"memoryUsage"`
}

func (h *APIHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	totalUsers, err := h.users.CountUsers(r.Context())
	if err != nil {
		logger.Error("Failed to count users: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, statsResponse{
		TotalUsers:    totalUsers,
		OnlineUsers:   h.presence.Count(),
		TotalRooms:    h.directory.Count(),
		TotalMessages: h.log.Count(),
		UptimeSeconds: int(time.Since(h.started).Seconds()),
		MemoryMB:      int(mem.HeapAlloc / 1024 / 1024),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}
