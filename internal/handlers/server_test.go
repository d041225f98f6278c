package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"termchat/internal/auth"
	"termchat/internal/chat"
	"termchat/internal/config"
	"termchat/internal/handlers"
	"termchat/internal/models"
	"termchat/internal/store"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	auth *auth.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: []byte("test-secret"), ExpiresIn: time.Hour},
		Chat: config.ChatConfig{
			DefaultRoom:   "general",
			SweepInterval: time.Hour,
			MessageMaxAge: 2 * time.Hour,
			MessageCap:    100,
			TypingTimeout: 2 * time.Second,
		},
	}

	users := store.NewMemoryStore()
	authService := auth.NewService(users, cfg)
	directory := chat.NewDirectory(cfg.Chat.DefaultRoom)
	messageLog := chat.NewMessageLog(cfg.Chat.MessageMaxAge, cfg.Chat.MessageCap)
	presence := chat.NewPresence()
	manager := chat.NewManager(authService, directory, messageLog, presence, cfg.Chat)
	manager.Start()
	t.Cleanup(manager.Stop)

	authHandlers := handlers.NewAuthHandlers(authService)
	apiHandlers := handlers.NewAPIHandlers(users, manager, directory, messageLog, presence)
	wsHandlers := handlers.NewWebSocketHandlers(manager)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/register", authHandlers.Register)
	mux.HandleFunc("/api/login", authHandlers.Login)
	mux.HandleFunc("/api/rooms", handlers.RequireAuth(authService, apiHandlers.ListRooms))
	mux.HandleFunc("/api/messages/", handlers.RequireAuth(authService, apiHandlers.RoomMessages))
	mux.HandleFunc("/api/stats", handlers.RequireAuth(authService, apiHandlers.Stats))
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &testServer{Server: server, auth: authService}
}

func (s *testServer) register(t *testing.T, email, displayName string) string {
	t.Helper()

	body, _ := json.Marshal(models.RegisterRequest{
		Email:       email,
		Password:    "hunter22",
		DisplayName: displayName,
	})
	resp, err := http.Post(s.URL+"/api/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var login models.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	return login.Token
}

func (s *testServer) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.Event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event models.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func (s *testServer) get(t *testing.T, path, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestChatFlowOverWebSocket(t *testing.T) {
	server := newTestServer(t)
	aliceToken := server.register(t, "alice@example.com", "Alice")
	bobToken := server.register(t, "bob@example.com", "Bob")

	aliceConn := server.dial(t, aliceToken)
	roster := readEvent(t, aliceConn)
	require.Equal(t, models.EventUsersList, roster.Type)
	require.Len(t, roster.Users, 1)

	bobConn := server.dial(t, bobToken)
	roster = readEvent(t, bobConn)
	require.Equal(t, models.EventUsersList, roster.Type)
	assert.Len(t, roster.Users, 2)

	online := readEvent(t, aliceConn)
	require.Equal(t, models.EventUserOnline, online.Type)
	assert.Equal(t, "Bob", online.DisplayName)

	require.NoError(t, bobConn.WriteJSON(models.ClientEvent{
		Type:    models.ClientSendMessage,
		RoomID:  "general",
		Content: "hello alice",
	}))

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		event := readEvent(t, conn)
		require.Equal(t, models.EventNewMessage, event.Type)
		require.NotNil(t, event.Message)
		assert.Equal(t, "hello alice", event.Message.Content)
		assert.Equal(t, "general", event.Message.RoomID)
		assert.Equal(t, "Bob", event.Message.SenderName)
	}

	// History is now served over the HTTP API.
	resp := server.get(t, "/api/messages/general", aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []models.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history, 1)
	assert.Equal(t, "hello alice", history[0].Content)

	// Bob disconnects; Alice hears exactly one user-offline.
	bobConn.Close()
	offline := readEvent(t, aliceConn)
	require.Equal(t, models.EventUserOffline, offline.Type)
	assert.Equal(t, "Bob", offline.DisplayName)
}

func TestTypingRelayOverWebSocket(t *testing.T) {
	server := newTestServer(t)
	aliceToken := server.register(t, "alice@example.com", "Alice")
	bobToken := server.register(t, "bob@example.com", "Bob")

	aliceConn := server.dial(t, aliceToken)
	readEvent(t, aliceConn) // roster
	bobConn := server.dial(t, bobToken)
	readEvent(t, bobConn)   // roster
	readEvent(t, aliceConn) // bob online

	require.NoError(t, bobConn.WriteJSON(models.ClientEvent{
		Type:   models.ClientTypingStart,
		RoomID: "general",
	}))

	typing := readEvent(t, aliceConn)
	require.Equal(t, models.EventUserTyping, typing.Type)
	require.NotNil(t, typing.Typing)
	assert.True(t, *typing.Typing)
	assert.Equal(t, "Bob", typing.DisplayName)

	require.NoError(t, bobConn.WriteJSON(models.ClientEvent{
		Type:   models.ClientTypingStop,
		RoomID: "general",
	}))

	typing = readEvent(t, aliceConn)
	require.Equal(t, models.EventUserTyping, typing.Type)
	require.NotNil(t, typing.Typing)
	assert.False(t, *typing.Typing)
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	server := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=garbage"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "upgrade succeeds; the server closes the socket after verification fails")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "socket should be closed without any events")
	conn.Close()
}

func TestAPIEndpoints(t *testing.T) {
	server := newTestServer(t)
	token := server.register(t, "alice@example.com", "Alice")

	resp := server.get(t, "/api/rooms", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rooms []models.Room
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "general", rooms[0].ID)

	resp = server.get(t, "/api/messages/nowhere", token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = server.get(t, "/api/stats", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats["totalUsers"])
	assert.Equal(t, 0, stats["onlineUsers"])
	assert.Equal(t, 1, stats["totalRooms"])

	resp = server.get(t, "/api/rooms", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDuplicateRegistrationConflicts(t *testing.T) {
	server := newTestServer(t)
	server.register(t, "alice@example.com", "Alice")

	body, _ := json.Marshal(models.RegisterRequest{
		Email:       "alice@example.com",
		Password:    "hunter22",
		DisplayName: "Alice Again",
	})
	resp, err := http.Post(server.URL+"/api/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestReconnectKeepsUserOnline(t *testing.T) {
	server := newTestServer(t)
	aliceToken := server.register(t, "alice@example.com", "Alice")
	bobToken := server.register(t, "bob@example.com", "Bob")

	observer := server.dial(t, bobToken)
	readEvent(t, observer) // roster

	first := server.dial(t, aliceToken)
	readEvent(t, first)     // roster
	readEvent(t, observer)  // alice online

	second := server.dial(t, aliceToken)
	readEvent(t, second)   // roster
	readEvent(t, observer) // alice online again (new session)

	// The old transport closing must not mark alice offline. Events reach
	// the observer in publish order, so if the stale disconnect had
	// produced a user-offline it would arrive before the message below.
	first.Close()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, second.WriteJSON(models.ClientEvent{
		Type:    models.ClientSendMessage,
		RoomID:  "general",
		Content: fmt.Sprintf("still here at %d", time.Now().Unix()),
	}))
	event := readEvent(t, observer)
	assert.Equal(t, models.EventNewMessage, event.Type)
}
