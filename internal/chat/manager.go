package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"termchat/internal/config"
	"termchat/internal/models"
	"termchat/pkg/logger"

	"github.com/google/uuid"
)

// TokenVerifier turns an opaque credential token into a stable identity.
// It is consulted exactly once per connection attempt, before any session
// state exists.
type TokenVerifier interface {
	VerifyToken(token string) (models.Identity, error)
}

// Manager owns the session lifecycle: it binds connections to verified
// identities, tracks room membership, and drives presence and typing
// broadcasts. All state lives in process memory and is rebuilt empty on
// restart.
type Manager struct {
	verifier  TokenVerifier
	directory *Directory
	log       *MessageLog
	presence  *Presence
	router    *Router

	defaultRoom   string
	typingTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(verifier TokenVerifier, directory *Directory, log *MessageLog, presence *Presence, cfg config.ChatConfig) *Manager {
	m := &Manager{
		verifier:      verifier,
		directory:     directory,
		log:           log,
		presence:      presence,
		defaultRoom:   cfg.DefaultRoom,
		typingTimeout: cfg.TypingTimeout,
		sessions:      make(map[string]*Session),
	}
	m.router = NewRouter(m.sessionsInRoom)
	return m
}

func (m *Manager) Start() {
	m.router.Start()
}

func (m *Manager) Stop() {
	m.router.Stop()
}

// Establish authenticates the connection and creates its session: the
// identity is registered in the presence set (replacing any previous
// connection for the same identity), the session auto-joins the default
// room, the new client gets the online roster, and everyone else gets a
// user-online event. On a verification failure the transport is closed
// and nothing is mutated.
func (m *Manager) Establish(conn Conn, token string) (*Session, error) {
	identity, err := m.verifier.VerifyToken(token)
	if err != nil {
		conn.Close()
		return nil, &AuthError{Err: err}
	}

	session := newSession(uuid.NewString(), identity, conn)
	session.join(m.defaultRoom)

	m.mu.Lock()
	m.sessions[session.ConnID] = session
	m.mu.Unlock()

	if prev, replaced := m.presence.Register(identity, session.ConnID); replaced {
		// The old transport stays open; its eventual disconnect is a
		// guarded no-op in Unregister.
		logger.Info("User %s reconnected, presence moved off connection %s", identity.ID, prev)
	}

	conn.Send(models.RosterEvent(m.presence.Snapshot()))
	m.router.Publish(m.defaultRoom, models.PresenceEvent(models.EventUserOnline, identity), session)

	logger.Info("User %s connected (%s)", identity.DisplayName, session.ConnID)
	return session, nil
}

// JoinRoom subscribes the session to a room. Joining a room the session
// is already in is a no-op.
func (m *Manager) JoinRoom(session *Session, roomID string) error {
	if !m.directory.Exists(roomID) {
		return fmt.Errorf("join %q: %w", roomID, ErrRoomNotFound)
	}
	session.join(roomID)
	return nil
}

// SendMessage appends a message to the room's log and broadcasts it to
// every member, sender included. Empty or whitespace-only content is
// silently ignored: no message, no broadcast, nil error.
func (m *Manager) SendMessage(session *Session, roomID, content, kind string) (*models.Message, error) {
	if !m.directory.Exists(roomID) {
		return nil, fmt.Errorf("send to %q: %w", roomID, ErrRoomNotFound)
	}
	if !session.inRoom(roomID) {
		return nil, fmt.Errorf("send to %q: %w", roomID, ErrNotMember)
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	if kind == "" {
		kind = "text"
	}

	// Sending resolves a pending typing indicator for the room.
	if session.cancelTypingTimer(roomID) {
		m.router.Publish(roomID, models.TypingEvent(session.Identity, false), session)
	}

	now := time.Now()
	msg := &models.Message{
		ID:         newMessageID(now),
		RoomID:     roomID,
		SenderID:   session.Identity.ID,
		SenderName: session.Identity.DisplayName,
		Content:    content,
		Kind:       kind,
		CreatedAt:  now,
	}

	m.log.Append(msg)
	m.router.Publish(roomID, models.NewMessageEvent(msg), nil)
	return msg, nil
}

// SetTyping broadcasts the typing state to the room, excluding the
// sender. A true state arms (or re-arms) an auto-expiry timer that
// resolves to typing-false after the idle window; an explicit false
// cancels it.
func (m *Manager) SetTyping(session *Session, roomID string, typing bool) error {
	if !m.directory.Exists(roomID) {
		return fmt.Errorf("typing in %q: %w", roomID, ErrRoomNotFound)
	}
	if !session.inRoom(roomID) {
		return fmt.Errorf("typing in %q: %w", roomID, ErrNotMember)
	}

	if typing {
		session.startTypingTimer(roomID, m.typingTimeout, func() {
			m.router.Publish(roomID, models.TypingEvent(session.Identity, false), session)
		})
	} else {
		session.cancelTypingTimer(roomID)
	}

	m.router.Publish(roomID, models.TypingEvent(session.Identity, typing), session)
	return nil
}

// Terminate destroys the session on disconnect or forced close. Pending
// typing timers are cancelled immediately. The presence entry is removed
// only if it still belongs to this connection; only an actual removal
// produces a user-offline broadcast.
func (m *Manager) Terminate(session *Session) {
	m.mu.Lock()
	delete(m.sessions, session.ConnID)
	m.mu.Unlock()

	session.terminate()

	if m.presence.Unregister(session.Identity.ID, session.ConnID) {
		m.router.Publish(m.defaultRoom, models.PresenceEvent(models.EventUserOffline, session.Identity), session)
		logger.Info("User %s disconnected (%s)", session.Identity.DisplayName, session.ConnID)
	} else {
		logger.Debug("Stale disconnect for %s ignored (%s)", session.Identity.ID, session.ConnID)
	}

	session.conn.Close()
}

// RecentMessages serves initial room history to the HTTP layer.
func (m *Manager) RecentMessages(roomID string) []*models.Message {
	return m.log.Recent(roomID)
}

func (m *Manager) RoomExists(roomID string) bool {
	return m.directory.Exists(roomID)
}

func (m *Manager) sessionsInRoom(roomID string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var members []*Session
	for _, session := range m.sessions {
		if session.inRoom(roomID) {
			members = append(members, session)
		}
	}
	return members
}

// newMessageID builds a time-prefixed id: ordering by id matches creation
// order, and the random suffix tolerates same-millisecond collisions.
func newMessageID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}
