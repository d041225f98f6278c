package chat

import (
	"sync"
	"time"

	"termchat/internal/models"
)

// Conn abstracts the transport side of a session so the engine can drive
// websocket connections and test doubles uniformly.
type Conn interface {
	// Send enqueues an event for delivery. It must not block; it reports
	// false if the event was dropped (delivery is best-effort).
	Send(event models.Event) bool
	// Close tears down the underlying transport.
	Close()
}

// Session binds one live connection to a verified identity. It is created
// once per successful handshake and destroyed once on disconnect.
type Session struct {
	ConnID   string
	Identity models.Identity

	conn Conn

	mu         sync.Mutex
	rooms      map[string]struct{}
	typing     map[string]typingState
	typingGen  uint64
	terminated bool
}

// typingState pairs a room's timer with the generation it was armed
// under, so an expiry callback can prove it belongs to the current timer
// without touching the timer value itself.
type typingState struct {
	timer *time.Timer
	gen   uint64
}

func newSession(connID string, identity models.Identity, conn Conn) *Session {
	return &Session{
		ConnID:   connID,
		Identity: identity,
		conn:     conn,
		rooms:    make(map[string]struct{}),
		typing:   make(map[string]typingState),
	}
}

func (s *Session) join(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID] = struct{}{}
}

func (s *Session) inRoom(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[roomID]
	return ok
}

// startTypingTimer (re)arms the auto-expiry timer for a room. The expire
// callback runs on the timer goroutine, but only if its generation is
// still the room's current one and the session is still live, so a
// cancelled, replaced, or terminated timer can never fire a stale
// broadcast. The generation is captured before the timer is created; the
// callback never reads shared state outside the lock.
func (s *Session) startTypingTimer(roomID string, timeout time.Duration, expire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return
	}
	if old, ok := s.typing[roomID]; ok {
		old.timer.Stop()
	}
	s.typingGen++
	gen := s.typingGen
	timer := time.AfterFunc(timeout, func() {
		if s.clearIfCurrent(roomID, gen) {
			expire()
		}
	})
	s.typing[roomID] = typingState{timer: timer, gen: gen}
}

func (s *Session) clearIfCurrent(roomID string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return false
	}
	if current, ok := s.typing[roomID]; !ok || current.gen != gen {
		return false
	}
	delete(s.typing, roomID)
	return true
}

// cancelTypingTimer stops a pending timer and reports whether one was
// armed.
func (s *Session) cancelTypingTimer(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.typing[roomID]
	if !ok {
		return false
	}
	delete(s.typing, roomID)
	// Stop may miss a timer that already fired; its callback is still
	// suppressed because the map entry is gone.
	state.timer.Stop()
	return true
}

// terminate cancels every pending timer and marks the session dead so a
// concurrently firing timer becomes a no-op.
func (s *Session) terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.terminated = true
	for roomID, state := range s.typing {
		state.timer.Stop()
		delete(s.typing, roomID)
	}
}
