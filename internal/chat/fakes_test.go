package chat_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"termchat/internal/chat"
	"termchat/internal/config"
	"termchat/internal/models"
)

// fakeConn records every delivered event so tests can assert on fan-out.
type fakeConn struct {
	mu     sync.Mutex
	events []models.Event
	closed bool
}

func (c *fakeConn) Send(event models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) all() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *fakeConn) ofType(t models.EventType) []models.Event {
	var out []models.Event
	for _, event := range c.all() {
		if event.Type == t {
			out = append(out, event)
		}
	}
	return out
}

// fakeVerifier resolves tokens from a fixed table.
type fakeVerifier struct {
	identities map[string]models.Identity
}

func newFakeVerifier(identities ...models.Identity) *fakeVerifier {
	v := &fakeVerifier{identities: make(map[string]models.Identity)}
	for _, identity := range identities {
		v.identities["token-"+identity.ID] = identity
	}
	return v
}

func (v *fakeVerifier) VerifyToken(token string) (models.Identity, error) {
	identity, ok := v.identities[token]
	if !ok {
		return models.Identity{}, fmt.Errorf("unknown token %q", token)
	}
	return identity, nil
}

func testChatConfig() config.ChatConfig {
	return config.ChatConfig{
		DefaultRoom:   "general",
		SweepInterval: time.Hour,
		MessageMaxAge: 2 * time.Hour,
		MessageCap:    100,
		TypingTimeout: 80 * time.Millisecond,
	}
}

type fixture struct {
	verifier  *fakeVerifier
	directory *chat.Directory
	log       *chat.MessageLog
	presence  *chat.Presence
	manager   *chat.Manager
}

func newFixture(t *testing.T, identities ...models.Identity) *fixture {
	t.Helper()

	cfg := testChatConfig()
	f := &fixture{
		verifier:  newFakeVerifier(identities...),
		directory: chat.NewDirectory(cfg.DefaultRoom),
		log:       chat.NewMessageLog(cfg.MessageMaxAge, cfg.MessageCap),
		presence:  chat.NewPresence(),
	}
	f.manager = chat.NewManager(f.verifier, f.directory, f.log, f.presence, cfg)
	f.manager.Start()
	t.Cleanup(f.manager.Stop)
	return f
}

func (f *fixture) connect(t *testing.T, identity models.Identity) (*chat.Session, *fakeConn) {
	t.Helper()

	conn := &fakeConn{}
	session, err := f.manager.Establish(conn, "token-"+identity.ID)
	if err != nil {
		t.Fatalf("establish %s: %v", identity.ID, err)
	}
	return session, conn
}
