package chat

import (
	"sort"
	"sync"

	"termchat/internal/models"
)

type presenceEntry struct {
	identity models.Identity
	connID   string
}

// Presence is the authoritative online set, keyed by identity id. At most
// one entry exists per identity; a second registration for the same
// identity replaces the first (last writer wins).
type Presence struct {
	mu      sync.RWMutex
	entries map[string]presenceEntry
}

func NewPresence() *Presence {
	return &Presence{
		entries: make(map[string]presenceEntry),
	}
}

// Register inserts or replaces the entry for the identity. It returns the
// connection id of the entry it replaced, if any.
func (p *Presence) Register(identity models.Identity, connID string) (replaced string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, had := p.entries[identity.ID]
	p.entries[identity.ID] = presenceEntry{identity: identity, connID: connID}
	if had {
		return prev.connID, true
	}
	return "", false
}

// Unregister removes the identity's entry only if it still points at
// connID. A stale disconnect from a replaced connection is a no-op, so a
// reconnecting user is never marked offline by their old transport.
func (p *Presence) Unregister(identityID, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[identityID]
	if !ok || entry.connID != connID {
		return false
	}
	delete(p.entries, identityID)
	return true
}

func (p *Presence) Online(identityID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.entries[identityID]
	return ok
}

// Snapshot returns the roster in a stable order.
func (p *Presence) Snapshot() []models.PresenceInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]models.PresenceInfo, 0, len(p.entries))
	for _, entry := range p.entries {
		users = append(users, models.PresenceInfo{
			ID:          entry.identity.ID,
			DisplayName: entry.identity.DisplayName,
			Status:      "online",
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}
