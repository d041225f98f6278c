package chat

import (
	"sort"
	"sync"
	"time"

	"termchat/internal/models"
)

// Directory maps room ids to room metadata. Rooms are created at startup
// or on demand and never deleted; membership is not stored here, it is
// derived from the sessions currently joined.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room
}

func NewDirectory(defaultRoom string) *Directory {
	d := &Directory{
		rooms: make(map[string]*models.Room),
	}
	d.Create(defaultRoom, "General", models.RoomPublic)
	return d
}

func (d *Directory) Create(id, name string, kind models.RoomKind) *models.Room {
	d.mu.Lock()
	defer d.mu.Unlock()

	if room, ok := d.rooms[id]; ok {
		return room
	}

	room := &models.Room{
		ID:        id,
		Name:      name,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
	d.rooms[id] = room
	return room
}

func (d *Directory) Get(id string) (*models.Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.rooms[id]
	return room, ok
}

func (d *Directory) Exists(id string) bool {
	_, ok := d.Get(id)
	return ok
}

func (d *Directory) List() []*models.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rooms := make([]*models.Room, 0, len(d.rooms))
	for _, room := range d.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}

func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}
