package chat

import (
	"sync"
	"time"

	"termchat/internal/models"
	"termchat/pkg/logger"
)

// MessageLog keeps each room's retained messages in memory, ordered by
// append. History does not survive a restart.
type MessageLog struct {
	mu    sync.Mutex
	rooms map[string][]*models.Message

	maxAge   time.Duration
	maxCount int
}

func NewMessageLog(maxAge time.Duration, maxCount int) *MessageLog {
	return &MessageLog{
		rooms:    make(map[string][]*models.Message),
		maxAge:   maxAge,
		maxCount: maxCount,
	}
}

// Append adds a message to its room's sequence, creating the sequence on
// first use.
func (l *MessageLog) Append(msg *models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rooms[msg.RoomID] = append(l.rooms[msg.RoomID], msg)
}

// Recent returns the full retained sequence for a room, oldest first. The
// returned slice is a copy; an unknown room yields an empty slice.
func (l *MessageLog) Recent(roomID string) []*models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	msgs := l.rooms[roomID]
	out := make([]*models.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Count returns the total number of retained messages across all rooms.
func (l *MessageLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, msgs := range l.rooms {
		total += len(msgs)
	}
	return total
}

// Sweep evicts, for every room, messages older than the retention age and
// then truncates the survivors to the newest maxCount entries. Filtering
// runs on a copied slice so the lock is held only for the snapshot and the
// final swap; appends that land mid-sweep are re-applied before the swap.
// Returns the number of evicted messages.
func (l *MessageLog) Sweep(now time.Time) int {
	cutoff := now.Add(-l.maxAge)

	l.mu.Lock()
	snapshots := make(map[string][]*models.Message, len(l.rooms))
	for roomID, msgs := range l.rooms {
		snapshot := make([]*models.Message, len(msgs))
		copy(snapshot, msgs)
		snapshots[roomID] = snapshot
	}
	l.mu.Unlock()

	evicted := 0
	for roomID, msgs := range snapshots {
		kept := msgs[:0]
		for _, msg := range msgs {
			if msg.CreatedAt.After(cutoff) {
				kept = append(kept, msg)
			}
		}
		if len(kept) > l.maxCount {
			kept = kept[len(kept)-l.maxCount:]
		}
		if len(kept) == len(msgs) {
			continue
		}

		l.mu.Lock()
		current := l.rooms[roomID]
		if len(current) > len(msgs) {
			kept = append(kept, current[len(msgs):]...)
		}
		evicted += len(current) - len(kept)
		l.rooms[roomID] = kept
		l.mu.Unlock()
	}
	return evicted
}

// Sweeper periodically prunes the log on a fixed interval.
type Sweeper struct {
	log      *MessageLog
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewSweeper(log *MessageLog, interval time.Duration) *Sweeper {
	return &Sweeper{
		log:      log,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case now := <-ticker.C:
				if evicted := s.log.Sweep(now); evicted > 0 {
					logger.Info("Retention sweep evicted %d messages", evicted)
				}
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}
