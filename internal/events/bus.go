// Package events carries change notifications between the components of a
// session and between processes sharing one profile.
package events

import (
	"sync"
	"time"
)

// Kind names what changed
type Kind string

const (
	// StatsUpdated is published after word counts change
	StatsUpdated Kind = "stats_updated"
	// ContentCompleted is published after a paragraph or wisdom section is completed
	ContentCompleted Kind = "content_completed"
	// DayRolledOver is published when the calendar date changes
	DayRolledOver Kind = "day_rolled_over"
)

// Event is a single notification
type Event struct {
	Kind   Kind
	UserID string
	At     time.Time
	// Stamp is the last-updated marker written alongside the change, if any
	Stamp string
	// External is set for changes that were written by another process
	External bool
}

// Bus delivers events to every current subscriber. Delivery is best effort.
type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (<-chan Event, func())
}

// LocalBus is an in-process Bus. A subscriber whose buffer is full misses
// the event instead of blocking the publisher.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

// NewLocalBus creates a bus without subscribers
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]chan Event)}
}

// Publish fans e out to every subscriber
func (b *LocalBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a subscriber. The returned function unsubscribes and
// closes the channel; calling it more than once is harmless.
func (b *LocalBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}
