package events

import (
	"log"
	"sync"
	"time"

	"github.com/example/retype/internal/localstore"
)

// Watcher turns writes of a marker key by other processes into bus events.
// Markers published on the bus by this process are remembered so that a
// local write is not reported a second time.
type Watcher struct {
	storage localstore.Storage
	key     string
	bus     Bus
	logger  *log.Logger

	mu     sync.Mutex
	last   string
	local  <-chan Event
	cancel func()
}

// NewWatcher starts watching key. The value present now counts as seen.
func NewWatcher(storage localstore.Storage, key string, bus Bus, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	w := &Watcher{storage: storage, key: key, bus: bus, logger: logger}
	if v, ok, err := storage.Get(key); err == nil && ok {
		w.last = v
	}
	w.local, w.cancel = bus.Subscribe(64)
	return w
}

// Poll checks the marker once and publishes a StatsUpdated event when it was
// changed by someone else. It reports whether an event was published.
func (w *Watcher) Poll() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.drainLocal()

	v, ok, err := w.storage.Get(w.key)
	if err != nil {
		w.logger.Printf("Error reading %s: %v", w.key, err)
		return false
	}
	if !ok || v == w.last {
		return false
	}
	w.last = v
	w.bus.Publish(Event{Kind: StatsUpdated, At: time.Now(), Stamp: v, External: true})
	return true
}

func (w *Watcher) drainLocal() {
	for {
		select {
		case e, ok := <-w.local:
			if !ok {
				return
			}
			if !e.External && e.Stamp != "" {
				w.last = e.Stamp
			}
		default:
			return
		}
	}
}

// Close stops listening to the bus
func (w *Watcher) Close() {
	w.cancel()
}
