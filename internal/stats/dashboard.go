package stats

import (
	"context"
	"sync"

	"github.com/example/retype/internal/events"
)

// Dashboard is the stats consumer of a session: the headline counters plus
// the weekly chart, refetched when the refresh key grows
type Dashboard struct {
	svc  *Service
	key  *RefreshKey
	view *WeeklyView

	mu       sync.Mutex
	seen     uint64
	snapshot Snapshot
}

// NewDashboard creates a dashboard driven by key
func NewDashboard(svc *Service, key *RefreshKey) *Dashboard {
	return &Dashboard{svc: svc, key: key, view: NewWeeklyView(svc)}
}

// View returns the weekly chart
func (d *Dashboard) View() *WeeklyView {
	return d.view
}

// Sync brings the counters and the weekly chart up to date. Everything is
// refetched when the refresh key grew since the last sync; otherwise cached
// values inside the freshness window are used. It reports whether a forced
// refetch happened.
func (d *Dashboard) Sync(ctx context.Context) (Snapshot, bool) {
	key := d.key.Value()
	d.mu.Lock()
	force := key > d.seen
	d.mu.Unlock()

	snap := d.svc.Snapshot(ctx, force)
	d.view.Load(ctx, d.view.State().Offset, force)

	d.mu.Lock()
	defer d.mu.Unlock()
	if key > d.seen {
		d.seen = key
	}
	d.snapshot = snap
	return snap, force
}

// Snapshot returns the counters of the last sync
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot
}

// Listen bumps the refresh key for every stats related event on bus until
// ctx is done
func (d *Dashboard) Listen(ctx context.Context, bus events.Bus) {
	ch, cancel := bus.Subscribe(16)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			switch e.Kind {
			case events.StatsUpdated, events.ContentCompleted, events.DayRolledOver:
				d.key.Bump()
			}
		}
	}
}
