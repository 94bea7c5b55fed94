package stats

import (
	"context"
	"sync"
	"sync/atomic"
)

// ViewState is what a weekly chart renders
type ViewState struct {
	Offset  int   `json:"offset"`
	Loading bool  `json:"loading"`
	Week    *Week `json:"week,omitempty"`
	Err     error `json:"-"`
}

// WeeklyView holds the week currently on screen. Every load takes a request
// token; a result that arrives after a newer load started is discarded.
type WeeklyView struct {
	svc *Service

	mu    sync.Mutex
	token uint64
	state ViewState
}

// NewWeeklyView creates a view on the current week
func NewWeeklyView(svc *Service) *WeeklyView {
	return &WeeklyView{svc: svc}
}

// Load fetches the week at offset and shows it unless a newer load was
// started meanwhile. It reports whether the result was applied.
func (v *WeeklyView) Load(ctx context.Context, offset int, force bool) bool {
	v.mu.Lock()
	v.token++
	token := v.token
	v.state.Offset = offset
	v.state.Loading = true
	v.mu.Unlock()

	week, err := v.svc.Weekly(ctx, offset, force)

	v.mu.Lock()
	defer v.mu.Unlock()
	if token != v.token {
		return false
	}
	v.state.Loading = false
	v.state.Err = err
	if err != nil {
		v.state.Week = nil
	} else {
		v.state.Week = &week
	}
	return true
}

// Previous shows the week before the one on screen
func (v *WeeklyView) Previous(ctx context.Context) bool {
	return v.Load(ctx, v.State().Offset-1, false)
}

// Next shows the following week. It does nothing on the current week.
func (v *WeeklyView) Next(ctx context.Context) bool {
	offset := v.State().Offset
	if offset >= 0 {
		return false
	}
	return v.Load(ctx, offset+1, false)
}

// Current jumps back to the current week
func (v *WeeklyView) Current(ctx context.Context) bool {
	return v.Load(ctx, 0, false)
}

// Reload fetches the week on screen again, bypassing the freshness window
func (v *WeeklyView) Reload(ctx context.Context) bool {
	return v.Load(ctx, v.State().Offset, true)
}

// State returns a copy of what is on screen
func (v *WeeklyView) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// RefreshKey is bumped whenever something was recorded that aggregates
// should reflect. Consumers refetch when it has grown since they last looked.
type RefreshKey struct {
	n atomic.Uint64
}

// Bump increments the key and returns the new value
func (k *RefreshKey) Bump() uint64 {
	return k.n.Add(1)
}

// Value returns the current key
func (k *RefreshKey) Value() uint64 {
	return k.n.Load()
}
