// Package stats is the single entry point for word count aggregates. It
// merges the local cache with remote reads, coalesces concurrent requests and
// derives the weekly figures shown to the user.
package stats

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/retype/internal/gateway"
	"github.com/example/retype/pkg/models"
)

// Source is where aggregates are read from; *gateway.Gateway implements it
type Source interface {
	TodayWordCount(ctx context.Context) int
	TotalWordCount(ctx context.Context) int
	WeeklyRange(ctx context.Context, start, end time.Time) ([]models.DayCount, error)
}

// LocalDays exposes per-day cached counts and the session clock;
// *cache.Cache implements it
type LocalDays interface {
	DailyWords(userID, date string) int
	Now() time.Time
}

// Config tunes request coalescing
type Config struct {
	// FreshnessWindow is how long a fetched value is served without refetching
	FreshnessWindow time.Duration
	// Cooldown keeps serving the last result right after a fetch completes
	Cooldown time.Duration
}

// DefaultConfig returns the timings used when none are configured
func DefaultConfig() Config {
	return Config{FreshnessWindow: 5 * time.Second, Cooldown: 300 * time.Millisecond}
}

// WeeklyError reports that a week could not be loaded from anywhere
type WeeklyError struct {
	Offset int
	Err    error
}

func (e *WeeklyError) Error() string {
	return fmt.Sprintf("failed to load week %d: %v", e.Offset, e.Err)
}

func (e *WeeklyError) Unwrap() error {
	return e.Err
}

// Snapshot holds the headline counters
type Snapshot struct {
	Today int `json:"today"`
	Total int `json:"total"`
}

// Week is one Monday-first week with its derived figures
type Week struct {
	Offset            int               `json:"offset"`
	Start             string            `json:"start"`
	End               string            `json:"end"`
	Days              []models.DayCount `json:"days"`
	Scores            []int             `json:"scores"`
	Total             int               `json:"total"`
	MostProductiveDay int               `json:"most_productive_day"`
	Streak            int               `json:"streak"`
	// LocalOnly is set when the remote store could not be read
	LocalOnly bool `json:"local_only"`
}

// Service serves today, total and weekly aggregates for one session
type Service struct {
	src    Source
	local  LocalDays
	ids    gateway.IdentitySource
	cfg    Config
	logger *log.Logger

	key  *RefreshKey
	seen atomic.Uint64

	today aggregate[int]
	total aggregate[int]

	weeksMu sync.Mutex
	weeks   map[int]*aggregate[Week]
}

// NewService creates a reconciliation service
func NewService(src Source, local LocalDays, ids gateway.IdentitySource, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		src:    src,
		local:  local,
		ids:    ids,
		cfg:    cfg,
		logger: logger,
		weeks:  make(map[int]*aggregate[Week]),
	}
}

// Follow makes every request after key grew refetch instead of serving
// cached values
func (s *Service) Follow(key *RefreshKey) {
	s.key = key
	s.seen.Store(key.Value())
}

// keyGrew reports whether the followed key grew since the last request. The
// first request to see the growth invalidates every aggregate.
func (s *Service) keyGrew() bool {
	if s.key == nil {
		return false
	}
	v := s.key.Value()
	for {
		seen := s.seen.Load()
		if v <= seen {
			return false
		}
		if s.seen.CompareAndSwap(seen, v) {
			s.Invalidate()
			return true
		}
	}
}

func (s *Service) policy() fetchPolicy {
	return fetchPolicy{now: s.local.Now, freshness: s.cfg.FreshnessWindow, cooldown: s.cfg.Cooldown}
}

// Today returns today's words. force skips the freshness window and cool-down.
func (s *Service) Today(ctx context.Context, force bool) int {
	force = s.keyGrew() || force
	v, err := s.today.get(ctx, force, s.policy(), func(ctx context.Context) (int, error) {
		return s.src.TodayWordCount(ctx), nil
	})
	if err != nil {
		s.logger.Printf("Error getting today's words: %v", err)
	}
	return v
}

// Total returns lifetime words
func (s *Service) Total(ctx context.Context, force bool) int {
	force = s.keyGrew() || force
	v, err := s.total.get(ctx, force, s.policy(), func(ctx context.Context) (int, error) {
		return s.src.TotalWordCount(ctx), nil
	})
	if err != nil {
		s.logger.Printf("Error getting total words: %v", err)
	}
	return v
}

// Snapshot fetches today and total together. Total is never reported below today.
func (s *Service) Snapshot(ctx context.Context, force bool) Snapshot {
	force = s.keyGrew() || force
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap.Today = s.Today(gctx, force)
		return nil
	})
	g.Go(func() error {
		snap.Total = s.Total(gctx, force)
		return nil
	})
	_ = g.Wait()
	if snap.Total < snap.Today {
		snap.Total = snap.Today
	}
	return snap
}

func (s *Service) week(offset int) *aggregate[Week] {
	s.weeksMu.Lock()
	defer s.weeksMu.Unlock()
	a, ok := s.weeks[offset]
	if !ok {
		a = &aggregate[Week]{}
		s.weeks[offset] = a
	}
	return a
}

// Weekly returns the week offset weeks from the current one. It returns a
// *WeeklyError only when neither the remote store nor the local cache has
// anything for the week.
func (s *Service) Weekly(ctx context.Context, offset int, force bool) (Week, error) {
	if offset > 0 {
		return Week{}, &WeeklyError{Offset: offset, Err: fmt.Errorf("week is in the future")}
	}
	force = s.keyGrew() || force
	return s.week(offset).get(ctx, force, s.policy(), func(ctx context.Context) (Week, error) {
		return s.fetchWeek(ctx, offset)
	})
}

func (s *Service) fetchWeek(ctx context.Context, offset int) (Week, error) {
	now := s.local.Now()
	start, end := WeekDates(offset, now)
	dates := gateway.DateRange(start, end)
	userID := s.ids.UserID()

	local := make([]models.DayCount, len(dates))
	hasLocal := false
	for i, d := range dates {
		local[i] = models.DayCount{Date: d}
		if userID != "" {
			local[i].Words = s.local.DailyWords(userID, d)
		}
		if local[i].Words > 0 {
			hasLocal = true
		}
	}

	days := local
	remote, err := s.src.WeeklyRange(ctx, start, end)
	switch {
	case err == nil:
		days = mergeDays(remote, local)
	case hasLocal:
		s.logger.Printf("Error loading week %d, showing local counts: %v", offset, err)
	default:
		return Week{}, &WeeklyError{Offset: offset, Err: err}
	}

	week := Week{
		Offset:            offset,
		Start:             dates[0],
		End:               dates[len(dates)-1],
		Days:              days,
		Scores:            ProductivityScores(days),
		MostProductiveDay: MostProductiveDay(days),
		LocalOnly:         err != nil,
	}
	for _, d := range days {
		week.Total += d.Words
	}
	week.Streak = Streak(week.Scores, StreakStart(offset, now))
	return week, nil
}

// mergeDays takes the larger of the remote and local count for each day
func mergeDays(remote, local []models.DayCount) []models.DayCount {
	byDate := make(map[string]int, len(local))
	for _, d := range local {
		byDate[d.Date] = d.Words
	}
	out := make([]models.DayCount, len(remote))
	for i, d := range remote {
		out[i] = d
		if l := byDate[d.Date]; l > d.Words {
			out[i].Words = l
		}
	}
	return out
}

// Invalidate makes the next request of every aggregate fetch again
func (s *Service) Invalidate() {
	s.today.invalidate()
	s.total.invalidate()
	s.weeksMu.Lock()
	defer s.weeksMu.Unlock()
	for _, a := range s.weeks {
		a.invalidate()
	}
}
