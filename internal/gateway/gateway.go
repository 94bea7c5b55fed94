// Package gateway reads and writes word count aggregates against the remote
// row store. Writes land in the local cache first; the remote side is best
// effort and tolerates older table shapes.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/retype/internal/cache"
	"github.com/example/retype/internal/database"
	"github.com/example/retype/pkg/models"
)

// ErrNoIdentity is returned by operations that cannot run without a user id
var ErrNoIdentity = errors.New("no user identity")

// SyncStatus tells how far a write got
type SyncStatus int

const (
	// Skipped means nothing was written
	Skipped SyncStatus = iota
	// LocalOnly means the local cache holds the write but the remote store does not
	LocalOnly
	// Synced means both the local cache and the remote store hold the write
	Synced
)

func (s SyncStatus) String() string {
	switch s {
	case LocalOnly:
		return "local_only"
	case Synced:
		return "synced"
	}
	return "skipped"
}

// MarshalText encodes the status by name
func (s SyncStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IdentitySource provides the current user id, or "" when none is established
type IdentitySource interface {
	UserID() string
}

// Gateway is the remote stats gateway of one session
type Gateway struct {
	stats    *database.StatisticsRepository
	progress *database.UserProgressRepository
	cache    *cache.Cache
	ids      IdentitySource
	logger   *log.Logger
}

// New creates a gateway over store
func New(store database.Store, c *cache.Cache, ids IdentitySource, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.Default()
	}
	return &Gateway{
		stats:    database.NewStatisticsRepository(store),
		progress: database.NewUserProgressRepository(store),
		cache:    c,
		ids:      ids,
		logger:   logger,
	}
}

// Cache returns the local cache the gateway writes through
func (g *Gateway) Cache() *cache.Cache {
	return g.cache
}

// LogWordCount records count words for the current user. The local commit
// always happens; the returned status tells whether the remote commit did too.
func (g *Gateway) LogWordCount(ctx context.Context, count int) SyncStatus {
	userID := g.ids.UserID()
	if count <= 0 || userID == "" {
		return Skipped
	}
	g.CommitLocal(userID, count)
	if err := g.CommitRemote(ctx, userID, count); err != nil {
		g.logger.Printf("Error syncing %d words for %s: %v", count, userID, err)
		return LocalOnly
	}
	return Synced
}

// CommitLocal is the first phase of a word count write. It cannot fail.
func (g *Gateway) CommitLocal(userID string, count int) cache.Stats {
	return g.cache.SaveStats(userID, count)
}

// CommitRemote is the second phase of a word count write: it appends a log
// entry and bumps the per-day and lifetime aggregates. It reports an error
// unless all of them were written.
func (g *Gateway) CommitRemote(ctx context.Context, userID string, count int) error {
	now := g.cache.Now()
	createdAt := database.Timestamp(now)

	var errs []error
	err := g.stats.InsertWordLog(ctx, models.WordLog{UserID: userID, WordCount: count, CreatedAt: createdAt})
	if err != nil {
		// Older deployments only have the sessions table
		errs = append(errs, err)
		if err := g.stats.InsertSession(ctx, models.TypingSession{UserID: userID, WordCount: count, Timestamp: createdAt}); err != nil {
			return fmt.Errorf("failed to append word log: %w", errors.Join(append(errs, err)...))
		}
		errs = nil
	}

	if err := g.stats.IncrementDaily(ctx, userID, now.Format(database.DateLayout), count); err != nil {
		errs = append(errs, err)
	}
	if err := g.stats.IncrementLifetime(ctx, userID, count); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TodayWordCount returns the current user's words for today. The local cache
// answers when it has a non-zero count; otherwise the remote shapes are tried
// in order. Any failure reads as 0.
func (g *Gateway) TodayWordCount(ctx context.Context) int {
	userID := g.ids.UserID()
	if userID == "" {
		return 0
	}
	if local, ok := g.cache.LocalStats(userID); ok && local.TodayWords > 0 {
		return local.TodayWords
	}

	now := g.cache.Now()
	req := Request{
		UserID: userID,
		Date:   now.Format(database.DateLayout),
		Since:  database.Timestamp(startOfDay(now)),
	}
	words, table, err := todayChain.Read(ctx, g.stats, req)
	if err != nil {
		g.logger.Printf("Error getting today's word count: %v", err)
		return 0
	}
	g.logFallback(table, todayChain)
	return words
}

// TotalWordCount returns the current user's lifetime words with the same
// local-first policy as TodayWordCount
func (g *Gateway) TotalWordCount(ctx context.Context) int {
	userID := g.ids.UserID()
	if userID == "" {
		return 0
	}
	if local, ok := g.cache.LocalStats(userID); ok && local.TotalWords > 0 {
		return local.TotalWords
	}

	words, table, err := totalChain.Read(ctx, g.stats, Request{UserID: userID})
	if err != nil {
		g.logger.Printf("Error getting total word count: %v", err)
		return 0
	}
	g.logFallback(table, totalChain)
	return words
}

func (g *Gateway) logFallback(table string, chain Chain[int]) {
	if len(chain) > 0 && table != chain[0].Table {
		g.logger.Printf("Read word count from fallback table %s", table)
	}
}

// UpdateContentProgress stores the completion state of a content item. The
// local write always happens; the remote write is best effort.
func (g *Gateway) UpdateContentProgress(ctx context.Context, contentID string, contentType models.ContentType, completed bool) SyncStatus {
	userID := g.ids.UserID()
	g.cache.SaveProgress(userID, contentType, contentID, completed)
	if userID == "" {
		return LocalOnly
	}

	record := &models.ProgressRecord{
		UserID:      userID,
		ContentID:   contentID,
		ContentType: contentType,
		Completed:   completed,
	}
	if completed {
		record.CompletedAt = database.Timestamp(g.cache.Now())
	}
	if err := g.progress.CreateOrUpdate(ctx, record); err != nil {
		g.logger.Printf("Error saving progress for %s %s: %v", contentType, contentID, err)
		return LocalOnly
	}
	return Synced
}

// RemoteProgress returns the current user's remote progress records
func (g *Gateway) RemoteProgress(ctx context.Context) ([]models.ProgressRecord, error) {
	userID := g.ids.UserID()
	if userID == "" {
		return nil, nil
	}
	return g.progress.ListForUser(ctx, userID)
}

// WeeklyRange returns one entry per calendar day from start to end
// inclusive, with days that have no remote data set to 0. It fails only when
// every remote shape failed.
func (g *Gateway) WeeklyRange(ctx context.Context, start, end time.Time) ([]models.DayCount, error) {
	dates := DateRange(start, end)
	if len(dates) == 0 {
		return nil, fmt.Errorf("invalid range %s..%s", start.Format(database.DateLayout), end.Format(database.DateLayout))
	}
	userID := g.ids.UserID()
	if userID == "" {
		return dense(dates, nil), nil
	}

	loc := g.cache.Location()
	first := startOfDay(start.In(loc))
	last := startOfDay(end.In(loc)).AddDate(0, 0, 1)
	req := Request{
		UserID: userID,
		Start:  dates[0],
		End:    dates[len(dates)-1],
		From:   database.Timestamp(first),
		To:     database.Timestamp(last),
		DateOf: func(createdAt string) string {
			t, err := time.Parse(database.TimestampLayout, createdAt)
			if err != nil {
				if len(createdAt) >= len(database.DateLayout) {
					return createdAt[:len(database.DateLayout)]
				}
				return createdAt
			}
			return t.In(loc).Format(database.DateLayout)
		},
	}
	byDate, _, err := rangeChain.Read(ctx, g.stats, req)
	if err != nil {
		return nil, err
	}
	return dense(dates, byDate), nil
}

// SaveTypingSession stores a finished typing session for the current user
func (g *Gateway) SaveTypingSession(ctx context.Context, s models.TypingSession) error {
	userID := g.ids.UserID()
	if userID == "" {
		return ErrNoIdentity
	}
	s.UserID = userID
	if s.Timestamp == "" {
		s.Timestamp = database.Timestamp(g.cache.Now())
	}
	if err := g.stats.InsertSession(ctx, s); err != nil {
		return fmt.Errorf("failed to save typing session: %w", err)
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateRange lists the calendar dates from start to end inclusive
func DateRange(start, end time.Time) []string {
	first := startOfDay(start)
	last := startOfDay(end.In(start.Location()))
	var dates []string
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(database.DateLayout))
	}
	return dates
}

func dense(dates []string, byDate map[string]int) []models.DayCount {
	out := make([]models.DayCount, len(dates))
	for i, d := range dates {
		out[i] = models.DayCount{Date: d, Words: byDate[d]}
	}
	return out
}
