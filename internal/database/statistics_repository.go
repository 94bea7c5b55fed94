package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/retype/pkg/models"
)

// Tables that have held word count aggregates over time. word_logs is
// log-structured; the others keep one precomputed row per day or per user.
const (
	TableWordLogs       = "word_logs"
	TableUserDailyStats = "user_daily_stats"
	TableDailyTotals    = "daily_totals"
	TableUserStats      = "user_stats"
	TableSessions       = "sessions"
)

// StatisticsRepository handles word count aggregates
type StatisticsRepository struct {
	store Store
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(store Store) *StatisticsRepository {
	return &StatisticsRepository{store: store}
}

// InsertWordLog appends one word_logs entry
func (r *StatisticsRepository) InsertWordLog(ctx context.Context, log models.WordLog) error {
	return r.store.Insert(ctx, TableWordLogs, Row{
		"user_id":    log.UserID,
		"word_count": log.WordCount,
		"created_at": log.CreatedAt,
	})
}

// SumWordLogs adds up word_logs entries created at or after since.
// An empty since sums every entry of the user.
func (r *StatisticsRepository) SumWordLogs(ctx context.Context, userID, since string) (int, error) {
	filters := []Filter{Eq("user_id", userID)}
	if since != "" {
		filters = append(filters, Gte("created_at", since))
	}
	rows, err := r.store.Select(ctx, Query{
		Table:   TableWordLogs,
		Columns: []string{"word_count"},
		Filters: filters,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sum word logs: %w", err)
	}
	total := 0
	for _, row := range rows {
		total += int(row.Int("word_count"))
	}
	return total, nil
}

// WordLogsByDate groups word_logs entries between from and to (timestamps)
// by the calendar date key returns for each created_at value
func (r *StatisticsRepository) WordLogsByDate(ctx context.Context, userID, from, to string, key func(createdAt string) string) (map[string]int, error) {
	rows, err := r.store.Select(ctx, Query{
		Table:   TableWordLogs,
		Columns: []string{"word_count", "created_at"},
		Filters: []Filter{Eq("user_id", userID), Gte("created_at", from), {Column: "created_at", Op: OpLt, Value: to}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get word logs: %w", err)
	}
	byDate := make(map[string]int)
	for _, row := range rows {
		byDate[key(row.String("created_at"))] += int(row.Int("word_count"))
	}
	return byDate, nil
}

// DailyWords reads the total_words column of a per-day aggregate table.
// A missing row reads as 0.
func (r *StatisticsRepository) DailyWords(ctx context.Context, table, userID, date string) (int, error) {
	rows, err := r.store.Select(ctx, Query{
		Table:   table,
		Columns: []string{"total_words"},
		Filters: []Filter{Eq("user_id", userID), Eq("date", date)},
		Limit:   1,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get %s: %w", table, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return int(rows[0].Int("total_words")), nil
}

// DailyRange returns total_words per date for start <= date <= end
func (r *StatisticsRepository) DailyRange(ctx context.Context, table, userID, start, end string) (map[string]int, error) {
	rows, err := r.store.Select(ctx, Query{
		Table:   table,
		Columns: []string{"date", "total_words"},
		Filters: []Filter{Eq("user_id", userID), Gte("date", start), Lte("date", end)},
		OrderBy: "date",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s range: %w", table, err)
	}
	byDate := make(map[string]int, len(rows))
	for _, row := range rows {
		byDate[row.Date("date")] += int(row.Int("total_words"))
	}
	return byDate, nil
}

// SumDaily adds up every per-day row of the user in table
func (r *StatisticsRepository) SumDaily(ctx context.Context, table, userID string) (int, error) {
	rows, err := r.store.Select(ctx, Query{
		Table:   table,
		Columns: []string{"total_words"},
		Filters: []Filter{Eq("user_id", userID)},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sum %s: %w", table, err)
	}
	total := 0
	for _, row := range rows {
		total += int(row.Int("total_words"))
	}
	return total, nil
}

// LifetimeWords reads user_stats.words. A missing row reads as 0.
func (r *StatisticsRepository) LifetimeWords(ctx context.Context, userID string) (int, error) {
	rows, err := r.store.Select(ctx, Query{
		Table:   TableUserStats,
		Columns: []string{"words"},
		Filters: []Filter{Eq("user_id", userID)},
		Limit:   1,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get user stats: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return int(rows[0].Int("words")), nil
}

// IncrementDaily adds delta to the user's row for date, creating it when missing
func (r *StatisticsRepository) IncrementDaily(ctx context.Context, userID, date string, delta int) error {
	rows, err := r.store.Select(ctx, Query{
		Table:   TableUserDailyStats,
		Columns: []string{"id", "total_words"},
		Filters: []Filter{Eq("user_id", userID), Eq("date", date)},
		Limit:   1,
	})
	if err != nil {
		return fmt.Errorf("failed to get daily stats: %w", err)
	}
	if len(rows) == 0 {
		err = r.store.Insert(ctx, TableUserDailyStats, Row{"user_id": userID, "date": date, "total_words": delta})
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return fmt.Errorf("failed to create daily stats: %w", err)
		}
		// Someone else created the row first
		return r.IncrementDaily(ctx, userID, date, delta)
	}

	_, err = r.store.Update(ctx, TableUserDailyStats,
		Row{"total_words": int(rows[0].Int("total_words")) + delta},
		Eq("id", rows[0].Int("id")))
	if err != nil {
		return fmt.Errorf("failed to update daily stats: %w", err)
	}
	return nil
}

// IncrementLifetime adds delta to user_stats.words, creating the row when missing
func (r *StatisticsRepository) IncrementLifetime(ctx context.Context, userID string, delta int) error {
	current, err := r.store.Select(ctx, Query{
		Table:   TableUserStats,
		Columns: []string{"words"},
		Filters: []Filter{Eq("user_id", userID)},
		Limit:   1,
	})
	if err != nil {
		return fmt.Errorf("failed to get user stats: %w", err)
	}
	if len(current) == 0 {
		err = r.store.Insert(ctx, TableUserStats, Row{"user_id": userID, "words": delta})
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return fmt.Errorf("failed to create user stats: %w", err)
		}
		return r.IncrementLifetime(ctx, userID, delta)
	}

	_, err = r.store.Update(ctx, TableUserStats,
		Row{"words": int(current[0].Int("words")) + delta},
		Eq("user_id", userID))
	if err != nil {
		return fmt.Errorf("failed to update user stats: %w", err)
	}
	return nil
}

// SeedUser creates zeroed lifetime and daily rows for a new user.
// Rows that already exist are left alone.
func (r *StatisticsRepository) SeedUser(ctx context.Context, userID, date string) error {
	err := r.store.Insert(ctx, TableUserStats, Row{"user_id": userID, "words": 0})
	if err != nil && !errors.Is(err, ErrDuplicate) {
		return fmt.Errorf("failed to seed user stats: %w", err)
	}
	err = r.store.Insert(ctx, TableUserDailyStats, Row{"user_id": userID, "date": date, "total_words": 0})
	if err != nil && !errors.Is(err, ErrDuplicate) {
		return fmt.Errorf("failed to seed daily stats: %w", err)
	}
	return nil
}

// InsertSession stores a finished typing session
func (r *StatisticsRepository) InsertSession(ctx context.Context, s models.TypingSession) error {
	return r.store.Insert(ctx, TableSessions, Row{
		"user_id":            s.UserID,
		"content_set_id":     s.ContentSetID,
		"content_id":         s.ContentID,
		"original_text":      s.OriginalText,
		"typed_text":         s.TypedText,
		"word_count":         s.WordCount,
		"time_spent_seconds": s.TimeSpentSeconds,
		"timestamp":          s.Timestamp,
	})
}
