package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/retype/internal/database"
)

// ErrAllShapesFailed is returned when every known table shape failed to answer
var ErrAllShapesFailed = errors.New("all remote table shapes failed")

// Request carries the parameters an adapter may need
type Request struct {
	UserID string
	Date   string // YYYY-MM-DD
	Since  string // timestamp, start of Date
	Start  string // YYYY-MM-DD
	End    string // YYYY-MM-DD
	From   string // timestamp, start of Start
	To     string // timestamp, end of End (exclusive)
	DateOf func(createdAt string) string
}

// Adapter reads one value from one historical shape of the remote tables
type Adapter[T any] struct {
	Table   string
	TryRead func(ctx context.Context, repo *database.StatisticsRepository, req Request) (T, error)
}

// Chain is an ordered list of adapters. The first one that answers without
// error wins; an empty answer is still an answer.
type Chain[T any] []Adapter[T]

// Read tries each adapter in order and reports which table answered
func (c Chain[T]) Read(ctx context.Context, repo *database.StatisticsRepository, req Request) (T, string, error) {
	var errs []error
	for _, a := range c {
		v, err := a.TryRead(ctx, repo, req)
		if err == nil {
			return v, a.Table, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", a.Table, err))
	}
	var zero T
	return zero, "", fmt.Errorf("%w: %w", ErrAllShapesFailed, errors.Join(errs...))
}

var todayChain = Chain[int]{
	{Table: database.TableWordLogs, TryRead: func(ctx context.Context, r *database.StatisticsRepository, req Request) (int, error) {
		return r.SumWordLogs(ctx, req.UserID, req.Since)
	}},
	{Table: database.TableUserDailyStats, TryRead: func(ctx context.Context, r *database.StatisticsRepository, req Request) (int, error) {
		return r.DailyWords(ctx, database.TableUserDailyStats, req.UserID, req.Date)
	}},
	{Table: database.TableDailyTotals, TryRead: func(ctx context.Context, r *database.StatisticsRepository, req Request) (int, error) {
		return r.DailyWords(ctx, database.TableDailyTotals, req.UserID, req.Date)
	}},
}

var totalChain = Chain[int]{
	{Table: database.TableWordLogs, TryRead: func(ctx context.Context, r *database.StatisticsRepository, req Request) (int, error) {
		return r.SumWordLogs(ctx, req.UserID, "")
	}},
	{Table: database.TableUserStats, TryRead: func(ctx context.Context, r *database.StatisticsRepository, req Request) (int, error) {
		return r.LifetimeWords(ctx, req.UserID)
	}},
	{Table: database.TableUserDailyStats, TryRead: func(ctx context.Context, r *database.StatisticsRepository, req Request) (int, error) {
		return r.SumDaily(ctx, database.TableUserDailyStats, req.UserID)
	}},
	{Table: database.TableDailyTotals, TryRead: func(ctx context.Context, r *database.StatisticsRepository, req Request) (int, error) {
		return r.SumDaily(ctx, database.TableDailyTotals, req.UserID)
	}},
}

var rangeChain = Chain[map[string]int]{
	{Table: database.TableUserDailyStats, TryRead: func(ctx context.Context, r *database.StatisticsRepository, req Request) (map[string]int, error) {
		return r.DailyRange(ctx, database.TableUserDailyStats, req.UserID, req.Start, req.End)
	}},
	{Table: database.TableDailyTotals, TryRead: func(ctx context.Context, r *database.StatisticsRepository, req Request) (map[string]int, error) {
		return r.DailyRange(ctx, database.TableDailyTotals, req.UserID, req.Start, req.End)
	}},
	{Table: database.TableWordLogs, TryRead: func(ctx context.Context, r *database.StatisticsRepository, req Request) (map[string]int, error) {
		return r.WordLogsByDate(ctx, req.UserID, req.From, req.To, req.DateOf)
	}},
}
