package gateway

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/example/retype/internal/cache"
	"github.com/example/retype/internal/database"
	"github.com/example/retype/internal/localstore"
	"github.com/example/retype/pkg/models"
)

type fixedID string

func (f fixedID) UserID() string { return string(f) }

var errMissing = errors.New("relation does not exist")

var quiet = log.New(io.Discard, "", 0)

func testNow() time.Time {
	return time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
}

func newGateway(store database.Store, user string) *Gateway {
	c := cache.New(localstore.NewMemory(),
		cache.WithClock(testNow),
		cache.WithLocation(time.UTC),
		cache.WithLogger(quiet))
	return New(store, c, fixedID(user), quiet)
}

func TestLogWordCountScenario(t *testing.T) {
	store := database.NewMemoryStore()
	g := newGateway(store, "u1")
	ctx := context.Background()

	// one wisdom completion, then one paragraph completion
	for _, n := range []int{8, 8} {
		if got := g.LogWordCount(ctx, n); got != Synced {
			t.Fatalf("LogWordCount(%d) = %v, want synced", n, got)
		}
	}
	if got := g.TodayWordCount(ctx); got != 16 {
		t.Errorf("today = %d, want 16", got)
	}
	if got := g.TotalWordCount(ctx); got != 16 {
		t.Errorf("total = %d, want 16", got)
	}

	// A second device sharing nothing but the remote store sees the same.
	other := newGateway(store, "u1")
	if got := other.TodayWordCount(ctx); got != 16 {
		t.Errorf("remote today = %d, want 16", got)
	}
	if got := other.TotalWordCount(ctx); got != 16 {
		t.Errorf("remote total = %d, want 16", got)
	}
}

func TestLogWordCountLocalOnly(t *testing.T) {
	store := database.NewMemoryStore()
	for _, table := range []string{database.TableWordLogs, database.TableSessions, database.TableUserDailyStats, database.TableUserStats} {
		store.FailTable(table, errMissing)
	}
	g := newGateway(store, "u1")
	ctx := context.Background()

	if got := g.LogWordCount(ctx, 12); got != LocalOnly {
		t.Fatalf("LogWordCount = %v, want local_only", got)
	}
	if got := g.TodayWordCount(ctx); got != 12 {
		t.Errorf("today = %d, want 12 from the local cache", got)
	}
}

func TestTwoPhaseCommitIsIndependent(t *testing.T) {
	store := database.NewMemoryStore()
	store.FailTable(database.TableWordLogs, errMissing)
	store.FailTable(database.TableSessions, errMissing)
	g := newGateway(store, "u1")

	stats := g.CommitLocal("u1", 5)
	if stats.TodayWords != 5 {
		t.Fatalf("CommitLocal today = %d, want 5", stats.TodayWords)
	}
	if err := g.CommitRemote(context.Background(), "u1", 5); err == nil {
		t.Fatal("CommitRemote succeeded with no log table")
	}
	if local, ok := g.Cache().LocalStats("u1"); !ok || local.TotalWords != 5 {
		t.Errorf("local stats = %+v, want total 5", local)
	}
}

func TestWordLogFallsBackToSessions(t *testing.T) {
	store := database.NewMemoryStore()
	store.FailTable(database.TableWordLogs, errMissing)
	g := newGateway(store, "u1")

	if got := g.LogWordCount(context.Background(), 9); got != Synced {
		t.Fatalf("LogWordCount = %v, want synced", got)
	}
	rows := store.Rows(database.TableSessions)
	if len(rows) != 1 || rows[0].Int("word_count") != 9 {
		t.Errorf("sessions rows = %v, want one row of 9 words", rows)
	}
}

func TestReadsFallBackAcrossShapes(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	_ = store.Insert(ctx, database.TableUserDailyStats, database.Row{"user_id": "u1", "date": "2026-10-19", "total_words": 21})
	_ = store.Insert(ctx, database.TableUserStats, database.Row{"user_id": "u1", "words": 400})
	_ = store.Insert(ctx, database.TableDailyTotals, database.Row{"user_id": "u1", "date": "2026-10-19", "total_words": 3})
	store.FailTable(database.TableWordLogs, errMissing)

	g := newGateway(store, "u1")
	if got := g.TodayWordCount(ctx); got != 21 {
		t.Errorf("today = %d, want 21 from user_daily_stats", got)
	}
	if got := g.TotalWordCount(ctx); got != 400 {
		t.Errorf("total = %d, want 400 from user_stats", got)
	}

	store.FailTable(database.TableUserDailyStats, errMissing)
	store.FailTable(database.TableUserStats, errMissing)
	if got := g.TodayWordCount(ctx); got != 3 {
		t.Errorf("today = %d, want 3 from daily_totals", got)
	}
	if got := g.TotalWordCount(ctx); got != 3 {
		t.Errorf("total = %d, want 3 from daily_totals", got)
	}

	store.FailTable(database.TableDailyTotals, errMissing)
	if got := g.TodayWordCount(ctx); got != 0 {
		t.Errorf("today = %d, want 0 when every shape fails", got)
	}
}

func TestMissingIdentity(t *testing.T) {
	g := newGateway(database.NewMemoryStore(), "")
	ctx := context.Background()

	if got := g.LogWordCount(ctx, 10); got != Skipped {
		t.Errorf("LogWordCount = %v, want skipped", got)
	}
	if got := g.TodayWordCount(ctx); got != 0 {
		t.Errorf("today = %d, want 0", got)
	}
	if err := g.SaveTypingSession(ctx, models.TypingSession{WordCount: 3}); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("SaveTypingSession error = %v, want ErrNoIdentity", err)
	}
	week, err := g.WeeklyRange(ctx, testNow().AddDate(0, 0, -6), testNow())
	if err != nil || len(week) != 7 {
		t.Errorf("WeeklyRange = %d entries, %v; want 7, nil", len(week), err)
	}
}

func TestUpdateContentProgress(t *testing.T) {
	store := database.NewMemoryStore()
	g := newGateway(store, "u1")
	ctx := context.Background()

	if got := g.UpdateContentProgress(ctx, "p1", models.ContentParagraph, true); got != Synced {
		t.Fatalf("UpdateContentProgress = %v, want synced", got)
	}
	if got := g.UpdateContentProgress(ctx, "p1", models.ContentParagraph, true); got != Synced {
		t.Fatalf("repeat UpdateContentProgress = %v, want synced", got)
	}
	if rows := store.Rows(database.TableUserProgress); len(rows) != 1 {
		t.Errorf("got %d progress rows, want 1", len(rows))
	}

	store.FailTable(database.TableUserProgress, errMissing)
	if got := g.UpdateContentProgress(ctx, "p2", models.ContentParagraph, true); got != LocalOnly {
		t.Fatalf("UpdateContentProgress = %v, want local_only", got)
	}
	if !g.Cache().IsCompleted(models.ContentParagraph, "p2") {
		t.Error("local flag missing after remote failure")
	}
}

func TestCompletedProgressStaysCompleted(t *testing.T) {
	store := database.NewMemoryStore()
	g := newGateway(store, "u1")
	ctx := context.Background()

	g.UpdateContentProgress(ctx, "p1", models.ContentParagraph, true)
	if got := g.UpdateContentProgress(ctx, "p1", models.ContentParagraph, false); got != Synced {
		t.Fatalf("UpdateContentProgress = %v, want synced", got)
	}

	records, err := g.RemoteProgress(ctx)
	if err != nil {
		t.Fatalf("RemoteProgress: %v", err)
	}
	if len(records) != 1 || !records[0].Completed || records[0].CompletedAt == "" {
		t.Errorf("remote records = %+v, want p1 still completed", records)
	}
	if entry := g.Cache().LocalProgress("u1")["paragraph:p1"]; !entry.Completed {
		t.Errorf("local entry = %+v, want completed", entry)
	}
	if !g.Cache().IsCompleted(models.ContentParagraph, "p1") {
		t.Error("local flag cleared")
	}
}

func TestWeeklyRangeIsDense(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	_ = store.Insert(ctx, database.TableUserDailyStats, database.Row{"user_id": "u1", "date": "2026-10-14", "total_words": 5})
	_ = store.Insert(ctx, database.TableUserDailyStats, database.Row{"user_id": "u1", "date": "2026-10-16", "total_words": 12})
	_ = store.Insert(ctx, database.TableUserDailyStats, database.Row{"user_id": "u1", "date": "2026-10-20", "total_words": 99})
	g := newGateway(store, "u1")

	start := time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)
	week, err := g.WeeklyRange(ctx, start, start.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("WeeklyRange: %v", err)
	}
	want := []int{0, 5, 0, 12, 0, 0, 0}
	if len(week) != len(want) {
		t.Fatalf("got %d days, want %d", len(week), len(want))
	}
	for i, d := range week {
		if d.Words != want[i] {
			t.Errorf("day %d (%s) = %d, want %d", i, d.Date, d.Words, want[i])
		}
	}
	if week[0].Date != "2026-10-13" || week[6].Date != "2026-10-19" {
		t.Errorf("range = %s..%s", week[0].Date, week[6].Date)
	}
}

func TestWeeklyRangeFromWordLogs(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	store.FailTable(database.TableUserDailyStats, errMissing)
	store.FailTable(database.TableDailyTotals, errMissing)
	_ = store.Insert(ctx, database.TableWordLogs, database.Row{"user_id": "u1", "word_count": 4, "created_at": "2026-10-15T08:00:00.000Z"})
	_ = store.Insert(ctx, database.TableWordLogs, database.Row{"user_id": "u1", "word_count": 6, "created_at": "2026-10-15T21:00:00.000Z"})
	_ = store.Insert(ctx, database.TableWordLogs, database.Row{"user_id": "u1", "word_count": 7, "created_at": "2026-10-20T00:00:00.000Z"})
	g := newGateway(store, "u1")

	start := time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)
	week, err := g.WeeklyRange(ctx, start, start.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("WeeklyRange: %v", err)
	}
	if week[2].Words != 10 {
		t.Errorf("2026-10-15 = %d, want 10", week[2].Words)
	}
	total := 0
	for _, d := range week {
		total += d.Words
	}
	if total != 10 {
		t.Errorf("week total = %d, want 10", total)
	}

	store.FailTable(database.TableWordLogs, errMissing)
	if _, err := g.WeeklyRange(ctx, start, start.AddDate(0, 0, 6)); !errors.Is(err, ErrAllShapesFailed) {
		t.Errorf("error = %v, want ErrAllShapesFailed", err)
	}
}

func TestDateRange(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	start := time.Date(2026, 10, 26, 0, 30, 0, 0, loc)
	dates := DateRange(start, start.AddDate(0, 0, 6))
	if len(dates) != 7 || dates[0] != "2026-10-26" || dates[6] != "2026-11-01" {
		t.Errorf("DateRange = %v", dates)
	}
	if got := DateRange(start, start.AddDate(0, 0, -1)); len(got) != 0 {
		t.Errorf("reversed range = %v, want empty", got)
	}
}
