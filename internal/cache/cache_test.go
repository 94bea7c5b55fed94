package cache

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/example/retype/internal/events"
	"github.com/example/retype/internal/localstore"
	"github.com/example/retype/pkg/models"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newTestCache(t *testing.T, storage localstore.Storage, clk *clock, opts ...Option) *Cache {
	t.Helper()
	opts = append([]Option{
		WithClock(clk.Now),
		WithLocation(time.UTC),
		WithLogger(log.New(io.Discard, "", 0)),
	}, opts...)
	return New(storage, opts...)
}

func TestSaveStatsAccumulates(t *testing.T) {
	clk := &clock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	c := newTestCache(t, localstore.NewMemory(), clk)

	if _, ok := c.LocalStats("u1"); ok {
		t.Fatal("empty cache returned stats")
	}

	c.SaveStats("u1", 8)
	c.SaveStats("u1", 8)

	stats, ok := c.LocalStats("u1")
	if !ok {
		t.Fatal("no stats after saving")
	}
	if stats.TodayWords != 16 || stats.TotalWords != 16 {
		t.Errorf("got today %d total %d, want 16 and 16", stats.TodayWords, stats.TotalWords)
	}
	if got := c.DailyWords("u1", "2026-10-19"); got != 16 {
		t.Errorf("daily words = %d, want 16", got)
	}
}

func TestSaveStatsIgnoresNonPositive(t *testing.T) {
	clk := &clock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	storage := localstore.NewMemory()
	c := newTestCache(t, storage, clk)

	c.SaveStats("u1", 0)
	c.SaveStats("u1", -4)
	c.SaveStats("", 5)

	if _, ok := c.LocalStats("u1"); ok {
		t.Error("non-positive counts created a record")
	}
	if _, ok, _ := storage.Get(LastUpdatedKey); ok {
		t.Error("non-positive counts touched the last-updated marker")
	}
}

func TestRolloverResetsTodayOnce(t *testing.T) {
	clk := &clock{t: time.Date(2026, 10, 18, 22, 0, 0, 0, time.UTC)}
	c := newTestCache(t, localstore.NewMemory(), clk)
	c.SaveStats("u1", 30)

	clk.t = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	stats, ok := c.LocalStats("u1")
	if !ok {
		t.Fatal("stats lost on rollover")
	}
	if stats.TodayWords != 0 || stats.TotalWords != 30 {
		t.Fatalf("after rollover got today %d total %d, want 0 and 30", stats.TodayWords, stats.TotalWords)
	}
	if stats.LastUpdated != "2026-10-19" {
		t.Errorf("lastUpdated = %s, want 2026-10-19", stats.LastUpdated)
	}

	c.SaveStats("u1", 5)
	stats, _ = c.LocalStats("u1")
	if stats.TodayWords != 5 || stats.TotalWords != 35 {
		t.Errorf("got today %d total %d, want 5 and 35", stats.TodayWords, stats.TotalWords)
	}
}

func TestRolloverOnWrite(t *testing.T) {
	clk := &clock{t: time.Date(2026, 10, 18, 22, 0, 0, 0, time.UTC)}
	c := newTestCache(t, localstore.NewMemory(), clk)
	c.SaveStats("u1", 12)

	clk.t = clk.t.Add(4 * time.Hour)
	stats := c.SaveStats("u1", 3)
	if stats.TodayWords != 3 || stats.TotalWords != 15 {
		t.Errorf("got today %d total %d, want 3 and 15", stats.TodayWords, stats.TotalWords)
	}
	if got := c.DailyWords("u1", "2026-10-18"); got != 12 {
		t.Errorf("yesterday's words = %d, want 12", got)
	}
}

func TestSaveStatsPublishes(t *testing.T) {
	clk := &clock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	bus := events.NewLocalBus()
	sub, cancel := bus.Subscribe(4)
	defer cancel()
	storage := localstore.NewMemory()
	c := newTestCache(t, storage, clk, WithBus(bus))

	c.SaveStats("u1", 4)

	select {
	case e := <-sub:
		stamp, _, _ := storage.Get(LastUpdatedKey)
		if e.Kind != events.StatsUpdated || e.UserID != "u1" || e.Stamp != stamp {
			t.Errorf("got %+v, want StatsUpdated for u1 with stamp %s", e, stamp)
		}
	default:
		t.Fatal("no event published")
	}
}

type brokenStorage struct{}

func (brokenStorage) Get(string) (string, bool, error) { return "", false, errors.New("quota exceeded") }
func (brokenStorage) Set(string, string) error         { return errors.New("quota exceeded") }
func (brokenStorage) Remove(string) error              { return errors.New("quota exceeded") }

func TestBrokenStorageDegradesToZero(t *testing.T) {
	clk := &clock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	c := newTestCache(t, brokenStorage{}, clk)

	stats := c.SaveStats("u1", 10)
	if stats.TodayWords != 10 {
		t.Errorf("SaveStats returned %d, want 10", stats.TodayWords)
	}
	if _, ok := c.LocalStats("u1"); ok {
		t.Error("broken storage returned stats")
	}
	if c.IsCompleted(models.ContentParagraph, "p1") {
		t.Error("broken storage reported a completion")
	}
}

func TestCorruptRecordIsIgnored(t *testing.T) {
	clk := &clock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	storage := localstore.NewMemory()
	_ = storage.Set("u1_word_stats", "{not json")
	c := newTestCache(t, storage, clk)

	if _, ok := c.LocalStats("u1"); ok {
		t.Fatal("corrupt record was returned")
	}
	stats := c.SaveStats("u1", 2)
	if stats.TotalWords != 2 {
		t.Errorf("total = %d, want 2", stats.TotalWords)
	}
}

func TestCompletionFlags(t *testing.T) {
	clk := &clock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	storage := localstore.NewMemory()
	c := newTestCache(t, storage, clk)

	c.SaveProgress("u1", models.ContentWisdom, "w1", true)
	if !c.IsCompleted(models.ContentWisdom, "w1") {
		t.Error("wisdom w1 not completed")
	}
	if c.IsCompleted(models.ContentParagraph, "w1") {
		t.Error("flag leaked across content types")
	}
	if v, _, _ := storage.Get("wisdom_w1_completed"); v != "true" {
		t.Errorf("flag value = %q, want true", v)
	}
	entry := c.LocalProgress("u1")["wisdom:w1"]
	if !entry.Completed || entry.CompletedAt == "" {
		t.Errorf("progress entry = %+v", entry)
	}
}
