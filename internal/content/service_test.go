package content

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/example/retype/internal/cache"
	"github.com/example/retype/internal/database"
	"github.com/example/retype/internal/events"
	"github.com/example/retype/internal/gateway"
	"github.com/example/retype/internal/localstore"
	"github.com/example/retype/internal/stats"
	"github.com/example/retype/pkg/models"
)

type fixedID string

func (f fixedID) UserID() string { return string(f) }

var quiet = log.New(io.Discard, "", 0)

type fixture struct {
	store *database.MemoryStore
	gw    *gateway.Gateway
	bus   *events.LocalBus
	key   *stats.RefreshKey
	svc   *Service
}

func newFixture(t *testing.T, user string) *fixture {
	t.Helper()
	f := &fixture{
		store: database.NewMemoryStore(),
		bus:   events.NewLocalBus(),
		key:   &stats.RefreshKey{},
	}
	c := cache.New(localstore.NewMemory(),
		cache.WithClock(func() time.Time { return time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC) }),
		cache.WithLocation(time.UTC),
		cache.WithLogger(quiet))
	f.gw = gateway.New(f.store, c, fixedID(user), quiet)
	f.svc = NewService(f.store, f.gw, fixedID(user), f.bus, f.key, Credits{Paragraph: 8, Wisdom: 8}, quiet)
	return f
}

func seed(t *testing.T, store database.Store) {
	t.Helper()
	ctx := context.Background()
	repo := database.NewContentRepository(store)
	if _, err := repo.SaveSet(ctx, &models.ContentSet{ID: "set-1", Title: "Oras"}, "2026-10-01T00:00:00.000Z"); err != nil {
		t.Fatalf("SaveSet: %v", err)
	}
	for i, id := range []string{"a", "b"} {
		p := &models.Paragraph{ID: id, ContentSetID: "set-1", OrderIndex: 2 - i, Content: "Labas rytas " + id}
		if err := repo.SaveParagraph(ctx, p); err != nil {
			t.Fatalf("SaveParagraph: %v", err)
		}
	}
	w := &models.WisdomSection{ID: "w", ContentSetID: "set-1", Type: "quote", Title: "Išmintis", Content: "Oras yra laisvė"}
	if err := repo.SaveWisdomSection(ctx, w); err != nil {
		t.Fatalf("SaveWisdomSection: %v", err)
	}
}

func TestCurrentFetchesSetWithProgress(t *testing.T) {
	f := newFixture(t, "u1")
	seed(t, f.store)
	ctx := context.Background()

	progress := database.NewUserProgressRepository(f.store)
	if err := progress.CreateOrUpdate(ctx, &models.ProgressRecord{UserID: "u1", ContentID: "a", ContentType: models.ContentParagraph, Completed: true}); err != nil {
		t.Fatalf("CreateOrUpdate: %v", err)
	}

	set := f.svc.Current(ctx)
	if set.ID != "set-1" || len(set.Paragraphs) != 2 || len(set.Wisdom) != 1 {
		t.Fatalf("got %+v", set)
	}
	if set.Paragraphs[0].ID != "b" {
		t.Errorf("paragraphs not ordered by order_index: %+v", set.Paragraphs)
	}
	if !set.Paragraphs[1].Completed || set.Paragraphs[0].Completed {
		t.Errorf("remote progress not applied: %+v", set.Paragraphs)
	}
}

func TestCurrentFallsBack(t *testing.T) {
	f := newFixture(t, "u1")
	ctx := context.Background()

	if set := f.svc.Current(ctx); set.ID != DefaultSetID || len(set.Paragraphs) != 7 {
		t.Fatalf("empty store served %q with %d paragraphs", set.ID, len(set.Paragraphs))
	}

	seed(t, f.store)
	if set := f.svc.Current(ctx); set.ID != "set-1" {
		t.Fatalf("got %q, want set-1", set.ID)
	}
	f.store.FailTable(database.TableContentSets, errors.New("offline"))
	if set := f.svc.Current(ctx); set.ID != "set-1" {
		t.Errorf("offline fetch served %q, want last fetched set-1", set.ID)
	}
}

func TestCompleteCreditsOnce(t *testing.T) {
	f := newFixture(t, "u1")
	seed(t, f.store)
	ctx := context.Background()
	f.svc.Current(ctx)

	res, err := f.svc.CompleteWisdom(ctx, "w")
	if err != nil {
		t.Fatalf("CompleteWisdom: %v", err)
	}
	if res.Credited != 8 || res.Words != gateway.Synced || res.Progress != gateway.Synced {
		t.Errorf("first completion = %+v", res)
	}
	if _, err := f.svc.CompleteParagraph(ctx, "a"); err != nil {
		t.Fatalf("CompleteParagraph: %v", err)
	}
	res, err = f.svc.CompleteParagraph(ctx, "a")
	if err != nil {
		t.Fatalf("second CompleteParagraph: %v", err)
	}
	if res.Credited != 0 || res.Words != gateway.Skipped {
		t.Errorf("repeated completion = %+v, want no credit", res)
	}

	if got := f.gw.TodayWordCount(ctx); got != 16 {
		t.Errorf("today = %d, want 16", got)
	}
	if got := f.gw.TotalWordCount(ctx); got != 16 {
		t.Errorf("total = %d, want 16", got)
	}
	if got := f.key.Value(); got != 2 {
		t.Errorf("refresh key = %d, want 2", got)
	}
}

func TestConcurrentCompletionsCreditOnce(t *testing.T) {
	f := newFixture(t, "u1")
	seed(t, f.store)
	ctx := context.Background()
	f.svc.Current(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.svc.CompleteParagraph(ctx, "b")
		}()
	}
	wg.Wait()
	if got := f.gw.TotalWordCount(ctx); got != 8 {
		t.Errorf("total = %d, want a single credit of 8", got)
	}
}

func TestCompletionSurvivesRemoteFailure(t *testing.T) {
	f := newFixture(t, "u1")
	seed(t, f.store)
	ctx := context.Background()
	f.svc.Current(ctx)
	f.store.FailTable(database.TableUserProgress, errors.New("offline"))

	res, err := f.svc.CompleteParagraph(ctx, "a")
	if err != nil {
		t.Fatalf("CompleteParagraph: %v", err)
	}
	if res.Progress != gateway.LocalOnly {
		t.Errorf("progress sync = %v, want local only", res.Progress)
	}

	// the local flag wins over the remote record on the next fetch
	set := f.svc.Current(ctx)
	for _, p := range set.Paragraphs {
		if p.ID == "a" && !p.Completed {
			t.Error("local completion lost after refetch")
		}
	}
}

func TestCompleteUnknownItem(t *testing.T) {
	f := newFixture(t, "u1")
	seed(t, f.store)
	ctx := context.Background()

	if _, err := f.svc.CompleteParagraph(ctx, "zzz"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("error = %v, want ErrUnknownItem", err)
	}
	if _, err := f.svc.Complete(ctx, "video", "a"); err == nil {
		t.Error("expected error for invalid content type")
	}
}

func TestCompletionPublishesEvent(t *testing.T) {
	f := newFixture(t, "u1")
	seed(t, f.store)
	ctx := context.Background()
	ch, cancel := f.bus.Subscribe(8)
	defer cancel()

	if _, err := f.svc.CompleteParagraph(ctx, "a"); err != nil {
		t.Fatalf("CompleteParagraph: %v", err)
	}
	timeout := time.After(time.Second)
	for {
		select {
		case e := <-ch:
			if e.Kind == events.ContentCompleted {
				return
			}
		case <-timeout:
			t.Fatal("no ContentCompleted event")
		}
	}
}

func TestResetClearsProfileFlags(t *testing.T) {
	f := newFixture(t, "u1")
	seed(t, f.store)
	ctx := context.Background()

	if _, err := f.svc.CompleteParagraph(ctx, "a"); err != nil {
		t.Fatalf("CompleteParagraph: %v", err)
	}
	f.svc.Reset()

	if f.gw.Cache().IsCompleted(models.ContentParagraph, "a") {
		t.Error("completion flag kept after reset")
	}
	if p := f.svc.Progress(); p.State != NotStarted || p.Total != 0 {
		t.Errorf("progress after reset = %+v", p)
	}

	set := f.svc.Current(ctx)
	if !set.Paragraphs[0].Completed && !set.Paragraphs[1].Completed {
		t.Error("user progress lost after reset")
	}
}

func TestProgressSummary(t *testing.T) {
	f := newFixture(t, "u1")
	seed(t, f.store)
	ctx := context.Background()
	f.svc.Current(ctx)

	if p := f.svc.Progress(); p.State != NotStarted || p.Total != 2 {
		t.Errorf("initial progress = %+v", p)
	}
	f.svc.CompleteParagraph(ctx, "a")
	if p := f.svc.Progress(); p.State != InProgress || p.Percentage != 50 {
		t.Errorf("progress = %+v, want in progress 50%%", p)
	}
	f.svc.CompleteParagraph(ctx, "b")
	if f.svc.IsSetCompleted() {
		t.Error("set completed before the wisdom section")
	}
	f.svc.CompleteWisdom(ctx, "w")
	if !f.svc.IsSetCompleted() {
		t.Error("set not completed")
	}
	if p := f.svc.Progress(); p.State != Completed || p.Percentage != 100 {
		t.Errorf("final progress = %+v", p)
	}
}

func TestStateAndPercentage(t *testing.T) {
	if State(0, 7) != NotStarted || State(3, 7) != InProgress || State(7, 7) != Completed {
		t.Error("unexpected progress states")
	}
	if Percentage(1, 3) != 33 || Percentage(2, 3) != 67 || Percentage(0, 0) != 0 {
		t.Error("unexpected percentages")
	}
}
