package events

import (
	"testing"

	"github.com/example/retype/internal/localstore"
)

func TestLocalBusFanOut(t *testing.T) {
	bus := NewLocalBus()
	a, cancelA := bus.Subscribe(1)
	b, cancelB := bus.Subscribe(1)
	defer cancelB()

	bus.Publish(Event{Kind: StatsUpdated, UserID: "u1"})

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case e := <-ch:
			if e.Kind != StatsUpdated || e.UserID != "u1" {
				t.Errorf("%s got %+v", name, e)
			}
		default:
			t.Errorf("%s received nothing", name)
		}
	}

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Error("channel still open after cancel")
	}
	// Publishing after a subscriber left must not panic.
	bus.Publish(Event{Kind: StatsUpdated})
}

func TestLocalBusDropsWhenFull(t *testing.T) {
	bus := NewLocalBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(Event{Kind: StatsUpdated})
	bus.Publish(Event{Kind: ContentCompleted})

	if e := <-ch; e.Kind != StatsUpdated {
		t.Fatalf("got %s, want %s", e.Kind, StatsUpdated)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected second event %+v", e)
	default:
	}
}

func TestWatcherReportsExternalWritesOnly(t *testing.T) {
	storage := localstore.NewMemory()
	_ = storage.Set("stats_last_updated", "100")
	bus := NewLocalBus()
	w := NewWatcher(storage, "stats_last_updated", bus, nil)
	defer w.Close()

	if w.Poll() {
		t.Fatal("Poll reported the initial value as a change")
	}

	// A write made by this process is announced on the bus with its stamp.
	_ = storage.Set("stats_last_updated", "200")
	bus.Publish(Event{Kind: StatsUpdated, Stamp: "200"})
	if w.Poll() {
		t.Fatal("Poll reported a local write as external")
	}

	// Another process writes the marker without touching our bus.
	sub, cancel := bus.Subscribe(4)
	defer cancel()
	_ = storage.Set("stats_last_updated", "300")
	if !w.Poll() {
		t.Fatal("Poll missed an external write")
	}
	e := <-sub
	if !e.External || e.Stamp != "300" {
		t.Errorf("got %+v, want external event with stamp 300", e)
	}
	if w.Poll() {
		t.Error("Poll reported the same external write twice")
	}
}
