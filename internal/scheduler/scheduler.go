package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/retype/internal/events"
)

// Poller checks shared storage for changes made by other processes;
// *events.Watcher implements it
type Poller interface {
	Poll() bool
}

// Scheduler runs the periodic jobs of a session
type Scheduler struct {
	scheduler *gocron.Scheduler
	poller    Poller
	bus       events.Bus
	loc       *time.Location
	interval  time.Duration
	logger    *log.Logger
}

// New creates a scheduler whose daily jobs fire in loc
func New(loc *time.Location, poller Poller, bus events.Bus, interval time.Duration, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		poller:    poller,
		bus:       bus,
		loc:       loc,
		interval:  interval,
		logger:    logger,
	}
}

// Start registers the jobs and runs them in the background
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.poll); err != nil {
		return fmt.Errorf("failed to schedule storage poll: %w", err)
	}
	if _, err := s.scheduler.Every(1).Day().At("00:00").Do(s.Rollover); err != nil {
		return fmt.Errorf("failed to schedule day rollover: %w", err)
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled jobs
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) poll() {
	if s.poller.Poll() {
		s.logger.Printf("Stats changed in another process")
	}
}

// Rollover announces a new calendar day so today's counters get refetched
func (s *Scheduler) Rollover() {
	s.bus.Publish(events.Event{Kind: events.DayRolledOver, At: time.Now().In(s.loc)})
}
