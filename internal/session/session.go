// Package session wires the stores, caches and services used by one running
// instance of retype.
package session

import (
	"context"
	"errors"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/example/retype/internal/cache"
	"github.com/example/retype/internal/config"
	"github.com/example/retype/internal/content"
	"github.com/example/retype/internal/database"
	"github.com/example/retype/internal/events"
	"github.com/example/retype/internal/gateway"
	"github.com/example/retype/internal/identity"
	"github.com/example/retype/internal/localstore"
	"github.com/example/retype/internal/scheduler"
	"github.com/example/retype/internal/stats"
	"github.com/example/retype/internal/typing"
	"github.com/example/retype/pkg/models"
)

// Session owns every component of a running instance
type Session struct {
	Config    *config.Config
	Store     database.Store
	Local     localstore.Storage
	Bus       *events.LocalBus
	Cache     *cache.Cache
	Identity  *identity.Resolver
	Gateway   *gateway.Gateway
	Stats     *stats.Service
	Key       *stats.RefreshKey
	Dashboard *stats.Dashboard
	Content   *content.Service
	Tracker   *typing.Tracker

	db        *sqlx.DB
	local     *localstore.SQLite
	watcher   *events.Watcher
	scheduler *scheduler.Scheduler
	cancel    context.CancelFunc
	logger    *log.Logger
}

// Open connects the remote and local stores and builds the services
func Open(cfg *config.Config, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.Default()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s := &Session{Config: cfg, logger: logger}
	if cfg.RemoteDriver == config.DriverMemory {
		s.Store = database.NewMemoryStore()
	} else {
		s.db, err = database.Connect(cfg.RemoteDriver, cfg.RemoteDSN)
		if err != nil {
			return nil, err
		}
		s.Store = database.NewSQLStore(s.db)
	}

	if cfg.CachePath == "" || cfg.CachePath == ":memory:" {
		s.Local = localstore.NewMemory()
	} else {
		s.local, err = localstore.OpenSQLite(cfg.CachePath)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Local = s.local
	}

	s.Bus = events.NewLocalBus()
	s.Cache = cache.New(s.Local,
		cache.WithLocation(loc),
		cache.WithBus(s.Bus),
		cache.WithLogger(logger))
	s.Identity = identity.NewResolver(s.Local, s.Store, s.Cache, identity.WithLogger(logger))
	s.Gateway = gateway.New(s.Store, s.Cache, s.Identity, logger)
	s.Stats = stats.NewService(s.Gateway, s.Cache, s.Identity, stats.Config{
		FreshnessWindow: cfg.FreshnessWindow,
		Cooldown:        cfg.Cooldown,
	}, logger)
	s.Key = &stats.RefreshKey{}
	s.Stats.Follow(s.Key)
	s.Dashboard = stats.NewDashboard(s.Stats, s.Key)
	s.Content = content.NewService(s.Store, s.Gateway, s.Identity, s.Bus, s.Key, content.Credits{
		Paragraph: cfg.ParagraphCredit,
		Wisdom:    cfg.WisdomCredit,
	}, logger)
	s.Identity.OnChange(func(id string) {
		logger.Printf("Switched to user %s", id)
		s.Content.Reset()
		s.Key.Bump()
	})
	s.Tracker = typing.NewTracker(s.Cache.Now)
	s.watcher = events.NewWatcher(s.Local, cache.LastUpdatedKey, s.Bus, logger)
	s.scheduler = scheduler.New(loc, s.watcher, s.Bus, cfg.PollInterval, logger)
	return s, nil
}

// Start seeds the user's remote rows and starts the background jobs. A
// failed seed is logged; the session works from the local cache meanwhile.
func (s *Session) Start(ctx context.Context) error {
	if err := s.Identity.EnsureInitialized(ctx); err != nil {
		s.logger.Printf("Error initializing user: %v", err)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	go s.Dashboard.Listen(ctx, s.Bus)
	return s.scheduler.Start()
}

// RecordTyping stores a finished typing session. Words are credited by
// completions, not here, so a session never counts twice.
func (s *Session) RecordTyping(ctx context.Context, contentSetID, contentID, original, typed string) (models.TypingSession, error) {
	ts := models.TypingSession{
		UserID:           s.Identity.UserID(),
		ContentSetID:     contentSetID,
		ContentID:        contentID,
		OriginalText:     original,
		TypedText:        typed,
		WordCount:        typing.CountWords(typed),
		TimeSpentSeconds: s.Tracker.Seconds(),
		Timestamp:        database.Timestamp(s.Cache.Now()),
	}
	if err := s.Gateway.SaveTypingSession(ctx, ts); err != nil {
		return ts, err
	}
	s.Tracker.Reset()
	return ts, nil
}

// Close stops background work and closes both stores
func (s *Session) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.watcher != nil {
		s.watcher.Close()
	}

	var errs []error
	if s.local != nil {
		errs = append(errs, s.local.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
