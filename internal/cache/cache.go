// Package cache keeps word counts and completion flags in the profile
// storage so that the current day's numbers survive restarts and remote
// outages. Storage failures are logged and read as "nothing cached".
package cache

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/example/retype/internal/events"
	"github.com/example/retype/internal/localstore"
	"github.com/example/retype/pkg/models"
)

// LastUpdatedKey is rewritten after every stats change so that other
// processes sharing the profile notice it
const LastUpdatedKey = "stats_last_updated"

const dateLayout = "2006-01-02"

// Stats is the cached word count record of one user
type Stats struct {
	TotalWords  int    `json:"totalWords"`
	TodayWords  int    `json:"todayWords"`
	LastUpdated string `json:"lastUpdated"`
}

// Cache is the local side of the stats store
type Cache struct {
	storage localstore.Storage
	bus     events.Bus
	now     func() time.Time
	loc     *time.Location
	logger  *log.Logger

	// serializes read-modify-write cycles of this process
	mu sync.Mutex
}

// Option configures a Cache
type Option func(*Cache)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLocation sets the zone calendar days are computed in
func WithLocation(loc *time.Location) Option {
	return func(c *Cache) { c.loc = loc }
}

// WithBus publishes a StatsUpdated event after each stats write
func WithBus(bus events.Bus) Option {
	return func(c *Cache) { c.bus = bus }
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// New creates a cache on top of storage
func New(storage localstore.Storage, opts ...Option) *Cache {
	c := &Cache{
		storage: storage,
		now:     time.Now,
		loc:     time.Local,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the current time in the cache's zone
func (c *Cache) Now() time.Time {
	return c.now().In(c.loc)
}

// Location returns the zone calendar days are computed in
func (c *Cache) Location() *time.Location {
	return c.loc
}

// Today returns the current calendar date as YYYY-MM-DD
func (c *Cache) Today() string {
	return c.Now().Format(dateLayout)
}

func statsKey(userID string) string {
	return userID + "_word_stats"
}

func dailyKey(userID, date string) string {
	return userID + "_words_" + date
}

// LocalStats returns the cached record of userID and false when there is
// none. A record last written on an earlier day has its today counter reset,
// and the reset is persisted before returning.
func (c *Cache) LocalStats(userID string) (*Stats, bool) {
	if userID == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.loadLocked(userID)
	if !ok {
		return nil, false
	}
	today := c.Today()
	if stats.LastUpdated != today {
		stats.TodayWords = 0
		stats.LastUpdated = today
		c.storeLocked(userID, stats)
	}
	return &stats, true
}

// SaveStats adds words to both counters of userID, resetting the today
// counter first if the record is from an earlier day. Non-positive counts
// are ignored. It returns the record as written.
func (c *Cache) SaveStats(userID string, words int) Stats {
	if userID == "" || words <= 0 {
		return Stats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	today := c.Today()
	stats, _ := c.loadLocked(userID)
	if stats.LastUpdated != today {
		stats.TodayWords = 0
	}
	stats.TotalWords += words
	stats.TodayWords += words
	stats.LastUpdated = today
	c.storeLocked(userID, stats)

	day := c.dailyLocked(userID, today) + words
	c.set(dailyKey(userID, today), strconv.Itoa(day))

	stamp := strconv.FormatInt(c.now().UnixNano(), 10)
	c.set(LastUpdatedKey, stamp)
	if c.bus != nil {
		c.bus.Publish(events.Event{Kind: events.StatsUpdated, UserID: userID, At: c.now(), Stamp: stamp})
	}
	return stats
}

// DailyWords returns the words cached for userID on date (YYYY-MM-DD)
func (c *Cache) DailyWords(userID, date string) int {
	if userID == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dailyLocked(userID, date)
}

func (c *Cache) dailyLocked(userID, date string) int {
	v, ok := c.get(dailyKey(userID, date))
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.logger.Printf("Error parsing cached words for %s: %v", date, err)
		return 0
	}
	return n
}

func (c *Cache) loadLocked(userID string) (Stats, bool) {
	var stats Stats
	raw, ok := c.get(statsKey(userID))
	if !ok {
		return stats, false
	}
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		c.logger.Printf("Error parsing cached stats for %s: %v", userID, err)
		return Stats{}, false
	}
	return stats, true
}

func (c *Cache) storeLocked(userID string, stats Stats) {
	data, err := json.Marshal(stats)
	if err != nil {
		c.logger.Printf("Error encoding cached stats for %s: %v", userID, err)
		return
	}
	c.set(statsKey(userID), string(data))
}

func flagKey(contentType models.ContentType, id string) string {
	return string(contentType) + "_" + id + "_completed"
}

// MarkCompleted sets the completion flag of a content item
func (c *Cache) MarkCompleted(contentType models.ContentType, id string) {
	c.set(flagKey(contentType, id), "true")
}

// ClearCompleted removes the completion flag of a content item
func (c *Cache) ClearCompleted(contentType models.ContentType, id string) {
	if err := c.storage.Remove(flagKey(contentType, id)); err != nil {
		c.logger.Printf("Error removing %s from local storage: %v", flagKey(contentType, id), err)
	}
}

// IsCompleted reads the completion flag of a content item
func (c *Cache) IsCompleted(contentType models.ContentType, id string) bool {
	v, ok := c.get(flagKey(contentType, id))
	return ok && v == "true"
}

// ProgressEntry is one item of the per-user local progress map
type ProgressEntry struct {
	Completed   bool   `json:"completed"`
	CompletedAt string `json:"completedAt,omitempty"`
}

func progressKey(userID string) string {
	return userID + "_local_progress"
}

// SaveProgress records the completion state of an item for userID and sets
// its completion flag when completed. A completed item stays completed.
func (c *Cache) SaveProgress(userID string, contentType models.ContentType, id string, completed bool) {
	if completed {
		c.MarkCompleted(contentType, id)
	}
	if userID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	progress := c.progressLocked(userID)
	if !completed && progress[string(contentType)+":"+id].Completed {
		return
	}
	entry := ProgressEntry{Completed: completed}
	if completed {
		entry.CompletedAt = c.now().UTC().Format(time.RFC3339)
	}
	progress[string(contentType)+":"+id] = entry

	data, err := json.Marshal(progress)
	if err != nil {
		c.logger.Printf("Error encoding local progress for %s: %v", userID, err)
		return
	}
	c.set(progressKey(userID), string(data))
}

// LocalProgress returns the per-user local progress map keyed by "type:id"
func (c *Cache) LocalProgress(userID string) map[string]ProgressEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressLocked(userID)
}

func (c *Cache) progressLocked(userID string) map[string]ProgressEntry {
	progress := make(map[string]ProgressEntry)
	raw, ok := c.get(progressKey(userID))
	if !ok {
		return progress
	}
	if err := json.Unmarshal([]byte(raw), &progress); err != nil {
		c.logger.Printf("Error parsing local progress for %s: %v", userID, err)
		return make(map[string]ProgressEntry)
	}
	return progress
}

func (c *Cache) get(key string) (string, bool) {
	v, ok, err := c.storage.Get(key)
	if err != nil {
		c.logger.Printf("Error reading %s from local storage: %v", key, err)
		return "", false
	}
	return v, ok
}

func (c *Cache) set(key, value string) {
	if err := c.storage.Set(key, value); err != nil {
		c.logger.Printf("Error writing %s to local storage: %v", key, err)
	}
}
