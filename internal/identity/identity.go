// Package identity keeps the anonymous user id of this profile and turns
// access codes into fresh identities.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/retype/internal/database"
	"github.com/example/retype/internal/localstore"
)

// Storage keys. Both id keys are written so older profiles keep working.
const (
	KeyUserID       = "user_id"
	KeyUserIDLegacy = "userId"
	KeyCodeType     = "code_type"
)

var (
	ErrInvalidAccessCode = errors.New("invalid access code")
	ErrAccessCodeUsed    = errors.New("access code already used")
	ErrInvalidUserID     = errors.New("invalid user id")
)

// Clock supplies the calendar date used when seeding a new user;
// *cache.Cache implements it
type Clock interface {
	Now() time.Time
	Today() string
}

// Resolver resolves the current user id. It implements
// gateway.IdentitySource.
type Resolver struct {
	storage localstore.Storage
	stats   *database.StatisticsRepository
	codes   *database.AccessCodeRepository
	clock   Clock
	logger  *log.Logger
	newID   func() (string, error)

	mu        sync.Mutex
	id        string
	listeners []func(id string)
}

// Option configures a Resolver
type Option func(*Resolver)

// WithIDGenerator replaces uuid generation
func WithIDGenerator(gen func() (string, error)) Option {
	return func(r *Resolver) { r.newID = gen }
}

func WithLogger(logger *log.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a resolver over the profile storage and the remote store
func NewResolver(storage localstore.Storage, store database.Store, clock Clock, opts ...Option) *Resolver {
	r := &Resolver{
		storage: storage,
		stats:   database.NewStatisticsRepository(store),
		codes:   database.NewAccessCodeRepository(store),
		clock:   clock,
		logger:  log.Default(),
		newID: func() (string, error) {
			id, err := uuid.NewRandom()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsLegacy reports whether id predates uuid identities
func IsLegacy(id string) bool {
	return strings.HasPrefix(id, "LOCAL-") || strings.HasPrefix(id, "DEMO") || len(id) < 20
}

// UserID returns the id of this profile, creating or migrating it when needed.
// It never returns an empty id.
func (r *Resolver) UserID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.id != "" {
		return r.id
	}

	stored := r.stored()
	if stored != "" && !IsLegacy(stored) {
		r.id = stored
		return r.id
	}
	if stored != "" {
		r.logger.Printf("Migrating legacy user id %s", stored)
	}

	id, err := r.newID()
	if err != nil {
		r.logger.Printf("Error generating user id: %v", err)
		id = fallbackID()
	}
	r.persist(id)
	r.id = id
	return r.id
}

func (r *Resolver) stored() string {
	for _, key := range []string{KeyUserID, KeyUserIDLegacy} {
		v, ok, err := r.storage.Get(key)
		if err != nil {
			r.logger.Printf("Error reading %s: %v", key, err)
			continue
		}
		if ok && v != "" {
			return v
		}
	}
	return ""
}

func (r *Resolver) persist(id string) {
	for _, key := range []string{KeyUserID, KeyUserIDLegacy} {
		if err := r.storage.Set(key, id); err != nil {
			r.logger.Printf("Error saving %s: %v", key, err)
		}
	}
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// fallbackID builds USER- followed by 8 random base36 characters
func fallbackID() string {
	var b strings.Builder
	b.WriteString("USER-")
	limit := big.NewInt(int64(len(base36)))
	for i := 0; i < 8; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			b.WriteByte(base36[time.Now().UnixNano()%int64(len(base36))])
			continue
		}
		b.WriteByte(base36[n.Int64()])
	}
	return b.String()
}

func initializedKey(id string) string {
	return "user_" + id + "_initialized"
}

// EnsureInitialized seeds the remote aggregate rows of the current user once
// per id. Rows that already exist are kept.
func (r *Resolver) EnsureInitialized(ctx context.Context) error {
	id := r.UserID()
	if strings.HasPrefix(id, "LOCAL-") || strings.HasPrefix(id, "DEMO") {
		return nil
	}
	key := initializedKey(id)
	if v, ok, err := r.storage.Get(key); err == nil && ok && v == "true" {
		return nil
	}

	if err := r.stats.SeedUser(ctx, id, r.clock.Today()); err != nil {
		return fmt.Errorf("failed to initialize user %s: %w", id, err)
	}
	if err := r.storage.Set(key, "true"); err != nil {
		r.logger.Printf("Error saving %s: %v", key, err)
	}
	return nil
}

// OnChange registers fn to run after the current id switched to another one
func (r *Resolver) OnChange(fn func(id string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Adopt switches this profile to an id received from a share link
func (r *Resolver) Adopt(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidUserID
	}
	r.mu.Lock()
	changed := r.id != id
	r.persist(id)
	r.id = id
	listeners := append([]func(string){}, r.listeners...)
	r.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(id)
		}
	}
	return nil
}

// ShareLink returns base with the current user id in its userId parameter
func (r *Resolver) ShareLink(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse share url: %w", err)
	}
	q := u.Query()
	q.Set(KeyUserIDLegacy, r.UserID())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CodeType returns the type of the last redeemed access code
func (r *Resolver) CodeType() string {
	v, _, err := r.storage.Get(KeyCodeType)
	if err != nil {
		r.logger.Printf("Error reading %s: %v", KeyCodeType, err)
	}
	return v
}

// RedeemAccessCode binds an unused code to a freshly generated id and makes
// that id current. It returns the code type.
func (r *Resolver) RedeemAccessCode(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) < 3 || len(code) > 20 {
		return "", ErrInvalidAccessCode
	}

	ac, err := r.codes.GetByCode(ctx, code)
	if errors.Is(err, database.ErrNotFound) {
		return "", ErrInvalidAccessCode
	}
	if err != nil {
		return "", err
	}
	if ac.IsUsed {
		return "", ErrAccessCodeUsed
	}

	id, err := r.newID()
	if err != nil {
		return "", fmt.Errorf("failed to generate user id: %w", err)
	}
	ok, err := r.codes.MarkUsed(ctx, ac.ID, id, database.Timestamp(r.clock.Now()))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrAccessCodeUsed
	}

	if err := r.Adopt(id); err != nil {
		return "", err
	}
	if err := r.storage.Set(KeyCodeType, ac.CodeType); err != nil {
		r.logger.Printf("Error saving %s: %v", KeyCodeType, err)
	}
	if err := r.EnsureInitialized(ctx); err != nil {
		r.logger.Printf("Error initializing redeemed user: %v", err)
	}
	return ac.CodeType, nil
}
