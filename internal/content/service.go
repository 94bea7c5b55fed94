// Package content serves the content set of a session and records item
// completions together with their word credit.
package content

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/example/retype/internal/cache"
	"github.com/example/retype/internal/database"
	"github.com/example/retype/internal/events"
	"github.com/example/retype/internal/gateway"
	"github.com/example/retype/internal/stats"
	"github.com/example/retype/pkg/models"
)

var ErrUnknownItem = errors.New("unknown content item")

// ProgressState summarises how far a user got through a set
type ProgressState string

const (
	NotStarted ProgressState = "not_started"
	InProgress ProgressState = "in_progress"
	Completed  ProgressState = "completed"
)

// State maps completed out of total items to a progress state
func State(completed, total int) ProgressState {
	switch {
	case completed == 0:
		return NotStarted
	case completed == total:
		return Completed
	default:
		return InProgress
	}
}

// Percentage returns completed out of total as a rounded percentage
func Percentage(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Progress is the completion summary of a set
type Progress struct {
	Completed  int           `json:"completed"`
	Total      int           `json:"total"`
	State      ProgressState `json:"state"`
	Percentage int           `json:"percentage"`
}

// Credits are the words credited per completed item
type Credits struct {
	Paragraph int
	Wisdom    int
}

// CompletionResult describes what a completion call did
type CompletionResult struct {
	ContentID   string             `json:"content_id"`
	ContentType models.ContentType `json:"content_type"`
	// Credited is 0 when the item was already complete
	Credited int                `json:"credited"`
	Progress gateway.SyncStatus `json:"progress_sync"`
	Words    gateway.SyncStatus `json:"words_sync"`
}

// Service holds the content set of one session
type Service struct {
	repo    *database.ContentRepository
	gw      *gateway.Gateway
	cache   *cache.Cache
	ids     gateway.IdentitySource
	bus     events.Bus
	key     *stats.RefreshKey
	credits Credits
	logger  *log.Logger

	mu      sync.Mutex
	current *models.ContentSet
}

// NewService creates a content service. bus and key may be nil.
func NewService(store database.Store, gw *gateway.Gateway, ids gateway.IdentitySource, bus events.Bus, key *stats.RefreshKey, credits Credits, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		repo:    database.NewContentRepository(store),
		gw:      gw,
		cache:   gw.Cache(),
		ids:     ids,
		bus:     bus,
		key:     key,
		credits: credits,
		logger:  logger,
	}
}

// Current fetches the first content set with the user's completion state.
// When the fetch fails the last fetched set is served, then the built-in one.
func (s *Service) Current(ctx context.Context) *models.ContentSet {
	set, err := s.fetch(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Printf("Error fetching content: %v", err)
		if s.current == nil {
			s.current = DefaultSet()
			s.applyLocalLocked(s.current)
		}
		return clone(s.current)
	}
	s.current = set
	return clone(set)
}

func (s *Service) fetch(ctx context.Context) (*models.ContentSet, error) {
	set, err := s.repo.First(ctx)
	if err != nil {
		return nil, err
	}
	if set.Paragraphs, err = s.repo.Paragraphs(ctx, set.ID); err != nil {
		return nil, err
	}
	if set.Wisdom, err = s.repo.WisdomSections(ctx, set.ID); err != nil {
		return nil, err
	}

	remote := make(map[string]bool)
	records, err := s.gw.RemoteProgress(ctx)
	if err != nil {
		s.logger.Printf("Error fetching progress, using local flags: %v", err)
	}
	for _, r := range records {
		if r.Completed {
			remote[string(r.ContentType)+":"+r.ContentID] = true
		}
	}
	for i := range set.Paragraphs {
		set.Paragraphs[i].Completed = remote[string(models.ContentParagraph)+":"+set.Paragraphs[i].ID]
	}
	for i := range set.Wisdom {
		set.Wisdom[i].Completed = remote[string(models.ContentWisdom)+":"+set.Wisdom[i].ID]
	}
	s.mu.Lock()
	s.applyLocalLocked(set)
	s.mu.Unlock()
	return set, nil
}

// applyLocalLocked marks items completed that the local cache knows about;
// a local completion always wins over the remote flag
func (s *Service) applyLocalLocked(set *models.ContentSet) {
	local := s.cache.LocalProgress(s.ids.UserID())
	done := func(t models.ContentType, id string) bool {
		return s.cache.IsCompleted(t, id) || local[string(t)+":"+id].Completed
	}
	for i := range set.Paragraphs {
		if done(models.ContentParagraph, set.Paragraphs[i].ID) {
			set.Paragraphs[i].Completed = true
		}
	}
	for i := range set.Wisdom {
		if done(models.ContentWisdom, set.Wisdom[i].ID) {
			set.Wisdom[i].Completed = true
		}
	}
}

// CompleteParagraph marks a paragraph completed and credits its words once
func (s *Service) CompleteParagraph(ctx context.Context, id string) (CompletionResult, error) {
	return s.Complete(ctx, models.ContentParagraph, id)
}

// CompleteWisdom marks a wisdom section completed and credits its words once
func (s *Service) CompleteWisdom(ctx context.Context, id string) (CompletionResult, error) {
	return s.Complete(ctx, models.ContentWisdom, id)
}

// Complete marks an item of the current set completed. The word credit is
// applied only on the first transition to completed; repeated calls rewrite
// the completion flag and credit nothing.
func (s *Service) Complete(ctx context.Context, contentType models.ContentType, id string) (CompletionResult, error) {
	if !contentType.Valid() {
		return CompletionResult{}, fmt.Errorf("invalid content type %q", contentType)
	}
	s.mu.Lock()
	loaded := s.current != nil
	s.mu.Unlock()
	if !loaded {
		s.Current(ctx)
	}

	result := CompletionResult{ContentID: id, ContentType: contentType}

	s.mu.Lock()
	already, found := s.markLocked(contentType, id)
	if !found {
		s.mu.Unlock()
		return result, fmt.Errorf("%w: %s %s", ErrUnknownItem, contentType, id)
	}
	s.cache.MarkCompleted(contentType, id)
	s.mu.Unlock()

	result.Progress = s.gw.UpdateContentProgress(ctx, id, contentType, true)
	if already {
		result.Words = gateway.Skipped
		return result, nil
	}

	credit := s.credits.Paragraph
	if contentType == models.ContentWisdom {
		credit = s.credits.Wisdom
	}
	result.Words = s.gw.LogWordCount(ctx, credit)
	if result.Words != gateway.Skipped {
		result.Credited = credit
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{Kind: events.ContentCompleted, UserID: s.ids.UserID(), At: s.cache.Now()})
	}
	if s.key != nil {
		s.key.Bump()
	}
	return result, nil
}

// markLocked sets the completion flag of an item in the current set. It
// reports whether the item was already completed and whether it exists.
func (s *Service) markLocked(contentType models.ContentType, id string) (already, found bool) {
	already = s.cache.IsCompleted(contentType, id)
	switch contentType {
	case models.ContentParagraph:
		for i := range s.current.Paragraphs {
			if p := &s.current.Paragraphs[i]; p.ID == id {
				already = already || p.Completed
				p.Completed = true
				return already, true
			}
		}
	case models.ContentWisdom:
		for i := range s.current.Wisdom {
			if w := &s.current.Wisdom[i]; w.ID == id {
				already = already || w.Completed
				w.Completed = true
				return already, true
			}
		}
	}
	return already, false
}

// Reset forgets the current set, or the built-in one when none was loaded,
// together with the profile wide completion flags of its items. Completion state of the next set comes from the current user's
// progress only.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.current
	if set == nil {
		set = DefaultSet()
	}
	for _, p := range set.Paragraphs {
		s.cache.ClearCompleted(models.ContentParagraph, p.ID)
	}
	for _, w := range set.Wisdom {
		s.cache.ClearCompleted(models.ContentWisdom, w.ID)
	}
	s.current = nil
}

// IsSetCompleted reports whether every paragraph and the first wisdom
// section of the current set are completed
func (s *Service) IsSetCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || len(s.current.Wisdom) == 0 {
		return false
	}
	for _, p := range s.current.Paragraphs {
		if !p.Completed {
			return false
		}
	}
	return s.current.Wisdom[0].Completed
}

// Progress summarises the paragraphs of the current set
func (s *Service) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	var p Progress
	if s.current == nil {
		p.State = NotStarted
		return p
	}
	p.Total = len(s.current.Paragraphs)
	for _, para := range s.current.Paragraphs {
		if para.Completed {
			p.Completed++
		}
	}
	p.State = State(p.Completed, p.Total)
	p.Percentage = Percentage(p.Completed, p.Total)
	return p
}

func clone(set *models.ContentSet) *models.ContentSet {
	out := *set
	out.Paragraphs = append([]models.Paragraph(nil), set.Paragraphs...)
	out.Wisdom = append([]models.WisdomSection(nil), set.Wisdom...)
	return &out
}
