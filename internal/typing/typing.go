// Package typing holds the text helpers used while a user retypes a passage.
package typing

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CountWords returns the number of whitespace separated words in text
func CountWords(text string) int {
	return len(strings.Fields(text))
}

var typographic = strings.NewReplacer(
	"\u2018", "'", "\u2019", "'", "\u201a", "'",
	"\u201c", `"`, "\u201d", `"`, "\u201e", `"`,
	"\u2013", "-", "\u2014", "-",
	"\u2026", "...",
	"\u00a0", " ",
)

// Normalize folds text for comparison: diacritics are dropped, typographic
// quotes and dashes become their ASCII forms and whitespace runs collapse.
func Normalize(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	folded = typographic.Replace(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Matches reports whether typed reproduces original, ignoring diacritics,
// typographic punctuation and spacing
func Matches(original, typed string) bool {
	return Normalize(original) == Normalize(typed)
}

// Tracker accumulates active typing time. It is safe for concurrent use.
type Tracker struct {
	now func() time.Time

	mu          sync.Mutex
	running     bool
	startedAt   time.Time
	accumulated time.Duration
}

// NewTracker creates a stopped tracker. A nil now uses time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{now: now}
}

// Start begins counting; it does nothing while already running
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.startedAt = t.now()
}

// Pause stops counting and keeps the time so far
func (t *Tracker) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.accumulated += t.now().Sub(t.startedAt)
	t.running = false
}

// Resume is Start after a Pause
func (t *Tracker) Resume() {
	t.Start()
}

// Reset stops the tracker and clears the accumulated time
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.accumulated = 0
}

// Elapsed returns the active time so far
func (t *Tracker) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.accumulated
	if t.running {
		d += t.now().Sub(t.startedAt)
	}
	return d
}

// Seconds returns Elapsed in whole seconds
func (t *Tracker) Seconds() int {
	return int(t.Elapsed() / time.Second)
}
