package speaker

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Palette is the fixed set of colors handed out to speakers,
// first-seen-first-assigned. Once every color is taken, assignment wraps.
var Palette = []string{
	"#7C3AED", // purple
	"#06B6D4", // cyan
	"#22C55E", // green
	"#F59E0B", // amber
	"#EF4444", // red
	"#3B82F6", // blue
	"#EC4899", // pink
	"#94A3B8", // slate
}

// Entry is one recognized speaker within a session.
type Entry struct {
	ID           string
	DisplayName  string
	Color        string
	LastSeenAt   time.Time
	SegmentCount int

	ord int // first-seen order, for stable snapshots
}

// Mention is a single appearance of a speaker in one transcription result.
type Mention struct {
	ID          string
	DisplayName string
	At          time.Time
}

// Tracker maintains the decaying per-session map from speaker id to display
// attributes. Mutations arrive from the worker result chain and from the
// host (clear), which may run on different goroutines, so everything is
// mutex-guarded.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*Entry
	nextOrd int
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*Entry)}
}

// Merge folds the speakers mentioned by one transcription result into the
// map. New ids get an entry and a palette color; known ids get their
// LastSeenAt bumped and SegmentCount incremented. Callers merge in
// completion order, so LastSeenAt reflects wall-clock completion time.
func (t *Tracker) Merge(mentions []Mention) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, m := range mentions {
		if m.ID == "" {
			continue
		}
		e, ok := t.entries[m.ID]
		if !ok {
			name := m.DisplayName
			if name == "" {
				name = fmt.Sprintf("Speaker %s", m.ID)
			}
			e = &Entry{
				ID:          m.ID,
				DisplayName: name,
				Color:       t.assignColorLocked(),
				ord:         t.nextOrd,
			}
			t.nextOrd++
			t.entries[m.ID] = e
		}
		if m.At.After(e.LastSeenAt) {
			e.LastSeenAt = m.At
		}
		e.SegmentCount++
	}
}

// Sweep evicts every entry not seen within timeout of now and returns the
// evicted ids. A returning id after eviction is treated as a new speaker.
func (t *Tracker) Sweep(now time.Time, timeout time.Duration) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var evicted []string
	for id, e := range t.entries {
		if now.Sub(e.LastSeenAt) > timeout {
			evicted = append(evicted, id)
			delete(t.entries, id)
		}
	}
	sort.Strings(evicted)
	return evicted
}

// Snapshot returns the current entries in first-seen order.
func (t *Tracker) Snapshot() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ord < out[j].ord })
	return out
}

// Lookup returns the entry for id, if present.
func (t *Tracker) Lookup(id string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Clear empties the map. Safe whether or not a session is active.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]*Entry)
	t.nextOrd = 0
}

func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// assignColorLocked picks the first palette color not currently in use,
// wrapping once the palette is exhausted. Colors are stable for the lifetime
// of an entry; an evicted speaker's color becomes available again.
func (t *Tracker) assignColorLocked() string {
	inUse := make(map[string]bool, len(t.entries))
	for _, e := range t.entries {
		inUse[e.Color] = true
	}
	for _, c := range Palette {
		if !inUse[c] {
			return c
		}
	}
	return Palette[len(t.entries)%len(Palette)]
}
