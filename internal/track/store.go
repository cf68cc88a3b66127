// Package track maintains the live state of every reporting entity and
// derives the per-tick snapshots consumed by renderers.
//
// The store sits between two independently paced domains: the network
// receive loop (its only writer) and the snapshot tick (its only reader).
// Entries are published through atomic replace-on-write pointers, so a
// reader always observes a fully applied update and unrelated entities never
// contend on a shared lock. The store-level mutex guards only the key set
// (create and evict), not field merges.
package track

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/project"
	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/telemetry"
)

const (
	// DefaultHistoryMax bounds the per-track breadcrumb history.
	DefaultHistoryMax = 25

	// StatusNoData is the status reported before any message carried one.
	StatusNoData = "NO_DATA"
)

// Point is one past position in a track's history.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Track is the full state kept for one entity. Values handed out by the
// store are copies; mutating them has no effect on stored state.
type Track struct {
	EntityID   int64
	EntityType string
	X          float64
	Y          float64
	HeadingDeg float64
	Speed      float64
	Status     string
	Seq        int64
	LastRx     time.Time // zero until the first applied update
	History    []Point   // oldest first, bounded by the store's history max
}

// entry wraps the published state for one entity. The pointer is replaced
// wholesale on every update; the Track it references is never mutated after
// publication. dead marks an entry removed from the key set: a writer that
// publishes into a dead entry must retry, otherwise the update would land
// in an orphan and vanish.
type entry struct {
	state   atomic.Pointer[Track]
	created time.Time
	dead    atomic.Bool
}

// Store is the concurrent keyed track store.
type Store struct {
	mu         sync.RWMutex
	tracks     map[int64]*entry
	historyMax int
}

// NewStore returns a Store keeping at most historyMax history points per
// track; historyMax <= 0 selects DefaultHistoryMax.
func NewStore(historyMax int) *Store {
	if historyMax <= 0 {
		historyMax = DefaultHistoryMax
	}
	return &Store{
		tracks:     make(map[int64]*entry),
		historyMax: historyMax,
	}
}

// newTrack builds the default state for a previously unseen entity.
func newTrack(entityID int64) *Track {
	return &Track{
		EntityID: entityID,
		Status:   StatusNoData,
	}
}

// getOrCreateEntry returns the entry for entityID, creating it with default
// state on first reference.
func (s *Store) getOrCreateEntry(entityID int64, now time.Time) *entry {
	s.mu.RLock()
	e, ok := s.tracks[entityID]
	s.mu.RUnlock()
	if ok && !e.dead.Load() {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Entries in the map are never dead: EvictIdle marks and deletes under
	// the same lock.
	if e, ok = s.tracks[entityID]; ok {
		return e
	}
	e = &entry{created: now}
	e.state.Store(newTrack(entityID))
	s.tracks[entityID] = e
	return e
}

// GetOrCreate returns a copy of the current state for entityID, creating a
// default track if the entity has not been seen before.
func (s *Store) GetOrCreate(entityID int64, now time.Time) Track {
	e := s.getOrCreateEntry(entityID, now)
	return cloneTrack(e.state.Load())
}

// Get returns a copy of the current state for entityID if it exists.
func (s *Store) Get(entityID int64) (Track, bool) {
	s.mu.RLock()
	e, ok := s.tracks[entityID]
	s.mu.RUnlock()
	if !ok {
		return Track{}, false
	}
	return cloneTrack(e.state.Load()), true
}

// ApplyUpdate merges a validated EntityState message into the store at time
// now. Only fields present in the message overwrite stored state; heading is
// wrapped to [0, 360) on the way in. Every applied update stamps LastRx and
// pushes the (possibly unchanged) position onto the history.
func (s *Store) ApplyUpdate(m *telemetry.Message, now time.Time) {
	for {
		e := s.getOrCreateEntry(*m.EntityID, now)
		if s.applyToEntry(e, m, now) {
			return
		}
		// EvictIdle removed the entry between lookup and publish. Retry
		// against a fresh entry so the update is not lost in the orphan.
	}
}

// applyToEntry publishes the merge into e and reports whether e was still
// live. Checking the tombstone after the publish closes the race with
// EvictIdle: either the evictor sees the update, or the writer sees the
// tombstone.
func (s *Store) applyToEntry(e *entry, m *telemetry.Message, now time.Time) bool {
	cur := e.state.Load()
	next := cloneTrack(cur)

	if m.EntityType != nil {
		next.EntityType = *m.EntityType
	}
	if m.X != nil {
		next.X = *m.X
	}
	if m.Y != nil {
		next.Y = *m.Y
	}
	if m.HeadingDeg != nil {
		next.HeadingDeg = project.WrapHeading(*m.HeadingDeg)
	}
	if m.Speed != nil {
		next.Speed = *m.Speed
	}
	if m.Status != nil {
		next.Status = *m.Status
	}
	if m.Seq != nil {
		next.Seq = *m.Seq
	}
	next.LastRx = now

	next.History = append(next.History, Point{X: next.X, Y: next.Y})
	if len(next.History) > s.historyMax {
		next.History = next.History[len(next.History)-s.historyMax:]
	}

	e.state.Store(&next)
	return !e.dead.Load()
}

// SnapshotAll returns a copy of every track. Each copy reflects one fully
// applied update; the writer may continue to apply updates concurrently.
// Order is unspecified.
func (s *Store) SnapshotAll() []Track {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.tracks))
	for _, e := range s.tracks {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]Track, 0, len(entries))
	for _, e := range entries {
		out = append(out, cloneTrack(e.state.Load()))
	}
	return out
}

// Len returns the number of tracked entities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tracks)
}

// EvictIdle removes every track that has not received an update for longer
// than ttl as of now, and returns how many were removed. Tracks that never
// received an update age from their creation time. A ttl of zero disables
// eviction.
func (s *Store) EvictIdle(now time.Time, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.tracks {
		last := e.state.Load().LastRx
		if last.IsZero() {
			last = e.created
		}
		if now.Sub(last) > ttl {
			e.dead.Store(true)
			delete(s.tracks, id)
			evicted++
		}
	}
	return evicted
}

// cloneTrack copies a track including its history slice.
func cloneTrack(t *Track) Track {
	c := *t
	if t.History != nil {
		c.History = make([]Point, len(t.History), cap(t.History))
		copy(c.History, t.History)
	}
	return c
}
