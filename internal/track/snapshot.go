package track

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/timeutil"
)

const (
	// DefaultStaleThreshold flags a track once updates stop arriving for
	// longer than this (strictly longer; a track exactly at the threshold is
	// still live).
	DefaultStaleThreshold = 2 * time.Second

	// DefaultTickInterval paces snapshot production at roughly 30 Hz.
	DefaultTickInterval = 33 * time.Millisecond
)

// Snapshot is the immutable point-in-time view of one track, produced fresh
// every tick. JSON field names mirror the wire schema.
type Snapshot struct {
	EntityID   int64   `json:"entity_id"`
	EntityType string  `json:"entity_type"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	HeadingDeg float64 `json:"heading_deg"`
	Speed      float64 `json:"speed"`
	Status     string  `json:"status"`
	IsStale    bool    `json:"is_stale"`
}

// ProducerConfig tunes snapshot production.
type ProducerConfig struct {
	StaleThreshold time.Duration // zero selects DefaultStaleThreshold
	TickInterval   time.Duration // zero selects DefaultTickInterval
}

// Producer derives ordered snapshots from a Store on a fixed cadence and
// fans them out to subscribers. It only ever reads the store.
type Producer struct {
	store *Store
	clock timeutil.Clock
	cfg   ProducerConfig

	subMu       sync.Mutex
	subscribers map[string]chan []Snapshot
}

// NewProducer returns a Producer reading from store using clock for
// staleness and cadence.
func NewProducer(store *Store, clock timeutil.Clock, cfg ProducerConfig) *Producer {
	if cfg.StaleThreshold == 0 {
		cfg.StaleThreshold = DefaultStaleThreshold
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	return &Producer{
		store:       store,
		clock:       clock,
		cfg:         cfg,
		subscribers: make(map[string]chan []Snapshot),
	}
}

// Tick reads the whole store once and returns snapshots sorted ascending by
// entity id. A track is stale when its last update is strictly older than
// the stale threshold; a track that never received an update is stale.
func (p *Producer) Tick(now time.Time) []Snapshot {
	tracks := p.store.SnapshotAll()

	snaps := make([]Snapshot, 0, len(tracks))
	for _, t := range tracks {
		stale := t.LastRx.IsZero() || now.Sub(t.LastRx) > p.cfg.StaleThreshold
		snaps = append(snaps, Snapshot{
			EntityID:   t.EntityID,
			EntityType: t.EntityType,
			X:          t.X,
			Y:          t.Y,
			HeadingDeg: t.HeadingDeg,
			Speed:      t.Speed,
			Status:     t.Status,
			IsStale:    stale,
		})
	}

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].EntityID < snaps[j].EntityID })
	return snaps
}

// Subscribe registers a channel receiving each tick's snapshots. The id
// identifies the channel for Unsubscribe. Delivery is non-blocking: a
// subscriber that falls behind misses frames rather than stalling the tick.
func (p *Producer) Subscribe() (string, chan []Snapshot) {
	id := randomID()
	ch := make(chan []Snapshot, 1)
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (p *Producer) Unsubscribe(id string) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	if ch, ok := p.subscribers[id]; ok {
		close(ch)
		delete(p.subscribers, id)
	}
}

// Run produces snapshots on the configured cadence until ctx is cancelled,
// broadcasting each tick to all subscribers.
func (p *Producer) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C():
			p.broadcast(p.Tick(now))
		}
	}
}

func (p *Producer) broadcast(snaps []Snapshot) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for _, ch := range p.subscribers {
		select {
		case ch <- snaps:
		default:
			// Slow subscriber: supersede the undelivered frame with the
			// newest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snaps:
			default:
			}
		}
	}
}

// randomID generates an 8-byte random hex channel id.
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}
