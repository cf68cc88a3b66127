package db

import (
	"context"
	"log"
	"time"

	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/track"
)

// Recorder samples the snapshot feed into observation rows at a fixed
// interval. It subscribes like any other feed consumer; recording never
// touches the store directly.
type Recorder struct {
	db        *DB
	producer  *track.Producer
	sessionID string
	interval  time.Duration
}

// NewRecorder creates a Recorder writing to an existing session.
func NewRecorder(db *DB, producer *track.Producer, sessionID string, interval time.Duration) *Recorder {
	if interval <= 0 {
		interval = time.Second
	}
	return &Recorder{
		db:        db,
		producer:  producer,
		sessionID: sessionID,
		interval:  interval,
	}
}

// Run consumes the feed until ctx is cancelled. Frames arriving between
// sample instants are discarded; the most recent frame at each instant is
// written.
func (r *Recorder) Run(ctx context.Context) error {
	id, frames := r.producer.Subscribe()
	defer r.producer.Unsubscribe(id)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var latest []track.Snapshot
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snaps, ok := <-frames:
			if !ok {
				return nil
			}
			latest = snaps
		case now := <-ticker.C:
			if len(latest) == 0 {
				continue
			}
			if err := r.db.RecordObservations(r.toObservations(latest, now)); err != nil {
				log.Printf("Failed to record observations: %v", err)
			}
			latest = nil
		}
	}
}

func (r *Recorder) toObservations(snaps []track.Snapshot, now time.Time) []Observation {
	obs := make([]Observation, len(snaps))
	for i, s := range snaps {
		obs[i] = Observation{
			SessionID:  r.sessionID,
			EntityID:   s.EntityID,
			EntityType: s.EntityType,
			X:          s.X,
			Y:          s.Y,
			HeadingDeg: s.HeadingDeg,
			Speed:      s.Speed,
			Status:     s.Status,
			IsStale:    s.IsStale,
			ObservedAt: now,
		}
	}
	return obs
}
