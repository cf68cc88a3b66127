// Package db records track observations to sqlite for post-run analysis.
// The live tracker never reads state back from here.
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the sqlite database at path. Run
// MigrateUp before writing.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// modernc.org/sqlite serializes per connection; a single connection
	// avoids table-lock errors under concurrent writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return &DB{db}, nil
}

// Session is one tracker run.
type Session struct {
	SessionID  string
	StartedAt  time.Time
	UDPAddress string
}

// CreateSession inserts a session row and returns its generated id.
func (db *DB) CreateSession(startedAt time.Time, udpAddress string) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, started_at, udp_address) VALUES (?, ?, ?)`,
		id, startedAt.UTC(), udpAddress,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// Observation is one sampled track state within a session.
type Observation struct {
	SessionID  string
	EntityID   int64
	EntityType string
	X          float64
	Y          float64
	HeadingDeg float64
	Speed      float64
	Status     string
	IsStale    bool
	ObservedAt time.Time
}

// RecordObservations appends a batch of observations in one transaction.
func (db *DB) RecordObservations(obs []Observation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO observations
			(session_id, entity_id, entity_type, x, y, heading_deg, speed, status, is_stale, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.Exec(
			o.SessionID, o.EntityID, o.EntityType, o.X, o.Y,
			o.HeadingDeg, o.Speed, o.Status, o.IsStale, o.ObservedAt.UTC(),
		); err != nil {
			return fmt.Errorf("failed to insert observation for entity %d: %w", o.EntityID, err)
		}
	}

	return tx.Commit()
}

// ObservationsInRange returns a session's observations for one entity in
// [from, to), oldest first.
func (db *DB) ObservationsInRange(sessionID string, entityID int64, from, to time.Time) ([]Observation, error) {
	rows, err := db.Query(`
		SELECT session_id, entity_id, entity_type, x, y, heading_deg, speed, status, is_stale, observed_at
		FROM observations
		WHERE session_id = ? AND entity_id = ? AND observed_at >= ? AND observed_at < ?
		ORDER BY observed_at ASC`,
		sessionID, entityID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	var obs []Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(
			&o.SessionID, &o.EntityID, &o.EntityType, &o.X, &o.Y,
			&o.HeadingDeg, &o.Speed, &o.Status, &o.IsStale, &o.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}
