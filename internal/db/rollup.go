package db

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SpeedRollup summarizes one entity's observed speeds within a session.
type SpeedRollup struct {
	EntityID     int64   `json:"entity_id"`
	Observations int     `json:"observations"`
	MaxSpeed     float64 `json:"max_speed"`
	P50Speed     float64 `json:"p50_speed"`
	P85Speed     float64 `json:"p85_speed"`
	P95Speed     float64 `json:"p95_speed"`
}

// SpeedRollups computes per-entity speed percentiles for a session, ordered
// by entity id. Stale observations are excluded; they repeat the last known
// speed and would skew the distribution.
func (db *DB) SpeedRollups(sessionID string) ([]SpeedRollup, error) {
	rows, err := db.Query(`
		SELECT entity_id, speed
		FROM observations
		WHERE session_id = ? AND is_stale = 0
		ORDER BY entity_id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query speeds: %w", err)
	}
	defer rows.Close()

	speeds := make(map[int64][]float64)
	var order []int64
	for rows.Next() {
		var entityID int64
		var speed float64
		if err := rows.Scan(&entityID, &speed); err != nil {
			return nil, fmt.Errorf("failed to scan speed: %w", err)
		}
		if _, seen := speeds[entityID]; !seen {
			order = append(order, entityID)
		}
		speeds[entityID] = append(speeds[entityID], speed)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rollups := make([]SpeedRollup, 0, len(order))
	for _, entityID := range order {
		s := speeds[entityID]
		sort.Float64s(s) // stat.Quantile requires sorted input
		rollups = append(rollups, SpeedRollup{
			EntityID:     entityID,
			Observations: len(s),
			MaxSpeed:     s[len(s)-1],
			P50Speed:     stat.Quantile(0.50, stat.Empirical, s, nil),
			P85Speed:     stat.Quantile(0.85, stat.Empirical, s, nil),
			P95Speed:     stat.Quantile(0.95, stat.Empirical, s, nil),
		})
	}

	return rollups, nil
}
