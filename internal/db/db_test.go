package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.MigrateUp("../../migrations"))
	return db
}

func TestMigrateUpIdempotent(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.MigrateUp("../../migrations"))

	version, dirty, err := db.MigrateVersion("../../migrations")
	require.NoError(t, err)
	assert.False(t, dirty, "migration state dirty")
	assert.NotZero(t, version, "no migration applied")
}

func TestCreateSessionAndRecord(t *testing.T) {
	db := newTestDB(t)

	sessionID, err := db.CreateSession(time.Now(), "127.0.0.1:30001")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	obs := []Observation{
		{SessionID: sessionID, EntityID: 1, EntityType: "aircraft", X: 10, Y: 20, HeadingDeg: 90, Speed: 3.5, Status: "ACTIVE", ObservedAt: base},
		{SessionID: sessionID, EntityID: 1, EntityType: "aircraft", X: 11, Y: 20, HeadingDeg: 90, Speed: 3.6, Status: "ACTIVE", ObservedAt: base.Add(time.Second)},
		{SessionID: sessionID, EntityID: 2, EntityType: "ship", X: 5, Y: 5, HeadingDeg: 180, Speed: 1.0, Status: "ACTIVE", ObservedAt: base},
	}
	require.NoError(t, db.RecordObservations(obs))

	got, err := db.ObservationsInRange(sessionID, 1, base, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[0].X, "observations must come back oldest first")
	assert.Equal(t, 11.0, got[1].X)
	assert.Equal(t, 3.5, got[0].Speed)
	assert.Equal(t, "aircraft", got[0].EntityType)
}

func TestObservationsInRangeExcludesOutside(t *testing.T) {
	db := newTestDB(t)

	sessionID, err := db.CreateSession(time.Now(), "")
	require.NoError(t, err)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.RecordObservations([]Observation{
		{SessionID: sessionID, EntityID: 1, X: 1, ObservedAt: base.Add(-time.Hour)},
		{SessionID: sessionID, EntityID: 1, X: 2, ObservedAt: base},
	}))

	got, err := db.ObservationsInRange(sessionID, 1, base, base.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].X)
}

func TestRecordObservationsEmptyBatch(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.RecordObservations(nil), "empty batch should be a no-op")
}

func TestSpeedRollups(t *testing.T) {
	db := newTestDB(t)

	sessionID, err := db.CreateSession(time.Now(), "")
	require.NoError(t, err)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	var obs []Observation
	// Entity 1: speeds 1..10.
	for i := 1; i <= 10; i++ {
		obs = append(obs, Observation{
			SessionID: sessionID, EntityID: 1, Speed: float64(i),
			ObservedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	// Entity 2: constant speed plus one stale sample that must be excluded.
	obs = append(obs,
		Observation{SessionID: sessionID, EntityID: 2, Speed: 4, ObservedAt: base},
		Observation{SessionID: sessionID, EntityID: 2, Speed: 4, ObservedAt: base.Add(time.Second)},
		Observation{SessionID: sessionID, EntityID: 2, Speed: 99, IsStale: true, ObservedAt: base.Add(2 * time.Second)},
	)
	require.NoError(t, db.RecordObservations(obs))

	rollups, err := db.SpeedRollups(sessionID)
	require.NoError(t, err)
	require.Len(t, rollups, 2)

	r1 := rollups[0]
	assert.Equal(t, int64(1), r1.EntityID)
	assert.Equal(t, 10, r1.Observations)
	assert.Equal(t, 10.0, r1.MaxSpeed)
	assert.InDelta(t, 5.5, r1.P50Speed, 0.5)
	assert.InDelta(t, 9.5, r1.P95Speed, 0.5)

	r2 := rollups[1]
	assert.Equal(t, int64(2), r2.EntityID)
	assert.Equal(t, 2, r2.Observations, "stale sample must be excluded")
	assert.Equal(t, 4.0, r2.MaxSpeed, "stale observation leaked into rollup")
}
