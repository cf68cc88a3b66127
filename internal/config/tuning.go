// Package config loads the tracker tuning file.
//
// The schema uses pointer-typed optional fields so a partial JSON file only
// overrides what it names; the Get* accessors supply defaults for everything
// else. The same shape is served back on /api/config.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TuningConfig is the root tuning document.
type TuningConfig struct {
	// Ingest params
	UDPAddress    *string `json:"udp_address,omitempty"`
	UDPRcvBuf     *int    `json:"udp_rcvbuf,omitempty"`
	StatsInterval *string `json:"stats_interval,omitempty"` // duration string like "1m"

	// Track store params
	HistoryMax *int    `json:"history_max,omitempty"`
	TrackTTL   *string `json:"track_ttl,omitempty"` // duration string; "0s" disables eviction

	// Snapshot params
	StaleThreshold *string `json:"stale_threshold,omitempty"` // duration string like "2s"
	TickInterval   *string `json:"tick_interval,omitempty"`   // duration string like "33ms"

	// Recorder params
	RecordInterval *string `json:"record_interval,omitempty"` // duration string like "1s"

	// World bounds (for consumers that project positions)
	WorldWidth  *float64 `json:"world_width,omitempty"`
	WorldHeight *float64 `json:"world_height,omitempty"`
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	for name, v := range map[string]*string{
		"stats_interval":  c.StatsInterval,
		"track_ttl":       c.TrackTTL,
		"stale_threshold": c.StaleThreshold,
		"tick_interval":   c.TickInterval,
		"record_interval": c.RecordInterval,
	} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s %q: %w", name, *v, err)
			}
		}
	}

	if c.HistoryMax != nil && *c.HistoryMax < 1 {
		return fmt.Errorf("history_max must be >= 1, got %d", *c.HistoryMax)
	}
	if c.UDPRcvBuf != nil && *c.UDPRcvBuf < 0 {
		return fmt.Errorf("udp_rcvbuf must be non-negative, got %d", *c.UDPRcvBuf)
	}
	if c.WorldWidth != nil && *c.WorldWidth <= 0 {
		return fmt.Errorf("world_width must be positive, got %f", *c.WorldWidth)
	}
	if c.WorldHeight != nil && *c.WorldHeight <= 0 {
		return fmt.Errorf("world_height must be positive, got %f", *c.WorldHeight)
	}

	return nil
}

func (c *TuningConfig) duration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetUDPAddress returns the datagram bind address or the default.
func (c *TuningConfig) GetUDPAddress() string {
	if c.UDPAddress == nil || *c.UDPAddress == "" {
		return "127.0.0.1:30001"
	}
	return *c.UDPAddress
}

// GetUDPRcvBuf returns the socket receive buffer size or the default.
func (c *TuningConfig) GetUDPRcvBuf() int {
	if c.UDPRcvBuf == nil {
		return 1 << 20 // 1MB
	}
	return *c.UDPRcvBuf
}

// GetStatsInterval returns the ingest stats logging interval or the default.
func (c *TuningConfig) GetStatsInterval() time.Duration {
	return c.duration(c.StatsInterval, time.Minute)
}

// GetHistoryMax returns the per-track history bound or the default.
func (c *TuningConfig) GetHistoryMax() int {
	if c.HistoryMax == nil {
		return 25
	}
	return *c.HistoryMax
}

// GetTrackTTL returns the idle-track eviction TTL or the default. Zero
// disables eviction.
func (c *TuningConfig) GetTrackTTL() time.Duration {
	return c.duration(c.TrackTTL, time.Minute)
}

// GetStaleThreshold returns the staleness threshold or the default.
func (c *TuningConfig) GetStaleThreshold() time.Duration {
	return c.duration(c.StaleThreshold, 2*time.Second)
}

// GetTickInterval returns the snapshot cadence or the default (~30 Hz).
func (c *TuningConfig) GetTickInterval() time.Duration {
	return c.duration(c.TickInterval, 33*time.Millisecond)
}

// GetRecordInterval returns the observation sampling interval or the default.
func (c *TuningConfig) GetRecordInterval() time.Duration {
	return c.duration(c.RecordInterval, time.Second)
}

// GetWorldWidth returns the world-space width or the default.
func (c *TuningConfig) GetWorldWidth() float64 {
	if c.WorldWidth == nil {
		return 800
	}
	return *c.WorldWidth
}

// GetWorldHeight returns the world-space height or the default.
func (c *TuningConfig) GetWorldHeight() float64 {
	if c.WorldHeight == nil {
		return 600
	}
	return *c.WorldHeight
}
