package network

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// IngestStats tracks datagram ingest statistics with thread-safe operations
type IngestStats struct {
	mu            sync.Mutex
	datagramCount int64
	byteCount     int64
	rejectedCount int64
	lastReset     time.Time
}

// NewIngestStats creates a new IngestStats instance
func NewIngestStats() *IngestStats {
	return &IngestStats{
		lastReset: time.Now(),
	}
}

// AddDatagram increments datagram count and byte count
func (s *IngestStats) AddDatagram(bytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datagramCount++
	s.byteCount += int64(bytes)
}

// AddRejected increments the count of datagrams dropped as malformed
func (s *IngestStats) AddRejected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectedCount++
}

// GetAndReset returns current stats and resets counters
func (s *IngestStats) GetAndReset() (datagrams int64, bytes int64, rejected int64, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	duration = now.Sub(s.lastReset)
	datagrams = s.datagramCount
	bytes = s.byteCount
	rejected = s.rejectedCount

	s.datagramCount = 0
	s.byteCount = 0
	s.rejectedCount = 0
	s.lastReset = now

	return
}

// LogStats logs formatted ingest statistics since the last reset
func (s *IngestStats) LogStats() {
	datagrams, bytes, rejected, duration := s.GetAndReset()
	if datagrams == 0 && rejected == 0 {
		return
	}

	datagramsPerSec := float64(datagrams) / duration.Seconds()
	kbPerSec := float64(bytes) / duration.Seconds() / 1024

	logMsg := fmt.Sprintf("Ingest stats (/sec): %.1f datagrams, %.2f KB", datagramsPerSec, kbPerSec)
	if rejected > 0 {
		logMsg += fmt.Sprintf(", %d rejected", rejected)
	}

	log.Print(logMsg)
}
