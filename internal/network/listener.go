// Package network receives EntityState datagrams over UDP and feeds them
// into the track store.
package network

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/telemetry"
	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/track"
)

// stopTimeout bounds how long Stop waits for the read loop to drain.
const stopTimeout = 250 * time.Millisecond

// ListenerConfig contains configuration options for the UDP listener
type ListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Stats       *IngestStats
}

// Listener receives EntityState datagrams on a UDP socket and applies them
// to a track store. One datagram carries at most one update; anything that
// fails to decode or validate is counted and dropped without disturbing
// existing tracks.
type Listener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	store       *track.Store
	stats       *IngestStats

	conn      *net.UDPConn
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewListener creates a new UDP listener feeding the given store.
func NewListener(config ListenerConfig, store *track.Store) *Listener {
	stats := config.Stats
	if stats == nil {
		stats = NewIngestStats()
	}

	address := config.Address
	if address == "" {
		address = "127.0.0.1:30001"
	}

	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}

	return &Listener{
		address:     address,
		rcvBuf:      config.RcvBuf,
		logInterval: logInterval,
		store:       store,
		stats:       stats,
	}
}

// Start binds the UDP socket and launches the receive loop. Bind failures
// are returned synchronously; after a nil return the loop runs until the
// context is cancelled or Stop is called.
func (l *Listener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.conn = conn

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			log.Printf("Warning: Failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
		}
	}

	log.Printf("UDP listener started on %s", conn.LocalAddr())

	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})

	go l.startStatsLogging(ctx)
	go l.run(ctx)

	return nil
}

// LocalAddr returns the bound socket address, or nil before Start.
func (l *Listener) LocalAddr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// run is the receive loop. Read deadlines keep the loop responsive to
// context cancellation without a dedicated wakeup channel. The socket is
// closed on loop exit, so cancelling the Start context releases the port
// even when Stop is never called.
func (l *Listener) run(ctx context.Context) {
	defer close(l.done)
	defer l.closeConn()

	buffer := make([]byte, 2048)

	for {
		select {
		case <-ctx.Done():
			log.Print("UDP listener stopping due to context cancellation")
			return
		default:
			l.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, _, err := l.conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue // Continue on timeout to check context
				}
				if ctx.Err() != nil {
					return
				}
				log.Printf("UDP read error: %v", err)
				continue
			}

			l.handleDatagram(buffer[:n])
		}
	}
}

// handleDatagram decodes and applies a single received datagram. Malformed
// input never produces partial state: it is either applied whole or dropped.
func (l *Listener) handleDatagram(data []byte) {
	l.stats.AddDatagram(len(data))

	msg, err := telemetry.Decode(data)
	if err != nil {
		l.stats.AddRejected()
		return
	}

	l.store.ApplyUpdate(msg, time.Now())
}

// startStatsLogging periodically logs ingest statistics
func (l *Listener) startStatsLogging(ctx context.Context) {
	// Trigger an initial stats report shortly after startup to avoid a long
	// silence on first-run. Then continue on the configured interval.
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
		l.stats.LogStats()
	}

	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.LogStats()
		}
	}
}

// Stop cancels the receive loop, waits a bounded time for it to exit, and
// closes the socket.
func (l *Listener) Stop() error {
	if l.cancel == nil {
		return nil
	}
	l.cancel()

	select {
	case <-l.done:
	case <-time.After(stopTimeout):
		log.Print("UDP listener did not drain in time; closing socket")
	}

	return l.closeConn()
}

// closeConn closes the socket exactly once; the loop and Stop both reach it.
func (l *Listener) closeConn() error {
	l.closeOnce.Do(func() { l.closeErr = l.conn.Close() })
	return l.closeErr
}
