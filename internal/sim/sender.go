package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"time"
)

// wireState is the EntityState datagram body. One datagram per contact per
// tick; seq is a single monotonic counter shared across contacts.
type wireState struct {
	MsgType      string  `json:"msg_type"`
	EntityID     int64   `json:"entity_id"`
	EntityType   string  `json:"entity_type"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	HeadingDeg   float64 `json:"heading_deg"`
	Speed        float64 `json:"speed"`
	Status       string  `json:"status"`
	Seq          int64   `json:"seq"`
	TimestampUTC string  `json:"timestamp_utc"`
}

// Sender steps an Engine at a fixed rate and emits one EntityState datagram
// per contact per tick.
type Sender struct {
	engine *Engine
	conn   *net.UDPConn
	hz     int
	seq    int64
}

// NewSender dials the target address. Dialing a UDP socket only resolves
// and binds; delivery stays fire-and-forget.
func NewSender(engine *Engine, target string, hz int) (*Sender, error) {
	if hz <= 0 {
		hz = 20
	}

	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial target: %w", err)
	}

	return &Sender{engine: engine, conn: conn, hz: hz}, nil
}

// Run steps and sends until ctx is cancelled, then closes the socket.
func (s *Sender) Run(ctx context.Context) error {
	defer s.conn.Close()

	log.Printf("Sender: UDP -> %s @ %d Hz, %d contacts",
		s.conn.RemoteAddr(), s.hz, len(s.engine.Contacts()))

	ticker := time.NewTicker(time.Second / time.Duration(s.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.engine.Step()
			s.sendAll()
		}
	}
}

func (s *Sender) sendAll() {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, c := range s.engine.Contacts() {
		s.seq++
		data, err := json.Marshal(wireState{
			MsgType:      "EntityState",
			EntityID:     c.EntityID,
			EntityType:   c.EntityType,
			X:            c.X,
			Y:            c.Y,
			HeadingDeg:   c.HeadingDeg,
			Speed:        c.Speed,
			Status:       c.Status,
			Seq:          s.seq,
			TimestampUTC: now,
		})
		if err != nil {
			log.Printf("Failed to marshal state for entity %d: %v", c.EntityID, err)
			continue
		}
		if _, err := s.conn.Write(data); err != nil {
			log.Printf("Failed to send state for entity %d: %v", c.EntityID, err)
		}
	}
}
