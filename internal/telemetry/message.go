// Package telemetry defines the EntityState wire message and its validation
// rules.
//
// One datagram carries one UTF-8 JSON object. Every field except msg_type and
// entity_id is optional: a message updates only the fields it carries, so
// absent fields are modeled as nil pointers and never clobber stored state.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MsgTypeEntityState is the only message type accepted by the ingest loop.
const MsgTypeEntityState = "EntityState"

// Validation failure taxonomy. The receiver drops offending datagrams
// silently; these sentinels exist so tests and stats can tell the cases
// apart.
var (
	ErrNotJSON         = errors.New("telemetry: datagram is not valid JSON")
	ErrMissingType     = errors.New("telemetry: missing msg_type field")
	ErrWrongType       = errors.New("telemetry: unexpected msg_type")
	ErrMissingEntityID = errors.New("telemetry: missing entity_id field")
)

// Message is a decoded EntityState datagram. Pointer fields distinguish
// "absent" from zero values for the field-level merge in the track store.
type Message struct {
	MsgType      string   `json:"msg_type"`
	EntityID     *int64   `json:"entity_id,omitempty"`
	EntityType   *string  `json:"entity_type,omitempty"`
	X            *float64 `json:"x,omitempty"`
	Y            *float64 `json:"y,omitempty"`
	HeadingDeg   *float64 `json:"heading_deg,omitempty"`
	Speed        *float64 `json:"speed,omitempty"`
	Status       *string  `json:"status,omitempty"`
	Seq          *int64   `json:"seq,omitempty"`
	TimestampUTC *string  `json:"timestamp_utc,omitempty"`
}

// Decode parses and validates one datagram payload. Any decode or schema
// failure returns a non-nil error and the datagram must be discarded.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the schema constraints that make a message applicable:
// msg_type must be present and equal "EntityState", and entity_id must be
// present. Integrality of entity_id is enforced by the int64 decode itself.
func (m *Message) Validate() error {
	switch {
	case m.MsgType == "":
		return ErrMissingType
	case m.MsgType != MsgTypeEntityState:
		return fmt.Errorf("%w: %q", ErrWrongType, m.MsgType)
	case m.EntityID == nil:
		return ErrMissingEntityID
	}
	return nil
}
