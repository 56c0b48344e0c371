// Package engine computes streak state from an append-only event history.
//
// The engine is a pure function of its inputs: (events, freezes, config,
// now, timezone) in, (snapshot, freeze consumptions) out. It performs no
// I/O, reads no clocks beyond the now it is handed, and holds no state, so
// it is safe to call from any number of goroutines. Persistence and
// delivery live in internal/store and internal/manager.
package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MetaKind tags the concrete type held by a MetaValue.
type MetaKind string

const (
	MetaString MetaKind = "string"
	MetaBool   MetaKind = "bool"
	MetaInt    MetaKind = "int"
	MetaFloat  MetaKind = "float"
)

// MetaValue is a tagged union over the value kinds an event's metadata may
// carry. Exactly one of the value fields is meaningful, selected by Kind.
type MetaValue struct {
	Kind  MetaKind
	Str   string
	Bool  bool
	Int   int64
	Float float64
}

// MetaStr wraps a string metadata value.
func MetaStr(s string) MetaValue { return MetaValue{Kind: MetaString, Str: s} }

// MetaB wraps a bool metadata value.
func MetaB(b bool) MetaValue { return MetaValue{Kind: MetaBool, Bool: b} }

// MetaI wraps an int metadata value.
func MetaI(i int64) MetaValue { return MetaValue{Kind: MetaInt, Int: i} }

// MetaF wraps a float metadata value.
func MetaF(f float64) MetaValue { return MetaValue{Kind: MetaFloat, Float: f} }

// metaWire is the JSON form of a MetaValue: an explicit kind tag plus the
// raw value. Decoding switches on the tag rather than sniffing the value,
// so a "3" string never silently becomes a number.
type metaWire struct {
	Kind  MetaKind        `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the tagged union as {"kind": ..., "value": ...}.
func (m MetaValue) MarshalJSON() ([]byte, error) {
	var v any
	switch m.Kind {
	case MetaString:
		v = m.Str
	case MetaBool:
		v = m.Bool
	case MetaInt:
		v = m.Int
	case MetaFloat:
		v = m.Float
	default:
		return nil, fmt.Errorf("unknown metadata kind %q", m.Kind)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(metaWire{Kind: m.Kind, Value: raw})
}

// UnmarshalJSON decodes the tagged form written by MarshalJSON.
func (m *MetaValue) UnmarshalJSON(data []byte) error {
	var w metaWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := MetaValue{Kind: w.Kind}
	var err error
	switch w.Kind {
	case MetaString:
		err = json.Unmarshal(w.Value, &out.Str)
	case MetaBool:
		err = json.Unmarshal(w.Value, &out.Bool)
	case MetaInt:
		err = json.Unmarshal(w.Value, &out.Int)
	case MetaFloat:
		err = json.Unmarshal(w.Value, &out.Float)
	default:
		return fmt.Errorf("unknown metadata kind %q", w.Kind)
	}
	if err != nil {
		return fmt.Errorf("decoding %s metadata value: %w", w.Kind, err)
	}
	*m = out
	return nil
}

// Event is one immutable logged activity. Timezone records where the user
// was when the event happened; it is informational only and never affects
// calculation — day boundaries come from the calculation timezone passed to
// Compute.
type Event struct {
	ID        string
	StreakID  string
	Timestamp time.Time // UTC instant
	Timezone  string    // IANA identifier, metadata only
	Metadata  map[string]MetaValue
}

// NewEvent creates an event with a fresh UUID, normalizing the timestamp
// to UTC.
func NewEvent(streakID string, ts time.Time, tz string, metadata map[string]MetaValue) Event {
	return Event{
		ID:        uuid.New().String(),
		StreakID:  streakID,
		Timestamp: ts.UTC(),
		Timezone:  tz,
		Metadata:  metadata,
	}
}
