// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semvault Contributors

package store

import (
	"encoding/json"
	"time"

	semerr "github.com/semvault-dev/semvault/pkg/errors"
)

// Kind enumerates the content types a record can hold.
type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
)

// ParseKind validates a kind string, defaulting empty input to text.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindText, KindImage, KindAudio, KindDocument:
		return Kind(s), nil
	case "":
		return KindText, nil
	default:
		return "", semerr.Errorf(semerr.CodeStoreInvalidInput, "unknown content kind: %q", s)
	}
}

// ValueKind tags the concrete type held by a metadata Value.
type ValueKind string

const (
	ValueKindString ValueKind = "string"
	ValueKindNumber ValueKind = "number"
	ValueKindBool   ValueKind = "bool"
	ValueKindTime   ValueKind = "time"
)

// Value is a tagged metadata scalar. The tag keeps filter matching
// type-safe without reflection.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
}

func StringValue(s string) Value  { return Value{Kind: ValueKindString, Str: s} }
func NumberValue(f float64) Value { return Value{Kind: ValueKindNumber, Num: f} }
func BoolValue(b bool) Value      { return Value{Kind: ValueKindBool, Bool: b} }
func TimeValue(t time.Time) Value { return Value{Kind: ValueKindTime, Time: t} }

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueKindString:
		return v.Str == o.Str
	case ValueKindNumber:
		return v.Num == o.Num
	case ValueKindBool:
		return v.Bool == o.Bool
	case ValueKindTime:
		return v.Time.Equal(o.Time)
	default:
		return false
	}
}

// Any returns the untagged scalar, for JSON output surfaces.
func (v Value) Any() any {
	switch v.Kind {
	case ValueKindString:
		return v.Str
	case ValueKindNumber:
		return v.Num
	case ValueKindBool:
		return v.Bool
	case ValueKindTime:
		return v.Time
	default:
		return nil
	}
}

type valueJSON struct {
	Kind  ValueKind       `json:"kind"`
	Value json.RawMessage `json:"value"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(v.Any())
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueJSON{Kind: v.Kind, Value: raw})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var vj valueJSON
	if err := json.Unmarshal(data, &vj); err != nil {
		return err
	}

	v.Kind = vj.Kind
	switch vj.Kind {
	case ValueKindString:
		return json.Unmarshal(vj.Value, &v.Str)
	case ValueKindNumber:
		return json.Unmarshal(vj.Value, &v.Num)
	case ValueKindBool:
		return json.Unmarshal(vj.Value, &v.Bool)
	case ValueKindTime:
		return json.Unmarshal(vj.Value, &v.Time)
	default:
		return semerr.Errorf(semerr.CodeStoreInvalidInput, "unknown metadata value kind: %q", vj.Kind)
	}
}

// Metadata is the free-form, typed key/value map attached to a record.
type Metadata map[string]Value

// MetadataFromAny converts an untyped JSON-ish map into typed metadata.
// Unsupported value types are dropped.
func MetadataFromAny(in map[string]any) Metadata {
	if len(in) == 0 {
		return nil
	}

	md := make(Metadata, len(in))
	for k, raw := range in {
		switch val := raw.(type) {
		case string:
			md[k] = StringValue(val)
		case float64:
			md[k] = NumberValue(val)
		case int:
			md[k] = NumberValue(float64(val))
		case int64:
			md[k] = NumberValue(float64(val))
		case bool:
			md[k] = BoolValue(val)
		case time.Time:
			md[k] = TimeValue(val)
		}
	}
	return md
}

// Any returns the metadata as an untyped map.
func (m Metadata) Any() map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}

// Clone returns a shallow copy safe to mutate independently.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Record is one stored embedding with its content and metadata.
type Record struct {
	ID        string    `json:"id"`
	Vector    []float32 `json:"vector"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	Content   string    `json:"content"`
	Kind      Kind      `json:"kind"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone deep-copies the record so callers can't mutate indexed state.
func (r *Record) Clone() *Record {
	out := *r
	out.Vector = make([]float32, len(r.Vector))
	copy(out.Vector, r.Vector)
	out.Metadata = r.Metadata.Clone()
	return &out
}

// Query describes one similarity search. Either Vector or Text must be
// set; with both present the vector wins and text only informs context.
type Query struct {
	Vector []float32
	Text   string
	// Filters are exact-match predicates. The reserved keys "owner_id"
	// and "ownerId" match the record's owner rather than its metadata.
	Filters   Metadata
	Threshold *float64 // nil means DefaultThreshold
	Limit     int      // <= 0 means DefaultLimit
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Record *Record
	Score  float64
}

// UpdatePatch is a partial record mutation. Nil fields are left alone.
type UpdatePatch struct {
	Vector   []float32
	Content  *string
	Metadata Metadata
}

// Stats summarizes the store.
type Stats struct {
	Count       int   `json:"count"`
	Dimensions  int   `json:"dimensions"`
	MemoryBytes int64 `json:"memory_bytes"`
}
