package votes

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrInvalidRecord is returned when a record is not valid JSON.
var ErrInvalidRecord = errors.New("invalid vote record")

// Record is one server-side vote or rating entry. The remote API owns the
// record shape, so the raw JSON value is kept as-is and re-encoded unchanged.
type Record json.RawMessage

// Vote is a record in one of the vote categories.
type Vote = Record

// Rating is a record in one of the rating categories.
type Rating = Record

// NewRecord validates raw as a JSON value and returns it as a Record.
func NewRecord(raw []byte) (Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) {
		return nil, ErrInvalidRecord
	}
	out := make(Record, len(raw))
	copy(out, raw)
	return out, nil
}

// MustRecord is NewRecord for literals in tests and examples.
func MustRecord(raw string) Record {
	r, err := NewRecord([]byte(raw))
	if err != nil {
		panic(err)
	}
	return r
}

// MarshalJSON returns the raw record bytes, or null for an empty record.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON stores a copy of data.
func (r *Record) UnmarshalJSON(data []byte) error {
	if r == nil {
		return errors.New("votes: UnmarshalJSON on nil pointer")
	}
	*r = append((*r)[0:0], data...)
	return nil
}

// String returns the record's JSON text.
func (r Record) String() string {
	return string(r)
}

// Equal reports whether two records carry the same JSON text after
// whitespace trimming.
func (r Record) Equal(other Record) bool {
	return bytes.Equal(bytes.TrimSpace(r), bytes.TrimSpace(other))
}

func (r Record) clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	copy(out, r)
	return out
}

// Snapshot is the last-fetched set of the user's votes and ratings. A
// successful fetch replaces the whole snapshot; categories are never merged.
type Snapshot struct {
	ResultVotes    []Vote   `json:"resultVotes"`
	WarningVotes   []Vote   `json:"warningVotes"`
	ResultRatings  []Rating `json:"resultRatings"`
	WarningRatings []Rating `json:"warningRatings"`
}

// Empty returns a snapshot whose four categories are empty, non-nil slices.
func Empty() Snapshot {
	return Snapshot{
		ResultVotes:    []Vote{},
		WarningVotes:   []Vote{},
		ResultRatings:  []Rating{},
		WarningRatings: []Rating{},
	}
}

// Normalize replaces nil categories (null or missing in the response) with
// empty slices.
func (s Snapshot) Normalize() Snapshot {
	if s.ResultVotes == nil {
		s.ResultVotes = []Vote{}
	}
	if s.WarningVotes == nil {
		s.WarningVotes = []Vote{}
	}
	if s.ResultRatings == nil {
		s.ResultRatings = []Rating{}
	}
	if s.WarningRatings == nil {
		s.WarningRatings = []Rating{}
	}
	return s
}

// Clone deep-copies the snapshot so callers never share backing arrays with
// the session state.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		ResultVotes:    cloneRecords(s.ResultVotes),
		WarningVotes:   cloneRecords(s.WarningVotes),
		ResultRatings:  cloneRecords(s.ResultRatings),
		WarningRatings: cloneRecords(s.WarningRatings),
	}.Normalize()
}

// Len returns the total number of records across all categories.
func (s Snapshot) Len() int {
	return len(s.ResultVotes) + len(s.WarningVotes) + len(s.ResultRatings) + len(s.WarningRatings)
}

// IsEmpty reports whether no category holds a record.
func (s Snapshot) IsEmpty() bool {
	return s.Len() == 0
}

// Counts returns per-category sizes keyed by JSON field name.
func (s Snapshot) Counts() map[string]int {
	return map[string]int{
		"resultVotes":    len(s.ResultVotes),
		"warningVotes":   len(s.WarningVotes),
		"resultRatings":  len(s.ResultRatings),
		"warningRatings": len(s.WarningRatings),
	}
}

// Equal reports whether both snapshots hold the same records in the same
// order. Nil and empty categories compare equal.
func (s Snapshot) Equal(other Snapshot) bool {
	return recordsEqual(s.ResultVotes, other.ResultVotes) &&
		recordsEqual(s.WarningVotes, other.WarningVotes) &&
		recordsEqual(s.ResultRatings, other.ResultRatings) &&
		recordsEqual(s.WarningRatings, other.WarningRatings)
}

func recordsEqual(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Decode parses a response body into a normalized snapshot.
func Decode(body []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(body, &s); err != nil {
		return Snapshot{}, err
	}
	return s.Normalize(), nil
}

func cloneRecords(in []Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.clone()
	}
	return out
}
