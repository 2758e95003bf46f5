package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateSpot is returned by Snapshot.Validate when a spot id repeats.
var ErrDuplicateSpot = errors.New("duplicate spot id")

// SpotStatus is the occupancy state of one spot.
type SpotStatus struct {
	ID       string `json:"id"`
	Occupied bool   `json:"occupied"`
}

// UnmarshalJSON accepts {"id","occupied"} as well as the camera feed form
// {"id","status":"occupied"|"available"}. Numeric ids are kept as their
// decimal text.
func (s *SpotStatus) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       json.RawMessage `json:"id"`
		Occupied *bool           `json:"occupied"`
		Status   *string         `json:"status"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	id, err := spotID(raw.ID)
	if err != nil {
		return err
	}
	var occupied bool
	switch {
	case raw.Occupied != nil:
		occupied = *raw.Occupied
	case raw.Status != nil:
		switch strings.ToLower(strings.TrimSpace(*raw.Status)) {
		case "occupied", "ocupado", "taken":
			occupied = true
		case "available", "free", "libre", "empty":
			occupied = false
		default:
			return fmt.Errorf("spot %s: unknown status %q", id, *raw.Status)
		}
	default:
		return fmt.Errorf("spot %s: missing occupied/status", id)
	}
	s.ID = id
	s.Occupied = occupied
	return nil
}

func spotID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New("spot id is required")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", errors.New("spot id is required")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("spot id: %w", err)
	}
	return n.String(), nil
}

// Snapshot is the complete occupancy state of a lot. Each update replaces the
// previous snapshot wholesale.
type Snapshot []SpotStatus

// Clone returns a copy that never aliases s. The copy of an empty or nil
// snapshot is an empty, non-nil slice so it serializes as [].
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}

// Validate reports ErrDuplicateSpot when two entries share an id.
func (s Snapshot) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for _, spot := range s {
		if _, ok := seen[spot.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateSpot, spot.ID)
		}
		seen[spot.ID] = struct{}{}
	}
	return nil
}

// Occupied counts occupied spots.
func (s Snapshot) Occupied() int {
	n := 0
	for _, spot := range s {
		if spot.Occupied {
			n++
		}
	}
	return n
}

// Board holds the last-known occupancy snapshot. It is not safe for
// concurrent use on its own; the Hub serializes access.
type Board struct {
	current Snapshot
}

// NewBoard returns a board holding an empty snapshot.
func NewBoard() *Board {
	return &Board{current: Snapshot{}}
}

// Replace stores next as the current snapshot. Nothing from the previous
// snapshot survives.
func (b *Board) Replace(next Snapshot) {
	b.current = next.Clone()
}

// Current returns a copy of the stored snapshot.
func (b *Board) Current() Snapshot {
	return b.current.Clone()
}
