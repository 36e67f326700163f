package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrVersion is returned when a serialised snapshot carries a version this
// build cannot read.
var ErrVersion = errors.New("snapshot: unsupported version")

// Marshal serialises a Snapshot to JSON.
func Marshal(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, errors.New("snapshot: marshal nil snapshot")
	}
	return json.Marshal(s)
}

// Unmarshal deserialises a Snapshot from JSON and checks its version.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, s.Version)
	}
	if s.Nodes == nil {
		s.Nodes = []Node{}
	}
	return &s, nil
}
