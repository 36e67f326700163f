// Package snapshot defines the captured-state contract: the records the
// capture side produces and the restore side consumes. Any consumer (the
// engine, the stores, MCP clients) imports this package to read or write
// snapshots.
package snapshot

import (
	"time"

	"github.com/google/uuid"
)

// Version is the current wire version of a serialised Snapshot.
const Version = 1

// RectUnavailable is the geometry signature of an element that could not
// be measured.
const RectUnavailable = "no-rect"

// Snapshot is one flat capture of a tree. Immutable once produced.
type Snapshot struct {
	Version int    `json:"version"`
	ID      string `json:"id"`             // UUIDv7
	Slot    string `json:"slot,omitempty"` // storage slot, usually a page id
	PageURL string `json:"page_url,omitempty"`
	Time    int64  `json:"time"` // epoch milliseconds
	Nodes   []Node `json:"nodes"`
}

// Node is the captured record of one tracked element. Empty ID, ClassName
// and ComponentID mean the hint was absent. The pointer fields are only set
// for the element kinds that carry them.
type Node struct {
	Key         string  `json:"key"`
	Tag         string  `json:"tag"`
	ID          string  `json:"id,omitempty"`
	ClassName   string  `json:"class_name,omitempty"`
	Rect        string  `json:"rect"`
	ComponentID string  `json:"component_id,omitempty"`
	ScrollTop   float64 `json:"scroll_top"`
	ScrollLeft  float64 `json:"scroll_left"`

	Value         *string `json:"value,omitempty"`
	Checked       *bool   `json:"checked,omitempty"`
	SelectedIndex *int    `json:"selected_index,omitempty"`
	InnerHTML     *string `json:"inner_html,omitempty"`
	Caret         *Caret  `json:"caret,omitempty"`
	DataState     *string `json:"data_state,omitempty"`
}

// Caret is a caret or selection. Start and End are character offsets;
// the paths locate the text nodes holding them inside nested content and
// are absent for single-value controls.
type Caret struct {
	Start     int   `json:"start"`
	End       int   `json:"end"`
	StartPath []int `json:"start_path"`
	EndPath   []int `json:"end_path"`
}

// New returns an empty snapshot stamped with a fresh id and the current time.
func New(slot, pageURL string) *Snapshot {
	return &Snapshot{
		Version: Version,
		ID:      uuid.Must(uuid.NewV7()).String(),
		Slot:    slot,
		PageURL: pageURL,
		Time:    time.Now().UnixMilli(),
		Nodes:   []Node{},
	}
}

// Ptr returns a pointer to v, for the optional node fields.
func Ptr[T any](v T) *T { return &v }
