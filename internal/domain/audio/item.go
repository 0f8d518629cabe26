// Package audio provides the audio Item domain value.
package audio

import (
	"fmt"
	"time"
)

// Item identifies what is (or was) being played.
// Items are values: copy them, never mutate a shared one.
type Item struct {
	ID       string        // Stable identifier (article or episode ID)
	Title    string        // Display title
	Source   string        // Stream or file URL
	Issue    string        // Issue/collection the item belongs to (optional)
	Duration time.Duration // Known duration, zero if unknown
}

// Equal reports whether two items identify the same playback.
func (i Item) Equal(other Item) bool {
	return i.ID == other.ID && i.Source == other.Source
}

// DisplayName returns a human readable label.
func (i Item) DisplayName() string {
	switch {
	case i.Title != "" && i.Issue != "":
		return fmt.Sprintf("%s (%s)", i.Title, i.Issue)
	case i.Title != "":
		return i.Title
	case i.ID != "":
		return i.ID
	default:
		return i.Source
	}
}

// String implements fmt.Stringer for log output.
func (i Item) String() string {
	return fmt.Sprintf("Item{id=%s title=%q duration=%v}", i.ID, i.Title, i.Duration)
}

// Ptr returns a pointer to a copy of the item.
func (i Item) Ptr() *Item {
	c := i
	return &c
}
