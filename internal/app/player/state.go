package player

// State represents the playback service state.
type State int

const (
	StatePreparing State = iota // Item accepted, engine preparing
	StatePlaying                // Item is playing
	StatePaused                 // Item is paused
	StateDestroyed              // Service is gone
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePreparing:
		return "preparing"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}
