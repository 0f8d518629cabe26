// Package notification provides the in-process notification channel between
// the playback service and its observers.
package notification

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Kind represents a notification kind.
type Kind int

const (
	KindServicePreparing Kind = iota + 1 // Service (re)started and is preparing an item
	KindServiceDestroyed                 // Service instance went away
	KindPlayStateChanged                 // Play/pause state changed on the current service
)

// ErrUnknownKind is returned when a kind name cannot be parsed.
var ErrUnknownKind = errors.New("unknown notification kind")

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindServicePreparing:
		return "service_preparing"
	case KindServiceDestroyed:
		return "service_destroyed"
	case KindPlayStateChanged:
		return "play_state_changed"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k >= KindServicePreparing && k <= KindPlayStateChanged
}

// ParseKind parses the string form produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "service_preparing":
		return KindServicePreparing, nil
	case "service_destroyed":
		return KindServiceDestroyed, nil
	case "play_state_changed":
		return KindPlayStateChanged, nil
	default:
		return 0, errors.Wrapf(ErrUnknownKind, "%q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, errors.Wrapf(ErrUnknownKind, "%d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Message is a single notification.
// Only Kind matters for state; the rest is diagnostic metadata.
type Message struct {
	Kind       Kind      `json:"kind"`
	ServiceID  string    `json:"service_id,omitempty"` // Instance that posted the message
	SequenceNo uint64    `json:"sequence_no"`
	SentAt     time.Time `json:"sent_at"`
}

// New creates a message of the given kind.
func New(kind Kind, serviceID string) Message {
	return Message{Kind: kind, ServiceID: serviceID}
}
