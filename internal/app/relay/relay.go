// Package relay forwards notifications to external transports for diagnostics.
package relay

import (
	"context"

	"github.com/osa030/playsync/internal/app/notification"
)

// Relay forwards a single notification somewhere outside the process.
type Relay interface {
	// Forward sends msg. Errors are reported by the caller, never retried.
	Forward(ctx context.Context, msg notification.Message) error

	// Name returns the relay type (used in config).
	Name() string
}

// Subscriber is the subscription side of the notification channel.
type Subscriber interface {
	Subscribe(r notification.Receiver) string
	Unsubscribe(id string)
}
