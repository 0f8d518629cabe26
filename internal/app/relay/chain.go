package relay

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playsync/internal/app/notification"
)

// DefaultForwardTimeout bounds a single Forward call.
const DefaultForwardTimeout = 5 * time.Second

// RelayWithMetadata wraps a relay with its metadata.
type RelayWithMetadata struct {
	Relay       Relay
	DisplayName string
}

// Chain hands every notification to each relay in order.
// One failing relay does not stop the rest.
type Chain struct {
	relays  []RelayWithMetadata
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	channel        Subscriber
	subscriptionID string
	closed         bool
}

// NewChain creates a new relay chain.
func NewChain(relays []RelayWithMetadata) *Chain {
	ctx, cancel := context.WithCancel(context.Background())
	return &Chain{
		relays:  relays,
		timeout: DefaultForwardTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Len returns the number of relays.
func (c *Chain) Len() int {
	return len(c.relays)
}

// Attach subscribes the chain to the notification channel.
// A chain can be attached once; later calls are ignored.
func (c *Chain) Attach(channel Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.channel != nil || len(c.relays) == 0 {
		return
	}
	c.channel = channel
	c.subscriptionID = channel.Subscribe(c)
}

// Receive implements notification.Receiver.
func (c *Chain) Receive(msg notification.Message) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()
	if err := c.Forward(ctx, msg); err != nil {
		zlog.Warn().Str("component", "relay").Msgf("relay chain: %v", err)
	}
}

// Forward sends msg to every relay and joins their errors.
func (c *Chain) Forward(ctx context.Context, msg notification.Message) error {
	var errs []error
	for i, rm := range c.relays {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "relay chain canceled")
		}
		if err := rm.Relay.Forward(ctx, msg); err != nil {
			zlog.Warn().Str("component", "relay").Msgf("relay failed, trying next: index=%d relay=%s error=%v", i+1, rm.DisplayName, err)
			errs = append(errs, errors.Wrapf(err, "relay %s", rm.DisplayName))
			continue
		}
		zlog.Debug().Str("component", "relay").Msgf("relayed: relay=%s kind=%s seq=%d", rm.DisplayName, msg.Kind, msg.SequenceNo)
	}
	return errors.Join(errs...)
}

// Close detaches from the channel and closes relays holding resources.
func (c *Chain) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	channel, id := c.channel, c.subscriptionID
	c.mu.Unlock()

	if channel != nil {
		channel.Unsubscribe(id)
	}
	c.cancel()

	var errs []error
	for _, rm := range c.relays {
		if closer, ok := rm.Relay.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, errors.Wrapf(err, "close relay %s", rm.DisplayName))
			}
		}
	}
	return errors.Join(errs...)
}
