package notification

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// ErrClosed is returned when broadcasting on a closed manager.
var ErrClosed = errors.New("notification manager is closed")

// Receiver receives notifications for one subscription.
// Calls for a single subscription never overlap and arrive in broadcast order.
type Receiver interface {
	Receive(Message)
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(Message)

// Receive calls f(m).
func (f ReceiverFunc) Receive(m Message) { f(m) }

// Poster is the write side of the channel used by the playback service.
type Poster interface {
	Post(kind Kind, serviceID string)
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	// mu also orders broadcasts: sequence numbers are assigned and queued
	// under the same lock.
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	closed        bool
	sequenceNo    uint64

	historyMu   sync.Mutex
	history     []Message
	historySize int
}

// Verify Manager implements Poster at compile time.
var _ Poster = (*Manager)(nil)

// NewManager creates a new notification manager keeping the last historySize
// messages for diagnostics.
func NewManager(historySize int) *Manager {
	if historySize < 0 {
		historySize = 0
	}
	return &Manager{
		subscriptions: make(map[string]*subscription),
		historySize:   historySize,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
// Messages broadcast before Subscribe returns are not delivered.
func (m *Manager) Subscribe(r Receiver) string {
	sub := newSubscription(uuid.New().String(), r)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		// Nothing will ever be delivered; hand back an ID that Unsubscribe ignores.
		sub.stop()
		return sub.id
	}

	m.subscriptions[sub.id] = sub
	go sub.run()

	zlog.Debug().Str("component", "notification").Msgf("subscribed: id=%s", sub.id)
	return sub.id
}

// Unsubscribe removes a subscription. Pending messages are discarded.
// Unknown or already removed IDs are ignored.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	sub, ok := m.subscriptions[subscriptionID]
	delete(m.subscriptions, subscriptionID)
	m.mu.Unlock()

	if !ok {
		return
	}
	sub.stop()
	zlog.Debug().Str("component", "notification").Msgf("unsubscribed: id=%s", subscriptionID)
}

// Broadcast queues msg for every current subscriber. It never blocks on a
// slow receiver.
func (m *Manager) Broadcast(msg Message) error {
	if !msg.Kind.Valid() {
		return errors.Wrapf(ErrUnknownKind, "%d", int(msg.Kind))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.sequenceNo++
	msg.SequenceNo = m.sequenceNo
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}

	m.record(msg)

	zlog.Debug().Str("component", "notification").
		Msgf("broadcast: kind=%s service_id=%s seq=%d subscribers=%d", msg.Kind, msg.ServiceID, msg.SequenceNo, len(m.subscriptions))

	// push never blocks.
	for _, sub := range m.subscriptions {
		sub.push(msg)
	}
	return nil
}

// Post broadcasts a message of the given kind. Errors are logged.
func (m *Manager) Post(kind Kind, serviceID string) {
	if err := m.Broadcast(New(kind, serviceID)); err != nil {
		zlog.Warn().Str("component", "notification").Msgf("failed to post %s: %v", kind, err)
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Recent returns a copy of the most recent broadcasts, oldest first.
func (m *Manager) Recent() []Message {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	result := make([]Message, len(m.history))
	copy(result, m.history)
	return result
}

func (m *Manager) record(msg Message) {
	if m.historySize == 0 {
		return
	}
	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	m.history = append(m.history, msg)
	if len(m.history) > m.historySize {
		m.history = m.history[len(m.history)-m.historySize:]
	}
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	subs := m.subscriptions
	m.subscriptions = make(map[string]*subscription)
	m.closed = true
	m.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}
