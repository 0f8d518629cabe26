package notification

import (
	"sync"

	zlog "github.com/rs/zerolog/log"
)

// subscription is an unbounded FIFO mailbox drained by one goroutine.
// Messages are never dropped while the subscription is open.
type subscription struct {
	id       string
	receiver Receiver

	mu     sync.Mutex
	queue  []Message
	closed bool

	wake chan struct{}
	done chan struct{}
}

func newSubscription(id string, r Receiver) *subscription {
	return &subscription{
		id:       id,
		receiver: r,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (s *subscription) push(msg Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, msg)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest message. ok is false when the queue is empty or the
// subscription has been stopped.
func (s *subscription) next() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(s.queue) == 0 {
		return Message{}, false
	}
	msg := s.queue[0]
	s.queue[0] = Message{}
	s.queue = s.queue[1:]
	return msg, true
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			msg, ok := s.next()
			if !ok {
				break
			}
			s.deliver(msg)
		}
	}
}

func (s *subscription) deliver(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Str("component", "notification").
				Msgf("receiver panicked: subscription=%s kind=%s panic=%v", s.id, msg.Kind, r)
		}
	}()
	s.receiver.Receive(msg)
}

func (s *subscription) stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
	close(s.done)
}
