// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playsync/internal/app/bridge"
	"github.com/osa030/playsync/internal/app/filter"
	"github.com/osa030/playsync/internal/app/notification"
	"github.com/osa030/playsync/internal/app/player"
)

// maxQueuedStates bounds the snapshots a watch stream keeps for a slow
// client. Past it the backlog collapses to the latest snapshot.
const maxQueuedStates = 64

// HistorySource exposes recently broadcast notifications.
type HistorySource interface {
	Recent() []notification.Message
}

// PlaybackService implements the PlaybackService RPC.
// Unary calls share one bridge; every WatchState stream gets its own.
type PlaybackService struct {
	provider player.HandleProvider
	sink     player.CommandSink
	channel  bridge.Subscriber

	bridge  *bridge.Bridge
	filters *filter.Chain
	history HistorySource

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a PlaybackService.
type Option func(*PlaybackService)

// WithFilters runs chain on every StartPlaying before it reaches the launcher.
func WithFilters(chain *filter.Chain) Option {
	return func(s *PlaybackService) {
		s.filters = chain
	}
}

// WithHistory serves GetHistory from src.
func WithHistory(src HistorySource) Option {
	return func(s *PlaybackService) {
		s.history = src
	}
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(provider player.HandleProvider, sink player.CommandSink, channel bridge.Subscriber, opts ...Option) *PlaybackService {
	s := &PlaybackService{
		provider: provider,
		sink:     sink,
		channel:  channel,
		bridge:   bridge.New(provider, sink, channel),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartPlaying forwards the item to the launcher.
func (s *PlaybackService) StartPlaying(
	ctx context.Context,
	req *connect.Request[StartPlayingRequest],
) (*connect.Response[StartPlayingResponse], error) {
	if req.Msg.Item == nil || req.Msg.Item.Source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("item.source is required"))
	}
	if req.Msg.Item.DurationMs < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.Newf("invalid duration_ms: %d", req.Msg.Item.DurationMs))
	}

	// Filters see the item as requested; an ID is only generated once it is accepted.
	item := req.Msg.Item.Domain()
	if result := s.filters.Execute(ctx, item); !result.Accepted {
		return connect.NewResponse(&StartPlayingResponse{ItemID: item.ID, Code: result.Code}), nil
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	s.bridge.StartPlaying(item)

	return connect.NewResponse(&StartPlayingResponse{ItemID: item.ID, Accepted: true}), nil
}

// StopPlaying stops the attached service, if any.
func (s *PlaybackService) StopPlaying(
	ctx context.Context,
	req *connect.Request[StopPlayingRequest],
) (*connect.Response[CommandResponse], error) {
	accepted := s.bridge.Attached()
	s.bridge.StopPlaying()
	return connect.NewResponse(&CommandResponse{Accepted: accepted}), nil
}

// PauseOrResume toggles the attached service, if any.
func (s *PlaybackService) PauseOrResume(
	ctx context.Context,
	req *connect.Request[PauseOrResumeRequest],
) (*connect.Response[CommandResponse], error) {
	accepted := s.bridge.Attached()
	s.bridge.PauseOrResume()
	return connect.NewResponse(&CommandResponse{Accepted: accepted}), nil
}

// GetState returns the shared bridge's snapshot.
func (s *PlaybackService) GetState(
	ctx context.Context,
	req *connect.Request[GetStateRequest],
) (*connect.Response[State], error) {
	return connect.NewResponse(StateFromSnapshot(s.bridge.Snapshot())), nil
}

// GetHistory returns the most recent notifications, oldest first. It is
// empty when no history source is configured.
func (s *PlaybackService) GetHistory(
	ctx context.Context,
	req *connect.Request[GetHistoryRequest],
) (*connect.Response[History], error) {
	var msgs []notification.Message
	if s.history != nil {
		msgs = s.history.Recent()
	}
	return connect.NewResponse(HistoryFromMessages(msgs)), nil
}

// WatchState streams the current state, then one message per resync.
func (s *PlaybackService) WatchState(
	ctx context.Context,
	req *connect.Request[WatchStateRequest],
	stream *connect.ServerStream[State],
) error {
	b := bridge.New(s.provider, s.sink, s.channel)
	defer b.Close()

	q := newStateQueue()
	cancel := b.State().Subscribe(q.push)
	defer cancel()

	zlog.Debug().Str("component", "rpc").Msg("watch stream opened")
	defer zlog.Debug().Str("component", "rpc").Msg("watch stream closed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-q.wake:
		}
		for _, snap := range q.drain() {
			if err := stream.Send(StateFromSnapshot(snap)); err != nil {
				return err
			}
		}
	}
}

// Close ends open streams and releases the shared bridge.
func (s *PlaybackService) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.bridge.Close()
	})
}

// stateQueue hands snapshots from cell callbacks to the stream goroutine.
// push never blocks since it runs inside the cell's delivery. It holds at
// most maxQueuedStates snapshots and always keeps the latest one.
type stateQueue struct {
	mu    sync.Mutex
	items []bridge.Snapshot
	wake  chan struct{}
}

func newStateQueue() *stateQueue {
	return &stateQueue{wake: make(chan struct{}, 1)}
}

func (q *stateQueue) push(s bridge.Snapshot) {
	q.mu.Lock()
	if len(q.items) >= maxQueuedStates {
		zlog.Debug().Str("component", "rpc").Msgf("watch stream behind, dropping %d queued states", len(q.items))
		q.items = q.items[:0]
	}
	q.items = append(q.items, s)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *stateQueue) drain() []bridge.Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
