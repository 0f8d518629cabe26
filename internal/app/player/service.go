package player

import (
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playsync/internal/app/notification"
	"github.com/osa030/playsync/internal/domain/audio"
)

// Config holds service configuration.
type Config struct {
	PrepareDelay    time.Duration // Simulated engine preparation time
	DefaultDuration time.Duration // Used for items without a known duration
	CommandBuffer   int           // Pending start commands kept by the launcher
}

// Service is a single playback service instance.
// Every state transition posts a notification; observers re-read state
// through the Handle methods.
type Service struct {
	mu sync.RWMutex

	id     string
	config Config

	item  *audio.Item
	state State

	// Playback timing
	startTime     time.Time
	pausedAt      *time.Time
	pausedElapsed time.Duration

	// Timers
	prepareCancel func()
	trackCancel   func()

	registry *Registry
	poster   notification.Poster
}

// Verify Service implements Handle at compile time.
var _ Handle = (*Service)(nil)

func newService(id string, cfg Config, registry *Registry, poster notification.Poster) *Service {
	return &Service{
		id:       id,
		config:   cfg,
		state:    StatePreparing,
		registry: registry,
		poster:   poster,
	}
}

// ID returns the instance ID.
func (s *Service) ID() string {
	return s.id
}

// Item returns a copy of the current item, or nil.
func (s *Service) Item() *audio.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.item == nil {
		return nil
	}
	return s.item.Ptr()
}

// IsPlaying returns true while the item is audibly playing.
func (s *Service) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StatePlaying
}

// State returns the current state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) positionLocked() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	now := toWallTime(time.Now())
	elapsed := now.Sub(s.startTime) - s.pausedElapsed
	if s.state == StatePaused && s.pausedAt != nil {
		elapsed -= now.Sub(*s.pausedAt)
	}
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// prepare switches the service to item and posts ServicePreparing.
// Playback starts once the preparation delay has passed.
func (s *Service) prepare(item audio.Item) {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}
	s.cancelTimersLocked()
	s.item = item.Ptr()
	s.state = StatePreparing
	s.startTime = time.Time{}
	s.pausedAt = nil
	s.pausedElapsed = 0

	delay := s.config.PrepareDelay
	if delay > 0 {
		s.prepareCancel = startWallClockTimer(delay, func() {
			s.onPrepared(item)
		})
	}
	s.mu.Unlock()

	zlog.Info().Str("component", "player").Msgf("preparing: service=%s item=%s", s.id, item.DisplayName())
	s.poster.Post(notification.KindServicePreparing, s.id)

	if delay <= 0 {
		s.onPrepared(item)
	}
}

func (s *Service) onPrepared(item audio.Item) {
	s.mu.Lock()
	s.prepareCancel = nil
	// A newer prepare or a stop may have raced with the timer.
	if s.state != StatePreparing || s.item == nil || !s.item.Equal(item) {
		s.mu.Unlock()
		return
	}
	s.state = StatePlaying
	s.startTime = toWallTime(time.Now())
	s.startTrackTimerLocked(s.durationLocked())
	s.mu.Unlock()

	zlog.Debug().Str("component", "player").Msgf("playing: service=%s item=%s", s.id, item.ID)
	s.poster.Post(notification.KindPlayStateChanged, s.id)
}

// PauseOrResume toggles between playing and paused.
// It is a no-op while preparing or after destruction.
func (s *Service) PauseOrResume() {
	s.mu.Lock()
	switch s.state {
	case StatePlaying:
		s.pauseLocked()
	case StatePaused:
		if !s.resumeLocked() {
			s.mu.Unlock()
			s.finish()
			return
		}
	default:
		state := s.state
		s.mu.Unlock()
		zlog.Debug().Str("component", "player").Msgf("toggle ignored: service=%s state=%s", s.id, state)
		return
	}
	state := s.state
	s.mu.Unlock()

	zlog.Info().Str("component", "player").Msgf("play state changed: service=%s state=%s", s.id, state)
	s.poster.Post(notification.KindPlayStateChanged, s.id)
}

func (s *Service) pauseLocked() {
	if s.trackCancel != nil {
		s.trackCancel()
		s.trackCancel = nil
	}
	now := toWallTime(time.Now())
	s.pausedAt = &now
	s.state = StatePaused
}

// resumeLocked reports false when nothing is left to play.
func (s *Service) resumeLocked() bool {
	if s.pausedAt != nil {
		s.pausedElapsed += toWallTime(time.Now()).Sub(*s.pausedAt)
	}
	s.pausedAt = nil
	s.state = StatePlaying

	remaining := s.durationLocked() - s.positionLocked()
	if remaining <= 0 {
		return false
	}
	s.startTrackTimerLocked(remaining)
	return true
}

// Stop destroys the service.
func (s *Service) Stop() {
	s.destroy("stopped")
}

func (s *Service) finish() {
	s.destroy("finished")
}

func (s *Service) destroy(reason string) {
	s.mu.Lock()
	if s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}
	s.cancelTimersLocked()
	s.state = StateDestroyed
	s.mu.Unlock()

	// Detach before posting so observers re-reading the registry see absence.
	s.registry.Detach(s)

	zlog.Info().Str("component", "player").Msgf("destroyed: service=%s reason=%s", s.id, reason)
	s.poster.Post(notification.KindServiceDestroyed, s.id)
}

func (s *Service) durationLocked() time.Duration {
	if s.item != nil && s.item.Duration > 0 {
		return s.item.Duration
	}
	return s.config.DefaultDuration
}

func (s *Service) startTrackTimerLocked(d time.Duration) {
	if s.trackCancel != nil {
		s.trackCancel()
	}
	s.trackCancel = startWallClockTimer(d, s.finish)
}

func (s *Service) cancelTimersLocked() {
	if s.prepareCancel != nil {
		s.prepareCancel()
		s.prepareCancel = nil
	}
	if s.trackCancel != nil {
		s.trackCancel()
		s.trackCancel = nil
	}
}
