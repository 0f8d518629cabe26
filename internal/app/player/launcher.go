package player

import (
	"context"
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playsync/internal/app/notification"
	"github.com/osa030/playsync/internal/domain/audio"
)

const defaultCommandBuffer = 16

// Launcher is the process-wide command sink that creates services.
// Commands are applied one at a time on its own goroutine.
type Launcher struct {
	config   Config
	registry *Registry
	poster   notification.Poster

	commands chan audio.Item

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
}

// Verify Launcher implements CommandSink at compile time.
var _ CommandSink = (*Launcher)(nil)

// NewLauncher creates a launcher and starts its command loop.
func NewLauncher(cfg Config, registry *Registry, poster notification.Poster) *Launcher {
	size := cfg.CommandBuffer
	if size <= 0 {
		size = defaultCommandBuffer
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Launcher{
		config:   cfg,
		registry: registry,
		poster:   poster,
		commands: make(chan audio.Item, size),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go l.loop()
	return l
}

// Start requests playback of item. Best effort: the command is dropped if
// the launcher is closed or its buffer is full.
func (l *Launcher) Start(item audio.Item) {
	select {
	case <-l.ctx.Done():
		zlog.Debug().Str("component", "launcher").Msgf("start dropped, launcher closed: item=%s", item.ID)
		return
	default:
	}

	select {
	case l.commands <- item:
	default:
		zlog.Warn().Str("component", "launcher").Msgf("start dropped, command buffer full: item=%s", item.ID)
	}
}

func (l *Launcher) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case item := <-l.commands:
			l.handleStart(item)
		}
	}
}

func (l *Launcher) handleStart(item audio.Item) {
	if svc, ok := l.registry.Current().(*Service); ok && svc.State() != StateDestroyed {
		zlog.Debug().Str("component", "launcher").Msgf("reusing service: service=%s item=%s", svc.ID(), item.ID)
		svc.prepare(item)
		return
	}

	svc := newService(uuid.New().String(), l.config, l.registry, l.poster)
	l.registry.Attach(svc)
	zlog.Info().Str("component", "launcher").Msgf("service created: service=%s", svc.ID())
	svc.prepare(item)
}

// Close stops the command loop and destroys the running service, if any.
func (l *Launcher) Close() {
	l.closeOnce.Do(func() {
		l.cancel()
		<-l.done
		if h := l.registry.Current(); h != nil {
			h.Stop()
		}
	})
}
