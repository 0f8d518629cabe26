// Package bridge mirrors the playback service state into observable cells.
//
// A Bridge subscribes to the notification channel when it is created and
// re-reads the service handle on every notification. Message payloads only
// say which transition happened; state values always come from the handle.
package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/osa030/playsync/internal/app/live"
	"github.com/osa030/playsync/internal/app/notification"
	"github.com/osa030/playsync/internal/app/player"
	"github.com/osa030/playsync/internal/domain/audio"
	"github.com/osa030/playsync/internal/infra/logger"
)

// Subscriber is the subscription side of the notification channel.
type Subscriber interface {
	Subscribe(r notification.Receiver) string
	Unsubscribe(subscriptionID string)
}

// Snapshot is a point-in-time copy of both cells.
type Snapshot struct {
	Item      *audio.Item
	IsPlaying bool
}

type handleBox struct {
	h player.Handle
}

// Bridge owns the currentItem and isPlaying cells for one observer context.
type Bridge struct {
	provider player.HandleProvider
	sink     player.CommandSink
	channel  Subscriber

	handle atomic.Pointer[handleBox]

	currentItem *live.Cell[*audio.Item]
	isPlaying   *live.Cell[bool]
	state       *live.Cell[Snapshot]

	// syncMu guards handle transitions and resyncs so all cells come
	// from the same handle read.
	syncMu sync.Mutex

	subscriptionID string
	closed         atomic.Bool
	closeOnce      sync.Once

	log zerolog.Logger
}

// New creates a bridge, subscribes to channel, then performs the initial
// resync from whatever the provider currently holds.
func New(provider player.HandleProvider, sink player.CommandSink, channel Subscriber) *Bridge {
	b := &Bridge{
		provider:    provider,
		sink:        sink,
		channel:     channel,
		currentItem: live.NewCell[*audio.Item](nil),
		isPlaying:   live.NewCell(false),
		state:       live.NewCell(Snapshot{}),
		log:         logger.Component("bridge"),
	}

	// Notifications received before the initial read queue on syncMu and
	// are applied after it.
	b.syncMu.Lock()
	defer b.syncMu.Unlock()

	b.subscriptionID = channel.Subscribe(notification.ReceiverFunc(b.receive))
	b.log.Debug().Msgf("subscribed: id=%s", b.subscriptionID)
	b.storeHandle(provider.Current())
	b.resyncLocked()
	return b
}

// CurrentItem returns the read-only current item cell. nil means nothing is loaded.
func (b *Bridge) CurrentItem() live.Observable[*audio.Item] {
	return b.currentItem.ReadOnly()
}

// IsPlaying returns the read-only play state cell.
func (b *Bridge) IsPlaying() live.Observable[bool] {
	return b.isPlaying.ReadOnly()
}

// State returns a read-only cell updated once per resync, after both
// individual cells.
func (b *Bridge) State() live.Observable[Snapshot] {
	return b.state.ReadOnly()
}

// Snapshot returns both values as written by the last resync.
func (b *Bridge) Snapshot() Snapshot {
	return b.state.Get()
}

// StartPlaying asks the command sink to play item. State follows through
// notifications, never directly.
func (b *Bridge) StartPlaying(item audio.Item) {
	b.log.Debug().Msgf("start playing: %s", item)
	b.sink.Start(item)
}

// StopPlaying stops the attached service; no-op without one.
func (b *Bridge) StopPlaying() {
	h := b.loadHandle()
	if h == nil {
		b.log.Debug().Msg("stop ignored: no service attached")
		return
	}
	h.Stop()
}

// PauseOrResume toggles the attached service; no-op without one.
func (b *Bridge) PauseOrResume() {
	h := b.loadHandle()
	if h == nil {
		b.log.Debug().Msg("pause/resume ignored: no service attached")
		return
	}
	h.PauseOrResume()
}

// Attached reports whether a service handle is currently held.
func (b *Bridge) Attached() bool {
	return b.loadHandle() != nil
}

// Close unsubscribes from the channel. Notifications still in flight
// afterwards are ignored. Safe to call more than once.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		b.channel.Unsubscribe(b.subscriptionID)
		b.log.Debug().Msgf("unsubscribed: id=%s", b.subscriptionID)
	})
}

func (b *Bridge) receive(msg notification.Message) {
	b.syncMu.Lock()
	defer b.syncMu.Unlock()

	if b.closed.Load() {
		return
	}

	switch msg.Kind {
	case notification.KindServicePreparing:
		b.storeHandle(b.provider.Current())
	case notification.KindServiceDestroyed:
		if h := b.loadHandle(); msg.ServiceID != "" && h != nil && h.ID() != msg.ServiceID {
			// A replaced instance finished tearing down after its successor
			// was announced.
			b.log.Warn().Msgf("destroyed service is not the held one, re-acquiring: service=%s held=%s", msg.ServiceID, h.ID())
			b.storeHandle(b.provider.Current())
			break
		}
		b.storeHandle(nil)
	case notification.KindPlayStateChanged:
		if h := b.loadHandle(); msg.ServiceID != "" && (h == nil || h.ID() != msg.ServiceID) {
			// The service was replaced without a preparing/destroyed pair
			// reaching us; the held handle is stale.
			b.log.Warn().Msgf("play state from unknown service, re-acquiring: service=%s", msg.ServiceID)
			b.storeHandle(b.provider.Current())
		}
	default:
		b.log.Warn().Msgf("ignoring notification: kind=%d", int(msg.Kind))
		return
	}

	b.resyncLocked()
}

// resyncLocked overwrites all cells from the held handle. syncMu must be held.
func (b *Bridge) resyncLocked() {
	if b.closed.Load() {
		return
	}

	var (
		item    *audio.Item
		playing bool
	)
	if h := b.loadHandle(); h != nil {
		item = h.Item()
		playing = h.IsPlaying()
	}

	b.currentItem.Set(item)
	b.isPlaying.Set(playing)
	b.state.Set(Snapshot{Item: item, IsPlaying: playing})

	if item != nil {
		b.log.Debug().Msgf("resync: item=%s playing=%t", item.ID, playing)
	} else {
		b.log.Debug().Msgf("resync: item=<none> playing=%t", playing)
	}
}

func (b *Bridge) loadHandle() player.Handle {
	if box := b.handle.Load(); box != nil {
		return box.h
	}
	return nil
}

func (b *Bridge) storeHandle(h player.Handle) {
	if h == nil {
		b.handle.Store(nil)
		return
	}
	b.handle.Store(&handleBox{h: h})
}
