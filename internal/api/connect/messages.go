package connect

import (
	"time"

	"github.com/osa030/playsync/internal/app/bridge"
	"github.com/osa030/playsync/internal/app/notification"
	"github.com/osa030/playsync/internal/domain/audio"
)

// Service and procedure names of the playback RPC surface.
const (
	PlaybackServiceName = "playsync.v1.PlaybackService"

	StartPlayingProcedure  = "/" + PlaybackServiceName + "/StartPlaying"
	StopPlayingProcedure   = "/" + PlaybackServiceName + "/StopPlaying"
	PauseOrResumeProcedure = "/" + PlaybackServiceName + "/PauseOrResume"
	GetStateProcedure      = "/" + PlaybackServiceName + "/GetState"
	WatchStateProcedure    = "/" + PlaybackServiceName + "/WatchState"
	GetHistoryProcedure    = "/" + PlaybackServiceName + "/GetHistory"
)

// Item is the wire form of audio.Item.
type Item struct {
	ID         string `json:"id,omitempty"`
	Title      string `json:"title,omitempty"`
	Source     string `json:"source"`
	Issue      string `json:"issue,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// ItemFromDomain converts an audio item to its wire form.
func ItemFromDomain(i *audio.Item) *Item {
	if i == nil {
		return nil
	}
	return &Item{
		ID:         i.ID,
		Title:      i.Title,
		Source:     i.Source,
		Issue:      i.Issue,
		DurationMs: i.Duration.Milliseconds(),
	}
}

// Domain converts the wire item back to an audio item.
func (i *Item) Domain() audio.Item {
	return audio.Item{
		ID:       i.ID,
		Title:    i.Title,
		Source:   i.Source,
		Issue:    i.Issue,
		Duration: time.Duration(i.DurationMs) * time.Millisecond,
	}
}

type StartPlayingRequest struct {
	Item *Item `json:"item"`
}

// StartPlayingResponse carries the filter verdict. Code is set on rejection.
type StartPlayingResponse struct {
	ItemID   string `json:"item_id"`
	Accepted bool   `json:"accepted"`
	Code     string `json:"code,omitempty"`
}

type StopPlayingRequest struct{}

type PauseOrResumeRequest struct{}

// CommandResponse reports whether a command reached a service.
// Accepted is false when no service was attached.
type CommandResponse struct {
	Accepted bool `json:"accepted"`
}

type GetStateRequest struct{}

type WatchStateRequest struct{}

// State mirrors the two observable cells.
type State struct {
	Item      *Item `json:"item,omitempty"`
	IsPlaying bool  `json:"is_playing"`
}

// StateFromSnapshot converts a bridge snapshot.
func StateFromSnapshot(s bridge.Snapshot) *State {
	return &State{Item: ItemFromDomain(s.Item), IsPlaying: s.IsPlaying}
}

type GetHistoryRequest struct{}

// Notification is the wire form of a broadcast notification.
type Notification struct {
	Kind       string    `json:"kind"`
	ServiceID  string    `json:"service_id,omitempty"`
	SequenceNo uint64    `json:"sequence_no"`
	SentAt     time.Time `json:"sent_at"`
}

// History lists recent notifications, oldest first.
type History struct {
	Notifications []*Notification `json:"notifications"`
}

// HistoryFromMessages converts recorded notifications.
func HistoryFromMessages(msgs []notification.Message) *History {
	h := &History{Notifications: make([]*Notification, 0, len(msgs))}
	for _, m := range msgs {
		h.Notifications = append(h.Notifications, &Notification{
			Kind:       m.Kind.String(),
			ServiceID:  m.ServiceID,
			SequenceNo: m.SequenceNo,
			SentAt:     m.SentAt,
		})
	}
	return h
}
