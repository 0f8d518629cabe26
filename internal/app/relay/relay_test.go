package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playsync/internal/app/notification"
	"github.com/osa030/playsync/internal/infra/config"
)

type published struct {
	subject string
	data    []byte
	headers map[string]string
}

type fakeClient struct {
	mu        sync.Mutex
	msgs      []published
	err       error
	cleanedUp int
}

func (c *fakeClient) Publish(subject string, data []byte, headers map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, published{subject: subject, data: data, headers: headers})
	return nil
}

func (c *fakeClient) published() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.msgs...)
}

func (c *fakeClient) dialer(seen *NATSRelayConfig) Dialer {
	return func(cfg NATSRelayConfig) (Client, func(), error) {
		if seen != nil {
			*seen = cfg
		}
		return c, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.cleanedUp++
		}, nil
	}
}

type recordingRelay struct {
	mu   sync.Mutex
	msgs []notification.Message
	err  error
}

func (r *recordingRelay) Forward(_ context.Context, msg notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func (r *recordingRelay) Name() string { return "recording" }

func (r *recordingRelay) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestNATSRelay_Defaults(t *testing.T) {
	client := &fakeClient{}
	var seen NATSRelayConfig

	r, err := NewNATSRelay(map[string]any{"url": "nats://localhost:4222"}, client.dialer(&seen))
	require.NoError(t, err)

	assert.Equal(t, "nats", r.Name())
	assert.Equal(t, "nats://localhost:4222", seen.URL)
	assert.Equal(t, "playsync", seen.ClientName)
	assert.Equal(t, 2*time.Second, seen.connTimeout())
	assert.Equal(t, "playsync.notifications.service_preparing", r.Subject(notification.KindServicePreparing))
}

func TestNATSRelay_RequiresURL(t *testing.T) {
	_, err := NewNATSRelay(map[string]any{}, (&fakeClient{}).dialer(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestNATSRelay_DialError(t *testing.T) {
	dial := func(NATSRelayConfig) (Client, func(), error) {
		return nil, nil, errors.New("connection refused")
	}
	_, err := NewNATSRelay(map[string]any{"url": "nats://nowhere:1"}, dial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNATSRelay_Forward(t *testing.T) {
	client := &fakeClient{}
	r, err := NewNATSRelay(map[string]any{
		"url":            "nats://localhost:4222",
		"subject_prefix": "test",
	}, client.dialer(nil))
	require.NoError(t, err)

	msg := notification.New(notification.KindPlayStateChanged, "svc-1")
	msg.SequenceNo = 7
	require.NoError(t, r.Forward(context.Background(), msg))

	got := client.published()
	require.Len(t, got, 1)
	assert.Equal(t, "test.play_state_changed", got[0].subject)
	assert.Equal(t, "play_state_changed", got[0].headers[HeaderKind])
	assert.Equal(t, "7", got[0].headers[HeaderSequence])
	assert.Equal(t, "svc-1", got[0].headers[HeaderServiceID])

	var decoded notification.Message
	require.NoError(t, json.Unmarshal(got[0].data, &decoded))
	assert.Equal(t, notification.KindPlayStateChanged, decoded.Kind)
	assert.Equal(t, "svc-1", decoded.ServiceID)
	assert.Equal(t, uint64(7), decoded.SequenceNo)
}

func TestNATSRelay_ForwardWithoutServiceID(t *testing.T) {
	client := &fakeClient{}
	r, err := NewNATSRelay(map[string]any{"url": "nats://localhost:4222"}, client.dialer(nil))
	require.NoError(t, err)

	require.NoError(t, r.Forward(context.Background(), notification.New(notification.KindServiceDestroyed, "")))
	got := client.published()
	require.Len(t, got, 1)
	_, ok := got[0].headers[HeaderServiceID]
	assert.False(t, ok)
}

func TestNATSRelay_ForwardErrors(t *testing.T) {
	client := &fakeClient{}
	r, err := NewNATSRelay(map[string]any{"url": "nats://localhost:4222"}, client.dialer(nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Forward(ctx, notification.New(notification.KindServiceDestroyed, "")), context.Canceled)

	client.err = errors.New("broken pipe")
	err = r.Forward(context.Background(), notification.New(notification.KindServiceDestroyed, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestNATSRelay_CloseOnce(t *testing.T) {
	client := &fakeClient{}
	r, err := NewNATSRelay(map[string]any{"url": "nats://localhost:4222"}, client.dialer(nil))
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, 1, client.cleanedUp)
}

func TestLogRelay(t *testing.T) {
	r, err := NewLogRelay(nil)
	require.NoError(t, err)
	assert.Equal(t, "log", r.Name())
	assert.NoError(t, r.Forward(context.Background(), notification.New(notification.KindServicePreparing, "svc")))

	_, err = NewLogRelay(map[string]any{"level": "fatal"})
	require.Error(t, err)
}

func TestChain_ContinuesPastFailures(t *testing.T) {
	failing := &recordingRelay{err: errors.New("down")}
	ok := &recordingRelay{}
	chain := NewChain([]RelayWithMetadata{
		{Relay: failing, DisplayName: "first"},
		{Relay: ok, DisplayName: "second"},
	})

	err := chain.Forward(context.Background(), notification.New(notification.KindServiceDestroyed, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, ok.count())
}

func TestChain_AttachedToManager(t *testing.T) {
	manager := notification.NewManager(0)
	defer manager.Close()

	rec := &recordingRelay{}
	chain := NewChain([]RelayWithMetadata{{Relay: rec, DisplayName: "rec"}})
	chain.Attach(manager)
	chain.Attach(manager)
	assert.Equal(t, 1, manager.SubscriberCount())

	manager.Post(notification.KindServicePreparing, "svc")
	manager.Post(notification.KindPlayStateChanged, "svc")
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, chain.Close())
	require.NoError(t, chain.Close())
	assert.Equal(t, 0, manager.SubscriberCount())

	manager.Post(notification.KindServiceDestroyed, "svc")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, rec.count())
}

func TestChain_EmptyDoesNotSubscribe(t *testing.T) {
	manager := notification.NewManager(0)
	defer manager.Close()

	chain := NewChain(nil)
	chain.Attach(manager)
	assert.Equal(t, 0, manager.SubscriberCount())
	assert.Equal(t, 0, chain.Len())
	assert.NoError(t, chain.Close())
}

func TestNewChainFromConfig(t *testing.T) {
	client := &fakeClient{}
	chain, err := NewChainFromConfig([]config.RelayConfig{
		{Type: "log"},
		{Type: "nats", Name: "bus", Settings: map[string]any{"url": "nats://localhost:4222"}},
	}, client.dialer(nil))
	require.NoError(t, err)
	require.Equal(t, 2, chain.Len())
	assert.Equal(t, "log", chain.relays[0].DisplayName)
	assert.Equal(t, "bus", chain.relays[1].DisplayName)

	require.NoError(t, chain.Forward(context.Background(), notification.New(notification.KindPlayStateChanged, "")))
	assert.Len(t, client.published(), 1)

	require.NoError(t, chain.Close())
	assert.Equal(t, 1, client.cleanedUp)
}

func TestNewChainFromConfig_Errors(t *testing.T) {
	client := &fakeClient{}

	_, err := NewChainFromConfig([]config.RelayConfig{{Type: "kafka"}}, client.dialer(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported relay type")

	// Relays created before the failure are released.
	_, err = NewChainFromConfig([]config.RelayConfig{
		{Type: "nats", Settings: map[string]any{"url": "nats://localhost:4222"}},
		{Type: "nats"},
	}, client.dialer(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 1")
	assert.Equal(t, 1, client.cleanedUp)
}

func TestNewChainFromConfig_Empty(t *testing.T) {
	chain, err := NewChainFromConfig(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, chain.Len())
}
