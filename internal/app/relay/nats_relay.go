package relay

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playsync/internal/app/notification"
)

// Header keys set on every relayed message.
const (
	HeaderKind      = "Playsync-Kind"
	HeaderSequence  = "Playsync-Seq"
	HeaderServiceID = "Playsync-Service"
)

type NATSRelayConfig struct {
	URL           string `mapstructure:"url" validate:"required"`
	SubjectPrefix string `mapstructure:"subject_prefix" default:"playsync.notifications"`
	ClientName    string `mapstructure:"client_name" default:"playsync"`
	ConnTimeoutMs int    `mapstructure:"conn_timeout_ms" default:"2000" validate:"gte=0"`
	MaxReconnects int    `mapstructure:"max_reconnects" default:"60"`
}

// Client is the publishing side of a NATS connection.
type Client interface {
	Publish(subject string, data []byte, headers map[string]string) error
}

// Dialer opens a Client; cleanup releases the connection.
type Dialer func(cfg NATSRelayConfig) (client Client, cleanup func(), err error)

// NATSRelay publishes each notification as JSON on <prefix>.<kind>.
type NATSRelay struct {
	client  Client
	cleanup func()
	prefix  string
}

// NewNATSRelay decodes settings and connects through dial.
func NewNATSRelay(settings map[string]any, dial Dialer) (*NATSRelay, error) {
	var config NATSRelayConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("nats relay config: url=%s prefix=%s", config.URL, config.SubjectPrefix)
	if err := validator.New().Struct(config); err != nil {
		zlog.Error().Msgf("nats relay validation failed: %v", err)
		return nil, errors.Wrap(err, "validation failed")
	}
	if dial == nil {
		dial = DialNATS
	}

	client, cleanup, err := dial(config)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", config.URL)
	}
	return &NATSRelay{client: client, cleanup: cleanup, prefix: config.SubjectPrefix}, nil
}

// Subject returns the subject a notification of kind is published on.
func (r *NATSRelay) Subject(kind notification.Kind) string {
	return r.prefix + "." + kind.String()
}

// Forward publishes msg.
func (r *NATSRelay) Forward(ctx context.Context, msg notification.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to encode notification")
	}
	headers := map[string]string{
		HeaderKind:     msg.Kind.String(),
		HeaderSequence: strconv.FormatUint(msg.SequenceNo, 10),
	}
	if msg.ServiceID != "" {
		headers[HeaderServiceID] = msg.ServiceID
	}
	if err := r.client.Publish(r.Subject(msg.Kind), body, headers); err != nil {
		return errors.Wrap(err, "nats publish")
	}
	return nil
}

// Name returns the relay type.
func (r *NATSRelay) Name() string {
	return "nats"
}

// Close drains the connection.
func (r *NATSRelay) Close() error {
	if r.cleanup != nil {
		r.cleanup()
		r.cleanup = nil
	}
	return nil
}

func (c NATSRelayConfig) connTimeout() time.Duration {
	return time.Duration(c.ConnTimeoutMs) * time.Millisecond
}
