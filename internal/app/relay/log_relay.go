package relay

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playsync/internal/app/notification"
	"github.com/osa030/playsync/internal/infra/logger"
)

type LogRelayConfig struct {
	Level string `mapstructure:"level" default:"info" validate:"oneof=debug info warn"`
}

// LogRelay writes each notification to the structured log.
type LogRelay struct {
	level zerolog.Level
	log   zerolog.Logger
}

// NewLogRelay creates a new LogRelay.
func NewLogRelay(settings map[string]any) (*LogRelay, error) {
	var config LogRelayConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		zlog.Error().Msgf("log relay validation failed: %v", err)
		return nil, errors.Wrap(err, "validation failed")
	}
	return &LogRelay{
		level: logger.ParseLevel(config.Level),
		log:   logger.Component("relay.log"),
	}, nil
}

// Forward logs msg.
func (r *LogRelay) Forward(_ context.Context, msg notification.Message) error {
	r.log.WithLevel(r.level).
		Str("kind", msg.Kind.String()).
		Str("service_id", msg.ServiceID).
		Uint64("seq", msg.SequenceNo).
		Time("sent_at", msg.SentAt).
		Msg("notification")
	return nil
}

// Name returns the relay type.
func (r *LogRelay) Name() string {
	return "log"
}
