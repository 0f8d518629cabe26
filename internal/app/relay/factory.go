package relay

import (
	"cmp"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playsync/internal/infra/config"
)

// NewChainFromConfig creates a relay chain from configuration.
// An empty list yields an empty chain. dial may be nil for real NATS.
func NewChainFromConfig(cfgs []config.RelayConfig, dial Dialer) (*Chain, error) {
	var relays []RelayWithMetadata

	for i, rcfg := range cfgs {
		var relay Relay
		var err error
		zlog.Debug().Msgf("creating relay: index=%d type=%s", i+1, rcfg.Type)
		switch rcfg.Type {
		case "log":
			relay, err = NewLogRelay(rcfg.Settings)

		case "nats":
			relay, err = NewNATSRelay(rcfg.Settings, dial)

		default:
			err = errors.Newf("unsupported relay type: %s", rcfg.Type)
		}

		if err != nil {
			closeAll(relays)
			return nil, errors.Wrapf(err, "failed to create relay (index %d, type %s)", i, rcfg.Type)
		}

		name := cmp.Or(rcfg.Name, rcfg.Type)
		relays = append(relays, RelayWithMetadata{Relay: relay, DisplayName: name})

		zlog.Info().Msgf("registered relay: index=%d type=%s name=%s", i+1, rcfg.Type, name)
	}

	return NewChain(relays), nil
}

func closeAll(relays []RelayWithMetadata) {
	_ = NewChain(relays).Close()
}
