package relay

import (
	"github.com/cockroachdb/errors"
	"github.com/nats-io/nats.go"
)

type natsClient struct{ nc *nats.Conn }

func (c natsClient) Publish(subject string, data []byte, headers map[string]string) error {
	msg := &nats.Msg{Subject: subject, Data: data}
	if len(headers) > 0 {
		msg.Header = nats.Header{}
		for k, v := range headers {
			msg.Header.Add(k, v)
		}
	}

	if err := c.nc.PublishMsg(msg); err != nil {
		return err
	}
	return c.nc.Flush()
}

// DialNATS connects to cfg.URL.
func DialNATS(cfg NATSRelayConfig) (Client, func(), error) {
	opts := []nats.Option{}
	if cfg.ClientName != "" {
		opts = append(opts, nats.Name(cfg.ClientName))
	}
	if t := cfg.connTimeout(); t > 0 {
		opts = append(opts, nats.Timeout(t))
	}
	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "nats connect")
	}

	cleanup := func() {
		if !nc.IsClosed() {
			_ = nc.Drain()
			nc.Close()
		}
	}
	return natsClient{nc: nc}, cleanup, nil
}
