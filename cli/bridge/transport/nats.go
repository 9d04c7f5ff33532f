package transport

import (
	"fmt"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/roataway/briya/cli/bridge/config"
)

type NATS struct {
	conn *nats.Conn
}

func NewNATS(settings config.Transport) (*NATS, error) {
	url := settings.URL
	if url == "" {
		url = "nats://" + settings.Address()
	}

	opts := []nats.Option{
		nats.Name(settings.ClientID),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithField("err", err).Error("NATS connection lost, reconnecting")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("Reconnected to NATS")
		}),
	}
	if settings.Username != "" {
		opts = append(opts, nats.UserInfo(settings.Username, settings.Password))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect to %s: %w", url, err)
	}
	return &NATS{conn: conn}, nil
}

func (n *NATS) Subscribe(topics []string, handler Handler) error {
	for _, topic := range topics {
		if _, err := n.conn.Subscribe(topic, func(msg *nats.Msg) {
			handler(msg.Subject, msg.Data)
		}); err != nil {
			return fmt.Errorf("nats subscribe %s: %w", topic, err)
		}
	}
	log.Infof("Subscribed to %v", topics)
	return n.conn.Flush()
}

func (n *NATS) Close() error {
	return n.conn.Drain()
}
