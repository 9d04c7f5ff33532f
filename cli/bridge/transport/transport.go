package transport

import (
	"errors"

	"github.com/roataway/briya/cli/bridge/config"
)

var ErrUnknownTransport = errors.New("transport isn't supported")

// Handler receives one message. It may be called concurrently.
type Handler func(topic string, payload []byte)

type Subscriber interface {
	Subscribe(topics []string, handler Handler) error
	Close() error
}

// New connects to the broker named by settings.Kind.
func New(settings config.Transport) (Subscriber, error) {
	switch settings.Kind {
	case "mqtt":
		return NewMQTT(settings)
	case "nats":
		return NewNATS(settings)
	case "rabbitmq":
		return NewRabbitMQ(settings)
	default:
		return nil, ErrUnknownTransport
	}
}
