package transport

import (
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/roataway/briya/cli/bridge/config"
)

// RabbitMQ consumes from a topic exchange through an exclusive queue. MQTT style
// topic filters are translated to AMQP binding keys, which is how the RabbitMQ
// MQTT plugin routes messages.
type RabbitMQ struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	consumer string
	workers  int
	wg       sync.WaitGroup
}

func NewRabbitMQ(settings config.Transport) (*RabbitMQ, error) {
	addr := settings.URL
	if addr == "" {
		u := url.URL{
			Scheme: "amqp",
			User:   url.UserPassword(settings.Username, settings.Password),
			Host:   settings.Address(),
			Path:   "/",
		}
		addr = u.String()
	}

	conn, err := amqp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("amqp connect to %s: %w", settings.Address(), err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	return &RabbitMQ{
		conn:     conn,
		channel:  channel,
		exchange: settings.Exchange,
		consumer: settings.ClientID,
		workers:  runtime.NumCPU(),
	}, nil
}

// BindingKey converts an MQTT topic filter into an AMQP topic binding key.
func BindingKey(topic string) string {
	key := strings.ReplaceAll(topic, "/", ".")
	return strings.ReplaceAll(key, "+", "*")
}

// Topic converts an AMQP routing key back into an MQTT topic.
func Topic(routingKey string) string {
	return strings.ReplaceAll(routingKey, ".", "/")
}

func (r *RabbitMQ) Subscribe(topics []string, handler Handler) error {
	q, err := r.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("amqp queue declare: %w", err)
	}
	for _, topic := range topics {
		if err = r.channel.QueueBind(q.Name, BindingKey(topic), r.exchange, false, nil); err != nil {
			return fmt.Errorf("amqp bind %s: %w", topic, err)
		}
	}

	deliveries, err := r.channel.Consume(q.Name, r.consumer, true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for d := range deliveries {
				handler(Topic(d.RoutingKey), d.Body)
			}
		}()
	}
	log.Infof("Subscribed to %v on exchange %s", topics, r.exchange)
	return nil
}

func (r *RabbitMQ) Close() error {
	err := r.channel.Close()
	if cerr := r.conn.Close(); err == nil {
		err = cerr
	}
	r.wg.Wait()
	return err
}
