package transport

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/roataway/briya/cli/bridge/config"
)

// QoS 0: telemetry is periodic, a lost message is superseded by the next one.
const mqttQoS = 0

type MQTT struct {
	client paho.Client

	mu      sync.Mutex
	topics  []string
	handler Handler
}

func NewMQTT(settings config.Transport) (*MQTT, error) {
	m := &MQTT{}

	broker := settings.URL
	if broker == "" {
		broker = "tcp://" + settings.Address()
	}
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(settings.ClientID).
		SetUsername(settings.Username).
		SetPassword(settings.Password).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(m.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.WithField("err", err).Error("MQTT connection lost, reconnecting")
		})

	m.client = paho.NewClient(opts)
	log.Debugf("Connecting to MQTT broker %s", broker)
	token := m.client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return m, nil
}

func (m *MQTT) Subscribe(topics []string, handler Handler) error {
	m.mu.Lock()
	m.topics = topics
	m.handler = handler
	m.mu.Unlock()
	return m.subscribe()
}

func (m *MQTT) onConnect(_ paho.Client) {
	log.Info("Connected to MQTT broker")
	if err := m.subscribe(); err != nil {
		log.WithField("err", err).Error("MQTT resubscribe failed")
	}
}

func (m *MQTT) subscribe() error {
	m.mu.Lock()
	topics, handler := m.topics, m.handler
	m.mu.Unlock()
	if handler == nil || len(topics) == 0 {
		return nil
	}

	filters := make(map[string]byte, len(topics))
	for _, topic := range topics {
		filters[topic] = mqttQoS
	}
	token := m.client.SubscribeMultiple(filters, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %v: %w", topics, err)
	}
	log.Infof("Subscribed to %v", topics)
	return nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
