package main

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
)

const upstreamTimeFormat = "2006-01-02T15:04:05Z"

const publishTimeout = 10 * time.Second

type Message struct {
	RtuID     string  `json:"rtu_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Direction int     `json:"direction"`
	Board     string  `json:"board"`
	Speed     float64 `json:"speed"`
	Route     string  `json:"route"`
	Timestamp string  `json:"timestamp"`
}

func (m *Message) SetTimestamp(t time.Time) {
	m.Timestamp = t.UTC().Format(upstreamTimeFormat)
}

func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func DefaultTopic(kind, rtuID string) string {
	if kind == "nats" {
		return "telemetry.transport." + rtuID
	}
	return "telemetry/transport/" + rtuID
}

func Publish(kind, broker, topic string, payload []byte) error {
	switch kind {
	case "mqtt":
		return publishMQTT(broker, topic, payload)
	case "nats":
		return publishNATS(broker, topic, payload)
	default:
		return fmt.Errorf("unknown broker kind %q, use mqtt or nats", kind)
	}
}

func publishMQTT(broker, topic string, payload []byte) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID(fmt.Sprintf("telemetry-gen-%d", time.Now().UnixNano()))
	client := paho.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return err
	}
	defer client.Disconnect(250)

	token = client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

func publishNATS(broker, topic string, payload []byte) error {
	conn, err := nats.Connect(broker, nats.Timeout(publishTimeout))
	if err != nil {
		return err
	}
	defer conn.Close()

	if err = conn.Publish(topic, payload); err != nil {
		return err
	}
	return conn.FlushTimeout(publishTimeout)
}
