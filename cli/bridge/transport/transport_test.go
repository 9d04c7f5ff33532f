package transport

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roataway/briya/cli/bridge/config"
)

func runNATSServer(t *testing.T) *server.Server {
	t.Helper()
	s, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)
	go s.Start()
	if !s.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server did not start")
	}
	t.Cleanup(s.Shutdown)
	return s
}

func TestNATSDeliversMessages(t *testing.T) {
	log.SetOutput(io.Discard)
	s := runNATSServer(t)

	sub, err := New(config.Transport{Kind: "nats", URL: s.ClientURL(), ClientID: "briya-test"})
	require.NoError(t, err)

	var mu sync.Mutex
	got := map[string]string{}
	require.NoError(t, sub.Subscribe([]string{"telemetry.transport.*"}, func(topic string, payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		got[topic] = string(payload)
	}))

	pub, err := nats.Connect(s.ClientURL())
	require.NoError(t, err)
	defer pub.Close()
	require.NoError(t, pub.Publish("telemetry.transport.2", []byte(`{"rtu_id":"2"}`)))
	require.NoError(t, pub.Publish("other.topic", []byte(`ignored`)))
	require.NoError(t, pub.Flush())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got["telemetry.transport.2"] == `{"rtu_id":"2"}`
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sub.Close())
	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, got, "other.topic")
}

func TestNATSConnectFailure(t *testing.T) {
	s := runNATSServer(t)
	url := s.ClientURL()
	s.Shutdown()

	_, err := NewNATS(config.Transport{URL: url})
	assert.Error(t, err)
}

func TestNewUnknownTransport(t *testing.T) {
	_, err := New(config.Transport{Kind: "kafka"})
	assert.ErrorIs(t, err, ErrUnknownTransport)
}

func TestBindingKey(t *testing.T) {
	tests := map[string]string{
		"telemetry/transport/+": "telemetry.transport.*",
		"telemetry/#":           "telemetry.#",
		"plain":                 "plain",
	}
	for in, want := range tests {
		assert.Equal(t, want, BindingKey(in), in)
	}
	assert.Equal(t, "telemetry/transport/2", Topic("telemetry.transport.2"))
}
