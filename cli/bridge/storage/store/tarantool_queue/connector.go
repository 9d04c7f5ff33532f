package tarantool_queue

/*
Publishes every accepted vehicle state, msgpack encoded, to a Tarantool queue.

Settings (all optional except queue):

host = "localhost"
port = "3301"
user = "guest"
password = ""
max_recons = "5"
timeout = "1"
reconnect = "1"
queue = "vehicle_state"
*/

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tarantool/go-tarantool"
	"github.com/tarantool/go-tarantool/queue"

	"github.com/roataway/briya/cli/bridge/types"
)

type Connector struct {
	connection *tarantool.Connection
	queue      queue.Queue
}

func intOption(cfg map[string]string, name string, def int) (int, error) {
	if cfg[name] == "" {
		return def, nil
	}
	v, err := strconv.Atoi(cfg[name])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

// Options builds the connection options and queue name from the settings.
func Options(cfg map[string]string) (string, tarantool.Opts, string, error) {
	if cfg == nil {
		return "", tarantool.Opts{}, "", fmt.Errorf("storage settings are missing")
	}
	if cfg["queue"] == "" {
		return "", tarantool.Opts{}, "", fmt.Errorf("queue name is required")
	}

	maxRecons, err := intOption(cfg, "max_recons", 5)
	if err != nil {
		return "", tarantool.Opts{}, "", err
	}
	timeout, err := intOption(cfg, "timeout", 1)
	if err != nil {
		return "", tarantool.Opts{}, "", err
	}
	reconnect, err := intOption(cfg, "reconnect", 1)
	if err != nil {
		return "", tarantool.Opts{}, "", err
	}

	host, port := cfg["host"], cfg["port"]
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "3301"
	}

	opts := tarantool.Opts{
		Timeout:       time.Duration(timeout) * time.Second,
		Reconnect:     time.Duration(reconnect) * time.Second,
		MaxReconnects: uint(maxRecons),
		User:          cfg["user"],
		Pass:          cfg["password"],
	}
	return fmt.Sprintf("%s:%s", host, port), opts, cfg["queue"], nil
}

func (c *Connector) Init(cfg map[string]string) error {
	addr, opts, name, err := Options(cfg)
	if err != nil {
		return err
	}

	c.connection, err = tarantool.Connect(addr, opts)
	if err != nil {
		return fmt.Errorf("failed to connect to Tarantool: %w", err)
	}
	c.queue = queue.New(c.connection, name)
	return nil
}

func (c *Connector) Save(r types.VehicleRecord) error {
	payload, err := r.ToMsgpack()
	if err != nil {
		return fmt.Errorf("failed to encode vehicle %s: %w", r.TrackerID, err)
	}

	if _, err = c.queue.Put(payload); err != nil {
		return fmt.Errorf("failed to enqueue vehicle %s: %w", r.TrackerID, err)
	}
	return nil
}

func (c *Connector) Close() error {
	return c.connection.Close()
}
