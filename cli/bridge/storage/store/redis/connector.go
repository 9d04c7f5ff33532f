package redis

/*
Settings for the redis mirror (all optional):

addr = "localhost:6379"
password = ""
db = "0"
prefix = "briya:vehicle:"
ttl_sec = "300"
*/

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/roataway/briya/cli/bridge/types"
)

const opTimeout = 5 * time.Second

type Connector struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("storage settings are missing")
	}

	addr := cfg["addr"]
	if addr == "" {
		addr = "localhost:6379"
	}
	db := 0
	if cfg["db"] != "" {
		var err error
		if db, err = strconv.Atoi(cfg["db"]); err != nil {
			return fmt.Errorf("invalid db: %w", err)
		}
	}
	ttl := 300
	if cfg["ttl_sec"] != "" {
		var err error
		if ttl, err = strconv.Atoi(cfg["ttl_sec"]); err != nil {
			return fmt.Errorf("invalid ttl_sec: %w", err)
		}
	}
	c.prefix = cfg["prefix"]
	if c.prefix == "" {
		c.prefix = "briya:vehicle:"
	}
	c.ttl = time.Duration(ttl) * time.Second

	c.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg["password"],
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis is unreachable: %w", err)
	}
	return nil
}

func (c *Connector) Key(trackerID string) string {
	return c.prefix + trackerID
}

func (c *Connector) Save(r types.VehicleRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	key := c.Key(r.TrackerID)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"external_id": r.ExternalID,
		"latitude":    r.Latitude,
		"longitude":   r.Longitude,
		"direction":   r.Direction,
		"speed":       r.Speed,
		"board":       r.Board,
		"route":       r.Route,
		"category":    r.Category,
		"timestamp":   r.Timestamp.Unix(),
	})
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis write %s: %w", key, err)
	}
	return nil
}

func (c *Connector) Close() error {
	return c.client.Close()
}
