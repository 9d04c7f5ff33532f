package storage

import (
	"errors"
	"fmt"

	"github.com/roataway/briya/cli/bridge/storage/store/postgresql"
	"github.com/roataway/briya/cli/bridge/storage/store/redis"
	"github.com/roataway/briya/cli/bridge/storage/store/tarantool_queue"
	"github.com/roataway/briya/cli/bridge/types"
)

var ErrInvalidStorage = errors.New("storage not found")
var ErrUnknownStorage = errors.New("storage isn't support yet")

type Store interface {
	Connector
	Saver
}

// Saver mirrors the latest state of a vehicle to an external store
type Saver interface {
	Save(types.VehicleRecord) error
}

type Connector interface {
	Init(map[string]string) error
	Close() error
}

// Repository fans every record out to all configured stores
type Repository struct {
	storages []Saver
	closers  []Connector
}

func (r *Repository) AddStore(s Saver) {
	r.storages = append(r.storages, s)
	if c, ok := s.(Connector); ok {
		r.closers = append(r.closers, c)
	}
}

func (r *Repository) Len() int {
	return len(r.storages)
}

// Save writes the record to every store and returns the first failure.
func (r *Repository) Save(record types.VehicleRecord) error {
	var firstErr error
	for _, store := range r.storages {
		if err := store.Save(record); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LoadStorages initialises the stores listed in the config
func (r *Repository) LoadStorages(storages map[string]map[string]string) error {
	if len(storages) == 0 {
		return ErrInvalidStorage
	}

	var db Store
	for store, params := range storages {
		switch store {
		case "postgresql":
			db = &postgresql.Connector{}
		case "tarantool_queue":
			db = &tarantool_queue.Connector{}
		case "redis":
			db = &redis.Connector{}
		default:
			return fmt.Errorf("%w: %s", ErrUnknownStorage, store)
		}

		if err := db.Init(params); err != nil {
			return fmt.Errorf("%s: %w", store, err)
		}

		r.AddStore(db)
	}
	return nil
}

func (r *Repository) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func NewRepository() *Repository {
	return &Repository{}
}
