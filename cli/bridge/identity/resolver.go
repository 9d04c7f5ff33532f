package identity

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

var ErrUnprovisioned = errors.New("tracker is not provisioned")

type Resolver struct {
	table *Table

	mu     sync.Mutex
	warned map[string]struct{}
}

func NewResolver(table *Table) *Resolver {
	return &Resolver{
		table:  table,
		warned: make(map[string]struct{}),
	}
}

// Resolve returns the external id of internalID or ErrUnprovisioned. The first
// miss for a given id is logged as a warning; later misses are silent.
func (r *Resolver) Resolve(internalID string) (string, error) {
	if externalID, ok := r.table.Lookup(internalID); ok {
		return externalID, nil
	}

	r.mu.Lock()
	_, seen := r.warned[internalID]
	if !seen {
		r.warned[internalID] = struct{}{}
	}
	r.mu.Unlock()

	if !seen {
		log.WithField("rtu_id", internalID).Warn("Tracker is not provisioned in the identity table, ignoring its telemetry")
	}
	return "", ErrUnprovisioned
}
