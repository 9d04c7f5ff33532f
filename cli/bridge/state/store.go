package state

import (
	"errors"
	"sync"
	"time"

	"github.com/roataway/briya/cli/bridge/types"
)

var ErrStaleUpdate = errors.New("update is older than the stored state")

// Store keeps the latest known state of every vehicle seen since startup.
//
// Records are held by value and replaced wholesale under the write lock, so a
// reader always gets either the old or the new version of a record.
type Store struct {
	mu       sync.RWMutex
	records  map[string]types.VehicleRecord
	category string
}

func NewStore(category string) *Store {
	return &Store{
		records:  make(map[string]types.VehicleRecord),
		category: category,
	}
}

// Upsert creates the record for t.TrackerID with the given external id, or
// overwrites the mutable fields of the existing one. The external id of an
// existing record is never changed. An update carrying a timestamp older than the
// stored one is refused with ErrStaleUpdate.
func (s *Store) Upsert(t types.Telemetry, externalID string) (types.VehicleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[t.TrackerID]
	if !ok {
		record = types.NewVehicleRecord(t, externalID, s.category)
		s.records[t.TrackerID] = record
		return record, nil
	}

	if t.Timestamp.Before(record.Timestamp) {
		return record, ErrStaleUpdate
	}

	record.Apply(t)
	s.records[t.TrackerID] = record
	return record, nil
}

// Snapshot returns a copy of every record. Records within the slice may come from
// slightly different moments; each one is internally consistent.
func (s *Store) Snapshot() []types.VehicleRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.VehicleRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out
}

func (s *Store) Get(trackerID string) (types.VehicleRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[trackerID]
	return r, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Evict removes records last updated before cutoff and returns how many were
// removed.
func (s *Store) Evict(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, r := range s.records {
		if r.Timestamp.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}
