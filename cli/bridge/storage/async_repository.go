package storage

import (
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	log "github.com/sirupsen/logrus"

	"github.com/roataway/briya/cli/bridge/types"
)

var ErrBufferFull = errors.New("mirror buffer is full")
var ErrClosed = errors.New("async repository is closed")

// AsyncRepository hands records to the repository from a worker pool so that
// the ingest path never waits on an external store. Records of one vehicle always
// go to the same worker, which never writes a record older than one it already
// wrote.
type AsyncRepository struct {
	repo   *Repository
	queues []chan types.VehicleRecord
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAsyncRepository starts workers goroutines (NumCPU when not positive), each
// with its own queue of buffer records.
func NewAsyncRepository(repo *Repository, buffer, workers int) *AsyncRepository {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ar := &AsyncRepository{
		repo:   repo,
		queues: make([]chan types.VehicleRecord, workers),
	}
	for i := range ar.queues {
		ar.queues[i] = make(chan types.VehicleRecord, buffer)
		ar.wg.Add(1)
		go ar.worker(ar.queues[i])
	}
	return ar
}

func (a *AsyncRepository) worker(queue <-chan types.VehicleRecord) {
	defer a.wg.Done()
	// two ingest goroutines may queue the same vehicle out of order
	latest := make(map[string]time.Time)
	for record := range queue {
		if record.Timestamp.Before(latest[record.TrackerID]) {
			continue
		}
		latest[record.TrackerID] = record.Timestamp
		if err := a.repo.Save(record); err != nil {
			log.WithFields(log.Fields{
				"err":    err,
				"rtu_id": record.TrackerID,
			}).Error("Failed to mirror vehicle state")
		}
	}
}

func (a *AsyncRepository) queue(trackerID string) chan<- types.VehicleRecord {
	return a.queues[xxhash.Sum64String(trackerID)%uint64(len(a.queues))]
}

// Save queues the record. It returns ErrBufferFull instead of blocking.
func (a *AsyncRepository) Save(record types.VehicleRecord) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue(record.TrackerID) <- record:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close stops accepting records, waits for queued ones to be written and closes
// the stores.
func (a *AsyncRepository) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	for _, q := range a.queues {
		close(q)
	}
	a.mu.Unlock()

	a.wg.Wait()
	return a.repo.Close()
}
