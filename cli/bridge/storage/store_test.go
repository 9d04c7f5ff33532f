package storage

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roataway/briya/cli/bridge/types"
)

type mockSaver struct {
	mu      sync.Mutex
	saved   []types.VehicleRecord
	err     error
	closed  bool
	release chan struct{}
	delay   func(types.VehicleRecord) time.Duration
}

func (ms *mockSaver) Save(r types.VehicleRecord) error {
	if ms.release != nil {
		<-ms.release
	}
	if ms.delay != nil {
		time.Sleep(ms.delay(r))
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.saved = append(ms.saved, r)
	return ms.err
}

func (ms *mockSaver) Init(map[string]string) error { return nil }

func (ms *mockSaver) Close() error {
	ms.closed = true
	return nil
}

func (ms *mockSaver) count() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.saved)
}

func vehicle(id string) types.VehicleRecord {
	return types.VehicleRecord{
		TrackerID:  id,
		ExternalID: "ext-" + id,
		Timestamp:  time.Date(2023, time.April, 5, 6, 7, 8, 0, time.UTC),
	}
}

func TestRepositorySaveFansOut(t *testing.T) {
	first := &mockSaver{}
	second := &mockSaver{err: errors.New("down")}
	third := &mockSaver{}

	repo := NewRepository()
	repo.AddStore(first)
	repo.AddStore(second)
	repo.AddStore(third)

	err := repo.Save(vehicle("2"))
	assert.EqualError(t, err, "down")
	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
	assert.Equal(t, 1, third.count(), "a failing store must not starve the others")

	require.NoError(t, repo.Close())
	assert.True(t, first.closed)
	assert.True(t, third.closed)
}

func TestLoadStorages(t *testing.T) {
	repo := NewRepository()
	assert.ErrorIs(t, repo.LoadStorages(nil), ErrInvalidStorage)
	assert.ErrorIs(t, repo.LoadStorages(map[string]map[string]string{"kafka": {}}), ErrUnknownStorage)
	assert.Error(t, repo.LoadStorages(map[string]map[string]string{"tarantool_queue": {}}))
	assert.Equal(t, 0, repo.Len())
}

func TestAsyncRepositoryWritesEverything(t *testing.T) {
	log.SetOutput(io.Discard)
	saver := &mockSaver{}
	repo := NewRepository()
	repo.AddStore(saver)

	async := NewAsyncRepository(repo, 100, 4)
	for i := 0; i < 50; i++ {
		require.NoError(t, async.Save(vehicle("2")))
	}
	require.NoError(t, async.Close())

	assert.Equal(t, 50, saver.count())
	assert.True(t, saver.closed)
	assert.ErrorIs(t, async.Save(vehicle("2")), ErrClosed)
	assert.NoError(t, async.Close())
}

func TestAsyncRepositoryDoesNotBlock(t *testing.T) {
	log.SetOutput(io.Discard)
	saver := &mockSaver{release: make(chan struct{})}
	repo := NewRepository()
	repo.AddStore(saver)

	async := NewAsyncRepository(repo, 1, 1)

	var full bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			if errors.Is(async.Save(vehicle("2")), ErrBufferFull) {
				full = true
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Save blocked on a slow store")
	}
	assert.True(t, full)

	close(saver.release)
	require.NoError(t, async.Close())
}

func TestAsyncRepositoryKeepsVehicleOrder(t *testing.T) {
	log.SetOutput(io.Discard)
	// the first write of every vehicle is slow
	saver := &mockSaver{delay: func(r types.VehicleRecord) time.Duration {
		if r.Speed == 1 {
			return 50 * time.Millisecond
		}
		return 0
	}}
	repo := NewRepository()
	repo.AddStore(saver)

	async := NewAsyncRepository(repo, 16, 4)
	ids := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
	for _, speed := range []float64{1, 2, 3} {
		for _, id := range ids {
			r := vehicle(id)
			r.Speed = speed
			require.NoError(t, async.Save(r))
		}
	}
	require.NoError(t, async.Close())

	latest := map[string]float64{}
	for _, r := range saver.saved {
		assert.Greater(t, r.Speed, latest[r.TrackerID], "vehicle %s went back in time", r.TrackerID)
		latest[r.TrackerID] = r.Speed
	}
	for _, id := range ids {
		assert.Equal(t, 3.0, latest[id])
	}
}

func TestAsyncRepositorySkipsOlderRecords(t *testing.T) {
	log.SetOutput(io.Discard)
	saver := &mockSaver{}
	repo := NewRepository()
	repo.AddStore(saver)

	newer := vehicle("2")
	newer.Speed = 2
	older := vehicle("2")
	older.Speed = 1
	older.Timestamp = newer.Timestamp.Add(-time.Second)

	async := NewAsyncRepository(repo, 4, 2)
	require.NoError(t, async.Save(newer))
	require.NoError(t, async.Save(older))
	require.NoError(t, async.Close())

	require.Len(t, saver.saved, 1)
	assert.Equal(t, 2.0, saver.saved[0].Speed)
}
