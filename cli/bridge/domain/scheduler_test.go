package domain

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roataway/briya/cli/bridge/sink"
	"github.com/roataway/briya/cli/bridge/state"
)

type fakePublisher struct {
	mu        sync.Mutex
	documents [][]byte
	outcome   sink.Outcome
	err       error
	panics    bool
}

func (f *fakePublisher) Publish(_ context.Context, document []byte) (sink.Outcome, error) {
	if f.panics {
		panic("collector client exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, document)
	return f.outcome, f.err
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.documents)
}

func newScheduler(store *state.Store, pub Publisher, rec Recorder) *Scheduler {
	return NewScheduler(NewBuilder(store, "roataway", 30*time.Second), pub, store, time.Hour).WithRecorder(rec)
}

func TestTickPublishes(t *testing.T) {
	log.SetOutput(io.Discard)
	mockNow(t, clock)
	store := state.NewStore("")
	seed(t, store, "2", "abc123", clock)
	pub := &fakePublisher{outcome: sink.Outcome{StatusCode: 200, Accepted: true}}
	rec := newCountingRecorder()
	s := newScheduler(store, pub, rec)

	var seen []Snapshot
	s.OnPublish(func(snapshot Snapshot) { seen = append(seen, snapshot) })

	s.Tick(context.Background())

	require.Equal(t, 1, pub.count())
	assert.Contains(t, string(pub.documents[0]), `uuid="abc123"`)
	assert.Equal(t, 1, rec.publish[OutcomeAccepted])
	assert.Equal(t, 1, rec.tracked)
	require.Len(t, seen, 1)
	assert.Equal(t, pub.documents[0], seen[0].Document)
}

func TestTickSkipsWithoutFreshData(t *testing.T) {
	log.SetOutput(io.Discard)
	mockNow(t, clock)
	store := state.NewStore("")
	seed(t, store, "2", "abc123", clock.Add(-time.Minute))
	pub := &fakePublisher{}
	rec := newCountingRecorder()

	newScheduler(store, pub, rec).Tick(context.Background())

	assert.Equal(t, 0, pub.count())
	assert.Equal(t, 1, rec.publish[OutcomeNoFreshData])
}

func TestTickOutcomes(t *testing.T) {
	log.SetOutput(io.Discard)
	mockNow(t, clock)

	tests := []struct {
		name    string
		pub     *fakePublisher
		outcome string
	}{
		{
			name:    "rejected",
			pub:     &fakePublisher{outcome: sink.Outcome{StatusCode: 400}},
			outcome: OutcomeRejected,
		},
		{
			name:    "transport failure",
			pub:     &fakePublisher{err: errors.New("connection refused")},
			outcome: OutcomeError,
		},
		{
			name:    "panic",
			pub:     &fakePublisher{panics: true},
			outcome: OutcomeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := state.NewStore("")
			seed(t, store, "2", "abc123", clock)
			rec := newCountingRecorder()
			s := newScheduler(store, tt.pub, rec)
			called := false
			s.OnPublish(func(Snapshot) { called = true })

			assert.NotPanics(t, func() { s.Tick(context.Background()) })
			assert.Equal(t, 1, rec.publish[tt.outcome])
			assert.False(t, called)
		})
	}
}

func TestTickEvicts(t *testing.T) {
	log.SetOutput(io.Discard)
	mockNow(t, clock)
	store := state.NewStore("")
	seed(t, store, "old", "a", clock.Add(-2*time.Hour))
	seed(t, store, "new", "b", clock)
	rec := newCountingRecorder()

	s := newScheduler(store, &fakePublisher{outcome: sink.Outcome{StatusCode: 200, Accepted: true}}, rec).
		WithEviction(time.Hour)
	s.Tick(context.Background())

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, rec.tracked)
}

func TestTickWithoutEvictionKeepsRecords(t *testing.T) {
	log.SetOutput(io.Discard)
	mockNow(t, clock)
	store := state.NewStore("")
	seed(t, store, "old", "a", clock.Add(-48*time.Hour))

	newScheduler(store, &fakePublisher{}, newCountingRecorder()).Tick(context.Background())
	assert.Equal(t, 1, store.Len())
}

func TestRunPublishesImmediatelyAndStops(t *testing.T) {
	log.SetOutput(io.Discard)
	mockNow(t, clock)
	store := state.NewStore("")
	seed(t, store, "2", "abc123", clock)
	pub := &fakePublisher{outcome: sink.Outcome{StatusCode: 200, Accepted: true}}
	s := NewScheduler(NewBuilder(store, "roataway", 30*time.Second), pub, store, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return pub.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
