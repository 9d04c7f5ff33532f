package domain

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/roataway/briya/cli/bridge/sink"
	"github.com/roataway/briya/cli/bridge/state"
)

type Publisher interface {
	Publish(ctx context.Context, document []byte) (sink.Outcome, error)
}

// Scheduler builds and publishes a snapshot, then waits interval before the next
// cycle. A slow publish delays the following cycle rather than overlapping it.
type Scheduler struct {
	builder    *Builder
	publisher  Publisher
	store      *state.Store
	interval   time.Duration
	evictAfter time.Duration
	recorder   Recorder
	listeners  []func(Snapshot)
}

func NewScheduler(builder *Builder, publisher Publisher, store *state.Store, interval time.Duration) *Scheduler {
	return &Scheduler{
		builder:   builder,
		publisher: publisher,
		store:     store,
		interval:  interval,
		recorder:  nopRecorder{},
	}
}

// WithEviction drops records not updated for d after each cycle. Zero disables it.
func (s *Scheduler) WithEviction(d time.Duration) *Scheduler {
	s.evictAfter = d
	return s
}

func (s *Scheduler) WithRecorder(r Recorder) *Scheduler {
	s.recorder = r
	return s
}

// OnPublish registers f to be called with every snapshot the collector accepted.
func (s *Scheduler) OnPublish(f func(Snapshot)) {
	s.listeners = append(s.listeners, f)
}

// Run publishes immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	log.Infof("Starting publish loop, interval %s", s.interval)
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Publish loop stopped")
			return
		case <-t.C:
			s.Tick(ctx)
			t.Reset(s.interval)
		}
	}
}

// Tick runs one publish cycle.
func (s *Scheduler) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.recorder.ObservePublish(OutcomeError, 0)
			log.WithField("panic", r).Error("Unexpected failure in publish cycle")
		}
	}()

	at := now()
	defer s.evict(at)

	snapshot, err := s.builder.Build(at)
	if errors.Is(err, ErrNoFreshData) {
		s.recorder.ObservePublish(OutcomeNoFreshData, 0)
		log.Debug("No fresh telemetry, skipping publish")
		return
	}
	if err != nil {
		s.recorder.ObservePublish(OutcomeError, 0)
		log.WithField("err", err).Error("Could not build snapshot")
		return
	}

	start := time.Now()
	outcome, err := s.publisher.Publish(ctx, snapshot.Document)
	elapsed := time.Since(start)
	if err != nil {
		s.recorder.ObservePublish(OutcomeError, elapsed)
		log.WithField("err", err).Error("Publish failed")
		return
	}

	if !outcome.Accepted {
		s.recorder.ObservePublish(OutcomeRejected, elapsed)
		return
	}
	s.recorder.ObservePublish(OutcomeAccepted, elapsed)
	log.WithFields(log.Fields{
		"vehicles": len(snapshot.Records),
		"status":   outcome.StatusCode,
	}).Debug("Snapshot published")

	for _, f := range s.listeners {
		f(snapshot)
	}
}

func (s *Scheduler) evict(at time.Time) {
	if s.evictAfter > 0 {
		if n := s.store.Evict(at.Add(-s.evictAfter)); n > 0 {
			log.Infof("Evicted %d vehicles not seen for %s", n, s.evictAfter)
		}
	}
	s.recorder.SetTracked(s.store.Len())
}
