package domain

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/roataway/briya/cli/bridge/state"
	"github.com/roataway/briya/cli/bridge/types"
)

const maxExcerpt = 500

type Resolver interface {
	Resolve(internalID string) (string, error)
}

// Mirror receives every accepted record. It must not block.
type Mirror interface {
	Save(types.VehicleRecord) error
}

// Ingestor turns raw transport messages into store updates. It never returns
// errors: every failure is logged and counted.
type Ingestor struct {
	validator *Validator
	resolver  Resolver
	store     *state.Store
	mirror    Mirror
	recorder  Recorder
}

func NewIngestor(validator *Validator, resolver Resolver, store *state.Store) *Ingestor {
	return &Ingestor{
		validator: validator,
		resolver:  resolver,
		store:     store,
		recorder:  nopRecorder{},
	}
}

func (i *Ingestor) WithMirror(m Mirror) *Ingestor {
	i.mirror = m
	return i
}

func (i *Ingestor) WithRecorder(r Recorder) *Ingestor {
	i.recorder = r
	return i
}

// Handle processes one message. It is safe for concurrent use.
func (i *Ingestor) Handle(topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			i.recorder.ObserveIngest(OutcomePanic)
			log.WithFields(log.Fields{
				"topic": topic,
				"panic": r,
			}).Error("Unexpected failure while handling telemetry")
			log.Debugf("Problematic message: `%s`", excerpt(payload))
		}
	}()

	t, err := i.validator.Validate(payload)
	if err != nil {
		var rejection *Rejection
		if errors.As(err, &rejection) {
			i.recorder.ObserveIngest(string(rejection.Reason))
		}
		log.WithFields(log.Fields{
			"topic": topic,
			"err":   err,
		}).Debugf("Ignoring bad telemetry `%s`", excerpt(payload))
		return
	}

	externalID, err := i.resolver.Resolve(t.TrackerID)
	if err != nil {
		i.recorder.ObserveIngest(OutcomeUnprovisioned)
		return
	}

	record, err := i.store.Upsert(t, externalID)
	if err != nil {
		if errors.Is(err, state.ErrStaleUpdate) {
			i.recorder.ObserveIngest(OutcomeStaleUpdate)
			log.WithFields(log.Fields{
				"rtu_id":    t.TrackerID,
				"timestamp": t.Timestamp,
				"stored":    record.Timestamp,
			}).Debug("Ignoring out-of-order telemetry")
		}
		return
	}
	i.recorder.ObserveIngest(OutcomeAccepted)

	if i.mirror != nil {
		if err = i.mirror.Save(record); err != nil {
			log.WithField("err", err).Debug("Mirror did not take the record")
		}
	}
}

func excerpt(payload []byte) []byte {
	if len(payload) > maxExcerpt {
		return payload[:maxExcerpt]
	}
	return payload
}
