package domain

import "time"

// Recorder receives ingest and publish outcomes. metrics.Collector implements it.
type Recorder interface {
	ObserveIngest(outcome string)
	ObservePublish(outcome string, d time.Duration)
	SetTracked(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveIngest(string)                 {}
func (nopRecorder) ObservePublish(string, time.Duration) {}
func (nopRecorder) SetTracked(int)                       {}

const (
	OutcomeAccepted      = "accepted"
	OutcomeUnprovisioned = "unprovisioned"
	OutcomeStaleUpdate   = "stale_update"
	OutcomePanic         = "panic"
	OutcomeRejected      = "rejected"
	OutcomeNoFreshData   = "no_fresh_data"
	OutcomeError         = "error"
)
