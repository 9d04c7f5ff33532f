package domain

import (
	"errors"
	"sort"
	"time"

	"github.com/roataway/briya/cli/bridge/state"
	"github.com/roataway/briya/cli/bridge/types"
	"github.com/roataway/briya/libs/yandex"
)

var ErrNoFreshData = errors.New("no fresh telemetry to publish")

// Snapshot is one encoded tracks document and the records it was built from.
type Snapshot struct {
	Document []byte
	Records  []types.VehicleRecord
}

type Builder struct {
	store     *state.Store
	clientID  string
	threshold time.Duration
}

func NewBuilder(store *state.Store, clientID string, threshold time.Duration) *Builder {
	return &Builder{
		store:     store,
		clientID:  clientID,
		threshold: threshold,
	}
}

// Build encodes every record updated less than threshold before at. With no such
// record it returns ErrNoFreshData.
func (b *Builder) Build(at time.Time) (Snapshot, error) {
	var fresh []types.VehicleRecord
	for _, r := range b.store.Snapshot() {
		if at.Sub(r.Timestamp) < b.threshold {
			fresh = append(fresh, r)
		}
	}
	if len(fresh) == 0 {
		return Snapshot{}, ErrNoFreshData
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].TrackerID < fresh[j].TrackerID })

	doc := yandex.Tracks{ClientID: b.clientID}
	for _, r := range fresh {
		point := yandex.NewPoint(r.Latitude, r.Longitude, r.Speed, r.Direction, r.Timestamp)
		doc.Tracks = append(doc.Tracks, yandex.NewTrack(r.ExternalID, r.Route, r.Category, point))
	}

	encoded, err := doc.Encode()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Document: encoded, Records: fresh}, nil
}
