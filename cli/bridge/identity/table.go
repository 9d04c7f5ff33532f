package identity

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Table maps internal tracker ids to external ids. The map is never mutated in
// place: Reload builds a new one and swaps it in.
type Table struct {
	source Source
	ids    atomic.Value // map[string]string
}

func NewTable(source Source) *Table {
	t := &Table{source: source}
	t.ids.Store(map[string]string{})
	return t
}

// Lookup returns the external id for internalID.
func (t *Table) Lookup(internalID string) (string, bool) {
	ids := t.ids.Load().(map[string]string)
	externalID, ok := ids[internalID]
	return externalID, ok
}

func (t *Table) Len() int {
	return len(t.ids.Load().(map[string]string))
}

// Reload fetches the table from the source. On failure the previous table stays
// in use.
func (t *Table) Reload(ctx context.Context) error {
	ids, err := t.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load identity table: %w", err)
	}
	t.ids.Store(ids)
	return nil
}

// ScheduleReload reloads the table on the given cron schedule until the returned
// cron is stopped.
func (t *Table) ScheduleReload(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := t.Reload(ctx); err != nil {
			log.WithField("err", err).Error("Identity table reload failed, keeping the previous one")
			return
		}
		log.Infof("Identity table reloaded, %d entries", t.Len())
	})
	if err != nil {
		return nil, fmt.Errorf("invalid reload schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
