package postgresql

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roataway/briya/cli/bridge/types"
)

var record = types.VehicleRecord{
	TrackerID:  "2",
	ExternalID: "abc123",
	Latitude:   44.43,
	Longitude:  26.1,
	Direction:  90,
	Speed:      12,
	Board:      "3913",
	Route:      "182",
	Category:   "trolleybus",
	Timestamp:  time.Date(2023, time.April, 5, 6, 7, 8, 0, time.UTC),
}

func TestSaveUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	c := &Connector{connection: db, table: "vehicle_state"}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO vehicle_state (rtu_id,") + ".*ON CONFLICT \\(rtu_id\\) DO UPDATE.*" +
		regexp.QuoteMeta("WHERE vehicle_state.updated_at <= EXCLUDED.updated_at")).
		WithArgs("2", "abc123", 44.43, 26.1, 90, 12.0, "3913", "182", "trolleybus", record.Timestamp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectClose()

	require.NoError(t, c.Save(record))
	require.NoError(t, c.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := &Connector{connection: db, table: "vehicle_state"}
	mock.ExpectExec("INSERT INTO vehicle_state").WillReturnError(errors.New("relation does not exist"))

	assert.Error(t, c.Save(record))
}

func TestInitWithoutSettings(t *testing.T) {
	assert.Error(t, (&Connector{}).Init(nil))
}
