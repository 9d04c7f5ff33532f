package postgresql

/*
Settings for the postgresql mirror (all but table are passed to the SQL connector):

host = "localhost"
port = "5432"
user = "postgres"
password = "postgres"
database = "briya"
table = "vehicle_state"
sslmode = "disable"

The table needs a unique rtu_id column. A row is only replaced by a record that is
not older than it.
*/

import (
	"database/sql"
	"fmt"

	"github.com/roataway/briya/cli/bridge/connector"
	"github.com/roataway/briya/cli/bridge/types"
)

type Connector struct {
	conn       connector.Connector
	connection *sql.DB
	table      string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("storage settings are missing")
	}

	params := make(map[string]string, len(cfg)+1)
	for k, v := range cfg {
		params[k] = v
	}
	params["driver"] = "postgres"

	conn := &connector.SQLConnector{}
	if err := conn.Connect(params); err != nil {
		return err
	}
	c.conn = conn
	c.connection = conn.GetConnection()
	c.table = cfg["table"]
	if c.table == "" {
		c.table = "vehicle_state"
	}
	return nil
}

func (c *Connector) Save(r types.VehicleRecord) error {
	query := fmt.Sprintf(`INSERT INTO %s (rtu_id, external_id, latitude, longitude, direction, speed, board, route, category, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (rtu_id) DO UPDATE SET
  latitude = EXCLUDED.latitude,
  longitude = EXCLUDED.longitude,
  direction = EXCLUDED.direction,
  speed = EXCLUDED.speed,
  board = EXCLUDED.board,
  route = EXCLUDED.route,
  updated_at = EXCLUDED.updated_at
WHERE %s.updated_at <= EXCLUDED.updated_at`, c.table, c.table)

	if _, err := c.connection.Exec(query,
		r.TrackerID, r.ExternalID, r.Latitude, r.Longitude, r.Direction,
		r.Speed, r.Board, r.Route, r.Category, r.Timestamp,
	); err != nil {
		return fmt.Errorf("failed to upsert vehicle %s: %w", r.TrackerID, err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return c.connection.Close()
}
