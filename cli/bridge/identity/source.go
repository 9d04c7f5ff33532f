package identity

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/roataway/briya/cli/bridge/config"
	"github.com/roataway/briya/cli/bridge/connector"
)

var ErrUnknownSource = errors.New("identity source isn't supported")

// CSVHeader is written as the first row of identity CSV files.
var CSVHeader = []string{"tracker_id", "yandex_tracker_id"}

type Source interface {
	Load(ctx context.Context) (map[string]string, error)
}

// NewSource builds the source named in the identity settings.
func NewSource(cfg config.Identity) (Source, error) {
	switch cfg.Source {
	case "csv":
		return &CSVSource{Path: cfg.Path}, nil
	case "postgresql", "mysql":
		params := make(map[string]string, len(cfg.Params)+1)
		for k, v := range cfg.Params {
			params[k] = v
		}
		if cfg.Source == "mysql" {
			params["driver"] = "mysql"
		} else {
			params["driver"] = "postgres"
		}
		conn := &connector.SQLConnector{}
		if err := conn.Connect(params); err != nil {
			return nil, err
		}
		return NewSQLSource(conn, params), nil
	case "redis":
		return NewRedisSource(cfg.Params), nil
	default:
		return nil, ErrUnknownSource
	}
}

type CSVSource struct {
	Path string
}

func (s *CSVSource) Load(_ context.Context) (map[string]string, error) {
	return ReadCSV(s.Path)
}

// ReadCSV reads an identity file: a header row, then internal_id,external_id rows.
func ReadCSV(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	ids := make(map[string]string)
	header := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if header {
			header = false
			continue
		}
		if len(row) < 2 || row[0] == "" {
			continue
		}
		ids[row[0]] = row[1]
	}
	return ids, nil
}

// WriteCSV writes ids sorted by internal id, preceded by CSVHeader.
func WriteCSV(path string, ids map[string]string) error {
	keys := make([]string, 0, len(ids))
	for k := range ids {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err = w.Write(CSVHeader); err != nil {
		f.Close()
		return err
	}
	for _, k := range keys {
		if err = w.Write([]string{k, ids[k]}); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SQLSource reads the table from a database through the SQL connector.
//
// Parameters: table, key_column, value_column.
type SQLSource struct {
	conn        connector.Connector
	table       string
	keyColumn   string
	valueColumn string
}

func NewSQLSource(conn connector.Connector, params map[string]string) *SQLSource {
	s := &SQLSource{
		conn:        conn,
		table:       params["table"],
		keyColumn:   params["key_column"],
		valueColumn: params["value_column"],
	}
	if s.table == "" {
		s.table = "vehicle_identities"
	}
	if s.keyColumn == "" {
		s.keyColumn = "tracker_id"
	}
	if s.valueColumn == "" {
		s.valueColumn = "yandex_tracker_id"
	}
	return s
}

func (s *SQLSource) Load(ctx context.Context) (map[string]string, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s", s.keyColumn, s.valueColumn, s.table)
	rows, err := s.conn.GetConnection().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query identity table: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]string)
	for rows.Next() {
		var internalID, externalID string
		if err = rows.Scan(&internalID, &externalID); err != nil {
			return nil, fmt.Errorf("scan identity row: %w", err)
		}
		ids[internalID] = externalID
	}
	return ids, rows.Err()
}

func (s *SQLSource) Close() error {
	return s.conn.Close()
}

// RedisSource reads the table from a single hash.
//
// Parameters: addr, password, key.
type RedisSource struct {
	client *redis.Client
	key    string
}

func NewRedisSource(params map[string]string) *RedisSource {
	key := params["key"]
	if key == "" {
		key = "briya:identities"
	}
	addr := params["addr"]
	if addr == "" {
		addr = "localhost:6379"
	}
	return &RedisSource{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: params["password"],
		}),
		key: key,
	}
}

func (s *RedisSource) Load(ctx context.Context) (map[string]string, error) {
	ids, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", s.key, err)
	}
	return ids, nil
}

func (s *RedisSource) Close() error {
	return s.client.Close()
}
