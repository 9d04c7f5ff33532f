package connector

import (
	"database/sql"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

type Connector interface {
	GetConnection() *sql.DB
	Connect(map[string]string) error
	Close() error
}

type Settings struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// SQLConnector opens a PostgreSQL or MySQL connection from a flat parameter map.
type SQLConnector struct {
	connection *sql.DB
	settings   Settings
}

func getOptionValue(optionName string, optionDefaultValue string, settings map[string]string) string {
	optionValue := settings[optionName]
	if optionValue == "" {
		log.Warnf("Key '%s' not found in the database settings. Using default value '%s'.", optionName, optionDefaultValue)
		optionValue = optionDefaultValue
	}

	return optionValue
}

func (c *SQLConnector) FillSettings(settings map[string]string) {
	c.settings.Driver = getOptionValue("driver", "postgres", settings)
	defaultPort := "5432"
	defaultUser := "postgres"
	if c.settings.Driver == "mysql" {
		defaultPort = "3306"
		defaultUser = "root"
	}
	c.settings.Host = getOptionValue("host", "localhost", settings)
	c.settings.Port = getOptionValue("port", defaultPort, settings)
	c.settings.User = getOptionValue("user", defaultUser, settings)
	c.settings.Password = settings["password"]
	c.settings.Database = getOptionValue("database", "briya", settings)
	c.settings.SSLMode = getOptionValue("sslmode", "disable", settings)
}

// DSN returns the driver name and data source name for the filled settings.
func (c *SQLConnector) DSN() (string, string, error) {
	switch c.settings.Driver {
	case "postgres":
		return "postgres", fmt.Sprintf("dbname=%s host=%s port=%s user=%s password=%s sslmode=%s",
			c.settings.Database, c.settings.Host, c.settings.Port, c.settings.User, c.settings.Password, c.settings.SSLMode), nil
	case "mysql":
		cfg := mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.settings.Host, c.settings.Port)
		cfg.User = c.settings.User
		cfg.Passwd = c.settings.Password
		cfg.DBName = c.settings.Database
		cfg.ParseTime = true
		return "mysql", cfg.FormatDSN(), nil
	default:
		return "", "", fmt.Errorf("unknown database driver: %s", c.settings.Driver)
	}
}

func (c *SQLConnector) Connect(settings map[string]string) error {
	var err error
	if settings == nil {
		return fmt.Errorf("database settings are missing")
	}

	c.FillSettings(settings)

	driver, dsn, err := c.DSN()
	if err != nil {
		return err
	}

	if c.connection, err = sql.Open(driver, dsn); err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	if err = c.connection.Ping(); err != nil {
		return fmt.Errorf("%s is unreachable: %w", driver, err)
	}
	return nil
}

func (c *SQLConnector) GetConnection() *sql.DB {
	return c.connection
}

func (c *SQLConnector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Close()
}
