package database

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

const (
	// DriverPostgres selects the lib/pq backed PostgreSQL store.
	DriverPostgres = "postgres"
	// DriverSQLite selects the embedded modernc SQLite store.
	DriverSQLite = "sqlite"
)

// Config holds database connection settings.
type Config struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	Path           string `yaml:"path" envconfig:"DB_PATH"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Normalize validates the driver selection and fills defaults.
func (c *Config) Normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "", DriverSQLite, "sqlite3":
		c.Driver = DriverSQLite
		if strings.TrimSpace(c.Path) == "" {
			c.Path = "data/refbot.db"
		}
		// SQLite serialises writers; one connection avoids SQLITE_BUSY churn.
		c.MaxConnections = 1
	case DriverPostgres, "postgresql", "pg":
		c.Driver = DriverPostgres
		if c.Host == "" || c.Name == "" {
			return fmt.Errorf("database.host and database.name are required for postgres")
		}
		if c.Port == "" {
			c.Port = "5432"
		}
		if c.SSLMode == "" {
			c.SSLMode = "disable"
		}
		if c.MaxConnections <= 0 {
			c.MaxConnections = 5
		}
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: sqlite, postgres", c.Driver)
	}
	return nil
}

func (c Config) postgresDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// postgresURL is the URL form golang-migrate expects; credentials are escaped.
func (c Config) postgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

func (c Config) sqliteDSN() string {
	return c.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_time_format=sqlite"
}

func (c Config) sqliteURL() string {
	return "sqlite://" + c.Path
}
