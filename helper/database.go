package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the postgres connection settings.
type DatabaseConfiguration struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Schema   string `yaml:"schema"`
	SSLMode  string `yaml:"sslmode"`
}

// NewDatabaseConfiguration reads the DB_* environment variables.
// Host, port, database and username are required.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	config := &DatabaseConfiguration{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		Database: os.Getenv("DB_DATABASE"),
		Username: os.Getenv("DB_USERNAME"),
		Password: os.Getenv("DB_PASSWORD"),
		Schema:   os.Getenv("DB_SCHEMA"),
		SSLMode:  os.Getenv("DB_SSLMODE"),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that the required fields are set and fills defaults.
func (c *DatabaseConfiguration) Validate() error {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "DB_HOST")
	}
	if c.Port == "" {
		missing = append(missing, "DB_PORT")
	}
	if c.Database == "" {
		missing = append(missing, "DB_DATABASE")
	}
	if c.Username == "" {
		missing = append(missing, "DB_USERNAME")
	}
	if len(missing) > 0 {
		return NewError("database configuration", fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", ")))
	}

	if c.Schema == "" {
		c.Schema = "public"
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	return nil
}

// DSN returns the lib/pq connection url.
func (c *DatabaseConfiguration) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   c.Database,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	if c.Schema != "" {
		q.Set("search_path", c.Schema)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Database bundles the connection pool with the logger of its owner.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens and pings a postgres connection pool.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) (*Database, error) {
	if config == nil {
		return nil, NewError("database configuration", fmt.Errorf("configuration is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	instance, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, Kind(ErrStorage, NewError("open database", err))
	}
	instance.SetMaxOpenConns(25)
	instance.SetMaxIdleConns(5)
	instance.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var pingErr error
	for attempt := 0; attempt < 5; attempt++ {
		pingErr = instance.PingContext(ctx)
		if pingErr == nil {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
		}
	}
	if pingErr != nil {
		instance.Close()
		return nil, Kind(ErrStorage, NewError("ping database", pingErr))
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host), slog.String("database", config.Database))

	return &Database{
		Name:     name,
		Instance: instance,
		Logger:   logger,
	}, nil
}

// NewTestDatabase connects with a quiet logger and panics on failure.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	logger := NewLogger(os.Stdout, "warn")
	db, err := NewDatabase("test", config, logger)
	if err != nil {
		panic(err)
	}
	return db
}

// Close closes the connection pool.
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}
