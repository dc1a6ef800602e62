package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Database wraps the sql connection together with its logger
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// DatabaseConfiguration holds the connection parameters
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads the database configuration from the environment.
// A .env file in the working directory is loaded first if present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("MEDRAG_DB_HOST"),
		Port:     os.Getenv("MEDRAG_DB_PORT"),
		Database: os.Getenv("MEDRAG_DB_DATABASE"),
		Username: os.Getenv("MEDRAG_DB_USERNAME"),
		Password: os.Getenv("MEDRAG_DB_PASSWORD"),
		Schema:   getEnvOrDefault("MEDRAG_DB_SCHEMA", "public"),
		SSLMode:  getEnvOrDefault("MEDRAG_DB_SSLMODE", "disable"),
	}

	var missing []string
	if config.Host == "" {
		missing = append(missing, "MEDRAG_DB_HOST")
	}
	if config.Port == "" {
		missing = append(missing, "MEDRAG_DB_PORT")
	}
	if config.Database == "" {
		missing = append(missing, "MEDRAG_DB_DATABASE")
	}
	if config.Username == "" {
		missing = append(missing, "MEDRAG_DB_USERNAME")
	}
	if len(missing) > 0 {
		return nil, NewError("database configuration", fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", ")))
	}

	return config, nil
}

// ConnectionString returns the lib/pq connection string
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode, c.Schema,
	)
}

// NewDatabase opens and pings a connection. It exits the process if the database is unreachable.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}

	instance, err := connect(config)
	if err != nil {
		log.Fatalf("error connecting to database %s: %v", name, err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Name:     name,
		Instance: instance,
		Logger:   logger,
	}
}

// NewTestDatabase opens a connection with a discarding logger
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	return NewDatabase("test", config, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
}

// Close closes the underlying connection
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}

func connect(config *DatabaseConfiguration) (*sql.DB, error) {
	instance, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, err
	}

	instance.SetMaxOpenConns(25)
	instance.SetMaxIdleConns(5)
	instance.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var pingErr error
	for attempt := 0; attempt < 5; attempt++ {
		if pingErr = instance.PingContext(ctx); pingErr == nil {
			return instance, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("ping database: %w", pingErr)
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("ping database: %w", pingErr)
}

func getEnvOrDefault(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
