// Package database provides PostgreSQL access for all services.
// It wraps a pgx connection pool behind a small interface so repositories
// and services can be tested against fakes.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"meetai/internal/database/migrations"
)

// Service defines the interface for database operations
type Service interface {
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Health() map[string]string
	Close() error
}

type service struct {
	pool *pgxpool.Pool
	dsn  string
}

// New creates a new database service from environment configuration.
// It connects eagerly and fails fast on misconfiguration.
func New() Service {
	dsn := buildDSN()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		log.Fatalf("[Database] Invalid DSN: %v", err)
	}

	cfg.MaxConns = int32(getEnvInt("DB_MAX_CONNS", 10))
	cfg.MinConns = int32(getEnvInt("DB_MIN_CONNS", 2))
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("[Database] Failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("[Database] Failed to ping database: %v", err)
	}

	s := &service{pool: pool, dsn: dsn}

	if err := s.runMigrations(ctx); err != nil {
		log.Fatalf("[Database] Migration failed: %v", err)
	}

	return s
}

// runMigrations applies the embedded goose migrations.
// Migrations run through database/sql since goose does not speak pgx natively.
func (s *service) runMigrations(ctx context.Context) error {
	db, err := sql.Open("pgx", s.dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// QueryRow executes a query that returns at most one row
func (s *service) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return s.pool.QueryRow(ctx, query, args...)
}

// Query executes a query that returns multiple rows
func (s *service) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return s.pool.Query(ctx, query, args...)
}

// Exec executes a query without returning rows and reports affected rows
func (s *service) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Health reports pool statistics and connectivity status
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	status := make(map[string]string)

	if err := s.pool.Ping(ctx); err != nil {
		status["status"] = "down"
		status["error"] = err.Error()
		return status
	}

	stats := s.pool.Stat()
	status["status"] = "up"
	status["total_conns"] = strconv.Itoa(int(stats.TotalConns()))
	status["idle_conns"] = strconv.Itoa(int(stats.IdleConns()))
	status["acquired_conns"] = strconv.Itoa(int(stats.AcquiredConns()))

	return status
}

// Close releases the connection pool
func (s *service) Close() error {
	s.pool.Close()
	return nil
}

// buildDSN assembles the connection string from environment variables.
// DATABASE_URL takes precedence over the individual DB_* variables.
func buildDSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	name := getEnv("DB_NAME", "meetai")
	sslmode := getEnv("DB_SSLMODE", "disable")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, name, sslmode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
