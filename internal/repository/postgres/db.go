package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/semaphore"

	"github.com/elysenoe925-creator/NTS-PROJECT-sub000/internal/config"
)

const defaultMaxConcurrency = 10

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

var (
	dbInstance *DB
	once       sync.Once
)

// NewDB returns the shared lib/pq connection pool built from config.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	var err error
	once.Do(func() {
		connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

		dbInstance, err = Open("postgres", connStr, cfg.MaxConcurrency)
	})

	return dbInstance, err
}

// Open connects with the named database/sql driver ("postgres" for lib/pq,
// "pgx" for the pgx stdlib adapter).
func Open(driver, dsn string, maxConcurrency int64) (*DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return Wrap(db, maxConcurrency), nil
}

// Wrap configures the pool and attaches the concurrency limiter.
func Wrap(db *sqlx.DB, maxConcurrency int64) *DB {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}

	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(maxConcurrency),
	}
}

// selectContext runs a query under the concurrency limit.
func (db *DB) selectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	return db.SelectContext(ctx, dest, query, args...)
}
