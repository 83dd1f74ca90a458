package database

import (
	"context"
	"fmt"
	"time"

	"github.com/wsgraph/engine/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Drivers supported by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options controls how a connection is opened.
type Options struct {
	Driver string
	DSN    string
	Logger *zap.Logger
	// Verbose forwards warnings and SQL traces to the logger.
	Verbose bool
}

// Open dispatches on opts.Driver.
func Open(ctx context.Context, opts Options) (*gorm.DB, error) {
	switch opts.Driver {
	case DriverPostgres, "":
		return OpenPostgres(ctx, opts)
	case DriverSQLite:
		return OpenSQLite(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// OpenPostgres opens a Gorm PostgreSQL connection with retry and sane pooling defaults.
func OpenPostgres(ctx context.Context, opts Options) (*gorm.DB, error) {
	b := utils.Backoff{
		MaxRetries: 5,
		Delay:      500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}

	var db *gorm.DB
	var err error
	for attempt := 0; ; attempt++ {
		db, err = gorm.Open(postgres.Open(opts.DSN), gormConfig(opts))
		if err == nil {
			break
		}
		if attempt >= b.MaxRetries {
			return nil, fmt.Errorf("open postgres failed after retries: %w", err)
		}
		if serr := b.Sleep(ctx, attempt); serr != nil {
			return nil, fmt.Errorf("open postgres canceled: %w", serr)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db db() error: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctxPing); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// OpenSQLite opens a SQLite database. A single connection is used so that
// shared-cache in-memory databases behave like one database and writes serialize.
func OpenSQLite(ctx context.Context, opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(opts.DSN), gormConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db db() error: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return db, nil
}

// Ping checks connectivity, used by the readiness endpoint.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormConfig(opts Options) *gorm.Config {
	level := gormlogger.Silent
	if opts.Verbose {
		level = gormlogger.Warn
	}
	l := opts.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &gorm.Config{
		Logger:                 zapGormLogger{zap: l, level: level},
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
}
