package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/sjperalta/billtrack-api/internal/models"
	pkgLogger "github.com/sjperalta/billtrack-api/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLitePrefix selects the embedded sqlite driver instead of PostgreSQL,
// e.g. sqlite://billtrack.db or sqlite://:memory:
const SQLitePrefix = "sqlite://"

// Options tune the connection beyond the DSN
type Options struct {
	Production    bool
	SlowThreshold time.Duration
}

// Connect establishes a connection to the database named by databaseURL
func Connect(databaseURL string, opts Options) (*gorm.DB, error) {
	// Configure GORM logger
	logLevel := logger.Warn
	if !opts.Production {
		logLevel = logger.Info
	}
	slow := opts.SlowThreshold
	if slow == 0 {
		slow = 200 * time.Millisecond
	}

	dialector, embedded := dialectorFor(databaseURL)
	cfg := Config(pkgLogger.NewGormLogger(logLevel, slow))
	cfg.PrepareStmt = !embedded

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	if embedded {
		// one writer; also keeps :memory: a single database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func dialectorFor(databaseURL string) (gorm.Dialector, bool) {
	if strings.HasPrefix(databaseURL, SQLitePrefix) {
		return sqlite.Open(strings.TrimPrefix(databaseURL, SQLitePrefix)), true
	}
	return postgres.Open(databaseURL), false
}

// Config is the gorm configuration shared by every driver.
// TranslateError maps unique violations to gorm.ErrDuplicatedKey, which the
// invoice numbering retry depends on.
func Config(l logger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:                 l,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
}

// Migrate creates or updates the schema for every ledger model
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
