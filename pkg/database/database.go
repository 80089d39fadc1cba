package database

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pharmacy-service/internal/apperr"
	"pharmacy-service/pkg/config"
)

var (
	mu sync.Mutex
	db *gorm.DB
)

// Init opens the shared database connection. It is idempotent and safe to
// call concurrently: the first caller establishes the connection, later
// callers get the existing handle back. The handle lives until Close is
// called at process shutdown.
func Init(dbConfig *config.DBConfig) (*gorm.DB, error) {
	mu.Lock()
	defer mu.Unlock()

	if db != nil {
		return db, nil
	}

	pgConfig := postgres.Config{
		DSN:                  dbConfig.GetDSN(),
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	conn, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: logger.Default.LogMode(dbConfig.LogLevel),
	})
	if err != nil {
		return nil, apperr.Connectionf("connect to database %q", dbConfig.DBName)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, apperr.Connectionf("get database handle")
	}

	// Set connection pool settings from config
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	db = conn
	return db, nil
}

// Get returns the shared database handle, or nil before Init.
func Get() *gorm.DB {
	mu.Lock()
	defer mu.Unlock()
	return db
}

// HealthCheck reports connection liveness without mutating any state.
func HealthCheck(ctx context.Context) bool {
	mu.Lock()
	conn := db
	mu.Unlock()

	if conn == nil {
		return false
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

// Migrate runs migrations for the provided models
func Migrate(models ...interface{}) error {
	conn := Get()
	if conn == nil {
		return fmt.Errorf("database is not initialized")
	}

	if err := conn.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	return nil
}

// Close tears down the shared connection at process shutdown.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	db = nil
	return sqlDB.Close()
}
