package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/sirupsen/logrus"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/config"
)

// retryDelay is the pause between connection attempts.
var retryDelay = 5 * time.Second

// ConnectDB attempts to connect to the database with retries.
// The returned pool is the process-wide store; the caller closes it at shutdown.
func ConnectDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	maxRetries := cfg.ConnectRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var db *sqlx.DB
	var err error
	for i := 0; i < maxRetries; i++ {
		db, err = sqlx.Connect("postgres", cfg.DSN())
		if err == nil {
			logrus.WithFields(logrus.Fields{
				"host": cfg.Host,
				"db":   cfg.DBName,
			}).Info("Successfully connected to database")
			configurePool(db, cfg)
			return db, nil
		}
		logrus.Warnf("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d retries: %w", maxRetries, err)
}

func configurePool(db *sqlx.DB, cfg config.DatabaseConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
}
