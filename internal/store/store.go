// Package store owns the relational side of the seeding pipeline: the
// durable job queue, accepted songs and their tags. All queue mutations
// happen inside a single transaction spanning claim through finalize.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ItsAltus/Worshipify/internal/config"
	"github.com/ItsAltus/Worshipify/internal/model"
)

type Store struct {
	db *gorm.DB
}

// Open connects to the database named by cfg.URL. postgres:// URLs get the
// postgres driver (skip-locked claims); anything else is treated as a
// sqlite path, used for tests and local development.
func Open(cfg *config.DatabaseConfig) (*Store, error) {
	var dial gorm.Dialector
	if strings.HasPrefix(cfg.URL, "postgres://") || strings.HasPrefix(cfg.URL, "postgresql://") {
		dial = postgres.Open(cfg.URL)
	} else {
		dsn := cfg.URL
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=busy_timeout(10000)"
		}
		dial = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Store{db: db}, nil
}

// AutoMigrate creates or updates the queue, song and tag tables.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&model.Job{}, &model.AcceptedSong{}, &model.SongTag{})
}

// DB exposes the underlying handle for read-only queries outside the
// worker's claim transaction.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn inside one database transaction bound to ctx.
// A ctx cancellation mid-transaction rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// Ping verifies the connection on startup so a worker does not start
// polling against a dead database.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
