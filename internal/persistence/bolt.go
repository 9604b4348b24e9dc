package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
)

// Bolt wraps an embedded bbolt database.
type Bolt struct {
	DB *bolt.DB
}

// NewBolt opens (or creates) the database file.
func NewBolt(cfg config.BoltConfig, logger *zap.Logger) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	logger.Info("opened bolt database", zap.String("path", cfg.Path))
	return &Bolt{DB: db}, nil
}

// Close closes the database file.
func (b *Bolt) Close() {
	if b != nil && b.DB != nil {
		_ = b.DB.Close()
	}
}

// Ping verifies the database is open and readable.
func (b *Bolt) Ping(_ context.Context) error {
	if b == nil || b.DB == nil {
		return errors.New("bolt database not configured")
	}
	return b.DB.View(func(*bolt.Tx) error { return nil })
}
