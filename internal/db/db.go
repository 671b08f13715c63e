package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/planetevo/apiserver/config"
)

const (
	defaultDBDriver     = "postgres"
	defaultPingTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 20
)

// Open creates the connection pool shared by every request and verifies
// that the database is reachable. The caller owns the pool and must close it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := strings.TrimSpace(cfg.URL)
	if dsn == "" {
		return nil, errors.New("database url is required")
	}

	db, err := sql.Open(defaultDBDriver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(orDuration(cfg.ConnMaxIdleTime, defaultConnMaxIdle))
	db.SetConnMaxLifetime(orDuration(cfg.ConnMaxLifetime, defaultConnMaxLife))
	db.SetMaxIdleConns(orInt(cfg.MaxIdleConns, defaultMaxIdleConns))
	db.SetMaxOpenConns(orInt(cfg.MaxOpenConns, defaultMaxOpenConns))

	ctx, cancel := context.WithTimeout(ctx, orDuration(cfg.PingTimeout, defaultPingTimeout))
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func orDuration(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func orInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
