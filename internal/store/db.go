// Package store persists reminder policies outside the process: a YAML file
// for single-user setups and PostgreSQL for shared deployments.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/tartampluch/go-remind/internal/config"
)

// errPolicyNotFound is returned by row lookups; the public stores translate
// it into the default policy.
var errPolicyNotFound = errors.New("policy not found")

// NewPostgresConnection opens a pooled connection and pings it.
func NewPostgresConnection(ctx context.Context, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open(config.DriverPostgres, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDBOpen, err)
	}

	db.SetMaxOpenConns(config.DBMaxOpenConns)
	db.SetMaxIdleConns(config.DBMaxIdleConns)
	db.SetConnMaxLifetime(config.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(config.DBConnMaxIdleTime)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrDBPing, err)
	}

	slog.Info(config.MsgDBReady, config.LogKeyComponent, config.CompStore)
	return db, nil
}
