// Package postgres stores analytics interaction events in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool sizing. The recorder writes from one goroutine; the rest serves
// hatctl range and count queries.
const (
	minPoolConns      = 1
	maxPoolConns      = 4
	healthCheckPeriod = 30 * time.Second
	applicationName   = "hat-store"
)

// pgErrUniqueViolation is the SQLSTATE of a duplicate event_id.
const pgErrUniqueViolation = "23505"

// Pool is the pgx pool the event store runs on.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to dsn and pings the server. Pool limits given in the
// DSN are kept when they exceed the defaults.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	tunePool(cfg)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

func tunePool(cfg *pgxpool.Config) {
	if cfg.MaxConns < maxPoolConns {
		cfg.MaxConns = maxPoolConns
	}
	if cfg.MinConns < minPoolConns {
		cfg.MinConns = minPoolConns
	}
	cfg.HealthCheckPeriod = healthCheckPeriod
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
}

// Close releases every pooled connection.
func (p *Pool) Close() {
	p.Pool.Close()
}

// isDuplicateKeyError reports whether err is a unique violation, i.e. the
// event id was already stored.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}
