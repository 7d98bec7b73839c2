// Package postgres wraps a lib/pq connection pool with transaction and bulk
// COPY helpers.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/config"
)

type Client struct {
	DB  *sql.DB
	cfg config.PostgresConfig
}

func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db, cfg: cfg}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// CopyIn streams rows into table with COPY FROM STDIN inside tx. next is
// called until it returns false; each call yields one row in column order.
func CopyIn(ctx context.Context, tx *sql.Tx, table string, columns []string, next func() ([]any, bool)) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return 0, fmt.Errorf("preparing copy into %s: %w", table, err)
	}
	defer stmt.Close()

	var rows int64
	for {
		row, ok := next()
		if !ok {
			break
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return rows, fmt.Errorf("copying row %d into %s: %w", rows+1, table, err)
		}
		rows++
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return rows, fmt.Errorf("flushing copy into %s: %w", table, err)
	}
	return rows, nil
}

// QuoteIdentifier quotes a table or column name for interpolation into SQL.
func QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}
