package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/histogram"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/postgres"
)

var copyColumns = []string{"run_id", "word", "count"}

// TxRunner runs fn inside a transaction that commits when fn returns nil.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Postgres persists a run into a table of the form
//
//	CREATE TABLE word_frequencies (
//	    run_id TEXT   NOT NULL,
//	    word   TEXT   NOT NULL,
//	    count  BIGINT NOT NULL,
//	    PRIMARY KEY (run_id, word)
//	);
//
// The table is created if missing. Rows of a previous attempt with the same
// run id are deleted in the same transaction as the COPY.
type Postgres struct {
	db     TxRunner
	table  string
	logger *slog.Logger
}

func NewPostgres(db TxRunner, table string) *Postgres {
	return &Postgres{
		db:     db,
		table:  table,
		logger: slog.Default().With("component", "postgres-sink", "table", table),
	}
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Write(ctx context.Context, runID string, entries []histogram.Entry) error {
	table := postgres.QuoteIdentifier(p.table)
	return p.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createTableSQL(table)); err != nil {
			return fmt.Errorf("creating %s: %w", p.table, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = $1`, runID); err != nil {
			return fmt.Errorf("clearing run %s from %s: %w", runID, p.table, err)
		}
		rows, err := postgres.CopyIn(ctx, tx, p.table, copyColumns, entryRows(runID, entries))
		if err != nil {
			return err
		}
		p.logger.Debug("rows copied", "run_id", runID, "rows", rows)
		return nil
	})
}

func createTableSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
	run_id TEXT NOT NULL,
	word TEXT NOT NULL,
	count BIGINT NOT NULL,
	PRIMARY KEY (run_id, word)
)`
}

func entryRows(runID string, entries []histogram.Entry) func() ([]any, bool) {
	i := 0
	return func() ([]any, bool) {
		if i >= len(entries) {
			return nil, false
		}
		e := entries[i]
		i++
		return []any{runID, e.Word, int64(e.Count)}, true
	}
}
