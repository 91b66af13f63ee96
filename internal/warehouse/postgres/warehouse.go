// Package postgres implements the staging warehouse on PostgreSQL.
//
// Datasets are schemas. A load reads the CSV object through objstore and
// streams it into the table with COPY inside one transaction, so a failed
// load leaves the table as it was.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/stageloader/internal/core"
	"github.com/JonMunkholm/stageloader/internal/objstore"
)

// PostgreSQL error codes raised by concurrent CREATE ... IF NOT EXISTS.
const (
	codeUniqueViolation = "23505"
	codeDuplicateTable  = "42P07"
	codeDuplicateSchema = "42P06"
)

// Warehouse stages data in PostgreSQL.
type Warehouse struct {
	pool   *pgxpool.Pool
	opener objstore.Opener
}

// New returns a Warehouse using pool for SQL and opener for source objects.
func New(pool *pgxpool.Pool, opener objstore.Opener) *Warehouse {
	return &Warehouse{pool: pool, opener: opener}
}

// Dialect implements core.Warehouse.
func (w *Warehouse) Dialect() core.Dialect { return Dialect{} }

// EnsureDataset creates the schema if absent.
func (w *Warehouse) EnsureDataset(ctx context.Context, dataset string) error {
	_, err := w.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+Dialect{}.QuoteIdent(dataset))
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("create schema %s: %w", dataset, err)
	}
	return nil
}

// CreateTableIfNotExists creates ref with schema if absent.
func (w *Warehouse) CreateTableIfNotExists(ctx context.Context, ref core.TableRef, schema []core.FieldSpec) error {
	return createTable(ctx, w.pool, ref, schema)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func createTable(ctx context.Context, db execer, ref core.TableRef, schema []core.FieldSpec) error {
	if len(schema) == 0 {
		return fmt.Errorf("create table %s: empty schema", ref)
	}

	d := Dialect{}
	cols := make([]string, len(schema))
	for i, f := range schema {
		cols[i] = d.QuoteIdent(f.Name) + " " + columnType(f.Type)
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.QualifyTable(ref), strings.Join(cols, ", "))
	if _, err := db.Exec(ctx, ddl); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("create table %s: %w", ref, err)
	}
	return nil
}

// LoadCSV streams the object at req.URI into req.Table.
// The table is created if needed with nullable columns; required fields are
// enforced while decoding so the error names the offending line.
func (w *Warehouse) LoadCSV(ctx context.Context, req core.LoadRequest) (int64, error) {
	rc, err := w.opener.Open(ctx, req.URI)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := createTable(ctx, tx, req.Table, req.Schema); err != nil {
		return 0, err
	}

	if req.Truncate {
		if _, err := tx.Exec(ctx, "TRUNCATE "+Dialect{}.QualifyTable(req.Table)); err != nil {
			return 0, fmt.Errorf("truncate %s: %w", req.Table, err)
		}
	}

	columns := make([]string, len(req.Schema))
	for i, f := range req.Schema {
		columns[i] = f.Name
	}

	src := newCSVCopySource(rc, req.Schema, req.SkipLeadingRows)
	n, err := tx.CopyFrom(ctx, pgx.Identifier{req.Table.Dataset, req.Table.Table}, columns, src)
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", req.Table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit load: %w", err)
	}

	slog.DebugContext(ctx, "copy finished",
		"table", req.Table.String(),
		"rows", n,
		"bytes", src.rows.BytesRead(),
	)
	return n, nil
}

// Exec runs query and returns the affected row count.
func (w *Warehouse) Exec(ctx context.Context, query string) (int64, error) {
	tag, err := w.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DropTable drops ref if it exists.
func (w *Warehouse) DropTable(ctx context.Context, ref core.TableRef) error {
	if _, err := w.pool.Exec(ctx, "DROP TABLE IF EXISTS "+Dialect{}.QualifyTable(ref)); err != nil {
		return fmt.Errorf("drop table %s: %w", ref, err)
	}
	return nil
}

func isAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeUniqueViolation, codeDuplicateTable, codeDuplicateSchema:
		return true
	}
	return false
}
