package core

import (
	"context"
	"fmt"
	"time"
)

// FieldType represents the semantic type of a column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldDate
	FieldNumeric    // fixed precision decimal
	FieldBigNumeric // high precision decimal, used for raw monetary input
	FieldInteger
	FieldTimestamp
)

func (t FieldType) String() string {
	switch t {
	case FieldText:
		return "text"
	case FieldDate:
		return "date"
	case FieldNumeric:
		return "numeric"
	case FieldBigNumeric:
		return "bignumeric"
	case FieldInteger:
		return "integer"
	case FieldTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

// FieldSpec describes one column of an entity schema.
type FieldSpec struct {
	Name     string    // Column name, identical in the CSV header and the warehouse
	Type     FieldType // Semantic type
	Required bool      // Value must be present in every row
}

// ExprKind selects how an output column of the append is computed.
type ExprKind int

const (
	ExprPassThrough   ExprKind = iota // copy Source unchanged
	ExprRoundMoney                    // round Source to 2 places, cast to fixed decimal
	ExprCycleMonths                   // derive cycle length in months from Source
	ExprLoadTimestamp                 // current time at append
)

// OutputColumn is one column of a permanent staging table and the
// expression that fills it from the temp table.
type OutputColumn struct {
	Name   string
	Kind   ExprKind
	Source string    // temp table column; unused for ExprLoadTimestamp
	Type   FieldType // type of the permanent column
}

// TableRef addresses a table in the warehouse.
// Project may be empty for backends without a project level.
type TableRef struct {
	Project string
	Dataset string
	Table   string
}

func (r TableRef) String() string {
	if r.Project == "" {
		return r.Dataset + "." + r.Table
	}
	return r.Project + "." + r.Dataset + "." + r.Table
}

// Dialect renders identifiers and builtins for one warehouse's SQL flavor.
type Dialect interface {
	// QuoteIdent quotes a single identifier.
	QuoteIdent(name string) string
	// QualifyTable renders a fully qualified, quoted table reference.
	QualifyTable(ref TableRef) string
	// CurrentTimestamp is the expression for the statement's current time.
	CurrentTimestamp() string
	// NumericType is the fixed-precision decimal type money is cast to.
	NumericType() string
}

// LoadRequest describes one bulk CSV load into a table.
type LoadRequest struct {
	URI             string // scheme://bucket/name
	Table           TableRef
	Schema          []FieldSpec
	SkipLeadingRows int64
	Truncate        bool // replace existing contents instead of appending
}

// Warehouse is the external collaborator that stores staging data.
// Implementations live under internal/warehouse.
type Warehouse interface {
	Dialect() Dialect

	// EnsureDataset creates the dataset if absent. Already-exists is success.
	EnsureDataset(ctx context.Context, dataset string) error

	// CreateTableIfNotExists creates a table with the given schema if absent.
	CreateTableIfNotExists(ctx context.Context, ref TableRef, schema []FieldSpec) error

	// LoadCSV runs a load job to completion and returns the rows loaded.
	LoadCSV(ctx context.Context, req LoadRequest) (int64, error)

	// Exec runs one SQL statement to completion and returns affected rows.
	Exec(ctx context.Context, query string) (int64, error)

	// DropTable deletes the table. Not-found is not an error.
	DropTable(ctx context.Context, ref TableRef) error
}

// Event is one object-storage notification.
type Event struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// RunStatus is the outcome of handling one event.
type RunStatus string

const (
	StatusSkipped RunStatus = "skipped"
	StatusLoaded  RunStatus = "loaded"
	StatusFailed  RunStatus = "failed"
)

// RunResult summarizes one ingestion run.
type RunResult struct {
	RunID        string        `json:"run_id"`
	Status       RunStatus     `json:"status"`
	Reason       string        `json:"reason,omitempty"`
	Entity       string        `json:"entity,omitempty"`
	URI          string        `json:"uri,omitempty"`
	TempTable    string        `json:"temp_table,omitempty"`
	Target       string        `json:"target,omitempty"`
	RowsLoaded   int64         `json:"rows_loaded"`
	RowsAppended int64         `json:"rows_appended"`
	Duration     time.Duration `json:"duration_ns"`
	Error        string        `json:"error,omitempty"`
}
