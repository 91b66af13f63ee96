package postgres

import (
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/stageloader/internal/core"
)

// Dialect renders PostgreSQL SQL. Datasets map to schemas; projects are ignored.
type Dialect struct{}

func (Dialect) QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (Dialect) QualifyTable(ref core.TableRef) string {
	return pgx.Identifier{ref.Dataset, ref.Table}.Sanitize()
}

func (Dialect) CurrentTimestamp() string { return "CURRENT_TIMESTAMP" }

func (Dialect) NumericType() string { return "NUMERIC(38,9)" }

// columnType maps a field type to the column type used in DDL.
func columnType(t core.FieldType) string {
	switch t {
	case core.FieldDate:
		return "DATE"
	case core.FieldNumeric:
		return "NUMERIC(38,9)"
	case core.FieldBigNumeric:
		return "NUMERIC"
	case core.FieldInteger:
		return "BIGINT"
	case core.FieldTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}
