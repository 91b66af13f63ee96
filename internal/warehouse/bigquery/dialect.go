package bigquery

import (
	"strings"

	"cloud.google.com/go/bigquery"

	"github.com/JonMunkholm/stageloader/internal/core"
)

// Dialect renders GoogleSQL.
type Dialect struct{}

func (Dialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

// QualifyTable quotes the whole path as one identifier, which BigQuery
// accepts for project ids containing dashes.
func (Dialect) QualifyTable(ref core.TableRef) string {
	return Dialect{}.QuoteIdent(ref.String())
}

func (Dialect) CurrentTimestamp() string { return "CURRENT_TIMESTAMP()" }

func (Dialect) NumericType() string { return "NUMERIC" }

func fieldType(t core.FieldType) bigquery.FieldType {
	switch t {
	case core.FieldDate:
		return bigquery.DateFieldType
	case core.FieldNumeric:
		return bigquery.NumericFieldType
	case core.FieldBigNumeric:
		return bigquery.BigNumericFieldType
	case core.FieldInteger:
		return bigquery.IntegerFieldType
	case core.FieldTimestamp:
		return bigquery.TimestampFieldType
	default:
		return bigquery.StringFieldType
	}
}

// toSchema maps field specs to a BigQuery schema, keeping order.
func toSchema(fields []core.FieldSpec) bigquery.Schema {
	schema := make(bigquery.Schema, len(fields))
	for i, f := range fields {
		schema[i] = &bigquery.FieldSchema{
			Name:     f.Name,
			Type:     fieldType(f.Type),
			Required: f.Required,
		}
	}
	return schema
}
