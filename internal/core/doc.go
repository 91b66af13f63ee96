// Package core implements the staging pipeline: from an object-storage
// notification to rows in a permanent staging table.
//
// The package has no transport or warehouse dependencies. HTTP handlers,
// the CLI and tests drive it through [Pipeline], and warehouse backends
// plug in through the [Warehouse] interface.
//
// # Flow
//
// For each [Event] the pipeline:
//
//  1. Resolves the entity from the object name ([Resolve]); no match is a skip.
//  2. Looks up the entity in the registry ([Get], [SchemaFor]).
//  3. Ensures the staging and temp datasets exist.
//  4. Allocates a uniquely named temp table and loads the CSV into it.
//  5. Runs one INSERT ... SELECT into the permanent table ([BuildAppendSQL]),
//     skipping rows whose date column is null.
//  6. Drops the temp table, whatever happened in steps 4 and 5.
//
// The date column is a required field, so a CSV row with an empty date
// fails the load in step 4 (CSV003) and nothing is appended. The null-date
// filter in step 5 only drops rows from temp tables filled some other way.
//
// # Entity Registry
//
// Entities register at init time, see internal/core/entities:
//
//	core.Register(core.EntityDefinition{
//	    Name:       "orders",
//	    Table:      "stg_orders",
//	    DateColumn: "order_date",
//	    Fields:     []core.FieldSpec{{Name: "order_id", Type: core.FieldText, Required: true}, ...},
//	    Output:     []core.OutputColumn{...},
//	})
//
// # Rules
//
// Monetary rounding and the order cycle derivation are computed by the
// warehouse, but the same rule tables back [RoundHalfUp] and [CycleMonths]
// so the semantics are testable without one.
//
// # Errors
//
// Run errors wrap the sentinels in errors.go. [MapError] maps them to codes:
// ING (pipeline), CSV (file content), OBJ (source object), WH (warehouse).
package core
