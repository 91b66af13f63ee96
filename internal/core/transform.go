package core

import (
	"context"
	"fmt"
	"strings"
)

// BuildAppendSQL renders the INSERT ... SELECT that moves one run's temp
// table into the entity's permanent table.
//
// The statement only interpolates identifiers taken from the registry and
// the run's own table references, all quoted by the dialect, plus literals
// from CycleRules. No event-supplied value reaches the query text.
func BuildAppendSQL(d Dialect, def EntityDefinition, temp, target TableRef) (string, error) {
	if len(def.Output) == 0 {
		return "", fmt.Errorf("entity %q has no output columns", def.Name)
	}

	cols := make([]string, len(def.Output))
	exprs := make([]string, len(def.Output))
	for i, col := range def.Output {
		expr, err := outputExpr(d, col)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", col.Name, err)
		}
		cols[i] = d.QuoteIdent(col.Name)
		exprs[i] = expr
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s)\n", d.QualifyTable(target), strings.Join(cols, ", "))
	b.WriteString("SELECT\n  ")
	b.WriteString(strings.Join(exprs, ",\n  "))
	fmt.Fprintf(&b, "\nFROM %s\n", d.QualifyTable(temp))
	fmt.Fprintf(&b, "WHERE %s IS NOT NULL", d.QuoteIdent(def.DateColumn))

	return b.String(), nil
}

func outputExpr(d Dialect, col OutputColumn) (string, error) {
	switch col.Kind {
	case ExprPassThrough:
		return d.QuoteIdent(col.Source), nil

	case ExprRoundMoney:
		return fmt.Sprintf("CAST(ROUND(%s, %d) AS %s)", d.QuoteIdent(col.Source), MoneyScale, d.NumericType()), nil

	case ExprCycleMonths:
		var b strings.Builder
		b.WriteString("CASE")
		src := d.QuoteIdent(col.Source)
		for _, rule := range CycleRules {
			fmt.Fprintf(&b, " WHEN %s LIKE %s THEN %d", src, likeContains(rule.Marker), rule.Months)
		}
		fmt.Fprintf(&b, " ELSE %d END", CycleMonthsDefault)
		return b.String(), nil

	case ExprLoadTimestamp:
		return d.CurrentTimestamp(), nil

	default:
		return "", fmt.Errorf("unknown expression kind %d", col.Kind)
	}
}

// likeContains renders a LIKE pattern literal matching s anywhere.
func likeContains(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "'%" + strings.ReplaceAll(s, "'", "''") + "%'"
}

// Append runs the transform-and-append for def from temp into target and
// returns the number of rows inserted.
func Append(ctx context.Context, wh Warehouse, def EntityDefinition, temp, target TableRef) (int64, error) {
	query, err := BuildAppendSQL(wh.Dialect(), def, temp, target)
	if err != nil {
		return 0, fmt.Errorf("%w: build query: %v", ErrAppend, err)
	}

	n, err := wh.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%w into %s: %w", ErrAppend, target, err)
	}
	return n, nil
}
