package postgres

// convert.go turns CSV cells into pgtype values for COPY.
//
// Parsing is deliberately as strict as a warehouse CSV load: ISO dates,
// plain decimal numbers, RFC 3339 timestamps. An empty cell is NULL.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/stageloader/internal/core"
)

var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

var dateLayouts = []string{"2006-01-02", "2006/01/02", "2006.01.02"}

// ToPgText converts a string to pgtype.Text. Blank is NULL; anything else
// is stored verbatim, surrounding whitespace included, the way a
// warehouse CSV load keeps STRING columns.
func ToPgText(s string) pgtype.Text {
	if strings.TrimSpace(s) == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgDate parses an ISO date. Blank or unparseable is NULL.
func ToPgDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Date{Time: t, Valid: true}
		}
	}
	return pgtype.Date{}
}

// ToPgNumeric parses a plain decimal. Blank or unparseable is NULL.
func ToPgNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if s == "" || !numericRegex.MatchString(s) {
		return pgtype.Numeric{}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{}
	}
	return n
}

// ToPgInt8 parses a base-10 integer. Blank or unparseable is NULL.
func ToPgInt8(s string) pgtype.Int8 {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: i, Valid: true}
}

// ToPgTimestamptz parses an RFC 3339 timestamp. Blank or unparseable is NULL.
func ToPgTimestamptz(s string) pgtype.Timestamptz {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// decodeCell converts one cell for field. Empty cells are NULL unless the
// field is required; non-empty cells that do not parse are errors.
func decodeCell(field core.FieldSpec, raw string) (any, error) {
	if strings.TrimSpace(raw) == "" {
		if field.Required {
			return nil, fmt.Errorf("required field %s is empty", field.Name)
		}
		return nil, nil
	}

	var (
		v     any
		valid bool
		kind  string
	)
	switch field.Type {
	case core.FieldDate:
		d := ToPgDate(raw)
		v, valid, kind = d, d.Valid, "date"
	case core.FieldNumeric, core.FieldBigNumeric:
		n := ToPgNumeric(raw)
		v, valid, kind = n, n.Valid, "number"
	case core.FieldInteger:
		i := ToPgInt8(raw)
		v, valid, kind = i, i.Valid, "number"
	case core.FieldTimestamp:
		ts := ToPgTimestamptz(raw)
		v, valid, kind = ts, ts.Valid, "timestamp"
	default:
		txt := ToPgText(raw)
		v, valid, kind = txt, txt.Valid, "text"
	}

	if !valid {
		return nil, fmt.Errorf("invalid %s %q for %s", kind, raw, field.Name)
	}
	return v, nil
}
