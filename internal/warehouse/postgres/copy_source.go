package postgres

import (
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/stageloader/internal/core"
)

// csvCopySource feeds CSV rows to pgx CopyFrom, decoding cells by schema
// position as a warehouse CSV load would.
type csvCopySource struct {
	rows   *core.CSVReader
	schema []core.FieldSpec
	values []any
	err    error
}

func newCSVCopySource(r io.Reader, schema []core.FieldSpec, skipLeadingRows int64) *csvCopySource {
	return &csvCopySource{
		rows:   core.NewCSVReader(r, len(schema), skipLeadingRows),
		schema: schema,
	}
}

func (s *csvCopySource) Next() bool {
	if s.err != nil {
		return false
	}

	record, err := s.rows.Next()
	if errors.Is(err, io.EOF) {
		return false
	}
	if err != nil {
		s.err = err
		return false
	}

	values := make([]any, len(s.schema))
	for i, field := range s.schema {
		v, err := decodeCell(field, record[i])
		if err != nil {
			s.err = fmt.Errorf("line %d: %w", s.rows.Line(), err)
			return false
		}
		values[i] = v
	}
	s.values = values
	return true
}

func (s *csvCopySource) Values() ([]any, error) {
	return s.values, nil
}

func (s *csvCopySource) Err() error {
	return s.err
}
