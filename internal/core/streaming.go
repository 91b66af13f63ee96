package core

// streaming.go reads staged CSV objects row by row in constant memory.
// Backends that load rows themselves (rather than handing the URI to a
// warehouse load job) read through CSVReader so they see the same file
// shape a warehouse load would: optional UTF-8 BOM dropped, leading rows
// skipped, fixed column count.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkipBOM returns a reader positioned after a leading UTF-8 BOM, if any.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// CountingReader tracks bytes read from the underlying reader.
type CountingReader struct {
	r io.Reader
	n int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (c *CountingReader) BytesRead() int64 { return c.n }

// CSVReader yields data rows of a staged CSV file.
type CSVReader struct {
	counter *CountingReader
	csv     *csv.Reader
	skip    int64
	rows    int64
	started bool
}

// NewCSVReader reads records of exactly columns fields from r, skipping the
// first skipLeadingRows records. Invalid UTF-8 in cells is replaced with '?'.
func NewCSVReader(r io.Reader, columns int, skipLeadingRows int64) *CSVReader {
	counter := NewCountingReader(r)

	cr := csv.NewReader(SkipBOM(counter))
	cr.FieldsPerRecord = columns
	cr.ReuseRecord = true

	return &CSVReader{counter: counter, csv: cr, skip: skipLeadingRows}
}

// Next returns the next data row, or io.EOF after the last one.
// The returned slice is only valid until the next call.
func (r *CSVReader) Next() ([]string, error) {
	for {
		record, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}

		r.started = true
		if r.skip > 0 {
			r.skip--
			continue
		}

		r.rows++
		for i, cell := range record {
			record[i] = strings.ToValidUTF8(cell, "?")
		}
		return record, nil
	}
}

// Line returns the line of the record last returned by Next, for error messages.
// Call it only after a successful Next.
func (r *CSVReader) Line() int {
	if !r.started {
		return 0
	}
	line, _ := r.csv.FieldPos(0)
	return line
}

// Rows returns the number of data rows returned so far.
func (r *CSVReader) Rows() int64 { return r.rows }

// BytesRead returns the number of source bytes consumed so far.
func (r *CSVReader) BytesRead() int64 { return r.counter.BytesRead() }
