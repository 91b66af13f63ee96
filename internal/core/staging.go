package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// TempTablePrefix starts every per-run temp table name.
const TempTablePrefix = "tmp_"

// tempSuffixLen is the number of hex characters of randomness in a temp table name.
const tempSuffixLen = 12

// Stager performs the warehouse side of staging: datasets, temp tables and loads.
type Stager struct {
	wh          Warehouse
	project     string
	tempDataset string
}

// NewStager creates a Stager that allocates temp tables in tempDataset.
func NewStager(wh Warehouse, project, tempDataset string) *Stager {
	return &Stager{wh: wh, project: project, tempDataset: tempDataset}
}

// EnsureDataset creates the dataset if it does not exist yet.
func (s *Stager) EnsureDataset(ctx context.Context, dataset string) error {
	if err := s.wh.EnsureDataset(ctx, dataset); err != nil {
		return fmt.Errorf("ensure dataset %s: %w", dataset, err)
	}
	return nil
}

// AllocateTempTable returns a fresh table reference tmp_<entity>_<12 hex>
// in the temp dataset. Nothing is created in the warehouse.
func (s *Stager) AllocateTempTable(entity string) TableRef {
	return TableRef{
		Project: s.project,
		Dataset: s.tempDataset,
		Table:   TempTableName(entity),
	}
}

// TempTableName builds a unique temp table name for entity.
func TempTableName(entity string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:tempSuffixLen]
	return TempTablePrefix + entity + "_" + suffix
}

// LoadCSV loads the object at uri into ref under schema: one header row
// skipped, existing contents replaced. It blocks until the load finishes.
func (s *Stager) LoadCSV(ctx context.Context, uri string, ref TableRef, schema []FieldSpec) (int64, error) {
	n, err := s.wh.LoadCSV(ctx, LoadRequest{
		URI:             uri,
		Table:           ref,
		Schema:          schema,
		SkipLeadingRows: 1,
		Truncate:        true,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s into %s: %w", ErrLoad, uri, ref, err)
	}
	return n, nil
}

// DropTable deletes ref. A missing table is not an error.
func (s *Stager) DropTable(ctx context.Context, ref TableRef) error {
	if err := s.wh.DropTable(ctx, ref); err != nil {
		return fmt.Errorf("drop %s: %w", ref, err)
	}
	return nil
}

// TempTable is a temp table owned by one run. Release drops it at most once.
type TempTable struct {
	Ref TableRef

	stager *Stager
	once   sync.Once
	err    error
}

// Acquire allocates a temp table for entity. The caller must Release it.
func (s *Stager) Acquire(entity string) *TempTable {
	return &TempTable{Ref: s.AllocateTempTable(entity), stager: s}
}

// Release drops the table. Later calls return the first call's result.
func (t *TempTable) Release(ctx context.Context) error {
	t.once.Do(func() {
		t.err = t.stager.DropTable(ctx, t.Ref)
	})
	return t.err
}
