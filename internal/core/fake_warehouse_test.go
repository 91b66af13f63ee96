package core_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/JonMunkholm/stageloader/internal/core"
)

// ansiDialect quotes with double quotes and never qualifies by project.
type ansiDialect struct{}

func (ansiDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d ansiDialect) QualifyTable(ref core.TableRef) string {
	return d.QuoteIdent(ref.Dataset) + "." + d.QuoteIdent(ref.Table)
}

func (ansiDialect) CurrentTimestamp() string { return "CURRENT_TIMESTAMP" }
func (ansiDialect) NumericType() string { return "NUMERIC" }

// fakeWarehouse records calls and lets tests inject failures.
type fakeWarehouse struct {
	mu sync.Mutex

	datasets map[string]int
	tables   map[string]bool
	loads    []core.LoadRequest
	queries  []string
	drops    []core.TableRef
	created  map[string][]core.FieldSpec

	loadRows   int64
	appendRows int64
	loadErr    error
	execErr    error
	dropErr    error
	panicOn    string // "load" or "exec"
}

func newFakeWarehouse() *fakeWarehouse {
	return &fakeWarehouse{
		datasets: make(map[string]int),
		tables:   make(map[string]bool),
		created:  make(map[string][]core.FieldSpec),
	}
}

func (f *fakeWarehouse) Dialect() core.Dialect { return ansiDialect{} }

func (f *fakeWarehouse) EnsureDataset(_ context.Context, dataset string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datasets[dataset]++
	return nil
}

func (f *fakeWarehouse) CreateTableIfNotExists(_ context.Context, ref core.TableRef, schema []core.FieldSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.created[ref.String()]; !ok {
		f.created[ref.String()] = schema
	}
	return nil
}

func (f *fakeWarehouse) LoadCSV(_ context.Context, req core.LoadRequest) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn == "load" {
		panic("load exploded")
	}
	f.loads = append(f.loads, req)
	f.tables[req.Table.String()] = true
	if f.loadErr != nil {
		return 0, f.loadErr
	}
	return f.loadRows, nil
}

func (f *fakeWarehouse) Exec(_ context.Context, query string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOn == "exec" {
		panic("exec exploded")
	}
	f.queries = append(f.queries, query)
	if f.execErr != nil {
		return 0, f.execErr
	}
	return f.appendRows, nil
}

func (f *fakeWarehouse) DropTable(_ context.Context, ref core.TableRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drops = append(f.drops, ref)
	if f.dropErr != nil {
		return f.dropErr
	}
	delete(f.tables, ref.String())
	return nil
}

// residualTemp counts tables still present in the fake.
func (f *fakeWarehouse) residualTemp() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables)
}

var errBoom = errors.New("boom")
