package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/stageloader/internal/config"
	"github.com/JonMunkholm/stageloader/internal/core"
	_ "github.com/JonMunkholm/stageloader/internal/core/entities"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Warehouse.ProjectID = "proj"
	cfg.Ingest.MaxWaitTime = 50 * time.Millisecond
	return cfg
}

func TestHandle_Payments(t *testing.T) {
	wh := newFakeWarehouse()
	wh.loadRows, wh.appendRows = 3, 3
	p := core.NewPipeline(wh, testConfig())

	res, err := p.Handle(context.Background(), core.Event{Bucket: "b", Name: "2025/payments_batch.csv"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if res.Status != core.StatusLoaded {
		t.Errorf("Status = %q, want %q", res.Status, core.StatusLoaded)
	}
	if res.Entity != "payments" {
		t.Errorf("Entity = %q, want payments", res.Entity)
	}
	if res.URI != "gs://b/2025/payments_batch.csv" {
		t.Errorf("URI = %q, want gs://b/2025/payments_batch.csv", res.URI)
	}
	if res.Target != "proj.staging.stg_payments" {
		t.Errorf("Target = %q, want proj.staging.stg_payments", res.Target)
	}
	if res.RowsLoaded != 3 || res.RowsAppended != 3 {
		t.Errorf("rows = %d loaded / %d appended, want 3 / 3", res.RowsLoaded, res.RowsAppended)
	}
	if res.RunID == "" {
		t.Error("RunID should be set")
	}

	if wh.datasets["staging"] != 1 || wh.datasets["staging_temp"] != 1 {
		t.Errorf("datasets ensured = %v, want staging and staging_temp once each", wh.datasets)
	}

	if len(wh.loads) != 1 {
		t.Fatalf("loads = %d, want 1", len(wh.loads))
	}
	load := wh.loads[0]
	if load.SkipLeadingRows != 1 || !load.Truncate {
		t.Errorf("load options = skip %d truncate %v, want skip 1 truncate true", load.SkipLeadingRows, load.Truncate)
	}
	if load.Table.Dataset != "staging_temp" || !strings.HasPrefix(load.Table.Table, "tmp_payments_") {
		t.Errorf("load table = %s, want staging_temp.tmp_payments_*", load.Table)
	}
	if len(load.Schema) != 8 {
		t.Errorf("load schema has %d fields, want 8", len(load.Schema))
	}

	if len(wh.queries) != 1 {
		t.Fatalf("queries = %d, want 1", len(wh.queries))
	}
	if !strings.Contains(wh.queries[0], `INSERT INTO "staging"."stg_payments"`) {
		t.Errorf("query does not target stg_payments:\n%s", wh.queries[0])
	}

	if len(wh.drops) != 1 || wh.drops[0] != load.Table {
		t.Errorf("drops = %v, want exactly the temp table %s", wh.drops, load.Table)
	}
	if n := wh.residualTemp(); n != 0 {
		t.Errorf("residual temp tables = %d, want 0", n)
	}
}

func TestHandle_Skips(t *testing.T) {
	tests := []struct {
		name   string
		ev     core.Event
		reason error
	}{
		{"missing bucket", core.Event{Name: "payments.csv"}, core.ErrMissingObject},
		{"missing name", core.Event{Bucket: "b"}, core.ErrMissingObject},
		{"unmatched name", core.Event{Bucket: "b", Name: "raw/providers.csv"}, core.ErrUnresolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wh := newFakeWarehouse()
			p := core.NewPipeline(wh, testConfig())

			res, err := p.Handle(context.Background(), tt.ev)
			if err != nil {
				t.Fatalf("Handle() error = %v, want nil for a skip", err)
			}
			if res.Status != core.StatusSkipped {
				t.Errorf("Status = %q, want skipped", res.Status)
			}
			if res.Reason != tt.reason.Error() {
				t.Errorf("Reason = %q, want %q", res.Reason, tt.reason.Error())
			}
			if len(wh.datasets)+len(wh.loads)+len(wh.queries)+len(wh.drops) != 0 {
				t.Error("skipped event should not touch the warehouse")
			}
		})
	}
}

func TestHandle_LoadFailureDropsTemp(t *testing.T) {
	wh := newFakeWarehouse()
	wh.loadErr = errors.New("invalid date \"2024-13-01\"")
	p := core.NewPipeline(wh, testConfig())

	res, err := p.Handle(context.Background(), core.Event{Bucket: "b", Name: "orders.csv"})
	if !errors.Is(err, core.ErrLoad) {
		t.Fatalf("Handle() error = %v, want ErrLoad", err)
	}
	if res.Status != core.StatusFailed {
		t.Errorf("Status = %q, want failed", res.Status)
	}
	if len(wh.queries) != 0 {
		t.Error("append should not run after a failed load")
	}
	if len(wh.drops) != 1 {
		t.Errorf("drops = %d, want 1", len(wh.drops))
	}
	if got := core.MapError(err).Code; got != "CSV001" {
		t.Errorf("MapError code = %q, want CSV001", got)
	}
}

func TestHandle_AppendFailureDropsTemp(t *testing.T) {
	wh := newFakeWarehouse()
	wh.loadRows = 2
	wh.execErr = errBoom
	p := core.NewPipeline(wh, testConfig())

	_, err := p.Handle(context.Background(), core.Event{Bucket: "b", Name: "orders.csv"})
	if !errors.Is(err, core.ErrAppend) {
		t.Fatalf("Handle() error = %v, want ErrAppend", err)
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("Handle() error = %v, should wrap the warehouse error", err)
	}
	if len(wh.drops) != 1 {
		t.Errorf("drops = %d, want 1", len(wh.drops))
	}
	if n := wh.residualTemp(); n != 0 {
		t.Errorf("residual temp tables = %d, want 0", n)
	}
}

func TestHandle_CleanupFailureDoesNotMaskResult(t *testing.T) {
	wh := newFakeWarehouse()
	wh.loadRows, wh.appendRows = 1, 1
	wh.dropErr = errBoom
	p := core.NewPipeline(wh, testConfig())

	res, err := p.Handle(context.Background(), core.Event{Bucket: "b", Name: "orders.csv"})
	if err != nil {
		t.Fatalf("Handle() error = %v, want nil (cleanup errors are logged only)", err)
	}
	if res.Status != core.StatusLoaded {
		t.Errorf("Status = %q, want loaded", res.Status)
	}

	wh.execErr = errors.New("append broke")
	_, err = p.Handle(context.Background(), core.Event{Bucket: "b", Name: "orders.csv"})
	if !errors.Is(err, core.ErrAppend) {
		t.Errorf("Handle() error = %v, want the append error, not the drop error", err)
	}
}

func TestHandle_PanicRecovered(t *testing.T) {
	for _, stage := range []string{"load", "exec"} {
		t.Run(stage, func(t *testing.T) {
			wh := newFakeWarehouse()
			wh.panicOn = stage
			p := core.NewPipeline(wh, testConfig())

			res, err := p.Handle(context.Background(), core.Event{Bucket: "b", Name: "payments.csv"})
			if !errors.Is(err, core.ErrRunPanic) {
				t.Fatalf("Handle() error = %v, want ErrRunPanic", err)
			}
			if res.Status != core.StatusFailed {
				t.Errorf("Status = %q, want failed", res.Status)
			}
			if len(wh.drops) != 1 {
				t.Errorf("drops = %d, want 1 even after a panic", len(wh.drops))
			}
			if got := p.Limiter().ActiveCount(); got != 0 {
				t.Errorf("run slot leaked: ActiveCount = %d", got)
			}
		})
	}
}

func TestHandle_DistinctTempTables(t *testing.T) {
	wh := newFakeWarehouse()
	p := core.NewPipeline(wh, testConfig())

	for i := 0; i < 2; i++ {
		if _, err := p.Handle(context.Background(), core.Event{Bucket: "b", Name: "payments.csv"}); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
	}

	if len(wh.loads) != 2 {
		t.Fatalf("loads = %d, want 2", len(wh.loads))
	}
	if wh.loads[0].Table == wh.loads[1].Table {
		t.Errorf("two runs used the same temp table %s", wh.loads[0].Table)
	}
}

func TestHandle_TooManyRuns(t *testing.T) {
	cfg := testConfig()
	cfg.Ingest.MaxConcurrent = 1
	p := core.NewPipeline(newFakeWarehouse(), cfg)

	if err := p.Limiter().Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer p.Limiter().Release()

	_, err := p.Handle(context.Background(), core.Event{Bucket: "b", Name: "payments.csv"})
	if !errors.Is(err, core.ErrTooManyRuns) {
		t.Errorf("Handle() error = %v, want ErrTooManyRuns", err)
	}
}

func TestHandle_PostgresBackendHasNoProject(t *testing.T) {
	cfg := testConfig()
	cfg.Warehouse.Backend = config.BackendPostgres
	wh := newFakeWarehouse()
	p := core.NewPipeline(wh, cfg)

	res, err := p.Handle(context.Background(), core.Event{Bucket: "b", Name: "orders.csv"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if res.Target != "staging.stg_orders" {
		t.Errorf("Target = %q, want staging.stg_orders", res.Target)
	}
	if wh.loads[0].Table.Project != "" {
		t.Errorf("temp table project = %q, want empty", wh.loads[0].Table.Project)
	}
}

func TestBootstrap(t *testing.T) {
	wh := newFakeWarehouse()
	p := core.NewPipeline(wh, testConfig())

	if err := p.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	for _, table := range []string{"proj.staging.stg_payments", "proj.staging.stg_orders"} {
		schema, ok := wh.created[table]
		if !ok {
			t.Errorf("Bootstrap did not create %s", table)
			continue
		}
		if last := schema[len(schema)-1]; last.Name != "load_timestamp" || last.Type != core.FieldTimestamp {
			t.Errorf("%s last column = %+v, want load_timestamp timestamp", table, last)
		}
	}
}

func TestStatus(t *testing.T) {
	p := core.NewPipeline(newFakeWarehouse(), testConfig())
	st := p.Status()

	if strings.Join(st.Entities, ",") != "orders,payments" {
		t.Errorf("Entities = %v, want [orders payments]", st.Entities)
	}
	if st.Runs.MaxConcurrent != 4 {
		t.Errorf("Runs.MaxConcurrent = %d, want 4", st.Runs.MaxConcurrent)
	}
}
