package core

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/stageloader/internal/config"
	"github.com/JonMunkholm/stageloader/internal/logging"
)

// Pipeline turns object notifications into rows in the permanent staging tables.
type Pipeline struct {
	wh       Warehouse
	stager   *Stager
	resolver *Resolver
	limiter  *RunLimiter

	project        string
	stagingDataset string
	tempDataset    string
	scheme         string
	runTimeout     time.Duration
	cleanupTimeout time.Duration
}

// NewPipeline builds a pipeline over wh. Entities must already be registered
// (import internal/core/entities).
func NewPipeline(wh Warehouse, cfg *config.Config) *Pipeline {
	project := cfg.Warehouse.ProjectID
	if cfg.Warehouse.Backend == config.BackendPostgres {
		project = ""
	}

	return &Pipeline{
		wh:             wh,
		stager:         NewStager(wh, project, cfg.Warehouse.TempDataset),
		resolver:       NewResolver(DefaultRules),
		limiter:        NewRunLimiter(cfg.Ingest.MaxConcurrent, cfg.Ingest.MaxWaitTime),
		project:        project,
		stagingDataset: cfg.Warehouse.StagingDataset,
		tempDataset:    cfg.Warehouse.TempDataset,
		scheme:         cfg.Storage.Scheme,
		runTimeout:     cfg.Ingest.RunTimeout,
		cleanupTimeout: cfg.Ingest.CleanupTimeout,
	}
}

// Limiter exposes the run limiter for status reporting and shutdown draining.
func (p *Pipeline) Limiter() *RunLimiter {
	return p.limiter
}

// ObjectURI returns scheme://bucket/name for an event.
func (p *Pipeline) ObjectURI(ev Event) string {
	return p.scheme + "://" + ev.Bucket + "/" + ev.Name
}

// Handle runs one ingestion for ev.
//
// Skips (no bucket/name, no matching entity) return StatusSkipped and a nil
// error. Any other failure aborts this run only and is returned; the temp
// table allocated for the run is dropped on every path.
func (p *Pipeline) Handle(ctx context.Context, ev Event) (res RunResult, err error) {
	start := time.Now()
	res = RunResult{RunID: uuid.NewString()}

	ctx = logging.WithRunID(ctx, res.RunID)
	logger := logging.WithFields(ctx, "bucket", ev.Bucket, "object", ev.Name)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in run", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrRunPanic, r)
		}
		res.Duration = time.Since(start)
		if err != nil {
			res.Status = StatusFailed
			res.Error = err.Error()
		}
	}()

	if ev.Bucket == "" || ev.Name == "" {
		logger.Info("skipping event", "reason", ErrMissingObject.Error())
		return skipped(res, ErrMissingObject), nil
	}
	res.URI = p.ObjectURI(ev)

	resolution := p.resolver.Resolve(ev.Name)
	if !resolution.Resolved() {
		logger.Info("skipping event", "reason", ErrUnresolved.Error())
		return skipped(res, ErrUnresolved), nil
	}
	res.Entity = resolution.Entity

	def, ok := Get(resolution.Entity)
	if !ok {
		return res, fmt.Errorf("%w: %q", ErrUnknownEntity, resolution.Entity)
	}

	if err := p.limiter.Acquire(ctx); err != nil {
		return res, err
	}
	defer p.limiter.Release()

	runCtx, cancel := context.WithTimeout(ctx, p.runTimeout)
	defer cancel()

	target := TableRef{Project: p.project, Dataset: p.stagingDataset, Table: resolution.Table}
	res.Target = target.String()

	return p.run(runCtx, logger.With("entity", def.Name), res, def, target)
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, res RunResult, def EntityDefinition, target TableRef) (RunResult, error) {
	for _, ds := range []string{p.stagingDataset, p.tempDataset} {
		if err := p.stager.EnsureDataset(ctx, ds); err != nil {
			return res, err
		}
	}

	temp := p.stager.Acquire(def.Name)
	res.TempTable = temp.Ref.String()
	logger = logger.With("temp_table", res.TempTable)

	defer func() {
		// The run context may already be done; cleanup gets its own budget.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cleanupTimeout)
		defer cancel()

		if err := temp.Release(cleanupCtx); err != nil {
			logger.Warn("temp table cleanup failed", "error", err)
			return
		}
		logger.Debug("temp table dropped")
	}()

	logger.Info("run started", "uri", res.URI)

	loaded, err := p.stager.LoadCSV(ctx, res.URI, temp.Ref, def.Fields)
	if err != nil {
		logger.Error("load failed", "error", err, "code", MapError(err).Code)
		return res, err
	}
	res.RowsLoaded = loaded

	appended, err := Append(ctx, p.wh, def, temp.Ref, target)
	if err != nil {
		logger.Error("append failed", "error", err, "code", MapError(err).Code)
		return res, err
	}
	res.RowsAppended = appended
	res.Status = StatusLoaded

	logger.Info("run finished",
		"target", res.Target,
		"rows_loaded", loaded,
		"rows_appended", appended,
		"skipped_null_dates", loaded-appended,
	)

	return res, nil
}

func skipped(res RunResult, reason error) RunResult {
	res.Status = StatusSkipped
	res.Reason = reason.Error()
	return res
}

// Bootstrap creates both datasets and every registered entity's permanent
// table when absent. Existing tables are left untouched.
func (p *Pipeline) Bootstrap(ctx context.Context) error {
	for _, ds := range []string{p.stagingDataset, p.tempDataset} {
		if err := p.stager.EnsureDataset(ctx, ds); err != nil {
			return err
		}
	}

	for _, def := range All() {
		ref := TableRef{Project: p.project, Dataset: p.stagingDataset, Table: def.Table}
		if err := p.wh.CreateTableIfNotExists(ctx, ref, def.PermanentSchema()); err != nil {
			return fmt.Errorf("create %s: %w", ref, err)
		}
		slog.Info("staging table ready", "entity", def.Name, "table", ref.String())
	}

	return nil
}

// Status is a snapshot for the status endpoint.
type Status struct {
	Entities       []string         `json:"entities"`
	StagingDataset string           `json:"staging_dataset"`
	TempDataset    string           `json:"temp_dataset"`
	Runs           RunLimiterStatus `json:"runs"`
}

// Status reports registered entities and run slot usage.
func (p *Pipeline) Status() Status {
	return Status{
		Entities:       Names(),
		StagingDataset: p.stagingDataset,
		TempDataset:    p.tempDataset,
		Runs:           p.limiter.Status(),
	}
}
