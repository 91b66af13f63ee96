// Package bigquery implements the staging warehouse on BigQuery.
//
// Loads are server-side load jobs reading gs:// objects directly; the
// loader process never downloads the file.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/JonMunkholm/stageloader/internal/core"
	"github.com/JonMunkholm/stageloader/internal/objstore"
)

// Warehouse stages data in BigQuery.
type Warehouse struct {
	client   *bigquery.Client
	location string
}

// New creates a BigQuery client for projectID. Datasets are created and
// jobs run in location.
func New(ctx context.Context, projectID, location string, opts ...option.ClientOption) (*Warehouse, error) {
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	return &Warehouse{client: client, location: location}, nil
}

// Close releases the client.
func (w *Warehouse) Close() error {
	return w.client.Close()
}

// Dialect implements core.Warehouse.
func (w *Warehouse) Dialect() core.Dialect { return Dialect{} }

func (w *Warehouse) table(ref core.TableRef) *bigquery.Table {
	project := ref.Project
	if project == "" {
		project = w.client.Project()
	}
	return w.client.DatasetInProject(project, ref.Dataset).Table(ref.Table)
}

// EnsureDataset creates the dataset in the client project if absent.
func (w *Warehouse) EnsureDataset(ctx context.Context, dataset string) error {
	err := w.client.Dataset(dataset).Create(ctx, &bigquery.DatasetMetadata{Location: w.location})
	if err != nil && !hasStatus(err, http.StatusConflict) {
		return fmt.Errorf("create dataset %s: %w", dataset, err)
	}
	return nil
}

// CreateTableIfNotExists creates ref with schema if absent.
func (w *Warehouse) CreateTableIfNotExists(ctx context.Context, ref core.TableRef, schema []core.FieldSpec) error {
	err := w.table(ref).Create(ctx, &bigquery.TableMetadata{Schema: toSchema(schema)})
	if err != nil && !hasStatus(err, http.StatusConflict) {
		return fmt.Errorf("create table %s: %w", ref, err)
	}
	return nil
}

// LoadCSV runs a load job from a gs:// object into req.Table and waits for it.
func (w *Warehouse) LoadCSV(ctx context.Context, req core.LoadRequest) (int64, error) {
	loc, err := objstore.ParseURI(req.URI)
	if err != nil {
		return 0, err
	}
	if loc.Scheme != "gs" {
		return 0, fmt.Errorf("%w: bigquery loads only read gs:// objects, got %s", objstore.ErrUnsupportedScheme, loc.Scheme)
	}

	src := bigquery.NewGCSReference(req.URI)
	src.SourceFormat = bigquery.CSV
	src.SkipLeadingRows = req.SkipLeadingRows
	src.Schema = toSchema(req.Schema)

	loader := w.table(req.Table).LoaderFrom(src)
	loader.Location = w.location
	loader.CreateDisposition = bigquery.CreateIfNeeded
	loader.WriteDisposition = bigquery.WriteAppend
	if req.Truncate {
		loader.WriteDisposition = bigquery.WriteTruncate
	}

	job, err := loader.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("start load job: %w", err)
	}
	slog.DebugContext(ctx, "load job started", "job_id", job.ID(), "table", req.Table.String())

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for load job %s: %w", job.ID(), err)
	}
	if err := status.Err(); err != nil {
		return 0, jobError(job.ID(), status, err)
	}

	if stats, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok {
		return stats.OutputRows, nil
	}
	return 0, nil
}

// Exec runs query as a job and returns the DML affected row count.
func (w *Warehouse) Exec(ctx context.Context, query string) (int64, error) {
	q := w.client.Query(query)
	q.Location = w.location

	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("start query job: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for query job %s: %w", job.ID(), err)
	}
	if err := status.Err(); err != nil {
		return 0, jobError(job.ID(), status, err)
	}

	if stats, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return stats.NumDMLAffectedRows, nil
	}
	return 0, nil
}

// DropTable deletes ref. A missing table is not an error.
func (w *Warehouse) DropTable(ctx context.Context, ref core.TableRef) error {
	err := w.table(ref).Delete(ctx)
	if err != nil && !hasStatus(err, http.StatusNotFound) {
		return fmt.Errorf("drop table %s: %w", ref, err)
	}
	return nil
}

// jobError joins the job's primary error with the per-row errors BigQuery
// reports, so messages like "Invalid date" reach MapError.
func jobError(jobID string, status *bigquery.JobStatus, err error) error {
	errs := []error{err}
	for _, e := range status.Errors {
		if e != nil && e.Error() != err.Error() {
			errs = append(errs, e)
		}
	}
	return fmt.Errorf("job %s: %w", jobID, errors.Join(errs...))
}

func hasStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
