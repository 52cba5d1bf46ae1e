// Package bigquery writes ledger snapshots to a BigQuery reporting table.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// LedgerExporter replaces date windows of the ledger table.
type LedgerExporter struct {
	client  *bigquery.Client
	project string
	dataset string
	table   string
}

// NewLedgerExporter opens a client for project. The table lives at
// project.dataset.table.
func NewLedgerExporter(ctx context.Context, project, dataset, table string) (*LedgerExporter, error) {
	if project == "" || dataset == "" || table == "" {
		return nil, errors.New("NewLedgerExporter: project, dataset and table are required")
	}
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewLedgerExporter: creating client: %w", err)
	}
	return &LedgerExporter{client: client, project: project, dataset: dataset, table: table}, nil
}

// Close closes the BigQuery client.
func (x *LedgerExporter) Close() error {
	return x.client.Close()
}

func (x *LedgerExporter) qualified() string {
	return "`" + x.project + "." + x.dataset + "." + x.table + "`"
}

// EnsureTable creates the table, partitioned by entry_date, when missing.
func (x *LedgerExporter) EnsureTable(ctx context.Context) error {
	t := x.client.DatasetInProject(x.project, x.dataset).Table(x.table)
	_, err := t.Metadata(ctx)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return fmt.Errorf("EnsureTable: reading metadata: %w", err)
	}

	schema, err := bigquery.InferSchema(LedgerRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: inferring schema: %w", err)
	}
	meta := &bigquery.TableMetadata{
		Schema:           schema,
		TimePartitioning: &bigquery.TimePartitioning{Field: "entry_date"},
	}
	if err := t.Create(ctx, meta); err != nil {
		return fmt.Errorf("EnsureTable: creating table: %w", err)
	}
	return nil
}

// ReplaceRange deletes the rows dated in r's list window and inserts rows.
func (x *LedgerExporter) ReplaceRange(ctx context.Context, r domain.DateRange, rows []*LedgerRow) error {
	where, params := windowClause(r)
	q := x.client.Query(`DELETE FROM ` + x.qualified() + ` WHERE ` + where)
	q.Parameters = params
	if err := runQuery(ctx, q); err != nil {
		return fmt.Errorf("ReplaceRange: deleting window: %w", err)
	}

	if len(rows) == 0 {
		return nil
	}
	inserter := x.client.DatasetInProject(x.project, x.dataset).Table(x.table).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("ReplaceRange: inserting rows: %w", err)
	}
	return nil
}

// CountRange returns how many rows the table holds for r's list window.
func (x *LedgerExporter) CountRange(ctx context.Context, r domain.DateRange) (int64, error) {
	where, params := windowClause(r)
	q := x.client.Query(`SELECT COUNT(*) AS n FROM ` + x.qualified() + ` WHERE ` + where)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("CountRange: query read: %w", err)
	}
	var row struct {
		N int64 `bigquery:"n"`
	}
	err = it.Next(&row)
	if errors.Is(err, iterator.Done) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("CountRange: iter next: %w", err)
	}
	return row.N, nil
}

// windowClause renders [start, end + 1 day) over entry_date. An open range
// matches every row.
func windowClause(r domain.DateRange) (string, []bigquery.QueryParameter) {
	var (
		conds  []string
		params []bigquery.QueryParameter
	)
	if r.Start != nil {
		conds = append(conds, "entry_date >= @start_date")
		params = append(params, bigquery.QueryParameter{Name: "start_date", Value: *r.Start})
	}
	if end := r.ExclusiveEnd(); end != nil {
		conds = append(conds, "entry_date < @end_date")
		params = append(params, bigquery.QueryParameter{Name: "end_date", Value: *end})
	}
	if len(conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conds, " AND "), params
}

func runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
