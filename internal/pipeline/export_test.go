package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	infraBQ "github.com/dvloznov/ministry-backoffice/internal/infra/bigquery"
	"github.com/dvloznov/ministry-backoffice/internal/infra/memory"
	"github.com/dvloznov/ministry-backoffice/internal/pipeline"
	"github.com/shopspring/decimal"
)

// MockWarehouse is a mock implementation of Warehouse for testing.
type MockWarehouse struct {
	EnsureTableFunc  func(ctx context.Context) error
	ReplaceRangeFunc func(ctx context.Context, r domain.DateRange, rows []*infraBQ.LedgerRow) error
}

func (m *MockWarehouse) EnsureTable(ctx context.Context) error {
	if m.EnsureTableFunc != nil {
		return m.EnsureTableFunc(ctx)
	}
	return nil
}

func (m *MockWarehouse) ReplaceRange(ctx context.Context, r domain.DateRange, rows []*infraBQ.LedgerRow) error {
	if m.ReplaceRangeFunc != nil {
		return m.ReplaceRangeFunc(ctx, r, rows)
	}
	return nil
}

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	u := &domain.User{Name: "Wes", Email: "wes@example.org", Role: domain.RoleWorker, IsActive: true}
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	for _, d := range []int{1, 15, 31} {
		e := &domain.LedgerEntry{
			EntryDate: civil.Date{Year: 2024, Month: time.January, Day: d},
			Category:  domain.CategoryExpense,
			Amount:    decimal.NewFromInt(int64(d)),
			CreatedBy: u.ID,
			Status:    domain.StatusPending,
		}
		if err := store.CreateLedgerEntry(ctx, e); err != nil {
			t.Fatalf("CreateLedgerEntry: %v", err)
		}
	}
	return store
}

func TestExportLedger(t *testing.T) {
	store := seed(t)
	start := civil.Date{Year: 2024, Month: time.January, Day: 15}
	end := civil.Date{Year: 2024, Month: time.January, Day: 31}
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	var (
		gotRange domain.DateRange
		gotRows  []*infraBQ.LedgerRow
		ensured  bool
	)
	wh := &MockWarehouse{
		EnsureTableFunc: func(ctx context.Context) error {
			ensured = true
			return nil
		},
		ReplaceRangeFunc: func(ctx context.Context, r domain.DateRange, rows []*infraBQ.LedgerRow) error {
			gotRange, gotRows = r, rows
			return nil
		},
	}

	n, err := pipeline.ExportLedger(context.Background(), store, wh, domain.DateRange{Start: &start, End: &end}, now)
	if err != nil {
		t.Fatalf("ExportLedger: %v", err)
	}
	if !ensured {
		t.Error("EnsureTable was not called")
	}
	if n != 2 || len(gotRows) != 2 {
		t.Fatalf("exported %d rows (%d passed), want 2", n, len(gotRows))
	}
	if *gotRange.End != end {
		t.Errorf("range end = %v", gotRange.End)
	}
	for _, row := range gotRows {
		if row.CreatedByName.StringVal != "Wes" || !row.ExportedTS.Equal(now) {
			t.Errorf("row = %+v", row)
		}
	}
}

func TestExportLedger_WarehouseError(t *testing.T) {
	store := seed(t)
	boom := errors.New("quota exceeded")
	wh := &MockWarehouse{
		ReplaceRangeFunc: func(ctx context.Context, r domain.DateRange, rows []*infraBQ.LedgerRow) error {
			return boom
		},
	}

	if _, err := pipeline.ExportLedger(context.Background(), store, wh, domain.DateRange{}, time.Now()); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
}
