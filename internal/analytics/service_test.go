package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/infra/memory"
	"github.com/shopspring/decimal"
)

func d(y int, m time.Month, day int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: day}
}

func seed(t *testing.T, store *memory.Store, date civil.Date, c domain.Category, amt string, status domain.Status) {
	t.Helper()
	e := &domain.LedgerEntry{EntryDate: date, Category: c, Amount: decimal.RequireFromString(amt), CreatedBy: 1, Status: status}
	if err := store.CreateLedgerEntry(context.Background(), e); err != nil {
		t.Fatal(err)
	}
}

func TestSummary_SalesMinusExpenses(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, d(2024, 1, 10), domain.CategorySales, "100.00", domain.StatusApproved)
	seed(t, store, d(2024, 1, 10), domain.CategoryExpense, "40.00", domain.StatusApproved)

	start, end := d(2024, 1, 10), d(2024, 1, 10)
	got, err := NewService(store, store).Summary(context.Background(), domain.DateRange{Start: &start, End: &end})
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	if !got.TotalSales.Equal(decimal.RequireFromString("100")) {
		t.Errorf("TotalSales = %s, want 100.00", got.TotalSales)
	}
	if !got.TotalExpenses.Equal(decimal.RequireFromString("40")) {
		t.Errorf("TotalExpenses = %s, want 40.00", got.TotalExpenses)
	}
	if !got.NetProfit.Equal(decimal.RequireFromString("60")) {
		t.Errorf("NetProfit = %s, want 60.00", got.NetProfit)
	}
	if len(got.Trend) != 1 || got.Trend[0].Date != start {
		t.Errorf("Trend = %+v", got.Trend)
	}
}

func TestSummary_Filters(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, d(2024, 1, 1), domain.CategorySales, "10", domain.StatusApproved)
	seed(t, store, d(2024, 1, 31), domain.CategorySales, "20", domain.StatusApproved)
	seed(t, store, d(2024, 1, 31), domain.CategoryOffering, "7", domain.StatusApproved)
	seed(t, store, d(2024, 1, 15), domain.CategoryMinistryFund, "3", domain.StatusApproved)
	seed(t, store, d(2024, 1, 15), domain.CategoryReimbursement, "2", domain.StatusApproved)
	seed(t, store, d(2024, 1, 15), domain.CategorySales, "500", domain.StatusPending)
	seed(t, store, d(2024, 1, 15), domain.CategorySales, "500", domain.StatusRejected)
	seed(t, store, d(2024, 2, 1), domain.CategorySales, "1000", domain.StatusApproved)

	start, end := d(2024, 1, 1), d(2024, 1, 31)
	got, err := NewService(store, store).Summary(context.Background(), domain.DateRange{Start: &start, End: &end})
	if err != nil {
		t.Fatal(err)
	}

	if !got.TotalSales.Equal(decimal.NewFromInt(30)) {
		t.Errorf("TotalSales = %s, want 30", got.TotalSales)
	}
	if !got.TotalOffering.Equal(decimal.NewFromInt(7)) {
		t.Errorf("TotalOffering = %s, want 7", got.TotalOffering)
	}
	if !got.NetProfit.Equal(decimal.NewFromInt(25)) {
		t.Errorf("NetProfit = %s, want 25 (offering excluded)", got.NetProfit)
	}

	wantDates := []civil.Date{d(2024, 1, 1), d(2024, 1, 15), d(2024, 1, 31)}
	if len(got.Trend) != len(wantDates) {
		t.Fatalf("Trend has %d points, want %d", len(got.Trend), len(wantDates))
	}
	for i, want := range wantDates {
		if got.Trend[i].Date != want {
			t.Errorf("Trend[%d].Date = %s, want %s", i, got.Trend[i].Date, want)
		}
	}
	if !got.Trend[1].Sales.IsZero() {
		t.Errorf("pending and rejected sales leaked into trend: %s", got.Trend[1].Sales)
	}
}

func TestSummary_ReimbursementCountIgnoresStatus(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	for i, status := range []domain.Status{domain.StatusPending, domain.StatusApproved, domain.StatusRejected} {
		entry := &domain.LedgerEntry{EntryDate: d(2024, 1, 5+i), Category: domain.CategoryReimbursement, Amount: decimal.NewFromInt(5), CreatedBy: 1, Status: domain.StatusPending}
		r := &domain.Reimbursement{RequestedBy: 1, Status: domain.StatusPending}
		if err := store.CreateReimbursement(ctx, entry, r); err != nil {
			t.Fatal(err)
		}
		if status != domain.StatusPending {
			if _, err := store.ResolveReimbursement(ctx, r.ID, domain.Resolution{Status: status, ApproverID: 1}); err != nil {
				t.Fatal(err)
			}
		}
	}
	outside := &domain.LedgerEntry{EntryDate: d(2024, 3, 1), Category: domain.CategoryReimbursement, Amount: decimal.NewFromInt(5), CreatedBy: 1, Status: domain.StatusPending}
	_ = store.CreateReimbursement(ctx, outside, &domain.Reimbursement{RequestedBy: 1, Status: domain.StatusPending})

	start, end := d(2024, 1, 1), d(2024, 1, 31)
	got, err := NewService(store, store).Summary(ctx, domain.DateRange{Start: &start, End: &end})
	if err != nil {
		t.Fatal(err)
	}
	if got.ReimbursementCount != 3 {
		t.Errorf("ReimbursementCount = %d, want 3", got.ReimbursementCount)
	}
	if !got.TotalReimbursements.Equal(decimal.NewFromInt(5)) {
		t.Errorf("TotalReimbursements = %s, want 5 (approved only)", got.TotalReimbursements)
	}
}

type failingLedger struct {
	*memory.Store
}

func (failingLedger) ListApprovedLedgerEntries(context.Context, domain.DateRange) ([]*domain.LedgerEntry, error) {
	return nil, errors.New("db down")
}

func TestSummary_RepositoryError(t *testing.T) {
	store := memory.NewStore()
	if _, err := NewService(failingLedger{store}, store).Summary(context.Background(), domain.DateRange{}); err == nil {
		t.Fatal("expected error")
	}
}
