package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ministry-backoffice/internal/audit"
	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/infra/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type recorderMock struct {
	events []audit.Event
}

func (m *recorderMock) Record(_ context.Context, e audit.Event) {
	m.events = append(m.events, e)
}

type fixture struct {
	svc    *Service
	store  *memory.Store
	rec    *recorderMock
	admin  *domain.User
	worker *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	admin := &domain.User{Name: "Ada", Email: "ada@example.org", Role: domain.RoleAdmin, IsActive: true}
	worker := &domain.User{Name: "Wes", Email: "wes@example.org", Role: domain.RoleWorker, IsActive: true}
	if err := store.CreateUser(ctx, admin); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateUser(ctx, worker); err != nil {
		t.Fatal(err)
	}

	rec := &recorderMock{}
	svc := NewService(store, store, rec, zerolog.New(io.Discard))
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.Local) }
	return &fixture{svc: svc, store: store, rec: rec, admin: admin, worker: worker}
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func date(y int, m time.Month, d int) *civil.Date {
	return &civil.Date{Year: y, Month: m, Day: d}
}

func strPtr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	pending := domain.StatusPending
	bogus := domain.Status("archived")

	tests := []struct {
		name       string
		in         CreateInput
		wantErr    error
		wantStatus domain.Status
		wantDate   civil.Date
	}{
		{
			name:       "defaults",
			in:         CreateInput{Category: domain.CategorySales, Amount: amount("100")},
			wantStatus: domain.StatusApproved,
			wantDate:   civil.Date{Year: 2024, Month: 3, Day: 15},
		},
		{
			name:       "explicit status and date",
			in:         CreateInput{Category: domain.CategoryExpense, Amount: amount("40.005"), EntryDate: date(2024, 1, 10), Status: &pending},
			wantStatus: domain.StatusPending,
			wantDate:   civil.Date{Year: 2024, Month: 1, Day: 10},
		},
		{
			name:    "invalid category",
			in:      CreateInput{Category: "donation", Amount: amount("1")},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "missing amount",
			in:      CreateInput{Category: domain.CategorySales},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "invalid status",
			in:      CreateInput{Category: domain.CategorySales, Amount: amount("1"), Status: &bogus},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			entry, err := f.svc.Create(context.Background(), f.worker, tt.in)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
				}
				if len(f.rec.events) != 0 {
					t.Errorf("expected no audit event on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() unexpected error = %v", err)
			}
			if entry.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", entry.Status, tt.wantStatus)
			}
			if entry.EntryDate != tt.wantDate {
				t.Errorf("EntryDate = %s, want %s", entry.EntryDate, tt.wantDate)
			}
			if entry.CreatedBy != f.worker.ID {
				t.Errorf("CreatedBy = %d, want %d", entry.CreatedBy, f.worker.ID)
			}
			if entry.Amount.Exponent() < -2 {
				t.Errorf("Amount %s not rounded to cents", entry.Amount)
			}
			if len(f.rec.events) != 1 || f.rec.events[0].Action != "ledger.create" {
				t.Errorf("expected one ledger.create event, got %+v", f.rec.events)
			}
		})
	}
}

func TestCreate_AuditDetails(t *testing.T) {
	f := newFixture(t)
	entry, err := f.svc.Create(context.Background(), f.worker, CreateInput{Category: domain.CategorySales, Amount: amount("12.5")})
	if err != nil {
		t.Fatal(err)
	}
	want := fmt.Sprintf("Entry #%d: sales $12.50", entry.ID)
	if got := f.rec.events[0].Details; got != want {
		t.Errorf("Details = %q, want %q", got, want)
	}
}

func TestList_DateWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, d := range []*civil.Date{date(2023, 12, 31), date(2024, 1, 1), date(2024, 1, 31), date(2024, 2, 1)} {
		if _, err := f.svc.Create(ctx, f.worker, CreateInput{Category: domain.CategorySales, Amount: amount("1"), EntryDate: d}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := f.svc.List(ctx, domain.DateRange{Start: date(2024, 1, 1), End: date(2024, 1, 31)})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(entries))
	}
	if entries[0].EntryDate != *date(2024, 1, 31) || entries[1].EntryDate != *date(2024, 1, 1) {
		t.Errorf("List() not ordered newest first: %s, %s", entries[0].EntryDate, entries[1].EntryDate)
	}

	all, _ := f.svc.List(ctx, domain.DateRange{})
	if len(all) != 4 {
		t.Errorf("unbounded List() returned %d entries, want 4", len(all))
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	newAmount := decimal.RequireFromString("75.25")
	rejected := domain.StatusRejected
	badCategory := domain.Category("gift")

	tests := []struct {
		name    string
		actor   func(*fixture) *domain.User
		id      func(int64) int64
		patch   domain.LedgerEntryPatch
		wantErr error
	}{
		{"admin updates amount and label", func(f *fixture) *domain.User { return f.admin }, same, domain.LedgerEntryPatch{Amount: &newAmount, Label: domain.SetString(strPtr("market"))}, nil},
		{"admin updates status of plain entry", func(f *fixture) *domain.User { return f.admin }, same, domain.LedgerEntryPatch{Status: &rejected}, nil},
		{"worker forbidden", func(f *fixture) *domain.User { return f.worker }, same, domain.LedgerEntryPatch{Amount: &newAmount}, domain.ErrForbidden},
		{"missing entry", func(f *fixture) *domain.User { return f.admin }, func(int64) int64 { return 9999 }, domain.LedgerEntryPatch{Amount: &newAmount}, domain.ErrNotFound},
		{"invalid category", func(f *fixture) *domain.User { return f.admin }, same, domain.LedgerEntryPatch{Category: &badCategory}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			entry, err := f.svc.Create(ctx, f.worker, CreateInput{Category: domain.CategorySales, Amount: amount("10")})
			if err != nil {
				t.Fatal(err)
			}
			f.rec.events = nil

			updated, err := f.svc.Update(ctx, tt.actor(f), tt.id(entry.ID), tt.patch)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Update() error = %v, want %v", err, tt.wantErr)
				}
				stored, _ := f.store.GetLedgerEntry(ctx, entry.ID)
				if !stored.Amount.Equal(decimal.NewFromInt(10)) || stored.Label != nil || stored.Status != domain.StatusApproved {
					t.Errorf("entry changed after failed update: %+v", stored)
				}
				if len(f.rec.events) != 0 {
					t.Errorf("expected no audit event on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("Update() unexpected error = %v", err)
			}
			stored, _ := f.store.GetLedgerEntry(ctx, entry.ID)
			if tt.patch.Amount != nil && !stored.Amount.Equal(*tt.patch.Amount) {
				t.Errorf("Amount = %s, want %s", stored.Amount, tt.patch.Amount)
			}
			if tt.patch.Status != nil && stored.Status != *tt.patch.Status {
				t.Errorf("Status = %s, want %s", stored.Status, *tt.patch.Status)
			}
			if updated.Category != domain.CategorySales {
				t.Errorf("unsupplied field Category changed to %s", updated.Category)
			}
			if len(f.rec.events) != 1 || f.rec.events[0].Action != "ledger.update" || f.rec.events[0].EntityType != "ledger" {
				t.Errorf("expected ledger.update event, got %+v", f.rec.events)
			}
		})
	}
}

func same(id int64) int64 { return id }

func TestUpdate_LinkedEntryConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry := &domain.LedgerEntry{Category: domain.CategoryReimbursement, Amount: decimal.NewFromInt(50), EntryDate: *date(2024, 1, 5), CreatedBy: f.worker.ID, Status: domain.StatusPending}
	if err := f.store.CreateReimbursement(ctx, entry, &domain.Reimbursement{RequestedBy: f.worker.ID, Status: domain.StatusPending}); err != nil {
		t.Fatal(err)
	}

	approved := domain.StatusApproved
	if _, err := f.svc.Update(ctx, f.admin, entry.ID, domain.LedgerEntryPatch{Status: &approved}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("Update() error = %v, want ErrConflict", err)
	}

	sales := domain.CategorySales
	if _, err := f.svc.Update(ctx, f.admin, entry.ID, domain.LedgerEntryPatch{Category: &sales}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("Update() category error = %v, want ErrConflict", err)
	}
	sameCategory := domain.CategoryReimbursement
	if _, err := f.svc.Update(ctx, f.admin, entry.ID, domain.LedgerEntryPatch{Category: &sameCategory, Description: domain.SetString(strPtr("train fare"))}); err != nil {
		t.Fatalf("Update() of non-status field error = %v", err)
	}
	stored, _ := f.store.GetLedgerEntry(ctx, entry.ID)
	if stored.Status != domain.StatusPending || stored.Category != domain.CategoryReimbursement {
		t.Errorf("entry = %s/%s, want pending/reimbursement", stored.Status, stored.Category)
	}
	if stored.Description == nil || *stored.Description != "train fare" {
		t.Errorf("Description = %v, want train fare", stored.Description)
	}
}

func TestUpdate_NullClearsOptionalText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.svc.Create(ctx, f.worker, CreateInput{Category: domain.CategorySales, Amount: amount("10"), Description: strPtr("bake sale"), Label: strPtr("youth")})
	if err != nil {
		t.Fatal(err)
	}

	var patch domain.LedgerEntryPatch
	if err := json.Unmarshal([]byte(`{"description": null}`), &patch); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Update(ctx, f.admin, entry.ID, patch); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stored, _ := f.store.GetLedgerEntry(ctx, entry.ID)
	if stored.Description != nil {
		t.Errorf("Description = %q, want cleared", *stored.Description)
	}
	if stored.Label == nil || *stored.Label != "youth" {
		t.Errorf("absent label changed: %v", stored.Label)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("admin deletes and audits details", func(t *testing.T) {
		f := newFixture(t)
		entry, _ := f.svc.Create(ctx, f.worker, CreateInput{Category: domain.CategoryOffering, Amount: amount("20")})
		f.rec.events = nil

		if err := f.svc.Delete(ctx, f.admin, entry.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := f.store.GetLedgerEntry(ctx, entry.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("entry still present after delete")
		}
		if len(f.rec.events) != 1 {
			t.Fatalf("expected one audit event, got %d", len(f.rec.events))
		}
		want := fmt.Sprintf("Deleted entry #%d (offering $20.00)", entry.ID)
		if f.rec.events[0].Details != want {
			t.Errorf("Details = %q, want %q", f.rec.events[0].Details, want)
		}
	})

	t.Run("worker forbidden", func(t *testing.T) {
		f := newFixture(t)
		entry, _ := f.svc.Create(ctx, f.worker, CreateInput{Category: domain.CategorySales, Amount: amount("20")})
		if err := f.svc.Delete(ctx, f.worker, entry.ID); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("Delete() error = %v, want ErrForbidden", err)
		}
		if _, err := f.store.GetLedgerEntry(ctx, entry.ID); err != nil {
			t.Errorf("entry removed by forbidden delete")
		}
	})

	t.Run("missing", func(t *testing.T) {
		f := newFixture(t)
		if err := f.svc.Delete(ctx, f.admin, 4242); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Delete() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("linked entry conflicts", func(t *testing.T) {
		f := newFixture(t)
		entry := &domain.LedgerEntry{Category: domain.CategoryReimbursement, Amount: decimal.NewFromInt(5), EntryDate: *date(2024, 1, 5), CreatedBy: f.worker.ID, Status: domain.StatusPending}
		_ = f.store.CreateReimbursement(ctx, entry, &domain.Reimbursement{RequestedBy: f.worker.ID, Status: domain.StatusPending})
		if err := f.svc.Delete(ctx, f.admin, entry.ID); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("Delete() error = %v, want ErrConflict", err)
		}
	})
}

func TestDailySummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := domain.StatusPending

	inputs := []struct {
		actor *domain.User
		in    CreateInput
	}{
		{f.worker, CreateInput{Category: domain.CategorySales, Amount: amount("100"), EntryDate: date(2024, 1, 10), Label: strPtr("coffee")}},
		{f.worker, CreateInput{Category: domain.CategoryExpense, Amount: amount("40"), EntryDate: date(2024, 1, 10), Label: strPtr("coffee")}},
		{f.worker, CreateInput{Category: domain.CategoryOffering, Amount: amount("15"), EntryDate: date(2024, 1, 10), Label: strPtr("coffee")}},
		{f.admin, CreateInput{Category: domain.CategorySales, Amount: amount("30"), EntryDate: date(2024, 1, 10), Label: strPtr("coffee")}},
		{f.admin, CreateInput{Category: domain.CategoryMinistryFund, Amount: amount("10"), EntryDate: date(2024, 1, 11)}},
		{f.admin, CreateInput{Category: domain.CategoryReimbursement, Amount: amount("5"), EntryDate: date(2024, 1, 11)}},
		{f.worker, CreateInput{Category: domain.CategorySales, Amount: amount("999"), EntryDate: date(2024, 1, 11), Status: &pending}},
		{f.worker, CreateInput{Category: domain.CategorySales, Amount: amount("500"), EntryDate: date(2024, 2, 1)}},
	}
	for _, in := range inputs {
		if _, err := f.svc.Create(ctx, in.actor, in.in); err != nil {
			t.Fatal(err)
		}
	}

	summary, err := f.svc.DailySummary(ctx, domain.DateRange{Start: date(2024, 1, 1), End: date(2024, 1, 31)})
	if err != nil {
		t.Fatalf("DailySummary() error = %v", err)
	}

	if len(summary.Rows) != 3 {
		t.Fatalf("DailySummary() returned %d rows, want 3", len(summary.Rows))
	}

	for _, row := range summary.Rows[:2] {
		if row.Date != *date(2024, 1, 10) {
			t.Errorf("row date = %s, want 2024-01-10", row.Date)
		}
		if row.UserID == f.worker.ID {
			if !row.Sales.Equal(decimal.NewFromInt(100)) || !row.Expenses.Equal(decimal.NewFromInt(40)) || !row.Offering.Equal(decimal.NewFromInt(15)) {
				t.Errorf("worker row buckets wrong: %+v", row.CategoryTotals)
			}
			if !row.NetProfit.Equal(decimal.NewFromInt(60)) {
				t.Errorf("worker row net = %s, want 60", row.NetProfit)
			}
			if row.UserName == nil || *row.UserName != "Wes" {
				t.Errorf("worker row name = %v", row.UserName)
			}
		}
	}

	last := summary.Rows[2]
	if last.Label != nil || !last.NetProfit.Equal(decimal.NewFromInt(-15)) {
		t.Errorf("unlabelled row = %+v", last)
	}

	sum := decimal.Zero
	for _, row := range summary.Rows {
		sum = sum.Add(row.NetProfit)
	}
	if !summary.Totals.NetProfit.Equal(sum) {
		t.Errorf("totals net %s != sum of rows %s", summary.Totals.NetProfit, sum)
	}
	if !summary.Totals.Sales.Equal(decimal.NewFromInt(130)) {
		t.Errorf("totals sales = %s, want 130", summary.Totals.Sales)
	}
	if !summary.Totals.Offering.Equal(decimal.NewFromInt(15)) {
		t.Errorf("totals offering = %s, want 15", summary.Totals.Offering)
	}
}

func TestDailySummary_Empty(t *testing.T) {
	f := newFixture(t)
	summary, err := f.svc.DailySummary(context.Background(), domain.DateRange{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Rows == nil || len(summary.Rows) != 0 {
		t.Errorf("expected empty non-nil rows, got %v", summary.Rows)
	}
	if !summary.Totals.NetProfit.IsZero() {
		t.Errorf("expected zero totals, got %s", summary.Totals.NetProfit)
	}
}
