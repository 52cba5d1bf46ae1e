package audit

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/infra/memory"
	"github.com/rs/zerolog"
)

type mockSink struct {
	WriteFunc func(ctx context.Context, a *domain.ActivityLog) error
	calls     int
}

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) Write(ctx context.Context, a *domain.ActivityLog) error {
	m.calls++
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, a)
	}
	return nil
}

func TestRecord_SinkFailuresAreSwallowed(t *testing.T) {
	store := memory.NewStore()
	failing := &mockSink{WriteFunc: func(context.Context, *domain.ActivityLog) error {
		return errors.New("broker down")
	}}
	panicking := &mockSink{WriteFunc: func(context.Context, *domain.ActivityLog) error {
		panic("boom")
	}}
	svc := NewService(store, zerolog.New(io.Discard), failing, panicking)

	id := int64(7)
	svc.Record(context.Background(), Event{UserID: 1, Action: "ledger.create", EntityType: "ledger", EntityID: &id, Details: "Entry #7"})

	if failing.calls != 1 || panicking.calls != 1 {
		t.Fatalf("expected each sink called once, got %d and %d", failing.calls, panicking.calls)
	}

	logs, err := store.ListActivity(context.Background(), domain.ActivityFilter{})
	if err != nil {
		t.Fatalf("ListActivity() error = %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected database sink to keep the record, got %d rows", len(logs))
	}
	if *logs[0].EntityID != 7 || *logs[0].EntityType != "ledger" {
		t.Errorf("unexpected record %+v", logs[0])
	}
}

func TestRecord_TruncatesDetails(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, zerolog.New(io.Discard))

	svc.Record(context.Background(), Event{UserID: 1, Action: "x", Details: strings.Repeat("a", 600)})

	logs, _ := store.ListActivity(context.Background(), domain.ActivityFilter{})
	if got := len(*logs[0].Details); got != domain.MaxActivityDetails {
		t.Errorf("details length = %d, want %d", got, domain.MaxActivityDetails)
	}
}

func TestList_Scope(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	admin := &domain.User{Name: "Admin", Email: "a@x.org", Role: domain.RoleAdmin, IsActive: true}
	worker := &domain.User{Name: "Worker", Email: "w@x.org", Role: domain.RoleWorker, IsActive: true}
	_ = store.CreateUser(ctx, admin)
	_ = store.CreateUser(ctx, worker)

	svc := NewService(store, zerolog.New(io.Discard))
	svc.Record(ctx, Event{UserID: admin.ID, Action: "user.create", EntityType: "user"})
	svc.Record(ctx, Event{UserID: worker.ID, Action: "ledger.create", EntityType: "ledger"})
	svc.Record(ctx, Event{UserID: worker.ID, Action: "receipt.upload", EntityType: "receipt"})

	tests := []struct {
		name   string
		actor  *domain.User
		filter domain.ActivityFilter
		want   int
	}{
		{"admin sees all", admin, domain.ActivityFilter{}, 3},
		{"admin filters by user", admin, domain.ActivityFilter{UserID: &worker.ID}, 2},
		{"worker sees own", worker, domain.ActivityFilter{}, 2},
		{"worker cannot widen scope", worker, domain.ActivityFilter{UserID: &admin.ID}, 2},
		{"entity type filter", worker, domain.ActivityFilter{EntityType: "receipt"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs, err := svc.List(ctx, tt.actor, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(logs) != tt.want {
				t.Errorf("List() returned %d rows, want %d", len(logs), tt.want)
			}
		})
	}
}
