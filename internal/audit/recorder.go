package audit

import (
	"context"
	"fmt"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/dvloznov/ministry-backoffice/internal/metrics"
	"github.com/dvloznov/ministry-backoffice/internal/repository"
	"github.com/rs/zerolog"
)

// Event describes one mutation worth recording.
type Event struct {
	UserID     int64
	Action     string
	EntityType string
	EntityID   *int64
	Details    string
}

// Recorder is the best-effort audit port. Record never fails the caller.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Sink persists activity records. Each sink fails independently.
type Sink interface {
	Name() string
	Write(ctx context.Context, a *domain.ActivityLog) error
}

// Service fans events out to its sinks and serves activity listings.
type Service struct {
	repo  repository.ActivityRepository
	sinks []Sink
	log   zerolog.Logger
}

// NewService records into repo and any extra sinks.
func NewService(repo repository.ActivityRepository, log zerolog.Logger, extra ...Sink) *Service {
	sinks := append([]Sink{repositorySink{repo: repo}}, extra...)
	return &Service{repo: repo, sinks: sinks, log: log}
}

// Record writes e to every sink. Sink errors and panics are logged, counted
// and discarded.
func (s *Service) Record(ctx context.Context, e Event) {
	a := &domain.ActivityLog{
		UserID: e.UserID,
		Action: e.Action,
	}
	if e.EntityType != "" {
		entityType := e.EntityType
		a.EntityType = &entityType
	}
	if e.EntityID != nil {
		id := *e.EntityID
		a.EntityID = &id
	}
	if e.Details != "" {
		details := truncate(e.Details, domain.MaxActivityDetails)
		a.Details = &details
	}

	for _, sink := range s.sinks {
		s.write(ctx, sink, a)
	}
}

func (s *Service) write(ctx context.Context, sink Sink, a *domain.ActivityLog) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(sink, a, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := sink.Write(ctx, a); err != nil {
		s.fail(sink, a, err)
	}
}

func (s *Service) fail(sink Sink, a *domain.ActivityLog, err error) {
	metrics.AuditFailuresTotal.WithLabelValues(sink.Name()).Inc()
	s.log.Warn().
		Err(err).
		Str("sink", sink.Name()).
		Str("action", a.Action).
		Int64("user_id", a.UserID).
		Msg("Failed to record activity")
}

// List returns the audit trail visible to actor. Admins see everything and
// may filter by user; everyone else sees only their own records.
func (s *Service) List(ctx context.Context, actor *domain.User, f domain.ActivityFilter) ([]*domain.ActivityLog, error) {
	if !actor.IsAdmin() {
		own := actor.ID
		f.UserID = &own
	}
	if f.Limit <= 0 {
		f.Limit = 500
	}
	logs, err := s.repo.ListActivity(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return logs, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type repositorySink struct {
	repo repository.ActivityRepository
}

func (repositorySink) Name() string { return "database" }

func (s repositorySink) Write(ctx context.Context, a *domain.ActivityLog) error {
	cp := *a
	return s.repo.InsertActivity(ctx, &cp)
}

// Discard is a Recorder that drops every event.
type Discard struct{}

func (Discard) Record(context.Context, Event) {}

var _ Recorder = (*Service)(nil)
