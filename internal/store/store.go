// Package store keeps the history of finished test sessions.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/testreport/internal/model"
)

// ErrNotFound is returned when no run has the requested id.
var ErrNotFound = errors.New("store: run not found")

// Run is one recorded session.
type Run struct {
	ID          uuid.UUID
	Title       string
	ReportPath  string
	Counts      model.Counts
	Duration    time.Duration
	GeneratedAt time.Time
}

// NewRun returns a run with a fresh id.
func NewRun(title, reportPath string, counts model.Counts, d time.Duration, at time.Time) *Run {
	return &Run{
		ID:          uuid.New(),
		Title:       title,
		ReportPath:  reportPath,
		Counts:      counts,
		Duration:    d,
		GeneratedAt: at,
	}
}

// History records runs and lists them newest first.
type History interface {
	Record(ctx context.Context, r *Run) error
	List(ctx context.Context, limit int) ([]Run, error)
	Get(ctx context.Context, id uuid.UUID) (Run, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open picks the backend from dsn: postgres:// and postgresql:// URLs use
// PostgreSQL, anything else is a SQLite file path.
func Open(ctx context.Context, dsn string) (History, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return OpenPostgres(ctx, dsn)
	}
	return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
}

// counters lists the outcome columns in table order.
var counters = []model.Outcome{
	model.OutcomePassed,
	model.OutcomeFailed,
	model.OutcomeSkipped,
	model.OutcomeError,
	model.OutcomeXFailed,
	model.OutcomeXPassed,
	model.OutcomeRerun,
}

func countArgs(c model.Counts) []any {
	out := make([]any, len(counters))
	for i, o := range counters {
		out[i] = c[o]
	}
	return out
}

func countDest(vals []int) []any {
	out := make([]any, len(vals))
	for i := range vals {
		out[i] = &vals[i]
	}
	return out
}

func countsFrom(vals []int) model.Counts {
	c := model.Counts{}
	for i, o := range counters {
		if vals[i] != 0 {
			c[o] = vals[i]
		}
	}
	return c
}
