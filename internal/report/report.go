// Package report builds the HTML document for one test session.
package report

import (
	"html/template"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/testreport/internal/hooks"
	"github.com/testreport/internal/i18n"
	"github.com/testreport/internal/model"
)

// Options control how the report is written.
type Options struct {
	// Path is the absolute path of the HTML file.
	Path string
	// SelfContained inlines the stylesheet and every extra into the HTML file.
	SelfContained bool
	// CSS lists user stylesheets appended to the built-in one.
	CSS []string
	// RenderCollapsed hides the extra row of every result until expanded.
	RenderCollapsed bool
	// TrackReruns always shows the rerun counter, even when it is zero.
	TrackReruns bool
}

// Row is one rendered result.
type Row struct {
	Outcome   model.Outcome
	Cells     []hooks.Cell
	Extra     []template.HTML
	Collapsed bool
}

// HTMLReport collects results and renders them. It implements
// event.Listener.
type HTMLReport struct {
	Report model.Report

	opts    Options
	tr      *i18n.Translator
	plugins *hooks.Manager
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	rows   []*Row
	counts model.Counts
	start  time.Time
	finish time.Time
	err    error
}

// New returns a report that dispatches its table hooks to plugins.
func New(opts Options, tr *i18n.Translator, plugins *hooks.Manager, logger *slog.Logger) *HTMLReport {
	if logger == nil {
		logger = slog.Default()
	}
	if plugins == nil {
		plugins = hooks.NewManager(logger)
	}
	return &HTMLReport{
		Report: model.Report{
			Title:       tr.T("report.title"),
			Description: tr.T("report.description"),
		},
		opts:    opts,
		tr:      tr,
		plugins: plugins,
		logger:  logger,
		now:     time.Now,
		counts:  model.Counts{},
	}
}

// Path is the absolute location of the HTML file.
func (h *HTMLReport) Path() string {
	return h.opts.Path
}

func (h *HTMLReport) SessionStart(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.start = at
}

func (h *HTMLReport) SessionFinish(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finish = at
}

// TestReport counts r and adds its row to the table. Rows stay ordered by
// outcome rank; a row goes after the rows that share its rank.
func (h *HTMLReport) TestReport(r *model.TestReport) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.counts[r.Outcome]++
	row, err := h.buildRow(r)
	if err != nil {
		h.logger.Error("building result row", "test", r.ID(), "err", err)
		if h.err == nil {
			h.err = err
		}
	}
	if row == nil {
		return
	}
	rank := r.Outcome.Rank()
	i := sort.Search(len(h.rows), func(i int) bool {
		return h.rows[i].Outcome.Rank() > rank
	})
	h.rows = append(h.rows, nil)
	copy(h.rows[i+1:], h.rows[i:])
	h.rows[i] = row
}

// Counts returns a copy of the per-outcome tally.
func (h *HTMLReport) Counts() model.Counts {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(model.Counts, len(h.counts))
	for k, v := range h.counts {
		out[k] = v
	}
	return out
}

// Rows returns the rows in table order.
func (h *HTMLReport) Rows() []*Row {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Row(nil), h.rows...)
}

// Duration is the time between session start and finish.
func (h *HTMLReport) Duration() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.start.IsZero() || h.finish.Before(h.start) {
		return 0
	}
	return h.finish.Sub(h.start)
}

// Bounds returns the session start and finish times.
func (h *HTMLReport) Bounds() (start, finish time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.start, h.finish
}
