package handler

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/testreport/internal/model"
	"github.com/testreport/internal/store"
)

const defaultRunLimit = 50

// RunLister is the read side of the run history.
type RunLister interface {
	List(ctx context.Context, limit int) ([]store.Run, error)
	Get(ctx context.Context, id uuid.UUID) (store.Run, error)
}

// RunsHandler serves the run history and the index page of the report
// browser.
type RunsHandler struct {
	BaseHandler
	runs      RunLister
	reportDir string
	tmpl      *template.Template
	now       func() time.Time
}

// NewRunsHandler returns a handler for reports under reportDir. runs may
// be nil, in which case the index lists the HTML files in reportDir.
func NewRunsHandler(logger *slog.Logger, runs RunLister, reportDir string, tmpl *template.Template) *RunsHandler {
	return &RunsHandler{
		BaseHandler: BaseHandler{Logger: logger},
		runs:        runs,
		reportDir:   reportDir,
		tmpl:        tmpl,
		now:         time.Now,
	}
}

type runJSON struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	ReportPath  string         `json:"reportPath"`
	URL         string         `json:"url,omitempty"`
	Total       int            `json:"total"`
	PassRate    float64        `json:"passRate"`
	Counts      map[string]int `json:"counts"`
	DurationMs  int64          `json:"durationMs"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

func (h *RunsHandler) toJSON(r store.Run) runJSON {
	counts := make(map[string]int, len(r.Counts))
	for o, n := range r.Counts {
		counts[string(o)] = n
	}
	return runJSON{
		ID:          r.ID.String(),
		Title:       r.Title,
		ReportPath:  r.ReportPath,
		URL:         h.href(r.ReportPath),
		Total:       r.Counts.Total(),
		PassRate:    r.Counts.PassRate(),
		Counts:      counts,
		DurationMs:  r.Duration.Milliseconds(),
		GeneratedAt: r.GeneratedAt,
	}
}

// List handles GET /api/runs?limit=N.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.noHistoryResponse(w, r)
		return
	}
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.badRequestResponse(w, r, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, h.toJSON(run))
	}
	if err := writeJSON(w, http.StatusOK, envelope{"runs": out}); err != nil {
		h.logError(r, err)
	}
}

// Get handles GET /api/runs/{id}.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.noHistoryResponse(w, r)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.badRequestResponse(w, r, "invalid run id")
		return
	}
	run, err := h.runs.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.notFoundResponse(w, r)
		return
	}
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, envelope{"run": h.toJSON(run)}); err != nil {
		h.logError(r, err)
	}
}

type runRow struct {
	Title       string
	Href        string
	GeneratedAt string
	Ago         string
	Total       int
	Passed      int
	Failed      int
	Errors      int
	Skipped     int
	Duration    string
}

type fileRow struct {
	Name string
	Href string
	Ago  string
	Size string
}

type indexPage struct {
	History bool
	Runs    []runRow
	Files   []fileRow
}

// Index handles GET /.
func (h *RunsHandler) Index(w http.ResponseWriter, r *http.Request) {
	var (
		page indexPage
		err  error
	)
	if h.runs != nil {
		page.History = true
		page.Runs, err = h.runRows(r.Context())
	} else {
		page.Files, err = h.fileRows()
	}
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "index.html", page); err != nil {
		h.logError(r, err)
	}
}

func (h *RunsHandler) runRows(ctx context.Context) ([]runRow, error) {
	runs, err := h.runs.List(ctx, defaultRunLimit)
	if err != nil {
		return nil, err
	}
	now := h.now()
	rows := make([]runRow, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, runRow{
			Title:       run.Title,
			Href:        h.href(run.ReportPath),
			GeneratedAt: run.GeneratedAt.Format("2006-01-02 15:04:05"),
			Ago:         humanize.RelTime(run.GeneratedAt, now, "ago", "from now"),
			Total:       run.Counts.Total(),
			Passed:      run.Counts[model.OutcomePassed],
			Failed:      run.Counts[model.OutcomeFailed],
			Errors:      run.Counts[model.OutcomeError],
			Skipped:     run.Counts[model.OutcomeSkipped],
			Duration:    fmt.Sprintf("%.2fs", run.Duration.Seconds()),
		})
	}
	return rows, nil
}

func (h *RunsHandler) fileRows() ([]fileRow, error) {
	var rows []fileRow
	now := h.now()
	err := filepath.WalkDir(h.reportDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(h.reportDir, path)
		if err != nil {
			return err
		}
		rows = append(rows, fileRow{
			Name: filepath.ToSlash(rel),
			Href: "/reports/" + filepath.ToSlash(rel),
			Ago:  humanize.RelTime(info.ModTime(), now, "ago", "from now"),
			Size: humanize.Bytes(uint64(info.Size())),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

// href is the browser URL of a report, empty when it lies outside the
// served directory.
func (h *RunsHandler) href(reportPath string) string {
	base, err := filepath.Abs(h.reportDir)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(base, reportPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return "/reports/" + filepath.ToSlash(rel)
}
