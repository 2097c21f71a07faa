package handler

import (
	"context"
	"log/slog"
	"net/http"
	"os"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type healthJSON struct {
	Status  string `json:"status"`
	History string `json:"history"`
	Reports string `json:"reports"`
}

type HealthHandler struct {
	BaseHandler
	history   pinger
	reportDir string
}

func NewHealthHandler(logger *slog.Logger, history pinger, reportDir string) *HealthHandler {
	return &HealthHandler{
		BaseHandler: BaseHandler{Logger: logger},
		history:     history,
		reportDir:   reportDir,
	}
}

// Check reports whether the report directory is readable and, when a
// history store is configured, whether it answers.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	body := healthJSON{Status: "ok", History: "disabled", Reports: "ok"}
	code := http.StatusOK

	if h.history != nil {
		body.History = "ok"
		if err := h.history.Ping(r.Context()); err != nil {
			body.History = "unreachable"
			body.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	if info, err := os.Stat(h.reportDir); err != nil || !info.IsDir() {
		body.Reports = "missing"
		body.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	if err := writeJSON(w, code, body); err != nil {
		h.logError(r, err)
	}
}
