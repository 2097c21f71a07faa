package app

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/testreport/internal/event"
	"github.com/testreport/internal/hooks"
	"github.com/testreport/internal/mailer"
	"github.com/testreport/internal/model"
	"github.com/testreport/internal/report"
	"github.com/testreport/internal/store"
)

// Session turns one test2json stream into a saved report.
type Session struct {
	app     *App
	plugins *hooks.Manager
	report  *report.HTMLReport
	decoder *event.Decoder
}

// Result describes a finished session.
type Result struct {
	ReportPath string
	Counts     model.Counts
	Emailed    bool
	RunID      string
}

// NewSession prepares a report at the configured --html path.
func (app *App) NewSession() (*Session, error) {
	if err := app.config.Validate(); err != nil {
		return nil, err
	}
	path, err := app.config.ReportPath()
	if err != nil {
		return nil, fmt.Errorf("report path: %w", err)
	}

	if email := app.config.File.Email; email.Enabled {
		if err := mailer.New(email.Settings(), app.logger).Check(); err != nil {
			return nil, fmt.Errorf("email: %w", err)
		}
	}

	plugins := hooks.NewManager(app.logger)
	plugins.Register(hooks.NewFilePlugin(app.config.File, app.logger))

	rep := report.New(report.Options{
		Path:            path,
		SelfContained:   app.config.SelfContained,
		CSS:             app.config.CSS,
		RenderCollapsed: app.config.RenderCollapsed,
		TrackReruns:     app.config.TrackReruns,
	}, app.tr, plugins, app.logger)

	dec := event.NewDecoder(rep, event.Options{
		XFail:         app.config.File.XFail,
		OutputSection: app.tr.T("section.output"),
	}, app.logger)

	return &Session{app: app, plugins: plugins, report: rep, decoder: dec}, nil
}

// Consume reads the whole stream and then finishes the session.
func (s *Session) Consume(ctx context.Context, r io.Reader) (*Result, error) {
	if err := s.decoder.Run(ctx, r); err != nil {
		return nil, fmt.Errorf("reading test events: %w", err)
	}
	return s.Finish(ctx)
}

// Metadata is the environment shown in the report before any plugin
// edits it.
func (s *Session) Metadata() *model.Metadata {
	md := model.NewMetadata()
	md.Set("Go", runtime.Version())
	md.Set("Platform", runtime.GOOS+"/"+runtime.GOARCH)
	md.Set("Packages", strings.Join(s.decoder.Packages(), ", "))
	md.Set("Plugins", strings.Join(s.plugins.Names(), ", "))
	return md
}

// Finish runs the configure and session-finish hooks, writes the report,
// records it in the history and mails it when a hook enabled email.
func (s *Session) Finish(ctx context.Context) (*Result, error) {
	app := s.app
	md := s.Metadata()
	if err := s.plugins.Configure(md); err != nil {
		return nil, err
	}

	start, finish := s.report.Bounds()
	sess := &hooks.Session{
		Start:      start,
		Finish:     finish,
		ReportPath: s.report.Path(),
		Counts:     s.report.Counts(),
		Report:     &s.report.Report,
		Metadata:   md,
	}
	if err := s.plugins.SessionFinish(ctx, sess); err != nil {
		return nil, err
	}

	content, err := s.report.Generate(md)
	if err != nil {
		return nil, err
	}
	if err := s.report.Save(content); err != nil {
		return nil, err
	}
	s.report.TerminalSummary(app.stdout)

	res := &Result{ReportPath: s.report.Path(), Counts: s.report.Counts()}

	if app.history != nil {
		run := store.NewRun(s.report.Report.Title, res.ReportPath, res.Counts, s.report.Duration(), app.now())
		if err := app.history.Record(ctx, run); err != nil {
			return res, err
		}
		res.RunID = run.ID.String()
	}

	if !sess.Email {
		app.logger.Debug("email disabled")
		return res, nil
	}
	m := app.newMailer(sess.EmailSettings)
	summary := mailer.Summary{Title: s.report.Report.Title, Counts: res.Counts}
	if err := m.SendReport(ctx, summary, res.ReportPath); err != nil {
		return res, err
	}
	res.Emailed = true
	return res, nil
}
