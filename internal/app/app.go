package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/testreport/internal/config"
	"github.com/testreport/internal/i18n"
	"github.com/testreport/internal/mailer"
	"github.com/testreport/internal/model"
	"github.com/testreport/internal/store"
)

// reportMailer sends a finished report.
type reportMailer interface {
	SendReport(ctx context.Context, summary mailer.Summary, reportPath string) error
}

type App struct {
	config  *config.Config
	logger  *slog.Logger
	logFile io.Closer
	history store.History
	tr      *i18n.Translator

	stdout    io.Writer
	now       func() time.Time
	newMailer func(model.EmailSettings) reportMailer
}

func (app *App) Close() {
	if app.history != nil {
		if err := app.history.Close(); err != nil {
			app.logger.Warn("closing history", "err", err)
		}
	}
	if app.logFile != nil {
		app.logFile.Close()
	}
}

// New wires the application from cfg. The history store is opened only
// when a DSN is configured.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, logFile := newLogger(cfg)

	app := &App{
		config:  cfg,
		logger:  logger,
		logFile: logFile,
		tr:      i18n.New(cfg.Lang),
		stdout:  os.Stdout,
		now:     time.Now,
	}
	app.newMailer = func(s model.EmailSettings) reportMailer {
		return mailer.New(s, app.logger)
	}

	if cfg.HistoryDSN != "" {
		h, err := store.Open(ctx, cfg.HistoryDSN)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
		app.history = h
	}
	return app, nil
}

func (app *App) Logger() *slog.Logger {
	return app.logger
}

// History is the run history store, nil when none is configured.
func (app *App) History() store.History {
	return app.history
}

// SetOutput redirects the terminal summary.
func (app *App) SetOutput(w io.Writer) {
	app.stdout = w
}

// Serve runs the report browser until ctx is cancelled.
func (app *App) Serve(ctx context.Context) error {
	if err := app.config.Serve.Validate(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", app.config.Serve.Port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	g.Go(func() error {
		app.logger.Info("starting server", "addr", srv.Addr, "dir", app.config.Serve.Dir, "env", app.config.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	app.logger.Info("stopped server")
	return nil
}

// newLogger logs to stderr, and also to a rotated file when LogFile is set.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer
	)
	if cfg.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		w = io.MultiWriter(os.Stderr, lj)
		closer = lj
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))

	slog.SetDefault(logger)
	return logger, closer
}
