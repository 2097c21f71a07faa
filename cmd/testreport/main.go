package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			stop()
			os.Exit(exit.code)
		}
		slog.Error("testreport failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// exitError carries the exit status of the wrapped go test process.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return "go test failed"
}
