package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/testreport/internal/app"
)

func newRunCmd(f *flags) *cobra.Command {
	var saveJSON string

	cmd := &cobra.Command{
		Use:   "run [flags] [-- go test arguments]",
		Short: "Run go test and write an HTML report",
		Long: `run executes "go test -json" with the given arguments, builds the report
from its event stream and exits with the status of go test.`,
		Example: `  testreport run --html=out/report.html -- ./...
  testreport run --html=report.html --self-contained-html -- -run TestLogin ./auth`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, f)
			if err != nil {
				return err
			}
			defer a.Close()

			return runGoTest(cmd, a, args, saveJSON)
		},
	}
	addReportFlags(cmd, f)
	cmd.Flags().StringVar(&saveJSON, "save-json", "", "also write the raw event stream to this file")
	return cmd
}

func runGoTest(cmd *cobra.Command, a *app.App, args []string, saveJSON string) error {
	s, err := a.NewSession()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pr, pw := io.Pipe()

	gotest := exec.CommandContext(ctx, "go", append([]string{"test", "-json"}, args...)...)
	gotest.Stderr = cmd.ErrOrStderr()
	gotest.Stdout = pw

	var src io.Reader = pr
	if saveJSON != "" {
		raw, err := os.Create(saveJSON)
		if err != nil {
			return fmt.Errorf("creating %s: %w", saveJSON, err)
		}
		defer raw.Close()
		src = io.TeeReader(pr, raw)
	}

	a.Logger().Info("running go test", "args", gotest.Args[1:])

	var (
		g      errgroup.Group
		runErr error
	)
	g.Go(func() error {
		runErr = gotest.Run()
		pw.Close()
		return nil
	})
	g.Go(func() error {
		_, err := s.Consume(ctx, src)
		// Unblock go test if the report failed before EOF.
		pr.CloseWithError(err)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if runErr != nil {
		var exit *exec.ExitError
		if errors.As(runErr, &exit) {
			return &exitError{code: exit.ExitCode()}
		}
		return fmt.Errorf("go test: %w", runErr)
	}
	return nil
}
