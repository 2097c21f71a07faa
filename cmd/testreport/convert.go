package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newConvertCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Build a report from a saved go test -json stream",
		Long:  `convert reads a go test -json stream from a file, or from stdin when no file or "-" is given.`,
		Example: `  go test -json ./... | testreport convert --html=report.html
  testreport convert --html=report.html events.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, f)
			if err != nil {
				return err
			}
			defer a.Close()

			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening event stream: %w", err)
				}
				defer file.Close()
				r = file
			}

			s, err := a.NewSession()
			if err != nil {
				return err
			}
			_, err = s.Consume(cmd.Context(), r)
			return err
		},
	}
	addReportFlags(cmd, f)
	return cmd
}
