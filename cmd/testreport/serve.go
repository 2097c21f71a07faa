package main

import (
	"github.com/spf13/cobra"
)

func newServeCmd(f *flags) *cobra.Command {
	var (
		dir  string
		port string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Browse reports and the run history over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dir") {
				cfg.Serve.Dir = dir
			}
			if cmd.Flags().Changed("port") {
				cfg.Serve.Port = port
			}

			a, err := newAppFrom(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory holding the reports")
	cmd.Flags().StringVar(&port, "port", "8080", "listen port")
	return cmd
}
