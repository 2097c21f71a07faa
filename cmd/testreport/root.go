package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/testreport/internal/app"
	"github.com/testreport/internal/config"
)

// flags hold command-line values. They override the environment only
// when set explicitly.
type flags struct {
	html          string
	selfContained bool
	css           []string
	lang          string
	configFile    string
	logFile       string
	history       string
	collapsed     bool
	trackReruns   bool
	env           string
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "testreport",
		Short:         "HTML reports for go test",
		Long:          `testreport turns the go test -json event stream into a branded HTML report and can mail it over SMTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configFile, "config", "", "report configuration file (default testreport.yaml)")
	pf.StringVar(&f.logFile, "log-file", "", "also write logs to this rotated file")
	pf.StringVar(&f.history, "history", "", "run history DSN: a SQLite path or a postgres:// URL")
	pf.StringVar(&f.lang, "lang", "", "report language: zh or en")
	pf.StringVar(&f.env, "env", "", "environment: development or production")

	root.AddCommand(
		newRunCmd(f),
		newConvertCmd(f),
		newServeCmd(f),
		newHistoryCmd(f),
		newSecretCmd(),
	)
	return root
}

// addReportFlags registers the flags of commands that write a report.
func addReportFlags(cmd *cobra.Command, f *flags) {
	fs := cmd.Flags()
	fs.StringVar(&f.html, "html", "", "create html report file at given path")
	fs.BoolVar(&f.selfContained, "self-contained-html", false, "create a self-contained html file containing all styles, scripts and images")
	fs.StringArrayVar(&f.css, "css", nil, "append given css file content to report style file (repeatable)")
	fs.BoolVar(&f.collapsed, "render-collapsed", false, "open the report with all rows collapsed")
	fs.BoolVar(&f.trackReruns, "track-reruns", false, "always show the rerun counter")
}

// loadConfig builds the configuration from .env, the environment, the
// config file and finally the flags.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("env") {
		cfg.Env = f.env
	}
	if changed("lang") {
		cfg.Lang = f.lang
	}
	if changed("log-file") {
		cfg.LogFile = f.logFile
	}
	if changed("history") {
		cfg.HistoryDSN = f.history
	}
	if changed("html") {
		cfg.HTMLPath = f.html
	}
	if changed("self-contained-html") {
		cfg.SelfContained = f.selfContained
	}
	if changed("css") {
		cfg.CSS = append(cfg.CSS, f.css...)
	}
	if changed("render-collapsed") {
		cfg.RenderCollapsed = f.collapsed
	}
	if changed("track-reruns") {
		cfg.TrackReruns = f.trackReruns
	}

	explicit := changed("config")
	if explicit {
		cfg.ConfigFile = f.configFile
	}
	if err := cfg.LoadFile(explicit); err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfg.ConfigFile, err)
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command, f *flags) (*app.App, error) {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return nil, err
	}
	return newAppFrom(cmd, cfg)
}

func newAppFrom(cmd *cobra.Command, cfg *config.Config) (*app.App, error) {
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	a.SetOutput(cmd.OutOrStdout())
	return a, nil
}
