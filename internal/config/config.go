package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/testreport/internal/auth"
	"github.com/testreport/internal/crypto"
)

type Config struct {
	Env string `env:"ENV" envDefault:"production"` // development, production

	// Report
	HTMLPath        string   `env:"TESTREPORT_HTML"`
	SelfContained   bool     `env:"TESTREPORT_SELF_CONTAINED"`
	CSS             []string `env:"TESTREPORT_CSS" envSeparator:","`
	RenderCollapsed bool     `env:"TESTREPORT_RENDER_COLLAPSED"`
	TrackReruns     bool     `env:"TESTREPORT_TRACK_RERUNS"`
	Lang            string   `env:"TESTREPORT_LANG" envDefault:"zh"`
	ConfigFile      string   `env:"TESTREPORT_CONFIG" envDefault:"testreport.yaml"`

	// Ambient
	LogFile    string `env:"TESTREPORT_LOG_FILE"`
	HistoryDSN string `env:"TESTREPORT_HISTORY_DSN"`
	SecretKey  string `env:"TESTREPORT_SECRET_KEY"`

	// SMTP fills the email block of the config file where it is empty.
	SMTP SMTP

	Serve Serve

	// File is the parsed config file, empty when there is none.
	File File `env:"-"`
}

type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT"`
	User     string `env:"SMTP_USER"`
	Pass     string `env:"SMTP_PASS"`
	FromName string `env:"SMTP_FROM_NAME"`
}

type Serve struct {
	Port             string  `env:"PORT" envDefault:"8080"`
	Dir              string  `env:"TESTREPORT_SERVE_DIR" envDefault:"."`
	AuthUser         string  `env:"TESTREPORT_AUTH_USER"`
	AuthPasswordHash string  `env:"TESTREPORT_AUTH_PASSWORD_HASH"`
	RatePerSecond    float64 `env:"TESTREPORT_RATE_PER_SECOND" envDefault:"10"`
	Burst            int     `env:"TESTREPORT_RATE_BURST" envDefault:"20"`
	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Only set it behind a proxy that overwrites them.
	TrustProxy bool `env:"TESTREPORT_TRUST_PROXY"`
}

// FromEnv builds a Config from the environment. A .env file in the
// working directory is loaded first when present.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// LoadFile reads the config file. A missing file is only an error when
// the path was set explicitly.
func (c *Config) LoadFile(explicit bool) error {
	if c.ConfigFile == "" {
		return nil
	}
	f, err := ReadFile(c.ConfigFile)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return nil
	}
	if err != nil {
		return err
	}
	c.File = *f

	if f.RenderCollapsed {
		c.RenderCollapsed = true
	}
	c.applySMTP()
	return c.revealSecrets()
}

func (c *Config) applySMTP() {
	e := &c.File.Email
	if e.Host == "" {
		e.Host = c.SMTP.Host
	}
	if e.Port == 0 {
		e.Port = c.SMTP.Port
	}
	if e.User == "" {
		e.User = c.SMTP.User
	}
	if e.Password == "" {
		e.Password = c.SMTP.Pass
	}
	if e.FromName == "" {
		e.FromName = c.SMTP.FromName
	}
}

func (c *Config) revealSecrets() error {
	if !crypto.IsSealed(c.File.Email.Password) {
		return nil
	}
	sealer, err := crypto.NewSealer(c.SecretKey)
	if err != nil {
		return fmt.Errorf("email password is encrypted, check TESTREPORT_SECRET_KEY: %w", err)
	}
	plain, err := sealer.Reveal(c.File.Email.Password)
	if err != nil {
		return fmt.Errorf("decrypt email password: %w", err)
	}
	c.File.Email.Password = plain
	return nil
}

// Validate checks the options needed to write a report.
func (c *Config) Validate() error {
	if c.HTMLPath == "" {
		return fmt.Errorf("--html is required")
	}
	for _, path := range c.CSS {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("css file not found: %q", path)
		}
	}
	return nil
}

// Credentials protect the report browser when both are set.
func (s Serve) Credentials() auth.Credentials {
	return auth.Credentials{User: s.AuthUser, PasswordHash: s.AuthPasswordHash}
}

// Validate rejects half-configured basic auth, which would otherwise
// leave the browser open.
func (s Serve) Validate() error {
	if (s.AuthUser == "") != (s.AuthPasswordHash == "") {
		return errors.New("TESTREPORT_AUTH_USER and TESTREPORT_AUTH_PASSWORD_HASH must be set together")
	}
	if s.RatePerSecond <= 0 || s.Burst <= 0 {
		return errors.New("rate limit and burst must be positive")
	}
	return nil
}

// ReportPath is the absolute report path with ~ and environment
// variables expanded.
func (c *Config) ReportPath() (string, error) {
	p := os.ExpandEnv(c.HTMLPath)
	if len(p) > 1 && p[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, p[2:])
	}
	return filepath.Abs(p)
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
