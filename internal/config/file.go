package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/testreport/internal/model"
)

// File is the user configuration file. Its report, metadata and email
// blocks feed the built-in hooks.
type File struct {
	Report          ReportBlock   `yaml:"report"`
	Metadata        MetadataBlock `yaml:"metadata"`
	Email           EmailBlock    `yaml:"email"`
	Table           TableBlock    `yaml:"table"`
	Summary         SummaryBlock  `yaml:"summary"`
	RenderCollapsed bool          `yaml:"render_collapsed"`
	XFail           []string      `yaml:"xfail"`
}

// TableBlock customises the results table. Test patterns are path.Match
// patterns against the test name or "package::test". Hide drops the rows
// of matching tests; Notes maps a pattern to HTML shown under the row.
type TableBlock struct {
	Columns []Column `yaml:"columns"`
	Hide    []string `yaml:"hide"`
	Notes   Pairs    `yaml:"notes"`
}

// Column is an extra results table column, inserted at Position or at the
// end when unset. Values maps a test pattern to the cell text; the first
// match wins and Default fills the rest.
type Column struct {
	Header   string `yaml:"header"`
	Position *int   `yaml:"position"`
	Default  string `yaml:"default"`
	Values   Pairs  `yaml:"values"`
}

// SummaryBlock holds HTML shown before and after the outcome filters.
type SummaryBlock struct {
	Prefix  []string `yaml:"prefix"`
	Postfix []string `yaml:"postfix"`
}

// ReportBlock overwrites report fields; empty values keep the defaults.
type ReportBlock struct {
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Company     model.Company `yaml:"company"`
	Tester      string        `yaml:"tester"`
	Department  string        `yaml:"department"`
}

type MetadataBlock struct {
	Set    Pairs    `yaml:"set"`
	Remove []string `yaml:"remove"`
}

type EmailBlock struct {
	Enabled          bool       `yaml:"enabled"`
	User             string     `yaml:"user"`
	Password         string     `yaml:"password"`
	Host             string     `yaml:"host"`
	Port             int        `yaml:"port"`
	SSL              *bool      `yaml:"ssl"`
	FromName         string     `yaml:"from_name"`
	To               StringList `yaml:"to"`
	Cc               StringList `yaml:"cc"`
	Subject          string     `yaml:"subject"`
	Contents         string     `yaml:"contents"`
	PGPPublicKeyPath string     `yaml:"pgp_public_key"`
}

// Settings converts the block to the model used by the mailer.
func (e EmailBlock) Settings() model.EmailSettings {
	return model.EmailSettings{
		Enabled:          e.Enabled,
		User:             e.User,
		Password:         e.Password,
		Host:             e.Host,
		Port:             e.Port,
		SSL:              e.SSL,
		FromName:         e.FromName,
		To:               e.To,
		Cc:               e.Cc,
		Subject:          e.Subject,
		Contents:         e.Contents,
		PGPPublicKeyPath: e.PGPPublicKeyPath,
	}
}

// Pair is one metadata entry with its value already rendered as text.
type Pair struct {
	Key   string
	Value string
}

// Pairs keeps the order of a YAML mapping.
type Pairs []Pair

func (p *Pairs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: metadata.set must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var raw any
		if err := node.Content[i+1].Decode(&raw); err != nil {
			return err
		}
		value, err := metadataValue(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Content[i+1].Line, err)
		}
		*p = append(*p, Pair{Key: node.Content[i].Value, Value: value})
	}
	return nil
}

// metadataValue renders lists as sorted comma separated text and
// mappings as JSON with sorted keys.
func metadataValue(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case []any:
		items := cast.ToStringSlice(v)
		sort.Strings(items)
		return strings.Join(items, ", "), nil
	case map[string]any:
		b, err := json.Marshal(v)
		return string(b), err
	default:
		return cast.ToStringE(v)
	}
}

// StringList accepts a single string or a sequence.
type StringList []string

func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*s = nil
	case string:
		*s = StringList{v}
	default:
		items, err := cast.ToStringSliceE(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*s = items
	}
	return nil
}

// ReadFile parses the YAML config file at path.
func ReadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &f, nil
}
