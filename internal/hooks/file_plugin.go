package hooks

import (
	"context"
	"html/template"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/testreport/internal/config"
	"github.com/testreport/internal/model"
)

// FilePlugin implements the hooks from the user's config file: metadata
// edits, report fields, results table changes and email delivery.
type FilePlugin struct {
	file   config.File
	logger *slog.Logger
}

func NewFilePlugin(f config.File, logger *slog.Logger) *FilePlugin {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilePlugin{file: f, logger: logger}
}

func (p *FilePlugin) Name() string { return "config" }

// TryFirst lets the file settings land before any other post-session
// plugin reads them.
func (p *FilePlugin) TryFirst() bool { return true }

func (p *FilePlugin) Configure(md *model.Metadata) error {
	for _, kv := range p.file.Metadata.Set {
		md.Set(kv.Key, kv.Value)
	}
	for _, key := range p.file.Metadata.Remove {
		if !md.Delete(key) {
			p.logger.Debug("config: metadata key not present", "key", key)
		}
	}
	return nil
}

func (p *FilePlugin) ReportTitle(r *model.Report) {
	b := p.file.Report
	if b.Title != "" {
		r.Title = b.Title
	}
	if b.Description != "" {
		r.Description = b.Description
	}
	if b.Company.Name != "" || b.Company.URL != "" {
		r.Company = b.Company
	}
	if b.Tester != "" {
		r.Tester = b.Tester
	}
	if b.Department != "" {
		r.Department = b.Department
	}
}

func (p *FilePlugin) SessionFinish(_ context.Context, s *Session) error {
	s.Email = p.file.Email.Enabled
	s.EmailSettings = p.file.Email.Settings()
	return nil
}

func (p *FilePlugin) ResultsTableHeader(cells *[]Cell) {
	for _, c := range p.file.Table.Columns {
		cell := TextCell("sortable", c.Header)
		cell.Col = columnKey(c.Header)
		*cells = insertCell(*cells, c.Position, cell)
	}
}

func (p *FilePlugin) ResultsTableRow(r *model.TestReport, cells *[]Cell) {
	for _, pattern := range p.file.Table.Hide {
		if matchTest(pattern, r) {
			*cells = nil
			return
		}
	}
	for _, c := range p.file.Table.Columns {
		value := c.Default
		for _, kv := range c.Values {
			if matchTest(kv.Key, r) {
				value = kv.Value
				break
			}
		}
		*cells = insertCell(*cells, c.Position, TextCell("col-"+columnKey(c.Header), value))
	}
}

func (p *FilePlugin) ResultsTableHTML(r *model.TestReport, data *[]template.HTML) {
	for _, kv := range p.file.Table.Notes {
		if matchTest(kv.Key, r) {
			*data = append(*data, template.HTML(kv.Value))
		}
	}
}

func (p *FilePlugin) ResultsSummary(prefix, _, postfix *[]template.HTML) {
	for _, s := range p.file.Summary.Prefix {
		*prefix = append(*prefix, template.HTML(s))
	}
	for _, s := range p.file.Summary.Postfix {
		*postfix = append(*postfix, template.HTML(s))
	}
}

// insertCell puts cell at pos, clamped to the row; nil appends.
func insertCell(cells []Cell, pos *int, cell Cell) []Cell {
	i := len(cells)
	if pos != nil && *pos >= 0 && *pos < len(cells) {
		i = *pos
	}
	return slices.Insert(cells, i, cell)
}

func matchTest(pattern string, r *model.TestReport) bool {
	if ok, _ := path.Match(pattern, r.Test); ok && r.Test != "" {
		return true
	}
	ok, _ := path.Match(pattern, r.Package+"::"+r.Test)
	return ok
}

func columnKey(header string) string {
	return strings.ToLower(strings.Join(strings.Fields(header), "-"))
}
