package hooks

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"sort"

	"github.com/testreport/internal/model"
)

// Manager calls hooks on every registered plugin, tryfirst plugins
// first and otherwise in registration order.
type Manager struct {
	plugins []Plugin
	logger  *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

func (m *Manager) Register(p Plugin) {
	m.plugins = append(m.plugins, p)
	sort.SliceStable(m.plugins, func(i, j int) bool {
		return first(m.plugins[i]) && !first(m.plugins[j])
	})
	m.logger.Debug("hooks: plugin registered", "plugin", p.Name())
}

// Names returns the registered plugin names in call order.
func (m *Manager) Names() []string {
	out := make([]string, len(m.plugins))
	for i, p := range m.plugins {
		out[i] = p.Name()
	}
	return out
}

func (m *Manager) Configure(md *model.Metadata) error {
	for _, p := range m.plugins {
		if h, ok := p.(Configurer); ok {
			if err := h.Configure(md); err != nil {
				return fmt.Errorf("%s: configure: %w", p.Name(), err)
			}
		}
	}
	return nil
}

func (m *Manager) ReportTitle(r *model.Report) {
	for _, p := range m.plugins {
		if h, ok := p.(TitleCustomizer); ok {
			h.ReportTitle(r)
		}
	}
}

func (m *Manager) ResultsTableHeader(cells *[]Cell) {
	for _, p := range m.plugins {
		if h, ok := p.(TableHeaderHook); ok {
			h.ResultsTableHeader(cells)
		}
	}
}

func (m *Manager) ResultsTableRow(r *model.TestReport, cells *[]Cell) {
	for _, p := range m.plugins {
		if h, ok := p.(TableRowHook); ok {
			h.ResultsTableRow(r, cells)
		}
	}
}

func (m *Manager) ResultsTableHTML(r *model.TestReport, data *[]template.HTML) {
	for _, p := range m.plugins {
		if h, ok := p.(TableHTMLHook); ok {
			h.ResultsTableHTML(r, data)
		}
	}
}

func (m *Manager) ResultsSummary(prefix, summary, postfix *[]template.HTML) {
	for _, p := range m.plugins {
		if h, ok := p.(SummaryHook); ok {
			h.ResultsSummary(prefix, summary, postfix)
		}
	}
}

func (m *Manager) SessionFinish(ctx context.Context, s *Session) error {
	for _, p := range m.plugins {
		if h, ok := p.(SessionFinisher); ok {
			if err := h.SessionFinish(ctx, s); err != nil {
				return fmt.Errorf("%s: session finish: %w", p.Name(), err)
			}
		}
	}
	return nil
}

func first(p Plugin) bool {
	t, ok := p.(TryFirst)
	return ok && t.TryFirst()
}
