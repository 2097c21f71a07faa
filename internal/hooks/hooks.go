// Package hooks defines the named callbacks a plugin may implement to
// customise the report, and the Manager that dispatches them.
package hooks

import (
	"context"
	"html/template"
	"time"

	"github.com/testreport/internal/model"
)

// Cell is one cell of the results table.
type Cell struct {
	Class string
	// Col is the sort key of a header cell.
	Col  string
	HTML template.HTML
}

// TextCell returns a cell whose content is the escaped text.
func TextCell(class, text string) Cell {
	return Cell{Class: class, HTML: template.HTML(template.HTMLEscapeString(text))}
}

// Session is handed to SessionFinisher hooks after every test has
// reported and before the report is written.
type Session struct {
	Start      time.Time
	Finish     time.Time
	ReportPath string
	Counts     model.Counts
	Report     *model.Report
	Metadata   *model.Metadata

	// Email turns on delivery of the written report with EmailSettings.
	Email         bool
	EmailSettings model.EmailSettings
}

// Plugin is anything registered with the Manager. It implements any of
// the hook interfaces below.
type Plugin interface {
	Name() string
}

// Configurer edits the environment metadata.
type Configurer interface {
	Configure(md *model.Metadata) error
}

// TitleCustomizer overwrites the descriptive fields of the report.
type TitleCustomizer interface {
	ReportTitle(r *model.Report)
}

type TableHeaderHook interface {
	ResultsTableHeader(cells *[]Cell)
}

// TableRowHook edits the cells of a result row. A row whose cells are
// emptied is left out of the report.
type TableRowHook interface {
	ResultsTableRow(r *model.TestReport, cells *[]Cell)
}

// TableHTMLHook edits the additional HTML shown under a result row.
type TableHTMLHook interface {
	ResultsTableHTML(r *model.TestReport, data *[]template.HTML)
}

type SummaryHook interface {
	ResultsSummary(prefix, summary, postfix *[]template.HTML)
}

// SessionFinisher runs post-session actions.
type SessionFinisher interface {
	SessionFinish(ctx context.Context, s *Session) error
}

// TryFirst is implemented by plugins that must run before the others.
type TryFirst interface {
	TryFirst() bool
}
