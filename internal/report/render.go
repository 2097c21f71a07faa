package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/testreport/internal/hooks"
	"github.com/testreport/internal/model"
	"github.com/testreport/internal/web"
)

type labels struct {
	Tester      string
	Department  string
	Statistics  string
	Description string
	Environment string
	Results     string
	NotFound    string
}

type envRow struct {
	Label string
	Value string
	Link  bool
}

type page struct {
	Lang          string
	Report        model.Report
	SelfContained bool
	Style         template.CSS
	Script        template.JS
	Labels        labels
	Stats         string
	Environment   []envRow

	SummaryPrefix  []template.HTML
	Summary        []template.HTML
	SummaryPostfix []template.HTML

	Headers []hooks.Cell
	Rows    []*Row
}

// Generate runs the title and table hooks and renders the document. md
// may be nil, in which case no environment table is shown.
func (h *HTMLReport) Generate(md *model.Metadata) (string, error) {
	h.plugins.ReportTitle(&h.Report)

	style, err := h.Stylesheet()
	if err != nil {
		return "", err
	}

	headers := []hooks.Cell{
		{Class: "sortable initial-sort", Col: "name", HTML: escape(h.tr.T("table.name"))},
		{Class: "sortable numeric", Col: "duration", HTML: escape(h.tr.T("table.duration"))},
		{Class: "sortable result", Col: "result", HTML: escape(h.tr.T("table.result"))},
		{HTML: escape(h.tr.T("table.links"))},
	}
	h.plugins.ResultsTableHeader(&headers)

	counts := h.Counts()
	var prefix, postfix []template.HTML
	summary := h.summary(counts)
	h.plugins.ResultsSummary(&prefix, &summary, &postfix)

	p := page{
		Lang:          h.tr.Lang(),
		Report:        h.Report,
		SelfContained: h.opts.SelfContained,
		Style:         template.CSS(style),
		Script:        template.JS(web.Script()),
		Labels: labels{
			Tester:      h.tr.T("overview.tester"),
			Department:  h.tr.T("overview.department"),
			Statistics:  h.tr.T("overview.statistics"),
			Description: h.tr.T("overview.description"),
			Environment: h.tr.T("section.environment"),
			Results:     h.tr.T("section.results"),
			NotFound:    h.tr.T("table.notfound"),
		},
		Stats: h.tr.T("overview.summary",
			counts.Total(),
			h.Duration().Seconds(),
			h.now().Format("2006-01-02 15:04:05")),
		Environment:    h.environment(md),
		SummaryPrefix:  prefix,
		Summary:        summary,
		SummaryPostfix: postfix,
		Headers:        headers,
		Rows:           h.Rows(),
	}

	var buf bytes.Buffer
	if err := web.Templates.ExecuteTemplate(&buf, "report.html", p); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return buf.String(), h.err
}

// Stylesheet returns the built-in stylesheet followed by every user
// stylesheet.
func (h *HTMLReport) Stylesheet() (string, error) {
	var b strings.Builder
	b.WriteString(web.Style())
	for _, path := range h.opts.CSS {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading css: %w", err)
		}
		b.WriteString("\n/******************************")
		b.WriteString("\n * CUSTOM CSS")
		b.WriteString("\n * " + path)
		b.WriteString("\n ******************************/\n\n")
		b.Write(raw)
	}
	return b.String(), nil
}

// summary returns the filter checkboxes and per-outcome totals.
func (h *HTMLReport) summary(counts model.Counts) []template.HTML {
	outcomes := []model.Outcome{
		model.OutcomePassed,
		model.OutcomeSkipped,
		model.OutcomeFailed,
		model.OutcomeError,
		model.OutcomeXFailed,
		model.OutcomeXPassed,
	}
	if h.opts.TrackReruns || counts[model.OutcomeRerun] > 0 {
		outcomes = append(outcomes, model.OutcomeRerun)
	}

	out := []template.HTML{
		template.HTML(`<p class="filter" hidden="true">` + template.HTMLEscapeString(h.tr.T("filter.hint")) + `</p>`),
	}
	for i, o := range outcomes {
		n := counts[o]
		disabled := ""
		if n == 0 {
			disabled = ` disabled="true"`
		}
		out = append(out,
			template.HTML(fmt.Sprintf(
				`<input checked="true" class="filter" data-test-result="%s"%s hidden="true" name="filter_checkbox" onChange="filterTable(this)" type="checkbox"/>`,
				o, disabled)),
			template.HTML(fmt.Sprintf(`<span class="%s">%d %s</span>`,
				o, n, template.HTMLEscapeString(h.tr.Outcome(string(o))))),
		)
		if i < len(outcomes)-1 {
			out = append(out, ", ")
		}
	}
	return out
}

func (h *HTMLReport) environment(md *model.Metadata) []envRow {
	if md == nil {
		return nil
	}
	rows := make([]envRow, 0, md.Len())
	for _, key := range md.Keys() {
		value, _ := md.Get(key)
		rows = append(rows, envRow{
			Label: h.tr.EnvLabel(key),
			Value: value,
			Link:  strings.HasPrefix(value, "http"),
		})
	}
	return rows
}

// Save writes content to the report path. Unless the report is
// self-contained the stylesheet is written to assets/style.css next to it.
func (h *HTMLReport) Save(content string) error {
	dir := filepath.Dir(h.opts.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}
	if !h.opts.SelfContained {
		assets := filepath.Join(dir, "assets")
		if err := os.MkdirAll(assets, 0o755); err != nil {
			return fmt.Errorf("creating assets dir: %w", err)
		}
		style, err := h.Stylesheet()
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(assets, "style.css"), []byte(style), 0o644); err != nil {
			return fmt.Errorf("writing stylesheet: %w", err)
		}
	}
	if err := os.WriteFile(h.opts.Path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func escape(s string) template.HTML {
	return template.HTML(template.HTMLEscapeString(s))
}
