package report

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"

	"github.com/testreport/internal/hooks"
	"github.com/testreport/internal/media"
	"github.com/testreport/internal/model"
	"github.com/testreport/pkg/extra"
)

const (
	maxAssetName = 255
	logWidth     = 80
)

var (
	unsafeName = regexp.MustCompile(`[^\p{L}\p{N}_.]`)
	// failureLine matches the "file_test.go:12: message" lines written by
	// t.Error and friends.
	failureLine = regexp.MustCompile(`^\s*[\w./-]+\.go:\d+: `)
)

func (h *HTMLReport) buildRow(r *model.TestReport) (*Row, error) {
	var (
		links      []template.HTML
		additional []template.HTML
		firstErr   error
	)

	for idx, e := range r.Extras {
		link, block, err := h.renderExtra(r, e, idx)
		if err != nil {
			h.logger.Warn("rendering extra", "test", r.ID(), "name", e.Name, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if link != "" {
			links = append(links, link)
		}
		if block != "" {
			additional = append(additional, block)
		}
	}
	additional = append(additional, h.renderLog(r))

	cells := []hooks.Cell{
		hooks.TextCell("col-name", r.ID()),
		hooks.TextCell("col-duration", fmt.Sprintf("%.2f", r.Duration.Seconds())),
		hooks.TextCell("col-result", h.tr.Outcome(string(r.Outcome))),
		{Class: "col-links", HTML: joinHTML(links, " ")},
	}

	h.plugins.ResultsTableRow(r, &cells)
	h.plugins.ResultsTableHTML(r, &additional)

	if len(cells) == 0 {
		return nil, firstErr
	}
	return &Row{
		Outcome:   r.Outcome,
		Cells:     cells,
		Extra:     additional,
		Collapsed: h.opts.RenderCollapsed,
	}, firstErr
}

// renderExtra returns the link shown in the links column and the block
// shown under the row. Either may be empty.
func (h *HTMLReport) renderExtra(r *model.TestReport, e extra.Extra, idx int) (template.HTML, template.HTML, error) {
	var href string
	switch e.Format {
	case extra.FormatImage:
		body, err := h.mediaHTML(r, e, idx, `<img src="%s"/>`)
		if err != nil {
			return "", "", err
		}
		return "", template.HTML(`<div class="image">` + body + `</div>`), nil
	case extra.FormatVideo:
		body, err := h.mediaHTML(r, e, idx, `<video controls><source src="%s" type="video/mp4"></video>`)
		if err != nil {
			return "", "", err
		}
		return "", template.HTML(`<div class="video">` + body + `</div>`), nil
	case extra.FormatHTML:
		return "", template.HTML(`<div>` + e.Content + `</div>`), nil
	case extra.FormatJSON, extra.FormatText:
		mime := e.MimeType
		if mime == "" {
			mime = "text/plain"
		}
		if h.opts.SelfContained {
			href = dataURI([]byte(e.Content), mime)
		} else {
			rel, err := h.writeAsset(r, idx, e.Extension, []byte(e.Content))
			if err != nil {
				return "", "", err
			}
			href = rel
		}
	case extra.FormatURL:
		href = e.Content
	default:
		return "", "", fmt.Errorf("unknown extra format %q", e.Format)
	}

	link := fmt.Sprintf(`<a class="%s" href="%s" target="_blank">%s</a>`,
		template.HTMLEscapeString(string(e.Format)),
		template.HTMLEscapeString(href),
		template.HTMLEscapeString(e.Name))
	return template.HTML(link), "", nil
}

// mediaHTML renders an image or video. Content that is a URL or a file
// path is linked; base64 data is inlined or written as an asset.
func (h *HTMLReport) mediaHTML(r *model.TestReport, e extra.Extra, idx int, base string) (string, error) {
	content := e.Content
	if isURIOrPath(content) {
		if h.opts.SelfContained {
			h.logger.Warn("self-contained report links to external media", "resource", content)
		}
		src := template.HTMLEscapeString(content)
		return fmt.Sprintf(`<a href="%s">`+base+`</a>`, src, src), nil
	}
	if h.opts.SelfContained {
		return fmt.Sprintf(base, template.HTMLEscapeString("data:"+e.MimeType+";base64,"+content)), nil
	}

	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", e.Format, err)
	}
	if e.Format == extra.FormatImage {
		stripped, err := media.Clean(data, e.MimeType)
		if err != nil {
			h.logger.Warn("keeping image metadata", "test", r.ID(), "err", err)
		} else {
			data = stripped
		}
	}
	rel, err := h.writeAsset(r, idx, e.Extension, data)
	if err != nil {
		return "", err
	}
	src := template.HTMLEscapeString(rel)
	return fmt.Sprintf(`<a class="%s" href="%s" target="_blank">`+base+`</a>`, e.Format, src, src), nil
}

func isURIOrPath(content string) bool {
	if strings.HasPrefix(content, "file") || strings.HasPrefix(content, "http") {
		return true
	}
	if len(content) > 4096 {
		return false
	}
	info, err := os.Stat(content)
	return err == nil && info.Mode().IsRegular()
}

func dataURI(content []byte, mime string) string {
	return fmt.Sprintf("data:%s;charset=utf-8;base64,%s", mime, base64.StdEncoding.EncodeToString(content))
}

// AssetName is the file name used for the idx-th extra of r.
func AssetName(r *model.TestReport, idx int, ext string) string {
	name := fmt.Sprintf("%s_%d_%d.%s", unsafeName.ReplaceAllString(r.ID(), "_"), idx, r.Attempt, ext)
	if len(name) <= maxAssetName {
		return name
	}
	name = name[len(name)-maxAssetName:]
	for len(name) > 0 && !utf8.RuneStart(name[0]) {
		name = name[1:]
	}
	return name
}

func (h *HTMLReport) writeAsset(r *model.TestReport, idx int, ext string, data []byte) (string, error) {
	name := AssetName(r, idx, ext)
	dir := filepath.Join(filepath.Dir(h.opts.Path), "assets")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating assets dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing asset: %w", err)
	}
	return "assets/" + name, nil
}

func (h *HTMLReport) renderLog(r *model.TestReport) template.HTML {
	var b strings.Builder
	failing := r.Outcome == model.OutcomeFailed || r.Outcome == model.OutcomeError ||
		r.Outcome == model.OutcomeRerun || r.Outcome == model.OutcomeXFailed

	for _, line := range r.Failure {
		line = ansi.Strip(line)
		switch {
		case strings.HasPrefix(line, strings.Repeat("_ ", 10)):
			b.WriteString(template.HTMLEscapeString(truncate(line, logWidth)))
		case failing && isErrorLine(line):
			b.WriteString(`<span class="error">` + template.HTMLEscapeString(line) + `</span>`)
		default:
			b.WriteString(template.HTMLEscapeString(line))
		}
		b.WriteString("<br/>")
	}

	for _, s := range r.Sections {
		b.WriteString(template.HTMLEscapeString(" " + center(s.Header, logWidth, '-') + " "))
		b.WriteString("<br/>")
		b.WriteString(template.HTMLEscapeString(ansi.Strip(s.Content)))
		b.WriteString("<br/>")
	}

	if b.Len() == 0 {
		return template.HTML(`<div class="empty log">` + template.HTMLEscapeString(h.tr.T("log.empty")) + `</div>`)
	}
	return template.HTML(`<div class="log">` + b.String() + `</div>`)
}

func isErrorLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return failureLine.MatchString(line) ||
		strings.HasPrefix(trimmed, "panic:") ||
		strings.HasPrefix(line, "E   ")
}

// center pads s with fill on both sides to width runes; the extra rune
// goes on the right.
func center(s string, width int, fill rune) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	left := (width - n) / 2
	right := width - n - left
	return strings.Repeat(string(fill), left) + s + strings.Repeat(string(fill), right)
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width])
}

func joinHTML(parts []template.HTML, sep string) template.HTML {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(string(p))
	}
	return template.HTML(b.String())
}
