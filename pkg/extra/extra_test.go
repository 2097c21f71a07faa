package extra

import (
	"fmt"
	"strings"
	"testing"
)

type recorder struct {
	lines []string
}

func (r *recorder) Helper() {}

func (r *recorder) Log(args ...any) {
	r.lines = append(r.lines, fmt.Sprint(args...))
}

func TestAttachThenParse(t *testing.T) {
	rec := &recorder{}
	Attach(rec, URL("docs", "https://example.com/"))

	if len(rec.lines) != 1 {
		t.Fatalf("expected one log line, got %d", len(rec.lines))
	}

	// go test indents t.Log output and prefixes the call site.
	line := "    login_test.go:14: " + rec.lines[0]
	e, ok := Parse(line)
	if !ok {
		t.Fatalf("expected %q to parse", line)
	}
	if e.Format != FormatURL || e.Content != "https://example.com/" || e.Name != "docs" {
		t.Errorf("unexpected extra: %+v", e)
	}
}

func TestParseIgnoresPlainOutput(t *testing.T) {
	for _, line := range []string{
		"=== RUN   TestLogin",
		"    login_test.go:20: got 3 want 4",
		Marker + "{not json",
		Marker + `{"content":"x"}`,
	} {
		if _, ok := Parse(line); ok {
			t.Errorf("expected %q not to parse", line)
		}
	}
}

func TestJSONEncodesContent(t *testing.T) {
	e := JSON("payload", map[string]int{"a": 1})
	if e.Content != `{"a":1}` {
		t.Errorf("unexpected content %q", e.Content)
	}
	if e.Extension != "json" || e.MimeType != "application/json" {
		t.Errorf("unexpected json extra metadata: %+v", e)
	}
}

func TestImageDefaults(t *testing.T) {
	e := Image("shot", "aGVsbG8=", "", "")
	if e.MimeType != "image/png" || e.Extension != "png" {
		t.Errorf("unexpected defaults: %+v", e)
	}
	if !strings.HasPrefix(string(SVG("s", "x").MimeType), "image/svg") {
		t.Errorf("svg mime type not set")
	}
}
