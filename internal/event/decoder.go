package event

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"gotest.tools/gotestsum/testjson"

	"github.com/testreport/internal/model"
	"github.com/testreport/pkg/extra"
)

// badOutput prefixes lines that testjson could not decode as an event.
const badOutput = "bad output from test2json: "

// Options tune how events map to outcomes.
type Options struct {
	// XFail holds path.Match patterns of tests expected to fail. A pattern
	// is matched against the test name and against "package::test".
	XFail []string
	// OutputSection names the section that carries the output of passing
	// tests.
	OutputSection string
}

type testKey struct {
	pkg  string
	test string
}

// packageFailure is a failing package waiting for the end of the stream,
// when it is known whether any of its tests failed.
type packageFailure struct {
	pkg     string
	elapsed float64
	lines   []string
}

// Decoder reads a test2json stream and reports to a Listener. Reports are
// held until the stream ends so reruns of the same test can be detected.
type Decoder struct {
	listener Listener
	opts     Options
	logger   *slog.Logger

	started  bool
	last     time.Time
	output   map[testKey][]string
	partial  map[testKey]string
	extras   map[testKey][]extra.Extra
	failed   map[string]bool
	pending  []packageFailure
	orphans  []string
	seen     map[string]bool
	packages []string
	reports  []*model.TestReport
	attempts map[string]int
}

func NewDecoder(l Listener, opts Options, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.OutputSection == "" {
		opts.OutputSection = "Captured output"
	}
	return &Decoder{
		listener: l,
		opts:     opts,
		logger:   logger,
		output:   make(map[testKey][]string),
		partial:  make(map[testKey]string),
		extras:   make(map[testKey][]extra.Extra),
		failed:   make(map[string]bool),
		seen:     make(map[string]bool),
		attempts: make(map[string]int),
	}
}

// scanHandler feeds testjson events into a Decoder.
type scanHandler struct {
	ctx context.Context
	d   *Decoder
}

func (h scanHandler) Event(ev testjson.TestEvent, _ *testjson.Execution) error {
	if err := h.ctx.Err(); err != nil {
		return err
	}
	h.d.handle(ev)
	return nil
}

// Err receives the lines that are not events, such as build errors
// printed by older go versions.
func (h scanHandler) Err(text string) error {
	text = strings.TrimPrefix(text, badOutput)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	h.d.logger.Debug("event: non-json line", "line", text)
	h.d.start(time.Now())
	h.d.orphans = append(h.d.orphans, text)
	return nil
}

// Run consumes r until EOF, then flushes every report and finishes the
// session.
func (d *Decoder) Run(ctx context.Context, r io.Reader) error {
	_, err := testjson.ScanTestOutput(testjson.ScanConfig{
		Stdout:                   r,
		Handler:                  scanHandler{ctx: ctx, d: d},
		IgnoreNonJSONOutputLines: true,
	})
	if err != nil {
		return err
	}
	d.Finish()
	return nil
}

func (d *Decoder) handle(ev Event) {
	if ev.Action == "" {
		return
	}
	at := ev.Time
	if at.IsZero() {
		at = time.Now()
	}
	d.start(at)
	d.last = at
	d.addPackage(ev.Package)

	switch ev.Action {
	case ActionBuildOutput:
		key := testKey{pkg: buildPackage(ev.ImportPath)}
		d.output[key] = append(d.output[key], strings.TrimRight(ev.Output, "\n"))
	case ActionBuildFail:
		d.buildFailure(ev)
	case ActionOutput:
		d.appendOutput(ev)
	case ActionPass, ActionFail, ActionSkip:
		if ev.Test == "" {
			d.packageDone(ev)
			return
		}
		d.testDone(ev)
	}
}

// Finish resolves reruns, emits every report and ends the session.
func (d *Decoder) Finish() {
	end := d.last
	if end.IsZero() {
		end = time.Now()
	}
	d.start(end)

	for _, pf := range d.pending {
		if d.failed[pf.pkg] {
			continue
		}
		d.record(&model.TestReport{
			Package:  pf.pkg,
			When:     model.WhenSetup,
			Outcome:  model.OutcomeError,
			Duration: seconds(pf.elapsed),
			Failure:  pf.lines,
		})
		d.failed[pf.pkg] = true
	}
	d.pending = nil

	seen := make(map[string]int)
	for _, r := range d.reports {
		id := r.ID()
		seen[id]++
		if seen[id] < d.attempts[id] && (r.Outcome == model.OutcomeFailed || r.Outcome == model.OutcomeError) {
			r.Outcome = model.OutcomeRerun
		}
		d.listener.TestReport(r)
	}
	d.reports = nil
	d.listener.SessionFinish(end)
}

// Packages returns every package seen in the stream, in first-seen order.
func (d *Decoder) Packages() []string {
	return append([]string(nil), d.packages...)
}

func (d *Decoder) addPackage(pkg string) {
	if pkg == "" || d.seen[pkg] {
		return
	}
	d.seen[pkg] = true
	d.packages = append(d.packages, pkg)
}

func (d *Decoder) start(at time.Time) {
	if d.started {
		return
	}
	d.started = true
	d.listener.SessionStart(at)
}

// appendOutput collects a line of test output. test2json splits long lines
// into several events; the pieces are joined before the line is parsed.
func (d *Decoder) appendOutput(ev Event) {
	key := testKey{pkg: ev.Package, test: ev.Test}
	text := d.partial[key] + ev.Output
	if !strings.HasSuffix(text, "\n") {
		d.partial[key] = text
		return
	}
	delete(d.partial, key)
	d.addLine(key, strings.TrimRight(text, "\n"))
}

func (d *Decoder) addLine(key testKey, text string) {
	if e, ok := extra.Parse(text); ok {
		d.extras[key] = append(d.extras[key], e)
		return
	}
	if isFraming(text) {
		return
	}
	d.output[key] = append(d.output[key], text)
}

// takeOutput returns the collected output of key, including a trailing
// line that never got its newline.
func (d *Decoder) takeOutput(key testKey) []string {
	if rest, ok := d.partial[key]; ok {
		delete(d.partial, key)
		d.addLine(key, rest)
	}
	lines := d.output[key]
	delete(d.output, key)
	return lines
}

func (d *Decoder) testDone(ev Event) {
	key := testKey{pkg: ev.Package, test: ev.Test}
	lines := d.takeOutput(key)
	r := &model.TestReport{
		Package:  ev.Package,
		Test:     ev.Test,
		When:     model.WhenCall,
		Duration: seconds(ev.Elapsed),
		Extras:   d.extras[key],
	}
	delete(d.extras, key)

	xfail := d.expectedFailure(ev.Package, ev.Test)
	switch ev.Action {
	case ActionPass:
		r.Outcome = model.OutcomePassed
		if xfail {
			r.Outcome = model.OutcomeXPassed
		}
		if len(lines) > 0 {
			r.Sections = []model.Section{{Header: d.opts.OutputSection, Content: strings.Join(lines, "\n")}}
		}
	case ActionFail:
		r.Outcome = model.OutcomeFailed
		if xfail {
			r.Outcome = model.OutcomeXFailed
		}
		d.failed[ev.Package] = true
		r.Failure = lines
	case ActionSkip:
		r.Outcome = model.OutcomeSkipped
		if xfail {
			r.Outcome = model.OutcomeXFailed
		}
		r.Failure = lines
	}
	d.record(r)
}

// packageDone queues an error row for a failing package, for example a
// panicking TestMain or a timeout. Packages that did not build already
// have a build row.
func (d *Decoder) packageDone(ev Event) {
	lines := d.takeOutput(testKey{pkg: ev.Package})
	if ev.Action != ActionFail || d.failed[ev.Package] || failedBuild(ev) != "" {
		return
	}
	d.pending = append(d.pending, packageFailure{
		pkg:     ev.Package,
		elapsed: ev.Elapsed,
		lines:   append(d.takeOrphans(), lines...),
	})
}

func (d *Decoder) buildFailure(ev Event) {
	pkg := buildPackage(ev.ImportPath)
	d.addPackage(pkg)
	lines := append(d.takeOrphans(), d.takeOutput(testKey{pkg: pkg})...)
	d.record(&model.TestReport{
		Package: pkg,
		When:    model.WhenBuild,
		Outcome: model.OutcomeError,
		Failure: lines,
	})
	d.failed[pkg] = true
}

func (d *Decoder) record(r *model.TestReport) {
	id := r.ID()
	d.attempts[id]++
	r.Attempt = d.attempts[id]
	d.reports = append(d.reports, r)
}

func (d *Decoder) takeOrphans() []string {
	out := d.orphans
	d.orphans = nil
	return out
}

func (d *Decoder) expectedFailure(pkg, test string) bool {
	for _, pattern := range d.opts.XFail {
		if ok, _ := path.Match(pattern, test); ok {
			return true
		}
		if ok, _ := path.Match(pattern, pkg+"::"+test); ok {
			return true
		}
	}
	return false
}

// buildPackage strips the " [pkg.test]" variant suffix go adds to the
// import path of a test build.
func buildPackage(importPath string) string {
	if i := strings.Index(importPath, " ["); i >= 0 {
		return importPath[:i]
	}
	return importPath
}

// failedBuild returns the FailedBuild field of a package event, which
// testjson does not decode.
func failedBuild(ev Event) string {
	raw := ev.Bytes()
	if len(raw) == 0 || !strings.Contains(string(raw), "FailedBuild") {
		return ""
	}
	var v struct{ FailedBuild string }
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v.FailedBuild
}

// isFraming reports whether line is go test bookkeeping rather than test
// output.
func isFraming(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, prefix := range []string{"=== RUN", "=== PAUSE", "=== CONT", "=== NAME", "--- PASS:", "--- FAIL:", "--- SKIP:"} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return trimmed == "PASS" || trimmed == "FAIL"
}

// seconds converts an Elapsed value. Tests that never finished carry a
// negative one.
func seconds(s float64) time.Duration {
	if s < 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
