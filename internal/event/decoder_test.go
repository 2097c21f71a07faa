package event

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/testreport/internal/model"
	"github.com/testreport/pkg/extra"
)

type recorder struct {
	started  time.Time
	finished time.Time
	reports  []*model.TestReport
	order    []string
}

func (r *recorder) SessionStart(at time.Time) {
	r.started = at
	r.order = append(r.order, "start")
}

func (r *recorder) TestReport(rep *model.TestReport) {
	r.reports = append(r.reports, rep)
	r.order = append(r.order, "report")
}

func (r *recorder) SessionFinish(at time.Time) {
	r.finished = at
	r.order = append(r.order, "finish")
}

func (r *recorder) byID(id string) *model.TestReport {
	for _, rep := range r.reports {
		if rep.ID() == id {
			return rep
		}
	}
	return nil
}

const calcStream = `{"Time":"2024-05-11T16:52:00Z","Action":"start","Package":"example.com/calc"}
{"Time":"2024-05-11T16:52:00.1Z","Action":"run","Package":"example.com/calc","Test":"TestCalc01"}
{"Time":"2024-05-11T16:52:00.1Z","Action":"output","Package":"example.com/calc","Test":"TestCalc01","Output":"=== RUN   TestCalc01\n"}
{"Time":"2024-05-11T16:52:00.1Z","Action":"output","Package":"example.com/calc","Test":"TestCalc01","Output":"    calc_test.go:9: computing 10+20\n"}
{"Time":"2024-05-11T16:52:00.1Z","Action":"output","Package":"example.com/calc","Test":"TestCalc01","Output":"--- PASS: TestCalc01 (0.25s)\n"}
{"Time":"2024-05-11T16:52:00.2Z","Action":"pass","Package":"example.com/calc","Test":"TestCalc01","Elapsed":0.25}
{"Time":"2024-05-11T16:52:00.2Z","Action":"run","Package":"example.com/calc","Test":"TestCalc03"}
{"Time":"2024-05-11T16:52:00.2Z","Action":"output","Package":"example.com/calc","Test":"TestCalc03","Output":"    calc_test.go:20: got 60, want 50\n"}
{"Time":"2024-05-11T16:52:00.2Z","Action":"output","Package":"example.com/calc","Test":"TestCalc03","Output":"    calc_test.go:21: testreport-extra: {\"name\":\"docs\",\"format\":\"url\",\"content\":\"https://example.com\"}\n"}
{"Time":"2024-05-11T16:52:00.3Z","Action":"fail","Package":"example.com/calc","Test":"TestCalc03","Elapsed":0.01}
{"Time":"2024-05-11T16:52:00.3Z","Action":"output","Package":"example.com/calc","Test":"TestCalc04","Output":"    calc_test.go:30: not now\n"}
{"Time":"2024-05-11T16:52:00.3Z","Action":"skip","Package":"example.com/calc","Test":"TestCalc04"}
{"Time":"2024-05-11T16:52:00.4Z","Action":"fail","Package":"example.com/calc","Test":"TestCalc05"}
{"Time":"2024-05-11T16:52:00.4Z","Action":"pass","Package":"example.com/calc","Test":"TestCalc06"}
{"Time":"2024-05-11T16:52:00.5Z","Action":"output","Package":"example.com/calc","Output":"FAIL\texample.com/calc\t0.5s\n"}
{"Time":"2024-05-11T16:52:01Z","Action":"fail","Package":"example.com/calc","Elapsed":1}
`

func decode(t *testing.T, stream string, opts Options) *recorder {
	t.Helper()
	rec := &recorder{}
	d := NewDecoder(rec, opts, nil)
	if err := d.Run(context.Background(), strings.NewReader(stream)); err != nil {
		t.Fatalf("Run returned an error: %v", err)
	}
	return rec
}

func TestLifecycleOrder(t *testing.T) {
	rec := decode(t, calcStream, Options{})

	if rec.order[0] != "start" || rec.order[len(rec.order)-1] != "finish" {
		t.Fatalf("unexpected lifecycle order: %v", rec.order)
	}
	if got := rec.finished.Sub(rec.started); got != time.Second {
		t.Errorf("session duration = %v, want 1s", got)
	}
	if len(rec.reports) != 5 {
		t.Fatalf("expected 5 reports, got %d", len(rec.reports))
	}
}

func TestOutcomes(t *testing.T) {
	rec := decode(t, calcStream, Options{XFail: []string{"TestCalc05", "example.com/calc::TestCalc06"}})

	cases := []struct {
		id   string
		want model.Outcome
	}{
		{"example.com/calc::TestCalc01", model.OutcomePassed},
		{"example.com/calc::TestCalc03", model.OutcomeFailed},
		{"example.com/calc::TestCalc04", model.OutcomeSkipped},
		{"example.com/calc::TestCalc05", model.OutcomeXFailed},
		{"example.com/calc::TestCalc06", model.OutcomeXPassed},
	}
	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			rep := rec.byID(tc.id)
			if rep == nil {
				t.Fatalf("no report for %s", tc.id)
			}
			if rep.Outcome != tc.want {
				t.Errorf("outcome = %s, want %s", rep.Outcome, tc.want)
			}
		})
	}

	// TestCalc03 failed, so the failing package is not an extra error row.
	if rep := rec.byID("example.com/calc::setup"); rep != nil {
		t.Errorf("unexpected package error row: %+v", rep)
	}
}

func TestOutputAndExtras(t *testing.T) {
	rec := decode(t, calcStream, Options{})

	passed := rec.byID("example.com/calc::TestCalc01")
	if len(passed.Sections) != 1 || passed.Sections[0].Content != "    calc_test.go:9: computing 10+20" {
		t.Errorf("unexpected sections: %+v", passed.Sections)
	}
	if passed.Duration != 250*time.Millisecond {
		t.Errorf("duration = %v", passed.Duration)
	}

	failed := rec.byID("example.com/calc::TestCalc03")
	if len(failed.Failure) != 1 || !strings.Contains(failed.Failure[0], "got 60, want 50") {
		t.Errorf("unexpected failure lines: %q", failed.Failure)
	}
	if len(failed.Extras) != 1 || failed.Extras[0].Format != extra.FormatURL {
		t.Errorf("unexpected extras: %+v", failed.Extras)
	}
}

func TestPackageFailureWithoutFailingTest(t *testing.T) {
	stream := `not json: panic in TestMain
{"Action":"output","Package":"example.com/boot","Output":"FAIL\texample.com/boot\t0.01s\n"}
{"Action":"fail","Package":"example.com/boot","Elapsed":0.01}
`
	rec := decode(t, stream, Options{})
	rep := rec.byID("example.com/boot::setup")
	if rep == nil {
		t.Fatal("expected a setup error row")
	}
	if rep.Outcome != model.OutcomeError {
		t.Errorf("outcome = %s, want error", rep.Outcome)
	}
	if rep.Failure[0] != "not json: panic in TestMain" {
		t.Errorf("expected orphan output first, got %q", rep.Failure)
	}
}

// buildFailStream is `go test -json ./...` (go 1.24) over a module where
// one package has a type error and another passes.
const buildFailStream = `{"ImportPath":"example.com/bf/broken [example.com/bf/broken.test]","Action":"build-output","Output":"# example.com/bf/broken [example.com/bf/broken.test]\n"}
{"ImportPath":"example.com/bf/broken [example.com/bf/broken.test]","Action":"build-output","Output":"./broken.go:4:9: cannot use \"x\" (untyped string constant) as int value in return statement\n"}
{"ImportPath":"example.com/bf/broken [example.com/bf/broken.test]","Action":"build-fail"}
{"Time":"2025-03-01T10:00:00.1Z","Action":"start","Package":"example.com/bf/broken"}
{"Time":"2025-03-01T10:00:00.1Z","Action":"output","Package":"example.com/bf/broken","Output":"FAIL\texample.com/bf/broken [build failed]\n"}
{"Time":"2025-03-01T10:00:00.1Z","Action":"fail","Package":"example.com/bf/broken","Elapsed":0,"FailedBuild":"example.com/bf/broken [example.com/bf/broken.test]"}
{"Time":"2025-03-01T10:00:00.2Z","Action":"start","Package":"example.com/bf/ok"}
{"Time":"2025-03-01T10:00:00.3Z","Action":"run","Package":"example.com/bf/ok","Test":"TestOK"}
{"Time":"2025-03-01T10:00:00.3Z","Action":"output","Package":"example.com/bf/ok","Test":"TestOK","Output":"=== RUN   TestOK\n"}
{"Time":"2025-03-01T10:00:00.3Z","Action":"output","Package":"example.com/bf/ok","Test":"TestOK","Output":"--- PASS: TestOK (0.00s)\n"}
{"Time":"2025-03-01T10:00:00.3Z","Action":"pass","Package":"example.com/bf/ok","Test":"TestOK","Elapsed":0}
{"Time":"2025-03-01T10:00:00.3Z","Action":"output","Package":"example.com/bf/ok","Output":"PASS\n"}
{"Time":"2025-03-01T10:00:00.3Z","Action":"output","Package":"example.com/bf/ok","Output":"ok  \texample.com/bf/ok\t0.002s\n"}
{"Time":"2025-03-01T10:00:00.3Z","Action":"pass","Package":"example.com/bf/ok","Elapsed":0.002}
FAIL
`

func TestBuildFailure(t *testing.T) {
	rec := decode(t, buildFailStream, Options{})

	var errs []*model.TestReport
	for _, rep := range rec.reports {
		if rep.Outcome == model.OutcomeError {
			errs = append(errs, rep)
		}
	}
	if len(errs) != 1 {
		for _, rep := range errs {
			t.Logf("error row %s: %q", rep.ID(), rep.Failure)
		}
		t.Fatalf("one build failure produced %d error rows, want 1", len(errs))
	}
	if id := errs[0].ID(); id != "example.com/bf/broken::build" {
		t.Errorf("build row id = %q", id)
	}
	want := []string{
		"# example.com/bf/broken [example.com/bf/broken.test]",
		`./broken.go:4:9: cannot use "x" (untyped string constant) as int value in return statement`,
	}
	if strings.Join(errs[0].Failure, "\n") != strings.Join(want, "\n") {
		t.Errorf("build output = %q", errs[0].Failure)
	}
	if rec.byID("example.com/bf/ok::TestOK") == nil {
		t.Error("passing package lost")
	}
}

func TestDependencyBuildFailure(t *testing.T) {
	stream := `{"ImportPath":"example.com/bf/dep","Action":"build-output","Output":"# example.com/bf/dep\n"}
{"ImportPath":"example.com/bf/dep","Action":"build-output","Output":"dep/dep.go:3:1: syntax error: non-declaration statement outside function body\n"}
{"ImportPath":"example.com/bf/dep","Action":"build-fail"}
{"Action":"start","Package":"example.com/bf/uses"}
{"Action":"output","Package":"example.com/bf/uses","Output":"FAIL\texample.com/bf/uses [build failed]\n"}
{"Action":"fail","Package":"example.com/bf/uses","Elapsed":0,"FailedBuild":"example.com/bf/dep"}
`
	rec := decode(t, stream, Options{})
	if len(rec.reports) != 1 {
		t.Fatalf("expected only the dependency build row, got %d rows", len(rec.reports))
	}
	if rec.byID("example.com/bf/dep::build") == nil {
		t.Errorf("missing build row for the dependency")
	}
}

func TestSplitOutputLines(t *testing.T) {
	payload := `testreport-extra: {"name":"docs","format":"url","content":"https://example.com"}`
	stream := `{"Action":"run","Package":"p","Test":"TestLong"}
{"Action":"output","Package":"p","Test":"TestLong","Output":"    long_test.go:9: ` + strings.ReplaceAll(payload[:30], `"`, `\"`) + `"}
{"Action":"output","Package":"p","Test":"TestLong","Output":"` + strings.ReplaceAll(payload[30:], `"`, `\"`) + `\n"}
{"Action":"output","Package":"p","Test":"TestLong","Output":"    long_test.go:10: no newline"}
{"Action":"fail","Package":"p","Test":"TestLong"}
`
	rec := decode(t, stream, Options{})
	rep := rec.byID("p::TestLong")
	if rep == nil {
		t.Fatal("missing report")
	}
	if len(rep.Extras) != 1 || rep.Extras[0].Content != "https://example.com" {
		t.Errorf("split extra not joined: %+v", rep.Extras)
	}
	if len(rep.Failure) != 1 || rep.Failure[0] != "    long_test.go:10: no newline" {
		t.Errorf("failure = %q", rep.Failure)
	}
}

func TestUnfinishedTestFailsOnce(t *testing.T) {
	stream := `{"Action":"run","Package":"p","Test":"TestHang"}
{"Action":"output","Package":"p","Test":"TestHang","Output":"panic: test timed out after 1s\n"}
{"Action":"output","Package":"p","Output":"FAIL\tp\t1.0s\n"}
{"Action":"fail","Package":"p","Elapsed":1}
`
	rec := decode(t, stream, Options{})
	if len(rec.reports) != 1 {
		t.Fatalf("expected one row, got %d", len(rec.reports))
	}
	rep := rec.reports[0]
	if rep.ID() != "p::TestHang" || rep.Outcome != model.OutcomeFailed {
		t.Errorf("row = %s %s", rep.ID(), rep.Outcome)
	}
	if rep.Duration != 0 {
		t.Errorf("duration = %s, want 0", rep.Duration)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDecoder(&recorder{}, Options{}, nil)
	if err := d.Run(ctx, strings.NewReader(calcStream)); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}

func TestRerunMarksEarlierFailures(t *testing.T) {
	stream := `{"Action":"fail","Package":"p","Test":"TestFlaky"}
{"Action":"fail","Package":"p","Test":"TestFlaky"}
{"Action":"pass","Package":"p","Test":"TestFlaky"}
`
	rec := decode(t, stream, Options{})
	if len(rec.reports) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(rec.reports))
	}
	want := []model.Outcome{model.OutcomeRerun, model.OutcomeRerun, model.OutcomePassed}
	for i, rep := range rec.reports {
		if rep.Outcome != want[i] {
			t.Errorf("attempt %d outcome = %s, want %s", i+1, rep.Outcome, want[i])
		}
		if rep.Attempt != i+1 {
			t.Errorf("attempt %d numbered %d", i+1, rep.Attempt)
		}
	}
}

func TestEmptyStream(t *testing.T) {
	rec := decode(t, "", Options{})
	if len(rec.order) != 2 {
		t.Errorf("expected start and finish only, got %v", rec.order)
	}
}

func TestPackages(t *testing.T) {
	rec := &recorder{}
	d := NewDecoder(rec, Options{}, nil)
	if err := d.Run(context.Background(), strings.NewReader(calcStream)); err != nil {
		t.Fatal(err)
	}
	if got := d.Packages(); len(got) != 1 || got[0] != "example.com/calc" {
		t.Errorf("packages = %v", got)
	}

	d = NewDecoder(&recorder{}, Options{}, nil)
	if err := d.Run(context.Background(), strings.NewReader(buildFailStream)); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(d.Packages(), ", ")
	if got != "example.com/bf/broken, example.com/bf/ok" {
		t.Errorf("packages = %q, want first-seen order", got)
	}
}
