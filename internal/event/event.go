// Package event turns the `go test -json` stream into the report lifecycle:
// one session start, a test report per finished test and one session finish.
package event

import (
	"time"

	"gotest.tools/gotestsum/testjson"

	"github.com/testreport/internal/model"
)

// Event is one line of `go test -json` output.
type Event = testjson.TestEvent

// Actions emitted by test2json.
const (
	ActionRun         = testjson.ActionRun
	ActionOutput      = testjson.ActionOutput
	ActionPass        = testjson.ActionPass
	ActionFail        = testjson.ActionFail
	ActionSkip        = testjson.ActionSkip
	ActionBuildOutput = testjson.ActionBuild

	// ActionBuildFail ends the build output of a package that did not
	// compile (go 1.24 and later).
	ActionBuildFail testjson.Action = "build-fail"
)

// Listener receives the lifecycle of one test session.
type Listener interface {
	SessionStart(at time.Time)
	TestReport(r *model.TestReport)
	SessionFinish(at time.Time)
}
