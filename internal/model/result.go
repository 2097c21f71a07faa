package model

import (
	"time"

	"github.com/testreport/pkg/extra"
)

const (
	WhenCall  = "call"
	WhenSetup = "setup"
	WhenBuild = "build"
)

// Section is a titled block of captured output.
type Section struct {
	Header  string
	Content string
}

// TestReport is the outcome of one test, or of a package that failed
// outside any test.
type TestReport struct {
	Package  string
	Test     string
	When     string
	Outcome  Outcome
	Duration time.Duration
	// Failure holds the lines that explain a failure or skip.
	Failure  []string
	Sections []Section
	Extras   []extra.Extra
	// Attempt is 1 for the first run of a test id and grows with reruns.
	Attempt int
}

// ID is the unique name of the test within the session.
func (r *TestReport) ID() string {
	id := r.Package
	if r.Test != "" {
		id += "::" + r.Test
	}
	if r.When != "" && r.When != WhenCall {
		id += "::" + r.When
	}
	return id
}
