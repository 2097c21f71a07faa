package model

type Outcome string

const (
	OutcomeError   Outcome = "error"
	OutcomeFailed  Outcome = "failed"
	OutcomeRerun   Outcome = "rerun"
	OutcomeXFailed Outcome = "xfailed"
	OutcomeXPassed Outcome = "xpassed"
	OutcomeSkipped Outcome = "skipped"
	OutcomePassed  Outcome = "passed"
)

// Outcomes lists every outcome in report order.
var Outcomes = []Outcome{
	OutcomeError,
	OutcomeFailed,
	OutcomeRerun,
	OutcomeXFailed,
	OutcomeXPassed,
	OutcomeSkipped,
	OutcomePassed,
}

// Rank is the position of o in the results table; lower sorts first.
func (o Outcome) Rank() int {
	for i, v := range Outcomes {
		if v == o {
			return i
		}
	}
	return len(Outcomes)
}

// Counts tallies results per outcome.
type Counts map[Outcome]int

// Total is the number of executed test cases: passed, failed, xpassed and
// xfailed. Skipped tests, errors and reruns are not counted.
func (c Counts) Total() int {
	return c[OutcomePassed] + c[OutcomeFailed] + c[OutcomeXPassed] + c[OutcomeXFailed]
}

// PassRate is the percentage of passed cases over Total, 0 when nothing ran.
func (c Counts) PassRate() float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return float64(c[OutcomePassed]) / float64(total) * 100
}
