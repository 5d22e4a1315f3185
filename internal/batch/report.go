package batch

import (
	"time"

	"github.com/samber/lo"
)

// Status is the per-file result of a batch run
type Status string

const (
	StatusProcessed     Status = "processed"
	StatusSkipped       Status = "skipped-not-an-image"
	StatusDecodeFailed  Status = "failed-to-decode"
	StatusEncodeFailed  Status = "failed-to-encode"
	StatusProcessFailed Status = "failed-to-process"
)

// failureOrder fixes the order failure tallies are reported in, following
// the stages a file goes through
var failureOrder = []Status{StatusDecodeFailed, StatusProcessFailed, StatusEncodeFailed}

// Failed reports whether the status counts toward the failure total
func (s Status) Failed() bool {
	switch s {
	case StatusDecodeFailed, StatusEncodeFailed, StatusProcessFailed:
		return true
	}
	return false
}

// Outcome records what happened to one directory entry
type Outcome struct {
	Name     string
	Input    string
	Output   string // empty unless the file was selected for processing
	Status   Status
	Err      error
	PSNR     float64 // input vs corrected output, set when processed
	Duration time.Duration
}

// Report aggregates one batch run. It is built by Runner.Run and owned by
// the caller afterwards.
type Report struct {
	RunID     string
	Processed int
	Failed    int
	Skipped   int
	Outcomes  []Outcome // sorted by Name
	Duration  time.Duration
}

// Failures returns the failed outcomes in name order
func (r *Report) Failures() []Outcome {
	return lo.Filter(r.Outcomes, func(o Outcome, _ int) bool {
		return o.Status.Failed()
	})
}

// CountByStatus tallies outcomes per status
func (r *Report) CountByStatus() map[Status]int {
	return lo.CountValuesBy(r.Outcomes, func(o Outcome) Status {
		return o.Status
	})
}

// FailureTally is the number of outcomes that ended in one failure status
type FailureTally struct {
	Status Status
	Count  int
}

// FailureTallies returns the non-zero failure counts, decode failures first
// and encode failures last
func (r *Report) FailureTallies() []FailureTally {
	counts := r.CountByStatus()
	return lo.FilterMap(failureOrder, func(s Status, _ int) (FailureTally, bool) {
		return FailureTally{Status: s, Count: counts[s]}, counts[s] > 0
	})
}
