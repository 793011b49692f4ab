package models

import (
	"math"
	"time"
)

// ProbeResult holds the outcome of a single probe attempt.
type ProbeResult struct {
	Backend    Backend
	Success    bool
	Message    string // diagnostic on success, error text on failure
	Version    string
	ServerTime time.Time
	Attempts   int
	Duration   time.Duration
	Error      error
}

// NewFailedResult builds a failed result carrying err's message.
func NewFailedResult(backend Backend, err error) *ProbeResult {
	return &ProbeResult{
		Backend: backend,
		Message: err.Error(),
		Error:   err,
	}
}

// RunSummary aggregates the final outcome of every requested backend.
type RunSummary struct {
	Results  []*ProbeResult // in run order
	Duration time.Duration
}

// SuccessCount returns the number of successful backends.
func (s *RunSummary) SuccessCount() int {
	n := 0
	for _, r := range s.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// Total returns the number of checked backends.
func (s *RunSummary) Total() int {
	return len(s.Results)
}

// SuccessRate returns the success ratio as a percentage rounded to the nearest integer.
func (s *RunSummary) SuccessRate() int {
	if s.Total() == 0 {
		return 0
	}
	return int(math.Round(float64(s.SuccessCount()) / float64(s.Total()) * 100))
}

// AllPassed reports whether every backend succeeded.
func (s *RunSummary) AllPassed() bool {
	return s.Total() > 0 && s.SuccessCount() == s.Total()
}

// Failed returns the backends whose final outcome was a failure.
func (s *RunSummary) Failed() []Backend {
	var failed []Backend
	for _, r := range s.Results {
		if !r.Success {
			failed = append(failed, r.Backend)
		}
	}
	return failed
}

// Outcome returns the final outcome for backend and whether it was checked.
func (s *RunSummary) Outcome(backend Backend) (bool, bool) {
	for _, r := range s.Results {
		if r.Backend == backend {
			return r.Success, true
		}
	}
	return false, false
}
