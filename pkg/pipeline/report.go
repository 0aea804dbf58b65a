package pipeline

import "time"

// Report summarizes one run.
type Report struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	DryRun    bool          `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Results   []Result      `json:"results" yaml:"results"`
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
}

func (r *Report) finish(now time.Time) {
	r.Duration = now.Sub(r.StartedAt)
	if r.Results == nil {
		r.Results = []Result{}
	}
}

// Exported counts fully exported transcripts.
func (r *Report) Exported() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

// Failed counts transcripts whose export started and stopped early.
func (r *Report) Failed() int {
	return len(r.Results) - r.Exported() - r.NotRun()
}

// NotRun counts fetched transcripts that were never started.
func (r *Report) NotRun() int {
	n := 0
	for _, res := range r.Results {
		if res.NotRun {
			n++
		}
	}
	return n
}

// HasFailures reports whether any transcript failed or was not run.
func (r *Report) HasFailures() bool {
	return r.Exported() < len(r.Results)
}

// Failures returns the failed results in run order.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}
