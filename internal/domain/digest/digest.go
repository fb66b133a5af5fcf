package digest

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/readdigest/internal/domain"
	"github.com/kailas-cloud/readdigest/internal/domain/budget"
)

// State is a step of the digest pipeline.
type State string

// Pipeline states. Aborted is absorbing.
const (
	StateStart         State = "START"
	StateParsed        State = "PARSED"
	StateBudgetChecked State = "BUDGET_CHECKED"
	StateExtracted     State = "EXTRACTED"
	StateWritten       State = "WRITTEN"
	StateReported      State = "REPORTED"
	StateAborted       State = "ABORTED"
)

// Terminal reports whether no further transition leaves the state.
func (s State) Terminal() bool {
	return s == StateReported || s == StateAborted
}

// Request is a single document digest invocation.
type Request struct {
	Path     string   `json:"path"`
	Keywords []string `json:"keywords"`
	Source   string   `json:"source,omitempty"`
	Author   string   `json:"author,omitempty"`
}

// Validate checks the request shape.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Path) == "" {
		return fmt.Errorf("path is required: %w", domain.ErrInvalidRequest)
	}
	if len(r.Keywords) == 0 {
		return fmt.Errorf("at least one keyword is required: %w", domain.ErrInvalidRequest)
	}
	for i, kw := range r.Keywords {
		if kw == "" {
			return fmt.Errorf("keyword %d is empty: %w", i, domain.ErrInvalidRequest)
		}
	}
	return nil
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID      string          `json:"run_id"`
	State      State           `json:"state"`
	Trail      []State         `json:"trail"`
	File       string          `json:"file"`
	Cost       int64           `json:"cost"`
	Found      int             `json:"found"`
	Added      int             `json:"added"`
	Duplicates int             `json:"duplicates"`
	Unwritten  int             `json:"unwritten,omitempty"`
	Budget     budget.Snapshot `json:"-"`
	Message    string          `json:"message"`
	// Err is the abort cause; nil unless State is StateAborted.
	Err error `json:"-"`
	// LookupErr is a failed existing-ID lookup, treated as no known duplicates.
	LookupErr error `json:"-"`
	// StoreErr is a degraded append; the run still completes.
	StoreErr error `json:"-"`
}

// Succeeded reports whether the run reached StateReported.
func (r *Result) Succeeded() bool { return r.State == StateReported }

// Reached reports whether the run passed through s.
func (r *Result) Reached(s State) bool {
	for _, t := range r.Trail {
		if t == s {
			return true
		}
	}
	return false
}

// Advance moves the result to s and appends it to the trail.
func (r *Result) Advance(s State) {
	r.State = s
	r.Trail = append(r.Trail, s)
}

// Estimate is the outcome of a budget-only run.
type Estimate struct {
	File         string          `json:"file"`
	SizeKB       float64         `json:"size_kb"`
	Cost         int64           `json:"cost"`
	Ceiling      int64           `json:"ceiling"`
	WithinBudget bool            `json:"within_budget"`
	Budget       budget.Snapshot `json:"-"`
	Message      string          `json:"message"`
	Err          error           `json:"-"`
}
