package harness

import (
	"github.com/roach88/resplan/internal/partition"
	"github.com/roach88/resplan/internal/planner"
)

// SubQuery describes one sub-query of the query plan by atom name.
type SubQuery struct {
	Atoms      []string `json:"atoms"`
	Resolvable bool     `json:"resolvable"`
	Atomic     bool     `json:"atomic"`
}

// Result is the outcome of running a scenario.
type Result struct {
	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Pass indicates overall success.
	// True if planning succeeded, every run agreed and all assertions hold.
	Pass bool `json:"pass"`

	// Runs is how many times the query was planned.
	Runs int `json:"runs"`

	// AtomPlan lists planned atom names in order.
	AtomPlan []string `json:"atom_plan"`

	// QueryPlan lists the sub-queries in resolution order.
	QueryPlan []SubQuery `json:"query_plan"`

	// AtomPlanFingerprint and QueryPlanFingerprint identify the plans.
	AtomPlanFingerprint  string `json:"atom_plan_fingerprint,omitempty"`
	QueryPlanFingerprint string `json:"query_plan_fingerprint,omitempty"`

	// Errors contains failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	atomPlan  *planner.AtomPlan
	queryPlan *partition.QueryPlan
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario:  scenario,
		Pass:      true,
		AtomPlan:  []string{},
		QueryPlan: []SubQuery{},
		Errors:    []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Plans returns the plans of the first run; nil when planning failed.
func (r *Result) Plans() (*planner.AtomPlan, *partition.QueryPlan) {
	return r.atomPlan, r.queryPlan
}
