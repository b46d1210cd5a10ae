package planner

import (
	"fmt"

	"github.com/roach88/resplan/internal/atom"
	"github.com/roach88/resplan/internal/query"
)

// CheckComplete verifies that plan holds every selectable atom of q
// exactly once.
func CheckComplete(q *query.Query, plan []*query.Atom) error {
	want := make(map[*query.Atom]bool)
	for _, a := range q.Selectable() {
		want[a] = true
	}

	seen := make(map[*query.Atom]bool, len(plan))
	for i, a := range plan {
		if !want[a] {
			return &InvariantError{
				Code:    ErrCodeIncompletePlan,
				Message: fmt.Sprintf("plan element %d (%s) is not a selectable atom of the query", i, a),
			}
		}
		if seen[a] {
			return &InvariantError{
				Code:    ErrCodeIncompletePlan,
				Message: fmt.Sprintf("atom %s is planned twice", a),
			}
		}
		seen[a] = true
	}

	for _, a := range q.Selectable() {
		if !seen[a] {
			return &InvariantError{
				Code:    ErrCodeIncompletePlan,
				Message: fmt.Sprintf("atom %s is missing from the plan", a),
			}
		}
	}
	return nil
}

// CheckConnected verifies that each element shares a variable with the
// elements before it, unless it is the first element of a connected
// component of the query.
//
// component maps an element to its component index; vars returns its
// variables. Elements of one component must not be separated by an
// element of another component that was started later.
func CheckConnected[T any](elems []T, vars func(T) atom.VarSet, component func(T) int) error {
	var bound atom.VarSet
	started := make(map[int]bool)
	current := -1
	for i, e := range elems {
		v := vars(e)
		c := component(e)
		switch {
		case c == current && v.Intersects(bound):
		case c == current:
			return &InvariantError{
				Code:    ErrCodeDisconnectedPlan,
				Message: fmt.Sprintf("element %d shares no variable with %s", i, bound),
			}
		case started[c]:
			return &InvariantError{
				Code:    ErrCodeDisconnectedPlan,
				Message: fmt.Sprintf("element %d returns to component %d after it was left", i, c),
			}
		default:
			started[c] = true
			current = c
			bound = atom.VarSet{}
		}
		bound = bound.Union(v)
	}
	return nil
}

// componentIndex maps each selectable atom of q to its component.
func componentIndex(q *query.Query) map[*query.Atom]int {
	idx := make(map[*query.Atom]int)
	for i, c := range q.Components() {
		for _, a := range c {
			idx[a] = i
		}
	}
	return idx
}
