package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Plan     []string // Atom plan for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nAtom plan:\n")
	for i, name := range e.Plan {
		fmt.Fprintf(&buf, "  [%d] %s\n", i, name)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the result and returns
// the failure messages.
func EvaluateAssertions(r *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(r, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(r *Result, a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Plan: r.AtomPlan}
	}
	first := func() string {
		if len(r.AtomPlan) == 0 {
			return "<empty plan>"
		}
		return r.AtomPlan[0]
	}

	switch a.Type {
	case AssertAtomPlan:
		if !slices.Equal(r.AtomPlan, a.Atoms) {
			return fail(strings.Join(a.Atoms, " -> "), strings.Join(r.AtomPlan, " -> "))
		}

	case AssertFirstAtomIn:
		if !slices.Contains(a.Atoms, first()) {
			return fail("first atom in ["+strings.Join(a.Atoms, ", ")+"]", first())
		}

	case AssertFirstAtomNot:
		if first() == a.Atom {
			return fail("first atom other than "+a.Atom, first())
		}

	case AssertLastAtomIn:
		last := "<empty plan>"
		if n := len(r.AtomPlan); n > 0 {
			last = r.AtomPlan[n-1]
		}
		if !slices.Contains(a.Atoms, last) {
			return fail("last atom in ["+strings.Join(a.Atoms, ", ")+"]", last)
		}

	case AssertAtomAt:
		if a.Index >= len(r.AtomPlan) {
			return fail(fmt.Sprintf("%s at index %d", a.Atom, a.Index), fmt.Sprintf("plan has %d atoms", len(r.AtomPlan)))
		}
		if got := r.AtomPlan[a.Index]; got != a.Atom {
			return fail(fmt.Sprintf("%s at index %d", a.Atom, a.Index), got)
		}

	case AssertFirstAtomNotResolvable:
		if r.atomPlan == nil || r.atomPlan.Len() == 0 {
			return fail("a non-resolvable first atom", "<empty plan>")
		}
		if first := r.atomPlan.Atoms()[0]; first.IsRuleResolvable() {
			return fail("a non-resolvable first atom", r.AtomPlan[0]+" is rule-resolvable")
		}

	case AssertQueryCount:
		if len(r.QueryPlan) != a.Count {
			return fail(fmt.Sprintf("%d sub-queries", a.Count), fmt.Sprintf("%d sub-queries", len(r.QueryPlan)))
		}

	case AssertFirstQueryHasID:
		_, qp := r.Plans()
		if qp == nil || qp.Len() == 0 {
			return fail("first sub-query with an id predicate", "no sub-queries")
		}
		if !qp.Queries()[0].HasIDPredicate() {
			return fail("first sub-query with an id predicate", formatSubQuery(r.QueryPlan[0]))
		}

	case AssertFirstQueryNotAtomic:
		if len(r.QueryPlan) == 0 {
			return fail("non-atomic first sub-query", "no sub-queries")
		}
		if r.QueryPlan[0].Atomic {
			return fail("non-atomic first sub-query", formatSubQuery(r.QueryPlan[0]))
		}

	case AssertLastQueriesResolvable:
		if len(r.QueryPlan) < a.Count {
			return fail(fmt.Sprintf("last %d sub-queries resolvable", a.Count), fmt.Sprintf("%d sub-queries", len(r.QueryPlan)))
		}
		for _, sq := range r.QueryPlan[len(r.QueryPlan)-a.Count:] {
			if !sq.Resolvable {
				return fail(fmt.Sprintf("last %d sub-queries resolvable", a.Count), formatSubQuery(sq)+" is not")
			}
		}

	default:
		return fail("a known assertion type", a.Type)
	}
	return nil
}

func formatSubQuery(sq SubQuery) string {
	return "{" + strings.Join(sq.Atoms, "; ") + "}"
}
