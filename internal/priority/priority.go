// Package priority ranks annotated atoms for resolution.
//
// A Priority is a tuple compared lexicographically. Earlier fields dominate
// later ones:
//  1. non-ontological before ontological
//  2. more id-pinned variables first
//  3. higher specificity first
//  4. not resolvable, then resolvable, then recursive
//  5. more variables already bound first
//  6. lower estimated answer count first
//
// Ties are left to the caller.
package priority

import (
	"cmp"
	"fmt"

	"github.com/roach88/resplan/internal/atom"
	"github.com/roach88/resplan/internal/query"
)

// Resolution grades how much rule inference an atom needs.
type Resolution int

const (
	// NotResolvable atoms are answered from stored data alone.
	NotResolvable Resolution = iota

	// Resolvable atoms need at least one rule to be applied.
	Resolvable

	// Recursive atoms have a type that sits on a rule cycle.
	Recursive
)

func (r Resolution) String() string {
	switch r {
	case NotResolvable:
		return "stored"
	case Resolvable:
		return "inferred"
	case Recursive:
		return "recursive"
	}
	return fmt.Sprintf("resolution(%d)", int(r))
}

// Priority is the rank of an atom against a set of bound variables.
type Priority struct {
	Ontological bool
	IDCount     int
	Specificity query.Specificity
	Resolution  Resolution
	Guards      int
	Estimate    int64
}

// Compute ranks a against the variables bound by atoms planned before it.
func Compute(a *query.Atom, bound atom.VarSet) Priority {
	res := NotResolvable
	switch {
	case a.IsRecursive():
		res = Recursive
	case a.IsRuleResolvable():
		res = Resolvable
	}
	return Priority{
		Ontological: a.IsOntological(),
		IDCount:     a.IDCount(),
		Specificity: a.Specificity(),
		Resolution:  res,
		Guards:      a.Vars().Intersection(bound).Len(),
		Estimate:    a.EstimateCount(bound),
	}
}

// Compare returns a negative number when x ranks before y, a positive one
// when y ranks before x, and zero on a tie.
func Compare(x, y Priority) int {
	if x.Ontological != y.Ontological {
		if x.Ontological {
			return 1
		}
		return -1
	}
	if c := cmp.Compare(y.IDCount, x.IDCount); c != 0 {
		return c
	}
	if c := cmp.Compare(y.Specificity, x.Specificity); c != 0 {
		return c
	}
	if c := cmp.Compare(x.Resolution, y.Resolution); c != 0 {
		return c
	}
	if c := cmp.Compare(y.Guards, x.Guards); c != 0 {
		return c
	}
	return cmp.Compare(x.Estimate, y.Estimate)
}

// Better reports whether x ranks strictly before y.
func Better(x, y Priority) bool {
	return Compare(x, y) < 0
}

func (p Priority) String() string {
	return fmt.Sprintf("ontological=%t ids=%d %s %s guards=%d est=%d",
		p.Ontological, p.IDCount, p.Specificity, p.Resolution, p.Guards, p.Estimate)
}
