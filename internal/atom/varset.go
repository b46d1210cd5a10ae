package atom

import (
	"slices"
	"strings"
)

// VarSet is an immutable, sorted set of variable names.
// Names are stored without the leading '$'.
//
// The zero value is the empty set. Operations never mutate their receiver.
type VarSet struct {
	vars []string
}

// NewVarSet builds a set from names, dropping empties and duplicates.
func NewVarSet(names ...string) VarSet {
	vars := make([]string, 0, len(names))
	for _, n := range names {
		n = normalizeVar(n)
		if n != "" {
			vars = append(vars, n)
		}
	}
	slices.Sort(vars)
	return VarSet{vars: slices.Compact(vars)}
}

// Len returns the number of variables.
func (s VarSet) Len() int { return len(s.vars) }

// Empty reports whether the set has no variables.
func (s VarSet) Empty() bool { return len(s.vars) == 0 }

// Contains reports whether v is in the set.
func (s VarSet) Contains(v string) bool {
	_, found := slices.BinarySearch(s.vars, normalizeVar(v))
	return found
}

// Slice returns a copy of the variables in sorted order.
func (s VarSet) Slice() []string {
	return slices.Clone(s.vars)
}

// Union returns s ∪ o.
func (s VarSet) Union(o VarSet) VarSet {
	if o.Empty() {
		return s
	}
	if s.Empty() {
		return o
	}
	out := make([]string, 0, len(s.vars)+len(o.vars))
	i, j := 0, 0
	for i < len(s.vars) && j < len(o.vars) {
		switch strings.Compare(s.vars[i], o.vars[j]) {
		case -1:
			out = append(out, s.vars[i])
			i++
		case 1:
			out = append(out, o.vars[j])
			j++
		default:
			out = append(out, s.vars[i])
			i++
			j++
		}
	}
	out = append(out, s.vars[i:]...)
	out = append(out, o.vars[j:]...)
	return VarSet{vars: out}
}

// Intersection returns s ∩ o.
func (s VarSet) Intersection(o VarSet) VarSet {
	var out []string
	i, j := 0, 0
	for i < len(s.vars) && j < len(o.vars) {
		switch strings.Compare(s.vars[i], o.vars[j]) {
		case -1:
			i++
		case 1:
			j++
		default:
			out = append(out, s.vars[i])
			i++
			j++
		}
	}
	return VarSet{vars: out}
}

// Intersects reports whether s and o share a variable.
func (s VarSet) Intersects(o VarSet) bool {
	i, j := 0, 0
	for i < len(s.vars) && j < len(o.vars) {
		switch strings.Compare(s.vars[i], o.vars[j]) {
		case -1:
			i++
		case 1:
			j++
		default:
			return true
		}
	}
	return false
}

// Difference returns the variables of s that are not in o.
func (s VarSet) Difference(o VarSet) VarSet {
	var out []string
	for _, v := range s.vars {
		if !o.Contains(v) {
			out = append(out, v)
		}
	}
	return VarSet{vars: out}
}

// SubsetOf reports whether every variable of s is in o.
func (s VarSet) SubsetOf(o VarSet) bool {
	for _, v := range s.vars {
		if !o.Contains(v) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold the same variables.
func (s VarSet) Equal(o VarSet) bool {
	return slices.Equal(s.vars, o.vars)
}

// String renders the set as "{$a, $b}".
func (s VarSet) String() string {
	parts := make([]string, len(s.vars))
	for i, v := range s.vars {
		parts[i] = "$" + v
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func normalizeVar(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "$")
}
