package schema

import (
	"slices"
)

// Schema is an immutable type hierarchy with its rules.
// All methods are safe for concurrent use.
type Schema struct {
	types      map[string]Type
	labels     []string            // user-defined labels, sorted
	children   map[string][]string // direct subtypes, sorted
	rules      []Rule
	concluding map[string][]int // conclusion label -> rule indexes
	recursive  map[string]bool
	warnings   []RecursionWarning
}

// Type returns the type with the given label.
func (s *Schema) Type(label string) (Type, bool) {
	t, ok := s.types[NormalizeLabel(label)]
	if !ok {
		return Type{}, false
	}
	t.Roles = slices.Clone(t.Roles)
	return t, true
}

// Has reports whether the label names a type, kind roots included.
func (s *Schema) Has(label string) bool {
	_, ok := s.types[NormalizeLabel(label)]
	return ok
}

// Kind returns the kind of the labelled type.
func (s *Schema) Kind(label string) (Kind, bool) {
	t, ok := s.types[NormalizeLabel(label)]
	return t.Kind, ok
}

// Labels returns the user-defined type labels in sorted order.
func (s *Schema) Labels() []string {
	return slices.Clone(s.labels)
}

// Subs returns the label and all its transitive subtypes, sorted.
// Unknown labels yield nil.
func (s *Schema) Subs(label string) []string {
	label = NormalizeLabel(label)
	if _, ok := s.types[label]; !ok {
		return nil
	}
	var out []string
	stack := []string{label}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		stack = append(stack, s.children[cur]...)
	}
	slices.Sort(out)
	return out
}

// Sups returns the label followed by its ancestors up to the kind root.
func (s *Schema) Sups(label string) []string {
	t, ok := s.types[NormalizeLabel(label)]
	if !ok {
		return nil
	}
	out := []string{t.Label}
	for !t.IsRoot() {
		t = s.types[t.Sup]
		out = append(out, t.Label)
	}
	return out
}

// IsSubtypeOf reports whether label equals sup or inherits from it.
func (s *Schema) IsSubtypeOf(label, sup string) bool {
	return slices.Contains(s.Sups(label), NormalizeLabel(sup))
}

// Roles returns the roles a relation type declares or inherits.
func (s *Schema) Roles(label string) []string {
	var out []string
	for _, l := range s.Sups(label) {
		out = append(out, s.types[l].Roles...)
	}
	return out
}

// Rules returns every rule in declaration order.
func (s *Schema) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	for i, r := range s.rules {
		out[i] = cloneRule(r)
	}
	return out
}

// HasRules reports whether the schema defines any rule.
func (s *Schema) HasRules() bool {
	return len(s.rules) > 0
}

// RulesConcluding returns the rules whose conclusion is the label or one of
// its subtypes, in declaration order.
func (s *Schema) RulesConcluding(label string) []Rule {
	var idx []int
	for _, sub := range s.Subs(label) {
		idx = append(idx, s.concluding[sub]...)
	}
	slices.Sort(idx)
	out := make([]Rule, len(idx))
	for i, n := range idx {
		out[i] = cloneRule(s.rules[n])
	}
	return out
}

// IsResolvable reports whether instances of the label can be inferred by
// some rule.
func (s *Schema) IsResolvable(label string) bool {
	for _, sub := range s.Subs(label) {
		if len(s.concluding[sub]) > 0 {
			return true
		}
	}
	return false
}

// IsRecursive reports whether the label or a subtype is concluded by a rule
// that depends on itself, directly or through other rules.
func (s *Schema) IsRecursive(label string) bool {
	for _, sub := range s.Subs(label) {
		if s.recursive[sub] {
			return true
		}
	}
	return false
}

// RecursionWarnings returns one warning per rule dependency cycle.
func (s *Schema) RecursionWarnings() []RecursionWarning {
	out := make([]RecursionWarning, len(s.warnings))
	for i, w := range s.warnings {
		out[i] = RecursionWarning{Path: slices.Clone(w.Path), Message: w.Message, Level: w.Level}
	}
	return out
}

func cloneRule(r Rule) Rule {
	r.When = slices.Clone(r.When)
	r.WhenNot = slices.Clone(r.WhenNot)
	return r
}
