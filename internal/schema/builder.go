package schema

import (
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Builder accumulates type and rule definitions.
//
// Definitions may be added in any order; references are resolved by Build.
// Labels are trimmed and NFC-normalized so that visually identical labels
// compare equal.
type Builder struct {
	types []Type
	rules []Rule
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Type adds a type definition.
func (b *Builder) Type(t Type) *Builder {
	t.Roles = slices.Clone(t.Roles)
	b.types = append(b.types, t)
	return b
}

// Entity adds an entity type. An empty sup means the entity root.
func (b *Builder) Entity(label, sup string) *Builder {
	return b.Type(Type{Label: label, Kind: KindEntity, Sup: sup})
}

// Relation adds a relation type declaring the given roles.
func (b *Builder) Relation(label, sup string, roles ...string) *Builder {
	return b.Type(Type{Label: label, Kind: KindRelation, Sup: sup, Roles: roles})
}

// Attribute adds an attribute type with the given value type.
func (b *Builder) Attribute(label, sup, valueType string) *Builder {
	return b.Type(Type{Label: label, Kind: KindAttribute, Sup: sup, ValueType: valueType})
}

// Rule adds a rule definition.
func (b *Builder) Rule(r Rule) *Builder {
	r.When = slices.Clone(r.When)
	r.WhenNot = slices.Clone(r.WhenNot)
	b.rules = append(b.rules, r)
	return b
}

// Build validates the definitions and returns the immutable schema.
//
// Validation order follows declaration order, and the first violation is
// returned:
//  1. Labels are non-empty and unique (kind roots are reserved)
//  2. Kinds are valid
//  3. Supertypes exist, share the subtype's kind, and form no cycle
//  4. Rules have a conclusion and at least one positive premise, and only
//     reference known types
func (b *Builder) Build() (*Schema, error) {
	s := &Schema{
		types:      make(map[string]Type),
		children:   make(map[string][]string),
		concluding: make(map[string][]int),
	}

	for _, k := range Kinds() {
		s.types[k.Root()] = Type{Label: k.Root(), Kind: k}
	}

	for _, t := range b.types {
		t.Roles = slices.Clone(t.Roles)
		t.Label = NormalizeLabel(t.Label)
		t.Sup = NormalizeLabel(t.Sup)
		for i, r := range t.Roles {
			t.Roles[i] = NormalizeLabel(r)
		}
		if t.Label == "" {
			return nil, newError(ErrCodeEmptyLabel, "", "type has no label")
		}
		if _, exists := s.types[t.Label]; exists {
			return nil, newError(ErrCodeDuplicateLabel, t.Label, "type %q is defined more than once", t.Label)
		}
		if !t.Kind.Valid() {
			return nil, newError(ErrCodeInvalidKind, t.Label, "invalid kind %q", string(t.Kind))
		}
		if t.Sup == "" {
			t.Sup = t.Kind.Root()
		}
		s.types[t.Label] = t
		s.labels = append(s.labels, t.Label)
	}

	for _, label := range s.labels {
		t := s.types[label]
		sup, ok := s.types[t.Sup]
		if !ok {
			return nil, newError(ErrCodeUnknownType, label, "supertype %q is not defined", t.Sup)
		}
		if sup.Kind != t.Kind {
			return nil, newError(ErrCodeKindMismatch, label, "%s type cannot subtype %s type %q", t.Kind, sup.Kind, sup.Label)
		}
		if err := s.checkAncestry(label); err != nil {
			return nil, err
		}
		s.children[t.Sup] = append(s.children[t.Sup], label)
	}

	seenRules := make(map[string]bool)
	for _, r := range b.rules {
		r = cloneRule(r)
		r.Label = NormalizeLabel(r.Label)
		r.Then = NormalizeLabel(r.Then)
		if r.Label == "" {
			return nil, newError(ErrCodeEmptyLabel, "", "rule has no label")
		}
		if seenRules[r.Label] {
			return nil, newError(ErrCodeDuplicateLabel, r.Label, "rule %q is defined more than once", r.Label)
		}
		seenRules[r.Label] = true
		if r.Then == "" || len(r.When) == 0 {
			return nil, newError(ErrCodeEmptyRule, r.Label, "rule needs a conclusion and at least one positive premise")
		}
		if _, ok := s.types[r.Then]; !ok {
			return nil, newError(ErrCodeUnknownType, r.Label, "conclusion type %q is not defined", r.Then)
		}
		for i, p := range r.When {
			r.When[i] = NormalizeLabel(p)
		}
		for i, p := range r.WhenNot {
			r.WhenNot[i] = NormalizeLabel(p)
		}
		for _, p := range r.Premises() {
			if _, ok := s.types[p]; !ok {
				return nil, newError(ErrCodeUnknownType, r.Label, "premise type %q is not defined", p)
			}
		}
		s.concluding[r.Then] = append(s.concluding[r.Then], len(s.rules))
		s.rules = append(s.rules, r)
	}

	for sup := range s.children {
		slices.Sort(s.children[sup])
	}
	slices.Sort(s.labels)
	s.analyzeRecursion()

	return s, nil
}

// checkAncestry walks the supertype chain of label looking for a cycle.
func (s *Schema) checkAncestry(label string) error {
	seen := map[string]bool{label: true}
	for cur := s.types[label]; !cur.IsRoot(); {
		next, ok := s.types[cur.Sup]
		if !ok {
			return nil // reported when the owning type is checked
		}
		if seen[next.Label] {
			return newError(ErrCodeSupertypeCycle, label, "type %q is its own supertype", label)
		}
		seen[next.Label] = true
		cur = next
	}
	return nil
}

// NormalizeLabel trims whitespace and applies Unicode NFC.
func NormalizeLabel(label string) string {
	return norm.NFC.String(strings.TrimSpace(label))
}
