package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/resplan/internal/atom"
	"github.com/roach88/resplan/internal/schema"
)

// Query is a conjunction of atoms over a schema snapshot.
type Query struct {
	snap       *schema.Snapshot
	atoms      []atom.Atom // selectable patterns first in sub-queries, declaration order otherwise
	selectable []*Atom
	attached   []atom.Atom
	vars       atom.VarSet
}

// New builds a query from atoms.
//
// Every atom must mention at least one variable. Atoms with equal keys are
// collapsed to their first occurrence. Type
// labels are checked against the snapshot's schema. An empty atom list
// yields an empty query.
//
// Classification:
//   - Relation and Attribute atoms are selectable
//   - Isa atoms are selectable when ontological, rule-resolvable, or when no
//     relation or attribute covers their variable; otherwise they are guards
//   - IDPredicate and Comparison atoms are attached, unless one of their
//     variables is not covered by a selectable atom, in which case they are
//     selectable so no variable is left unplanned
func New(snap *schema.Snapshot, atoms ...atom.Atom) (*Query, error) {
	if snap == nil || snap.Schema == nil {
		return nil, &Error{Code: ErrCodeNilSnapshot, Message: "query requires a schema snapshot"}
	}

	deduped := make([]atom.Atom, 0, len(atoms))
	seen := make(map[string]bool, len(atoms))
	for i, a := range atoms {
		if a == nil {
			return nil, &Error{Code: ErrCodeNilAtom, Message: fmt.Sprintf("atom %d is nil", i)}
		}
		if a.Vars().Empty() {
			return nil, &Error{Code: ErrCodeEmptyVars, Message: fmt.Sprintf("atom %d has no variables", i), Atom: a.String()}
		}
		if seen[a.Key()] {
			continue
		}
		seen[a.Key()] = true
		if err := validateAtom(snap.Schema, a); err != nil {
			return nil, err
		}
		deduped = append(deduped, a)
	}

	q := &Query{snap: snap, atoms: deduped}

	var covered atom.VarSet
	for _, a := range deduped {
		switch a.(type) {
		case atom.Relation, atom.Attribute:
			covered = covered.Union(a.Vars())
		}
	}

	facts := collectFacts(deduped)
	isSelectable := make([]bool, len(deduped))
	var selectedVars atom.VarSet
	for i, a := range deduped {
		switch at := a.(type) {
		case atom.Relation, atom.Attribute:
			isSelectable[i] = true
		case atom.Isa:
			isSelectable[i] = at.TypeVar != "" ||
				snap.Schema.IsResolvable(at.Type) ||
				!covered.Contains(at.Var)
		}
		if isSelectable[i] {
			selectedVars = selectedVars.Union(a.Vars())
		}
	}
	for i, a := range deduped {
		switch a.(type) {
		case atom.IDPredicate, atom.Comparison:
			isSelectable[i] = !a.Vars().SubsetOf(selectedVars)
		}
	}

	for i, a := range deduped {
		q.vars = q.vars.Union(a.Vars())
		if isSelectable[i] {
			q.selectable = append(q.selectable, annotate(snap, a, i, facts))
		} else {
			q.attached = append(q.attached, a)
		}
	}

	for _, a := range q.selectable {
		for _, o := range q.selectable {
			if a != o && a.vars.Intersects(o.vars) {
				a.degree++
			}
		}
	}

	return q, nil
}

func validateAtom(s *schema.Schema, a atom.Atom) error {
	switch at := a.(type) {
	case atom.Relation:
		if at.Type == "" {
			return nil
		}
		if err := expectKind(s, a, at.Type, schema.KindRelation); err != nil {
			return err
		}
		declared := s.Roles(at.Type)
		if len(declared) == 0 {
			return nil
		}
		for _, p := range at.Players {
			if p.Role != "" && !slices.Contains(declared, schema.NormalizeLabel(p.Role)) {
				return &Error{
					Code:    ErrCodeUnknownRole,
					Message: fmt.Sprintf("relation type %q has no role %q", at.Type, p.Role),
					Atom:    a.String(),
				}
			}
		}
	case atom.Attribute:
		return expectKind(s, a, at.Type, schema.KindAttribute)
	case atom.Isa:
		if at.Type != "" && !s.Has(at.Type) {
			return unknownType(a, at.Type)
		}
	}
	return nil
}

func expectKind(s *schema.Schema, a atom.Atom, label string, want schema.Kind) error {
	kind, ok := s.Kind(label)
	if !ok {
		return unknownType(a, label)
	}
	if kind != want {
		return &Error{
			Code:    ErrCodeKindMismatch,
			Message: fmt.Sprintf("%q is a %s type, expected %s", label, kind, want),
			Atom:    a.String(),
		}
	}
	return nil
}

func unknownType(a atom.Atom, label string) error {
	return &Error{
		Code:    ErrCodeUnknownType,
		Message: fmt.Sprintf("type %q is not defined", label),
		Atom:    a.String(),
	}
}

// Snapshot returns the snapshot the query was built against.
func (q *Query) Snapshot() *schema.Snapshot { return q.snap }

// Atoms returns every atom of the query, deduplicated.
func (q *Query) Atoms() []atom.Atom { return slices.Clone(q.atoms) }

// Selectable returns the atoms the planner orders, in declaration order.
func (q *Query) Selectable() []*Atom { return slices.Clone(q.selectable) }

// Attached returns the atoms carried along with the selectable atoms.
func (q *Query) Attached() []atom.Atom { return slices.Clone(q.attached) }

// Vars returns the union of all atom variables.
func (q *Query) Vars() atom.VarSet { return q.vars }

// Len returns the number of atoms, selectable and attached.
func (q *Query) Len() int { return len(q.atoms) }

// IsAtomic reports whether the query has exactly one selectable atom.
func (q *Query) IsAtomic() bool { return len(q.selectable) == 1 }

// IsRuleResolvable reports whether any selectable atom is.
func (q *Query) IsRuleResolvable() bool {
	return slices.ContainsFunc(q.selectable, (*Atom).IsRuleResolvable)
}

// RequiresSchema reports whether any selectable atom is ontological.
func (q *Query) RequiresSchema() bool {
	return slices.ContainsFunc(q.selectable, (*Atom).IsOntological)
}

// HasIDPredicate reports whether the query contains an id predicate.
func (q *Query) HasIDPredicate() bool {
	return slices.ContainsFunc(q.atoms, func(a atom.Atom) bool {
		_, ok := a.(atom.IDPredicate)
		return ok
	})
}

// Components returns the connected components of the selectable atoms.
// Atoms within a component keep declaration order; components are ordered
// by their first atom.
func (q *Query) Components() [][]*Atom {
	return ConnectedComponents(q.selectable)
}

// ConnectedComponents groups atoms connected through shared variables.
// Input order is preserved within and across components.
func ConnectedComponents(atoms []*Atom) [][]*Atom {
	parent := make([]int, len(atoms))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	for i := range atoms {
		for j := i + 1; j < len(atoms); j++ {
			if atoms[i].vars.Intersects(atoms[j].vars) {
				ri, rj := find(i), find(j)
				if ri != rj {
					parent[max(ri, rj)] = min(ri, rj)
				}
			}
		}
	}

	var components [][]*Atom
	slot := make(map[int]int)
	for i, a := range atoms {
		root := find(i)
		n, ok := slot[root]
		if !ok {
			n = len(components)
			slot[root] = n
			components = append(components, nil)
		}
		components[n] = append(components[n], a)
	}
	return components
}

// Sub builds the sub-conjunction of the given selectable atoms, in the
// given order, carrying the given attached atoms. Annotations are shared
// with the parent query.
func (q *Query) Sub(selected []*Atom, attached []atom.Atom) *Query {
	sub := &Query{
		snap:       q.snap,
		selectable: slices.Clone(selected),
		attached:   slices.Clone(attached),
		atoms:      make([]atom.Atom, 0, len(selected)+len(attached)),
	}
	for _, a := range selected {
		sub.atoms = append(sub.atoms, a.pattern)
		sub.vars = sub.vars.Union(a.vars)
	}
	for _, a := range attached {
		sub.atoms = append(sub.atoms, a)
		sub.vars = sub.vars.Union(a.Vars())
	}
	return sub
}

// String renders the atoms as a pattern block: "{a; b;}".
func (q *Query) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, a := range q.atoms {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(a.String())
		sb.WriteString(";")
	}
	sb.WriteString("}")
	return sb.String()
}
