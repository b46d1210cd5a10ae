package planner

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/resplan/internal/ir"
	"github.com/roach88/resplan/internal/query"
)

// AtomPlan is an ordering of the selectable atoms of a query.
// It is immutable once returned by Plan.
type AtomPlan struct {
	query      *query.Query
	atoms      []*query.Atom
	components [][]*query.Atom
}

// Atoms returns the planned atoms in resolution order.
func (p *AtomPlan) Atoms() []*query.Atom { return slices.Clone(p.atoms) }

// Components returns the plan split at component boundaries. Each entry is
// a connected run of the plan, in plan order.
func (p *AtomPlan) Components() [][]*query.Atom {
	out := make([][]*query.Atom, len(p.components))
	for i, c := range p.components {
		out[i] = slices.Clone(c)
	}
	return out
}

// Query returns the planned query.
func (p *AtomPlan) Query() *query.Query { return p.query }

// Len returns the number of planned atoms.
func (p *AtomPlan) Len() int { return len(p.atoms) }

// Keys returns the structural keys of the planned atoms, in order.
func (p *AtomPlan) Keys() []string {
	keys := make([]string, len(p.atoms))
	for i, a := range p.atoms {
		keys[i] = a.Key()
	}
	return keys
}

// Fingerprint returns a stable hash of the atom order.
// Equal queries planned over equal snapshots have equal fingerprints.
func (p *AtomPlan) Fingerprint() (string, error) {
	return ir.Fingerprint(ir.DomainAtomPlan, p.Keys())
}

// String renders one atom per line, prefixed by its position; a blank
// line separates components.
func (p *AtomPlan) String() string {
	var sb strings.Builder
	n := 0
	for ci, c := range p.components {
		if ci > 0 {
			sb.WriteString("\n")
		}
		for _, a := range c {
			fmt.Fprintf(&sb, "%d. %s\n", n, a)
			n++
		}
	}
	return sb.String()
}
