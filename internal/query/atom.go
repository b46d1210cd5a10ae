package query

import (
	"fmt"

	"github.com/roach88/resplan/internal/atom"
	"github.com/roach88/resplan/internal/schema"
)

// Specificity grades how narrowly an atom's values are fixed.
type Specificity int

const (
	// Unspecific: an attribute whose value is a free variable or absent.
	Unspecific Specificity = iota
	// Neutral: everything that is neither specific nor unspecific.
	Neutral
	// Specific: an attribute with a literal value, or an atom with a
	// variable pinned to a literal by an equality predicate.
	Specific
)

func (s Specificity) String() string {
	switch s {
	case Unspecific:
		return "unspecific"
	case Neutral:
		return "neutral"
	case Specific:
		return "specific"
	}
	return fmt.Sprintf("specificity(%d)", int(s))
}

// Atom is a selectable atom annotated against its query and snapshot.
//
// Annotations are fixed at construction. Degree counts neighbours in the
// query the atom was built for; sub-queries reuse the parent's annotations.
type Atom struct {
	pattern      atom.Atom
	index        int
	vars         atom.VarSet
	resolvable   bool
	recursive    bool
	ontological  bool
	idCount      int
	specificity  Specificity
	typeEstimate int64
	degree       int
}

// Pattern returns the underlying atom.
func (a *Atom) Pattern() atom.Atom { return a.pattern }

// Index returns the declaration position of the atom in its query.
func (a *Atom) Index() int { return a.index }

// Vars returns the atom's variables.
func (a *Atom) Vars() atom.VarSet { return a.vars }

// Key returns the structural identity of the underlying atom.
func (a *Atom) Key() string { return a.pattern.Key() }

// IsRuleResolvable reports whether answers may be inferred by rules.
func (a *Atom) IsRuleResolvable() bool { return a.resolvable }

// IsRecursive reports whether the atom's type sits on a rule cycle.
func (a *Atom) IsRecursive() bool { return a.recursive }

// IsOntological reports whether the atom ranges over schema types rather
// than instances.
func (a *Atom) IsOntological() bool { return a.ontological }

// IDCount returns how many of the atom's variables are pinned by an id
// predicate in the query.
func (a *Atom) IDCount() int { return a.idCount }

// HasIDPredicate reports whether any variable of the atom is pinned by id.
func (a *Atom) HasIDPredicate() bool { return a.idCount > 0 }

// Specificity returns how narrowly the atom's values are fixed.
func (a *Atom) Specificity() Specificity { return a.specificity }

// TypeEstimate returns the estimated number of instances matching the
// atom's type, ignoring bindings.
func (a *Atom) TypeEstimate() int64 { return a.typeEstimate }

// EstimateCount estimates the answers of the atom given the variables
// already bound by earlier atoms. An atom anchored by an id, or whose
// variables are all bound, acts as a lookup and estimates to 1.
func (a *Atom) EstimateCount(bound atom.VarSet) int64 {
	if a.idCount > 0 || a.vars.SubsetOf(bound) {
		return 1
	}
	return a.typeEstimate
}

// Degree returns the number of other selectable atoms sharing a variable
// with this one.
func (a *Atom) Degree() int { return a.degree }

func (a *Atom) String() string { return a.pattern.String() }

// queryFacts are the query-wide facts atom annotation depends on.
type queryFacts struct {
	idVars     atom.VarSet // variables pinned by an id predicate
	pinnedVars atom.VarSet // variables pinned by == literal
	typeVars   atom.VarSet // variables used in type position
}

func collectFacts(atoms []atom.Atom) queryFacts {
	var ids, pinned, typeVars []string
	for _, a := range atoms {
		switch at := a.(type) {
		case atom.IDPredicate:
			ids = append(ids, at.Var)
		case atom.Comparison:
			if at.PinsValue() {
				pinned = append(pinned, at.Left)
			}
		}
		if tv := atom.TypeVarOf(a); tv != "" {
			typeVars = append(typeVars, tv)
		}
	}
	return queryFacts{
		idVars:     atom.NewVarSet(ids...),
		pinnedVars: atom.NewVarSet(pinned...),
		typeVars:   atom.NewVarSet(typeVars...),
	}
}

// annotate computes every annotation except degree.
func annotate(snap *schema.Snapshot, a atom.Atom, index int, facts queryFacts) *Atom {
	vars := a.Vars()
	qa := &Atom{
		pattern:     a,
		index:       index,
		vars:        vars,
		idCount:     vars.Intersection(facts.idVars).Len(),
		ontological: atom.TypeVarOf(a) != "" || vars.Intersects(facts.typeVars),
	}
	qa.specificity = specificityOf(a, vars, facts)
	qa.resolvable, qa.recursive = resolvabilityOf(snap.Schema, a)
	qa.typeEstimate = typeEstimateOf(snap, a, qa)
	return qa
}

func specificityOf(a atom.Atom, vars atom.VarSet, facts queryFacts) Specificity {
	if vars.Intersects(facts.pinnedVars) {
		return Specific
	}
	switch at := a.(type) {
	case atom.Attribute:
		if at.HasLiteral() {
			return Specific
		}
		return Unspecific
	case atom.Comparison:
		if at.PinsValue() {
			return Specific
		}
	}
	return Neutral
}

// typeLabelOf returns the label whose instances the atom ranges over.
// Untyped relations range over the relation root.
func typeLabelOf(a atom.Atom) string {
	if r, ok := a.(atom.Relation); ok && r.Type == "" && r.TypeVar == "" {
		return schema.KindRelation.Root()
	}
	return atom.TypeOf(a)
}

func resolvabilityOf(s *schema.Schema, a atom.Atom) (resolvable, recursive bool) {
	switch a.(type) {
	case atom.IDPredicate, atom.Comparison:
		return false, false
	}
	if atom.TypeVarOf(a) != "" {
		return s.HasRules(), len(s.RecursionWarnings()) > 0
	}
	label := typeLabelOf(a)
	return s.IsResolvable(label), s.IsRecursive(label)
}

func typeEstimateOf(snap *schema.Snapshot, a atom.Atom, qa *Atom) int64 {
	if qa.ontological {
		return snap.TotalCount()
	}
	switch at := a.(type) {
	case atom.IDPredicate:
		return 1
	case atom.Comparison:
		if at.PinsValue() {
			return 1
		}
		return snap.InstanceCount(schema.KindAttribute.Root())
	case atom.Attribute:
		if qa.resolvable {
			return snap.EstimateResolvableTypeCount(at.Type)
		}
		if n, ok := ownershipCount(snap, at.Type); ok {
			return n
		}
		return snap.InstanceCount(at.Type)
	}
	label := typeLabelOf(a)
	if qa.resolvable {
		return snap.EstimateResolvableTypeCount(label)
	}
	return snap.InstanceCount(label)
}

// ownershipCount sums the recorded @has- counts of the attribute type and
// its subtypes; ok is false when none was recorded.
func ownershipCount(snap *schema.Snapshot, attr string) (int64, bool) {
	var total int64
	found := false
	for _, sub := range snap.Schema.Subs(attr) {
		if n, ok := snap.Statistics.Lookup(schema.ImplicitHasLabel(sub)); ok {
			total += n
			found = true
		}
	}
	return total, found
}
