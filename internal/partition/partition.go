package partition

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/resplan/internal/atom"
	"github.com/roach88/resplan/internal/ir"
	"github.com/roach88/resplan/internal/planner"
	"github.com/roach88/resplan/internal/query"
)

// Partitioner produces query plans.
type Partitioner struct {
	logger *slog.Logger
	refine bool
}

// Option configures a Partitioner.
type Option func(*Partitioner)

// WithLogger sets the logger for partitioning decisions.
//
// Default: a logger that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(p *Partitioner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithoutRefine keeps sub-queries in atom plan order.
func WithoutRefine() Option {
	return func(p *Partitioner) {
		p.refine = false
	}
}

// New creates a Partitioner.
func New(opts ...Option) *Partitioner {
	p := &Partitioner{
		logger: slog.New(slog.DiscardHandler),
		refine: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultPartitioner = New()

// Partition partitions plan with a default partitioner.
func Partition(plan *planner.AtomPlan) (*QueryPlan, error) {
	return defaultPartitioner.Partition(plan)
}

// group is a run of planned atoms that becomes one sub-query.
type group struct {
	atoms     []*query.Atom
	vars      atom.VarSet
	component int
	order     int // position after splitting
}

func (g *group) add(a *query.Atom) {
	g.atoms = append(g.atoms, a)
	g.vars = g.vars.Union(a.Vars())
}

func (g *group) resolvable() bool {
	return slices.ContainsFunc(g.atoms, (*query.Atom).IsRuleResolvable)
}

func (g *group) atomic() bool { return len(g.atoms) == 1 }

// anchored reports whether the group starts from an id or a fixed value.
func (g *group) anchored() bool {
	return slices.ContainsFunc(g.atoms, func(a *query.Atom) bool {
		return a.HasIDPredicate() || a.Specificity() == query.Specific
	})
}

// Partition splits the atom plan into sub-queries.
//
// The algorithm:
//  1. Split: consecutive non-resolvable atoms of one component that share
//     variables form a group; every rule-resolvable atom is its own group
//  2. Refine: unless disabled, the query needs the schema, or every group
//     is atomic, reorder the groups greedily. A component starts with its
//     first non-resolvable group anchored by an id or a specific value, else
//     its first group. Next comes a group sharing a variable with those
//     placed, preferring non-resolvable, then non-atomic, then split order
//  3. Merge adjacent non-resolvable groups that share a variable
//  4. Attach each non-selectable atom to the first sub-query by which all
//     of its variables are bound
//  5. Check completeness and connectivity of the result
func (p *Partitioner) Partition(plan *planner.AtomPlan) (*QueryPlan, error) {
	q := plan.Query()

	groups := split(plan)
	p.logger.Debug("atom plan split", "groups", len(groups))

	switch {
	case !p.refine:
	case q.RequiresSchema():
		p.logger.Debug("refinement skipped: query requires schema")
	case !slices.ContainsFunc(groups, func(g *group) bool { return !g.atomic() }):
		p.logger.Debug("refinement skipped: all sub-queries atomic")
	default:
		groups = p.refineOrder(groups)
	}

	groups = merge(groups)

	attached := make([][]atom.Atom, len(groups))
	var bound atom.VarSet
	pending := q.Attached()
	for i, g := range groups {
		bound = bound.Union(g.vars)
		pending = slices.DeleteFunc(pending, func(a atom.Atom) bool {
			if a.Vars().SubsetOf(bound) {
				attached[i] = append(attached[i], a)
				return true
			}
			return false
		})
	}
	if len(pending) > 0 {
		return nil, p.fail(plan, &planner.InvariantError{
			Code:    planner.ErrCodeIncompletePlan,
			Message: fmt.Sprintf("atom %s could not be attached to any sub-query", pending[0]),
		})
	}

	qp := &QueryPlan{atomPlan: plan}
	for i, g := range groups {
		qp.queries = append(qp.queries, q.Sub(g.atoms, attached[i]))
		qp.components = append(qp.components, g.component)
	}

	if err := p.check(qp); err != nil {
		return nil, p.fail(plan, err)
	}
	return qp, nil
}

func split(plan *planner.AtomPlan) []*group {
	var groups []*group
	for ci, component := range plan.Components() {
		var current *group
		flush := func() {
			if current != nil {
				current.order = len(groups)
				groups = append(groups, current)
				current = nil
			}
		}
		for _, a := range component {
			if a.IsRuleResolvable() {
				flush()
				current = &group{component: ci}
				current.add(a)
				flush()
				continue
			}
			if current != nil && !current.vars.Intersects(a.Vars()) {
				flush()
			}
			if current == nil {
				current = &group{component: ci}
			}
			current.add(a)
		}
		flush()
	}
	return groups
}

func (p *Partitioner) refineOrder(groups []*group) []*group {
	remaining := slices.Clone(groups)
	ordered := make([]*group, 0, len(groups))

	var placed atom.VarSet
	for len(remaining) > 0 {
		pick := connectedPick(remaining, placed)
		if pick < 0 {
			pick = startPick(remaining)
			placed = atom.VarSet{}
			p.logger.Debug("sub-query component started", "group", remaining[pick].order)
		}
		g := remaining[pick]
		remaining = slices.Delete(remaining, pick, pick+1)
		ordered = append(ordered, g)
		placed = placed.Union(g.vars)
	}
	return ordered
}

// startPick returns the first anchored non-resolvable group, else the first
// group, in split order.
func startPick(groups []*group) int {
	for i, g := range groups {
		if !g.resolvable() && g.anchored() {
			return i
		}
	}
	return 0
}

// connectedPick returns the preferred group sharing a variable with placed,
// or -1.
func connectedPick(groups []*group, placed atom.VarSet) int {
	best := -1
	for i, g := range groups {
		if !g.vars.Intersects(placed) {
			continue
		}
		if best < 0 || preferGroup(g, groups[best]) {
			best = i
		}
	}
	return best
}

func preferGroup(g, incumbent *group) bool {
	if g.resolvable() != incumbent.resolvable() {
		return !g.resolvable()
	}
	if g.atomic() != incumbent.atomic() {
		return !g.atomic()
	}
	return g.order < incumbent.order
}

func merge(groups []*group) []*group {
	var out []*group
	for _, g := range groups {
		if n := len(out); n > 0 {
			last := out[n-1]
			if !last.resolvable() && !g.resolvable() && last.vars.Intersects(g.vars) {
				merged := &group{component: last.component, order: last.order}
				for _, a := range last.atoms {
					merged.add(a)
				}
				for _, a := range g.atoms {
					merged.add(a)
				}
				out[n-1] = merged
				continue
			}
		}
		out = append(out, g)
	}
	return out
}

func (p *Partitioner) check(qp *QueryPlan) error {
	q := qp.atomPlan.Query()

	var selected []*query.Atom
	var attached []atom.Atom
	for _, sub := range qp.queries {
		selected = append(selected, sub.Selectable()...)
		attached = append(attached, sub.Attached()...)
	}
	if err := planner.CheckComplete(q, selected); err != nil {
		return err
	}
	want := q.Attached()
	if len(want) != len(attached) {
		return &planner.InvariantError{
			Code:    planner.ErrCodeIncompletePlan,
			Message: fmt.Sprintf("query has %d attached atoms, plan carries %d", len(want), len(attached)),
		}
	}
	for _, a := range want {
		if !slices.ContainsFunc(attached, func(b atom.Atom) bool { return b.Key() == a.Key() }) {
			return &planner.InvariantError{
				Code:    planner.ErrCodeIncompletePlan,
				Message: fmt.Sprintf("attached atom %s is missing from the plan", a),
			}
		}
	}

	idx := make(map[*query.Query]int, len(qp.queries))
	for i, sub := range qp.queries {
		idx[sub] = qp.components[i]
	}
	return planner.CheckConnected(qp.queries,
		(*query.Query).Vars,
		func(sub *query.Query) int { return idx[sub] },
	)
}

func (p *Partitioner) fail(plan *planner.AtomPlan, err error) error {
	var ie *planner.InvariantError
	if errors.As(err, &ie) && ie.Plan == "" {
		ie.Plan = plan.String()
	}
	p.logger.Error("query plan invariant violated",
		"error", err,
		"query", plan.Query().String(),
	)
	return err
}

// QueryPlan is an ordered list of sub-queries covering a query.
type QueryPlan struct {
	atomPlan   *planner.AtomPlan
	queries    []*query.Query
	components []int
}

// Queries returns the sub-queries in resolution order.
func (qp *QueryPlan) Queries() []*query.Query { return slices.Clone(qp.queries) }

// Len returns the number of sub-queries.
func (qp *QueryPlan) Len() int { return len(qp.queries) }

// AtomPlan returns the atom plan the query plan was derived from.
func (qp *QueryPlan) AtomPlan() *planner.AtomPlan { return qp.atomPlan }

// Keys returns the atom keys of each sub-query.
func (qp *QueryPlan) Keys() [][]string {
	out := make([][]string, len(qp.queries))
	for i, sub := range qp.queries {
		keys := make([]string, 0, sub.Len())
		for _, a := range sub.Atoms() {
			keys = append(keys, a.Key())
		}
		out[i] = keys
	}
	return out
}

// Fingerprint returns a stable hash of the sub-query order and contents.
func (qp *QueryPlan) Fingerprint() (string, error) {
	keys := qp.Keys()
	v := make([]any, len(keys))
	for i, k := range keys {
		sub := make([]any, len(k))
		for j, s := range k {
			sub[j] = s
		}
		v[i] = sub
	}
	return ir.Fingerprint(ir.DomainQueryPlan, v)
}

// String renders one sub-query per line. Inferred sub-queries are marked.
func (qp *QueryPlan) String() string {
	var sb strings.Builder
	for i, sub := range qp.queries {
		fmt.Fprintf(&sb, "%d. %s", i, sub)
		if sub.IsRuleResolvable() {
			sb.WriteString(" [inferred]")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
