package planner

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/roach88/resplan/internal/atom"
	"github.com/roach88/resplan/internal/priority"
	"github.com/roach88/resplan/internal/query"
)

// Planner produces atom plans.
type Planner struct {
	logger *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger for planning decisions.
//
// Default: a logger that discards everything.
// Decisions are logged at debug level, invariant violations at error level.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Planner.
func New(opts ...Option) *Planner {
	p := &Planner{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultPlanner = New()

// Plan orders q with a default planner.
func Plan(q *query.Query) (*AtomPlan, error) {
	return defaultPlanner.Plan(q)
}

// Plan orders the selectable atoms of q.
//
// The algorithm:
//  1. Start a component with the best remaining atom, ranked against the
//     variables bound so far; ties go to the atom with more neighbours,
//     then to the earlier declared atom
//  2. Repeatedly append the best remaining atom sharing a variable with the
//     plan, re-ranked against the grown bound set; ties go to the earlier
//     declared atom
//  3. When no remaining atom shares a variable, go to 1
//
// An empty query yields an empty plan.
func (p *Planner) Plan(q *query.Query) (*AtomPlan, error) {
	remaining := q.Selectable()
	plan := &AtomPlan{query: q}

	var bound atom.VarSet
	var component []*query.Atom
	for len(remaining) > 0 {
		var pick int
		if len(component) == 0 {
			pick = p.bestStart(remaining, bound)
		} else {
			pick = p.bestConnected(remaining, bound)
		}

		if pick < 0 {
			plan.components = append(plan.components, component)
			component = nil
			p.logger.Debug("component complete, starting a new one",
				"planned", len(plan.atoms),
				"remaining", len(remaining),
			)
			continue
		}

		next := remaining[pick]
		remaining = slices.Delete(remaining, pick, pick+1)
		p.logger.Debug("atom planned",
			"position", len(plan.atoms),
			"atom", next.String(),
			"priority", priority.Compute(next, bound).String(),
		)
		plan.atoms = append(plan.atoms, next)
		component = append(component, next)
		bound = bound.Union(next.Vars())
	}
	if len(component) > 0 {
		plan.components = append(plan.components, component)
	}

	if err := p.check(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// bestStart picks the index of the best component start.
func (p *Planner) bestStart(candidates []*query.Atom, bound atom.VarSet) int {
	best := -1
	var bestPrio priority.Priority
	for i, a := range candidates {
		prio := priority.Compute(a, bound)
		if best < 0 {
			best, bestPrio = i, prio
			continue
		}
		c := priority.Compare(prio, bestPrio)
		if c < 0 || (c == 0 && startTieBreak(a, candidates[best])) {
			best, bestPrio = i, prio
		}
	}
	return best
}

func startTieBreak(a, incumbent *query.Atom) bool {
	if a.Degree() != incumbent.Degree() {
		return a.Degree() > incumbent.Degree()
	}
	return a.Index() < incumbent.Index()
}

// bestConnected picks the index of the best candidate sharing a variable
// with bound, or -1 when there is none.
func (p *Planner) bestConnected(candidates []*query.Atom, bound atom.VarSet) int {
	best := -1
	var bestPrio priority.Priority
	for i, a := range candidates {
		if !a.Vars().Intersects(bound) {
			continue
		}
		prio := priority.Compute(a, bound)
		if best < 0 {
			best, bestPrio = i, prio
			continue
		}
		c := priority.Compare(prio, bestPrio)
		if c < 0 || (c == 0 && a.Index() < candidates[best].Index()) {
			best, bestPrio = i, prio
		}
	}
	return best
}

func (p *Planner) check(plan *AtomPlan) error {
	err := CheckComplete(plan.query, plan.atoms)
	if err == nil {
		components := componentIndex(plan.query)
		err = CheckConnected(plan.atoms,
			(*query.Atom).Vars,
			func(a *query.Atom) int { return components[a] },
		)
	}
	if err != nil {
		var ie *InvariantError
		if errors.As(err, &ie) {
			ie.Plan = plan.String()
		}
		p.logger.Error("atom plan invariant violated",
			"error", err,
			"query", plan.query.String(),
		)
		return err
	}
	return nil
}
