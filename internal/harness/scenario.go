package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/resplan/internal/atom"
	"github.com/roach88/resplan/internal/ir"
)

// Scenario defines a planning scenario.
// A scenario plans one query against a schema and asserts on the resulting
// atom plan and query plan.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path to the CUE schema file or package.
	// Relative paths are resolved against the scenario file location.
	Schema string `yaml:"schema"`

	// Statistics override per-label counts from the schema file.
	Statistics map[string]int64 `yaml:"statistics,omitempty"`

	// Repeat plans the query this many times; every run must produce the
	// same plans. Zero means once.
	Repeat int `yaml:"repeat,omitempty"`

	// Query is the conjunction to plan, one statement per atom.
	Query []Statement `yaml:"query"`

	// Assertions validate the plans. Completeness and connectivity are
	// always checked.
	Assertions []Assertion `yaml:"assertions"`
}

// Statement is one query atom. Exactly one form is set.
type Statement struct {
	// Name is how assertions refer to the atom. Defaults to the atom's
	// pattern text.
	Name string `yaml:"name,omitempty"`

	Relation *RelationStatement `yaml:"relation,omitempty"`
	Has      *HasStatement      `yaml:"has,omitempty"`
	Isa      *IsaStatement      `yaml:"isa,omitempty"`
	ID       *IDStatement       `yaml:"id,omitempty"`
	Compare  *CompareStatement  `yaml:"compare,omitempty"`
}

// RelationStatement is "$var (role: $player, ...) isa type".
type RelationStatement struct {
	Var     string            `yaml:"var,omitempty"`
	Type    string            `yaml:"type,omitempty"`
	TypeVar string            `yaml:"type_var,omitempty"`
	Players []PlayerStatement `yaml:"players"`
}

// PlayerStatement is one role player of a relation.
type PlayerStatement struct {
	Role string `yaml:"role,omitempty"`
	Var  string `yaml:"var"`
}

// HasStatement is "$owner has type $var" or "$owner has type value".
type HasStatement struct {
	Owner string `yaml:"owner"`
	Type  string `yaml:"type"`
	Var   string `yaml:"var,omitempty"`
	Value any    `yaml:"value,omitempty"`
}

// IsaStatement is "$var isa type", "$var isa! type" or "$var isa $type_var".
type IsaStatement struct {
	Var     string `yaml:"var"`
	Type    string `yaml:"type,omitempty"`
	TypeVar string `yaml:"type_var,omitempty"`
	Direct  bool   `yaml:"direct,omitempty"`
}

// IDStatement is "$var id ID".
type IDStatement struct {
	Var string `yaml:"var"`
	ID  string `yaml:"id"`
}

// CompareStatement is "$left op $right" or "$left op value".
type CompareStatement struct {
	Op    string `yaml:"op"`
	Left  string `yaml:"left"`
	Right string `yaml:"right,omitempty"`
	Value any    `yaml:"value,omitempty"`
}

// Assertion validates the plans.
type Assertion struct {
	// Type specifies the assertion type; see the Assert* constants.
	Type string `yaml:"type"`

	// Atoms lists atom names (atom_plan, first_atom_in, last_atom_in).
	Atoms []string `yaml:"atoms,omitempty"`

	// Atom is a single atom name (first_atom_not, atom_at).
	Atom string `yaml:"atom,omitempty"`

	// Index is a position in the atom plan (atom_at).
	Index int `yaml:"index,omitempty"`

	// Count is a number of sub-queries (query_count, last_queries_resolvable).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertAtomPlan               = "atom_plan"
	AssertFirstAtomIn            = "first_atom_in"
	AssertFirstAtomNot           = "first_atom_not"
	AssertLastAtomIn             = "last_atom_in"
	AssertAtomAt                 = "atom_at"
	AssertFirstAtomNotResolvable = "first_atom_not_resolvable"
	AssertQueryCount             = "query_count"
	AssertFirstQueryHasID        = "first_query_has_id"
	AssertFirstQueryNotAtomic    = "first_query_not_atomic"
	AssertLastQueriesResolvable  = "last_queries_resolvable"
)

// Atom builds the statement's atom.
func (s Statement) Atom() (atom.Atom, error) {
	forms := 0
	for _, set := range []bool{s.Relation != nil, s.Has != nil, s.Isa != nil, s.ID != nil, s.Compare != nil} {
		if set {
			forms++
		}
	}
	if forms != 1 {
		return nil, fmt.Errorf("statement must have exactly one of relation, has, isa, id, compare (got %d)", forms)
	}

	switch {
	case s.Relation != nil:
		r := s.Relation
		players := make([]atom.RolePlayer, len(r.Players))
		for i, p := range r.Players {
			players[i] = atom.RolePlayer{Role: p.Role, Player: p.Var}
		}
		return atom.NewRelation(r.Var, r.Type, r.TypeVar, players...)
	case s.Has != nil:
		h := s.Has
		lit, err := literal(h.Value)
		if err != nil {
			return nil, fmt.Errorf("has %s: %w", h.Type, err)
		}
		return atom.NewAttribute(h.Owner, h.Type, h.Var, lit)
	case s.Isa != nil:
		return atom.NewIsa(s.Isa.Var, s.Isa.Type, s.Isa.TypeVar, s.Isa.Direct)
	case s.ID != nil:
		return atom.NewIDPredicate(s.ID.Var, s.ID.ID)
	default:
		c := s.Compare
		op, err := atom.ParseOperator(c.Op)
		if err != nil {
			return nil, err
		}
		lit, err := literal(c.Value)
		if err != nil {
			return nil, fmt.Errorf("compare %s: %w", c.Left, err)
		}
		return atom.NewComparison(op, c.Left, c.Right, lit)
	}
}

func literal(v any) (ir.IRValue, error) {
	if v == nil {
		return nil, nil
	}
	return ir.FromAny(v)
}

// Atoms builds the scenario's atoms and the name of each, keyed by atom key.
func (s *Scenario) Atoms() ([]atom.Atom, map[string]string, error) {
	atoms := make([]atom.Atom, 0, len(s.Query))
	names := make(map[string]string, len(s.Query))
	for i, st := range s.Query {
		a, err := st.Atom()
		if err != nil {
			return nil, nil, fmt.Errorf("query[%d]: %w", i, err)
		}
		name := st.Name
		if name == "" {
			name = a.String()
		}
		if _, dup := names[a.Key()]; !dup {
			names[a.Key()] = name
		}
		atoms = append(atoms, a)
	}
	return atoms, names, nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The schema path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the schema path BEFORE validation
	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	names := make(map[string]string, len(paths))
	for _, p := range paths {
		sc, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := names[sc.Name]; dup {
			return nil, fmt.Errorf("scenario name %q used by both %s and %s", sc.Name, prev, p)
		}
		names[sc.Name] = p
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema file not found: %s", s.Schema)
	}

	if s.Repeat < 0 {
		return fmt.Errorf("repeat must not be negative, got %d", s.Repeat)
	}

	for label, n := range s.Statistics {
		if n < 0 {
			return fmt.Errorf("statistics[%s]: count must not be negative, got %d", label, n)
		}
	}

	if len(s.Query) == 0 {
		return fmt.Errorf("query list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	_, names, err := s.Atoms()
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	if len(known) != len(names) {
		return fmt.Errorf("statement names must be unique")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, known); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateAssertion(a Assertion, known map[string]bool) error {
	checkNames := func(names ...string) error {
		for _, n := range names {
			if !known[n] {
				return fmt.Errorf("%s: unknown atom %q", a.Type, n)
			}
		}
		return nil
	}

	switch a.Type {
	case AssertAtomPlan, AssertFirstAtomIn, AssertLastAtomIn:
		if len(a.Atoms) == 0 {
			return fmt.Errorf("%s: atoms is required", a.Type)
		}
		return checkNames(a.Atoms...)
	case AssertFirstAtomNot:
		if a.Atom == "" {
			return fmt.Errorf("%s: atom is required", a.Type)
		}
		return checkNames(a.Atom)
	case AssertAtomAt:
		if a.Atom == "" {
			return fmt.Errorf("%s: atom is required", a.Type)
		}
		if a.Index < 0 {
			return fmt.Errorf("%s: index must not be negative", a.Type)
		}
		return checkNames(a.Atom)
	case AssertQueryCount, AssertLastQueriesResolvable:
		if a.Count <= 0 {
			return fmt.Errorf("%s: count must be positive", a.Type)
		}
	case AssertFirstAtomNotResolvable, AssertFirstQueryHasID, AssertFirstQueryNotAtomic:
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
