package atom

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/resplan/internal/ir"
)

// Atom is one elementary constraint of a conjunctive query.
//
// This is a sealed interface - only types in this package implement it.
//
// Atom types:
//   - Relation: ($r) (role: $x, ...) isa <type>
//   - Attribute: $x has <type> $v | <literal>
//   - Isa: $x isa <type> | $x isa $t
//   - IDPredicate: $x id <id>
//   - Comparison: $x <op> $y | <literal>
type Atom interface {
	// Vars returns the variables the atom constrains. Never empty for an
	// atom built by one of the New* constructors.
	Vars() VarSet

	// Key returns the structural identity of the atom. Two atoms with the
	// same key constrain the same variables in the same way.
	Key() string

	String() string

	atomNode() // Marker method - seals interface to this package
}

// RolePlayer binds a variable to a role of a relation.
// An empty Role means the role is left unspecified.
type RolePlayer struct {
	Role   string
	Player string
}

func (rp RolePlayer) String() string {
	if rp.Role == "" {
		return "$" + rp.Player
	}
	return rp.Role + ": $" + rp.Player
}

// Relation is a relation pattern.
//
// Var names the relation instance and may be empty. Exactly one of Type and
// TypeVar is normally set; when both are empty the pattern matches any
// relation (the root relation type).
type Relation struct {
	Var     string
	Type    string
	TypeVar string
	Players []RolePlayer
}

func (Relation) atomNode() {}

// NewRelation validates and builds a relation atom.
func NewRelation(v, typ, typeVar string, players ...RolePlayer) (Relation, error) {
	r := Relation{
		Var:     normalizeVar(v),
		Type:    strings.TrimSpace(typ),
		TypeVar: normalizeVar(typeVar),
		Players: make([]RolePlayer, 0, len(players)),
	}
	for _, p := range players {
		player := normalizeVar(p.Player)
		if player == "" {
			return Relation{}, newError(ErrCodeEmptyVars, "relation %q: role player %q has no variable", typ, p.Role)
		}
		r.Players = append(r.Players, RolePlayer{Role: strings.TrimSpace(p.Role), Player: player})
	}
	if len(r.Players) == 0 {
		return Relation{}, newError(ErrCodeEmptyVars, "relation %q has no role players", typ)
	}
	if r.Type != "" && r.TypeVar != "" {
		return Relation{}, newError(ErrCodeAmbiguousOperand, "relation has both type %q and type variable $%s", r.Type, r.TypeVar)
	}
	return r, nil
}

// Vars returns the relation variable, the type variable and every player.
func (r Relation) Vars() VarSet {
	names := make([]string, 0, len(r.Players)+2)
	names = append(names, r.Var, r.TypeVar)
	for _, p := range r.Players {
		names = append(names, p.Player)
	}
	return NewVarSet(names...)
}

// Key sorts role players so that declaration order does not matter.
func (r Relation) Key() string {
	players := make([]string, len(r.Players))
	for i, p := range r.Players {
		players[i] = p.Role + "=" + p.Player
	}
	slices.Sort(players)
	return fmt.Sprintf("rel|%s|%s|%s|%s", r.Var, r.Type, r.TypeVar, strings.Join(players, ","))
}

func (r Relation) String() string {
	var sb strings.Builder
	if r.Var != "" {
		sb.WriteString("$" + r.Var + " ")
	}
	players := make([]string, len(r.Players))
	for i, p := range r.Players {
		players[i] = p.String()
	}
	sb.WriteString("(" + strings.Join(players, ", ") + ")")
	switch {
	case r.TypeVar != "":
		sb.WriteString(" isa $" + r.TypeVar)
	case r.Type != "":
		sb.WriteString(" isa " + r.Type)
	}
	return sb.String()
}

// Attribute is an attribute ownership pattern.
//
// At most one of Value and Literal is set. With neither set the pattern
// only requires the owner to have some attribute of the type.
type Attribute struct {
	Owner   string
	Type    string
	Value   string
	Literal ir.IRValue
}

func (Attribute) atomNode() {}

// NewAttribute validates and builds an attribute atom.
func NewAttribute(owner, typ, value string, literal ir.IRValue) (Attribute, error) {
	a := Attribute{
		Owner:   normalizeVar(owner),
		Type:    strings.TrimSpace(typ),
		Value:   normalizeVar(value),
		Literal: literal,
	}
	if a.Owner == "" {
		return Attribute{}, newError(ErrCodeEmptyVars, "attribute %q has no owner variable", typ)
	}
	if a.Type == "" {
		return Attribute{}, newError(ErrCodeMissingType, "attribute of $%s has no type", a.Owner)
	}
	if a.Value != "" && a.Literal != nil {
		return Attribute{}, newError(ErrCodeAmbiguousOperand, "attribute %q has both value variable and literal", a.Type)
	}
	return a, nil
}

// HasLiteral reports whether the attribute value is a fixed literal.
func (a Attribute) HasLiteral() bool { return a.Literal != nil }

// Vars returns the owner and, if present, the value variable.
func (a Attribute) Vars() VarSet { return NewVarSet(a.Owner, a.Value) }

func (a Attribute) Key() string {
	lit := ""
	if a.Literal != nil {
		lit = ir.Format(a.Literal)
	}
	return fmt.Sprintf("has|%s|%s|%s|%s", a.Owner, a.Type, a.Value, lit)
}

func (a Attribute) String() string {
	s := "$" + a.Owner + " has " + a.Type
	switch {
	case a.Literal != nil:
		s += " " + ir.Format(a.Literal)
	case a.Value != "":
		s += " $" + a.Value
	}
	return s
}

// Isa constrains the type of a variable. Direct excludes subtypes (isa!).
// A TypeVar makes the atom ontological: it ranges over schema types.
type Isa struct {
	Var     string
	Type    string
	TypeVar string
	Direct  bool
}

func (Isa) atomNode() {}

// NewIsa validates and builds a type constraint.
func NewIsa(v, typ, typeVar string, direct bool) (Isa, error) {
	i := Isa{
		Var:     normalizeVar(v),
		Type:    strings.TrimSpace(typ),
		TypeVar: normalizeVar(typeVar),
		Direct:  direct,
	}
	if i.Var == "" {
		return Isa{}, newError(ErrCodeEmptyVars, "isa %q has no variable", typ)
	}
	if i.Type == "" && i.TypeVar == "" {
		return Isa{}, newError(ErrCodeMissingType, "isa of $%s has no type", i.Var)
	}
	if i.Type != "" && i.TypeVar != "" {
		return Isa{}, newError(ErrCodeAmbiguousOperand, "isa of $%s has both type and type variable", i.Var)
	}
	return i, nil
}

func (i Isa) Vars() VarSet { return NewVarSet(i.Var, i.TypeVar) }

func (i Isa) Key() string {
	return fmt.Sprintf("isa|%s|%s|%s|%t", i.Var, i.Type, i.TypeVar, i.Direct)
}

func (i Isa) String() string {
	kw := " isa "
	if i.Direct {
		kw = " isa! "
	}
	if i.TypeVar != "" {
		return "$" + i.Var + kw + "$" + i.TypeVar
	}
	return "$" + i.Var + kw + i.Type
}

// IDPredicate pins a variable to one concrete instance.
type IDPredicate struct {
	Var string
	ID  string
}

func (IDPredicate) atomNode() {}

// NewIDPredicate validates and builds an identifier predicate.
func NewIDPredicate(v, id string) (IDPredicate, error) {
	p := IDPredicate{Var: normalizeVar(v), ID: strings.TrimSpace(id)}
	if p.Var == "" {
		return IDPredicate{}, newError(ErrCodeEmptyVars, "id predicate %q has no variable", id)
	}
	if p.ID == "" {
		return IDPredicate{}, newError(ErrCodeMissingOperand, "id predicate on $%s has no id", p.Var)
	}
	return p, nil
}

func (p IDPredicate) Vars() VarSet { return NewVarSet(p.Var) }

func (p IDPredicate) Key() string { return "id|" + p.Var + "|" + p.ID }

func (p IDPredicate) String() string { return "$" + p.Var + " id " + p.ID }

// Comparison is a value predicate. Exactly one of Right and Literal is set.
type Comparison struct {
	Op      Operator
	Left    string
	Right   string
	Literal ir.IRValue
}

func (Comparison) atomNode() {}

// NewComparison validates and builds a comparison.
func NewComparison(op Operator, left, right string, literal ir.IRValue) (Comparison, error) {
	c := Comparison{Op: op, Left: normalizeVar(left), Right: normalizeVar(right), Literal: literal}
	if !op.Valid() {
		return Comparison{}, newError(ErrCodeInvalidOperator, "unknown operator %q", string(op))
	}
	if c.Left == "" {
		return Comparison{}, newError(ErrCodeEmptyVars, "comparison %s has no left variable", op)
	}
	if c.Right == "" && c.Literal == nil {
		return Comparison{}, newError(ErrCodeMissingOperand, "comparison $%s %s has no right operand", c.Left, op)
	}
	if c.Right != "" && c.Literal != nil {
		return Comparison{}, newError(ErrCodeAmbiguousOperand, "comparison $%s %s has both variable and literal operands", c.Left, op)
	}
	return c, nil
}

// PinsValue reports whether the comparison fixes its left variable to a
// single literal value.
func (c Comparison) PinsValue() bool {
	return c.Op == OpEq && c.Literal != nil
}

func (c Comparison) Vars() VarSet { return NewVarSet(c.Left, c.Right) }

func (c Comparison) Key() string {
	lit := ""
	if c.Literal != nil {
		lit = ir.Format(c.Literal)
	}
	return fmt.Sprintf("cmp|%s|%s|%s|%s", c.Left, c.Op, c.Right, lit)
}

func (c Comparison) String() string {
	if c.Literal != nil {
		return "$" + c.Left + " " + string(c.Op) + " " + ir.Format(c.Literal)
	}
	return "$" + c.Left + " " + string(c.Op) + " $" + c.Right
}

// TypeOf returns the type label an atom refers to, or "" for atoms that
// carry none.
func TypeOf(a Atom) string {
	switch at := a.(type) {
	case Relation:
		return at.Type
	case Attribute:
		return at.Type
	case Isa:
		return at.Type
	}
	return ""
}

// TypeVarOf returns the variable an atom uses in type position, or "".
func TypeVarOf(a Atom) string {
	switch at := a.(type) {
	case Relation:
		return at.TypeVar
	case Isa:
		return at.TypeVar
	}
	return ""
}
