package schema

// Kind is the metatype of a schema type.
type Kind string

// Kinds, one per type hierarchy root.
const (
	KindEntity    Kind = "entity"    // things that exist on their own
	KindRelation  Kind = "relation"  // n-ary links between role players
	KindAttribute Kind = "attribute" // values owned by other instances
)

// Valid reports whether k is one of the three kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindEntity, KindRelation, KindAttribute:
		return true
	}
	return false
}

// Root returns the label of the implicit root type of the kind.
// Every kind has a root type whose label is the kind name.
func (k Kind) Root() string { return string(k) }

// Kinds lists the kinds in a fixed order.
func Kinds() []Kind {
	return []Kind{KindEntity, KindRelation, KindAttribute}
}

// Type is a schema type.
//
// Sup names the direct supertype; empty means the kind root. Roles are the
// roles a relation type declares (inherited roles are not repeated).
// ValueType is the datatype of an attribute type, e.g. "string" or "long".
type Type struct {
	Label     string   `json:"label"`
	Kind      Kind     `json:"kind"`
	Sup       string   `json:"sup,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	ValueType string   `json:"value,omitempty"`
}

// IsRoot reports whether t is one of the implicit kind roots.
func (t Type) IsRoot() bool {
	return t.Sup == "" && t.Label == t.Kind.Root()
}

// Rule is an inference rule, reduced to the types it mentions.
//
// When lists the types of the positive premises, WhenNot the types of the
// negated premises, and Then the type of the conclusion: a relation type
// for relation conclusions, an attribute type for ownership conclusions.
type Rule struct {
	Label   string   `json:"label"`
	When    []string `json:"when"`
	WhenNot []string `json:"not,omitempty"`
	Then    string   `json:"then"`
}

// Premises returns positive then negative premise types.
func (r Rule) Premises() []string {
	out := make([]string, 0, len(r.When)+len(r.WhenNot))
	out = append(out, r.When...)
	return append(out, r.WhenNot...)
}
