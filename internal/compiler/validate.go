package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"

	"github.com/roach88/resplan/internal/schema"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrMissingTypes = "E100" // types section missing or not a struct

	// Type errors (E101-E109)
	ErrInvalidKind        = "E101" // kind is not entity, relation or attribute
	ErrUnknownSupertype   = "E102" // sup names an undefined type
	ErrSupertypeKind      = "E103" // sup has a different kind
	ErrInvalidValueType   = "E104" // unknown attribute value type
	ErrReservedLabel      = "E105" // label collides with a kind root
	ErrFloatTypeForbidden = "E106" // float value types not allowed
	ErrMisplacedField     = "E107" // roles on a non-relation, value on a non-attribute
	ErrSupertypeCycle     = "E108" // type is its own ancestor

	// Rule errors (E110-E119)
	ErrMissingConclusion = "E110" // rule has no then
	ErrMissingPremise    = "E111" // rule has no when
	ErrUnknownRuleType   = "E112" // rule references an undefined type
	ErrRootConclusion    = "E113" // rule concludes a kind root
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

type typeDecl struct {
	label string
	kind  string
	sup   string
	value cue.Value
}

// Validate checks a schema file and returns every problem found
// (does not fail-fast). A file that passes compiles with CompileSchema.
func Validate(v cue.Value) []ValidationError {
	typesVal := v.LookupPath(cue.ParsePath("types"))
	iter, err := typesVal.Fields()
	if !typesVal.Exists() || err != nil {
		return []ValidationError{{
			Field:   "types",
			Message: "types section is required and must be a struct",
			Code:    ErrMissingTypes,
			Line:    line(v),
		}}
	}

	var errs []ValidationError
	decls := make(map[string]typeDecl)
	var order []string
	for iter.Next() {
		label := iter.Selector().Unquoted()
		tv := iter.Value()
		field := "types." + label
		d := typeDecl{label: label, value: tv}
		d.kind, _ = tv.LookupPath(cue.ParsePath("kind")).String()
		d.sup, _ = tv.LookupPath(cue.ParsePath("sup")).String()

		if slices.Contains(rootLabels(), label) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("label %q is reserved for the %s root", label, label),
				Code:    ErrReservedLabel,
				Line:    line(tv),
			})
		}
		if !schema.Kind(d.kind).Valid() {
			errs = append(errs, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("invalid kind %q, must be \"entity\", \"relation\" or \"attribute\"", d.kind),
				Code:    ErrInvalidKind,
				Line:    line(tv),
			})
		}
		errs = append(errs, validateFields(field, d)...)

		decls[label] = d
		order = append(order, label)
	}

	for _, label := range order {
		errs = append(errs, validateSupertype(decls, decls[label])...)
	}

	errs = append(errs, validateRules(v, decls)...)
	return errs
}

func validateFields(field string, d typeDecl) []ValidationError {
	var errs []ValidationError

	if vt := d.value.LookupPath(cue.ParsePath("value")); vt.Exists() {
		s, _ := vt.String()
		switch {
		case d.kind != string(schema.KindAttribute):
			errs = append(errs, ValidationError{
				Field:   field + ".value",
				Message: fmt.Sprintf("only attribute types have a value type, %q is a %s", d.label, d.kind),
				Code:    ErrMisplacedField,
				Line:    line(vt),
			})
		case isFloatType(s):
			errs = append(errs, ValidationError{
				Field:   field + ".value",
				Message: fmt.Sprintf("float value type forbidden for %q, use long instead", d.label),
				Code:    ErrFloatTypeForbidden,
				Line:    line(vt),
			})
		case !isValidValueType(s):
			errs = append(errs, ValidationError{
				Field:   field + ".value",
				Message: fmt.Sprintf("invalid value type %q for %q", s, d.label),
				Code:    ErrInvalidValueType,
				Line:    line(vt),
			})
		}
	}

	if roles := d.value.LookupPath(cue.ParsePath("roles")); roles.Exists() && d.kind != string(schema.KindRelation) {
		errs = append(errs, ValidationError{
			Field:   field + ".roles",
			Message: fmt.Sprintf("only relation types declare roles, %q is a %s", d.label, d.kind),
			Code:    ErrMisplacedField,
			Line:    line(roles),
		})
	}

	return errs
}

func validateSupertype(decls map[string]typeDecl, d typeDecl) []ValidationError {
	if d.sup == "" || slices.Contains(rootLabels(), d.sup) {
		if d.sup != "" && d.sup != d.kind && schema.Kind(d.kind).Valid() {
			return []ValidationError{{
				Field:   "types." + d.label + ".sup",
				Message: fmt.Sprintf("%s type cannot subtype the %s root", d.kind, d.sup),
				Code:    ErrSupertypeKind,
				Line:    line(d.value),
			}}
		}
		return nil
	}

	sup, ok := decls[d.sup]
	if !ok {
		return []ValidationError{{
			Field:   "types." + d.label + ".sup",
			Message: fmt.Sprintf("supertype %q is not defined", d.sup),
			Code:    ErrUnknownSupertype,
			Line:    line(d.value),
		}}
	}
	if sup.kind != d.kind {
		return []ValidationError{{
			Field:   "types." + d.label + ".sup",
			Message: fmt.Sprintf("%s type cannot subtype %s type %q", d.kind, sup.kind, sup.label),
			Code:    ErrSupertypeKind,
			Line:    line(d.value),
		}}
	}

	seen := map[string]bool{d.label: true}
	for cur := sup; ; {
		if seen[cur.label] {
			return []ValidationError{{
				Field:   "types." + d.label + ".sup",
				Message: fmt.Sprintf("type %q is its own supertype", d.label),
				Code:    ErrSupertypeCycle,
				Line:    line(d.value),
			}}
		}
		seen[cur.label] = true
		next, ok := decls[cur.sup]
		if !ok {
			return nil
		}
		cur = next
	}
}

func validateRules(v cue.Value, decls map[string]typeDecl) []ValidationError {
	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil
	}
	iter, err := rulesVal.Fields()
	if err != nil {
		return []ValidationError{{
			Field:   "rules",
			Message: "rules must be a struct",
			Code:    ErrMissingPremise,
			Line:    line(rulesVal),
		}}
	}

	known := func(label string) bool {
		_, ok := decls[label]
		return ok || slices.Contains(rootLabels(), label)
	}

	var errs []ValidationError
	for iter.Next() {
		label := iter.Selector().Unquoted()
		rv := iter.Value()
		field := "rules." + label

		then, _ := rv.LookupPath(cue.ParsePath("then")).String()
		switch {
		case then == "":
			errs = append(errs, ValidationError{
				Field:   field + ".then",
				Message: "rule needs a conclusion type",
				Code:    ErrMissingConclusion,
				Line:    line(rv),
			})
		case slices.Contains(rootLabels(), then):
			errs = append(errs, ValidationError{
				Field:   field + ".then",
				Message: fmt.Sprintf("rule cannot conclude the %s root", then),
				Code:    ErrRootConclusion,
				Line:    line(rv),
			})
		case !known(then):
			errs = append(errs, ValidationError{
				Field:   field + ".then",
				Message: fmt.Sprintf("conclusion type %q is not defined", then),
				Code:    ErrUnknownRuleType,
				Line:    line(rv),
			})
		}

		when := listStrings(rv.LookupPath(cue.ParsePath("when")))
		if len(when) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".when",
				Message: "rule needs at least one premise",
				Code:    ErrMissingPremise,
				Line:    line(rv),
			})
		}
		premises := append(when, listStrings(rv.LookupPath(cue.ParsePath("not")))...)
		for _, p := range premises {
			if !known(p) {
				errs = append(errs, ValidationError{
					Field:   field + ".when",
					Message: fmt.Sprintf("premise type %q is not defined", p),
					Code:    ErrUnknownRuleType,
					Line:    line(rv),
				})
			}
		}
	}
	return errs
}

func listStrings(v cue.Value) []string {
	iter, err := v.List()
	if err != nil {
		return nil
	}
	var out []string
	for iter.Next() {
		if s, err := iter.Value().String(); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func rootLabels() []string {
	kinds := schema.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.Root()
	}
	return out
}

func line(v cue.Value) int {
	if pos := v.Pos(); pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// isValidValueType checks if an attribute value type is supported.
func isValidValueType(t string) bool {
	switch t {
	case "string", "long", "boolean", "datetime":
		return true
	}
	return false
}

// isFloatType checks if a value type represents a float type.
func isFloatType(t string) bool {
	switch t {
	case "float", "float32", "float64", "double", "decimal", "number":
		return true
	}
	return false
}
