package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/resplan/internal/schema"
)

// CompileSchema parses a CUE value into a Schema.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value is the file root, holding "types" and optional "rules":
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`types: { person: { kind: "entity" } }`)
//	s, err := CompileSchema(v)
func CompileSchema(v cue.Value) (*schema.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	b := schema.NewBuilder()

	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, &CompileError{
			Field:   "types",
			Message: "types are required",
			Pos:     v.Pos(),
		}
	}
	types, err := parseTypes(typesVal)
	if err != nil {
		return nil, err
	}
	for _, t := range types {
		b.Type(t)
	}

	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if rulesVal.Exists() {
		rules, err := parseRules(rulesVal)
		if err != nil {
			return nil, err
		}
		for _, r := range rules {
			b.Rule(r)
		}
	}

	s, err := b.Build()
	if err != nil {
		return nil, fromSchemaError(err, v)
	}
	return s, nil
}

// CompileStatistics reads the optional "statistics" struct of a schema
// file. A file without one yields empty statistics.
func CompileStatistics(v cue.Value) (schema.Statistics, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	stats := schema.Statistics{}
	statsVal := v.LookupPath(cue.ParsePath("statistics"))
	if !statsVal.Exists() {
		return stats, nil
	}

	iter, err := statsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Selector().Unquoted()
		n, err := iter.Value().Int64()
		if err != nil {
			return nil, &CompileError{
				Field:   "statistics." + label,
				Message: "count must be an integer",
				Pos:     iter.Value().Pos(),
			}
		}
		if n < 0 {
			return nil, &CompileError{
				Field:   "statistics." + label,
				Message: fmt.Sprintf("count must not be negative, got %d", n),
				Pos:     iter.Value().Pos(),
			}
		}
		stats[schema.NormalizeLabel(label)] = n
	}
	return stats, nil
}

// CompileSnapshot compiles the schema and statistics of one CUE value.
func CompileSnapshot(v cue.Value) (*schema.Snapshot, error) {
	s, err := CompileSchema(v)
	if err != nil {
		return nil, err
	}
	stats, err := CompileStatistics(v)
	if err != nil {
		return nil, err
	}
	return schema.NewSnapshot(s, stats)
}

// parseTypes extracts type definitions in declaration order.
func parseTypes(v cue.Value) ([]schema.Type, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var types []schema.Type
	for iter.Next() {
		label := iter.Selector().Unquoted()
		tv := iter.Value()
		field := "types." + label

		kind, err := requiredString(tv, "kind", field)
		if err != nil {
			return nil, err
		}
		t := schema.Type{Label: label, Kind: schema.Kind(kind)}
		if !t.Kind.Valid() {
			return nil, &CompileError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("kind must be entity, relation or attribute, got %q", kind),
				Pos:     tv.LookupPath(cue.ParsePath("kind")).Pos(),
			}
		}

		if t.Sup, err = optionalString(tv, "sup", field); err != nil {
			return nil, err
		}
		if t.ValueType, err = optionalString(tv, "value", field); err != nil {
			return nil, err
		}
		if t.ValueType != "" && t.Kind != schema.KindAttribute {
			return nil, &CompileError{
				Field:   field + ".value",
				Message: fmt.Sprintf("only attribute types have a value type, %q is a %s", label, t.Kind),
				Pos:     tv.LookupPath(cue.ParsePath("value")).Pos(),
			}
		}
		if isFloatType(t.ValueType) {
			return nil, &CompileError{
				Field:   field + ".value",
				Message: "float value types are forbidden - use long instead",
				Pos:     tv.LookupPath(cue.ParsePath("value")).Pos(),
			}
		}
		if t.ValueType != "" && !isValidValueType(t.ValueType) {
			return nil, &CompileError{
				Field:   field + ".value",
				Message: fmt.Sprintf("invalid value type %q", t.ValueType),
				Pos:     tv.LookupPath(cue.ParsePath("value")).Pos(),
			}
		}

		if t.Roles, err = stringList(tv, "roles", field); err != nil {
			return nil, err
		}
		if len(t.Roles) > 0 && t.Kind != schema.KindRelation {
			return nil, &CompileError{
				Field:   field + ".roles",
				Message: fmt.Sprintf("only relation types declare roles, %q is a %s", label, t.Kind),
				Pos:     tv.LookupPath(cue.ParsePath("roles")).Pos(),
			}
		}

		types = append(types, t)
	}
	return types, nil
}

// parseRules extracts rule definitions in declaration order.
func parseRules(v cue.Value) ([]schema.Rule, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rules []schema.Rule
	for iter.Next() {
		label := iter.Selector().Unquoted()
		rv := iter.Value()
		field := "rules." + label

		r := schema.Rule{Label: label}
		if r.Then, err = requiredString(rv, "then", field); err != nil {
			return nil, err
		}
		if r.When, err = stringList(rv, "when", field); err != nil {
			return nil, err
		}
		if len(r.When) == 0 {
			return nil, &CompileError{
				Field:   field + ".when",
				Message: "at least one premise is required",
				Pos:     rv.Pos(),
			}
		}
		if r.WhenNot, err = stringList(rv, "not", field); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func requiredString(v cue.Value, name, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, name, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{
			Field:   field + "." + name,
			Message: name + " must be a string",
			Pos:     fv.Pos(),
		}
	}
	return s, nil
}

func stringList(v cue.Value, name, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field + "." + name,
			Message: name + " must be a list of strings",
			Pos:     fv.Pos(),
		}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field + "." + name,
				Message: name + " must be a list of strings",
				Pos:     iter.Value().Pos(),
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// fromSchemaError attaches the CUE position of the offending type or rule
// to a schema build error.
func fromSchemaError(err error, root cue.Value) error {
	var se *schema.Error
	if !errors.As(err, &se) {
		return err
	}
	field := string(se.Code)
	pos := root.Pos()
	if se.Label != "" {
		for _, section := range []string{"types", "rules"} {
			lv := root.LookupPath(cue.MakePath(cue.Str(section), cue.Str(se.Label)))
			if lv.Exists() {
				field = section + "." + se.Label
				pos = lv.Pos()
				break
			}
		}
	}
	return &CompileError{Field: field, Message: se.Message, Pos: pos, Err: err}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying schema error, if any.
func (e *CompileError) Unwrap() error { return e.Err }

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
