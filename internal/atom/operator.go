package atom

// Operator is a comparison operator.
type Operator string

// Comparison operators. Only OpEq pins a variable to a literal.
const (
	OpEq       Operator = "=="       // equal
	OpNeq      Operator = "!="       // not equal
	OpLt       Operator = "<"        // less than
	OpLte      Operator = "<="       // less than or equal
	OpGt       Operator = ">"        // greater than
	OpGte      Operator = ">="       // greater than or equal
	OpContains Operator = "contains" // string containment
)

// Valid reports whether op is one of the supported operators.
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte, OpContains:
		return true
	}
	return false
}

// ParseOperator returns the operator spelled s.
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if !op.Valid() {
		return "", newError(ErrCodeInvalidOperator, "unknown operator %q", s)
	}
	return op, nil
}
