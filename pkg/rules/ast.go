package rules

// ExprType represents the kind of node in a condition expression AST.
type ExprType string

const (
	// ExprComparison is a single field-operator-value comparison.
	ExprComparison ExprType = "comparison"
	// ExprAnd is a logical conjunction of children.
	ExprAnd ExprType = "and"
	// ExprOr is a logical disjunction of children.
	ExprOr ExprType = "or"
	// ExprNot negates its single child.
	ExprNot ExprType = "not"
)

// Operator is a comparison operator in a condition expression.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLessThan     Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreaterThan  Operator = ">"
	OpGreaterEqual Operator = ">="
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
)

// Expr is a node in the parsed condition expression tree.
// Comparison nodes carry Field/Op/Value; logical nodes carry Children.
type Expr struct {
	Type     ExprType
	Field    string
	Op       Operator
	Value    any   // scalar, or []any for in / not_in
	Children []*Expr
}

// IsLogical returns true for and/or/not nodes.
func (e *Expr) IsLogical() bool {
	return e.Type == ExprAnd || e.Type == ExprOr || e.Type == ExprNot
}
