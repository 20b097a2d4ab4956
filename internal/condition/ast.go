// Package condition parses and evaluates trigger condition expressions such as
//
//	event.category == "METRIC" AND context.value > 90
//	tags.env exists AND NOT tags.env == "dev"
package condition

// Expr is a node of a compiled expression.
type Expr interface {
	exprNode()
}

// BinaryExpr is AND / OR.
type BinaryExpr struct {
	Op    string // "AND" | "OR"
	Left  Expr
	Right Expr
}

// NotExpr negates its operand.
type NotExpr struct {
	Expr Expr
}

// ComparisonExpr is <operand> <operator> <operand>.
type ComparisonExpr struct {
	Left  Operand
	Op    Operator
	Right Operand
}

// ExistsExpr is true when the field resolves.
type ExistsExpr struct {
	Field *FieldOperand
}

func (*BinaryExpr) exprNode()     {}
func (*NotExpr) exprNode()        {}
func (*ComparisonExpr) exprNode() {}
func (*ExistsExpr) exprNode()     {}

// Operand is a literal or a field path.
type Operand interface {
	operandNode()
}

// LiteralOperand holds a constant parsed at compile time (string, float64 or bool).
type LiteralOperand struct {
	Value any
}

// FieldOperand holds a dotted path such as ["tags", "env"].
type FieldOperand struct {
	Path []string
}

func (*LiteralOperand) operandNode() {}
func (*FieldOperand) operandNode()   {}

// Operator is a comparison operator.
type Operator string

const (
	OpEq       Operator = "=="
	OpNeq      Operator = "!="
	OpGt       Operator = ">"
	OpGte      Operator = ">="
	OpLt       Operator = "<"
	OpLte      Operator = "<="
	OpContains Operator = "contains"
	OpMatches  Operator = "matches"
)
