package condition

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Resolver looks up field paths during evaluation.
type Resolver interface {
	Resolve(path []string) (any, bool)
}

// Evaluate walks the AST. A comparison whose field does not resolve is false.
func Evaluate(expr Expr, r Resolver) (bool, error) {
	switch e := expr.(type) {
	case *BinaryExpr:
		left, err := Evaluate(e.Left, r)
		if err != nil {
			return false, err
		}
		switch e.Op {
		case "AND":
			if !left {
				return false, nil
			}
		case "OR":
			if left {
				return true, nil
			}
		default:
			return false, fmt.Errorf("unknown binary op %q", e.Op)
		}
		return Evaluate(e.Right, r)
	case *NotExpr:
		v, err := Evaluate(e.Expr, r)
		return !v && err == nil, err
	case *ExistsExpr:
		_, ok := r.Resolve(e.Field.Path)
		return ok, nil
	case *ComparisonExpr:
		left, ok := operandValue(e.Left, r)
		if !ok {
			return false, nil
		}
		right, ok := operandValue(e.Right, r)
		if !ok {
			return false, nil
		}
		return compare(e.Op, left, right)
	default:
		return false, fmt.Errorf("unknown expr type %T", expr)
	}
}

func operandValue(op Operand, r Resolver) (any, bool) {
	switch o := op.(type) {
	case *LiteralOperand:
		return o.Value, true
	case *FieldOperand:
		return r.Resolve(o.Path)
	}
	return nil, false
}

func compare(op Operator, left, right any) (bool, error) {
	switch op {
	case OpEq:
		return equal(left, right), nil
	case OpNeq:
		return !equal(left, right), nil
	case OpGt, OpGte, OpLt, OpLte:
		lf, lok := toNumber(left)
		rf, rok := toNumber(right)
		if !lok || !rok {
			return false, fmt.Errorf("operator %s requires numeric operands, got %v and %v", op, left, right)
		}
		switch op {
		case OpGt:
			return lf > rf, nil
		case OpGte:
			return lf >= rf, nil
		case OpLt:
			return lf < rf, nil
		default:
			return lf <= rf, nil
		}
	case OpContains:
		ls, ok := left.(string)
		if !ok {
			return false, fmt.Errorf("contains: left operand must be a string, got %T", left)
		}
		return strings.Contains(ls, fmt.Sprint(right)), nil
	case OpMatches:
		ls, ok := left.(string)
		if !ok {
			return false, fmt.Errorf("matches: left operand must be a string, got %T", left)
		}
		pattern, ok := right.(string)
		if !ok {
			return false, fmt.Errorf("matches: pattern must be a string, got %T", right)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("matches: invalid regex %q: %w", pattern, err)
		}
		return re.MatchString(ls), nil
	default:
		return false, fmt.Errorf("unknown operator: %s", op)
	}
}

// equal compares numerically when both sides are numbers or numeric strings,
// then as booleans, then as strings.
func equal(left, right any) bool {
	if lf, ok := toNumber(left); ok {
		if rf, ok := toNumber(right); ok {
			return math.Abs(lf-rf) < 1e-9
		}
	}
	if lb, ok := toBool(left); ok {
		if rb, ok := toBool(right); ok {
			return lb == rb
		}
	}
	return fmt.Sprint(left) == fmt.Sprint(right)
}

// toNumber coerces numeric values and numeric strings (event context values are strings).
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		if pb, err := strconv.ParseBool(b); err == nil {
			return pb, true
		}
	}
	return false, false
}
