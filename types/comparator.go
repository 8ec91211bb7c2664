package types

import "github.com/fenwickdb/coldb/internal/base"

// Op enumerates the six basic comparisons (spec.md §3, §4.1).
type Op uint8

const (
	Equal Op = iota
	NotEqual
	Less
	LessOrEqual
	Greater
	GreaterOrEqual
)

func (op Op) String() string {
	switch op {
	case Equal:
		return "="
	case NotEqual:
		return "!="
	case Less:
		return "<"
	case LessOrEqual:
		return "<="
	case Greater:
		return ">"
	case GreaterOrEqual:
		return ">="
	default:
		return "?"
	}
}

// Negate returns the logical negation of op (== <-> !=, < <-> >=, > <-> <=).
func (op Op) Negate() Op {
	switch op {
	case Equal:
		return NotEqual
	case NotEqual:
		return Equal
	case Less:
		return GreaterOrEqual
	case LessOrEqual:
		return Greater
	case Greater:
		return LessOrEqual
	case GreaterOrEqual:
		return Less
	default:
		panic("types: bad Op")
	}
}

// UncheckedComparator evaluates a single Op between two typed values
// without re-checking the types: construction (MakeComparator) is the
// only place type checking happens, per spec.md §4.1's "hot path is
// type-free." Comparisons where either operand is NULL always return
// false, for every Op.
type UncheckedComparator interface {
	Compare(left, right TypedValue) bool
}

// LessThanComparator is the ordering primitive used by every other
// component (dictionaries, sorted pages, CSB+-tree keys).
type LessThanComparator interface {
	Less(left, right TypedValue) bool
}

// comparatorFunc adapts a closure to an UncheckedComparator.
type comparatorFunc func(left, right TypedValue) bool

func (f comparatorFunc) Compare(left, right TypedValue) bool { return f(left, right) }

// MakeComparator builds the comparator for op over (leftType, rightType).
// It returns base.ErrTypeMismatch if CanCompare(leftType, rightType) is
// false; this is the only type-checking step in the comparator algebra.
func MakeComparator(op Op, leftType, rightType Type) (UncheckedComparator, error) {
	if !CanCompare(leftType, rightType) {
		return nil, base.ErrTypeMismatch
	}
	if leftType.ID.IsNumeric() && rightType.ID.IsNumeric() {
		return numericComparator(op), nil
	}
	return stringComparator(op, leftType, rightType), nil
}

// EqualComparator returns the equality functor for (leftType, rightType),
// the comparator used throughout EqualComparison evaluation.
func EqualComparator(leftType, rightType Type) (UncheckedComparator, error) {
	return MakeComparator(Equal, leftType, rightType)
}

// MakeLessThan builds the less-than comparator for (leftType, rightType):
// the ordering primitive required by dictionaries, sorted pages and
// CSB+-tree key comparisons.
func MakeLessThan(leftType, rightType Type) (LessThanComparator, error) {
	cmp, err := MakeComparator(Less, leftType, rightType)
	if err != nil {
		return nil, err
	}
	return lessAdapter{cmp}, nil
}

type lessAdapter struct{ cmp UncheckedComparator }

func (a lessAdapter) Less(left, right TypedValue) bool { return a.cmp.Compare(left, right) }

// numericComparator builds one of the (4 numeric types)^2 = 16
// specializations per operator named in spec.md §4.1. Nullability is
// handled once, uniformly, rather than per specialization: "comparing
// against NULL yields false in all six basic comparisons" holds
// regardless of which of the 16 type pairs is in play.
func numericComparator(op Op) UncheckedComparator {
	return comparatorFunc(func(left, right TypedValue) bool {
		if left.Null || right.Null {
			return false
		}
		a, b := numericAsFloat64(left), numericAsFloat64(right)
		if left.Type.ID.IsInteger() && right.Type.ID.IsInteger() {
			// Compare as int64 to avoid float64 precision loss for Long.
			return applyOpInt(op, left.I64, right.I64)
		}
		return applyOpFloat(op, a, b)
	})
}

func numericAsFloat64(v TypedValue) float64 {
	if v.Type.ID.IsInteger() {
		return float64(v.I64)
	}
	return v.F64
}

func applyOpInt(op Op, a, b int64) bool {
	switch op {
	case Equal:
		return a == b
	case NotEqual:
		return a != b
	case Less:
		return a < b
	case LessOrEqual:
		return a <= b
	case Greater:
		return a > b
	case GreaterOrEqual:
		return a >= b
	default:
		panic("types: bad Op")
	}
}

func applyOpFloat(op Op, a, b float64) bool {
	switch op {
	case Equal:
		return a == b
	case NotEqual:
		return a != b
	case Less:
		return a < b
	case LessOrEqual:
		return a <= b
	case Greater:
		return a > b
	case GreaterOrEqual:
		return a >= b
	default:
		panic("types: bad Op")
	}
}
