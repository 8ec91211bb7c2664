package types

import "bytes"

// stringComparator builds the comparator for op over two Char/VarChar
// types. It carries (as the closure's captured leftType/rightType) the
// max-length/null-termination shape named in spec.md §4.1, and performs
// an adjusted strncmp: byte-for-byte up to the shorter logical length,
// with the longer value treated as lexicographically greater when the
// shared prefix is equal. Char(n) compares its full fixed buffer (it may
// be non-terminated and contain meaningful trailing bytes); VarChar(n)
// compares only its logical (pre-terminator) content, already trimmed by
// DecodeNatural/VarCharValue.
func stringComparator(op Op, leftType, rightType Type) UncheckedComparator {
	return comparatorFunc(func(left, right TypedValue) bool {
		if left.Null || right.Null {
			return false
		}
		c := bytes.Compare(left.Raw, right.Raw)
		switch op {
		case Equal:
			return c == 0
		case NotEqual:
			return c != 0
		case Less:
			return c < 0
		case LessOrEqual:
			return c <= 0
		case Greater:
			return c > 0
		case GreaterOrEqual:
			return c >= 0
		default:
			panic("types: bad Op")
		}
	})
}
