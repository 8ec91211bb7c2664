// Package types implements the closed scalar-type algebra described in
// spec.md §3-§4.1: a small enumerated set of concrete types, the
// attribute/relation metadata built from them, and the comparator algebra
// that is the narrow waist between every other package in this module.
//
// There is no open extension point here by design (spec.md §9, "Dynamic
// dispatch over types"): adding a new TypeID means touching this package,
// never implementing an interface elsewhere.
package types

import "fmt"

// TypeID enumerates the closed set of concrete scalar types.
type TypeID uint8

const (
	Int TypeID = iota
	Long
	Float
	Double
	Char
	VarChar
)

func (id TypeID) String() string {
	switch id {
	case Int:
		return "Int"
	case Long:
		return "Long"
	case Float:
		return "Float"
	case Double:
		return "Double"
	case Char:
		return "Char"
	case VarChar:
		return "VarChar"
	default:
		return fmt.Sprintf("TypeID(%d)", uint8(id))
	}
}

// IsNumeric reports whether the type is one of the four numeric concrete
// types (Int, Long, Float, Double).
func (id TypeID) IsNumeric() bool {
	return id == Int || id == Long || id == Float || id == Double
}

// IsInteger reports whether the type is Int or Long: the only types that
// admit truncation coding (spec.md §3, "Compressed Page").
func (id TypeID) IsInteger() bool {
	return id == Int || id == Long
}

// IsVariableLength reports whether the type is VarChar(n): null-terminated,
// of variable physical length up to n bytes including the terminator.
func (id TypeID) IsVariableLength() bool {
	return id == VarChar
}

// Type is a fully-specified scalar type: its concrete kind, whether it
// admits SQL NULL, and (for Char/VarChar) its declared length in bytes.
type Type struct {
	ID       TypeID
	Nullable bool
	// Length is meaningful only for Char and VarChar: Char(n) is a fixed n
	// byte buffer, VarChar(n) is at most n bytes including its terminator.
	Length int
}

// NumericType builds one of the four numeric types.
func NumericType(id TypeID, nullable bool) Type {
	return Type{ID: id, Nullable: nullable}
}

// CharType builds a fixed-length Char(n) type.
func CharType(length int, nullable bool) Type {
	return Type{ID: Char, Nullable: nullable, Length: length}
}

// VarCharType builds a VarChar(n) type (n includes the terminator).
func VarCharType(length int, nullable bool) Type {
	return Type{ID: VarChar, Nullable: nullable, Length: length}
}

// ByteLength returns the type's natural (uncompressed) physical width.
// For VarChar this is the declared maximum, including the terminator.
func (t Type) ByteLength() int {
	switch t.ID {
	case Int, Float:
		return 4
	case Long, Double:
		return 8
	case Char, VarChar:
		return t.Length
	default:
		panic(fmt.Sprintf("types: unknown TypeID %d", t.ID))
	}
}

// CoercesTo reports whether a value of type t can be safely coerced to
// type other, per spec.md §3:
//
//	narrower numeric -> wider numeric; integer -> floating of equal width;
//	Char(n) -> Char(m) and Char(n) -> VarChar(m) when lengths permit;
//	nullable never coerces to non-nullable.
func (t Type) CoercesTo(other Type) bool {
	if t.Nullable && !other.Nullable {
		return false
	}
	if t.ID == other.ID {
		if t.ID == Char || t.ID == VarChar {
			return t.Length <= other.Length
		}
		return true
	}
	switch t.ID {
	case Int:
		switch other.ID {
		case Long, Float, Double:
			return true
		}
	case Long:
		switch other.ID {
		case Double:
			return true
		}
	case Float:
		switch other.ID {
		case Double:
			return true
		}
	case Char:
		if other.ID == VarChar {
			// Char(n) is not null-terminated; VarChar(m) must have room for
			// the n bytes of content plus a terminator.
			return t.Length+1 <= other.Length
		}
	}
	return false
}

// CanCompare reports whether two types admit a comparator at all: either
// side coerces to the other, or both are the same concrete kind.
func CanCompare(left, right Type) bool {
	if left.ID == right.ID {
		return true
	}
	return left.CoercesTo(right) || right.CoercesTo(left)
}
