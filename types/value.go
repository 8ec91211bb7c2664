package types

import "math"

// TypedValue is a decoded scalar value paired with its type. It plays the
// role of spec.md's "value, reference, and NULL variants" of the type
// system, collapsed into one struct: Null carries the NULL case, Raw
// carries the natural-width encoding of non-NULL Char/VarChar content.
type TypedValue struct {
	Type Type
	Null bool
	I64  int64   // populated for Int/Long
	F64  float64 // populated for Float/Double
	Raw  []byte  // populated for Char/VarChar (not including the VarChar terminator)
}

// NullValue builds the NULL variant of t.
func NullValue(t Type) TypedValue {
	return TypedValue{Type: t, Null: true}
}

// IntValue, LongValue, FloatValue, DoubleValue build non-NULL numeric
// values of the named concrete type.
func IntValue(v int32, nullable bool) TypedValue {
	return TypedValue{Type: NumericType(Int, nullable), I64: int64(v)}
}

func LongValue(v int64, nullable bool) TypedValue {
	return TypedValue{Type: NumericType(Long, nullable), I64: v}
}

func FloatValue(v float32, nullable bool) TypedValue {
	return TypedValue{Type: NumericType(Float, nullable), F64: float64(v)}
}

func DoubleValue(v float64, nullable bool) TypedValue {
	return TypedValue{Type: NumericType(Double, nullable), F64: v}
}

// CharValue builds a fixed-length Char(n) value. data is truncated or
// zero-padded to n bytes.
func CharValue(data []byte, n int, nullable bool) TypedValue {
	return TypedValue{Type: CharType(n, nullable), Raw: padOrTruncate(data, n)}
}

// VarCharValue builds a VarChar(n) value. data must fit in n-1 bytes (room
// for the terminator).
func VarCharValue(data []byte, n int, nullable bool) TypedValue {
	return TypedValue{Type: VarCharType(n, nullable), Raw: append([]byte(nil), data...)}
}

// CoerceTo converts v to target, per the CoercesTo rules in type.go. It
// panics if !v.Type.CoercesTo(target): callers must check first, the same
// way comparator construction is the only type-checking point for
// comparisons.
func (v TypedValue) CoerceTo(target Type) TypedValue {
	if !v.Type.CoercesTo(target) {
		panic("types: value does not coerce to target type")
	}
	out := v
	out.Type = target
	if target.ID.IsNumeric() && !v.Type.ID.IsNumeric() {
		panic("types: non-numeric value cannot coerce to numeric type")
	}
	if (target.ID == Double || target.ID == Float) && v.Type.ID.IsInteger() {
		out.F64 = float64(v.I64)
	}
	return out
}

func padOrTruncate(data []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, data)
	return out
}

// EncodeNatural writes the value's natural (uncompressed) byte encoding to
// dst, which must be exactly Type.ByteLength() bytes. All integers are
// little-endian.
func (v TypedValue) EncodeNatural(dst []byte) {
	switch v.Type.ID {
	case Int:
		putUint32LE(dst, uint32(int32(v.I64)))
	case Long:
		putUint64LE(dst, uint64(v.I64))
	case Float:
		putUint32LE(dst, math.Float32bits(float32(v.F64)))
	case Double:
		putUint64LE(dst, math.Float64bits(v.F64))
	case Char:
		copy(dst, padOrTruncate(v.Raw, v.Type.Length))
	case VarChar:
		n := copy(dst, v.Raw)
		for ; n < len(dst); n++ {
			dst[n] = 0
		}
	}
}

// DecodeNatural reads a value of type t from its natural-width encoding.
func DecodeNatural(t Type, src []byte) TypedValue {
	switch t.ID {
	case Int:
		return TypedValue{Type: t, I64: int64(int32(getUint32LE(src)))}
	case Long:
		return TypedValue{Type: t, I64: int64(getUint64LE(src))}
	case Float:
		return TypedValue{Type: t, F64: float64(math.Float32frombits(getUint32LE(src)))}
	case Double:
		return TypedValue{Type: t, F64: math.Float64frombits(getUint64LE(src))}
	case Char:
		return TypedValue{Type: t, Raw: append([]byte(nil), src[:t.Length]...)}
	case VarChar:
		end := 0
		for end < len(src) && src[end] != 0 {
			end++
		}
		return TypedValue{Type: t, Raw: append([]byte(nil), src[:end]...)}
	default:
		panic("types: unknown TypeID in DecodeNatural")
	}
}

func putUint32LE(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func putUint64LE(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

func getUint32LE(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
}

func getUint64LE(src []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(src[i]) << (8 * i)
	}
	return v
}
