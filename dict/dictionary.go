// Package dict implements the Compression Dictionary described in
// spec.md §3 and §4.2: a sorted, deduplicated code->value mapping backed
// by a flat memory region, plus the mutable DictionaryBuilder used while a
// compressed page is being assembled.
package dict

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/fenwickdb/coldb/internal/base"
	"github.com/fenwickdb/coldb/types"
)

// Dictionary is a read-only view over a sealed dictionary's physical
// bytes (spec.md §6): num_codes, then either num_codes fixed-width sorted
// values, or (num_codes+1) offsets followed by a value blob.
//
// It never copies its backing bytes: Attach builds a Dictionary that
// views raw in place, matching the "read by value from the sealed page;
// no separate heap ownership" lifecycle of spec.md §3.
type Dictionary struct {
	typ      types.Type
	raw      []byte
	numCodes uint32
	fixed    bool
	width    int      // meaningful when fixed
	offsets  []uint32 // meaningful when !fixed; length numCodes+1
	blobBase int      // byte offset of the value blob within raw
}

// Attach parses a sealed dictionary's bytes for attribute type typ. It
// returns base.ErrMalformedBlock if the bytes are internally inconsistent
// (too short, non-monotonic offsets).
func Attach(raw []byte, typ types.Type) (*Dictionary, error) {
	if len(raw) < 4 {
		return nil, errors.Wrapf(base.ErrMalformedBlock, "dictionary: header truncated (%d bytes)", errors.Safe(len(raw)))
	}
	numCodes := binary.LittleEndian.Uint32(raw[0:4])
	d := &Dictionary{typ: typ, raw: raw, numCodes: numCodes}

	if typ.ID.IsVariableLength() {
		offsetsLen := int(numCodes+1) * 4
		if len(raw) < 4+offsetsLen {
			return nil, errors.Wrapf(base.ErrMalformedBlock, "dictionary: offsets table truncated")
		}
		offsets := make([]uint32, numCodes+1)
		for i := range offsets {
			offsets[i] = binary.LittleEndian.Uint32(raw[4+4*i : 8+4*i])
		}
		for i := 1; i < len(offsets); i++ {
			if offsets[i] < offsets[i-1] {
				return nil, errors.Wrapf(base.ErrMalformedBlock, "dictionary: offsets not monotonic at %d", errors.Safe(i))
			}
		}
		d.offsets = offsets
		d.blobBase = 4 + offsetsLen
		if len(raw) < d.blobBase+int(offsets[len(offsets)-1]) {
			return nil, errors.Wrapf(base.ErrMalformedBlock, "dictionary: value blob truncated")
		}
		return d, nil
	}

	d.fixed = true
	d.width = typ.ByteLength()
	if len(raw) < 4+int(numCodes)*d.width {
		return nil, errors.Wrapf(base.ErrMalformedBlock, "dictionary: fixed values truncated")
	}
	return d, nil
}

// NumCodes returns the number of distinct coded values.
func (d *Dictionary) NumCodes() uint32 { return d.numCodes }

// CodeBitWidth returns ceil(log2(num_codes+1)): the number of bits needed
// to represent every valid code plus the not-found sentinel num_codes.
func (d *Dictionary) CodeBitWidth() uint8 {
	return CodeBitWidth(d.numCodes)
}

// CodeBitWidth computes ceil(log2(numCodes+1)) for a dictionary of the
// given size, exposed standalone so the page builder can size columns
// before a Dictionary exists.
func CodeBitWidth(numCodes uint32) uint8 {
	n := numCodes + 1
	var bits uint8
	for (uint32(1) << bits) < n {
		bits++
	}
	if bits == 0 {
		bits = 1
	}
	return bits
}

// CodeByteWidth rounds CodeBitWidth up to one of {1, 2, 4} bytes, per
// spec.md §3.
func CodeByteWidth(numCodes uint32) int {
	bits := CodeBitWidth(numCodes)
	switch {
	case bits <= 8:
		return 1
	case bits <= 16:
		return 2
	default:
		return 4
	}
}

// ValueFor returns the value for code. It returns base.ErrCodeOutOfRange
// if code >= NumCodes().
func (d *Dictionary) ValueFor(code uint32) (types.TypedValue, error) {
	if code >= d.numCodes {
		return types.TypedValue{}, errors.Wrapf(base.ErrCodeOutOfRange, "code %d >= num_codes %d", errors.Safe(code), errors.Safe(d.numCodes))
	}
	return types.DecodeNatural(d.typ, d.rawValueBytes(code)), nil
}

// rawValueBytes returns the raw physical bytes for code without
// validating range; callers must check bounds first.
func (d *Dictionary) rawValueBytes(code uint32) []byte {
	if d.fixed {
		start := 4 + int(code)*d.width
		return d.raw[start : start+d.width]
	}
	start := d.blobBase + int(d.offsets[code])
	end := d.blobBase + int(d.offsets[code+1])
	return d.raw[start:end]
}

// less returns whether the value at code is less than probe, using a
// comparator built for (dictionary type, probe type) so that a probe of a
// different-but-comparable type still binary-searches correctly (spec.md
// §4.2: "a custom comparator is produced for the binary search").
func (d *Dictionary) less(code uint32, probe types.TypedValue) (bool, error) {
	cmp, err := types.MakeLessThan(d.typ, probe.Type)
	if err != nil {
		return false, err
	}
	v, err := d.ValueFor(code)
	if err != nil {
		return false, err
	}
	return cmp.Less(v, probe), nil
}

func (d *Dictionary) probeLess(probe types.TypedValue, code uint32) (bool, error) {
	cmp, err := types.MakeLessThan(probe.Type, d.typ)
	if err != nil {
		return false, err
	}
	v, err := d.ValueFor(code)
	if err != nil {
		return false, err
	}
	return cmp.Less(probe, v), nil
}

// LowerBound returns the first code whose value is not less than probe
// (standard lower_bound semantics), or NumCodes() if no such code exists.
func (d *Dictionary) LowerBound(probe types.TypedValue) (uint32, error) {
	lo, hi := uint32(0), d.numCodes
	for lo < hi {
		mid := lo + (hi-lo)/2
		less, err := d.less(mid, probe)
		if err != nil {
			return 0, err
		}
		if less {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// UpperBound returns the first code whose value is strictly greater than
// probe, or NumCodes() if no such code exists.
func (d *Dictionary) UpperBound(probe types.TypedValue) (uint32, error) {
	lo, hi := uint32(0), d.numCodes
	for lo < hi {
		mid := lo + (hi-lo)/2
		greater, err := d.probeLess(probe, mid)
		if err != nil {
			return 0, err
		}
		if greater {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, nil
}

// CodeFor returns the code for value via binary search, or NumCodes() as
// the not-found sentinel.
func (d *Dictionary) CodeFor(value types.TypedValue) (uint32, error) {
	lo, err := d.LowerBound(value)
	if err != nil {
		return 0, err
	}
	if lo >= d.numCodes {
		return d.numCodes, nil
	}
	v, err := d.ValueFor(lo)
	if err != nil {
		return 0, err
	}
	eq, err := types.EqualComparator(d.typ, value.Type)
	if err != nil {
		return 0, err
	}
	if eq.Compare(v, value) {
		return lo, nil
	}
	return d.numCodes, nil
}

// LimitCodes returns the half-open code range [lo, hi) whose values
// satisfy "value OP literal", per spec.md §4.2. NotEqual is disallowed:
// callers answer it as the complement of Equal.
func (d *Dictionary) LimitCodes(op types.Op, literal types.TypedValue) (lo, hi uint32, err error) {
	switch op {
	case types.Equal:
		code, err := d.CodeFor(literal)
		if err != nil {
			return 0, 0, err
		}
		if code == d.numCodes {
			return d.numCodes, d.numCodes, nil
		}
		return code, code + 1, nil
	case types.Less:
		b, err := d.LowerBound(literal)
		if err != nil {
			return 0, 0, err
		}
		return 0, b, nil
	case types.LessOrEqual:
		b, err := d.UpperBound(literal)
		if err != nil {
			return 0, 0, err
		}
		return 0, b, nil
	case types.Greater:
		b, err := d.UpperBound(literal)
		if err != nil {
			return 0, 0, err
		}
		return b, d.numCodes, nil
	case types.GreaterOrEqual:
		b, err := d.LowerBound(literal)
		if err != nil {
			return 0, 0, err
		}
		return b, d.numCodes, nil
	case types.NotEqual:
		panic("dict: LimitCodes does not support NotEqual; caller must use the complement of Equal")
	default:
		panic("dict: bad Op")
	}
}
