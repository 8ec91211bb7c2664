package page

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/fenwickdb/coldb/dict"
	"github.com/fenwickdb/coldb/internal/base"
	"github.com/fenwickdb/coldb/types"
)

// Reader interprets a sealed CompressedPage sub-block, in either physical
// layout, per spec.md §4.5. It parses the descriptor once on Attach and
// precomputes everything subsequent reads need.
type Reader struct {
	relation  types.Relation
	layout    Layout
	numTuples int
	maxTuples int // meaningful for ColumnStore only

	widths        []int
	codings       []Coding
	dictionaries  []*dict.Dictionary
	stripeOffsets []int // ColumnStore only
	rowWidth      int   // RowStore only
	payload       []byte
}

// Attach parses raw (the full sub-block: header, descriptor, dictionaries,
// coded payload) for relation under the given layout. It returns
// base.ErrMalformedBlock if the header or descriptor is internally
// inconsistent.
func Attach(raw []byte, relation types.Relation, layout Layout) (*Reader, error) {
	raw, err := base.SplitChecksumTrailer(raw)
	if err != nil {
		return nil, err
	}
	if len(raw) < 8 {
		return nil, errors.Wrapf(base.ErrMalformedBlock, "compressed page: header truncated")
	}
	numTuples := int(binary.LittleEndian.Uint32(raw[0:4]))
	descLen := int(binary.LittleEndian.Uint32(raw[4:8]))
	if len(raw) < 8+descLen {
		return nil, errors.Wrapf(base.ErrMalformedBlock, "compressed page: descriptor truncated")
	}

	descriptor, consumed, err := DecodeDescriptor(raw[8 : 8+descLen])
	if err != nil {
		return nil, err
	}
	if consumed != descLen {
		return nil, errors.Wrapf(base.ErrMalformedBlock, "compressed page: descriptor length mismatch")
	}
	if len(descriptor.Entries) != relation.NumAttributes() {
		return nil, errors.Wrapf(base.ErrMalformedBlock, "compressed page: descriptor has %d entries, relation has %d attributes",
			errors.Safe(len(descriptor.Entries)), errors.Safe(relation.NumAttributes()))
	}

	r := &Reader{relation: relation, layout: layout, numTuples: numTuples}
	cursor := 8 + descLen

	attrs := relation.Attributes()
	r.widths = make([]int, len(attrs))
	r.codings = make([]Coding, len(attrs))
	r.dictionaries = make([]*dict.Dictionary, len(attrs))
	for i, a := range attrs {
		entry := descriptor.Entries[i]
		r.widths[i] = int(entry.AttributeSize)
		r.codings[i] = entry.Coding(a.Type.ByteLength())
		if r.codings[i] == CodingTruncated && !a.Type.ID.IsInteger() {
			return nil, errors.Wrapf(base.ErrMalformedBlock, "compressed page: attribute %d truncated but not Int/Long", errors.Safe(a.ID))
		}
		if r.widths[i] != 0 && r.codings[i] != CodingRaw {
			switch r.widths[i] {
			case 1, 2, 4:
			default:
				return nil, errors.Wrapf(base.ErrMalformedBlock, "compressed page: attribute %d has bad code width %d", errors.Safe(a.ID), errors.Safe(r.widths[i]))
			}
		}
		if entry.DictionarySize > 0 {
			if len(raw) < cursor+int(entry.DictionarySize) {
				return nil, errors.Wrapf(base.ErrMalformedBlock, "compressed page: dictionary %d truncated", errors.Safe(a.ID))
			}
			d, err := dict.Attach(raw[cursor:cursor+int(entry.DictionarySize)], a.Type)
			if err != nil {
				return nil, err
			}
			r.dictionaries[i] = d
			cursor += int(entry.DictionarySize)
		} else if a.Type.ID.IsVariableLength() {
			return nil, errors.Wrapf(base.ErrMalformedBlock, "compressed page: variable-length attribute %d has no dictionary", errors.Safe(a.ID))
		}
	}

	r.payload = raw[cursor:]

	if layout == ColumnStore {
		sum := 0
		for _, w := range r.widths {
			sum += w
		}
		if sum == 0 {
			return nil, errors.Wrapf(base.ErrMalformedBlock, "compressed page: zero-width row in column-store layout")
		}
		r.maxTuples = len(r.payload) / sum
		r.stripeOffsets = make([]int, len(attrs))
		offset := 0
		for i, w := range r.widths {
			r.stripeOffsets[i] = offset
			offset += w * r.maxTuples
		}
	} else {
		for _, w := range r.widths {
			r.rowWidth += w
		}
		if len(r.payload) < r.rowWidth*r.numTuples {
			return nil, errors.Wrapf(base.ErrMalformedBlock, "compressed page: payload too short for row-store layout")
		}
	}

	return r, nil
}

// NumTuples returns the number of live tuples in the page.
func (r *Reader) NumTuples() int { return r.numTuples }

// MaxTuples returns the column-store stripe capacity implied by the page
// size (meaningless for RowStore).
func (r *Reader) MaxTuples() int { return r.maxTuples }

// Coding reports the physical coding chosen for attribute position pos.
func (r *Reader) Coding(pos int) Coding { return r.codings[pos] }

func (r *Reader) codeOffset(pos, tupleID int) (int, int) {
	w := r.widths[pos]
	if r.layout == ColumnStore {
		return r.stripeOffsets[pos] + tupleID*w, w
	}
	return tupleID*r.rowWidth + sumWidths(r.widths[:pos]), w
}

func sumWidths(ws []int) int {
	total := 0
	for _, w := range ws {
		total += w
	}
	return total
}

// GetCode returns the raw little-endian coded integer stored for
// (tupleID, attribute position pos): a dictionary code, a truncated
// integer, or (for CodingRaw integer attributes) the value itself.
func (r *Reader) GetCode(tupleID base.TupleID, pos int) uint64 {
	off, w := r.codeOffset(pos, int(tupleID))
	return getUintLE(r.payload[off:off+w], w)
}

func getUintLE(src []byte, width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		v |= uint64(src[i]) << (8 * i)
	}
	return v
}

// Get decodes the logical value of (tupleID, attribute) via attribute
// position pos, indirecting through the dictionary or widening a
// truncated code as needed.
func (r *Reader) Get(tupleID base.TupleID, pos int) (types.TypedValue, error) {
	attr := r.relation.Attributes()[pos]
	off, w := r.codeOffset(pos, int(tupleID))
	raw := r.payload[off : off+w]

	switch r.codings[pos] {
	case CodingRaw:
		return types.DecodeNatural(attr.Type, raw), nil
	case CodingTruncated:
		return types.TypedValue{Type: attr.Type, I64: int64(getUintLE(raw, w))}, nil
	case CodingDictionary:
		return r.dictionaries[pos].ValueFor(uint32(getUintLE(raw, w)))
	default:
		panic("page: bad coding")
	}
}

// GetByAttributeID is a convenience wrapper resolving an attribute id to
// its position before calling Get.
func (r *Reader) GetByAttributeID(tupleID base.TupleID, attributeID int) (types.TypedValue, error) {
	pos, err := attrPosition(r.relation, attributeID)
	if err != nil {
		return types.TypedValue{}, err
	}
	return r.Get(tupleID, pos)
}

// Matches evaluates predicate over the page. If predicate is a comparison
// on a compressed attribute, the comparison is pushed down onto coded
// values (spec.md §4.5); otherwise every tuple is scanned row-by-row.
func (r *Reader) Matches(predicate types.Predicate) ([]base.TupleID, error) {
	cmp, ok := predicate.AsComparison()
	if ok {
		if pos, err := attrPosition(r.relation, cmp.AttributeID); err == nil {
			switch r.codings[pos] {
			case CodingDictionary:
				return r.matchDictionary(pos, cmp)
			case CodingTruncated:
				return r.matchTruncated(pos, cmp)
			}
		}
	}
	return r.fullScan(predicate)
}

func (r *Reader) matchDictionary(pos int, cmp types.ComparisonPredicate) ([]base.TupleID, error) {
	d := r.dictionaries[pos]
	if cmp.Op == types.NotEqual {
		lo, hi, err := d.LimitCodes(types.Equal, cmp.Literal)
		if err != nil {
			return nil, err
		}
		return r.scanCodeRange(pos, uint64(lo), uint64(hi), true), nil
	}
	lo, hi, err := d.LimitCodes(cmp.Op, cmp.Literal)
	if err != nil {
		return nil, err
	}
	return r.scanCodeRange(pos, uint64(lo), uint64(hi), false), nil
}

func (r *Reader) matchTruncated(pos int, cmp types.ComparisonPredicate) ([]base.TupleID, error) {
	alwaysTrue, alwaysFalse, lo, hi, exclude := TruncatedCodeRange(cmp.Op, cmp.Literal, r.widths[pos])
	if alwaysTrue {
		out := make([]base.TupleID, r.numTuples)
		for i := range out {
			out[i] = base.TupleID(i)
		}
		return out, nil
	}
	if alwaysFalse {
		return nil, nil
	}
	return r.scanCodeRange(pos, lo, hi, exclude), nil
}

func (r *Reader) scanCodeRange(pos int, lo, hi uint64, exclude bool) []base.TupleID {
	out := make([]base.TupleID, 0)
	for i := 0; i < r.numTuples; i++ {
		code := r.GetCode(base.TupleID(i), pos)
		inRange := code >= lo && code < hi
		if inRange != exclude {
			out = append(out, base.TupleID(i))
		}
	}
	return out
}

func (r *Reader) fullScan(predicate types.Predicate) ([]base.TupleID, error) {
	out := make([]base.TupleID, 0)
	var evalErr error
	for i := 0; i < r.numTuples; i++ {
		id := base.TupleID(i)
		get := func(attributeID int) types.TypedValue {
			v, err := r.GetByAttributeID(id, attributeID)
			if err != nil {
				evalErr = err
			}
			return v
		}
		if predicate.Evaluate(get) {
			out = append(out, id)
		}
		if evalErr != nil {
			return nil, evalErr
		}
	}
	return out, nil
}

// effectiveLiteral computes L, the integer literal a truncated-attribute
// comparison actually compares against, per spec.md §4.5.1: a fractional
// floating point literal is ceilinged under < and >=, floored under <=
// and > (e.g. v < 2.5 selects exactly the same integers as v < ceil(2.5)
// = v < 3; v <= 2.5 selects the same integers as v <= floor(2.5) = v <= 2).
func effectiveLiteral(op types.Op, lit types.TypedValue) (L int64, hadFraction bool) {
	if lit.Type.ID.IsInteger() {
		return lit.I64, false
	}
	f := lit.F64
	hadFraction = f != math.Trunc(f)
	switch op {
	case types.Less, types.GreaterOrEqual:
		return int64(math.Ceil(f)), hadFraction
	default: // LessOrEqual, Greater, Equal, NotEqual
		return int64(math.Floor(f)), hadFraction
	}
}

// TruncatedCodeRange implements the saturation table of spec.md §4.5.1,
// resolving a comparison against a truncated integer attribute to either
// an always-true/always-false decision, or a [lo, hi) code range (with
// exclude meaning "match codes NOT in this range", used for NotEqual).
// Exported so exec can reuse it verbatim when an index key is a truncated
// attribute (spec.md §4.6.4: "translate the literal to codes as in §4.5").
func TruncatedCodeRange(op types.Op, lit types.TypedValue, width int) (alwaysTrue, alwaysFalse bool, lo, hi uint64, exclude bool) {
	U := maxTruncatedValue(width)
	L, hadFraction := effectiveLiteral(op, lit)

	switch op {
	case types.Equal:
		alwaysFalse = L < 0 || uint64(L) > U || hadFraction
	case types.NotEqual:
		alwaysTrue = L < 0 || uint64(L) > U || hadFraction
	case types.Less:
		alwaysTrue = L > int64(U)
		alwaysFalse = L <= 0
	case types.LessOrEqual:
		alwaysTrue = L >= int64(U)
		alwaysFalse = L < 0
	case types.Greater:
		alwaysTrue = L < 0
		alwaysFalse = L >= int64(U)
	case types.GreaterOrEqual:
		alwaysTrue = L <= 0
		alwaysFalse = L > int64(U)
	}
	if alwaysTrue || alwaysFalse {
		return
	}

	switch op {
	case types.Equal:
		lo, hi = uint64(L), uint64(L)+1
	case types.NotEqual:
		lo, hi, exclude = uint64(L), uint64(L)+1, true
	case types.Less:
		lo, hi = 0, uint64(L)
	case types.LessOrEqual: // rewritten as Less with L+1
		lo, hi = 0, uint64(L)+1
	case types.Greater: // rewritten as GreaterOrEqual with L+1
		lo, hi = uint64(L)+1, U+1
	case types.GreaterOrEqual:
		lo, hi = uint64(L), U+1
	}
	return
}
