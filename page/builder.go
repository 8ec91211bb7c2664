package page

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/fenwickdb/coldb/dict"
	"github.com/fenwickdb/coldb/internal/base"
	"github.com/fenwickdb/coldb/types"
)

const compressedHeaderFixedBytes = 4 + 4 // num_tuples, descriptor_length

// intTracker is the per-attribute "running maximum non-negative value"
// and "negative ever seen" state spec.md §4.4 requires for Int/Long
// attributes, to decide truncability at seal time.
type intTracker struct {
	maxNonNeg   uint64
	sawNonNeg   bool
	sawNegative bool
}

func (t intTracker) observe(v int64) intTracker {
	if v < 0 {
		t.sawNegative = true
		return t
	}
	u := uint64(v)
	if !t.sawNonNeg || u > t.maxNonNeg {
		t.maxNonNeg = u
		t.sawNonNeg = true
	}
	return t
}

// Builder accumulates candidate tuples for one CompressedPage and, at
// Seal, decides per-attribute coding independently (spec.md §4.4).
type Builder struct {
	relation    types.Relation
	sortAttrPos int
	layout      Layout
	pageBudget  int

	dictBuilders []*dict.Builder
	intTrackers  []intTracker

	tuples []types.Tuple
	sealed bool
}

// NewBuilder creates a CompressedPage builder for relation, emitting a
// payload of the given layout within pageBudget bytes once sealed.
// sortAttributeID is only consulted for Layout == ColumnStore, where it
// picks the attribute tuples are sorted by at seal time.
func NewBuilder(relation types.Relation, layout Layout, sortAttributeID, pageBudget int) (*Builder, error) {
	b := &Builder{
		relation:     relation,
		layout:       layout,
		pageBudget:   pageBudget,
		dictBuilders: make([]*dict.Builder, relation.NumAttributes()),
		intTrackers:  make([]intTracker, relation.NumAttributes()),
	}
	for i, a := range relation.Attributes() {
		b.dictBuilders[i] = dict.NewBuilder(a.Type)
	}
	if layout == ColumnStore {
		pos, err := attrPosition(relation, sortAttributeID)
		if err != nil {
			return nil, err
		}
		b.sortAttrPos = pos
	}
	return b, nil
}

// AddTuple coerces tuple's values to the relation's attribute types (if
// they differ but coerce), tentatively updates every attribute's
// dictionary builder and integer tracker, and accepts the tuple only if
// the resulting projected page size still fits the budget. On overflow
// every tentative update is rolled back and base.ErrFull is returned,
// leaving the builder byte-for-byte as it was before the call (spec.md
// P4).
func (b *Builder) AddTuple(tuple types.Tuple) error {
	if b.sealed {
		panic("page: AddTuple called after Seal")
	}
	attrs := b.relation.Attributes()
	coerced := make([]types.TypedValue, len(attrs))
	dictSnaps := make([][]types.TypedValue, len(attrs))
	trackersBefore := make([]intTracker, len(attrs))

	for i, a := range attrs {
		v := tuple.Values[i]
		if v.Type != a.Type && !v.Null {
			if !v.Type.CoercesTo(a.Type) {
				return errors.Wrapf(base.ErrTypeMismatch, "builder: attribute %d", errors.Safe(a.ID))
			}
			v = v.CoerceTo(a.Type)
		}
		coerced[i] = v

		dictSnaps[i] = b.dictBuilders[i].Snapshot()
		trackersBefore[i] = b.intTrackers[i]

		if !v.Null {
			if _, err := b.dictBuilders[i].Add(v); err != nil {
				b.rollback(dictSnaps, trackersBefore, i)
				return err
			}
			if a.Type.ID.IsInteger() {
				b.intTrackers[i] = b.intTrackers[i].observe(v.I64)
			}
		}
	}

	n1 := len(b.tuples) + 1
	projected := compressedHeaderFixedBytes + len(Descriptor{Entries: make([]AttrDescriptor, len(attrs))}.Encode()) + base.ChecksumTrailerBytes
	for i, a := range attrs {
		projected += b.projectedAttributeBytes(i, a.Type, n1)
	}
	if projected > b.pageBudget {
		b.rollback(dictSnaps, trackersBefore, len(attrs))
		return base.ErrFull
	}

	b.tuples = append(b.tuples, types.Tuple{Values: coerced})
	return nil
}

func (b *Builder) rollback(dictSnaps [][]types.TypedValue, trackersBefore []intTracker, upTo int) {
	for i := 0; i < upTo; i++ {
		b.dictBuilders[i].Restore(dictSnaps[i])
		b.intTrackers[i] = trackersBefore[i]
	}
}

// projectedAttributeBytes estimates the smallest total byte cost for
// attribute i if the page ends up holding n1 tuples, across every coding
// applicable to its type (spec.md §4.4 step 3).
func (b *Builder) projectedAttributeBytes(pos int, typ types.Type, n1 int) int {
	natural := typ.ByteLength() * n1

	if typ.ID.IsVariableLength() {
		return b.dictBuilders[pos].DictionaryBytes() + dict.CodeByteWidth(uint32(b.dictBuilders[pos].NumDistinct()))*n1
	}

	best := natural // raw is always an option for fixed-length types
	dictCost := b.dictBuilders[pos].DictionaryBytes() + dict.CodeByteWidth(uint32(b.dictBuilders[pos].NumDistinct()))*n1
	if dictCost < best {
		best = dictCost
	}
	if typ.ID.IsInteger() {
		tr := b.intTrackers[pos]
		if !tr.sawNegative {
			if w := truncationWidthFor(tr.maxNonNeg); w > 0 && w < typ.ByteLength() {
				truncCost := w * n1
				if truncCost < best {
					best = truncCost
				}
			}
		}
	}
	return best
}

// NumTuples returns the number of tuples currently buffered.
func (b *Builder) NumTuples() int { return len(b.tuples) }

// chosenCoding is the final per-attribute decision made at Seal.
type chosenCoding struct {
	coding Coding
	width  int // stored width in bytes
}

func (b *Builder) chooseCoding(pos int, a types.Attribute) chosenCoding {
	natural := a.Type.ByteLength()
	n := len(b.tuples)

	if a.Type.ID.IsVariableLength() {
		return chosenCoding{coding: CodingDictionary, width: dict.CodeByteWidth(uint32(b.dictBuilders[pos].NumDistinct()))}
	}

	dictCost := b.dictBuilders[pos].DictionaryBytes() + dict.CodeByteWidth(uint32(b.dictBuilders[pos].NumDistinct()))*n
	rawCost := natural * n
	best := chosenCoding{coding: CodingRaw, width: natural}
	bestCost := rawCost
	if dictCost < bestCost {
		best = chosenCoding{coding: CodingDictionary, width: dict.CodeByteWidth(uint32(b.dictBuilders[pos].NumDistinct()))}
		bestCost = dictCost
	}
	if a.Type.ID.IsInteger() {
		tr := b.intTrackers[pos]
		if !tr.sawNegative {
			if w := truncationWidthFor(tr.maxNonNeg); w > 0 && w < natural {
				truncCost := w * n
				if truncCost < bestCost {
					best = chosenCoding{coding: CodingTruncated, width: w}
					bestCost = truncCost
				}
			}
		}
	}
	return best
}

// Seal finalizes the page: it must be called exactly once. It builds the
// descriptor, writes dictionaries and the coded payload, appends the
// trailing checksum (spec.md §6), and returns the sealed sub-block's
// bytes. Calling Seal twice on the same Builder is a caller bug and
// panics, per spec.md §4.4.
func (b *Builder) Seal() ([]byte, error) {
	if b.sealed {
		panic("page: Seal called twice on the same Builder")
	}
	b.sealed = true

	attrs := b.relation.Attributes()
	choices := make([]chosenCoding, len(attrs))
	descriptor := Descriptor{Entries: make([]AttrDescriptor, len(attrs))}
	for i, a := range attrs {
		choices[i] = b.chooseCoding(i, a)
		var dictSize int32
		if choices[i].coding == CodingDictionary {
			dictSize = int32(b.dictBuilders[i].DictionaryBytes())
		}
		descriptor.Entries[i] = AttrDescriptor{
			AttributeSize:  int32(choices[i].width),
			DictionarySize: dictSize,
		}
	}

	descBytes := descriptor.Encode()
	var dictBytes [][]byte
	for i := range attrs {
		if choices[i].coding == CodingDictionary {
			dictBytes = append(dictBytes, b.dictBuilders[i].Build())
		}
	}

	tuples := b.tuples
	if b.layout == ColumnStore {
		tuples = b.sortedTuples()
	}

	payload, err := b.encodePayload(tuples, choices)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, compressedHeaderFixedBytes+len(descBytes)+sumLens(dictBytes)+len(payload))
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(tuples)))
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(descBytes)))
	out = append(out, header...)
	out = append(out, descBytes...)
	for _, db := range dictBytes {
		out = append(out, db...)
	}
	out = append(out, payload...)
	return base.AppendChecksumTrailer(out), nil
}

func sumLens(bs [][]byte) int {
	total := 0
	for _, b := range bs {
		total += len(b)
	}
	return total
}

func (b *Builder) sortedTuples() []types.Tuple {
	out := make([]types.Tuple, len(b.tuples))
	copy(out, b.tuples)
	attr := b.relation.Attributes()[b.sortAttrPos]
	less, _ := types.MakeLessThan(attr.Type, attr.Type)
	sortTuples(out, b.sortAttrPos, less)
	return out
}

func sortTuples(tuples []types.Tuple, pos int, less types.LessThanComparator) {
	// Insertion sort is adequate here: Seal runs once per page and page
	// tuple counts are bounded by the page budget, not by dataset size.
	for i := 1; i < len(tuples); i++ {
		for j := i; j > 0 && less.Less(tuples[j].Values[pos], tuples[j-1].Values[pos]); j-- {
			tuples[j], tuples[j-1] = tuples[j-1], tuples[j]
		}
	}
}

func (b *Builder) encodePayload(tuples []types.Tuple, choices []chosenCoding) ([]byte, error) {
	attrs := b.relation.Attributes()
	if b.layout == RowStore {
		rowWidth := 0
		for _, c := range choices {
			rowWidth += c.width
		}
		out := make([]byte, rowWidth*len(tuples))
		for r, tup := range tuples {
			off := r * rowWidth
			for i := range attrs {
				w := choices[i].width
				if err := b.encodeCodedValue(out[off:off+w], i, tup.Values[i], choices[i]); err != nil {
					return nil, err
				}
				off += w
			}
		}
		return out, nil
	}

	// ColumnStore: one contiguous stripe per attribute.
	n := len(tuples)
	stripeOffsets := make([]int, len(attrs))
	total := 0
	for i, c := range choices {
		stripeOffsets[i] = total
		total += c.width * n
	}
	out := make([]byte, total)
	for i := range attrs {
		w := choices[i].width
		stripeBase := stripeOffsets[i]
		for r, tup := range tuples {
			if err := b.encodeCodedValue(out[stripeBase+r*w:stripeBase+(r+1)*w], i, tup.Values[i], choices[i]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (b *Builder) encodeCodedValue(dst []byte, pos int, v types.TypedValue, c chosenCoding) error {
	switch c.coding {
	case CodingRaw:
		v.EncodeNatural(dst)
		return nil
	case CodingTruncated:
		putUintLE(dst, uint64(v.I64), c.width)
		return nil
	case CodingDictionary:
		code, err := b.dictBuilders[pos].CodeFor(v)
		if err != nil {
			return err
		}
		putUintLE(dst, uint64(code), c.width)
		return nil
	default:
		panic("page: bad coding")
	}
}

func putUintLE(dst []byte, v uint64, width int) {
	for i := 0; i < width; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}
