// Package page implements the two uncompressed/compressed tuple-storage
// layouts of spec.md §3-§4.5: the fully sorted column-store page, and the
// compressed page builder/reader (dictionary coding, integer truncation,
// row-store and column-store physical layouts).
package page

import (
	"encoding/binary"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/fenwickdb/coldb/internal/base"
	"github.com/fenwickdb/coldb/types"
)

const sortedHeaderBytes = 4 // num_tuples: i32

// SortedPage is the "Sorted Column-Store Page" of spec.md §3: a
// fixed-schema page whose rows are always ordered by one designated sort
// attribute, laid out as one contiguous stripe per attribute.
//
// Invariants maintained by this type: stripes are packed with no gaps;
// for all i < j, sort-attribute value at i is <= value at j once
// rebuild() has run; num_tuples <= max_tuples; no variable-length or
// nullable attribute is supported (IsFixedLength() must hold).
type SortedPage struct {
	relation    types.Relation
	sortAttrPos int
	widths      []int
	stripes     [][]byte
	maxTuples   int
	numTuples   int
	sorted      bool
}

// NewSortedPage allocates a new sorted column-store page for relation,
// sorted on sortAttributeID, sized to fit within pageBytes total
// (including the 4-byte header). It returns
// base.NewBlockMemoryTooSmall(KindSortedColumnStore, ...) if pageBytes
// cannot fit even a single tuple.
func NewSortedPage(relation types.Relation, sortAttributeID, pageBytes int) (*SortedPage, error) {
	if !relation.IsFixedLength() {
		return nil, errors.New("page: sorted column-store page requires an all-fixed-length, non-nullable relation")
	}
	pos, err := attrPosition(relation, sortAttributeID)
	if err != nil {
		return nil, err
	}

	fixedTupleBytes := relation.FixedTupleBytes()
	avail := pageBytes - sortedHeaderBytes
	if avail < fixedTupleBytes {
		return nil, base.NewBlockMemoryTooSmall(base.KindSortedColumnStore, pageBytes)
	}
	maxTuples := avail / fixedTupleBytes

	attrs := relation.Attributes()
	widths := make([]int, len(attrs))
	stripes := make([][]byte, len(attrs))
	for i, a := range attrs {
		widths[i] = a.Type.ByteLength()
		stripes[i] = make([]byte, maxTuples*widths[i])
	}

	return &SortedPage{
		relation:    relation,
		sortAttrPos: pos,
		widths:      widths,
		stripes:     stripes,
		maxTuples:   maxTuples,
		sorted:      true,
	}, nil
}

func attrPosition(relation types.Relation, attributeID int) (int, error) {
	for i, a := range relation.Attributes() {
		if a.ID == attributeID {
			return i, nil
		}
	}
	return 0, errors.Newf("page: attribute %d not found in relation", attributeID)
}

// NumTuples returns the number of live tuples in the page.
func (p *SortedPage) NumTuples() int { return p.numTuples }

// MaxTuples returns the page's fixed tuple capacity.
func (p *SortedPage) MaxTuples() int { return p.maxTuples }

// IsSorted reports whether the sort invariant currently holds (false
// right after InsertBatch, until Rebuild runs).
func (p *SortedPage) IsSorted() bool { return p.sorted }

func (p *SortedPage) valueAt(pos, tupleID int) types.TypedValue {
	width := p.widths[pos]
	attr := p.relation.Attributes()[pos]
	start := tupleID * width
	return types.DecodeNatural(attr.Type, p.stripes[pos][start:start+width])
}

func (p *SortedPage) writeAt(pos, tupleID int, v types.TypedValue) {
	width := p.widths[pos]
	start := tupleID * width
	v.EncodeNatural(p.stripes[pos][start : start+width])
}

// Get returns the value of attribute attributeID at tupleID. It is an
// O(1) lookup directly into the backing stripe.
func (p *SortedPage) Get(tupleID base.TupleID, attributeID int) (types.TypedValue, error) {
	pos, err := attrPosition(p.relation, attributeID)
	if err != nil {
		return types.TypedValue{}, err
	}
	return p.valueAt(pos, int(tupleID)), nil
}

// Insert inserts tuple at the position that keeps the sort-attribute
// stripe ordered, shifting every stripe's subsequent entries by one slot.
// It returns base.ErrFull if the page has no remaining capacity.
func (p *SortedPage) Insert(tuple types.Tuple) (base.TupleID, error) {
	if p.numTuples == p.maxTuples {
		return 0, base.ErrFull
	}
	sortVal := tuple.Values[p.sortAttrPos]
	idx, err := p.upperBoundSortPosition(sortVal)
	if err != nil {
		return 0, err
	}

	for pos := range p.stripes {
		width := p.widths[pos]
		stripe := p.stripes[pos]
		copy(stripe[(idx+1)*width:(p.numTuples+1)*width], stripe[idx*width:p.numTuples*width])
		start := idx * width
		tuple.Values[pos].EncodeNatural(stripe[start : start+width])
	}
	p.numTuples++
	return base.TupleID(idx), nil
}

// upperBoundSortPosition returns the first tuple index whose sort value is
// strictly greater than val (i.e. the insertion point preserving order).
func (p *SortedPage) upperBoundSortPosition(val types.TypedValue) (int, error) {
	attr := p.relation.Attributes()[p.sortAttrPos]
	less, err := types.MakeLessThan(val.Type, attr.Type)
	if err != nil {
		return 0, err
	}
	lo, hi := 0, p.numTuples
	for lo < hi {
		mid := lo + (hi-lo)/2
		if less.Less(val, p.valueAt(p.sortAttrPos, mid)) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, nil
}

// InsertBatch appends tuple at the end of the page, unordered. The sort
// invariant is marked dirty until the next Rebuild(). Returns base.ErrFull
// if there is no remaining capacity.
func (p *SortedPage) InsertBatch(tuple types.Tuple) (base.TupleID, error) {
	if p.numTuples == p.maxTuples {
		return 0, base.ErrFull
	}
	id := p.numTuples
	for pos := range p.stripes {
		p.writeAt(pos, id, tuple.Values[pos])
	}
	p.numTuples++
	p.sorted = false
	return base.TupleID(id), nil
}

// Delete removes tupleID. If it is the last live tuple, the count is
// simply decremented; otherwise every subsequent tuple is shifted left by
// one slot in every stripe.
func (p *SortedPage) Delete(tupleID base.TupleID) {
	id := int(tupleID)
	if id == p.numTuples-1 {
		p.numTuples--
		return
	}
	for pos, stripe := range p.stripes {
		width := p.widths[pos]
		copy(stripe[id*width:(p.numTuples-1)*width], stripe[(id+1)*width:p.numTuples*width])
	}
	p.numTuples--
}

// Matches evaluates predicate over the page. If predicate is a comparison
// on the sort attribute, it resolves to a contiguous tuple-id range via
// binary search; otherwise every live tuple is scanned with
// Predicate.Evaluate.
func (p *SortedPage) Matches(predicate types.Predicate) ([]base.TupleID, error) {
	if cmp, ok := predicate.AsComparison(); ok {
		if pos, err := attrPosition(p.relation, cmp.AttributeID); err == nil && pos == p.sortAttrPos && p.sorted {
			return p.sortedRangeMatch(cmp)
		}
	}
	return p.fullScan(predicate)
}

func (p *SortedPage) sortedRangeMatch(cmp types.ComparisonPredicate) ([]base.TupleID, error) {
	var lo, hi int
	var err error
	switch cmp.Op {
	case types.Equal:
		lo, err = p.lowerBoundSort(cmp.Literal)
		if err == nil {
			hi, err = p.upperBoundSortPosition(cmp.Literal)
		}
	case types.Less:
		lo, hi = 0, 0
		hi, err = p.lowerBoundSort(cmp.Literal)
	case types.LessOrEqual:
		lo = 0
		hi, err = p.upperBoundSortPosition(cmp.Literal)
	case types.Greater:
		lo, err = p.upperBoundSortPosition(cmp.Literal)
		hi = p.numTuples
	case types.GreaterOrEqual:
		lo, err = p.lowerBoundSort(cmp.Literal)
		hi = p.numTuples
	default: // NotEqual does not reduce to one contiguous range
		return p.fullScan(types.NewComparison(cmp.AttributeID, cmp.Op, cmp.Literal))
	}
	if err != nil {
		return nil, err
	}
	if lo > hi {
		lo = hi
	}
	out := make([]base.TupleID, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, base.TupleID(i))
	}
	return out, nil
}

func (p *SortedPage) lowerBoundSort(val types.TypedValue) (int, error) {
	attr := p.relation.Attributes()[p.sortAttrPos]
	less, err := types.MakeLessThan(attr.Type, val.Type)
	if err != nil {
		return 0, err
	}
	lo, hi := 0, p.numTuples
	for lo < hi {
		mid := lo + (hi-lo)/2
		if less.Less(p.valueAt(p.sortAttrPos, mid), val) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

func (p *SortedPage) fullScan(predicate types.Predicate) ([]base.TupleID, error) {
	out := make([]base.TupleID, 0)
	for i := 0; i < p.numTuples; i++ {
		id := i
		get := func(attributeID int) types.TypedValue {
			pos, _ := attrPosition(p.relation, attributeID)
			return p.valueAt(pos, id)
		}
		if predicate.Evaluate(get) {
			out = append(out, base.TupleID(i))
		}
	}
	return out, nil
}

// Rebuild restores the sort invariant after one or more InsertBatch calls.
// It returns false without doing any work if the page is already sorted.
func (p *SortedPage) Rebuild() (bool, error) {
	if p.sorted {
		return false, nil
	}

	type entry struct {
		val types.TypedValue
		id  int
	}
	entries := make([]entry, p.numTuples)
	for i := 0; i < p.numTuples; i++ {
		entries[i] = entry{val: p.valueAt(p.sortAttrPos, i), id: i}
	}

	attr := p.relation.Attributes()[p.sortAttrPos]
	less, err := types.MakeLessThan(attr.Type, attr.Type)
	if err != nil {
		return false, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return less.Less(entries[i].val, entries[j].val)
	})

	// Longest already-sorted prefix: positions where entries[i].id == i.
	prefix := 0
	for prefix < len(entries) && entries[prefix].id == prefix {
		prefix++
	}

	for pos, width := range p.widths {
		if prefix == len(entries) {
			break
		}
		tailLen := len(entries) - prefix
		scratch := make([]byte, tailLen*width)
		for i := prefix; i < len(entries); i++ {
			srcID := entries[i].id
			copy(scratch[(i-prefix)*width:(i-prefix+1)*width], p.stripes[pos][srcID*width:(srcID+1)*width])
		}
		copy(p.stripes[pos][prefix*width:len(entries)*width], scratch)
	}

	p.sorted = true
	return true, nil
}

// EncodeHeader writes the page's num_tuples header (spec.md §6) to dst,
// which must be at least sortedHeaderBytes long.
func (p *SortedPage) EncodeHeader(dst []byte) {
	binary.LittleEndian.PutUint32(dst, uint32(p.numTuples))
}
