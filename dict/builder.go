package dict

import (
	"encoding/binary"

	"golang.org/x/exp/slices"

	"github.com/fenwickdb/coldb/types"
)

// Builder accumulates distinct values for one attribute while a
// CompressedPageBuilder is buffering candidate tuples, keeping them in
// sorted order so that Build can emit the final physical dictionary
// without a second sort pass. Per spec.md §4.4, the builder must support
// byte-identical rollback of a tentative insertion; Snapshot/Restore
// gives the page builder that without Builder needing to know about the
// page builder's projected-size bookkeeping.
type Builder struct {
	typ    types.Type
	values []types.TypedValue // sorted ascending, deduplicated
}

// NewBuilder creates an empty dictionary builder for attribute type typ.
func NewBuilder(typ types.Type) *Builder {
	return &Builder{typ: typ}
}

// Snapshot returns an opaque copy of the builder's current state, to be
// passed back to Restore if a tentative Add must be rolled back.
func (b *Builder) Snapshot() []types.TypedValue {
	return append([]types.TypedValue(nil), b.values...)
}

// Restore resets the builder to a previously captured Snapshot.
func (b *Builder) Restore(snap []types.TypedValue) {
	b.values = snap
}

// Add inserts value into the sorted, deduplicated value set if not
// already present. It reports whether the set actually changed (i.e.
// value was not a duplicate), which the page builder uses to decide
// whether the projected dictionary size grew.
func (b *Builder) Add(value types.TypedValue) (changed bool, err error) {
	less, err := types.MakeLessThan(b.typ, b.typ)
	if err != nil {
		return false, err
	}
	idx, found := slices.BinarySearchFunc(b.values, value, func(a, probe types.TypedValue) int {
		switch {
		case less.Less(a, probe):
			return -1
		case less.Less(probe, a):
			return 1
		default:
			return 0
		}
	})
	if found {
		return false, nil
	}
	b.values = slices.Insert(b.values, idx, value)
	return true, nil
}

// NumDistinct returns the number of distinct values accumulated so far
// (the dictionary's eventual num_codes).
func (b *Builder) NumDistinct() int { return len(b.values) }

// TotalValueBytes returns the total logical byte length of all distinct
// values: for fixed-length types this is NumDistinct()*width; for
// variable-length types it is the sum of each value's trimmed length (the
// eventual value-blob size).
func (b *Builder) TotalValueBytes() int {
	if !b.typ.ID.IsVariableLength() {
		return len(b.values) * b.typ.ByteLength()
	}
	total := 0
	for _, v := range b.values {
		total += len(v.Raw)
	}
	return total
}

// DictionaryBytes returns the total physical size Build() will produce:
// the 4-byte num_codes header, plus either the fixed-value array or the
// offsets table and value blob.
func (b *Builder) DictionaryBytes() int {
	if !b.typ.ID.IsVariableLength() {
		return 4 + b.TotalValueBytes()
	}
	return 4 + (len(b.values)+1)*4 + b.TotalValueBytes()
}

// Build serializes the accumulated, sorted value set into the physical
// dictionary layout of spec.md §6.
func (b *Builder) Build() []byte {
	out := make([]byte, b.DictionaryBytes())
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(b.values)))

	if !b.typ.ID.IsVariableLength() {
		width := b.typ.ByteLength()
		for i, v := range b.values {
			v.EncodeNatural(out[4+i*width : 4+(i+1)*width])
		}
		return out
	}

	offsetsBase := 4
	blobBase := offsetsBase + (len(b.values)+1)*4
	cursor := uint32(0)
	for i, v := range b.values {
		binary.LittleEndian.PutUint32(out[offsetsBase+4*i:], cursor)
		copy(out[blobBase+int(cursor):], v.Raw)
		cursor += uint32(len(v.Raw))
	}
	binary.LittleEndian.PutUint32(out[offsetsBase+4*len(b.values):], cursor)
	return out
}

// CodeFor returns the code Build() will assign to value, or
// NumDistinct() if value is not present in the builder's value set. It is
// used by the page builder at seal time to translate buffered tuples into
// codes without re-attaching the sealed Dictionary.
func (b *Builder) CodeFor(value types.TypedValue) (uint32, error) {
	less, err := types.MakeLessThan(b.typ, b.typ)
	if err != nil {
		return 0, err
	}
	idx, found := slices.BinarySearchFunc(b.values, value, func(a, probe types.TypedValue) int {
		switch {
		case less.Less(a, probe):
			return -1
		case less.Less(probe, a):
			return 1
		default:
			return 0
		}
	})
	if !found {
		return uint32(len(b.values)), nil
	}
	return uint32(idx), nil
}
