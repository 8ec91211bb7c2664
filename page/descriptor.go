package page

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/fenwickdb/coldb/internal/base"
)

// AttrDescriptor is one (attribute_size, dictionary_size) pair from the
// compressed page header's descriptor, spec.md §3/§6.
type AttrDescriptor struct {
	AttributeSize  int32
	DictionarySize int32
}

// Coding classifies the physical encoding implied by this descriptor
// entry: dictionary_size > 0 means dictionary coding; otherwise the
// attribute is raw if attribute_size equals the natural type width, or
// truncated if attribute_size is smaller (only valid for Int/Long).
func (d AttrDescriptor) Coding(naturalWidth int) Coding {
	if d.DictionarySize > 0 {
		return CodingDictionary
	}
	if int(d.AttributeSize) == naturalWidth {
		return CodingRaw
	}
	return CodingTruncated
}

// Descriptor enumerates, for each attribute id in [0, max_attribute_id],
// its (attribute_size, dictionary_size) pair (spec.md §6).
type Descriptor struct {
	Entries []AttrDescriptor
}

// Encode serializes the descriptor: num_entries (i32) followed by
// num_entries * (attribute_size i32, dictionary_size i32).
func (d Descriptor) Encode() []byte {
	out := make([]byte, 4+len(d.Entries)*8)
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(d.Entries)))
	for i, e := range d.Entries {
		off := 4 + i*8
		binary.LittleEndian.PutUint32(out[off:off+4], uint32(e.AttributeSize))
		binary.LittleEndian.PutUint32(out[off+4:off+8], uint32(e.DictionarySize))
	}
	return out
}

// DecodeDescriptor parses a Descriptor from the front of buf, returning
// the number of bytes consumed. It returns base.ErrMalformedBlock if buf
// is too short for the declared entry count.
func DecodeDescriptor(buf []byte) (Descriptor, int, error) {
	if len(buf) < 4 {
		return Descriptor{}, 0, errors.Wrapf(base.ErrMalformedBlock, "descriptor: truncated count")
	}
	n := binary.LittleEndian.Uint32(buf[0:4])
	need := 4 + int(n)*8
	if len(buf) < need {
		return Descriptor{}, 0, errors.Wrapf(base.ErrMalformedBlock, "descriptor: truncated entries (need %d have %d)", errors.Safe(need), errors.Safe(len(buf)))
	}
	entries := make([]AttrDescriptor, n)
	for i := range entries {
		off := 4 + i*8
		entries[i] = AttrDescriptor{
			AttributeSize:  int32(binary.LittleEndian.Uint32(buf[off : off+4])),
			DictionarySize: int32(binary.LittleEndian.Uint32(buf[off+4 : off+8])),
		}
	}
	return Descriptor{Entries: entries}, need, nil
}
