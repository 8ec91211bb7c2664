package base

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

// ChecksumTrailerBytes is the fixed size of the trailing checksum every
// sealed sub-block carries, per spec.md §6's addition: an 8 byte
// xxhash64 digest over the block's own bytes, mirroring the pebble block
// trailer's ChecksumTypeXXHash64 (sstable/table.go's footer.checksum).
const ChecksumTrailerBytes = 8

// AppendChecksumTrailer returns payload with an 8 byte little-endian
// xxhash64 digest of payload appended.
func AppendChecksumTrailer(payload []byte) []byte {
	sum := xxhash.Sum64(payload)
	out := make([]byte, len(payload)+ChecksumTrailerBytes)
	copy(out, payload)
	binary.LittleEndian.PutUint64(out[len(payload):], sum)
	return out
}

// SplitChecksumTrailer verifies raw's trailing 8 byte xxhash64 digest and
// returns the bytes preceding it. It returns ErrMalformedBlock if raw is
// too short to carry a trailer or the digest does not match.
func SplitChecksumTrailer(raw []byte) ([]byte, error) {
	if len(raw) < ChecksumTrailerBytes {
		return nil, errors.Wrapf(ErrMalformedBlock, "checksum trailer truncated (%d bytes)", errors.Safe(len(raw)))
	}
	body := raw[:len(raw)-ChecksumTrailerBytes]
	want := binary.LittleEndian.Uint64(raw[len(raw)-ChecksumTrailerBytes:])
	got := xxhash.Sum64(body)
	if got != want {
		return nil, errors.Wrapf(ErrMalformedBlock, "checksum mismatch: block corrupt or truncated")
	}
	return body, nil
}
