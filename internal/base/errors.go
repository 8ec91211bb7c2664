// Package base holds the sentinel error values and small shared types used
// across coldb's storage packages, mirroring the role of pebble's own
// internal/base package: a leaf dependency every other package imports.
package base

import "github.com/cockroachdb/errors"

// Sentinel errors returned by the storage core. Callers should compare
// against these with errors.Is; error sites wrap them with errors.Wrapf to
// add positional context.
var (
	// ErrFull is returned by inserts when there is no room left in the
	// target structure. Nothing is partially inserted.
	ErrFull = errors.New("coldb: structure is full")

	// ErrBlockMemoryTooSmall is returned when the physical memory backing a
	// page or index is too small to host the requested structure's
	// metadata.
	ErrBlockMemoryTooSmall = errors.New("coldb: block memory too small")

	// ErrMalformedBlock is returned when attaching to an existing sealed
	// block whose header or descriptor is internally inconsistent.
	ErrMalformedBlock = errors.New("coldb: malformed block")

	// ErrKeyTooLarge is returned when a CSB+-tree's key length would leave
	// fewer than two entries per node.
	ErrKeyTooLarge = errors.New("coldb: key too large for node size")

	// ErrTypeMismatch is raised at comparator construction when the two
	// operand types cannot be compared.
	ErrTypeMismatch = errors.New("coldb: type mismatch")

	// ErrCodeOutOfRange is returned by dictionary lookups with a code
	// greater than or equal to num_codes.
	ErrCodeOutOfRange = errors.New("coldb: dictionary code out of range")
)

// TupleID identifies a tuple within a single page. It is dense starting at
// zero, per page.
type TupleID int32

// BlockKind names a physical structure for BlockMemoryTooSmall errors.
type BlockKind int

const (
	KindSortedColumnStore BlockKind = iota
	KindCompressedPage
	KindCompressionDictionary
	KindCSBTree
)

func (k BlockKind) String() string {
	switch k {
	case KindSortedColumnStore:
		return "sorted-column-store-page"
	case KindCompressedPage:
		return "compressed-page"
	case KindCompressionDictionary:
		return "compression-dictionary"
	case KindCSBTree:
		return "csb-tree"
	default:
		return "unknown-block-kind"
	}
}

// NewBlockMemoryTooSmall wraps ErrBlockMemoryTooSmall with the offending
// kind and the number of bytes that were available.
func NewBlockMemoryTooSmall(kind BlockKind, bytes int) error {
	return errors.Wrapf(ErrBlockMemoryTooSmall, "%s needs more than %s bytes", kind, errors.Safe(bytes))
}
