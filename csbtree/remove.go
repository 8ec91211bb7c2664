package csbtree

import (
	"github.com/fenwickdb/coldb/internal/base"
	"github.com/fenwickdb/coldb/types"
)

// Remove deletes (tuple, key) from the tree. Per spec.md §4.6.3, removal
// never rebalances: it only walks the sibling chain from the leaf that
// key would descend into, looking for the exact (key, tuple) pair
// (duplicate keys can straddle several leaves), and shifts the
// remaining entries of that leaf left by one slot. Underflowed leaves
// are tolerated until the next Rebuild.
//
// Removing a (tuple, key) pair that is not present is a caller
// precondition violation, not a recoverable error (spec.md §7: "removing
// a non-existent entry" is fatal, like other detected caller bugs), so
// it panics rather than returning an error.
func (t *Tree) Remove(tuple base.TupleID, key types.TypedValue) {
	groupID, idx := t.FindLeaf(key)
	for {
		leaf := t.getNode(groupID, idx)
		for i := 0; i < leaf.numKeys; i++ {
			if t.equal.Compare(leaf.keys[i], key) && leaf.tuples[i] == tuple {
				copy(leaf.keys[i:], leaf.keys[i+1:])
				copy(leaf.tuples[i:], leaf.tuples[i+1:])
				leaf.keys = leaf.keys[:leaf.numKeys-1]
				leaf.tuples = leaf.tuples[:leaf.numKeys-1]
				leaf.numKeys--
				return
			}
		}
		nextGroupID, nextIdx, ok := t.nextLeaf(groupID, idx)
		if !ok {
			panic("csbtree: remove of non-existent (key, tuple) entry")
		}
		// Stop walking once keys strictly exceed the sought key: the
		// sibling chain is sorted, so a matching (key, tuple) pair
		// cannot appear further right.
		next := t.getNode(nextGroupID, nextIdx)
		if next.numKeys > 0 && t.less.Less(key, next.keys[0]) {
			panic("csbtree: remove of non-existent (key, tuple) entry")
		}
		groupID, idx = nextGroupID, nextIdx
	}
}

// nextLeaf resolves the sibling-chain pointer stored in groupRef for
// the leaf at (groupID, idx), per spec.md §6.
func (t *Tree) nextLeaf(groupID, idx int) (nextGroupID, nextIdx int, ok bool) {
	leaf := t.getNode(groupID, idx)
	switch leaf.groupRef {
	case NodeGroupNone:
		return 0, 0, false
	case NodeGroupNextLeaf:
		return groupID, idx + 1, true
	default:
		return leaf.groupRef, 0, true
	}
}
