// Package csbtree implements the CSB+-Tree Index of spec.md §3/§4.6: a
// cache-sensitive B+-tree whose internal nodes reference one contiguous
// "node group" of children rather than scattered individually-allocated
// nodes. Node groups are modeled as fixed-capacity Go slices rather than
// raw aligned memory (spec.md §9 notes the index's design leans on
// dynamic dispatch and cyclic references that a pointer-heavy port would
// reproduce awkwardly; a slice-addressed (group, slot) pair captures the
// same locality property idiomatically).
package csbtree

import (
	"github.com/cockroachdb/errors"
	"github.com/fenwickdb/coldb/internal/base"
	"github.com/fenwickdb/coldb/types"
)

// Node-group reference sentinels, spec.md §6.
const (
	NodeGroupNone     = -1 // no right sibling / no child group
	NodeGroupNextLeaf = -2 // right sibling is the next node within this same group
	NodeGroupFull     = -3 // internal "out of space" signal; never persisted
)

const nodeHeaderBytes = 8 // num_keys (u16) + is_leaf (bool) + node_group_reference (i32), rounded

// node is one internal or leaf node. Internal nodes use keys (len ==
// numKeys) and groupRef as the node group holding their numKeys+1
// children. Leaf nodes use keys/tuples in parallel (len == numKeys) and
// groupRef as the sibling-chain sentinel or pointer described in
// spec.md §6.
type node struct {
	isLeaf   bool
	numKeys  int
	keys     []types.TypedValue
	tuples   []base.TupleID // leaf only
	groupRef int
}

// Tree is a CSB+-Tree Index over a single attribute of relation. Keys
// passed to Insert/Remove/GetMatches are already in "key space": the
// attribute's natural value for an uncompressed index, or the coded
// integer (wrapped as an Int TypedValue) for an index built over a
// dictionary- or truncation-compressed attribute (spec.md §4.6,
// "key_is_compressed").
type Tree struct {
	less  types.LessThanComparator
	equal types.UncheckedComparator

	maxKeysInternal   int
	maxKeysLeaf       int
	smallHalfChildren int
	largeHalfChildren int
	smallHalfLeaf     int
	largeHalfLeaf     int
	groupCapacity     int

	groups   [][]node
	used     []bool
	nextFree int
	numFree  int
	rootGrp  int
}

// New builds a CSB+-Tree indexing a key of keyType (the natural
// attribute type, or a synthetic non-nullable Int type for compressed
// codes), using nodeSizeBytes-sized nodes and at most maxNodeGroups
// node groups total. It returns base.ErrKeyTooLarge if keyType is too
// wide to fit at least two keys per node (spec.md §4.6).
func New(keyType types.Type, nodeSizeBytes, maxNodeGroups int) (*Tree, error) {
	if keyType.ID.IsVariableLength() {
		return nil, errors.New("csbtree: index key must be fixed-length")
	}
	keyLen := keyType.ByteLength()
	tupleIDBytes := 4

	maxKeysInternal := (nodeSizeBytes - nodeHeaderBytes) / keyLen
	maxKeysLeaf := (nodeSizeBytes - nodeHeaderBytes) / (keyLen + tupleIDBytes)
	if maxKeysInternal < 2 || maxKeysLeaf < 2 {
		return nil, errors.Wrapf(base.ErrKeyTooLarge, "csbtree: key length %d too large for node size %d", errors.Safe(keyLen), errors.Safe(nodeSizeBytes))
	}

	less, err := types.MakeLessThan(keyType, keyType)
	if err != nil {
		return nil, err
	}
	equal, err := types.EqualComparator(keyType, keyType)
	if err != nil {
		return nil, err
	}

	groupCapacity := maxKeysInternal + 1
	t := &Tree{
		less:              less,
		equal:             equal,
		maxKeysInternal:   maxKeysInternal,
		maxKeysLeaf:       maxKeysLeaf,
		smallHalfChildren: (maxKeysInternal + 1 + 1) / 2,
		groupCapacity:     groupCapacity,
		smallHalfLeaf:     maxKeysLeaf / 2,
		groups:            make([][]node, maxNodeGroups),
		used:              make([]bool, maxNodeGroups),
	}
	t.largeHalfChildren = (maxKeysInternal + 1) - t.smallHalfChildren
	t.largeHalfLeaf = maxKeysLeaf - t.smallHalfLeaf

	t.clear()
	return t, nil
}

func (t *Tree) clear() {
	for i := range t.used {
		t.used[i] = false
		t.groups[i] = nil
	}
	t.nextFree = 0
	t.numFree = len(t.used)

	root, ok := t.allocateNodeGroup()
	if !ok {
		panic("csbtree: no node groups available for root")
	}
	t.rootGrp = root
	t.groups[root][0] = t.newLeaf()
}

func (t *Tree) newLeaf() node {
	return node{isLeaf: true, keys: make([]types.TypedValue, 0, t.maxKeysLeaf), tuples: make([]base.TupleID, 0, t.maxKeysLeaf), groupRef: NodeGroupNone}
}

func (t *Tree) newInternal() node {
	return node{isLeaf: false, keys: make([]types.TypedValue, 0, t.maxKeysInternal), groupRef: NodeGroupNone}
}

// allocateNodeGroup reserves a fresh, fully-allocated node group and
// returns its id. ok is false if no free node group remains.
func (t *Tree) allocateNodeGroup() (id int, ok bool) {
	if t.numFree == 0 {
		return 0, false
	}
	g := t.nextFree
	t.used[g] = true
	t.numFree--
	t.groups[g] = make([]node, t.groupCapacity)
	for t.nextFree < len(t.used) && t.used[t.nextFree] {
		t.nextFree++
	}
	return g, true
}

func (t *Tree) getNode(groupID, idx int) *node { return &t.groups[groupID][idx] }

func (t *Tree) root() *node { return t.getNode(t.rootGrp, 0) }

// NumFreeNodeGroups reports remaining node-group capacity.
func (t *Tree) NumFreeNodeGroups() int { return t.numFree }

// childIndex returns the child position to descend into for key, per
// spec.md §4.6.1: descend into i as soon as key < keys[i], or (to
// handle duplicates straddling node boundaries) keys[i] == key;
// otherwise keep scanning; fall through to the last child.
func (t *Tree) childIndex(n *node, key types.TypedValue) int {
	for i := 0; i < n.numKeys; i++ {
		if t.less.Less(key, n.keys[i]) || t.equal.Compare(n.keys[i], key) {
			return i
		}
	}
	return n.numKeys
}

// FindLeaf descends from the root to the leaf that would contain key,
// per spec.md §4.6.1.
func (t *Tree) FindLeaf(key types.TypedValue) (groupID, idx int) {
	groupID, idx = t.rootGrp, 0
	for {
		n := t.getNode(groupID, idx)
		if n.isLeaf {
			return groupID, idx
		}
		child := t.childIndex(n, key)
		groupID, idx = n.groupRef, child
	}
}
