package csbtree

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/fenwickdb/coldb/internal/base"
	"github.com/fenwickdb/coldb/types"
)

// Entry is one (key, tuple) pair fed to Rebuild.
type Entry struct {
	Key   types.TypedValue
	Tuple base.TupleID
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// rebuildRequiredGroups mirrors the bottom-up level construction in
// Rebuild to compute, without mutating anything, the total node groups
// a from-scratch rebuild of numEntries entries would need: spec.md
// §4.6.5's space precheck. The count includes the group clear()
// allocates for the empty root leaf, which Rebuild does not reuse.
func (t *Tree) rebuildRequiredGroups(numEntries int) int {
	if numEntries == 0 {
		return 1 // only the empty root leaf clear() allocates
	}
	entriesPerGroup := t.maxKeysLeaf * t.groupCapacity
	groupsAtLevel := ceilDiv(numEntries, entriesPerGroup)
	total := groupsAtLevel
	for groupsAtLevel > 1 {
		groupsAtLevel = ceilDiv(groupsAtLevel, t.groupCapacity)
		total += groupsAtLevel
	}
	return total + 2 // the root's own dedicated group, plus clear()'s root-leaf group
}

// Rebuild discards the tree's current contents and constructs a fresh,
// perfectly-packed tree over entries, per spec.md §4.6.5: a space
// precheck, then leaves filled left to right with sibling-chain wiring,
// a rebalance of an under-filled final leaf group against its
// predecessor, and internal levels built bottom-up from each child
// group's least key. It returns base.ErrFull (with the tree left as it
// was before the call) if entries cannot fit in the node groups this
// Tree was constructed with.
func (t *Tree) Rebuild(entries []Entry) error {
	required := t.rebuildRequiredGroups(len(entries))
	if required > len(t.used) {
		return errors.Wrapf(base.ErrFull, "csbtree: rebuild needs %d node groups, have %d", errors.Safe(required), errors.Safe(len(t.used)))
	}

	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return t.less.Less(sorted[i].Key, sorted[j].Key) })

	t.clear()
	if len(sorted) == 0 {
		return nil
	}

	groupIDs, counts := t.buildLeafLevel(sorted)
	t.rebalanceLastLeafGroup(groupIDs, counts)
	leastKeys := t.leafGroupChildLeastKeys(groupIDs, counts)

	for len(groupIDs) > 1 {
		groupIDs, counts, leastKeys = t.buildInternalLevel(groupIDs, counts, leastKeys)
	}

	newRootGroup, ok := t.allocateNodeGroup()
	if !ok {
		panic("csbtree: node-group allocation failed after successful pre-check")
	}
	root := t.newInternal()
	root.groupRef = groupIDs[0]
	// leastKeys holds every child's least key, flattened across
	// groupIDs[0]'s nodes; the root's own keys are the discriminators
	// between them (the first child's least key is implied), matching
	// buildInternalLevel's own "keys = leastKeys[1:]" convention.
	root.keys = append(root.keys, leastKeys[1:]...)
	root.numKeys = len(root.keys)
	t.groups[newRootGroup][0] = root
	t.rootGrp = newRootGroup
	return nil
}

// buildLeafLevel fills consecutive node groups with leaves holding up
// to maxKeysLeaf sorted entries each, wiring the sibling chain both
// within and across groups. It returns each leaf group's id and the
// number of leaf nodes placed in it.
func (t *Tree) buildLeafLevel(sorted []Entry) (groupIDs, counts []int) {
	prevGroupID, prevLastIdx := -1, -1
	i := 0
	for i < len(sorted) {
		groupID, ok := t.allocateNodeGroup()
		if !ok {
			panic("csbtree: node-group allocation failed after successful pre-check")
		}
		if prevGroupID != -1 {
			t.groups[prevGroupID][prevLastIdx].groupRef = groupID
		}

		slot := 0
		for slot < t.groupCapacity && i < len(sorted) {
			end := i + t.maxKeysLeaf
			if end > len(sorted) {
				end = len(sorted)
			}
			keys := make([]types.TypedValue, end-i)
			tuples := make([]base.TupleID, end-i)
			for j := i; j < end; j++ {
				keys[j-i] = sorted[j].Key
				tuples[j-i] = sorted[j].Tuple
			}
			t.groups[groupID][slot] = node{isLeaf: true, keys: keys, tuples: tuples, numKeys: len(keys), groupRef: NodeGroupNone}
			i = end
			if slot+1 < t.groupCapacity && i < len(sorted) {
				t.groups[groupID][slot].groupRef = NodeGroupNextLeaf
			}
			slot++
		}

		groupIDs = append(groupIDs, groupID)
		counts = append(counts, slot)
		prevGroupID, prevLastIdx = groupID, slot-1
	}
	return groupIDs, counts
}

// rebalanceLastLeafGroup moves leaves from the end of the
// second-to-last leaf group into the front of the last one if the last
// one ended up below largeHalfChildren leaves, per spec.md §4.6.5.
func (t *Tree) rebalanceLastLeafGroup(groupIDs, counts []int) {
	n := len(groupIDs)
	if n < 2 || counts[n-1] >= t.largeHalfChildren {
		return
	}
	prevID, lastID := groupIDs[n-2], groupIDs[n-1]
	prevCount, lastCount := counts[n-2], counts[n-1]
	combined := prevCount + lastCount
	newLastCount := combined / 2
	move := newLastCount - lastCount
	if move <= 0 {
		return
	}

	prevGrp, lastGrp := t.groups[prevID], t.groups[lastID]
	copy(lastGrp[move:move+lastCount], lastGrp[:lastCount])
	copy(lastGrp[:move], prevGrp[prevCount-move:prevCount])
	lastGrp[move-1].groupRef = NodeGroupNextLeaf

	newPrevCount := prevCount - move
	counts[n-2], counts[n-1] = newPrevCount, newLastCount
	if newPrevCount > 0 {
		prevGrp[newPrevCount-1].groupRef = lastID
	}
}

// leafGroupChildLeastKeys reads back each leaf's own least key
// (keys[0]) after buildLeafLevel and rebalanceLastLeafGroup have
// settled the final physical layout, flattened in left-to-right order.
func (t *Tree) leafGroupChildLeastKeys(groupIDs, counts []int) []types.TypedValue {
	out := make([]types.TypedValue, 0)
	for g, groupID := range groupIDs {
		for slot := 0; slot < counts[g]; slot++ {
			out = append(out, t.groups[groupID][slot].keys[0])
		}
	}
	return out
}

// buildInternalLevel builds exactly one internal node per existing
// child group (that node's keys are the least keys of its group's
// children after the first, per the standard B+-tree discriminator
// convention), then packs those new nodes into fresh node groups of up
// to groupCapacity each to serve as children for the next level up.
func (t *Tree) buildInternalLevel(childGroupIDs, childCounts []int, childLeastKeys []types.TypedValue) (groupIDs, counts []int, leastKeys []types.TypedValue) {
	newNodes := make([]node, len(childGroupIDs))
	newLeastKeys := make([]types.TypedValue, len(childGroupIDs))
	offset := 0
	for g, groupID := range childGroupIDs {
		count := childCounts[g]
		ownLeastKeys := childLeastKeys[offset : offset+count]
		offset += count
		n := t.newInternal()
		n.groupRef = groupID
		n.keys = append(n.keys, ownLeastKeys[1:]...)
		n.numKeys = len(n.keys)
		newNodes[g] = n
		newLeastKeys[g] = ownLeastKeys[0]
	}

	for i := 0; i < len(newNodes); i += t.groupCapacity {
		end := i + t.groupCapacity
		if end > len(newNodes) {
			end = len(newNodes)
		}
		groupID, ok := t.allocateNodeGroup()
		if !ok {
			panic("csbtree: node-group allocation failed after successful pre-check")
		}
		copy(t.groups[groupID], newNodes[i:end])
		groupIDs = append(groupIDs, groupID)
		counts = append(counts, end-i)
	}
	return groupIDs, counts, newLeastKeys
}
