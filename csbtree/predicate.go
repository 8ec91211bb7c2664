package csbtree

import (
	"github.com/cockroachdb/errors"
	"github.com/fenwickdb/coldb/internal/base"
	"github.com/fenwickdb/coldb/types"
)

// GetMatches evaluates a single comparison against the indexed key
// (already in key space: for an index built over a dictionary- or
// truncation-coded attribute, the caller is responsible for first
// translating the predicate's literal into that code space, exactly
// as page.Reader does for a compressed page's own predicate pushdown;
// see spec.md §4.6.4's cross-reference to §4.5). It implements the
// boundary-leaf scans of §4.6.4: ordered comparisons walk full leaves
// without per-entry comparisons and compare entries only from the
// boundary leaf up to the first entry that settles the comparison.
func (t *Tree) GetMatches(cmp types.ComparisonPredicate) ([]base.TupleID, error) {
	lit := cmp.Literal
	switch cmp.Op {
	case types.Less:
		return t.scanBefore(lit, false), nil
	case types.LessOrEqual:
		return t.scanBefore(lit, true), nil
	case types.Greater:
		return t.scanAfter(lit, false), nil
	case types.GreaterOrEqual:
		return t.scanAfter(lit, true), nil
	case types.Equal:
		return t.scanEqual(lit), nil
	case types.NotEqual:
		out := t.scanBefore(lit, false)
		out = append(out, t.scanAfter(lit, false)...)
		return out, nil
	default:
		return nil, errors.Newf("csbtree: unsupported op %s", cmp.Op)
	}
}

func (t *Tree) leftmostLeaf() (groupID, idx int) {
	groupID, idx = t.rootGrp, 0
	for {
		n := t.getNode(groupID, idx)
		if n.isLeaf {
			return groupID, idx
		}
		groupID, idx = n.groupRef, 0
	}
}

// scanBefore collects every tuple whose key is < lit (inclusive
// includes keys == lit too, i.e. implements LessOrEqual). Leaves before
// the boundary leaf are taken whole; from the boundary leaf on, entries
// are compared one by one across the sibling chain until the first
// non-matching key, since keys equal to lit can continue past it.
func (t *Tree) scanBefore(lit types.TypedValue, inclusive bool) []base.TupleID {
	boundaryGroup, boundaryIdx := t.FindLeaf(lit)
	out := make([]base.TupleID, 0)
	groupID, idx := t.leftmostLeaf()
	atBoundary := false
	for {
		leaf := t.getNode(groupID, idx)
		if groupID == boundaryGroup && idx == boundaryIdx {
			atBoundary = true
		}
		if atBoundary {
			for i := 0; i < leaf.numKeys; i++ {
				match := t.less.Less(leaf.keys[i], lit)
				if !match && inclusive {
					match = t.equal.Compare(leaf.keys[i], lit)
				}
				if !match {
					return out
				}
				out = append(out, leaf.tuples[i])
			}
		} else {
			out = append(out, leaf.tuples[:leaf.numKeys]...)
		}
		nextGroup, nextIdx, ok := t.nextLeaf(groupID, idx)
		if !ok {
			return out
		}
		groupID, idx = nextGroup, nextIdx
	}
}

// scanAfter collects every tuple whose key is > lit (inclusive also
// includes keys == lit, i.e. implements GreaterOrEqual).
func (t *Tree) scanAfter(lit types.TypedValue, inclusive bool) []base.TupleID {
	groupID, idx := t.FindLeaf(lit)
	out := make([]base.TupleID, 0)
	matched := false
	for {
		leaf := t.getNode(groupID, idx)
		i := 0
		if !matched {
			for ; i < leaf.numKeys; i++ {
				match := t.less.Less(lit, leaf.keys[i])
				if !match && inclusive {
					match = t.equal.Compare(leaf.keys[i], lit)
				}
				if match {
					matched = true
					break
				}
			}
		}
		if matched {
			out = append(out, leaf.tuples[i:leaf.numKeys]...)
		}
		nextGroup, nextIdx, ok := t.nextLeaf(groupID, idx)
		if !ok {
			return out
		}
		groupID, idx = nextGroup, nextIdx
	}
}

// scanEqual walks forward from the leaf lit would descend into,
// collecting every tuple whose key equals lit; since duplicate keys
// can straddle several leaves (spec.md §4.6.1), it continues across
// the sibling chain until the first strictly greater key.
func (t *Tree) scanEqual(lit types.TypedValue) []base.TupleID {
	groupID, idx := t.FindLeaf(lit)
	out := make([]base.TupleID, 0)
	for {
		leaf := t.getNode(groupID, idx)
		for i := 0; i < leaf.numKeys; i++ {
			if t.equal.Compare(leaf.keys[i], lit) {
				out = append(out, leaf.tuples[i])
				continue
			}
			if t.less.Less(lit, leaf.keys[i]) {
				return out
			}
		}
		nextGroup, nextIdx, ok := t.nextLeaf(groupID, idx)
		if !ok {
			return out
		}
		groupID, idx = nextGroup, nextIdx
	}
}
