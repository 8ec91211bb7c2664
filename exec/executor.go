// Package exec implements the query executor shell of spec.md §4.7: a
// fixed pool of worker threads that sweep a dispenser of input
// block/partition ids, evaluate a single comparison predicate either
// through an index or directly against a page, optionally sort the
// resulting tuple-id sequence, and project matching tuples into a
// per-worker output region.
package exec

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fenwickdb/coldb/csbtree"
	"github.com/fenwickdb/coldb/dict"
	"github.com/fenwickdb/coldb/internal/base"
	"github.com/fenwickdb/coldb/page"
	"github.com/fenwickdb/coldb/types"
	"golang.org/x/sync/errgroup"
)

// Source is one input block or partition a worker can scan: either a
// compressed page (via a Reader), a sorted column-store page, or a
// CSB+-tree index paired with the page whose tuples it addresses.
// Exactly one of Compressed/Sorted should be non-nil; Index is optional
// and, when present, is consulted before falling back to the page.
type Source struct {
	Compressed *page.Reader
	Sorted     *page.SortedPage
	Index      *csbtree.Tree
	// IndexKeyIsCompressed mirrors spec.md §4.6's "key_is_compressed": when
	// true, Dict must translate the predicate literal into the index's key
	// space (dictionary codes) before the tree is consulted, and
	// TruncatedWidth translates it for truncation coding instead.
	IndexKeyIsCompressed bool
	Dict                 *dict.Dictionary
	TruncatedWidth       int
}

// dispenser is the shared mutex-guarded "next block id" counter of
// spec.md §5: the only blocking point inside the executor's worker loop.
type dispenser struct {
	mu   sync.Mutex
	next int
	last int
}

func newDispenser(start, end int) *dispenser { return &dispenser{next: start, last: end} }

// pop returns the next block id and ok=true, or ok=false once every id in
// the swept suffix has been handed out.
func (d *dispenser) pop() (id int, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.next >= d.last {
		return 0, false
	}
	id = d.next
	d.next++
	return id, true
}

// Task describes one query: the predicate to evaluate, the attributes to
// project, and whether the use-index / sort-matches knobs from
// spec.md §6's test_params are set for this run.
type Task struct {
	Predicate    types.ComparisonPredicate
	Projection   []int // attribute ids to project, in output order
	UseIndex     bool
	SortMatches  bool
	NumThreads   int
	Selectivity  float64 // spec.md §4.7: only the trailing ⌈selectivity×n⌉ partitions are swept
}

// Result is one worker's projected output: a list of tuples, each an
// ordered slice of values matching Task.Projection, alongside the source
// block id they came from.
type Result struct {
	BlockID int
	Tuples  [][]types.TypedValue
}

// Run sweeps sources (one entry per block/partition) under Task's
// concurrency and pushdown knobs, per spec.md §4.7/§5: a bounded pool of
// goroutines (golang.org/x/sync/errgroup), each pulling the next block id
// from a shared dispenser, resolving matches via the index when
// UseIndex is set and an index is attached (else the page's own
// pushdown/full-scan path), optionally sorting the match list, and
// projecting into its own Result. Only the swept suffix of sources gets a
// Result; those are returned in source order (result i belongs to source
// n-numSwept+i), and matches are not sorted across blocks.
func Run(sources []Source, task Task) ([]Result, error) {
	n := len(sources)
	sweepFrom := n - numSwept(n, task.Selectivity)
	if sweepFrom < 0 {
		sweepFrom = 0
	}

	results := make([]Result, n)
	disp := newDispenser(sweepFrom, n)

	threads := task.NumThreads
	if threads < 1 {
		threads = 1
	}

	g := new(errgroup.Group)
	for w := 0; w < threads; w++ {
		g.Go(func() error {
			for {
				id, ok := disp.pop()
				if !ok {
					return nil
				}
				res, err := runOne(sources[id], task)
				if err != nil {
					return errors.Wrapf(err, "exec: block %d", errors.Safe(id))
				}
				res.BlockID = id
				results[id] = res
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results[sweepFrom:], nil
}

// numSwept returns ⌈selectivity × n⌉, clamped to [0, n].
func numSwept(n int, selectivity float64) int {
	if selectivity <= 0 {
		return 0
	}
	if selectivity >= 1 {
		return n
	}
	swept := int(selectivity*float64(n) + 0.999999999)
	if swept > n {
		swept = n
	}
	return swept
}

func runOne(src Source, task Task) (Result, error) {
	matches, err := resolveMatches(src, task)
	if err != nil {
		return Result{}, err
	}
	if task.SortMatches {
		sort.Slice(matches, func(i, j int) bool { return matches[i] < matches[j] })
	}
	return Result{Tuples: project(src, task.Projection, matches)}, nil
}

// resolveMatches picks the index scan, the sorted-column fast path, or a
// page full scan, per spec.md §4.7's "evaluates the predicate either via
// the index ... or directly on the page."
func resolveMatches(src Source, task Task) ([]base.TupleID, error) {
	comparison := types.Comparison{ComparisonPredicate: task.Predicate}
	pageScan := func() ([]base.TupleID, error) {
		if src.Compressed != nil {
			return src.Compressed.Matches(comparison)
		}
		return src.Sorted.Matches(comparison)
	}

	if task.UseIndex && src.Index != nil {
		indexPredicate, decided, fallback, err := translateToKeySpace(src, task.Predicate)
		if err != nil {
			return nil, err
		}
		switch {
		case fallback:
			return pageScan()
		case decided != nil:
			return decided, nil
		default:
			return src.Index.GetMatches(indexPredicate)
		}
	}
	return pageScan()
}

// translateToKeySpace maps a predicate's attribute-domain literal into
// the CSB+-tree's key space, the step csbtree's own doc comments
// (spec.md §4.6.4) explicitly leave to "a layer above csbtree": dictionary
// codes via dict.Dictionary.LowerBound/UpperBound/CodeFor, or truncated
// integer codes via page.TruncatedCodeRange, mirroring exactly how the
// compressed reader's own pushdown resolves the same literal (spec.md
// §4.5 cross-reference). If the translated predicate is unconditionally
// true or false (a truncated-attribute saturation case, spec.md §4.5.1),
// decided carries the answer directly ([]base.TupleID{} for false) and
// the index is not consulted at all; the caller is expected to fall back
// to a page scan for "always true" since the tree alone cannot enumerate
// every tuple id in the host block.
func translateToKeySpace(src Source, cmp types.ComparisonPredicate) (translated types.ComparisonPredicate, decided []base.TupleID, fallbackToScan bool, err error) {
	if !src.IndexKeyIsCompressed {
		return cmp, nil, false, nil
	}
	if src.Dict != nil {
		t, decErr := dictionaryKeySpaceOp(src.Dict, cmp)
		return t, nil, false, decErr
	}
	alwaysTrue, alwaysFalse, lo, hi, exclude := page.TruncatedCodeRange(cmp.Op, cmp.Literal, src.TruncatedWidth)
	if alwaysFalse {
		return types.ComparisonPredicate{}, []base.TupleID{}, false, nil
	}
	if alwaysTrue {
		return types.ComparisonPredicate{}, nil, true, nil
	}
	op := types.GreaterOrEqual
	literal := lo
	if hi == lo+1 && !exclude {
		op = types.Equal
	} else if exclude {
		op = types.NotEqual
	} else if lo == 0 {
		op = types.Less
		literal = hi
	}
	return types.ComparisonPredicate{AttributeID: cmp.AttributeID, Op: op, Literal: types.IntValue(int32(literal), false)}, nil, false, nil
}

// dictionaryKeySpaceOp mirrors each Op's own code-space definition from
// dict.Dictionary.LimitCodes exactly (spec.md §4.2), but expressed as a
// single Op + code rather than a range, since csbtree.GetMatches (like
// the dictionary itself) is defined one Op at a time.
func dictionaryKeySpaceOp(d *dict.Dictionary, cmp types.ComparisonPredicate) (types.ComparisonPredicate, error) {
	intLit := func(code uint32) types.TypedValue { return types.IntValue(int32(code), false) }
	switch cmp.Op {
	case types.Equal, types.NotEqual:
		code, err := d.CodeFor(cmp.Literal)
		if err != nil {
			return types.ComparisonPredicate{}, err
		}
		return types.ComparisonPredicate{AttributeID: cmp.AttributeID, Op: cmp.Op, Literal: intLit(code)}, nil
	case types.Less:
		b, err := d.LowerBound(cmp.Literal)
		if err != nil {
			return types.ComparisonPredicate{}, err
		}
		return types.ComparisonPredicate{AttributeID: cmp.AttributeID, Op: types.Less, Literal: intLit(b)}, nil
	case types.LessOrEqual:
		b, err := d.UpperBound(cmp.Literal)
		if err != nil {
			return types.ComparisonPredicate{}, err
		}
		return types.ComparisonPredicate{AttributeID: cmp.AttributeID, Op: types.Less, Literal: intLit(b)}, nil
	case types.Greater:
		b, err := d.UpperBound(cmp.Literal)
		if err != nil {
			return types.ComparisonPredicate{}, err
		}
		return types.ComparisonPredicate{AttributeID: cmp.AttributeID, Op: types.GreaterOrEqual, Literal: intLit(b)}, nil
	case types.GreaterOrEqual:
		b, err := d.LowerBound(cmp.Literal)
		if err != nil {
			return types.ComparisonPredicate{}, err
		}
		return types.ComparisonPredicate{AttributeID: cmp.AttributeID, Op: types.GreaterOrEqual, Literal: intLit(b)}, nil
	default:
		return types.ComparisonPredicate{}, errors.Newf("exec: unsupported op %s for dictionary-coded index key", cmp.Op)
	}
}

func project(src Source, projection []int, matches []base.TupleID) [][]types.TypedValue {
	out := make([][]types.TypedValue, 0, len(matches))
	for _, tid := range matches {
		row := make([]types.TypedValue, len(projection))
		for i, attrID := range projection {
			v, err := getValue(src, tid, attrID)
			if err != nil {
				continue
			}
			row[i] = v
		}
		out = append(out, row)
	}
	return out
}

func getValue(src Source, tid base.TupleID, attributeID int) (types.TypedValue, error) {
	if src.Compressed != nil {
		return src.Compressed.GetByAttributeID(tid, attributeID)
	}
	return src.Sorted.Get(tid, attributeID)
}
