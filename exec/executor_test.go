package exec

import (
	"sort"
	"testing"

	"github.com/fenwickdb/coldb/csbtree"
	"github.com/fenwickdb/coldb/internal/base"
	"github.com/fenwickdb/coldb/page"
	"github.com/fenwickdb/coldb/types"
	"github.com/stretchr/testify/require"
)

func intRelation() types.Relation {
	return types.NewRelation([]types.Attribute{
		{ID: 0, Type: types.NumericType(types.Int, false)},
		{ID: 1, Type: types.NumericType(types.Int, false)},
	})
}

func buildCompressedBlock(t *testing.T, relation types.Relation, values []int32) *page.Reader {
	t.Helper()
	return buildCompressedBlockLayout(t, relation, values, page.ColumnStore)
}

// buildCompressedBlockLayout builds a block using RowStore for tests that
// attach an externally built index: RowStore preserves insertion order
// (unlike ColumnStore, which re-sorts tuples by the designated sort
// attribute at Seal), so tuple ids handed to an index built alongside
// insertion stay aligned with the reader's physical tuple ids.
func buildCompressedBlockLayout(t *testing.T, relation types.Relation, values []int32, layout page.Layout) *page.Reader {
	t.Helper()
	b, err := page.NewBuilder(relation, layout, 0, 1<<16)
	require.NoError(t, err)
	for i, v := range values {
		require.NoError(t, b.AddTuple(types.Tuple{Values: []types.TypedValue{types.IntValue(v, false), types.IntValue(int32(i), false)}}))
	}
	sealed, err := b.Seal()
	require.NoError(t, err)
	r, err := page.Attach(sealed, relation, layout)
	require.NoError(t, err)
	return r
}

func TestRunMatchesFullScanAcrossBlocks(t *testing.T) {
	relation := intRelation()
	var sources []Source
	var wantPerBlock []int
	for block := 0; block < 4; block++ {
		var vals []int32
		want := 0
		for i := 0; i < 20; i++ {
			v := int32((block*20 + i) % 13)
			vals = append(vals, v)
			if v == 5 {
				want++
			}
		}
		wantPerBlock = append(wantPerBlock, want)
		sources = append(sources, Source{Compressed: buildCompressedBlock(t, relation, vals)})
	}

	task := Task{
		Predicate:   types.ComparisonPredicate{AttributeID: 0, Op: types.Equal, Literal: types.IntValue(5, false)},
		Projection:  []int{1},
		NumThreads:  3,
		Selectivity: 1,
	}
	results, err := Run(sources, task)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for block, r := range results {
		require.Lenf(t, r.Tuples, wantPerBlock[block], "block %d", block)
	}
}

func TestRunSelectivitySweepsOnlyTrailingSuffix(t *testing.T) {
	relation := intRelation()
	var sources []Source
	for block := 0; block < 10; block++ {
		sources = append(sources, Source{Compressed: buildCompressedBlock(t, relation, []int32{int32(block)})})
	}

	task := Task{
		Predicate:   types.ComparisonPredicate{AttributeID: 0, Op: types.GreaterOrEqual, Literal: types.IntValue(0, false)},
		Projection:  []int{0},
		NumThreads:  2,
		Selectivity: 0.3,
	}
	results, err := Run(sources, task)
	require.NoError(t, err)
	require.Len(t, results, 3) // ceil(0.3*10) = 3, the trailing suffix [7,8,9]
}

func TestRunSortMatchesOrdersTupleIDs(t *testing.T) {
	relation := intRelation()
	vals := []int32{5, 1, 5, 2, 5, 3}
	src := Source{Compressed: buildCompressedBlock(t, relation, vals)}

	task := Task{
		Predicate:   types.ComparisonPredicate{AttributeID: 0, Op: types.NotEqual, Literal: types.IntValue(5, false)},
		Projection:  []int{1},
		NumThreads:  1,
		Selectivity: 1,
		SortMatches: true,
	}
	results, err := Run([]Source{src}, task)
	require.NoError(t, err)
	require.Len(t, results, 1)

	var got []int32
	for _, row := range results[0].Tuples {
		got = append(got, int32(row[0].I64))
	}
	require.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i] < got[j] }))
	require.ElementsMatch(t, []int32{1, 3, 5}, got) // original insertion indices of the non-5 entries

}

func TestRunUsesIndexWhenAttached(t *testing.T) {
	relation := intRelation()
	vals := []int32{7, 1, 7, 3, 7, 9}
	reader := buildCompressedBlockLayout(t, relation, vals, page.RowStore)

	tree, err := csbtree.New(types.NumericType(types.Int, false), 64, 16)
	require.NoError(t, err)
	for i, v := range vals {
		require.NoError(t, tree.Insert(base.TupleID(i), types.IntValue(v, false)))
	}

	src := Source{Compressed: reader, Index: tree}
	task := Task{
		Predicate:   types.ComparisonPredicate{AttributeID: 0, Op: types.Equal, Literal: types.IntValue(7, false)},
		Projection:  []int{1},
		NumThreads:  1,
		Selectivity: 1,
		UseIndex:    true,
		SortMatches: true,
	}
	results, err := Run([]Source{src}, task)
	require.NoError(t, err)
	require.Len(t, results[0].Tuples, 3)
}
