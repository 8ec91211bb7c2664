package page

import (
	"testing"

	"github.com/fenwickdb/coldb/internal/base"
	"github.com/fenwickdb/coldb/types"
	"github.com/stretchr/testify/require"
)

func wideRelation() types.Relation {
	return types.NewRelation([]types.Attribute{
		{ID: 0, Type: types.NumericType(types.Long, false)},
		{ID: 1, Type: types.NumericType(types.Int, false)},
		{ID: 2, Type: types.VarCharType(16, false)},
	})
}

func wideTuple(sortKey int64, small int32, s string) types.Tuple {
	return types.Tuple{Values: []types.TypedValue{
		types.LongValue(sortKey, false),
		types.IntValue(small, false),
		types.VarCharValue([]byte(s), 16, false),
	}}
}

func TestBuilderSealRoundTripRowStore(t *testing.T) {
	rel := wideRelation()
	b, err := NewBuilder(rel, RowStore, 0, 4096)
	require.NoError(t, err)

	want := []types.Tuple{
		wideTuple(10, 1, "alpha"),
		wideTuple(5, 1, "beta"),
		wideTuple(20, 2, "alpha"),
	}
	for _, tup := range want {
		require.NoError(t, b.AddTuple(tup))
	}

	raw, err := b.Seal()
	require.NoError(t, err)

	r, err := Attach(raw, rel, RowStore)
	require.NoError(t, err)
	require.Equal(t, 3, r.NumTuples())

	for i, tup := range want {
		for pos := range rel.Attributes() {
			got, err := r.Get(base.TupleID(i), pos)
			require.NoError(t, err)
			requireValueEqual(t, tup.Values[pos], got)
		}
	}
}

func TestBuilderSealRoundTripColumnStore(t *testing.T) {
	rel := wideRelation()
	b, err := NewBuilder(rel, ColumnStore, 0, 4096)
	require.NoError(t, err)

	tuples := []types.Tuple{
		wideTuple(30, 7, "zeta"),
		wideTuple(10, 7, "alpha"),
		wideTuple(20, 9, "mid"),
	}
	for _, tup := range tuples {
		require.NoError(t, b.AddTuple(tup))
	}
	raw, err := b.Seal()
	require.NoError(t, err)

	r, err := Attach(raw, rel, ColumnStore)
	require.NoError(t, err)
	require.Equal(t, 3, r.NumTuples())
	require.True(t, r.MaxTuples() >= r.NumTuples())

	// ColumnStore seals tuples sorted by the designated sort attribute (pos 0).
	var prev int64 = -1
	for i := 0; i < r.NumTuples(); i++ {
		v, err := r.Get(base.TupleID(i), 0)
		require.NoError(t, err)
		require.GreaterOrEqual(t, v.I64, prev)
		prev = v.I64
	}
}

func TestBuilderTruncatesSmallNonNegativeIntegers(t *testing.T) {
	rel := types.NewRelation([]types.Attribute{
		{ID: 0, Type: types.NumericType(types.Long, false)},
	})
	b, err := NewBuilder(rel, RowStore, 0, 4096)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, b.AddTuple(types.Tuple{Values: []types.TypedValue{types.LongValue(int64(i), false)}}))
	}
	raw, err := b.Seal()
	require.NoError(t, err)

	r, err := Attach(raw, rel, RowStore)
	require.NoError(t, err)
	require.Equal(t, CodingTruncated, r.Coding(0))
	for i := 0; i < 10; i++ {
		v, err := r.Get(base.TupleID(i), 0)
		require.NoError(t, err)
		require.Equal(t, int64(i), v.I64)
	}
}

func TestBuilderRejectsOverflowWithFull(t *testing.T) {
	rel := types.NewRelation([]types.Attribute{
		{ID: 0, Type: types.NumericType(types.Int, false)},
	})
	b, err := NewBuilder(rel, RowStore, 0, 48) // tiny budget
	require.NoError(t, err)

	added := 0
	for {
		err := b.AddTuple(types.Tuple{Values: []types.TypedValue{types.IntValue(int32(added), false)}})
		if err != nil {
			require.ErrorIs(t, err, base.ErrFull)
			break
		}
		added++
	}
	require.Greater(t, added, 0)
	require.Equal(t, added, b.NumTuples())
}

func requireValueEqual(t *testing.T, want, got types.TypedValue) {
	t.Helper()
	eq, err := types.EqualComparator(want.Type, got.Type)
	require.NoError(t, err)
	require.True(t, eq.Compare(want, got), "want %+v got %+v", want, got)
}
