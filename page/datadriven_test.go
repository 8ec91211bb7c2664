package page

import (
	"fmt"
	"sort"
	"strconv"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/fenwickdb/coldb/internal/base"
	"github.com/fenwickdb/coldb/types"
	"github.com/stretchr/testify/require"
)

// TestPushdownAgreesWithBruteForce exercises P5/P9 (spec.md §8): a
// compressed page's predicate pushdown (dictionary or truncation coded,
// whichever chooseCoding picks for the input) must select exactly the
// tuple ids a brute-force scan over the original, uncoded values would,
// matching the way the teacher's own data_test.go drives block-level
// behavior through small command scripts rather than bespoke Go per case.
func TestPushdownAgreesWithBruteForce(t *testing.T) {
	relation := types.NewRelation([]types.Attribute{
		{ID: 0, Type: types.NumericType(types.Int, false)},
	})

	var values []int32
	var reader *Reader

	datadriven.RunTest(t, "testdata/pushdown", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "build":
			values = nil
			b, err := NewBuilder(relation, RowStore, 0, 1<<16)
			require.NoError(t, err)
			for _, line := range splitNonEmpty(d.Input) {
				v, err := strconv.Atoi(line)
				require.NoError(t, err)
				values = append(values, int32(v))
				require.NoError(t, b.AddTuple(types.Tuple{Values: []types.TypedValue{types.IntValue(int32(v), false)}}))
			}
			sealed, err := b.Seal()
			require.NoError(t, err)
			reader, err = Attach(sealed, relation, RowStore)
			require.NoError(t, err)
			return fmt.Sprintf("built %d tuples\n", len(values))

		case "query":
			op := argValue(d, "op")
			literal := argValue(d, "literal")
			lit, err := strconv.Atoi(literal)
			require.NoError(t, err)

			cmp := types.ComparisonPredicate{
				AttributeID: 0,
				Op:          opFromString(t, op),
				Literal:     types.IntValue(int32(lit), false),
			}

			got, err := reader.Matches(types.Comparison{ComparisonPredicate: cmp})
			require.NoError(t, err)

			var want []base.TupleID
			comparator, err := types.MakeComparator(cmp.Op, types.NumericType(types.Int, false), types.NumericType(types.Int, false))
			require.NoError(t, err)
			for i, v := range values {
				if comparator.Compare(types.IntValue(v, false), cmp.Literal) {
					want = append(want, base.TupleID(i))
				}
			}

			sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
			sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
			require.Equal(t, want, got)

			return fmt.Sprintf("matches: %v\n", got)

		default:
			t.Fatalf("unknown command %q", d.Cmd)
			return ""
		}
	})
}

func splitNonEmpty(input string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(input); i++ {
		if i == len(input) || input[i] == '\n' {
			if i > start {
				out = append(out, input[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func argValue(d *datadriven.TestData, key string) string {
	for _, a := range d.CmdArgs {
		if a.Key == key && len(a.Vals) > 0 {
			return a.Vals[0]
		}
	}
	return ""
}

func opFromString(t *testing.T, s string) types.Op {
	switch s {
	case "eq":
		return types.Equal
	case "ne":
		return types.NotEqual
	case "lt":
		return types.Less
	case "le":
		return types.LessOrEqual
	case "gt":
		return types.Greater
	case "ge":
		return types.GreaterOrEqual
	default:
		t.Fatalf("unknown op %q", s)
		return types.Equal
	}
}
