package harness

import (
	"testing"

	"github.com/fenwickdb/coldb/config"
	"github.com/stretchr/testify/require"
)

func TestNewDataGeneratorRejectsUnrecognizedChoice(t *testing.T) {
	_, err := NewDataGenerator(config.TableChoice("bogus"))
	require.Error(t, err)
}

func TestSchemaColumnCounts(t *testing.T) {
	cases := []struct {
		choice  config.TableChoice
		columns int
	}{
		{config.TableNarrowE, 10},
		{config.TableNarrowU, 10},
		{config.TableWideE, 50},
		{config.TableStrings, 10},
	}
	for _, c := range cases {
		gen, err := NewDataGenerator(c.choice)
		require.NoError(t, err)
		require.Equal(t, c.columns, gen.Relation().NumAttributes())
	}
}

func TestGenerateTupleMatchesRelationShape(t *testing.T) {
	gen, err := NewDataGenerator(config.TableNarrowE)
	require.NoError(t, err)
	rng := NewRNG()
	tuple := gen.GenerateTuple(rng)
	require.Len(t, tuple.Values, gen.Relation().NumAttributes())
	for _, v := range tuple.Values {
		require.False(t, v.Null)
		require.GreaterOrEqual(t, v.I64, int64(0))
		require.Less(t, v.I64, int64(20))
	}
}

func TestGenerateTupleStringsAreFiveCharsOfLowercase(t *testing.T) {
	gen, err := NewDataGenerator(config.TableStrings)
	require.NoError(t, err)
	rng := NewRNG()
	tuple := gen.GenerateTuple(rng)
	for _, v := range tuple.Values {
		require.Len(t, v.Raw, 5)
		for _, b := range v.Raw {
			require.True(t, b >= 'a' && b <= 'z')
		}
	}
}

func TestRNGReseedIsReproducible(t *testing.T) {
	a := NewRNG()
	a.Reseed(7)
	b := NewRNG()
	b.Reseed(7)
	for i := 0; i < 20; i++ {
		require.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestGeneratePredicateNumericUsesLessThreshold(t *testing.T) {
	gen, err := NewDataGenerator(config.TableNarrowU)
	require.NoError(t, err)
	pred := gen.GeneratePredicate(2, 0.25)
	require.Equal(t, 2, pred.AttributeID)
	require.Equal(t, int64(1<<20/4), pred.Literal.I64)
}
