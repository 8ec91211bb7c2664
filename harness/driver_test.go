package harness

import (
	"bytes"
	"testing"

	"github.com/fenwickdb/coldb/config"
	"github.com/stretchr/testify/require"
)

func TestDriverRunProducesOneSummaryPerTestParam(t *testing.T) {
	cfg := config.Config{
		TableChoice:        config.TableNarrowE,
		UseColumnStore:      false,
		BlockBased:          true,
		BlockSizeSlots:      8,
		ColumnStoreSortCol:  0,
		NumTuples:           200,
		NumRuns:             2,
		NumThreads:          2,
		TestParams: []config.TestParam{
			{Selectivity: 0.5, PredicateColumn: 0, ProjectionWidth: 2, SortMatches: true},
			{Selectivity: 0.1, PredicateColumn: 1, ProjectionWidth: 1},
		},
	}

	driver, err := NewDriver(cfg)
	require.NoError(t, err)

	summaries, err := driver.Run()
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		require.GreaterOrEqual(t, s.MeanLatency, 0.0)
	}

	var buf bytes.Buffer
	Report(&buf, summaries)
	require.NotEmpty(t, buf.String())
}

func TestDriverRunWithIndexOnRowStore(t *testing.T) {
	cfg := config.Config{
		TableChoice:    config.TableNarrowU,
		UseColumnStore: false,
		BlockBased:     true,
		BlockSizeSlots: 8,
		NumTuples:      100,
		NumRuns:        1,
		NumThreads:     1,
		UseIndex:       true,
		IndexColumn:    0,
		TestParams: []config.TestParam{
			{Selectivity: 1, PredicateColumn: 0, ProjectionWidth: 1, UseIndex: true},
		},
	}

	driver, err := NewDriver(cfg)
	require.NoError(t, err)
	summaries, err := driver.Run()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
}
