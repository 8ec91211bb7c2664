package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
	"block_based": true,
	"table_choice": "narrow-e",
	"use_column_store": true,
	"use_compression": true,
	"column_store_sort_column": 0,
	"use_index": true,
	"index_column": 0,
	"num_tuples": 1000000,
	"num_runs": 5,
	"num_threads": 4,
	"thread_affinities": [0, 1, 2, 3],
	"measure_cache_misses": false,
	"block_size_slots": 64,
	"test_params": [
		{"selectivity": 0.1, "predicate_column": 0, "projection_width": 2, "use_index": true, "sort_matches": false}
	]
}`

func TestDecodeParsesRecognizedFields(t *testing.T) {
	cfg, err := Decode(strings.NewReader(sampleJSON))
	require.NoError(t, err)
	require.Equal(t, TableNarrowE, cfg.TableChoice)
	require.Equal(t, uint32(4), cfg.NumThreads)
	require.Len(t, cfg.TestParams, 1)
	require.Equal(t, float32(0.1), cfg.TestParams[0].Selectivity)
}

func TestDecodeRejectsUnrecognizedTableChoice(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"table_choice": "bogus", "num_runs": 1, "num_threads": 1}`))
	require.Error(t, err)
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode(strings.NewReader(`{not json`))
	require.Error(t, err)
}

func TestDecodeDefaultsNumThreadsToOne(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`{"table_choice": "wide-e"}`))
	require.NoError(t, err)
	require.Equal(t, uint32(1), cfg.NumThreads)
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/to/config.json")
	require.Error(t, err)
}
