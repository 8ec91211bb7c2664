// Package config loads the experiment harness's JSON configuration file,
// spec.md §6. Unlike every other ambient concern in this module, no
// third-party decoder from the pack applies here: every example repo
// that reads its own configuration (solidcoredata-dca's internal/cluster,
// johnjansen-torua's internal config) also reaches for stdlib
// encoding/json rather than a schema library, so that is the grounded
// choice (see DESIGN.md).
package config

import (
	"encoding/json"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// TableChoice selects the synthetic schema the harness's DataGenerator
// produces, spec.md §6.
type TableChoice string

const (
	TableNarrowE TableChoice = "narrow-e"
	TableNarrowU TableChoice = "narrow-u"
	TableWideE   TableChoice = "wide-e"
	TableStrings TableChoice = "strings"
)

// TestParam is one entry of the test_params array, spec.md §6: a single
// query shape the harness drives the executor with.
type TestParam struct {
	Selectivity      float32 `json:"selectivity"`
	PredicateColumn  int32   `json:"predicate_column"`
	ProjectionWidth  int32   `json:"projection_width"`
	UseIndex         bool    `json:"use_index"`
	SortMatches      bool    `json:"sort_matches"`
}

// Config is the experiment harness's JSON configuration, spec.md §6.
type Config struct {
	BlockBased         bool        `json:"block_based"`
	TableChoice        TableChoice `json:"table_choice"`
	UseColumnStore     bool        `json:"use_column_store"`
	UseCompression     bool        `json:"use_compression"`
	ColumnStoreSortCol int32       `json:"column_store_sort_column"`
	UseIndex           bool        `json:"use_index"`
	IndexColumn        int32       `json:"index_column"`
	NumTuples          uint64      `json:"num_tuples"`
	NumRuns            uint32      `json:"num_runs"`
	NumThreads         uint32      `json:"num_threads"`
	ThreadAffinities   []int32     `json:"thread_affinities"`
	MeasureCacheMisses bool        `json:"measure_cache_misses"`
	BlockSizeSlots     uint32      `json:"block_size_slots"`
	TestParams         []TestParam `json:"test_params"`
}

// validTableChoices enumerates the four schemas spec.md §6 names.
var validTableChoices = map[TableChoice]bool{
	TableNarrowE: true,
	TableNarrowU: true,
	TableWideE:   true,
	TableStrings: true,
}

// Load reads and validates the configuration file at path. It returns an
// error (never panics) on an unreadable file, malformed JSON, or an
// unrecognized table_choice, matching spec.md §6's CLI contract
// ("exit code 1 on any error").
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: open %s", errors.Safe(path))
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a Config from r, applying the same validation Load does.
func Decode(r io.Reader) (Config, error) {
	var cfg Config
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: malformed json")
	}
	if !validTableChoices[cfg.TableChoice] {
		return Config{}, errors.Newf("config: unrecognized table_choice %q", errors.Safe(string(cfg.TableChoice)))
	}
	if cfg.NumThreads == 0 {
		cfg.NumThreads = 1
	}
	return cfg, nil
}
