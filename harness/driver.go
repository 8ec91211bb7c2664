package harness

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/fenwickdb/coldb/config"
	"github.com/fenwickdb/coldb/csbtree"
	"github.com/fenwickdb/coldb/exec"
	"github.com/fenwickdb/coldb/internal/base"
	"github.com/fenwickdb/coldb/page"
	"github.com/fenwickdb/coldb/types"
	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
)

// slotBytes is the per-slot byte budget a block_size_slots count is
// multiplied by to get a page's byte budget, mirroring the StorageManager
// "slot" unit the original experiment driver sizes blocks in.
const slotBytes = 512

// RunSummary is one test_params entry's aggregated result across
// num_runs repetitions.
type RunSummary struct {
	Param       config.TestParam
	MeanLatency float64 // seconds
	P99Latency  float64 // seconds
	TotalRows   int
	L2Misses    uint64
	L3Misses    uint64
}

// Driver runs num_runs iterations of every test_params entry against
// freshly generated data for one table_choice, per spec.md §5/§9: the
// Go counterpart of ExperimentDriver, dispatching into exec.Run instead
// of quickstep's own query evaluator.
type Driver struct {
	cfg config.Config
	gen *DataGenerator
	rng *RNG
}

// NewDriver builds a Driver for cfg, failing if cfg.TableChoice is not
// recognized.
func NewDriver(cfg config.Config) (*Driver, error) {
	gen, err := NewDataGenerator(cfg.TableChoice)
	if err != nil {
		return nil, err
	}
	return &Driver{cfg: cfg, gen: gen, rng: NewRNG()}, nil
}

// Run generates cfg.NumTuples tuples once, then drives every test_params
// entry cfg.NumRuns times against that data, returning one RunSummary per
// test_params entry.
func (d *Driver) Run() ([]RunSummary, error) {
	if err := PinAffinity(d.cfg.ThreadAffinities); err != nil {
		return nil, errors.Wrap(err, "harness: pin driver thread affinity")
	}

	relation := d.gen.Relation()
	sources, err := d.buildSources(relation)
	if err != nil {
		return nil, err
	}

	summaries := make([]RunSummary, len(d.cfg.TestParams))
	for i, param := range d.cfg.TestParams {
		summary, err := d.runParam(relation, sources, param)
		if err != nil {
			return nil, errors.Wrapf(err, "harness: test_params[%d]", errors.Safe(i))
		}
		summaries[i] = summary
	}
	return summaries, nil
}

// buildSources materializes cfg.NumTuples synthetic tuples into one or
// more exec.Source blocks, sized per block_size_slots when block_based
// is set, or one block holding every tuple otherwise.
func (d *Driver) buildSources(relation types.Relation) ([]exec.Source, error) {
	d.rng.Reseed(defaultSeed)

	budget := int(d.cfg.BlockSizeSlots) * slotBytes
	if budget <= 0 || !d.cfg.BlockBased {
		budget = 1 << 24 // large enough to hold num_tuples in one block
	}

	layout := page.RowStore
	if d.cfg.UseColumnStore {
		layout = page.ColumnStore
	}
	// ColumnStore re-sorts tuples at Seal time, which would desynchronize
	// tuple ids from an index built alongside insertion; an attached index
	// is only wired for RowStore, matching buildCompressedBlockLayout's
	// reasoning in the exec package's own tests.
	attachIndex := d.cfg.UseIndex && layout == page.RowStore

	var sources []exec.Source
	var builder *page.Builder
	var tree *csbtree.Tree
	var tupleID base.TupleID

	flush := func() error {
		if builder == nil || builder.NumTuples() == 0 {
			return nil
		}
		sealed, err := builder.Seal()
		if err != nil {
			return errors.Wrap(err, "harness: seal block")
		}
		reader, err := page.Attach(sealed, relation, layout)
		if err != nil {
			return errors.Wrap(err, "harness: attach block")
		}
		sources = append(sources, exec.Source{Compressed: reader, Index: tree})
		return nil
	}

	for i := uint64(0); i < d.cfg.NumTuples; i++ {
		if builder == nil {
			var err error
			builder, err = page.NewBuilder(relation, layout, int(d.cfg.ColumnStoreSortCol), budget)
			if err != nil {
				return nil, errors.Wrap(err, "harness: new block builder")
			}
			if attachIndex {
				var err error
				tree, err = csbtree.New(attributeType(relation, int(d.cfg.IndexColumn)), 64, 16)
				if err != nil {
					return nil, errors.Wrap(err, "harness: new index tree")
				}
			} else {
				tree = nil
			}
			tupleID = 0
		}

		tuple := d.gen.GenerateTuple(d.rng)
		if err := builder.AddTuple(tuple); err != nil {
			if err := flush(); err != nil {
				return nil, err
			}
			builder = nil
			i--
			continue
		}
		if attachIndex {
			indexValue := tuple.Get(int(d.cfg.IndexColumn))
			if err := tree.Insert(tupleID, indexValue); err != nil {
				return nil, errors.Wrap(err, "harness: index insert")
			}
			tupleID++
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return sources, nil
}

func attributeType(relation types.Relation, attributeID int) types.Type {
	attr, _ := relation.Attribute(attributeID)
	return attr.Type
}

// runParam drives one test_params entry num_runs times, timing each
// call to exec.Run and optionally sampling cache-miss counters around it.
func (d *Driver) runParam(relation types.Relation, sources []exec.Source, param config.TestParam) (RunSummary, error) {
	predicate := d.gen.GeneratePredicate(int(param.PredicateColumn), float64(param.Selectivity))
	projection := make([]int, param.ProjectionWidth)
	for i := range projection {
		projection[i] = int(i) % relation.NumAttributes()
	}

	task := exec.Task{
		Predicate:   predicate,
		Projection:  projection,
		UseIndex:    param.UseIndex,
		SortMatches: param.SortMatches,
		NumThreads:  int(d.cfg.NumThreads),
		Selectivity: float64(param.Selectivity),
	}

	timer := NewTimer()
	var counters *CacheCounters
	if d.cfg.MeasureCacheMisses {
		counters = NewCacheCounters()
		defer counters.Close()
	}

	totalRows := 0
	var l2, l3 uint64
	for run := uint32(0); run < d.cfg.NumRuns; run++ {
		if counters != nil {
			counters.Start()
		}
		timer.Start()
		results, err := exec.Run(sources, task)
		if _, terr := timer.Stop(); terr != nil {
			return RunSummary{}, terr
		}
		if counters != nil {
			runL2, runL3 := counters.Stop()
			l2 += runL2
			l3 += runL3
		}
		if err != nil {
			return RunSummary{}, err
		}
		if run == d.cfg.NumRuns-1 {
			for _, r := range results {
				totalRows += len(r.Tuples)
			}
		}
	}

	return RunSummary{
		Param:       param,
		MeanLatency: timer.Mean().Seconds(),
		P99Latency:  timer.ValueAtQuantile(99).Seconds(),
		TotalRows:   totalRows,
		L2Misses:    l2,
		L3Misses:    l3,
	}, nil
}

// Report writes summaries as a table (tablewriter) followed by an ascii
// plot of mean latency per test_params entry (asciigraph), the Go
// counterpart of ExperimentDriver's results printout.
func Report(w io.Writer, summaries []RunSummary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"selectivity", "predicate_col", "proj_width", "mean_s", "p99_s", "rows", "l2_miss", "l3_miss"})
	latencies := make([]float64, len(summaries))
	for i, s := range summaries {
		table.Append([]string{
			fmt.Sprintf("%.4f", s.Param.Selectivity),
			fmt.Sprintf("%d", s.Param.PredicateColumn),
			fmt.Sprintf("%d", s.Param.ProjectionWidth),
			fmt.Sprintf("%.6f", s.MeanLatency),
			fmt.Sprintf("%.6f", s.P99Latency),
			fmt.Sprintf("%d", s.TotalRows),
			fmt.Sprintf("%d", s.L2Misses),
			fmt.Sprintf("%d", s.L3Misses),
		})
		latencies[i] = s.MeanLatency
	}
	table.Render()

	if len(latencies) > 1 {
		fmt.Fprintln(w, asciigraph.Plot(latencies, asciigraph.Height(10), asciigraph.Caption("mean latency (s) per test_params entry")))
	}
}
