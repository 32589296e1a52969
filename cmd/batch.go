package main

import (
	"cmp"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/cwbudde/fieldmin/internal/config"
	"github.com/cwbudde/fieldmin/internal/store"
	"github.com/cwbudde/fieldmin/internal/telemetry"
)

var (
	batchRuns    int
	batchWorkers int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run independent descents from random starts",
	Long: `Runs --runs gradient descents of the same problem concurrently, each from its
own random starting point and with its own trace and checkpoint. Flat problems
start uniformly in [-start, start] per coordinate, the rotation problem from
random rotations. Run i draws its start from seed+i.`,
	RunE: runBatch,
}

func init() {
	addRunConfigFlags(batchCmd)
	batchCmd.Flags().IntVar(&batchRuns, "runs", 8, "Number of runs")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 4, "Runs executed concurrently")

	rootCmd.AddCommand(batchCmd)
}

// batchResult is the outcome of one run of a batch.
type batchResult struct {
	index      int
	checkpoint *store.Checkpoint
	err        error
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchRuns <= 0 {
		return fmt.Errorf("--runs must be positive, got %d", batchRuns)
	}
	if batchWorkers <= 0 {
		return fmt.Errorf("--workers must be positive, got %d", batchWorkers)
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	checkpointStore, err := openStore()
	if err != nil {
		return err
	}

	timings := telemetry.NewTimings()
	results := executeBatch(cfg, checkpointStore, timings, batchRuns, batchWorkers)

	printBatch(cmd, results)
	printTimings(cmd, timings)

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(results))
	}
	return nil
}

// executeBatch runs n sessions on at most workers goroutines. Results are
// in run order.
func executeBatch(cfg config.RunConfig, checkpointStore store.Store, timings *telemetry.Timings, n, workers int) []batchResult {
	results := make([]batchResult, n)

	p := pool.New().WithMaxGoroutines(workers)
	for i := 0; i < n; i++ {
		p.Go(func() {
			s := &session{
				cfg:     cfg,
				runID:   uuid.New().String(),
				store:   checkpointStore,
				timings: timings,
			}
			rng := rand.New(rand.NewSource(cfg.Seed + int64(i)))

			cp, err := s.execute(startPoint{random: rng})
			if err != nil {
				slog.Error("Batch run failed", "index", i, "run_id", s.runID, "error", err)
			}
			results[i] = batchResult{index: i, checkpoint: cp, err: err}
		})
	}
	p.Wait()

	return results
}

func printBatch(cmd *cobra.Command, results []batchResult) {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b batchResult) int {
		switch {
		case a.err != nil && b.err != nil:
			return cmp.Compare(a.index, b.index)
		case a.err != nil:
			return 1
		case b.err != nil:
			return -1
		}
		return cmp.Compare(a.checkpoint.Value, b.checkpoint.Value)
	})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tRUN ID\tCONVERGED\tITERATIONS\tF(X)\tRESIDUAL")
	fmt.Fprintln(w, "-\t------\t---------\t----------\t----\t--------")
	for _, r := range sorted {
		if r.err != nil {
			fmt.Fprintf(w, "%d\t-\tfailed\t-\t-\t%v\n", r.index, r.err)
			continue
		}
		cp := r.checkpoint
		fmt.Fprintf(w, "%d\t%s\t%t\t%d\t%.6e\t%.3e\n", r.index, shortID(cp.RunID), cp.Converged, cp.Iterations, cp.Value, cp.Residual)
	}
	w.Flush()
}
