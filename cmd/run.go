package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/fieldmin/internal/config"
	"github.com/cwbudde/fieldmin/internal/store"
	"github.com/cwbudde/fieldmin/internal/telemetry"
)

var (
	configPath         string
	problemName        string
	dim                int
	sites              int
	startValue         float64
	seed               int64
	eps                float64
	maxIter            int
	step               float64
	logEvery           int
	lineSearch         bool
	warmStart          bool
	requireConvergence bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single gradient descent",
	Long: `Minimizes one of the built-in problems (quadratic, rosenbrock, rotation),
writes the convergence trace and a checkpoint of the final iterate, and prints
the timing report. Not converging within --maxiter is reported but is not an
error unless --require-convergence is set.`,
	RunE: runOptimization,
}

func init() {
	addRunConfigFlags(runCmd)
	runCmd.Flags().BoolVar(&warmStart, "warm-start", config.Default().WarmStart.Enabled, "Pick the starting point with a Mayfly search (flat problems)")
	runCmd.Flags().BoolVar(&requireConvergence, "require-convergence", false, "Exit with an error if the run does not converge")

	rootCmd.AddCommand(runCmd)
}

// addRunConfigFlags registers the flags resolveConfig reads.
func addRunConfigFlags(cmd *cobra.Command) {
	d := config.Default()

	cmd.Flags().StringVar(&configPath, "config", "", "YAML run configuration; explicit flags override it")
	cmd.Flags().StringVar(&problemName, "problem", d.Problem, "Problem: quadratic, rosenbrock, rotation")
	cmd.Flags().IntVar(&dim, "dim", d.Dim, "Coordinates of flat problems")
	cmd.Flags().IntVar(&sites, "sites", d.Sites, "Lattice sites of the rotation problem")
	cmd.Flags().Float64Var(&startValue, "start", d.Start, "Initial value of every coordinate")
	cmd.Flags().Int64Var(&seed, "seed", d.Seed, "Random seed")
	cmd.Flags().Float64Var(&eps, "eps", d.Eps, "Convergence tolerance on the per-dof RMS gradient")
	cmd.Flags().IntVar(&maxIter, "maxiter", d.MaxIter, "Max iterations")
	cmd.Flags().Float64Var(&step, "step", d.Step, "Step size")
	cmd.Flags().IntVar(&logEvery, "log-every", d.LogEvery, "Log f(x) every N iterations")
	cmd.Flags().BoolVar(&lineSearch, "line-search", d.LineSearch, "Scale every step by a quadratic line search")
}

// resolveConfig loads --config (or the defaults) and applies every flag the
// user set explicitly on top.
func resolveConfig(cmd *cobra.Command) (config.RunConfig, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return config.RunConfig{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("problem") {
		cfg.Problem = problemName
	}
	if flags.Changed("dim") {
		cfg.Dim = dim
	}
	if flags.Changed("sites") {
		cfg.Sites = sites
	}
	if flags.Changed("start") {
		cfg.Start = startValue
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("eps") {
		cfg.Eps = eps
	}
	if flags.Changed("maxiter") {
		cfg.MaxIter = maxIter
	}
	if flags.Changed("step") {
		cfg.Step = step
	}
	if flags.Changed("log-every") {
		cfg.LogEvery = logEvery
	}
	if flags.Changed("line-search") {
		cfg.LineSearch = lineSearch
	}
	if flags.Changed("warm-start") {
		cfg.WarmStart.Enabled = warmStart
	}

	if err := cfg.Validate(); err != nil {
		return config.RunConfig{}, err
	}
	return cfg, nil
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	checkpointStore, err := openStore()
	if err != nil {
		return err
	}

	timings := telemetry.NewTimings()
	s := &session{
		cfg:     cfg,
		runID:   uuid.New().String(),
		store:   checkpointStore,
		timings: timings,
	}

	cp, err := s.execute(startPoint{})
	if err != nil {
		return err
	}

	printOutcome(cmd, cp)
	printTimings(cmd, timings)

	if requireConvergence && !cp.Converged {
		return fmt.Errorf("run %s did not converge in %d iterations", cp.RunID, cfg.MaxIter)
	}
	return nil
}

func printOutcome(cmd *cobra.Command, cp *store.Checkpoint) {
	status := "converged"
	if !cp.Converged {
		status = "NOT converged"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run %s %s after %d iterations (f = %.6e, residual = %.3e)\n",
		cp.RunID, status, cp.Iterations, cp.Value, cp.Residual)
}

func printTimings(cmd *cobra.Command, timings *telemetry.Timings) {
	out := cmd.OutOrStdout()
	for _, t := range timings.Report() {
		fmt.Fprintf(out, "  %-48s %12s  (%d call(s))\n", t.Label, t.Total.Round(time.Microsecond), t.Calls)
	}
}
