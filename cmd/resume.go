package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/fieldmin/internal/config"
	"github.com/cwbudde/fieldmin/internal/store"
	"github.com/cwbudde/fieldmin/internal/telemetry"
)

var (
	resumeMaxIter int
	resumeEps     float64
	resumeStep    float64
)

var resumeCmd = &cobra.Command{
	Use:   "resume [run-id]",
	Short: "Continue a run from its checkpoint",
	Long: `Reloads the final iterate of a run and continues gradient descent with the
stored configuration, appending to the run's trace. The iteration budget
starts again at zero; --maxiter, --eps and --step may override the stored
optimizer parameters.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	addResumeFlags(resumeCmd)
	rootCmd.AddCommand(resumeCmd)
}

func addResumeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&resumeMaxIter, "maxiter", 0, "Override the stored iteration budget")
	cmd.Flags().Float64Var(&resumeEps, "eps", 0, "Override the stored tolerance")
	cmd.Flags().Float64Var(&resumeStep, "step", 0, "Override the stored step size")
}

// resumeConfig applies the explicitly set optimizer overrides to the stored
// configuration of cp and validates the result.
func resumeConfig(cmd *cobra.Command, cp *store.Checkpoint) (config.RunConfig, error) {
	cfg := cp.Config
	if cmd.Flags().Changed("maxiter") {
		cfg.MaxIter = resumeMaxIter
	}
	if cmd.Flags().Changed("eps") {
		cfg.Eps = resumeEps
	}
	if cmd.Flags().Changed("step") {
		cfg.Step = resumeStep
	}
	if err := cfg.Validate(); err != nil {
		return config.RunConfig{}, err
	}
	if err := cp.IsCompatible(cfg); err != nil {
		return config.RunConfig{}, err
	}
	return cfg, nil
}

func runResume(cmd *cobra.Command, args []string) error {
	runID := args[0]

	checkpointStore, err := openStore()
	if err != nil {
		return err
	}

	cp, err := checkpointStore.LoadCheckpoint(runID)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if err := cp.Validate(); err != nil {
		return fmt.Errorf("invalid checkpoint: %w", err)
	}

	cfg, err := resumeConfig(cmd, cp)
	if err != nil {
		return err
	}

	slog.Info("Resuming run", "run_id", runID, "iterations", cp.Iterations, "residual", cp.Residual)

	timings := telemetry.NewTimings()
	s := &session{
		cfg:             cfg,
		runID:           runID,
		store:           checkpointStore,
		timings:         timings,
		appendTrace:     true,
		priorIterations: cp.Iterations,
	}

	next, err := s.execute(startPoint{resume: &cp.Point})
	if err != nil {
		return err
	}

	printOutcome(cmd, next)
	printTimings(cmd, timings)
	return nil
}
