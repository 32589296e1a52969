package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/fieldmin/internal/store"
)

var traceEvery int

var traceCmd = &cobra.Command{
	Use:   "trace [run-id]",
	Short: "Show the convergence trace of a run",
	Long:  `Tabulates the residual history recorded in a run's trace.jsonl.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTrace,
}

func init() {
	traceCmd.Flags().IntVar(&traceEvery, "every", 1, "Show every N-th entry (the last entry is always shown)")
	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, args []string) error {
	if traceEvery <= 0 {
		return fmt.Errorf("--every must be positive, got %d", traceEvery)
	}

	r, err := store.NewTraceReader(dataDir, args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	entries, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "Trace is empty.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITERATION\tRESIDUAL\tTOLERANCE\tTIMESTAMP")
	fmt.Fprintln(w, "---------\t--------\t---------\t---------")
	for i, e := range entries {
		if i%traceEvery != 0 && i != len(entries)-1 {
			continue
		}
		fmt.Fprintf(w, "%d\t%.6e\t%.1e\t%s\n", e.Iteration, e.Residual, e.Tolerance, e.Timestamp.Format("15:04:05.000"))
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal entries: %d\n", len(entries))
	return nil
}
