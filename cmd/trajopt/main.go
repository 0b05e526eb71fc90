// Command trajopt is the CLI front end for the trajectory optimization
// core: it builds a solver.Problem/solver.Options pair from a named model
// preset or a YAML scenario file, runs solver.Solve, and persists the
// result through internal/store. Grounded on the teacher's cmd/dynsim/
// main.go cobra wiring (root command with persistent --data flag,
// run/list/plot/export subcommands, a tabwriter listing, an asciigraph
// plot, a bubbletea live view), generalized from "simulate one model" to
// "solve one trajectory optimization problem."
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/arnewlabs/trajopt/internal/scenario"
	"github.com/arnewlabs/trajopt/internal/solver"
	"github.com/arnewlabs/trajopt/internal/solverlog"
	"github.com/arnewlabs/trajopt/internal/store"
)

var (
	dataDir      string
	scenarioFile string
	presetName   string
	knots        int
	tf           float64
	minDt, maxDt float64
	minimumTime  bool
	infeasible   bool
	integration  string
	verbose      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trajopt",
		Short: "constrained trajectory optimizer (iLQR + augmented Lagrangian)",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".trajopt", "data directory")

	solveCmd := &cobra.Command{
		Use:   "solve [model]",
		Short: "solve a trajectory optimization problem",
		Args:  cobra.ExactArgs(1),
		RunE:  runSolve,
	}
	solveCmd.Flags().StringVar(&scenarioFile, "scenario", "", "scenario YAML file (overrides model/preset flags)")
	solveCmd.Flags().StringVar(&presetName, "preset", "", "named preset for the model")
	solveCmd.Flags().IntVar(&knots, "knots", 0, "number of knot points (0 = preset/default)")
	solveCmd.Flags().Float64Var(&tf, "tf", 0, "horizon length in seconds (0 = preset/default)")
	solveCmd.Flags().Float64Var(&minDt, "min-dt", 0, "minimum per-step dt under minimum-time")
	solveCmd.Flags().Float64Var(&maxDt, "max-dt", 0, "maximum per-step dt under minimum-time")
	solveCmd.Flags().BoolVar(&minimumTime, "minimum-time", false, "enable the minimum-time embedding")
	solveCmd.Flags().BoolVar(&infeasible, "infeasible", false, "enable the infeasible-start embedding")
	solveCmd.Flags().StringVar(&integration, "integration", "", "control integration: zoh or foh")
	solveCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug-level solver logging")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list solve runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run's state/control trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "print a run's trajectory.csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSVRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := scenario.ListPresets(args[0])
			if len(names) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, n := range names {
				fmt.Printf("  %s\n", n)
			}
			return nil
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch [run_id]",
		Short: "replay a run's trajectory in a live terminal view",
		Args:  cobra.ExactArgs(1),
		RunE:  watchRun,
	}

	rootCmd.AddCommand(solveCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, presetsCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSolve(cmd *cobra.Command, args []string) error {
	model := args[0]

	p, opts, err := buildProblem(model)
	if err != nil {
		return err
	}
	opts.Verbose = verbose
	opts.Logger = solverlog.Default(verbose)

	fmt.Printf("solving %s...\n", model)
	res, err := solver.Solve(p, opts)
	if err != nil {
		return fmt.Errorf("solve failed: %w", err)
	}

	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(model, res)
	if err != nil {
		return err
	}

	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("converged: %v (%s)\n", res.Converged, res.FinalState)
	fmt.Printf("outer iterations: %d, total inner: %d\n", res.OuterIterations, res.TotalInner)
	if n := len(res.History); n > 0 {
		last := res.History[n-1]
		fmt.Printf("final cost: %.6f, c_max: %.3e\n", last.Cost, last.CMax)
	}
	return nil
}

// buildProblem resolves a scenario file, falling back to a named model's
// preset (or its zero-value Document) when --scenario is unset. This
// mirrors the teacher's runSimulation precedence: explicit config file
// overrides a preset, a preset overrides the model's bare defaults.
func buildProblem(model string) (*solver.Problem, *solver.Options, error) {
	var doc *scenario.Document
	if scenarioFile != "" {
		return applyFlagOverrides(scenario.Load(scenarioFile))
	}
	if presetName != "" {
		doc = scenario.GetPreset(model, presetName)
		if doc == nil {
			return nil, nil, fmt.Errorf("unknown preset %q for model %q (available: %v)", presetName, model, scenario.ListPresets(model))
		}
	} else {
		doc = &scenario.Document{Model: model}
	}
	return applyFlagOverrides(scenario.Build(doc))
}

func applyFlagOverrides(p *solver.Problem, opts *solver.Options, err error) (*solver.Problem, *solver.Options, error) {
	if err != nil {
		return nil, nil, err
	}
	if knots > 0 {
		p.Knots = knots
	}
	if tf > 0 {
		p.Tf = tf
	}
	if minDt > 0 {
		p.MinDt = minDt
	}
	if maxDt > 0 {
		p.MaxDt = maxDt
	}
	if minimumTime {
		opts.MinimumTime = true
	}
	if infeasible {
		opts.Infeasible = true
	}
	if integration != "" {
		opts.ControlIntegration = integration
	}
	return p, opts, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tCONVERGED\tOUTER\tINNER")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%d\t%d\n",
			run.ID, run.Model, run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Converged, run.OuterIters, run.TotalInner)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := store.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	cols, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s, converged: %v\n\n", meta.Model, meta.Converged)

	for _, name := range sortedColumnNames(cols) {
		data := cols[name]
		if len(data) < 2 {
			continue
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func sortedColumnNames(cols map[string][]float64) []string {
	names := make([]string, 0, len(cols))
	for n := range cols {
		names = append(names, n)
	}
	// grouped by leading letter (u columns before x columns), then by plain
	// string order within a group (so x10 sorts before x2); a simple
	// insertion sort since column counts are small.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && lessColumn(names[j], names[j-1]); j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
}

func lessColumn(a, b string) bool {
	if a == b {
		return false
	}
	if len(a) == 0 || len(b) == 0 {
		return a < b
	}
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a < b
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := store.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	return printJSON(meta)
}

func exportCSVRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := store.New(dataDir)
	cols, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("no data to export")
	}

	names := sortedColumnNames(cols)
	n := len(cols[names[0]])

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
	fmt.Fprintln(w, "knot\t"+joinColumns(names))
	for k := 0; k < n; k++ {
		fmt.Fprintf(w, "%d", k)
		for _, name := range names {
			fmt.Fprintf(w, "\t%.6f", cols[name][k])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func joinColumns(names []string) string {
	s := ""
	for i, n := range names {
		if i > 0 {
			s += "\t"
		}
		s += n
	}
	return s
}
