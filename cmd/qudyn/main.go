package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"
	"github.com/san-kum/qudyn/internal/analysis"
	"github.com/san-kum/qudyn/internal/bath"
	"github.com/san-kum/qudyn/internal/config"
	"github.com/san-kum/qudyn/internal/ensemble"
	"github.com/san-kum/qudyn/internal/evolution"
	"github.com/san-kum/qudyn/internal/metrics"
	"github.com/san-kum/qudyn/internal/operator"
	"github.com/san-kum/qudyn/internal/results"
	"github.com/san-kum/qudyn/internal/solver"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	formalism  string
	horizon    float64
	seed       int64
	// Ensemble size and parallelism
	trajectories int
	workers      int
	// Export trajectory JSON to stdout instead of saving
	exportStdout bool
	noPlot       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "qudyn",
		Short: "open quantum system dynamics simulator",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".qudyn", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log solver warnings")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "integrate one trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTrajectory,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&formalism, "formalism", "", "override formalism")
	runCmd.Flags().Float64Var(&horizon, "time", 0, "override evolution time")
	runCmd.Flags().BoolVar(&exportStdout, "export", false, "print trajectory JSON instead of saving")
	runCmd.Flags().BoolVar(&noPlot, "no-plot", false, "skip terminal plots")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [preset]",
		Short: "average an ensemble of noise realizations",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	ensembleCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	ensembleCmd.Flags().Float64Var(&horizon, "time", 0, "override evolution time")
	ensembleCmd.Flags().IntVar(&trajectories, "n", 0, "number of trajectories")
	ensembleCmd.Flags().IntVar(&workers, "workers", 0, "parallel workers")
	ensembleCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	ensembleCmd.Flags().BoolVar(&noPlot, "no-plot", false, "skip terminal plots")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot saved expectation values",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of saved expectation values",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tFORMALISM\tQUBITS\tBATH")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				bathModel := "-"
				if cfg.Dissipative() || cfg.Bath.Model == "telegraph" {
					bathModel = cfg.Bath.Model
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", name, cfg.Formalism, cfg.System.Qubits, bathModel)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, ensembleCmd, listCmd, plotCmd, exportCmd, analyzeCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func logger() zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// loadConfig resolves the preset argument and config file, then applies
// command-line overrides.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("formalism") {
		cfg.Formalism = formalism
	}
	if cmd.Flags().Changed("time") {
		cfg.Horizon = horizon
	}
	if cmd.Flags().Changed("n") {
		cfg.Ensemble.Trajectories = trajectories
	}
	if cmd.Flags().Changed("workers") {
		cfg.Ensemble.Workers = workers
	}
	if cmd.Flags().Changed("seed") || cfg.Ensemble.Seed == 0 {
		cfg.Ensemble.Seed = seed
	}
	return cfg, nil
}

// evolve dispatches the configured formalism.
func evolve(ctx context.Context, cfg *config.Config, p *evolution.Problem, opts evolution.Options) (*evolution.Trajectory, error) {
	switch cfg.Formalism {
	case "schrodinger":
		return evolution.Schrodinger(ctx, p, opts)
	case "von_neumann":
		return evolution.VonNeumann(ctx, p, opts)
	case "unitary":
		cache, err := evolution.Propagator(ctx, p.Hamiltonian, p.Horizon, opts)
		if err != nil {
			return nil, err
		}
		return cache.Trajectory(), nil
	case "redfield":
		cache, err := evolution.Propagator(ctx, p.Hamiltonian, p.Horizon, opts)
		if err != nil {
			return nil, err
		}
		return evolution.Redfield(ctx, p, cache, evolution.RedfieldOptions{
			Options:   opts,
			Memory:    cfg.Master.Memory,
			QuadNodes: cfg.Master.QuadNodes,
		})
	case "cgme":
		cache, err := evolution.Propagator(ctx, p.Hamiltonian, p.Horizon, opts)
		if err != nil {
			return nil, err
		}
		return evolution.CGME(ctx, p, cache, evolution.CGMEOptions{
			Options:   opts,
			Averaging: cfg.Master.Averaging,
			QuadNodes: cfg.Master.QuadNodes,
		})
	case "ule":
		cache, err := evolution.Propagator(ctx, p.Hamiltonian, p.Horizon, opts)
		if err != nil {
			return nil, err
		}
		return evolution.ULE(ctx, p, cache, evolution.ULEOptions{
			Options:   opts,
			QuadNodes: cfg.Master.QuadNodes,
		})
	case "ame":
		return evolution.AME(ctx, p, evolution.AMEOptions{
			Options:   opts,
			Levels:    cfg.Master.Levels,
			LambShift: cfg.Master.LambShift,
		})
	}
	return nil, fmt.Errorf("unknown formalism: %s", cfg.Formalism)
}

func runTrajectory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	p, err := cfg.BuildProblem()
	if err != nil {
		return err
	}
	obs, err := cfg.BuildObservables()
	if err != nil {
		return err
	}
	opts := cfg.BuildOptions()
	opts.Log = logger()

	fmt.Printf("integrating %s over t in [0, %g]...\n", cfg.Formalism, cfg.Horizon)
	start := time.Now()

	tr, err := evolve(context.Background(), cfg, p, opts)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	named := make([]results.Observable, 0, len(obs))
	if cfg.Formalism != "unitary" {
		// A propagator run stores U(t), not a state; expectation columns
		// only make sense for state trajectories.
		for _, name := range cfg.Observables {
			named = append(named, results.Observable{Name: name, Op: obs[name]})
		}
	}

	if exportStdout {
		return results.ExportJSONStdout(cfg.Formalism, tr, named)
	}

	st := results.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.SaveTrajectory(cfg.Formalism, tr, named)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", len(tr.Times()))
	if truncated, at, cause := tr.Truncated(); truncated {
		fmt.Printf("truncated at t=%.4f: %v\n", at, cause)
	}
	if tr.Kind() == evolution.KindMatrix && cfg.Formalism != "unitary" {
		rho := tr.Density(tr.End())
		fmt.Printf("final purity: %.6f\n", metrics.Purity(rho))
		if s, err := metrics.VonNeumannEntropy(rho); err == nil {
			fmt.Printf("final entropy: %.6f\n", s)
		}
	}

	if !noPlot {
		plotObservables(tr, named)
	}
	return nil
}

func plotObservables(tr *evolution.Trajectory, obs []results.Observable) {
	times := tr.Times()
	for _, o := range obs {
		data := make([]float64, len(times))
		for i, t := range times {
			data[i] = tr.Expect(t, o.Op)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("<%s> vs time", o.Name)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Ensemble.Trajectories <= 0 {
		cfg.Ensemble.Trajectories = 100
	}

	p, err := cfg.BuildProblem()
	if err != nil {
		return err
	}
	obs, err := cfg.BuildObservables()
	if err != nil {
		return err
	}
	opts := cfg.BuildOptions()
	opts.Log = logger()

	sample, err := buildSampler(cfg)
	if err != nil {
		return err
	}
	run := func(ctx context.Context, rp *evolution.Problem) (*evolution.Trajectory, error) {
		return evolve(ctx, cfg, rp, opts)
	}

	n := cfg.Ensemble.Trajectories
	fmt.Printf("running %d trajectories of %s...\n", n, cfg.Formalism)
	start := time.Now()

	runner := &ensemble.Runner{Workers: cfg.Ensemble.Workers, Seed: cfg.Ensemble.Seed}
	res, err := runner.Run(context.Background(), p, n, sample, run)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	times := make([]float64, 101)
	for i := range times {
		times[i] = cfg.Horizon * float64(i) / 100
	}
	series := make(map[string]*ensemble.Series, len(obs))
	for name, op := range obs {
		series[name] = res.Reduce(times, vectorObservable(op, cfg.Kind()))
	}

	st := results.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.SaveEnsemble(cfg.Formalism, cfg.Ensemble.Seed, n, p.Hamiltonian.Dim(), cfg.Horizon, series)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("trajectories: %d ok, %d failed\n", len(res.Trajectories), len(res.Failures))
	for _, f := range res.Failures {
		fmt.Printf("  trajectory %d: %v\n", f.Index, f.Err)
	}

	if !noPlot {
		for _, name := range cfg.Observables {
			graph := asciigraph.Plot(series[name].Mean,
				asciigraph.Height(10),
				asciigraph.Width(80),
				asciigraph.Caption(fmt.Sprintf("<%s> ensemble mean", name)),
			)
			fmt.Println(graph)
			fmt.Println()
		}
	}
	return nil
}

// buildSampler wires per-trajectory noise: a telegraph bath on a vector
// formalism becomes a sampled classical term in the Hamiltonian.
func buildSampler(cfg *config.Config) (ensemble.SampleFunc, error) {
	if cfg.Bath.Model != "telegraph" || cfg.Dissipative() {
		return nil, nil
	}
	b, err := cfg.BuildBath()
	if err != nil {
		return nil, err
	}
	sampler, ok := b.(bath.Sampler)
	if !ok {
		return nil, fmt.Errorf("bath %s cannot sample realizations", b.Label())
	}
	var coupling operator.Matrix
	switch cfg.System.Coupling {
	case "sx":
		coupling = operator.SigmaX
	case "sy":
		coupling = operator.SigmaY
	default:
		coupling = operator.SigmaZ
	}
	if cfg.System.Qubits > 1 {
		coupling = operator.Embed(coupling, 0, cfg.System.Qubits)
	}
	return ensemble.TelegraphSampler(coupling, sampler), nil
}

// vectorObservable adapts an operator to the raw integrator state.
func vectorObservable(op operator.Matrix, kind evolution.Kind) ensemble.Observable {
	return func(y solver.State) float64 {
		if kind == evolution.KindVector {
			return real(operator.Expectation(op, operator.Vector(y)))
		}
		rho := operator.Unflatten(op.Dim(), y)
		return real(operator.TraceProduct(op, rho))
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := results.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFORMALISM\tTIME\tHORIZON\tDIM\tN\tTRUNCATED")
	for _, run := range runs {
		truncated := "-"
		if run.Truncated {
			truncated = fmt.Sprintf("t=%.3f", run.TruncatedAt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%d\t%d\t%s\n",
			run.ID,
			run.Formalism,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Horizon,
			run.Dimension,
			run.Trajectories,
			truncated,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := results.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	names, times, rows, err := st.LoadTable(args[0])
	if err != nil {
		return err
	}
	if len(times) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("formalism: %s\n", meta.Formalism)
	fmt.Printf("samples: %d\n\n", len(times))

	for j, name := range names {
		data := make([]float64, len(rows))
		for i := range rows {
			data[i] = rows[i][j]
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s vs time", name)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := results.New(dataDir)
	names, times, rows, err := st.LoadTable(args[0])
	if err != nil {
		return err
	}

	for j, name := range names {
		data := make([]float64, len(rows))
		for i := range rows {
			data[i] = rows[i][j]
		}
		spec, err := analysis.PowerSpectrum(times, data)
		if err != nil {
			fmt.Printf("%s: %v\n", name, err)
			continue
		}
		fmt.Printf("%s: dominant frequency %.4f\n", name, spec.Dominant())
		graph := asciigraph.Plot(spec.Power,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s power spectrum", name)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := results.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
