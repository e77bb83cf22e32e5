package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gorecast/adapters/rng"
	"gorecast/adapters/toys"
	domain "gorecast/domain/recast"
	"gorecast/internal"
	"gorecast/internal/card"
	"gorecast/internal/cls"
	"gorecast/internal/config"
	apperrors "gorecast/internal/errors"
	"gorecast/internal/recast"
	"gorecast/internal/report"
	"gorecast/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// a missing .env is fine: the environment alone is enough
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := internal.NewLogger(cfg.Log.Level)
	defer logger.Sync()

	rootCmd := &cobra.Command{
		Use:          "recast-cli",
		Short:        "Exclusion limits and CLs values for recast analyses",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newCLsCmd(cfg, logger),
		newCollectCmd(logger),
		newCardCmd(cfg),
		newToyCmd(cfg, logger),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[%s] %v\n", errorCode(err), err)
		os.Exit(1)
	}
}

// errorCode names the failure class of a command error
func errorCode(err error) string {
	switch {
	case apperrors.IsAppError(err):
		return apperrors.GetCode(err)
	case errors.Is(err, domain.ErrParseFailure):
		return apperrors.CodeParseFailure
	case errors.Is(err, domain.ErrMissingFile):
		return apperrors.CodeMissingFile
	case errors.Is(err, domain.ErrCapabilityUnavailable):
		return apperrors.CodeCapabilityUnavailable
	default:
		return apperrors.CodeInternalError
	}
}

func gonumSamplers(src rand.Source) ports.ToySampler {
	return toys.NewGonumSampler(src)
}

func newCLsCmd(cfg *config.Config, logger *internal.Logger) *cobra.Command {
	var job recast.Job
	var seed uint64
	var numToys int

	cmd := &cobra.Command{
		Use:   "cls [analyses...]",
		Short: "Compute the 95% CL limits and CLs of analyses on one dataset",
		Long: `Compute, for every signal region of the given analyses, the cross-section
excluded at 95% CL (expected and observed) and, when a signal cross-section is
given, the CLs of the signal and the most sensitive region.

Results are appended to <dirname>/Output/<dataset>/CLs_output.dat.

Example: recast-cli cls atlas_susy_2013_21 cms_sus_13_012 --dirname ./job --pad ./PAD --dataset signal --xsection 0.5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job.Analyses = args
			opts := recast.Options{
				NumToys:         cfg.CLs.NumOfExps,
				MaxBracketSteps: cfg.CLs.MaxBracketSteps,
				Seed:            cfg.CLs.Seed,
			}
			if cmd.Flags().Changed("seed") {
				opts.Seed = seed
			}
			if cmd.Flags().Changed("toys") {
				opts.NumToys = numToys
			}
			return runCLs(cmd.Context(), job, opts, logger)
		},
	}

	cmd.Flags().StringVar(&job.Dirname, "dirname", ".", "Job directory holding Output/")
	cmd.Flags().StringVar(&job.PADDir, "pad", "PAD", "Analysis framework directory holding the info files")
	cmd.Flags().StringVar(&job.Dataset, "dataset", "", "Dataset name")
	cmd.Flags().Float64Var(&job.Xsection, "xsection", 0, "Signal cross-section in pb (<= 0 computes the limits only)")
	cmd.Flags().StringVar(&job.RunID, "run-id", "", "Run identifier (default: a fresh UUID)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Base random seed (overrides RECAST_SEED)")
	cmd.Flags().IntVar(&numToys, "toys", config.DefaultNumOfExps, "Toy experiments per CLs evaluation (overrides RECAST_CLS_NUMOFEXPS)")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func runCLs(ctx context.Context, job recast.Job, opts recast.Options, logger *internal.Logger) error {
	if err := report.CheckDir(job.Dirname); err != nil {
		return err
	}

	pipeline := recast.NewPipeline(rng.NewSeededAdapter(), gonumSamplers, opts, logger)
	outcome, err := pipeline.Run(ctx, job)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d analyses written to %s\n", outcome.RunID, len(outcome.Processed), outcome.OutputPath)
	for _, skip := range outcome.Skipped {
		fmt.Printf("  skipped %s: %v\n", skip.Analysis, skip.Reason)
	}
	return nil
}

func newCollectCmd(logger *internal.Logger) *cobra.Command {
	var dirname string

	cmd := &cobra.Command{
		Use:   "collect [datasets...]",
		Short: "Merge the CLs tables of several datasets into one summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := report.CheckDir(dirname); err != nil {
				logger.Error("%v", err)
				return err
			}
			for _, dataset := range args {
				if err := report.CheckFile(dirname, dataset); err != nil {
					logger.Error("%v", err)
					return err
				}
			}
			if err := report.Collect(dirname, args); err != nil {
				return err
			}
			fmt.Println(report.SummaryPath(dirname))
			return nil
		},
	}

	cmd.Flags().StringVar(&dirname, "dirname", ".", "Job directory holding Output/")
	return cmd
}

func newCardCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Create, check and inspect recasting cards",
	}

	var version string
	defaultCmd := &cobra.Command{
		Use:   "default",
		Short: "Print a card switching on every known analysis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := card.LoadCatalog(cfg.Paths.CatalogPath)
			if err != nil {
				return err
			}
			text, err := catalog.DefaultCard(version)
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		},
	}
	defaultCmd.Flags().StringVar(&version, "version", card.VersionPAD, "Card version: v1.2 or v1.1")

	checkCmd := &cobra.Command{
		Use:   "check [card]",
		Short: "Validate a card against the analysis catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCard(cfg, args)
			if err != nil {
				return err
			}
			catalog, err := card.LoadCatalog(cfg.Paths.CatalogPath)
			if err != nil {
				return err
			}
			if err := c.Check(catalog); err != nil {
				return err
			}
			fmt.Printf("card OK: %d analyses, %d switched on\n", len(c.Entries), len(c.AnalysisRuns()))
			return nil
		},
	}

	runsCmd := &cobra.Command{
		Use:   "runs [card]",
		Short: "List the analysis and detector simulation runs a card requests",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCard(cfg, args)
			if err != nil {
				return err
			}
			fmt.Printf("analyses: %s\n", strings.Join(c.AnalysisRuns(), " "))
			fmt.Printf("delphes:  %s\n", strings.Join(c.DelphesRuns(), " "))
			return nil
		},
	}

	cmd.AddCommand(defaultCmd, checkCmd, runsCmd)
	return cmd
}

func loadCard(cfg *config.Config, args []string) (*card.Card, error) {
	path := cfg.Paths.CardPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return nil, fmt.Errorf("no recasting card given (argument or RECAST_CARD_PATH)")
	}
	return card.ParseFile(path)
}

func newToyCmd(cfg *config.Config, logger *internal.Logger) *cobra.Command {
	var observed, bkg, bkgErr, signal float64
	var seed uint64
	var numToys int

	cmd := &cobra.Command{
		Use:   "toy",
		Short: "Evaluate 1-CLs for a single counting experiment",
		Long: `Run the toy Monte Carlo once for an observed count, a background
expectation with its uncertainty and a signal yield.

Example: recast-cli toy --observed 5 --background 4 --background-error 1 --signal 3 --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bkgErr < 0 {
				return apperrors.InvalidInput("--background-error must not be negative")
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.CLs.Seed
			}
			if !cmd.Flags().Changed("toys") {
				numToys = cfg.CLs.NumOfExps
			}
			src, err := rng.NewSeededAdapter().SeededSource(cmd.Context(), "toy", seed)
			if err != nil {
				return err
			}
			stat := cls.NewStatistic(toys.NewGonumSampler(src), numToys, logger)
			value, err := stat.Compute(observed, bkg, bkgErr, signal)
			if err != nil {
				return err
			}
			fmt.Printf("1-CLs = %.7f (%d toys)\n", value, stat.NumToys())
			return nil
		},
	}

	cmd.Flags().Float64Var(&observed, "observed", 0, "Observed event count")
	cmd.Flags().Float64Var(&bkg, "background", 0, "Expected background")
	cmd.Flags().Float64Var(&bkgErr, "background-error", 0, "Background uncertainty")
	cmd.Flags().Float64Var(&signal, "signal", 0, "Signal yield")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (overrides RECAST_SEED)")
	cmd.Flags().IntVar(&numToys, "toys", config.DefaultNumOfExps, "Toy experiments (overrides RECAST_CLS_NUMOFEXPS)")
	return cmd
}
