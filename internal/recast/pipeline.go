// Package recast runs the CLs exclusion computation of a dataset over a list
// of analyses and appends the results to the dataset's CLs table.
package recast

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	domain "gorecast/domain/recast"
	"gorecast/internal"
	"gorecast/internal/cls"
	"gorecast/internal/cutflow"
	apperrors "gorecast/internal/errors"
	"gorecast/internal/infofile"
	"gorecast/internal/report"
	"gorecast/ports"
)

// SamplerFactory builds a toy sampler drawing from src
type SamplerFactory func(src rand.Source) ports.ToySampler

// Job describes one CLs computation
type Job struct {
	Dirname  string   // job directory holding Output/
	PADDir   string   // analysis framework directory holding the info files
	Dataset  string   // dataset name, the Output/ subdirectory
	Analyses []string // processed in this order
	Xsection float64  // signal cross-section in pb; <= 0 only computes the limits
	RunID    string   // optional; a fresh one is generated when empty
}

// Skip records an analysis left out of the table
type Skip struct {
	Analysis string
	Reason   error
}

// Outcome summarizes a run
type Outcome struct {
	RunID      string
	OutputPath string
	Processed  []string
	Skipped    []Skip
}

// Options tunes the numerical side of the pipeline
type Options struct {
	NumToys         int
	MaxBracketSteps int
	Seed            uint64 // 0 derives one from the clock
}

// Pipeline computes the 95% CL limits and CLs values of analyses
type Pipeline struct {
	rngPort    ports.RNGPort
	newSampler SamplerFactory
	cutflows   *cutflow.Reader
	opts       Options
	logger     *internal.Logger
}

// NewPipeline creates a pipeline
func NewPipeline(rngPort ports.RNGPort, newSampler SamplerFactory, opts Options, logger *internal.Logger) *Pipeline {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	if opts.NumToys <= 0 {
		opts.NumToys = cls.DefaultNumToys
	}
	if opts.MaxBracketSteps <= 0 {
		opts.MaxBracketSteps = cls.DefaultMaxBracketSteps
	}
	return &Pipeline{
		rngPort:    rngPort,
		newSampler: newSampler,
		cutflows:   cutflow.NewReader(logger),
		opts:       opts,
		logger:     logger,
	}
}

// InfoPath is where the info file of an analysis lives
func InfoPath(padDir, analysis string) string {
	return filepath.Join(padDir, "Build", "SampleAnalyzer", "User", "Analyzer", analysis+".info")
}

// CutflowDir is where the cutflows of an analysis on a dataset live
func CutflowDir(dirname, dataset, analysis string) string {
	return filepath.Join(dirname, "Output", dataset, analysis, "Cutflows")
}

// Run processes the analyses of the job in order. Any failure of a single
// analysis skips it with a warning. A missing toy sampler stops the run and
// is returned, as are output failures and cancellation.
func (p *Pipeline) Run(ctx context.Context, job Job) (outcome Outcome, err error) {
	outcome.RunID = job.RunID
	if outcome.RunID == "" {
		outcome.RunID = uuid.NewString()
	}
	seed := p.opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	logger := p.logger.With("run", outcome.RunID, "dataset", job.Dataset)

	logger.Info("   Calculation of the exclusion CLs")
	xsGiven := job.Xsection > 0
	if !xsGiven {
		logger.Info("   Signal xsection not defined. The 95%% excluded xsection will be calculated.")
	}

	outcome.OutputPath = report.OutputPath(job.Dirname, job.Dataset)
	out, err := openOutput(outcome.OutputPath, xsGiven)
	if err != nil {
		return outcome, err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = apperrors.OutputError("cannot close "+outcome.OutputPath, cerr)
		}
	}()

	for _, name := range job.Analyses {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		analysis, err := p.process(ctx, job, outcome.RunID, seed, name, logger)
		if err != nil {
			switch {
			case domain.IsCapabilityError(err):
				logger.Warn("toy sampling is not available... the CLs module cannot be used: %v", err)
				logger.Warn("Please configure a toy sampler backend.")
				return outcome, apperrors.WithCode(apperrors.CodeCapabilityUnavailable, err)
			case ctx.Err() != nil:
				return outcome, ctx.Err()
			case domain.IsSkippable(err):
				outcome.Skipped = append(outcome.Skipped, Skip{Analysis: name, Reason: err})
				continue
			default:
				logger.Warn("CLs calculation failed for %s: %v. Skipping the analysis.", name, err)
				outcome.Skipped = append(outcome.Skipped, Skip{Analysis: name, Reason: err})
				continue
			}
		}

		if err := report.WriteAnalysis(out, name, analysis, xsGiven); err != nil {
			return outcome, apperrors.OutputError("cannot write "+outcome.OutputPath, err)
		}
		outcome.Processed = append(outcome.Processed, name)
	}

	logger.Debug("processed %d analyses, skipped %d", len(outcome.Processed), len(outcome.Skipped))
	return outcome, nil
}

func (p *Pipeline) process(ctx context.Context, job Job, runID string, seed uint64, name string, logger *internal.Logger) (*domain.Analysis, error) {
	infoPath := InfoPath(job.PADDir, name)
	analysis, err := infofile.ReadFile(infoPath, name)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingFile):
			logger.Warn("Info file missing for the %s analysis (%s). Skipping the CLs calculation.", name, infoPath)
		case errors.Is(err, domain.ErrReadFailure):
			logger.Warn("Info file for %s unreadable (%v). Skipping the CLs calculation.", name, err)
		default:
			logger.Warn("Info file for %s corrupted (%v). Skipping the CLs calculation.", name, err)
		}
		return nil, err
	}

	dir := CutflowDir(job.Dirname, job.Dataset, name)
	if err := p.cutflows.Fill(dir, analysis.Regions); err != nil {
		logger.Warn("Cutflows of %s unusable in %s. Skipping the CLs calculation.", name, dir)
		return nil, err
	}

	src, err := p.rngPort.Stream(ctx, runID, job.Dataset, name, seed)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: random stream for %s: %v", domain.ErrCapabilityUnavailable, name, err)
	}
	stat := cls.NewStatistic(p.newSampler(src), p.opts.NumToys, logger)
	solver := cls.NewSolver(stat,
		cls.WithMaxBracketSteps(p.opts.MaxBracketSteps),
		cls.WithLogger(logger.With("analysis", name)),
	)

	for _, tag := range []domain.Tag{domain.TagExpected, domain.TagObserved} {
		if err := solver.ComputeSig95(analysis, tag); err != nil {
			return nil, err
		}
	}
	if job.Xsection > 0 {
		if err := solver.ComputeCLs(analysis, job.Xsection); err != nil {
			return nil, err
		}
	}
	return analysis, nil
}

// openOutput appends to an existing table, or creates one with its header
func openOutput(path string, xsGiven bool) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperrors.OutputError("cannot create "+filepath.Dir(path), err)
	}

	if _, err := os.Stat(path); err == nil {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, apperrors.OutputError("cannot open "+path, err)
		}
		return f, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, apperrors.OutputError("cannot create "+path, err)
	}
	if err := report.WriteHeader(f, xsGiven); err != nil {
		f.Close()
		return nil, apperrors.OutputError(fmt.Sprintf("cannot write header to %s", path), err)
	}
	return f, nil
}
