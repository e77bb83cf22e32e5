package recast

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gorecast/adapters/toys"
	domain "gorecast/domain/recast"
	"gorecast/internal"
	"gorecast/internal/testkit"
	"gorecast/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gonumSamplers(src rand.Source) ports.ToySampler {
	return toys.NewGonumSampler(src)
}

func observedLogger() (*internal.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return internal.NewLoggerFromZap(zap.New(core), internal.LogLevelDebug), logs
}

func setupJob(t *testing.T, analyses ...string) (*testkit.TestKit, Job) {
	t.Helper()
	kit, err := testkit.NewTestKit(t.TempDir())
	require.NoError(t, err)

	for _, name := range analyses {
		_, err := kit.WriteInfoFile(name, testkit.InfoXML(name, 10,
			testkit.InfoRegion{ID: "SR1", Type: "signal", Nobs: 5, Nb: 4, DeltaNb: 1},
			testkit.InfoRegion{ID: "MET>200", Nobs: 2, Nb: 3, DeltaNb: 0.5},
		))
		require.NoError(t, err)
		_, err = kit.WriteCutflow("signal", name, "SR1", testkit.CutflowSAF(1000, 0, 50, 0))
		require.NoError(t, err)
		_, err = kit.WriteCutflow("signal", name, "MET_greater_than_200", testkit.CutflowSAF(1000, 0, 0, 0))
		require.NoError(t, err)
	}

	return kit, Job{
		Dirname:  kit.Dirname,
		PADDir:   kit.PADDir,
		Dataset:  "signal",
		Analyses: analyses,
		Xsection: 0.01,
		RunID:    "run-1",
	}
}

func newTestPipeline(kit *testkit.TestKit, factory SamplerFactory, logger *internal.Logger) *Pipeline {
	return NewPipeline(kit.RNGAdapter(), factory, Options{NumToys: 2000, Seed: 7}, logger)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(string(data), "\n")
}

func TestPipelineRun(t *testing.T) {
	kit, job := setupJob(t, "ana_a", "ana_b")
	logger, _ := observedLogger()

	outcome, err := newTestPipeline(kit, gonumSamplers, logger).Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "run-1", outcome.RunID)
	assert.Equal(t, []string{"ana_a", "ana_b"}, outcome.Processed)
	assert.Empty(t, outcome.Skipped)

	lines := readLines(t, outcome.OutputPath)
	require.Len(t, lines, 8) // header, 2 x (2 rows + blank), trailing ""
	assert.True(t, strings.HasPrefix(lines[0], "# analysis name"))
	assert.Contains(t, lines[0], "best?")

	sr1 := lines[1]
	assert.True(t, strings.HasPrefix(sr1, "ana_a"))
	assert.Equal(t, "1         ", sr1[80:90])
	assert.Contains(t, sr1, "0.0500000      0.0068920      0.0000000      0.0068920")

	met := lines[2]
	assert.Contains(t, met, "MET>200")
	assert.Equal(t, "0         ", met[80:90])
	assert.Equal(t, "-1             -1             ", met[90:120])
	assert.Equal(t, "", lines[3])
}

func TestPipelineAppendsWithoutSecondHeader(t *testing.T) {
	kit, job := setupJob(t, "ana_a")
	pipeline := newTestPipeline(kit, gonumSamplers, nil)

	_, err := pipeline.Run(context.Background(), job)
	require.NoError(t, err)
	outcome, err := pipeline.Run(context.Background(), job)
	require.NoError(t, err)

	headers := 0
	for _, line := range readLines(t, outcome.OutputPath) {
		if strings.HasPrefix(line, "# analysis name") {
			headers++
		}
	}
	assert.Equal(t, 1, headers)
}

func TestPipelineSkipsCorruptedAnalysis(t *testing.T) {
	kit, job := setupJob(t, "broken", "ana_b")
	_, err := kit.WriteInfoFile("broken", "<analysis id=\"broken\"><lumi>abc</lumi></analysis>")
	require.NoError(t, err)
	job.Analyses = []string{"missing", "broken", "ana_b"}

	logger, logs := observedLogger()
	outcome, err := newTestPipeline(kit, gonumSamplers, logger).Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, []string{"ana_b"}, outcome.Processed)
	require.Len(t, outcome.Skipped, 2)
	assert.ErrorIs(t, outcome.Skipped[0].Reason, domain.ErrMissingFile)
	assert.ErrorIs(t, outcome.Skipped[1].Reason, domain.ErrParseFailure)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0].Message, "missing")
	assert.Contains(t, warnings[1].Message, "broken")
}

func TestPipelineCapabilityUnavailable(t *testing.T) {
	kit, job := setupJob(t, "ana_a", "ana_b")
	logger, logs := observedLogger()
	unavailable := func(rand.Source) ports.ToySampler { return toys.Unavailable{} }

	outcome, err := newTestPipeline(kit, unavailable, logger).Run(context.Background(), job)
	require.Error(t, err)
	assert.True(t, domain.IsCapabilityError(err))
	assert.Empty(t, outcome.Processed)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[1].Message, "Please")

	lines := readLines(t, outcome.OutputPath)
	assert.Equal(t, []string{lines[0], ""}, lines, "only the header was written")
}

func TestPipelineResultsIndependentOfOrder(t *testing.T) {
	kit, job := setupJob(t, "ana_a", "ana_b")
	pipeline := newTestPipeline(kit, gonumSamplers, nil)

	first, err := pipeline.Run(context.Background(), job)
	require.NoError(t, err)
	forward := readLines(t, first.OutputPath)
	require.NoError(t, os.Remove(first.OutputPath))

	job.Analyses = []string{"ana_b", "ana_a"}
	second, err := pipeline.Run(context.Background(), job)
	require.NoError(t, err)
	backward := readLines(t, second.OutputPath)

	// ana_a rows come first in one table and second in the other
	assert.Equal(t, forward[1:3], backward[4:6])
	assert.Equal(t, forward[4:6], backward[1:3])
}

func TestPipelineLimitsOnlyWithoutCrossSection(t *testing.T) {
	kit, job := setupJob(t, "ana_a")
	job.Xsection = 0

	outcome, err := newTestPipeline(kit, gonumSamplers, nil).Run(context.Background(), job)
	require.NoError(t, err)

	lines := readLines(t, outcome.OutputPath)
	assert.NotContains(t, lines[0], "best?")
	assert.NotContains(t, lines[0], "CLs")
	assert.Equal(t, " ||    ", lines[1][110:117])
}

func TestPipelineCancelled(t *testing.T) {
	kit, job := setupJob(t, "ana_a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := newTestPipeline(kit, gonumSamplers, nil).Run(ctx, job)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outcome.Processed)
}

func TestPipelineSkipsUnreadableCutflows(t *testing.T) {
	kit, job := setupJob(t, "ana_a", "ana_b")

	// a plain file where the analysis output directory should be
	analysisDir := filepath.Join(kit.Dirname, "Output", "signal", "ana_a")
	require.NoError(t, os.RemoveAll(analysisDir))
	require.NoError(t, os.WriteFile(analysisDir, []byte("not a directory"), 0o644))

	logger, logs := observedLogger()
	outcome, err := newTestPipeline(kit, gonumSamplers, logger).Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, []string{"ana_b"}, outcome.Processed)
	require.Len(t, outcome.Skipped, 1)
	assert.Equal(t, "ana_a", outcome.Skipped[0].Analysis)
	assert.ErrorIs(t, outcome.Skipped[0].Reason, domain.ErrReadFailure)
	assert.Equal(t, 1, strings.Count(outcome.Skipped[0].Reason.Error(), "SR1.saf"))
	assert.NotEmpty(t, logs.FilterLevelExact(zapcore.WarnLevel).All())

	lines := readLines(t, outcome.OutputPath)
	assert.True(t, strings.HasPrefix(lines[1], "ana_b"))
}

func TestPipelineSkipsUnreadableInfoFile(t *testing.T) {
	kit, job := setupJob(t, "ana_a", "ana_b")

	// a directory where the info file should be
	infoPath := InfoPath(kit.PADDir, "ana_a")
	require.NoError(t, os.Remove(infoPath))
	require.NoError(t, os.Mkdir(infoPath, 0o755))

	outcome, err := newTestPipeline(kit, gonumSamplers, nil).Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []string{"ana_b"}, outcome.Processed)
	require.Len(t, outcome.Skipped, 1)
	assert.True(t, domain.IsSkippable(outcome.Skipped[0].Reason))
}

type brokenStreams struct {
	ports.RNGPort
}

func (brokenStreams) Stream(context.Context, string, string, string, uint64) (rand.Source, error) {
	return nil, errors.New("entropy exhausted")
}

func TestPipelineStreamFailureStopsRun(t *testing.T) {
	_, job := setupJob(t, "ana_a", "ana_b")
	pipeline := NewPipeline(brokenStreams{}, gonumSamplers, Options{NumToys: 2000, Seed: 7}, nil)

	outcome, err := pipeline.Run(context.Background(), job)
	require.Error(t, err)
	assert.True(t, domain.IsCapabilityError(err))
	assert.Contains(t, err.Error(), "entropy exhausted")
	assert.Empty(t, outcome.Processed)
}
