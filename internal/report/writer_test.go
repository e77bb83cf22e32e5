package report

import (
	"bytes"
	"strings"
	"testing"

	"gorecast/domain/recast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteHeaderWithoutCrossSection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, false))

	want := "# analysis name               signal region                                     " +
		"sig95(exp)     sig95(obs)      ||    efficiency     stat. unc.     syst. unc.     tot. unc.      \n"
	assert.Equal(t, want, buf.String())
}

func TestWriteHeaderWithCrossSection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, true))

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "# analysis name"))
	assert.Equal(t, "best?     ", line[80:90])
	assert.Equal(t, "CLs       ", line[120:130])
	assert.Equal(t, separator, line[130:137])
}

func sampleAnalysis(t *testing.T) *recast.Analysis {
	t.Helper()
	regions := recast.NewRegionSet()
	require.NoError(t, regions.Add("SR1", recast.RegionData{
		Nobs: 5, Nb: 4, DeltaNb: 1, N0: 1000, Nf: 50,
		S95Exp: recast.Sig95Limit(0.01),
		S95Obs: recast.Sig95NoLimit(),
		CLs:    0.5,
		Best:   true,
	}))
	require.NoError(t, regions.Add("SR2", recast.RegionData{
		N0:     10,
		S95Exp: recast.Sig95Failed(),
		S95Obs: recast.Sig95Failed(),
	}))
	return &recast.Analysis{ID: "atlas_susy_2018_31", Lumi: 139, Regions: regions}
}

func TestWriteAnalysisWithCrossSection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAnalysis(&buf, "atlas_susy_2018_31", sampleAnalysis(t), true))

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "atlas_susy_2018_31            SR1                                               "+
		"1         0.0100000      -1             0.5000000  ||    "+
		"0.0500000      0.0068920      0.0000000      0.0068920      ", lines[0])

	second := lines[1]
	assert.True(t, strings.HasPrefix(second[30:], "SR2"), "regions keep declaration order")
	assert.Equal(t, "0         ", second[80:90])
	assert.Equal(t, "-1.0000000     ", second[90:105])
	assert.Equal(t, "", lines[2], "blank line after the analysis")
}

func TestWriteAnalysisWithoutCrossSection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAnalysis(&buf, "atlas_susy_2018_31", sampleAnalysis(t), false))

	first := strings.Split(buf.String(), "\n")[0]
	assert.Equal(t, "0.0100000      ", first[80:95])
	assert.Equal(t, "-1             ", first[95:110])
	assert.Equal(t, separator, first[110:117])
	assert.NotContains(t, first, "0.5000000")
}

func TestLongNamesAreNotTruncated(t *testing.T) {
	long := strings.Repeat("x", 40)
	var buf bytes.Buffer
	require.NoError(t, WriteAnalysis(&buf, long, sampleAnalysis(t), false))
	assert.True(t, strings.HasPrefix(buf.String(), long+"SR1"))
}
