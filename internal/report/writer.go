// Package report writes the fixed-width CLs tables and collects them into a
// summary over datasets.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"gorecast/domain/recast"
)

// File names of the CLs tables
const (
	OutputFile  = "CLs_output.dat"
	SummaryFile = "CLs_output_summary.dat"
)

// Column widths
const (
	analysisWidth = 30
	regionWidth   = 50
	bestWidth     = 10
	sig95Width    = 15
	clsWidth      = 10
	numberWidth   = 15

	separator = " ||    "
)

const analysisHeader = "# analysis name"

func pad(s string, width int) string {
	return fmt.Sprintf("%-*s", width, s)
}

// WriteHeader writes the column titles. The best-region flag and CLs columns
// are only present when a signal cross-section was given.
func WriteHeader(w io.Writer, xsGiven bool) error {
	var b strings.Builder
	b.WriteString(pad(analysisHeader, analysisWidth))
	b.WriteString(pad("signal region", regionWidth))
	if xsGiven {
		b.WriteString(pad("best?", bestWidth))
	}
	b.WriteString(pad("sig95(exp)", sig95Width))
	b.WriteString(pad("sig95(obs)", sig95Width))
	if xsGiven {
		b.WriteString(pad("CLs", clsWidth))
	}
	b.WriteString(separator)
	b.WriteString(pad("efficiency", numberWidth))
	b.WriteString(pad("stat. unc.", numberWidth))
	b.WriteString(pad("syst. unc.", numberWidth))
	b.WriteString(pad("tot. unc.", numberWidth))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteAnalysis appends one row per region of the analysis, followed by a
// blank line.
func WriteAnalysis(w io.Writer, name string, a *recast.Analysis, xsGiven bool) error {
	var b strings.Builder
	for _, id := range a.Regions.IDs() {
		d, _ := a.Regions.Get(id)
		b.WriteString(formatRow(name, id, d, xsGiven))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func formatRow(name, region string, d *recast.RegionData, xsGiven bool) string {
	stat := d.StatUncertainty()
	syst := 0.0
	total := math.Sqrt(stat*stat + syst*syst)

	var b strings.Builder
	b.WriteString(pad(name, analysisWidth))
	b.WriteString(pad(region, regionWidth))
	if xsGiven {
		best := "0"
		if d.Best {
			best = "1"
		}
		b.WriteString(pad(best, bestWidth))
	}
	b.WriteString(pad(d.S95Exp.String(), sig95Width))
	b.WriteString(pad(d.S95Obs.String(), sig95Width))
	if xsGiven {
		b.WriteString(pad(recast.FormatFixed(d.CLs), clsWidth))
	}
	b.WriteString(separator)
	b.WriteString(pad(recast.FormatFixed(d.Efficiency()), numberWidth))
	b.WriteString(pad(recast.FormatFixed(stat), numberWidth))
	b.WriteString(pad(recast.FormatFixed(syst), numberWidth))
	b.WriteString(pad(recast.FormatFixed(total), numberWidth))
	b.WriteString("\n")
	return b.String()
}
