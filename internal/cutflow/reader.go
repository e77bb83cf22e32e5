// Package cutflow extracts the initial and final weighted event counts of a
// signal region from the cutflow files written by the analysis framework.
package cutflow

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gorecast/domain/recast"
	"gorecast/internal"
)

// Block markers of a cutflow file
const (
	initialStart = "<InitialCounter>"
	initialEnd   = "</InitialCounter>"
	counterStart = "<Counter>"
	counterEnd   = "</Counter>"

	sumOfWeights = "sum of weights"
	squared      = "^2"
)

// Counts holds the weighted event counts of one cutflow file
type Counts struct {
	N0     float64
	Nf     float64
	HasN0  bool
	HasNf  bool
	Blocks int // number of <Counter> blocks seen
}

// Parse reads one cutflow. N0 comes from the sum-of-weights line of the
// initial counter, Nf from the one of the last counter block.
func Parse(r io.Reader) (Counts, error) {
	var c Counts
	inInitial, inCounter := false, false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		switch {
		case strings.Contains(line, initialStart):
			inInitial = true
			continue
		case strings.Contains(line, initialEnd):
			inInitial = false
			continue
		case strings.Contains(line, counterStart):
			inCounter = true
			c.Blocks++
			continue
		case strings.Contains(line, counterEnd):
			inCounter = false
			continue
		}

		if !inInitial && !inCounter {
			continue
		}
		if !strings.Contains(line, sumOfWeights) || strings.Contains(line, squared) {
			continue
		}
		value, err := sumLeadingNumbers(line)
		if err != nil {
			return c, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if inInitial {
			c.N0, c.HasN0 = value, true
		}
		if inCounter {
			c.Nf, c.HasNf = value, true
		}
	}
	if err := scanner.Err(); err != nil {
		return c, err
	}
	return c, nil
}

// sumLeadingNumbers adds the first two numeric fields of a line: the weight
// sum and the companion value listed next to it
func sumLeadingNumbers(line string) (float64, error) {
	var values []float64
	for _, field := range strings.Fields(line) {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			continue
		}
		values = append(values, v)
		if len(values) == 2 {
			return values[0] + values[1], nil
		}
	}
	return 0, fmt.Errorf("expected two numbers on %q", strings.TrimSpace(line))
}

// Reader fills region efficiencies from a directory of cutflow files
type Reader struct {
	logger *internal.Logger
}

// NewReader creates a cutflow reader
func NewReader(logger *internal.Logger) *Reader {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Reader{logger: logger}
}

// Fill reads <dir>/<region>.saf for every region of the set and stores N0
// and Nf. A region id made of ';'-separated names combines the cutflows of
// those regions. Any missing or invalid cutflow fails the whole set.
func (r *Reader) Fill(dir string, regions *recast.RegionSet) error {
	return regions.Each(func(id string, d *recast.RegionData) error {
		clean := recast.CleanRegionName(id)
		var n0, nf float64
		for _, sub := range strings.Split(clean, ";") {
			path := filepath.Join(dir, sub+".saf")
			counts, err := readFile(path)
			if err != nil {
				switch {
				case errors.Is(err, recast.ErrMissingFile):
					r.logger.Warn("Cannot find a cutflow for the region %s in %s", sub, dir)
				case errors.Is(err, recast.ErrReadFailure):
					r.logger.Warn("Cannot read the cutflow of the region %s: %v", sub, err)
				default:
					r.logger.Warn("Invalid cutflow for the region %s (%s) in %s: %v", id, clean, dir, err)
				}
				return err
			}
			if !counts.HasN0 || !counts.HasNf {
				r.logger.Warn("Invalid cutflow for the region %s (%s) in %s", id, clean, dir)
				return recast.NewParseError(path, "no sum of weights for the initial or final counter")
			}
			n0 += counts.N0
			nf += counts.Nf
		}
		if n0 == 0 && nf == 0 {
			r.logger.Warn("Invalid cutflow for the region %s (%s) in %s", id, clean, dir)
			return recast.NewParseError(clean, "no event in the region")
		}
		d.N0 = n0
		d.Nf = nf
		r.logger.Debug("region %s: N0 = %g, Nf = %g", id, n0, nf)
		return nil
	})
}

func readFile(path string) (Counts, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Counts{}, recast.NewMissingFileError("cutflow", path)
		}
		return Counts{}, recast.NewReadError("cutflow", path, err)
	}
	defer f.Close()

	counts, err := Parse(f)
	if err != nil {
		return counts, recast.NewParseError(path, err.Error())
	}
	return counts, nil
}
