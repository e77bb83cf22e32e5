package card

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gorecast/domain/recast"
)

// Entry is one line of a recasting card
type Entry struct {
	Analysis    string
	Version     string
	On          bool
	DelphesCard string
	Comment     string
}

// Card is a parsed recasting card
type Card struct {
	Entries []Entry
}

// ParseFile reads a recasting card from disk
func ParseFile(path string) (*Card, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, recast.NewMissingFileError("recasting card", path)
		}
		return nil, fmt.Errorf("open recasting card %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads lines of the form
//
//	analysis version on|off delphes-card [# comment]
//
// skipping blank and comment lines.
func Parse(r io.Reader) (*Card, error) {
	card := &Card{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var comment string
		if i := strings.Index(line, "#"); i >= 0 {
			comment = strings.TrimSpace(line[i+1:])
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, recast.NewParseError("recasting card", fmt.Sprintf("line %d: expected 4 fields, got %d", lineNo, len(fields)))
		}

		var on bool
		switch strings.ToLower(fields[2]) {
		case "on":
			on = true
		case "off":
		default:
			return nil, recast.NewParseError("recasting card", fmt.Sprintf("line %d: switch must be on or off, got %q", lineNo, fields[2]))
		}

		card.Entries = append(card.Entries, Entry{
			Analysis:    fields[0],
			Version:     fields[1],
			On:          on,
			DelphesCard: fields[3],
			Comment:     comment,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return card, nil
}

// AnalysisRuns lists <version>_<analysis> for the switched-on analyses
func (c *Card) AnalysisRuns() []string {
	var runs []string
	for _, e := range c.Entries {
		if e.On {
			runs = append(runs, e.Version+"_"+e.Analysis)
		}
	}
	return runs
}

// DelphesRuns lists each <version>_<card> needed by a switched-on analysis once
func (c *Card) DelphesRuns() []string {
	var runs []string
	seen := make(map[string]bool)
	for _, e := range c.Entries {
		if !e.On {
			continue
		}
		run := e.Version + "_" + e.DelphesCard
		if seen[run] {
			continue
		}
		seen[run] = true
		runs = append(runs, run)
	}
	return runs
}

// Check validates the card against the catalog: versions must be known and
// every catalogued analysis must use its own detector card. All problems are
// reported together.
func (c *Card) Check(catalog *Catalog) error {
	var errs []error
	for _, e := range c.Entries {
		if err := checkVersion(e.Version); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Analysis, err))
		}
		if want, ok := catalog.CardFor(e.Analysis); ok && want != e.DelphesCard {
			errs = append(errs, fmt.Errorf("%s: invalid delphes card %s (expected %s)", e.Analysis, e.DelphesCard, want))
		}
	}
	if len(errs) > 0 {
		return recast.NewParseError("recasting card", errors.Join(errs...).Error())
	}
	return nil
}
