// Package infofile reads the metadata document of a recast analysis: its
// luminosity and, per signal region, the observed and expected event counts.
package infofile

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gorecast/domain/recast"
)

// maxInfoSize bounds the bytes read from one info file
const maxInfoSize = 8 << 20

// node is a generic element of the info document
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

func (n node) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// ReadFile parses the info file at path for the named analysis
func ReadFile(path, analysis string) (*recast.Analysis, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, recast.NewMissingFileError("info file", path)
		}
		return nil, recast.NewReadError("info file", path, err)
	}
	defer f.Close()
	return Read(f, analysis)
}

// Read parses an info document. The root element must be an analysis whose
// id matches the requested name, ignoring case.
func Read(r io.Reader, analysis string) (*recast.Analysis, error) {
	var root node
	decoder := xml.NewDecoder(io.LimitReader(r, maxInfoSize))
	if err := decoder.Decode(&root); err != nil {
		return nil, recast.NewParseError(analysis, fmt.Sprintf("malformed document: %v", err))
	}

	if root.XMLName.Local != "analysis" {
		return nil, recast.NewParseError(analysis, "<analysis> tag")
	}
	id, _ := root.attr("id")
	if !strings.EqualFold(id, analysis) {
		return nil, recast.NewParseError(analysis, fmt.Sprintf("<analysis id> tag %q", id))
	}

	a := &recast.Analysis{ID: analysis, Regions: recast.NewRegionSet()}
	lumiSeen := false
	for _, child := range root.Nodes {
		switch child.XMLName.Local {
		case "lumi":
			lumi, err := parseNumber(child.Text)
			if err != nil {
				return nil, recast.NewParseError(analysis, "ill-defined lumi")
			}
			a.Lumi = lumi
			lumiSeen = true
		case "region":
			if kind, ok := child.attr("type"); ok && kind != "signal" {
				continue
			}
			regionID, data, err := parseRegion(child)
			if err != nil {
				return nil, recast.NewParseError(analysis, err.Error())
			}
			if err := a.Regions.Add(regionID, data); err != nil {
				return nil, recast.NewParseError(analysis, "doubly-defined region "+regionID)
			}
		}
	}

	if !lumiSeen {
		return nil, recast.NewParseError(analysis, "missing lumi")
	}
	if a.Lumi <= 0 {
		return nil, recast.NewParseError(analysis, fmt.Sprintf("non-positive lumi %g", a.Lumi))
	}
	return a, nil
}

func parseRegion(n node) (string, recast.RegionData, error) {
	var data recast.RegionData
	id, ok := n.attr("id")
	if !ok {
		return "", data, errors.New("<region id> tag")
	}

	seen := make(map[string]bool, 3)
	for _, field := range n.Nodes {
		name := field.XMLName.Local
		value, err := parseNumber(field.Text)
		if err != nil {
			return "", data, fmt.Errorf("region %s data ill-defined (%s)", id, name)
		}
		if value < 0 {
			return "", data, fmt.Errorf("region %s has negative %s", id, name)
		}
		if seen[name] {
			return "", data, fmt.Errorf("region %s defines %s twice", id, name)
		}
		seen[name] = true
		switch name {
		case "nobs":
			data.Nobs = value
		case "nb":
			data.Nb = value
		case "deltanb":
			data.DeltaNb = value
		default:
			return "", data, fmt.Errorf("unknown region subtag <%s> in region %s", name, id)
		}
	}
	for _, name := range []string{"nobs", "nb", "deltanb"} {
		if !seen[name] {
			return "", data, fmt.Errorf("region %s misses <%s>", id, name)
		}
	}
	return id, data, nil
}

func parseNumber(text string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(text), 64)
}
