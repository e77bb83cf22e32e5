// Package card handles recasting cards: the user's choice of analyses with
// the detector card each one is simulated with, checked against a static
// catalog of the known analyses.
package card

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gorecast/domain/recast"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Card versions: v1.2 for the current analysis database, v1.1 for the tuned one
const (
	VersionPAD     = "v1.2"
	VersionPADTune = "v1.1"
)

// CatalogEntry describes one known analysis
type CatalogEntry struct {
	Name        string `yaml:"name"`
	Card        string `yaml:"card"`
	Description string `yaml:"description"`
}

// Catalog is the immutable table of known analyses, in declaration order
type Catalog struct {
	entries []CatalogEntry
	index   map[string]int
}

type catalogFile struct {
	Analyses []CatalogEntry `yaml:"analyses"`
}

// DefaultCatalog returns the catalog shipped with the binary
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(strings.NewReader(string(defaultCatalog)))
}

// LoadCatalog reads a catalog file, or the shipped one when path is empty
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, recast.NewMissingFileError("catalog", path)
		}
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()
	return ParseCatalog(f)
}

// ParseCatalog decodes a YAML catalog
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, recast.NewParseError("catalog", err.Error())
	}

	c := &Catalog{index: make(map[string]int, len(file.Analyses))}
	for _, e := range file.Analyses {
		if e.Name == "" || e.Card == "" {
			return nil, recast.NewParseError("catalog", "entry without name or card")
		}
		if _, dup := c.index[e.Name]; dup {
			return nil, recast.NewParseError("catalog", "analysis "+e.Name+" listed twice")
		}
		c.index[e.Name] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// Len returns the number of known analyses
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Lookup returns the entry of an analysis
func (c *Catalog) Lookup(analysis string) (CatalogEntry, bool) {
	i, ok := c.index[analysis]
	if !ok {
		return CatalogEntry{}, false
	}
	return c.entries[i], true
}

// CardFor returns the detector card an analysis is validated with
func (c *Catalog) CardFor(analysis string) (string, bool) {
	e, ok := c.Lookup(analysis)
	return e.Card, ok
}

// DefaultCard renders a recasting card switching on every known analysis
func (c *Catalog) DefaultCard(version string) (string, error) {
	if err := checkVersion(version); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# Delphes cards must be located in the PAD(ForMA5tune) directory\n")
	b.WriteString("# Switches must be on or off\n")
	b.WriteString("# AnalysisName               PADType    Switch     DelphesCard\n")
	for _, e := range c.entries {
		description := e.Description
		if description == "" {
			description = "UNKNOWN"
		}
		fmt.Fprintf(&b, "%-30s%-12s%-6s%-50s # %s\n", e.Name, version, "on", e.Card, description)
	}
	return b.String(), nil
}

func checkVersion(version string) error {
	if version != VersionPAD && version != VersionPADTune {
		return fmt.Errorf("unknown card version %q (expected %s or %s)", version, VersionPADTune, VersionPAD)
	}
	return nil
}
