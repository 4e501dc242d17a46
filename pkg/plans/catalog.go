package plans

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Price is a display price in the two currencies shown on the pricing page.
type Price struct {
	TRY float64 `yaml:"try" json:"try"`
	USD float64 `yaml:"usd" json:"usd"`
}

// Plan is the display record of a tier. Features here are marketing bullets and
// play no part in authorization.
type Plan struct {
	Name        PlanName `yaml:"name" json:"name"`
	Price       Price    `yaml:"price" json:"price"`
	Description string   `yaml:"description" json:"description"`
	Features    []string `yaml:"features" json:"features"`
	SortOrder   int      `yaml:"sort_order" json:"sort_order"`
}

// Catalog is an ordered list of display plans.
type Catalog struct {
	Plans []Plan `yaml:"plans" json:"plans"`
}

// LoadCatalog parses a YAML catalog and validates that every entry names a known
// tier exactly once. Plans are returned sorted by SortOrder.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode plan catalog: %w", err)
	}
	if len(c.Plans) == 0 {
		return nil, fmt.Errorf("plan catalog is empty")
	}

	seen := make(map[PlanName]bool, len(c.Plans))
	for i := range c.Plans {
		p := &c.Plans[i]
		p.Name = NormalizePlanName(string(p.Name))
		if !p.Name.Known() {
			return nil, fmt.Errorf("plan catalog entry %d: unknown plan %q", i, p.Name)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("plan catalog entry %d: duplicate plan %q", i, p.Name)
		}
		if p.Price.TRY < 0 || p.Price.USD < 0 {
			return nil, fmt.Errorf("plan catalog entry %d: negative price", i)
		}
		seen[p.Name] = true
	}

	sort.SliceStable(c.Plans, func(i, j int) bool {
		return c.Plans[i].SortOrder < c.Plans[j].SortOrder
	})
	return &c, nil
}

// LoadCatalogFile reads a YAML catalog from path
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// DefaultCatalog returns the catalog embedded at build time.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(defaultCatalogYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded plan catalog is invalid: %v", err))
	}
	return c
}

// Find returns the display record for name.
func (c *Catalog) Find(name PlanName) (Plan, bool) {
	n := NormalizePlanName(string(name))
	for _, p := range c.Plans {
		if p.Name == n {
			return p, true
		}
	}
	return Plan{}, false
}
