// Package lookup holds the brand→commodity and country→region reference
// tables. The tables are injected read-only configuration: callers get
// lookups that never error, and a missing entry simply returns ok=false.
package lookup

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Tables struct {
	mu             sync.RWMutex
	path           string
	brandCommodity map[string]string
	countryRegion  map[string]string
}

type tablesFile struct {
	BrandCommodity map[string]string `yaml:"brand_commodity"`
	CountryRegion  map[string]string `yaml:"country_region"`
}

// LoadFile reads the tables from a yaml file. The path is remembered so
// Reload can pick up edits without restarting the process.
func LoadFile(path string) (*Tables, error) {
	t := &Tables{path: path}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewStatic builds tables from fixed maps. Used by tests and by callers
// that manage reloads themselves.
func NewStatic(brandCommodity, countryRegion map[string]string) *Tables {
	return &Tables{
		brandCommodity: normalize(brandCommodity),
		countryRegion:  normalize(countryRegion),
	}
}

// Reload re-reads the backing file and swaps both tables atomically.
// In-flight lookups keep seeing the old maps until the swap.
func (t *Tables) Reload() error {
	if t.path == "" {
		return fmt.Errorf("lookup tables have no backing file")
	}
	data, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("read lookup tables: %w", err)
	}
	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse lookup tables: %w", err)
	}

	t.mu.Lock()
	t.brandCommodity = normalize(f.BrandCommodity)
	t.countryRegion = normalize(f.CountryRegion)
	t.mu.Unlock()
	return nil
}

// CommodityForBrand maps a requirement brand to its commodity category.
func (t *Tables) CommodityForBrand(brand string) (string, bool) {
	if brand == "" {
		return "", false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.brandCommodity[strings.ToLower(brand)]
	return v, ok
}

// RegionForCountry maps a vendor country to its region tag.
func (t *Tables) RegionForCountry(country string) (string, bool) {
	if country == "" {
		return "", false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.countryRegion[strings.ToLower(country)]
	return v, ok
}

func normalize(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}
