package generator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Output table basenames and the manifest filename.
const (
	MonthlyTable  = "monthly_spending"
	DetailedTable = "detailed_spending"
	ManifestFile  = "manifest.yaml"
)

// Manifest records the provenance of a generated dataset.
type Manifest struct {
	RunID       string    `yaml:"run_id"`
	GeneratedAt time.Time `yaml:"generated_at"`
	// Effective seed, including when one was picked automatically
	Seed  int64  `yaml:"seed"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`

	MonthlyNoise float64 `yaml:"monthly_noise_stddev"`
	DetailNoise  float64 `yaml:"detail_noise_stddev"`
	AmountPolicy string  `yaml:"amount_policy"`
	Tables       string  `yaml:"tables"`

	Dimensions DimensionSizes  `yaml:"dimensions"`
	Files      []ManifestEntry `yaml:"files"`
	Expansion  *ExpansionStats `yaml:"expansion,omitempty"`
	Duration   string          `yaml:"duration"`
}

// DimensionSizes lists the level count of every dimension.
type DimensionSizes struct {
	Categories   int `yaml:"categories"`
	Cities       int `yaml:"cities"`
	AgeGroups    int `yaml:"age_groups"`
	Genders      int `yaml:"genders"`
	CardTypes    int `yaml:"card_types"`
	Combinations int `yaml:"combinations"`
}

// ManifestEntry is one written file. Path is relative to the output directory.
type ManifestEntry struct {
	Table string `yaml:"table"`
	Path  string `yaml:"path"`
	Rows  int64  `yaml:"rows"`
	Year  int    `yaml:"year,omitempty"`
}

// Rows returns the total row count written for a table.
func (m *Manifest) Rows(table string) int64 {
	var n int64
	for _, f := range m.Files {
		if f.Table == table {
			n += f.Rows
		}
	}
	return n
}

// WriteManifest writes m to dir/manifest.yaml and returns the path.
func WriteManifest(dir string, m *Manifest) (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// OptionalManifest reads dir/manifest.yaml, returning nil without error when
// the directory has none.
func OptionalManifest(dir string) (*Manifest, error) {
	m, err := ReadManifest(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return m, err
}

// ReadManifest reads dir/manifest.yaml. A missing file returns an error
// matching os.ErrNotExist.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
