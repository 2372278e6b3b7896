package data

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/willfong/card-spend/internal/generator/patterns"
)

//go:embed tables/*.json
var dataFiles embed.FS

// ReferenceTables holds the tables that drive generation.
type ReferenceTables struct {
	Dimensions patterns.Dimensions        `json:"dimensions"`
	Segments   patterns.YearSegments      `json:"segments"`
	Seasonal   patterns.SeasonalTable     `json:"seasonal"`
	Amount     patterns.TransactionAmount `json:"transaction_amount"`

	// Source is "builtin" or the path of the override file
	Source string `json:"-"`
}

// overrideFile is the shape of a user tables file. Every section is optional;
// missing sections keep the built-in table.
type overrideFile struct {
	Dimensions *patterns.Dimensions        `json:"dimensions"`
	Segments   patterns.YearSegments       `json:"segments"`
	Seasonal   *patterns.SeasonalTable     `json:"seasonal"`
	Amount     *patterns.TransactionAmount `json:"transaction_amount"`
}

var (
	instance *ReferenceTables
	once     sync.Once
	loadErr  error
)

// Load loads the built-in tables from embedded files.
// This is thread-safe and will only load data once. Callers receive a copy
// and may modify it.
func Load() (*ReferenceTables, error) {
	once.Do(func() {
		instance = &ReferenceTables{Source: "builtin"}
		loadErr = instance.loadAll()
	})

	if loadErr != nil {
		return nil, loadErr
	}
	return instance.clone(), nil
}

// LoadFile loads the built-in tables and replaces the sections present in the
// JSON file at path. An empty path returns the built-in tables.
func LoadFile(path string) (*ReferenceTables, error) {
	tables, err := Load()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return tables, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables file: %w", err)
	}
	var o overrideFile
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("failed to parse tables file %s: %w", path, err)
	}

	if o.Dimensions != nil {
		tables.Dimensions = *o.Dimensions
	}
	if o.Segments != nil {
		tables.Segments = o.Segments
	}
	if o.Seasonal != nil {
		tables.Seasonal = *o.Seasonal
	}
	if o.Amount != nil {
		tables.Amount = *o.Amount
	}
	tables.Source = path

	return tables, nil
}

// loadAll loads all data files
func (r *ReferenceTables) loadAll() error {
	files := []struct {
		name   string
		target any
	}{
		{"tables/dimensions.json", &r.Dimensions},
		{"tables/segments.json", &r.Segments},
		{"tables/seasonal.json", &r.Seasonal},
		{"tables/transaction_amount.json", &r.Amount},
	}

	for _, f := range files {
		data, err := dataFiles.ReadFile(f.name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.name, err)
		}
		if err := json.Unmarshal(data, f.target); err != nil {
			return fmt.Errorf("failed to parse %s: %w", f.name, err)
		}
	}
	return nil
}

// Validate returns one message per problem across all tables.
func (r *ReferenceTables) Validate() []string {
	var errs []string
	errs = append(errs, r.Dimensions.Validate()...)
	errs = append(errs, r.Segments.Validate()...)
	errs = append(errs, r.Seasonal.Validate()...)
	errs = append(errs, r.Amount.Validate()...)
	return errs
}

func (r *ReferenceTables) clone() *ReferenceTables {
	c := *r
	dims := []*patterns.Dimension{&c.Dimensions.Category, &c.Dimensions.City, &c.Dimensions.AgeGroup, &c.Dimensions.Gender, &c.Dimensions.CardType}
	for _, d := range dims {
		d.Levels = append([]patterns.Level(nil), d.Levels...)
	}
	c.Segments = make(patterns.YearSegments, len(r.Segments))
	for i, s := range r.Segments {
		s.Spend = append([]patterns.SpendPiece(nil), s.Spend...)
		c.Segments[i] = s
	}
	return &c
}

// Order returns the level names of a dimension in table order, for sorting
// report rows. Unknown dimensions return nil.
func (r *ReferenceTables) Order(dimension string) []string {
	for _, d := range r.Dimensions.All() {
		if d.Name == dimension {
			return d.Names()
		}
	}
	return nil
}
