// Package analysis derives the descriptive, segmentation and forecasting
// report from a generated dataset.
package analysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/willfong/card-spend/internal/data"
	"github.com/willfong/card-spend/internal/dataset"
)

// Report section names.
const (
	SectionSummary      = "summary"
	SectionTrends       = "trends"
	SectionCategories   = "categories"
	SectionDemographics = "demographics"
	SectionGeography    = "geography"
	SectionSegments     = "segments"
	SectionForecast     = "forecast"
	SectionKPIs         = "kpis"
)

// Sections lists every section in report order.
var Sections = []string{
	SectionSummary,
	SectionTrends,
	SectionCategories,
	SectionDemographics,
	SectionGeography,
	SectionSegments,
	SectionForecast,
	SectionKPIs,
}

var detailedSections = map[string]bool{
	SectionCategories:   true,
	SectionDemographics: true,
	SectionGeography:    true,
	SectionSegments:     true,
}

// NeedsDetailed reports whether any of sections reads the detailed table.
// Empty sections means all of them. kpis only uses it for the top categories
// and cities, but still counts.
func NeedsDetailed(sections []string) bool {
	if len(sections) == 0 {
		return true
	}
	for _, s := range sections {
		if detailedSections[s] || s == SectionKPIs {
			return true
		}
	}
	return false
}

var (
	// ErrEmptyDataset is returned when the monthly table has no rows.
	ErrEmptyDataset = errors.New("dataset has no monthly rows")
	// ErrInsufficientData is returned when a section needs more rows than
	// the dataset has.
	ErrInsufficientData = errors.New("not enough data")
)

// Options controls Build.
type Options struct {
	Sections   []string // empty means all
	Year       int      // KPI focus year; 0 picks the latest full year
	Top        int
	Clusters   int
	Horizon    int
	TestMonths int
	Seed       int64

	// Tables fixes level ordering and the forecast's seasonal factors.
	// Nil uses the built-in tables.
	Tables *data.ReferenceTables
	Logger zerolog.Logger
}

// DefaultOptions returns the report defaults.
func DefaultOptions() Options {
	return Options{
		Top:        5,
		Clusters:   4,
		Horizon:    6,
		TestMonths: 12,
		Seed:       42,
		Logger:     zerolog.Nop(),
	}
}

// Source describes where the analysed data came from.
type Source struct {
	Dir          string `yaml:"dir"`
	RunID        string `yaml:"run_id,omitempty"`
	Seed         int64  `yaml:"seed,omitempty"`
	GeneratedAt  string `yaml:"generated_at,omitempty"`
	MonthlyRows  int    `yaml:"monthly_rows"`
	DetailedRows int    `yaml:"detailed_rows"`
}

// Report is the full analysis. Sections that were not requested are nil.
type Report struct {
	Source       Source        `yaml:"source"`
	Summary      *Summary      `yaml:"summary,omitempty"`
	Trends       *Trends       `yaml:"trends,omitempty"`
	Categories   *Categories   `yaml:"categories,omitempty"`
	Demographics *Demographics `yaml:"demographics,omitempty"`
	Geography    *Geography    `yaml:"geography,omitempty"`
	Segments     *Segmentation `yaml:"segments,omitempty"`
	Forecast     *Forecast     `yaml:"forecast,omitempty"`
	KPIs         *KPIs         `yaml:"kpis,omitempty"`
	Insights     []string      `yaml:"insights,omitempty"`

	// Skipped lists requested sections that need the detailed table when
	// the dataset was loaded without it.
	Skipped []string `yaml:"skipped,omitempty"`
}

// Build runs the requested sections over ds.
func Build(ds *dataset.Dataset, opts Options) (*Report, error) {
	if ds == nil || len(ds.Monthly) == 0 {
		return nil, ErrEmptyDataset
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	log := opts.Logger

	rep := &Report{Source: Source{
		Dir:          ds.Dir,
		MonthlyRows:  len(ds.Monthly),
		DetailedRows: len(ds.Detailed),
	}}
	if m := ds.Manifest; m != nil {
		rep.Source.RunID = m.RunID
		rep.Source.Seed = m.Seed
		rep.Source.GeneratedAt = m.GeneratedAt.Format(time.RFC3339)
	}

	order := newOrdering(opts.Tables)
	for _, section := range opts.Sections {
		if detailedSections[section] && len(ds.Detailed) == 0 {
			rep.Skipped = append(rep.Skipped, section)
			log.Warn().Str("section", section).Msg("skipping section: dataset has no detailed rows")
			continue
		}

		start := time.Now()
		var err error
		switch section {
		case SectionSummary:
			rep.Summary = Summarize(ds.Monthly, len(ds.Detailed))
		case SectionTrends:
			rep.Trends = AnalyzeTrends(ds.Monthly)
		case SectionCategories:
			rep.Categories = AnalyzeCategories(ds.Detailed, opts.Top, order)
		case SectionDemographics:
			rep.Demographics = AnalyzeDemographics(ds.Detailed, order)
		case SectionGeography:
			rep.Geography = AnalyzeGeography(ds.Detailed, order)
		case SectionSegments:
			rep.Segments, err = Segment(ds.Detailed, opts.Clusters, opts.Seed, order)
		case SectionForecast:
			rep.Forecast, err = ForecastSpending(ds.Monthly, ForecastOptions{
				TestMonths: opts.TestMonths,
				Horizon:    opts.Horizon,
				Seasonal:   opts.Tables.Seasonal,
			})
		case SectionKPIs:
			rep.KPIs, err = ComputeKPIs(ds.Monthly, ds.Detailed, opts.Year, opts.Top, order)
			if err == nil {
				rep.Insights = Insights(ds.Monthly, ds.Detailed, order)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", section, err)
		}
		log.Debug().Str("section", section).Dur("elapsed", time.Since(start)).Msg("section done")
	}

	return rep, nil
}

func (o *Options) normalize() error {
	if len(o.Sections) == 0 {
		o.Sections = Sections
	}
	known := make(map[string]bool, len(Sections))
	for _, s := range Sections {
		known[s] = true
	}
	for _, s := range o.Sections {
		if !known[s] {
			return fmt.Errorf("unknown report section %q", s)
		}
	}

	def := DefaultOptions()
	if o.Top <= 0 {
		o.Top = def.Top
	}
	if o.Clusters <= 0 {
		o.Clusters = def.Clusters
	}
	if o.Horizon < 0 {
		o.Horizon = def.Horizon
	}
	if o.TestMonths <= 0 {
		o.TestMonths = def.TestMonths
	}
	if o.Tables == nil {
		tables, err := data.Load()
		if err != nil {
			return err
		}
		o.Tables = tables
	}
	return nil
}
