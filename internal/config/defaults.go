// Package config contains compile-time defaults for the spending generator.
// Edit these values and recompile to tune behavior.
package config

import "time"

// EnvPrefix is prepended to environment variable overrides (SPENDGEN_OUTPUT_DIR).
const EnvPrefix = "SPENDGEN"

// DateLayout is the format for every date setting.
const DateLayout = "2006-01-02"

// =============================================================================
// GENERATION DEFAULTS
// =============================================================================

// Date range
const (
	// DefaultStart is the first month generated
	DefaultStart = "2019-01-01"

	// DefaultEnd is inclusive; a month is generated when its last day is on or before it
	DefaultEnd = "2025-08-01"
)

// Noise
const (
	// MonthlyNoiseStdDev is the stddev of the multiplicative monthly noise (5%)
	MonthlyNoiseStdDev = 0.05

	// DetailNoiseStdDev is the stddev of the per-combination noise around 1.0 (10%)
	DetailNoiseStdDev = 0.1
)

// Detailed expansion
const (
	// DetailThreshold drops records at or below this spending (thousands INR)
	DetailThreshold = 0.01

	// DetailWorkers is the expansion worker count (0 = NumCPU)
	DetailWorkers = 0
)

// Output
const (
	// DefaultOutputDir is where CSVs and the manifest are written
	DefaultOutputDir = "./output"

	// DefaultXZPreset balances speed and ratio for --compress
	DefaultXZPreset = 6
)

// =============================================================================
// REPORT DEFAULTS
// =============================================================================

const (
	// ReportTopN is the number of categories and cities in ranked sections
	ReportTopN = 5

	// ReportClusters is the k-means cluster count for segmentation
	ReportClusters = 4

	// ReportHorizon is the number of months forecast past the last record
	ReportHorizon = 6

	// ReportTestMonths is the hold-out window for forecast accuracy
	ReportTestMonths = 12
)

// AllSections lists every report section in print order.
var AllSections = []string{
	"summary",
	"trends",
	"categories",
	"demographics",
	"geography",
	"segments",
	"forecast",
	"kpis",
}

// =============================================================================
// DATABASE DEFAULTS
// =============================================================================

const (
	// MaxOpenConns bounds the pool; import uses one connection per table
	MaxOpenConns = 10

	// MaxIdleConns is the idle pool size
	MaxIdleConns = 4

	// ConnMaxLifetime recycles long-lived connections
	ConnMaxLifetime = 5 * time.Minute

	// ConnMaxIdleTime closes idle connections
	ConnMaxIdleTime = 1 * time.Minute
)

// =============================================================================
// LOGGING DEFAULTS
// =============================================================================

const (
	// LogLevel is the default zerolog level
	LogLevel = "warn"

	// LogFormat is console (human-readable) or json
	LogFormat = "console"

	// LogOutput is stderr, stdout or a file path
	LogOutput = "stderr"
)
