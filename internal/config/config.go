package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/willfong/card-spend/internal/data"
	"github.com/willfong/card-spend/internal/generator"
	"github.com/willfong/card-spend/internal/generator/patterns"
)

// Config holds all configuration for the spending generator
type Config struct {
	// Monthly generation
	Generate GenerateConfig `mapstructure:"generate"`

	// Detailed expansion
	Detail DetailConfig `mapstructure:"detail"`

	// Output files
	Output OutputConfig `mapstructure:"output"`

	// Analysis report
	Report ReportConfig `mapstructure:"report"`

	// Database import
	Database DatabaseConfig `mapstructure:"database"`

	// Logging
	Log LogConfig `mapstructure:"log"`

	// Optional JSON file replacing the built-in reference tables
	TablesFile string `mapstructure:"tables_file"`
}

// GenerateConfig holds monthly generation settings
type GenerateConfig struct {
	// Random seed for reproducibility (0 = random)
	Seed int64 `mapstructure:"seed"`

	Start string `mapstructure:"start" validate:"required,datetime=2006-01-02"`
	End   string `mapstructure:"end" validate:"required,datetime=2006-01-02"`

	// Stddev of the monthly multiplicative noise
	Noise float64 `mapstructure:"noise" validate:"gte=0,lte=1"`
}

// DetailConfig holds detailed expansion settings
type DetailConfig struct {
	Noise     float64 `mapstructure:"noise" validate:"gte=0,lte=1"`
	Threshold float64 `mapstructure:"threshold" validate:"gte=0"`

	// Overrides the tables' degeneracy policy when set
	AmountPolicy string `mapstructure:"amount_policy" validate:"omitempty,oneof=clamp redraw fail"`

	// Number of months expanded concurrently (0 = NumCPU)
	Workers int `mapstructure:"workers" validate:"gte=0"`

	// Skip the detailed table entirely
	MonthlyOnly bool `mapstructure:"monthly_only"`
}

// OutputConfig holds file output settings
type OutputConfig struct {
	Dir         string `mapstructure:"dir" validate:"required"`
	Compress    bool   `mapstructure:"compress"`
	XZPreset    int    `mapstructure:"xz_preset" validate:"gte=0,lte=9"`
	ShardByYear bool   `mapstructure:"shard_by_year"`
}

// ReportConfig holds analysis settings
type ReportConfig struct {
	Sections   []string `mapstructure:"sections" validate:"dive,oneof=summary trends categories demographics geography segments forecast kpis"`
	Year       int      `mapstructure:"year" validate:"gte=0"` // 0 = latest full year
	Top        int      `mapstructure:"top" validate:"gte=1,lte=50"`
	Clusters   int      `mapstructure:"clusters" validate:"gte=2,lte=20"`
	Horizon    int      `mapstructure:"horizon" validate:"gte=1,lte=36"`
	TestMonths int      `mapstructure:"test_months" validate:"gte=1,lte=60"`
	Seed       int64    `mapstructure:"seed"`

	// Optional YAML export path
	Out string `mapstructure:"out"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	// Connection string (DSN)
	// Format: user:password@tcp(host:port)/database
	DSN string `mapstructure:"dsn"`

	// Connection pool settings
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
	Output string `mapstructure:"output" validate:"required"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Generate: GenerateConfig{
			Seed:  0,
			Start: DefaultStart,
			End:   DefaultEnd,
			Noise: MonthlyNoiseStdDev,
		},
		Detail: DetailConfig{
			Noise:     DetailNoiseStdDev,
			Threshold: DetailThreshold,
			Workers:   DetailWorkers,
		},
		Output: OutputConfig{
			Dir:      DefaultOutputDir,
			XZPreset: DefaultXZPreset,
		},
		Report: ReportConfig{
			Top:        ReportTopN,
			Clusters:   ReportClusters,
			Horizon:    ReportHorizon,
			TestMonths: ReportTestMonths,
			Seed:       42,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    MaxOpenConns,
			MaxIdleConns:    MaxIdleConns,
			ConnMaxLifetime: ConnMaxLifetime,
			ConnMaxIdleTime: ConnMaxIdleTime,
		},
		Log: LogConfig{
			Level:  LogLevel,
			Format: LogFormat,
			Output: LogOutput,
		},
	}
}

// SetDefaults registers every default with v so that environment variables
// and config files can override keys that were never set by a flag.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("generate.seed", d.Generate.Seed)
	v.SetDefault("generate.start", d.Generate.Start)
	v.SetDefault("generate.end", d.Generate.End)
	v.SetDefault("generate.noise", d.Generate.Noise)
	v.SetDefault("detail.noise", d.Detail.Noise)
	v.SetDefault("detail.threshold", d.Detail.Threshold)
	v.SetDefault("detail.amount_policy", d.Detail.AmountPolicy)
	v.SetDefault("detail.workers", d.Detail.Workers)
	v.SetDefault("detail.monthly_only", d.Detail.MonthlyOnly)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.compress", d.Output.Compress)
	v.SetDefault("output.xz_preset", d.Output.XZPreset)
	v.SetDefault("output.shard_by_year", d.Output.ShardByYear)
	v.SetDefault("report.sections", d.Report.Sections)
	v.SetDefault("report.year", d.Report.Year)
	v.SetDefault("report.top", d.Report.Top)
	v.SetDefault("report.clusters", d.Report.Clusters)
	v.SetDefault("report.horizon", d.Report.Horizon)
	v.SetDefault("report.test_months", d.Report.TestMonths)
	v.SetDefault("report.seed", d.Report.Seed)
	v.SetDefault("report.out", d.Report.Out)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", d.Database.ConnMaxIdleTime)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("tables_file", d.TablesFile)
}

// EnvKeyReplacer maps config keys to environment names (output.dir -> OUTPUT_DIR).
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// Load reads configuration from the global viper instance into a Config struct
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads configuration from v into a Config struct
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their config key (generate.start) rather than Go name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validation failed: %w", err)
		}
		for _, fe := range fieldErrs {
			errs = append(errs, fieldMessage(fe))
		}
	}

	// Cross-field checks
	start, startErr := time.Parse(DateLayout, c.Generate.Start)
	end, endErr := time.Parse(DateLayout, c.Generate.End)
	if startErr == nil && endErr == nil && end.Before(start) {
		errs = append(errs, fmt.Sprintf("generate.end (%s) must not be before generate.start (%s)", c.Generate.End, c.Generate.Start))
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		errs = append(errs, "database.max_idle_conns should not exceed max_open_conns")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", joinErrors(errs))
	}

	return nil
}

// fieldMessage renders a validator error with its config key.
func fieldMessage(fe validator.FieldError) string {
	// Namespace is "Config.generate.start"; drop the root type
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format (got %q)", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s (got %q)", field, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

// joinErrors joins error messages with newline and bullet points
func joinErrors(errs []string) string {
	result := errs[0]
	for i := 1; i < len(errs); i++ {
		result += "\n  - " + errs[i]
	}
	return result
}

// Sections returns the report sections to run, defaulting to all of them.
func (c *Config) Sections() []string {
	if len(c.Report.Sections) == 0 {
		return AllSections
	}
	return c.Report.Sections
}

// Orchestrator builds the generator settings from the configuration and the
// reference tables. Call Validate first.
func (c *Config) Orchestrator(tables *data.ReferenceTables) (generator.OrchestratorConfig, error) {
	start, err := time.Parse(DateLayout, c.Generate.Start)
	if err != nil {
		return generator.OrchestratorConfig{}, fmt.Errorf("invalid generate.start: %w", err)
	}
	end, err := time.Parse(DateLayout, c.Generate.End)
	if err != nil {
		return generator.OrchestratorConfig{}, fmt.Errorf("invalid generate.end: %w", err)
	}

	amount := tables.Amount
	if c.Detail.AmountPolicy != "" {
		amount.Policy = patterns.DegeneracyPolicy(c.Detail.AmountPolicy)
	}

	detail := generator.DefaultDetailParams()
	detail.Dimensions = tables.Dimensions
	detail.NoiseStdDev = c.Detail.Noise
	detail.Amount = amount
	detail.Threshold = c.Detail.Threshold
	detail.Workers = c.Detail.Workers

	return generator.OrchestratorConfig{
		Monthly: generator.MonthlyParams{
			Start:       start,
			End:         end,
			Segments:    tables.Segments,
			Seasonal:    tables.Seasonal,
			NoiseStdDev: c.Generate.Noise,
		},
		Detail:       detail,
		Seed:         c.Generate.Seed,
		OutputDir:    c.Output.Dir,
		Compress:     c.Output.Compress,
		XZPreset:     c.Output.XZPreset,
		ShardByYear:  c.Output.ShardByYear,
		MonthlyOnly:  c.Detail.MonthlyOnly,
		TablesSource: tables.Source,
	}, nil
}
