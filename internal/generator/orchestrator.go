package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/willfong/card-spend/internal/models"
	"github.com/willfong/card-spend/internal/utils"
)

// Orchestrator runs both generation stages and persists the dataset.
type Orchestrator struct {
	config   OrchestratorConfig
	log      zerolog.Logger
	progress func(done, total int)

	mu      sync.Mutex
	written []string
}

// OrchestratorConfig holds settings for a generation run
type OrchestratorConfig struct {
	Monthly MonthlyParams
	Detail  DetailParams
	Seed    int64 // 0 = pick one at random; the effective seed is reported

	OutputDir   string
	Compress    bool // Write .csv.xz files
	XZPreset    int
	ShardByYear bool // Split the detailed table into one file per year
	MonthlyOnly bool // Skip the detailed expansion

	// Describes where the reference tables came from, for the manifest
	TablesSource string
}

// OrchestratorOptions holds optional settings for the orchestrator
type OrchestratorOptions struct {
	Logger zerolog.Logger
	// Called after each month of the detailed expansion
	OnProgress func(done, total int)
}

// GenerationResult holds statistics from the generation run
type GenerationResult struct {
	RunID         string
	Seed          int64
	Monthly       []models.MonthlyRecord
	DetailedCount int64
	Stats         ExpansionStats
	Files         []ManifestEntry
	ManifestPath  string
	Duration      time.Duration
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(config OrchestratorConfig, opts OrchestratorOptions) *Orchestrator {
	return &Orchestrator{
		config:   config,
		log:      opts.Logger,
		progress: opts.OnProgress,
	}
}

// Validate checks both stages' parameters without generating anything.
func (o *Orchestrator) Validate() error {
	var problems []string
	collect := func(err error) {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			problems = append(problems, cfgErr.Problems...)
		}
	}
	collect(o.config.Monthly.Validate())
	if !o.config.MonthlyOnly {
		collect(o.config.Detail.Validate())
	}
	if o.config.OutputDir == "" {
		problems = append(problems, "output directory is required")
	}
	return configError(problems)
}

// Run generates the monthly series and the detailed expansion, then writes
// both tables and the manifest. The run is all-or-nothing: on error every
// file it created is removed. After a successful run, outputs of the same
// tables in another form (extension or sharding) are deleted.
func (o *Orchestrator) Run(ctx context.Context) (result *GenerationResult, err error) {
	startTime := time.Now()

	if err := o.Validate(); err != nil {
		return nil, err
	}
	if o.config.Compress {
		if err := CheckXZAvailable(); err != nil {
			return nil, err
		}
	}

	defer func() {
		if err != nil {
			o.removeWritten()
		}
	}()

	rng := utils.NewRandom(o.config.Seed)
	result = &GenerationResult{
		RunID: uuid.NewString(),
		Seed:  int64(rng.Seed()),
	}
	o.log.Info().
		Str("run_id", result.RunID).
		Int64("seed", result.Seed).
		Str("start", FormatDate(o.config.Monthly.Start)).
		Str("end", FormatDate(o.config.Monthly.End)).
		Msg("generation started")

	stageStart := time.Now()
	monthly, err := NewMonthlyGenerator(o.config.Monthly, rng).Generate()
	if err != nil {
		return nil, fmt.Errorf("monthly generation failed: %w", err)
	}
	result.Monthly = monthly
	o.log.Debug().
		Int("months", len(monthly)).
		Dur("elapsed", time.Since(stageStart)).
		Msg("monthly series generated")

	var detailed []models.DetailedRecord
	if !o.config.MonthlyOnly {
		stageStart = time.Now()
		expander := NewDetailedExpander(o.config.Detail, rng)
		expander.OnProgress(o.progress)
		detailed, result.Stats, err = expander.Expand(ctx, monthly)
		if err != nil {
			return nil, fmt.Errorf("detailed expansion failed: %w", err)
		}
		result.DetailedCount = int64(len(detailed))
		o.log.Debug().
			Int64("combinations", result.Stats.Combinations).
			Int64("emitted", result.Stats.Emitted).
			Int64("discarded", result.Stats.Discarded).
			Dur("elapsed", time.Since(stageStart)).
			Msg("detailed expansion complete")
		if n := result.Stats.Clamped + result.Stats.Redrawn; n > 0 {
			o.log.Warn().
				Int64("clamped", result.Stats.Clamped).
				Int64("redrawn", result.Stats.Redrawn).
				Msg("degenerate transaction amount draws")
		}
	}

	tasks := []ParallelWriteTask{{
		Name: MonthlyTable,
		Fn: func() error {
			entry, err := o.writeMonthly(monthly)
			if err != nil {
				return err
			}
			o.addFiles(result, entry)
			return nil
		},
	}}
	if !o.config.MonthlyOnly {
		tasks = append(tasks, ParallelWriteTask{
			Name: DetailedTable,
			Fn: func() error {
				entries, err := o.writeDetailed(detailed)
				if err != nil {
					return err
				}
				o.addFiles(result, entries...)
				return nil
			},
		})
	}
	if err := RunParallelWrites(tasks); err != nil {
		return nil, err
	}
	sortEntries(result.Files)

	result.Duration = time.Since(startTime)
	manifest := o.buildManifest(result)
	path, err := WriteManifest(o.config.OutputDir, manifest)
	if err != nil {
		return nil, err
	}
	o.track(path)
	result.ManifestPath = path

	written := []string{MonthlyTable}
	if !o.config.MonthlyOnly {
		written = append(written, DetailedTable)
	}
	o.removeStale(written, result.Files)

	o.log.Info().
		Int("monthly_rows", len(monthly)).
		Int64("detailed_rows", result.DetailedCount).
		Dur("duration", result.Duration).
		Msg("generation complete")

	return result, nil
}

func (o *Orchestrator) writeMonthly(records []models.MonthlyRecord) (ManifestEntry, error) {
	w, err := NewCSVWriter(CSVWriterConfig{
		OutputDir: o.config.OutputDir,
		Filename:  MonthlyTable,
		Headers:   models.MonthlyColumns,
		Compress:  o.config.Compress,
		XZPreset:  o.config.XZPreset,
	})
	if err != nil {
		return ManifestEntry{}, err
	}
	o.track(w.Path())

	for _, r := range records {
		if err := w.WriteRow(MonthlyRow(r)); err != nil {
			w.Abort()
			return ManifestEntry{}, err
		}
	}
	if err := w.Close(); err != nil {
		return ManifestEntry{}, err
	}

	o.log.Debug().Str("path", w.Path()).Int64("rows", w.RowCount()).Msg("wrote table")
	return ManifestEntry{Table: MonthlyTable, Path: filepath.Base(w.Path()), Rows: w.RowCount()}, nil
}

// writeDetailed writes one file, or one file per year when sharding. Records
// arrive ordered by month so each year is a contiguous run.
func (o *Orchestrator) writeDetailed(records []models.DetailedRecord) ([]ManifestEntry, error) {
	cfg := CSVWriterConfig{
		OutputDir: o.config.OutputDir,
		Filename:  DetailedTable,
		Headers:   models.DetailedColumns,
		Compress:  o.config.Compress,
		XZPreset:  o.config.XZPreset,
	}

	if !o.config.ShardByYear {
		entry, err := o.writeDetailedFile(cfg, records, 0)
		if err != nil {
			return nil, err
		}
		return []ManifestEntry{entry}, nil
	}

	var entries []ManifestEntry
	for start := 0; start < len(records); {
		year := records[start].Year
		end := start
		for end < len(records) && records[end].Year == year {
			end++
		}
		entry, err := o.writeDetailedFile(cfg, records[start:end], year)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		start = end
	}
	return entries, nil
}

func (o *Orchestrator) writeDetailedFile(cfg CSVWriterConfig, records []models.DetailedRecord, year int) (ManifestEntry, error) {
	var w *CSVWriter
	var err error
	if year > 0 {
		w, err = NewShardedCSVWriter(cfg, year)
	} else {
		w, err = NewCSVWriter(cfg)
	}
	if err != nil {
		return ManifestEntry{}, err
	}
	o.track(w.Path())

	for _, r := range records {
		if err := w.WriteRow(DetailedRow(r)); err != nil {
			w.Abort()
			return ManifestEntry{}, err
		}
	}
	if err := w.Close(); err != nil {
		return ManifestEntry{}, err
	}

	o.log.Debug().Str("path", w.Path()).Int64("rows", w.RowCount()).Msg("wrote table")
	return ManifestEntry{Table: DetailedTable, Path: filepath.Base(w.Path()), Rows: w.RowCount(), Year: year}, nil
}

func (o *Orchestrator) buildManifest(result *GenerationResult) *Manifest {
	ds := o.config.Detail.Dimensions
	m := &Manifest{
		RunID:        result.RunID,
		GeneratedAt:  time.Now().UTC().Truncate(time.Second),
		Seed:         result.Seed,
		Start:        FormatDate(o.config.Monthly.Start),
		End:          FormatDate(o.config.Monthly.End),
		MonthlyNoise: o.config.Monthly.NoiseStdDev,
		Tables:       o.config.TablesSource,
		Dimensions: DimensionSizes{
			Categories:   len(ds.Category.Levels),
			Cities:       len(ds.City.Levels),
			AgeGroups:    len(ds.AgeGroup.Levels),
			Genders:      len(ds.Gender.Levels),
			CardTypes:    len(ds.CardType.Levels),
			Combinations: ds.Combinations(),
		},
		Files:    result.Files,
		Duration: result.Duration.Round(time.Millisecond).String(),
	}
	if m.Tables == "" {
		m.Tables = "builtin"
	}
	if !o.config.MonthlyOnly {
		stats := result.Stats
		m.Expansion = &stats
		m.DetailNoise = o.config.Detail.NoiseStdDev
		m.AmountPolicy = string(o.config.Detail.Amount.Policy)
	}
	return m
}

func (o *Orchestrator) addFiles(result *GenerationResult, entries ...ManifestEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	result.Files = append(result.Files, entries...)
}

func (o *Orchestrator) track(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.written = append(o.written, path)
}

func (o *Orchestrator) removeWritten() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, path := range o.written {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			o.log.Warn().Err(err).Str("path", path).Msg("failed to remove partial output")
		}
	}
	o.written = nil
}

// sortEntries orders files monthly first, then detailed by year, independent
// of which parallel write finished first.
func sortEntries(entries []ManifestEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Table != b.Table {
			return a.Table == MonthlyTable
		}
		return a.Year < b.Year
	})
}

// ParallelWriteTask represents a CSV write task
type ParallelWriteTask struct {
	Name string
	Fn   func() error
}

// RunParallelWrites executes write tasks in parallel and returns the first error.
func RunParallelWrites(tasks []ParallelWriteTask) error {
	var wg sync.WaitGroup
	errChan := make(chan error, len(tasks))

	for _, task := range tasks {
		wg.Add(1)
		go func(t ParallelWriteTask) {
			defer wg.Done()
			if err := t.Fn(); err != nil {
				errChan <- fmt.Errorf("%s: %w", t.Name, err)
			}
		}(task)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		return err
	}
	return nil
}
