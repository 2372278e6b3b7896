package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/willfong/card-spend/internal/config"
	"github.com/willfong/card-spend/internal/data"
	"github.com/willfong/card-spend/internal/generator"
	"github.com/willfong/card-spend/internal/ui"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate monthly and detailed card spending data",
	Long: `Generate a synthetic card spending dataset.

This command writes to the output directory:
- monthly_spending.csv   one row per month: active cards, average spend,
                         seasonal factor, total spending and growth rates
- detailed_spending.csv  every month split by category, city, age group,
                         gender and card type
- manifest.yaml          run id, effective seed, settings and row counts

Segment growth rates, seasonality and dimension weights come from the
built-in reference tables; --tables replaces any of their sections with a
JSON file. Noise levels and the drop threshold are in config/defaults.go.

Example:
  spendgen generate --seed 42
  spendgen generate --start 2020-01-01 --end 2024-12-31 --compress
  spendgen generate --shard-by-year --workers 8
  spendgen generate --monthly-only --noise 0   # Deterministic monthly series`,
	PreRun: func(cmd *cobra.Command, args []string) {
		mustBind(cmd.Flags(), map[string]string{
			"generate.start":       "start",
			"generate.end":         "end",
			"generate.seed":        "seed",
			"generate.noise":       "noise",
			"detail.noise":         "detail-noise",
			"detail.threshold":     "threshold",
			"detail.amount_policy": "amount-policy",
			"detail.workers":       "workers",
			"detail.monthly_only":  "monthly-only",
			"output.dir":           "output",
			"output.compress":      "compress",
			"output.shard_by_year": "shard-by-year",
			"tables_file":          "tables",
		})
	},
	Run: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	flags := generateCmd.Flags()
	flags.String("start", config.DefaultStart, "first month to generate (YYYY-MM-DD)")
	flags.String("end", config.DefaultEnd, "last day of the range; months ending after it are excluded (YYYY-MM-DD)")
	flags.Int64("seed", 0, "random seed for reproducibility (0 = random)")
	flags.Float64("noise", config.MonthlyNoiseStdDev, "stddev of the monthly multiplicative noise")
	flags.Float64("detail-noise", config.DetailNoiseStdDev, "stddev of the per-combination noise")
	flags.Float64("threshold", config.DetailThreshold, "drop detailed records at or below this spending (thousands INR)")
	flags.String("amount-policy", "", "override degenerate amount handling: clamp, redraw or fail")
	flags.Int("workers", config.DetailWorkers, "number of parallel workers (0 = auto-detect CPUs)")
	flags.Bool("monthly-only", false, "generate only the monthly table")
	flags.String("output", config.DefaultOutputDir, "output directory for CSV files")
	flags.Bool("compress", false, "compress output with xz (creates .csv.xz files)")
	flags.Bool("shard-by-year", false, "write the detailed table as one file per year")
	flags.String("tables", "", "JSON file overriding the built-in reference tables")
}

func runGenerate(cmd *cobra.Command, args []string) {
	cfg, u, log := setup()

	// Check xz availability if compression is requested
	if cfg.Output.Compress {
		if err := generator.CheckXZAvailable(); err != nil {
			fmt.Fprintln(os.Stderr, u.Error("xz compression requested but xz is not available"))
			fmt.Fprintln(os.Stderr, "Install with: apt install xz-utils (Linux) or brew install xz (macOS)")
			os.Exit(1)
		}
	}

	tables, err := data.LoadFile(cfg.TablesFile)
	if err != nil {
		fail(u, err)
	}
	if problems := tables.Validate(); len(problems) > 0 {
		fail(u, fmt.Errorf("invalid reference tables (%s):\n  - %s", tables.Source, joinLines(problems)))
	}

	orchCfg, err := cfg.Orchestrator(tables)
	if err != nil {
		fail(u, err)
	}

	u.Println(u.Header("Card Spending Generator"))
	u.Println()
	u.Println(u.KeyValue("Range", fmt.Sprintf("%s to %s", cfg.Generate.Start, cfg.Generate.End)))
	u.Println(u.KeyValue("Tables", tables.Source))
	u.Println(u.KeyValue("Output", cfg.Output.Dir))
	if cfg.Generate.Seed != 0 {
		u.Println(u.KeyValue("Seed", fmt.Sprintf("%d", cfg.Generate.Seed)))
	}
	u.Println(u.KeyValue("Noise", fmt.Sprintf("monthly %.2f / detail %.2f", cfg.Generate.Noise, cfg.Detail.Noise)))
	if cfg.Output.Compress {
		u.Println(u.KeyValue("Compression", "xz (.csv.xz)"))
	}
	if cfg.Detail.MonthlyOnly {
		u.Println(u.KeyValue("Mode", "monthly only (no detailed table)"))
	} else {
		u.Println(u.KeyValue("Combinations", fmt.Sprintf("%d per month", tables.Dimensions.Combinations())))
		u.Println(u.KeyValue("Workers", fmt.Sprintf("%d", generator.GetWorkerCount(cfg.Detail.Workers))))
	}
	u.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := generator.OrchestratorOptions{Logger: log}
	var bar *ui.ProgressBar
	var spin *ui.Spinner
	if cfg.Detail.MonthlyOnly {
		spin = u.NewSpinner("Generating monthly series")
		spin.Start()
	} else {
		bar = u.NewProgressBar("Expanding months", 0)
		opts.OnProgress = bar.Callback()
	}

	result, err := generator.NewOrchestrator(orchCfg, opts).Run(ctx)
	if err != nil {
		if spin != nil {
			spin.Error(err.Error())
		} else {
			bar.Fail(err)
		}
		os.Exit(1)
	}
	if spin != nil {
		spin.Success("complete")
	} else {
		bar.Complete()
	}

	printGenerateSummary(u, cfg.Output.Dir, result)
	u.Println()
	u.Println(u.Success("Output files written to: " + cfg.Output.Dir))
}

// printGenerateSummary prints a styled generation summary
func printGenerateSummary(u *ui.UI, dir string, result *generator.GenerationResult) {
	var size int64
	for _, f := range result.Files {
		if info, err := os.Stat(filepath.Join(dir, f.Path)); err == nil {
			size += info.Size()
		}
	}

	items := []ui.KV{
		{Key: "Run ID", Value: result.RunID},
		{Key: "Seed", Value: fmt.Sprintf("%d", result.Seed)},
		{Key: "Monthly rows", Value: fmt.Sprintf("%d", len(result.Monthly))},
	}
	if result.Stats.Combinations > 0 {
		items = append(items,
			ui.KV{Key: "Detailed rows", Value: fmt.Sprintf("%d", result.DetailedCount)},
			ui.KV{Key: "Discarded", Value: fmt.Sprintf("%d of %d", result.Stats.Discarded, result.Stats.Combinations)},
		)
		if n := result.Stats.Clamped + result.Stats.Redrawn; n > 0 {
			items = append(items, ui.KV{Key: "Degenerate", Value: fmt.Sprintf("%d amount draws", n)})
		}
	}
	items = append(items,
		ui.KV{Key: "Files", Value: fmt.Sprintf("%d + %s (%s)", len(result.Files), generator.ManifestFile, ui.FormatBytes(size))},
		ui.KV{Key: "Duration", Value: ui.FormatDuration(result.Duration)},
		ui.KV{Key: "Status", Value: "Success"},
	)

	u.Println(u.SummaryBox("Generation Complete", items))
}

func joinLines(lines []string) string {
	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n  - " + l
	}
	return out
}
