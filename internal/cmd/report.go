package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/willfong/card-spend/internal/analysis"
	"github.com/willfong/card-spend/internal/config"
	"github.com/willfong/card-spend/internal/data"
	"github.com/willfong/card-spend/internal/dataset"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Analyse a generated dataset",
	Long: `Read a generated dataset and print the analysis report.

Sections (default: all, in this order):
  summary       descriptive statistics, total growth and CAGR
  trends        seasonality by calendar month and yearly totals
  categories    top categories, latest-year growth and yearly trend
  demographics  spending by age group, gender and card type
  geography     spending by city
  segments      k-means clusters of age x gender x card type groups
  forecast      least-squares spending model, hold-out accuracy, projection
  kpis          headline numbers for a focus year and generated insights

Sections that need the detailed table are skipped for monthly-only datasets.

Examples:
  spendgen report
  spendgen report --input ./output --sections summary,trends
  spendgen report --year 2024 --top 10
  spendgen report --clusters 5 --out report.yaml`,
	PreRun: func(cmd *cobra.Command, args []string) {
		mustBind(cmd.Flags(), map[string]string{
			"output.dir":         "input",
			"report.sections":    "sections",
			"report.year":        "year",
			"report.top":         "top",
			"report.clusters":    "clusters",
			"report.horizon":     "horizon",
			"report.test_months": "test-months",
			"report.seed":        "cluster-seed",
			"report.out":         "out",
			"tables_file":        "tables",
		})
	},
	Run: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	flags := reportCmd.Flags()
	flags.String("input", config.DefaultOutputDir, "directory containing the generated dataset")
	flags.StringSlice("sections", nil, "comma-separated sections to run (default: all)")
	flags.Int("year", 0, "KPI focus year (0 = latest full year)")
	flags.Int("top", config.ReportTopN, "number of top categories and cities")
	flags.Int("clusters", config.ReportClusters, "number of customer segment clusters")
	flags.Int("horizon", config.ReportHorizon, "months to project past the last record")
	flags.Int("test-months", config.ReportTestMonths, "months held out to score the forecast")
	flags.Int64("cluster-seed", 42, "random seed for k-means initialization")
	flags.String("out", "", "also write the report as YAML to this file")
	flags.String("tables", "", "JSON file overriding the built-in reference tables")
}

func runReport(cmd *cobra.Command, args []string) {
	cfg, u, log := setup()

	tables, err := data.LoadFile(cfg.TablesFile)
	if err != nil {
		fail(u, err)
	}
	sections := cfg.Sections()

	spin := u.NewSpinner("Reading dataset")
	spin.Start()
	ds, err := dataset.Load(context.Background(), cfg.Output.Dir, dataset.Options{
		Logger:      log,
		MonthlyOnly: !analysis.NeedsDetailed(sections),
	})
	if err != nil {
		spin.Error(err.Error())
		os.Exit(1)
	}
	spin.SetLabel(fmt.Sprintf("Analysing %d monthly / %d detailed rows", len(ds.Monthly), len(ds.Detailed)))

	opts := analysis.DefaultOptions()
	opts.Sections = sections
	opts.Year = cfg.Report.Year
	opts.Top = cfg.Report.Top
	opts.Clusters = cfg.Report.Clusters
	opts.Horizon = cfg.Report.Horizon
	opts.TestMonths = cfg.Report.TestMonths
	opts.Seed = cfg.Report.Seed
	opts.Tables = tables
	opts.Logger = log

	rep, err := analysis.Build(ds, opts)
	if err != nil {
		spin.Error(err.Error())
		os.Exit(1)
	}
	spin.Success(fmt.Sprintf("%d monthly / %d detailed rows", len(ds.Monthly), len(ds.Detailed)))

	printReport(u, rep)

	if cfg.Report.Out != "" {
		if err := writeReportYAML(cfg.Report.Out, rep); err != nil {
			fail(u, err)
		}
		u.Println()
		u.Println(u.Success("Report written to: " + cfg.Report.Out))
	}
}

func writeReportYAML(path string, rep *analysis.Report) error {
	content, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
