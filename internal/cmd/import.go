package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/willfong/card-spend/internal/config"
	"github.com/willfong/card-spend/internal/database"
	"github.com/willfong/card-spend/internal/generator"
	"github.com/willfong/card-spend/internal/ui"
	"github.com/willfong/card-spend/internal/utils"
)

var importTruncate bool

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import CSV data into MySQL/MariaDB database",
	Long: `Import a generated dataset into a MySQL/MariaDB database using LOAD DATA LOCAL INFILE.

It handles plain CSV files, xz-compressed files (.csv.xz) and detailed
tables sharded by year.

The import process:
1. Creates tables if they don't exist
2. Loads both tables in parallel with unique checks disabled
3. Creates indexes after loading
4. Verifies row counts against manifest.yaml and totals spending per year

Examples:
  spendgen import --db "user:pass@tcp(localhost:3306)/spending"
  spendgen import --db "user:pass@tcp(localhost:3306)/spending" --input ./my-data --truncate
  SPENDGEN_DATABASE_DSN="user:pass@tcp(db:3306)/spending" spendgen import`,
	PreRun: func(cmd *cobra.Command, args []string) {
		mustBind(cmd.Flags(), map[string]string{
			"database.dsn":            "db",
			"database.max_open_conns": "db-max-open",
			"database.max_idle_conns": "db-max-idle",
			"output.dir":              "input",
		})
	},
	Run: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	flags := importCmd.Flags()
	flags.String("db", "", "database connection string (user:pass@tcp(host:port)/database)")
	flags.String("input", config.DefaultOutputDir, "input directory containing CSV files")
	flags.Int("db-max-open", config.MaxOpenConns, "max open database connections")
	flags.Int("db-max-idle", config.MaxIdleConns, "max idle database connections")
	flags.BoolVar(&importTruncate, "truncate", false, "empty each table before loading it")
}

func runImport(cmd *cobra.Command, args []string) {
	cfg, u, log := setup()
	if cfg.Database.DSN == "" {
		fail(u, errors.New("a database connection string is required (--db or SPENDGEN_DATABASE_DSN)"))
	}

	u.Println(u.Header("Card Spending Importer"))
	u.Println()
	u.Println(u.KeyValue("Database", database.MaskDSN(cfg.Database.DSN)))
	u.Println(u.KeyValue("Input", cfg.Output.Dir))
	u.Println(u.KeyValue("DB Pool", fmt.Sprintf("%d open / %d idle", cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)))
	if shards, err := generator.GetShardInfo(cfg.Output.Dir, generator.DetailedTable); err == nil && shards != nil {
		u.Println(u.KeyValue("Shards", describeShards(shards)))
	}
	u.Println()

	pool, err := database.NewPool(cfg.Database, true)
	if err != nil {
		fail(u, err)
	}
	defer pool.Close()

	loader := database.NewLoader(pool, cfg.Output.Dir, database.LoaderOptions{
		Logger:   log,
		Truncate: importTruncate,
		OnResult: func(r database.LoadResult) {
			u.PrintLoadResult(r.Table, r.Rows, r.Duration, r.Files, r.Err)
			if r.Err != nil && r.Hint != "" {
				u.DebugBox("To debug manually, run:", r.Hint)
			}
		},
	})

	plans, err := loader.Plan()
	if err != nil {
		fail(u, err)
	}
	for _, p := range plans {
		if p.Compressed() {
			if err := generator.CheckXZAvailable(); err != nil {
				fmt.Fprintln(os.Stderr, u.Error("xz not found but compressed files detected"))
				fmt.Fprintln(os.Stderr, "Install xz-utils (Linux) or xz (macOS via Homebrew)")
				os.Exit(1)
			}
			break
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Test connection
	spin := u.NewSpinner("Connecting to database")
	spin.Start()
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = pool.Connect(connectCtx)
	cancel()
	if err != nil {
		spin.Error("connection failed: " + err.Error())
		os.Exit(1)
	}
	spin.Success("connected!")

	// Create schema if needed
	spinTables := u.NewSpinner("Creating tables")
	spinTables.Start()
	script, err := schemaFS.ReadFile(schemaFiles["tables"])
	if err == nil {
		_, err = pool.ExecScript(ctx, string(script), true)
	}
	if err != nil {
		spinTables.Error("failed: " + err.Error())
		os.Exit(1)
	}
	spinTables.Success("tables ready")

	// Load all tables in parallel
	u.Section("Loading data...")
	startTime := time.Now()
	results, loadErr := loader.Load(ctx, plans)
	loadDuration := time.Since(startTime)

	// Stop early if any table failed
	if loadErr != nil {
		fmt.Fprintln(os.Stderr, u.Error("Import stopped due to error"))
		printImportSummary(u, results, nil, loadDuration, pool.Stats())
		os.Exit(1)
	}

	// Create indexes
	spinIdx := u.NewSpinner("Creating indexes")
	spinIdx.Start()
	script, err = schemaFS.ReadFile(schemaFiles["indexes"])
	var n int
	if err == nil {
		n, err = pool.ExecScript(ctx, string(script), true)
	}
	if err != nil {
		spinIdx.Error("failed: " + err.Error())
		os.Exit(1)
	}
	spinIdx.Success(fmt.Sprintf("%d statements", n))

	// Verify
	manifest, err := generator.ReadManifest(cfg.Output.Dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		u.Println(u.Warning("no " + generator.ManifestFile + ", checking against loaded row counts"))
	case err != nil:
		log.Warn().Err(err).Msg("ignoring unreadable manifest")
	}
	verification, err := database.Verify(ctx, pool, database.Tables, database.ExpectedRows(manifest, results))
	if err != nil {
		fail(u, err)
	}
	printVerification(u, verification)

	printImportSummary(u, results, verification, loadDuration, pool.Stats())
}

func describeShards(s *generator.ShardInfo) string {
	desc := fmt.Sprintf("%d files, %d to %d", len(s.Files), s.Years[0], s.Years[len(s.Years)-1])
	if s.Compressed {
		desc += ", xz"
	}
	return desc
}

func printVerification(u *ui.UI, v *database.Verification) {
	u.Section("Verifying...")
	for _, t := range v.Tables {
		value := fmt.Sprintf("%d rows", t.Rows)
		status := ui.StatusSuccess
		if !t.Match() {
			value = fmt.Sprintf("%d rows, expected %d", t.Rows, t.Expected)
			status = ui.StatusError
		}
		u.Println(u.StatusLine(t.Table, value, status))
	}

	if len(v.Years) == 0 {
		return
	}
	u.Println()
	var rows [][]string
	for _, y := range v.Years {
		rows = append(rows, []string{
			fmt.Sprintf("%d", y.Year),
			fmt.Sprintf("%d", y.Months),
			utils.FormatBillions(y.TotalSpending),
		})
	}
	u.Println(u.Table([]ui.Column{
		{Title: "Year"},
		{Title: "Months", Right: true},
		{Title: "Total spending", Right: true},
	}, rows))
}

func printImportSummary(u *ui.UI, results []database.LoadResult, v *database.Verification, totalDuration time.Duration, stats database.PoolStats) {
	var totalRows int64
	var failures int

	for _, r := range results {
		if r.Err != nil {
			failures++
		} else {
			totalRows += r.Rows
		}
	}

	items := []ui.KV{
		{Key: "Total rows", Value: ui.FormatCount(totalRows)},
		{Key: "Total time", Value: ui.FormatDuration(totalDuration)},
		{Key: "Statements", Value: fmt.Sprintf("%d (%d errors)", stats.TotalQueries, stats.FailedQueries)},
	}

	switch {
	case failures > 0:
		items = append(items, ui.KV{Key: "Failed", Value: fmt.Sprintf("%d tables", failures)})
		items = append(items, ui.KV{Key: "Status", Value: "Failed"})
	case v != nil && !v.OK():
		items = append(items, ui.KV{Key: "Status", Value: "Failed verification"})
	default:
		items = append(items, ui.KV{Key: "Status", Value: "Success"})
	}

	u.Println(u.SummaryBox("Import Summary", items))

	if failures > 0 || (v != nil && !v.OK()) {
		os.Exit(1)
	}
}
