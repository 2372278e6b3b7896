package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/willfong/card-spend/internal/generator"
	"github.com/willfong/card-spend/internal/models"
)

// TableSpec maps a generated CSV table onto its database table. Columns are
// listed in CSV order; Nullable columns load empty cells as NULL.
type TableSpec struct {
	Name     string
	Columns  []string
	Nullable []string
}

// Tables lists the generated tables in load order.
var Tables = []TableSpec{
	{
		Name:    generator.MonthlyTable,
		Columns: columnNames(models.MonthlyColumns),
		Nullable: []string{
			"yoy_growth_spending",
			"mom_growth_spending",
			"cards_growth_yoy",
			"spend_per_card_growth_yoy",
		},
	},
	{
		Name:    generator.DetailedTable,
		Columns: columnNames(models.DetailedColumns),
	},
}

// columnNames turns CSV headers into column names (Active_Cards_Millions
// becomes active_cards_millions).
func columnNames(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.ToLower(h)
	}
	return out
}

// LoadSQL returns the LOAD DATA LOCAL INFILE statement for path.
func (t TableSpec) LoadSQL(path string) string {
	nullable := make(map[string]bool, len(t.Nullable))
	for _, c := range t.Nullable {
		nullable[c] = true
	}

	cols := make([]string, len(t.Columns))
	var sets []string
	for i, c := range t.Columns {
		if nullable[c] {
			cols[i] = "@" + c
			sets = append(sets, fmt.Sprintf("    %s = NULLIF(@%s, '')", c, c))
		} else {
			cols[i] = c
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "LOAD DATA LOCAL INFILE '%s'\n", strings.ReplaceAll(path, "'", "''"))
	fmt.Fprintf(&b, "INTO TABLE %s\n", t.Name)
	b.WriteString("CHARACTER SET utf8mb4\n")
	b.WriteString("FIELDS TERMINATED BY ','\n")
	b.WriteString("OPTIONALLY ENCLOSED BY '\"'\n")
	b.WriteString("LINES TERMINATED BY '\\n'\n")
	b.WriteString("IGNORE 1 LINES\n")
	fmt.Fprintf(&b, "(%s)", strings.Join(cols, ", "))
	if len(sets) > 0 {
		b.WriteString("\nSET\n")
		b.WriteString(strings.Join(sets, ",\n"))
	}
	return b.String()
}

// TablePlan is a table and the files it will be loaded from.
type TablePlan struct {
	Spec  TableSpec
	Files []string
}

// Compressed reports whether any file needs xz.
func (tp TablePlan) Compressed() bool {
	for _, f := range tp.Files {
		if strings.HasSuffix(f, ".xz") {
			return true
		}
	}
	return false
}

// LoadResult is the outcome of loading one table.
type LoadResult struct {
	Table    string
	Files    int
	Rows     int64
	Duration time.Duration
	Err      error
	// Hint is a client command that reproduces a failed load
	Hint string
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	Logger zerolog.Logger
	Tables []TableSpec // nil loads Tables
	// Truncate empties each table before loading it
	Truncate bool
	// OnResult is called once per table as it finishes, from its goroutine
	OnResult func(LoadResult)
}

// Loader bulk-loads generated CSV files with LOAD DATA LOCAL INFILE.
type Loader struct {
	pool *Pool
	dir  string
	opts LoaderOptions
	log  zerolog.Logger
}

// NewLoader creates a loader for the files in dir. The pool must have been
// opened with localInfile enabled.
func NewLoader(pool *Pool, dir string, opts LoaderOptions) *Loader {
	if opts.Tables == nil {
		opts.Tables = Tables
	}
	return &Loader{pool: pool, dir: dir, opts: opts, log: opts.Logger}
}

// Plan resolves the files of every table, from manifest.yaml when the
// directory has one.
func (l *Loader) Plan() ([]TablePlan, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		return nil, fmt.Errorf("cannot access input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", l.dir)
	}

	manifest, err := generator.OptionalManifest(l.dir)
	if err != nil {
		return nil, err
	}

	plans := make([]TablePlan, 0, len(l.opts.Tables))
	for _, spec := range l.opts.Tables {
		files, err := generator.TableFiles(l.dir, spec.Name, manifest)
		if err != nil {
			return nil, err
		}
		plans = append(plans, TablePlan{Spec: spec, Files: files})
	}
	return plans, nil
}

// Load loads every planned table concurrently. The first failure cancels the
// other loads; its error is returned alongside the per-table results.
func (l *Loader) Load(ctx context.Context, plans []TablePlan) ([]LoadResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]LoadResult, len(plans))
	var mu sync.Mutex
	var firstErr error
	var wg sync.WaitGroup

	for i, plan := range plans {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Check if cancelled before starting
			if ctx.Err() != nil {
				results[i] = LoadResult{Table: plan.Spec.Name, Err: ctx.Err()}
				return
			}

			result := l.loadTable(ctx, plan)
			results[i] = result
			if l.opts.OnResult != nil {
				l.opts.OnResult(result)
			}

			if result.Err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", result.Table, result.Err)
				}
				mu.Unlock()
				cancel()
			}
		}()
	}

	wg.Wait()
	return results, firstErr
}

func (l *Loader) loadTable(ctx context.Context, plan TablePlan) LoadResult {
	start := time.Now()
	result := LoadResult{Table: plan.Spec.Name, Files: len(plan.Files)}

	if l.opts.Truncate {
		if _, err := l.pool.ExecContext(ctx, "TRUNCATE TABLE "+plan.Spec.Name); err != nil {
			result.Err = fmt.Errorf("truncate failed: %w", err)
			return result
		}
	}

	for i, path := range plan.Files {
		rows, err := l.loadFile(ctx, plan.Spec, path)
		if err != nil {
			if len(plan.Files) > 1 {
				err = fmt.Errorf("shard %d (%s): %w", i+1, filepath.Base(path), err)
			}
			result.Err = err
			result.Hint = l.hint(plan.Spec, path)
			break
		}
		result.Rows += rows
		l.log.Debug().Str("table", plan.Spec.Name).Str("file", path).Int64("rows", rows).Msg("loaded file")
	}

	result.Duration = time.Since(start)
	event := l.log.Info()
	if result.Err != nil {
		event = l.log.Error().Err(result.Err)
	}
	event.Str("table", result.Table).Int("files", result.Files).Int64("rows", result.Rows).
		Dur("duration", result.Duration).Msg("table load finished")
	return result
}

// loadFile loads one CSV file, decompressing .xz to a temporary file first.
func (l *Loader) loadFile(ctx context.Context, spec TableSpec, path string) (int64, error) {
	if strings.HasSuffix(path, ".xz") {
		tmpPath, err := decompress(path, spec.Name)
		if err != nil {
			return 0, err
		}
		defer os.Remove(tmpPath)
		path = tmpPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get absolute path: %w", err)
	}
	mysql.RegisterLocalFile(absPath)
	defer mysql.DeregisterLocalFile(absPath)

	conn, err := l.pool.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	// Session setting, restored before the connection goes back to the pool
	if _, err := conn.ExecContext(ctx, "SET UNIQUE_CHECKS = 0"); err != nil {
		return 0, err
	}
	defer conn.ExecContext(context.Background(), "SET UNIQUE_CHECKS = 1")

	start := time.Now()
	res, err := conn.ExecContext(ctx, spec.LoadSQL(absPath))
	l.pool.recordQuery(time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("LOAD DATA failed: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows, nil
}

func decompress(xzPath, table string) (string, error) {
	tmpFile, err := os.CreateTemp("", fmt.Sprintf("spendgen_%s_*.csv", table))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	r, err := generator.OpenXZ(xzPath)
	if err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return "", err
	}
	_, copyErr := io.Copy(tmpFile, r)
	closeErr := r.Close()
	fileErr := tmpFile.Close()
	if err := errors.Join(copyErr, closeErr, fileErr); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("xz decompression of %s failed: %w", filepath.Base(xzPath), err)
	}
	return tmpPath, nil
}

func (l *Loader) hint(spec TableSpec, path string) string {
	ep, err := ParseEndpoint(l.pool.config.DSN)
	if err != nil {
		return ""
	}
	return ManualLoadCommand(ep, spec, path)
}

// ManualLoadCommand renders a mariadb client invocation that runs the same
// load by hand. Compressed files are streamed through /dev/stdin. The
// password is masked.
func ManualLoadCommand(ep Endpoint, spec TableSpec, path string) string {
	absPath, _ := filepath.Abs(path)
	port := ep.Port
	if port == "" {
		port = "3306"
	}
	client := fmt.Sprintf("mariadb -u%s -p*** -h %s -P %s --local-infile=1 %s", ep.User, ep.Host, port, ep.Database)

	var b strings.Builder
	if strings.HasSuffix(absPath, ".xz") {
		fmt.Fprintf(&b, "xz -d -c %s | %s -e \"\n", absPath, client)
		fmt.Fprintf(&b, "%s;\n\"", spec.LoadSQL("/dev/stdin"))
	} else {
		fmt.Fprintf(&b, "%s <<'EOF'\n", client)
		fmt.Fprintf(&b, "%s;\nEOF", spec.LoadSQL(absPath))
	}
	return b.String()
}
