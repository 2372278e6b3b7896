package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/willfong/card-spend/internal/generator/patterns"
)

func testOrchestratorConfig(dir string) OrchestratorConfig {
	monthly := DefaultMonthlyParams()
	monthly.End = date(2020, 3, 31)
	detail := DefaultDetailParams()
	detail.Workers = 2
	return OrchestratorConfig{
		Monthly:   monthly,
		Detail:    detail,
		Seed:      42,
		OutputDir: dir,
	}
}

func TestOrchestratorRun(t *testing.T) {
	dir := t.TempDir()
	o := NewOrchestrator(testOrchestratorConfig(dir), OrchestratorOptions{Logger: zerolog.Nop()})

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", result.Seed)
	}
	if len(result.Monthly) != 15 {
		t.Errorf("Expected 15 months, got %d", len(result.Monthly))
	}
	if result.DetailedCount == 0 || result.DetailedCount != result.Stats.Emitted {
		t.Errorf("Detailed count %d does not match stats %+v", result.DetailedCount, result.Stats)
	}

	monthlyRows := readCSV(t, filepath.Join(dir, "monthly_spending.csv"))
	if len(monthlyRows) != 16 {
		t.Errorf("Expected header + 15 monthly rows, got %d", len(monthlyRows))
	}
	detailedRows := readCSV(t, filepath.Join(dir, "detailed_spending.csv"))
	if int64(len(detailedRows)-1) != result.DetailedCount {
		t.Errorf("Expected %d detailed rows, got %d", result.DetailedCount, len(detailedRows)-1)
	}

	m, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if m.RunID != result.RunID || m.Seed != 42 {
		t.Errorf("Manifest mismatch: %+v", m)
	}
	if m.Rows(MonthlyTable) != 15 || m.Rows(DetailedTable) != result.DetailedCount {
		t.Errorf("Manifest row counts mismatch: %+v", m.Files)
	}
	if m.Dimensions.Combinations != 2700 || m.AmountPolicy != "clamp" || m.Tables != "builtin" {
		t.Errorf("Unexpected manifest details: %+v", m)
	}
	if m.Expansion == nil || m.Expansion.Emitted != result.DetailedCount {
		t.Errorf("Expected expansion stats in manifest, got %+v", m.Expansion)
	}
}

func TestOrchestratorShardByYear(t *testing.T) {
	dir := t.TempDir()
	cfg := testOrchestratorConfig(dir)
	cfg.ShardByYear = true

	result, err := NewOrchestrator(cfg, OrchestratorOptions{Logger: zerolog.Nop()}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Files) != 3 {
		t.Fatalf("Expected monthly + 2 shards, got %+v", result.Files)
	}
	if result.Files[0].Table != MonthlyTable || result.Files[1].Year != 2019 || result.Files[2].Year != 2020 {
		t.Errorf("Unexpected file order: %+v", result.Files)
	}

	var total int64
	for _, year := range []int{2019, 2020} {
		rows := readCSV(t, filepath.Join(dir, ShardFilename(DetailedTable, year)+".csv"))
		total += int64(len(rows) - 1)
	}
	if total != result.DetailedCount {
		t.Errorf("Expected %d rows across shards, got %d", result.DetailedCount, total)
	}
	if _, err := os.Stat(filepath.Join(dir, "detailed_spending.csv")); !os.IsNotExist(err) {
		t.Error("Expected no unsharded detailed file")
	}
}

func TestOrchestratorMonthlyOnly(t *testing.T) {
	dir := t.TempDir()
	cfg := testOrchestratorConfig(dir)
	cfg.MonthlyOnly = true
	cfg.Detail = DetailParams{} // not validated when skipped

	result, err := NewOrchestrator(cfg, OrchestratorOptions{Logger: zerolog.Nop()}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.DetailedCount != 0 || len(result.Files) != 1 {
		t.Errorf("Expected only the monthly table, got %+v", result.Files)
	}
	m, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if m.Expansion != nil {
		t.Error("Expected no expansion stats for a monthly-only run")
	}
}

func TestOrchestratorFailureRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := testOrchestratorConfig(dir)
	cfg.Detail.Amount = patterns.TransactionAmount{Mean: 50, StdDev: 0, Floor: 100, Policy: patterns.PolicyFail}

	_, err := NewOrchestrator(cfg, OrchestratorOptions{Logger: zerolog.Nop()}).Run(context.Background())
	if !errors.Is(err, ErrNumericDegeneracy) {
		t.Fatalf("Expected ErrNumericDegeneracy, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected an empty output directory, found %d entries", len(entries))
	}
}

func TestOrchestratorValidate(t *testing.T) {
	cfg := testOrchestratorConfig("")
	cfg.Monthly.NoiseStdDev = -1
	cfg.Detail.Threshold = -1

	err := NewOrchestrator(cfg, OrchestratorOptions{}).Validate()
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected *ConfigurationError, got %v", err)
	}
	if len(cfgErr.Problems) != 3 {
		t.Errorf("Expected 3 problems, got %v", cfgErr.Problems)
	}
}
