package database

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/willfong/card-spend/internal/generator"
)

func TestPrepareDSN(t *testing.T) {
	dsn, err := PrepareDSN("user:pass@tcp(localhost:3306)/cards", false)
	if err != nil {
		t.Fatalf("PrepareDSN failed: %v", err)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("Expected parseTime=true in %q", dsn)
	}
	if strings.Contains(dsn, "allowAllFiles") {
		t.Errorf("Expected no allowAllFiles in %q", dsn)
	}

	dsn, err = PrepareDSN("user:pass@tcp(localhost:3306)/cards?charset=utf8mb4", true)
	if err != nil {
		t.Fatalf("PrepareDSN failed: %v", err)
	}
	for _, want := range []string{"allowAllFiles=true", "parseTime=true", "charset=utf8mb4", "/cards"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("Expected %q in %q", want, dsn)
		}
	}

	if _, err := PrepareDSN("not a dsn", false); err == nil {
		t.Error("Expected error for malformed DSN")
	}
}

func TestMaskDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"user:secret@tcp(db:3306)/cards", "user:***@tcp(db:3306)/cards"},
		{"user@tcp(db:3306)/cards", "user@tcp(db:3306)/cards"},
		{"/cards", "/cards"},
	}

	for _, tt := range tests {
		if got := MaskDSN(tt.dsn); got != tt.want {
			t.Errorf("MaskDSN(%q) = %q, expected %q", tt.dsn, got, tt.want)
		}
	}
}

func TestParseEndpoint(t *testing.T) {
	ep, err := ParseEndpoint("analyst:pw@tcp(db.internal:3307)/cards?parseTime=true")
	if err != nil {
		t.Fatalf("ParseEndpoint failed: %v", err)
	}
	want := Endpoint{User: "analyst", Password: "pw", Host: "db.internal", Port: "3307", Database: "cards"}
	if ep != want {
		t.Errorf("Expected %+v, got %+v", want, ep)
	}

	ep, err = ParseEndpoint("root@tcp(localhost)/cards")
	if err != nil {
		t.Fatalf("ParseEndpoint failed: %v", err)
	}
	if ep.Port != "3306" {
		t.Errorf("Expected default port 3306, got %q", ep.Port)
	}
}

func TestTableColumns(t *testing.T) {
	monthly := Tables[0]
	if monthly.Name != "monthly_spending" {
		t.Fatalf("Expected monthly_spending first, got %s", monthly.Name)
	}
	if monthly.Columns[0] != "date" || monthly.Columns[4] != "active_cards_millions" {
		t.Errorf("Unexpected monthly columns: %v", monthly.Columns)
	}
	if len(Tables[1].Columns) != 11 {
		t.Errorf("Expected 11 detailed columns, got %d", len(Tables[1].Columns))
	}
}

func TestLoadSQL(t *testing.T) {
	sql := Tables[0].LoadSQL("/data/it's/monthly_spending.csv")

	for _, want := range []string{
		"LOAD DATA LOCAL INFILE '/data/it''s/monthly_spending.csv'",
		"INTO TABLE monthly_spending",
		"IGNORE 1 LINES",
		"(date, year, month, quarter, active_cards_millions,",
		"@yoy_growth_spending, @mom_growth_spending",
		"yoy_growth_spending = NULLIF(@yoy_growth_spending, '')",
		"spend_per_card_growth_yoy = NULLIF(@spend_per_card_growth_yoy, '')",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("Expected %q in:\n%s", want, sql)
		}
	}

	detailed := Tables[1].LoadSQL("/tmp/d.csv")
	if strings.Contains(detailed, "SET\n") || strings.Contains(detailed, "@") {
		t.Errorf("Expected no NULLIF mapping for detailed table:\n%s", detailed)
	}
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoaderPlan(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "monthly_spending.csv")
	touch(t, dir, "detailed_spending_2019.csv.xz")

	l := NewLoader(nil, dir, LoaderOptions{})
	plans, err := l.Plan()
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("Expected 2 plans, got %d", len(plans))
	}
	if plans[0].Compressed() {
		t.Error("Expected monthly plan uncompressed")
	}
	if !plans[1].Compressed() || len(plans[1].Files) != 1 {
		t.Errorf("Expected one compressed detailed shard, got %v", plans[1].Files)
	}

	if _, err := NewLoader(nil, filepath.Join(dir, "missing"), LoaderOptions{}).Plan(); err == nil {
		t.Error("Expected error for missing directory")
	}

	os.Remove(filepath.Join(dir, "monthly_spending.csv"))
	if _, err := l.Plan(); !errors.Is(err, generator.ErrNoTableFiles) {
		t.Errorf("Expected ErrNoTableFiles, got %v", err)
	}
}

func TestLoaderPlanFollowsManifest(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "monthly_spending.csv")
	touch(t, dir, "detailed_spending.csv.xz")
	s2019 := touch(t, dir, "detailed_spending_2019.csv")

	_, err := generator.WriteManifest(dir, &generator.Manifest{Files: []generator.ManifestEntry{
		{Table: generator.MonthlyTable, Path: "monthly_spending.csv", Rows: 12},
		{Table: generator.DetailedTable, Path: "detailed_spending_2019.csv", Rows: 100, Year: 2019},
	}})
	if err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	plans, err := NewLoader(nil, dir, LoaderOptions{}).Plan()
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if !reflect.DeepEqual(plans[1].Files, []string{s2019}) {
		t.Errorf("Expected only the listed shard, got %v", plans[1].Files)
	}
	if plans[1].Compressed() {
		t.Error("Expected the unlisted .csv.xz file to be ignored")
	}
}

func TestManualLoadCommand(t *testing.T) {
	ep := Endpoint{User: "root", Password: "secret", Host: "db", Database: "cards"}

	cmd := ManualLoadCommand(ep, Tables[0], "/data/monthly_spending.csv")
	if !strings.Contains(cmd, "mariadb -uroot -p*** -h db -P 3306 --local-infile=1 cards <<'EOF'") {
		t.Errorf("Unexpected command:\n%s", cmd)
	}
	if strings.Contains(cmd, "secret") {
		t.Error("Expected password to be masked")
	}

	cmd = ManualLoadCommand(ep, Tables[1], "/data/detailed_spending_2019.csv.xz")
	if !strings.HasPrefix(cmd, "xz -d -c /data/detailed_spending_2019.csv.xz | mariadb") {
		t.Errorf("Unexpected command:\n%s", cmd)
	}
	if !strings.Contains(cmd, "'/dev/stdin'") {
		t.Errorf("Expected stdin load in:\n%s", cmd)
	}
}

func TestSplitStatements(t *testing.T) {
	script := `-- tables
CREATE TABLE a (
  id INT
);

-- indexes
CREATE INDEX idx_a ON a (id);
SELECT 1`

	got := SplitStatements(script)
	want := []string{
		"CREATE TABLE a (\n  id INT\n);",
		"CREATE INDEX idx_a ON a (id);",
		"SELECT 1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestExpectedRows(t *testing.T) {
	results := []LoadResult{
		{Table: generator.MonthlyTable, Rows: 79},
		{Table: generator.DetailedTable, Rows: 5, Err: errors.New("boom")},
	}

	got := ExpectedRows(nil, results)
	if got[generator.MonthlyTable] != 79 {
		t.Errorf("Expected 79 monthly rows, got %d", got[generator.MonthlyTable])
	}
	if _, ok := got[generator.DetailedTable]; ok {
		t.Error("Expected failed load to have no expectation")
	}

	m := &generator.Manifest{Files: []generator.ManifestEntry{
		{Table: generator.DetailedTable, Rows: 100, Year: 2019},
		{Table: generator.DetailedTable, Rows: 120, Year: 2020},
	}}
	got = ExpectedRows(m, results)
	if got[generator.DetailedTable] != 220 {
		t.Errorf("Expected 220 detailed rows from manifest, got %d", got[generator.DetailedTable])
	}
}

func TestVerificationOK(t *testing.T) {
	v := &Verification{Tables: []TableCount{
		{Table: "a", Rows: 3, Expected: 3},
		{Table: "b", Rows: 9, Expected: -1},
	}}
	if !v.OK() {
		t.Error("Expected verification to pass")
	}
	v.Tables = append(v.Tables, TableCount{Table: "c", Rows: 1, Expected: 2})
	if v.OK() {
		t.Error("Expected verification to fail on count mismatch")
	}
}
