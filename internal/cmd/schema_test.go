package cmd

import (
	"strings"
	"testing"

	"github.com/willfong/card-spend/internal/database"
)

func TestSchemaFilesEmbedded(t *testing.T) {
	for name, file := range schemaFiles {
		content, err := schemaFS.ReadFile(file)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(database.SplitStatements(string(content))) == 0 {
			t.Errorf("%s: no statements", name)
		}
	}
}

func TestSchemaTablesMatchLoader(t *testing.T) {
	content, err := schemaFS.ReadFile(schemaFiles["tables"])
	if err != nil {
		t.Fatal(err)
	}
	ddl := string(content)

	for _, spec := range database.Tables {
		start := strings.Index(ddl, "CREATE TABLE IF NOT EXISTS "+spec.Name+" (")
		if start < 0 {
			t.Fatalf("Expected CREATE TABLE for %s", spec.Name)
		}
		body := ddl[start:]
		body = body[:strings.Index(body, ";")]

		for _, col := range spec.Columns {
			if !strings.Contains(body, "\n    "+col+" ") {
				t.Errorf("%s: column %s missing from DDL", spec.Name, col)
			}
		}
		for _, col := range spec.Nullable {
			if !strings.Contains(body, col) || !strings.Contains(lineOf(body, col), " NULL") || strings.Contains(lineOf(body, col), "NOT NULL") {
				t.Errorf("%s: column %s should be nullable", spec.Name, col)
			}
		}
	}
}

func TestFullSchemaIsTablesPlusIndexes(t *testing.T) {
	count := func(file string) int {
		content, err := schemaFS.ReadFile(file)
		if err != nil {
			t.Fatal(err)
		}
		return len(database.SplitStatements(string(content)))
	}

	full, tables, indexes := count(schemaFiles["full"]), count(schemaFiles["tables"]), count(schemaFiles["indexes"])
	if full != tables+indexes {
		t.Errorf("Expected %d statements in full schema, got %d", tables+indexes, full)
	}
}

func lineOf(body, col string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), col+" ") {
			return line
		}
	}
	return ""
}
