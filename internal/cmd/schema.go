package cmd

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/willfong/card-spend/internal/database"
)

//go:embed schemas/*.sql
var schemaFS embed.FS

// schemaFiles maps a schema type to its embedded file.
var schemaFiles = map[string]string{
	"full":    "schemas/schema.sql",
	"tables":  "schemas/schema_no_indexes.sql",
	"indexes": "schemas/schema_indexes.sql",
}

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema [type]",
	Short: "Output database schema files",
	Long: `Output the SQL schema for the spending tables.

Available schema types:
  full      Complete schema with tables and indexes (default)
  tables    Tables only, no secondary indexes (for bulk loading)
  indexes   Secondary indexes only (run after bulk data load)

The schema is designed for MariaDB 11.8+ but should work with MySQL 8+.

Bulk Loading Strategy:
  1. Create tables without indexes: spendgen schema tables | mysql ...
  2. Load data using LOAD DATA INFILE
  3. Create indexes: spendgen schema indexes | mysql ...
  spendgen import does all three.

Examples:
  spendgen schema                          # Output complete schema
  spendgen schema full > schema.sql        # Save full schema to file
  spendgen schema tables | mysql -u root spending
  spendgen schema full --apply --db "user:pass@tcp(localhost:3306)/spending"`,
	Args: cobra.MaximumNArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		mustBind(cmd.Flags(), map[string]string{"database.dsn": "db"})
	},
	Run: runSchema,
}

var (
	schemaOutputFile string
	schemaApply      bool
)

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVarP(&schemaOutputFile, "output", "o", "", "output file (default: stdout)")
	schemaCmd.Flags().BoolVar(&schemaApply, "apply", false, "execute the schema against --db instead of printing it")
	schemaCmd.Flags().String("db", "", "database connection string for --apply")
}

func runSchema(cmd *cobra.Command, args []string) {
	cfg, u, _ := setup()

	schemaType := "full"
	if len(args) > 0 {
		schemaType = args[0]
	}

	filename, ok := schemaFiles[schemaType]
	if !ok {
		fmt.Fprintln(os.Stderr, u.Error(fmt.Sprintf("Unknown schema type '%s'", schemaType)))
		fmt.Fprintln(os.Stderr, "Valid types: full, tables, indexes")
		os.Exit(1)
	}

	content, err := schemaFS.ReadFile(filename)
	if err != nil {
		fail(u, fmt.Errorf("reading schema: %w", err))
	}

	if schemaApply {
		pool, err := database.NewPool(cfg.Database, false)
		if err != nil {
			fail(u, err)
		}
		defer pool.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		spin := u.NewSpinner("Applying " + schemaType + " schema")
		spin.Start()
		if err := pool.Connect(ctx); err != nil {
			spin.Error(err.Error())
			os.Exit(1)
		}
		n, err := pool.ExecScript(ctx, string(content), true)
		if err != nil {
			spin.Error(err.Error())
			os.Exit(1)
		}
		spin.Success(fmt.Sprintf("%d statements on %s", n, pool.DSN()))
		return
	}

	if schemaOutputFile != "" {
		// Ensure directory exists
		dir := filepath.Dir(schemaOutputFile)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				fail(u, fmt.Errorf("creating directory: %w", err))
			}
		}

		if err := os.WriteFile(schemaOutputFile, content, 0644); err != nil {
			fail(u, fmt.Errorf("writing file: %w", err))
		}
		fmt.Fprintln(os.Stderr, u.Success("Schema written to: "+schemaOutputFile))
	} else {
		fmt.Print(string(content))
	}
}
