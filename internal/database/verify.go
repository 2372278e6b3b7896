package database

import (
	"context"
	"fmt"

	"github.com/willfong/card-spend/internal/generator"
)

// TableCount compares a table's row count with the expected count.
// Expected is -1 when unknown.
type TableCount struct {
	Table    string
	Rows     int64
	Expected int64
}

// Match reports whether the count is as expected (or nothing was expected).
func (tc TableCount) Match() bool {
	return tc.Expected < 0 || tc.Rows == tc.Expected
}

// YearTotal is the loaded monthly spending of one year.
type YearTotal struct {
	Year          int
	Months        int
	TotalSpending float64
}

// Verification is the post-import check of the loaded tables.
type Verification struct {
	Tables []TableCount
	Years  []YearTotal
}

// OK reports whether every table count matched.
func (v *Verification) OK() bool {
	for _, t := range v.Tables {
		if !t.Match() {
			return false
		}
	}
	return true
}

// ExpectedRows builds the expected counts from a run manifest, falling back
// to the rows reported by the loads for tables the manifest does not list.
func ExpectedRows(m *generator.Manifest, results []LoadResult) map[string]int64 {
	expected := make(map[string]int64)
	for _, r := range results {
		if r.Err == nil {
			expected[r.Table] = r.Rows
		}
	}
	if m != nil {
		for _, spec := range Tables {
			if rows := m.Rows(spec.Name); rows > 0 {
				expected[spec.Name] = rows
			}
		}
	}
	return expected
}

// Verify counts the rows of each table and totals monthly spending per year.
func Verify(ctx context.Context, pool *Pool, tables []TableSpec, expected map[string]int64) (*Verification, error) {
	v := &Verification{}
	for _, spec := range tables {
		tc := TableCount{Table: spec.Name, Expected: -1}
		if n, ok := expected[spec.Name]; ok {
			tc.Expected = n
		}
		if err := pool.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+spec.Name).Scan(&tc.Rows); err != nil {
			return nil, fmt.Errorf("count %s: %w", spec.Name, err)
		}
		v.Tables = append(v.Tables, tc)
	}

	rows, err := pool.QueryContext(ctx, fmt.Sprintf(
		"SELECT year, COUNT(*), SUM(total_spending_billion_inr) FROM %s GROUP BY year ORDER BY year",
		generator.MonthlyTable))
	if err != nil {
		return nil, fmt.Errorf("yearly totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var y YearTotal
		if err := rows.Scan(&y.Year, &y.Months, &y.TotalSpending); err != nil {
			return nil, fmt.Errorf("yearly totals: %w", err)
		}
		v.Years = append(v.Years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("yearly totals: %w", err)
	}
	return v, nil
}
