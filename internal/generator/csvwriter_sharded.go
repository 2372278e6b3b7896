package generator

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// ShardFilename returns the per-year shard name for a table.
// Example: ShardFilename("detailed_spending", 2021) returns "detailed_spending_2021"
func ShardFilename(basename string, year int) string {
	return fmt.Sprintf("%s_%04d", basename, year)
}

// NewShardedCSVWriter creates a CSVWriter for one year shard of a table.
func NewShardedCSVWriter(cfg CSVWriterConfig, year int) (*CSVWriter, error) {
	cfg.Filename = ShardFilename(cfg.Filename, year)
	return NewCSVWriter(cfg)
}

var shardYearPattern = regexp.MustCompile(`_(\d{4})\.csv(\.xz)?$`)

// ShardYear extracts the year from a shard path; ok is false for a path that
// is not a year shard.
func ShardYear(path string) (year int, ok bool) {
	m := shardYearPattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return y, true
}

// FindShardedFiles returns basename_YYYY.csv and basename_YYYY.csv.xz files
// sorted by year. A year present in both forms is returned once, preferring
// the compressed file.
func FindShardedFiles(inputDir, basename string) ([]string, error) {
	patterns := []string{
		filepath.Join(inputDir, basename+"_*.csv.xz"),
		filepath.Join(inputDir, basename+"_*.csv"),
	}

	byYear := make(map[int]string)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob error for pattern %s: %w", pattern, err)
		}
		for _, m := range matches {
			year, ok := ShardYear(m)
			if !ok {
				continue
			}
			if _, seen := byYear[year]; !seen {
				byYear[year] = m
			}
		}
	}

	if len(byYear) == 0 {
		return nil, nil
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	files := make([]string, len(years))
	for i, y := range years {
		files[i] = byYear[y]
	}
	return files, nil
}

// ShardInfo describes the year shards of one table
type ShardInfo struct {
	Files      []string // Sorted by year
	Years      []int
	Compressed bool // Whether the first shard is .csv.xz
}

// GetShardInfo returns shard details for basename, or nil when none exist.
func GetShardInfo(inputDir, basename string) (*ShardInfo, error) {
	files, err := FindShardedFiles(inputDir, basename)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	years := make([]int, len(files))
	for i, f := range files {
		years[i], _ = ShardYear(f)
	}

	return &ShardInfo{
		Files:      files,
		Years:      years,
		Compressed: filepath.Ext(files[0]) == ".xz",
	}, nil
}
