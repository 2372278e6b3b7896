package generator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoTableFiles is returned when a table has no CSV file in a dataset directory.
var ErrNoTableFiles = errors.New("no CSV files found")

// TableFiles returns the files holding table in dir, in load order.
//
// When m is non-nil the files it lists are the table; anything else on disk
// belongs to another run and is ignored. Without a manifest the directory is
// searched: the single file first (.csv.xz before .csv), then year shards.
func TableFiles(dir, table string, m *Manifest) ([]string, error) {
	if m != nil {
		var files []string
		for _, f := range m.Files {
			if f.Table != table {
				continue
			}
			p := filepath.Join(dir, f.Path)
			if _, err := os.Stat(p); err != nil {
				return nil, fmt.Errorf("%s lists %s: %w", ManifestFile, f.Path, err)
			}
			files = append(files, p)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("%w for %s in %s (not listed in %s)", ErrNoTableFiles, table, dir, ManifestFile)
		}
		return files, nil
	}

	for _, ext := range []string{".csv.xz", ".csv"} {
		p := filepath.Join(dir, table+ext)
		if _, err := os.Stat(p); err == nil {
			return []string{p}, nil
		}
	}
	shards, err := FindShardedFiles(dir, table)
	if err != nil {
		return nil, err
	}
	if len(shards) == 0 {
		return nil, fmt.Errorf("%w for %s in %s", ErrNoTableFiles, table, dir)
	}
	return shards, nil
}

// tableOutputs lists every file in dir that could hold table: both
// extensions of the single file and of every year shard.
func tableOutputs(dir, table string) ([]string, error) {
	var out []string
	for _, ext := range []string{".csv", ".csv.xz"} {
		p := filepath.Join(dir, table+ext)
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	matches, err := filepath.Glob(filepath.Join(dir, table+"_*.csv*"))
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		year, ok := ShardYear(m)
		if !ok {
			continue
		}
		base := filepath.Base(m)
		if name := ShardFilename(table, year); base == name+".csv" || base == name+".csv.xz" {
			out = append(out, m)
		}
	}
	return out, nil
}

// removeStale deletes outputs of the given tables that this run did not
// write, such as an unsharded file left behind by an earlier run.
func (o *Orchestrator) removeStale(tables []string, keep []ManifestEntry) {
	kept := make(map[string]bool, len(keep))
	for _, e := range keep {
		kept[e.Path] = true
	}
	for _, table := range tables {
		paths, err := tableOutputs(o.config.OutputDir, table)
		if err != nil {
			o.log.Warn().Err(err).Str("table", table).Msg("failed to list previous outputs")
			continue
		}
		for _, p := range paths {
			if kept[filepath.Base(p)] {
				continue
			}
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				o.log.Warn().Err(err).Str("path", p).Msg("failed to remove stale output")
				continue
			}
			o.log.Info().Str("path", p).Msg("removed output of a previous run")
		}
	}
}
