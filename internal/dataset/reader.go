// Package dataset reads a generated dataset back into memory.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/willfong/card-spend/internal/generator"
	"github.com/willfong/card-spend/internal/models"
)

// Dataset is a loaded pair of tables plus the run manifest when present.
type Dataset struct {
	Dir      string
	Monthly  []models.MonthlyRecord
	Detailed []models.DetailedRecord
	Manifest *generator.Manifest // nil when manifest.yaml is absent
	Files    []string
}

// Options controls Load.
type Options struct {
	Logger zerolog.Logger
	// Skip the detailed table
	MonthlyOnly bool
}

// Load reads the monthly table and the detailed table (single file or year
// shards, plain or xz-compressed) from dir. When manifest.yaml is present
// only the files it lists are read. A missing detailed table leaves
// Detailed empty.
func Load(ctx context.Context, dir string, opts Options) (*Dataset, error) {
	log := opts.Logger
	ds := &Dataset{Dir: dir}

	m, err := generator.ReadManifest(dir)
	switch {
	case err == nil:
		ds.Manifest = m
	case errors.Is(err, os.ErrNotExist):
		log.Debug().Str("dir", dir).Msg("no manifest, searching for table files")
	default:
		log.Warn().Err(err).Msg("ignoring unreadable manifest")
	}

	monthlyPaths, err := generator.TableFiles(dir, generator.MonthlyTable, ds.Manifest)
	if err != nil {
		return nil, err
	}
	for _, p := range monthlyPaths {
		records, err := readFile(p, ReadMonthly)
		if err != nil {
			return nil, err
		}
		ds.Monthly = append(ds.Monthly, records...)
		ds.Files = append(ds.Files, p)
		log.Debug().Str("path", p).Int("rows", len(records)).Msg("read monthly table")
	}

	if opts.MonthlyOnly {
		return ds, nil
	}

	paths, err := generator.TableFiles(dir, generator.DetailedTable, ds.Manifest)
	if errors.Is(err, generator.ErrNoTableFiles) {
		log.Info().Str("dir", dir).Msg("dataset has no detailed table")
		return ds, nil
	}
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, err := readFile(p, ReadDetailed)
		if err != nil {
			return nil, err
		}
		ds.Detailed = append(ds.Detailed, records...)
		ds.Files = append(ds.Files, p)
		log.Debug().Str("path", p).Int("rows", len(records)).Msg("read detailed table")
	}

	return ds, nil
}

// readFile opens path, decompressing .xz, and parses it with parse.
func readFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	var r io.ReadCloser
	var err error
	if strings.HasSuffix(path, ".xz") {
		r, err = generator.OpenXZ(path)
	} else {
		r, err = os.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	records, parseErr := parse(r)
	closeErr := r.Close()
	if parseErr != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), parseErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), closeErr)
	}
	return records, nil
}

// ReadMonthly parses a monthly table. Empty growth cells become nil.
func ReadMonthly(r io.Reader) ([]models.MonthlyRecord, error) {
	cr, err := newReader(r, models.MonthlyColumns)
	if err != nil {
		return nil, err
	}

	var records []models.MonthlyRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		p := rowParser{row: row, line: line}
		d := p.dateAt(0)
		rec := models.NewMonthlyRecord(d)
		rec.Quarter = row[3]
		rec.ActiveCardsMillions = p.floatAt(4)
		rec.AvgMonthlySpendINR = p.floatAt(5)
		rec.SeasonalFactor = p.floatAt(6)
		rec.TotalSpendingBillionINR = p.floatAt(7)
		rec.YoYGrowthSpending = p.optFloatAt(8)
		rec.MoMGrowthSpending = p.optFloatAt(9)
		rec.CardsGrowthYoY = p.optFloatAt(10)
		rec.SpendPerCardGrowthYoY = p.optFloatAt(11)
		year, month := p.intAt(1), p.intAt(2)
		if p.err != nil {
			return nil, p.err
		}
		if year != rec.Year || month != rec.Month {
			return nil, fmt.Errorf("line %d: year/month %d-%d do not match date %s", line, year, month, row[0])
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadDetailed parses a detailed table.
func ReadDetailed(r io.Reader) ([]models.DetailedRecord, error) {
	cr, err := newReader(r, models.DetailedColumns)
	if err != nil {
		return nil, err
	}

	var records []models.DetailedRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		p := rowParser{row: row, line: line}
		rec := models.DetailedRecord{
			Date:                       p.dateAt(0),
			Year:                       p.intAt(1),
			Month:                      p.intAt(2),
			Category:                   row[3],
			City:                       row[4],
			AgeGroup:                   row[5],
			Gender:                     row[6],
			CardType:                   row[7],
			SpendingAmountThousandsINR: p.floatAt(8),
			TransactionCount:           p.int64At(9),
			AvgTransactionAmountINR:    p.floatAt(10),
		}
		if p.err != nil {
			return nil, p.err
		}
		records = append(records, rec)
	}
	return records, nil
}

// newReader reads and checks the header row.
func newReader(r io.Reader, columns []string) (*csv.Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(columns)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: expected header %s", strings.Join(columns, ","))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, col := range columns {
		if strings.TrimPrefix(header[i], "\ufeff") != col {
			return nil, fmt.Errorf("unexpected header: column %d is %q, expected %q", i+1, header[i], col)
		}
	}
	return cr, nil
}

// rowParser keeps the first conversion error so a row can be decoded
// field by field without checking each one.
type rowParser struct {
	row  []string
	line int
	err  error
}

func (p *rowParser) fail(col int, kind string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("line %d, column %d: invalid %s %q: %w", p.line, col+1, kind, p.row[col], err)
	}
}

func (p *rowParser) dateAt(col int) time.Time {
	t, err := time.Parse(generator.DateLayout, p.row[col])
	if err != nil {
		p.fail(col, "date", err)
	}
	return t
}

func (p *rowParser) intAt(col int) int {
	v, err := strconv.Atoi(p.row[col])
	if err != nil {
		p.fail(col, "integer", err)
	}
	return v
}

func (p *rowParser) int64At(col int) int64 {
	v, err := strconv.ParseInt(p.row[col], 10, 64)
	if err != nil {
		p.fail(col, "integer", err)
	}
	return v
}

func (p *rowParser) floatAt(col int) float64 {
	v, err := strconv.ParseFloat(p.row[col], 64)
	if err != nil {
		p.fail(col, "number", err)
	}
	return v
}

func (p *rowParser) optFloatAt(col int) *float64 {
	s := p.row[col]
	if s == "" || strings.EqualFold(s, "nan") || s == `\N` {
		return nil
	}
	v := p.floatAt(col)
	return &v
}
