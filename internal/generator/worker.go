package generator

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/willfong/card-spend/internal/models"
)

// GetWorkerCount returns the number of workers to use.
// If configured workers is 0, auto-detects using runtime.NumCPU().
func GetWorkerCount(configured int) int {
	if configured > 0 {
		return configured
	}
	cpus := runtime.NumCPU()
	if cpus < 1 {
		return 1
	}
	return cpus
}

// monthResult holds one month's expansion; results are kept by month index
// so reassembly does not depend on completion order.
type monthResult struct {
	records []models.DetailedRecord
	stats   ExpansionStats
}

// runMonthPool runs fn for every index in [0, n) on a fixed pool of workers
// with fail-fast cancellation: the first error stops the remaining months.
func runMonthPool(
	ctx context.Context,
	n, workerCount int,
	progress func(done, total int),
	fn func(i int) ([]models.DetailedRecord, ExpansionStats, error),
) ([]monthResult, error) {
	if workerCount > n {
		workerCount = n
	}
	if workerCount < 1 {
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]monthResult, n)
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		done     int
	)

	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}

				records, stats, err := fn(i)

				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = fmt.Errorf("month %d: %w", i, err)
					}
					mu.Unlock()
					cancel()
					continue
				}
				results[i] = monthResult{records: records, stats: stats}
				done++
				if progress != nil {
					progress(done, n)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		// Parent context was cancelled
		return nil, err
	}
	return results, nil
}
