// Package parallel splits index ranges across CPU cores. Forest fitting,
// cross-validation folds and search candidates all run through it.
package parallel

import (
	"runtime"
	"sync"

	"github.com/approachingml/aamlp/pkg/errors"
)

// Parallelize divides items into contiguous ranges, one per CPU core, and
// runs fn(start, end) for each range concurrently.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, runtime.NumCPU(), fn)
}

// ParallelizeN is Parallelize with an explicit worker count. workers <= 0
// means one worker per CPU core.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}

	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially when items <= threshold.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// ForEach calls fn(i) for every i in [0, items) using up to workers
// goroutines (nJobs semantics: <= 0 means all cores, 1 means sequential).
// Panics are recovered into errors. The first error by index is returned.
func ForEach(items, workers int, operation string, fn func(i int) error) error {
	if items <= 0 {
		return nil
	}
	errs := make([]error, items)
	run := func(start, end int) {
		for i := start; i < end; i++ {
			errs[i] = errors.SafeExecute(operation, func() error { return fn(i) })
		}
	}
	if workers == 1 {
		run(0, items)
	} else {
		ParallelizeN(items, workers, run)
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
