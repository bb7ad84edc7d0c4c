// Package gopool wraps a shared ants worker pool so tests and tooling can
// fan work out across goroutines without paying per-call goroutine setup
// cost. It is used by the cache's concurrency property tests to launch
// bursts of interpreter-like readers against a single entry.
package gopool

import (
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

var (
	defaultPool, _   = ants.NewPool(ants.DefaultAntsPoolSize, ants.WithExpiryDuration(10*time.Second))
	minNumberPerTask = 5
)

// Submit submits a task to the shared pool.
func Submit(task func()) error {
	return defaultPool.Submit(task)
}

// Running returns the number of currently running goroutines.
func Running() int {
	return defaultPool.Running()
}

// Cap returns the capacity of the shared pool.
func Cap() int {
	return defaultPool.Cap()
}

// Threads picks a goroutine count for tasks independent chunks of work,
// capped at NumCPU so fan-out doesn't oversubscribe small machines.
func Threads(tasks int) int {
	threads := tasks / minNumberPerTask
	if threads > runtime.NumCPU() {
		threads = runtime.NumCPU()
	} else if threads == 0 {
		threads = 1
	}
	return threads
}

// Fan runs fn n times concurrently on the shared pool and blocks until every
// invocation has returned. Each invocation receives its own index, which
// callers use to vary reader/writer behavior across the fleet.
func Fan(n int, fn func(i int)) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		err := Submit(func() {
			defer wg.Done()
			fn(i)
		})
		if err != nil {
			// Pool momentarily saturated; fall back to a plain goroutine
			// rather than dropping the task.
			go func() {
				defer wg.Done()
				fn(i)
			}()
		}
	}
	wg.Wait()
}
