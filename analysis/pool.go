package analysis

import (
	"context"
	"sync"
)

// runPool executes tasks on up to workers goroutines. Cancellation is
// cooperative: the context is checked before each task is dispatched and
// in-flight tasks always run to completion, so a cancelled run never
// leaves half-written cache entries. Returns the number of tasks that
// were dispatched before cancellation.
func runPool(ctx context.Context, workers int, tasks []func()) int {
	if workers < 1 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	dispatched := 0
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		dispatched++

		go func(run func()) {
			defer wg.Done()
			defer func() { <-sem }()
			run()
		}(task)
	}

	wg.Wait()
	return dispatched
}
