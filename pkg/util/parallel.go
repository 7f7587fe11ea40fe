package util

import (
	"context"
	"errors"
	"sync"
)

// Parallel runs fn over inputs with at most workerLimit calls in flight.
// Every input is processed even if some fail; the failures are joined.
// Inputs not yet started when ctx is cancelled are skipped and ctx.Err() is
// included in the result.
func Parallel[T any](ctx context.Context, inputs []T, workerLimit int, fn func(context.Context, T) error) error {
	if len(inputs) == 0 {
		return nil
	}

	if workerLimit <= 0 {
		workerLimit = 1
	}
	if workerLimit > len(inputs) {
		workerLimit = len(inputs)
	}

	tasks := make(chan T)

	var (
		mu   sync.Mutex
		errs []error
	)

	// workers
	wg := sync.WaitGroup{}
	for i := 0; i < workerLimit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range tasks {
				if err := fn(ctx, item); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}()
	}

	// feed tasks
	var feedErr error
	func() {
		defer close(tasks)
		for _, item := range inputs {
			select {
			case <-ctx.Done():
				feedErr = ctx.Err()
				return
			case tasks <- item:
			}
		}
	}()

	wg.Wait()

	if feedErr != nil {
		errs = append(errs, feedErr)
	}
	return errors.Join(errs...)
}
