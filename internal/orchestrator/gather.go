package orchestrator

import (
	"context"
	"sync"
)

// branch is one unit of a concurrent fan-out.
type branch[T any] struct {
	name string
	run  func(context.Context) (T, error)
}

// branchError pairs a failed branch with its error, for logging only.
type branchError struct {
	name string
	err  error
}

// gather runs all branches concurrently and joins them without
// short-circuiting: a failed branch contributes nothing and its error is
// collected, but every sibling still completes. Results come back in branch
// order regardless of completion order.
func gather[T any](ctx context.Context, branches []branch[T]) ([]T, []branchError) {
	type slot struct {
		value T
		err   error
	}
	slots := make([]slot, len(branches))

	var wg sync.WaitGroup
	for i, b := range branches {
		wg.Add(1)
		go func(i int, b branch[T]) {
			defer wg.Done()
			slots[i].value, slots[i].err = b.run(ctx)
		}(i, b)
	}
	wg.Wait()

	results := make([]T, 0, len(branches))
	var errs []branchError
	for i, s := range slots {
		if s.err != nil {
			errs = append(errs, branchError{name: branches[i].name, err: s.err})
			continue
		}
		results = append(results, s.value)
	}
	return results, errs
}
