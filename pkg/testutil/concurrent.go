package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	dErrors "salesgate/pkg/domain-errors"
	"salesgate/pkg/platform/sentinel"
)

// ConcurrentResult counts outcomes of a RunConcurrent call.
type ConcurrentResult struct {
	Successes int32
	Conflicts int32
	NotFounds int32
	Errors    int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Conflicts + r.NotFounds + r.Errors
}

// RunConcurrent starts n goroutines that call fn together once all of them
// are ready. A conflict is sentinel.ErrAlreadyExists or an active-session
// refusal; a not-found is sentinel.ErrNotFound.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg    sync.WaitGroup
		ready sync.WaitGroup
		start = make(chan struct{})

		successes, conflicts, notFounds, errs atomic.Int32
	)
	ready.Add(n)
	for i := range n {
		wg.Go(func() {
			ready.Done()
			<-start
			switch err := fn(i); {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyExists),
				dErrors.HasCode(err, dErrors.CodeActiveSessionConflict):
				conflicts.Add(1)
			case errors.Is(err, sentinel.ErrNotFound):
				notFounds.Add(1)
			default:
				errs.Add(1)
			}
		})
	}
	ready.Wait()
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Conflicts: conflicts.Load(),
		NotFounds: notFounds.Load(),
		Errors:    errs.Load(),
	}
}
