package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/okian/bazaar/pkg/logger"
	"github.com/okian/bazaar/pkg/metrics"
)

// Pool runs independent read-only jobs on a bounded number of goroutines.
// It satisfies recommend.Executor.
type Pool struct {
	size   int
	logger logger.Logger
}

// NewPool creates a pool; size < 1 means runtime.NumCPU().
func NewPool(size int, opts ...PoolOption) *Pool {
	if size < 1 {
		size = runtime.NumCPU()
	}
	p := &Pool{size: size, logger: logger.Get().Named("pool")}
	for _, opt := range opts {
		opt(p)
	}
	metrics.UpdatePoolWorkers(size)
	return p
}

// Size returns the number of goroutines used per Map call.
func (p *Pool) Size() int { return p.size }

// Map runs fn for every index in [0, n) and returns one error slot per
// job. A panicking job yields ErrJobPanic in its slot; jobs not started
// before ctx is done get ctx.Err().
func (p *Pool) Map(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range min(p.size, n) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = p.run(ctx, i, fn)
			}
		}()
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			for j := i; j < n; j++ {
				errs[j] = err
			}
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return errs
}

func (p *Pool) run(ctx context.Context, i int, fn func(ctx context.Context, i int) error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: job %d: %v", ErrJobPanic, i, v)
			metrics.RecordPoolJob(true)
			p.logger.Error(ctx, "pool job panicked", logger.Int("job", i), logger.Any("panic", v))
		}
	}()
	err = fn(ctx, i)
	metrics.RecordPoolJob(false)
	return err
}
