package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrStopped  = errors.New("worker stopped")
	ErrJobPanic = errors.New("pool job panicked")
)
