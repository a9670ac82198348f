package replay

import "errors"

// Sentinel error kinds for this package.
var (
	ErrScript    = errors.New("invalid sale script")
	ErrUnhealthy = errors.New("service health check failed")
	ErrRequest   = errors.New("request failed")
)
