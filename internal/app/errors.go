package service

import (
	"errors"
	"fmt"

	"github.com/okian/bazaar/internal/adapters/mq/queue"
)

// Sentinel error kinds for this package.
var (
	// ErrNotStarted is returned for mutations submitted before Start or
	// after Stop. It also matches queue.ErrClosed.
	ErrNotStarted = fmt.Errorf("service not started: %w", queue.ErrClosed)

	ErrTeamCount = errors.New("roster team count does not match configuration")
	ErrSink      = errors.New("export sink setup failed")
)
