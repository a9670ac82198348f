package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrClosed   = errors.New("queue closed")
	ErrFull     = errors.New("queue full")
	ErrNoReply  = errors.New("command has no reply channel")
	ErrBadKind  = errors.New("unknown command kind")
	ErrCanceled = errors.New("command canceled")
)
