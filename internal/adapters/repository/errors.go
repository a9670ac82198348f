package repository

import "errors"

// Sentinel kinds for export errors.
var (
	ErrNoDSN     = errors.New("postgres dsn not set")
	ErrConnect   = errors.New("connect roster store")
	ErrWriteRows = errors.New("write roster rows")
)
