package model

import "errors"

// Sentinel kinds for model parsing and validation.
var (
	ErrUnknownCategory  = errors.New("unknown player category")
	ErrUnknownRole      = errors.New("unknown role")
	ErrRatingOutOfRange = errors.New("rating out of range")
)
