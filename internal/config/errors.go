package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig rejects settings no auction can run with. ErrLoadConfig
// wraps every failure to read a layer; the layer kinds below wrap it so
// callers can match either.
var (
	ErrInvalidConfig = errors.New("invalid auction config")
	ErrLoadConfig    = errors.New("config layer could not be read")

	ErrDotEnv     = fmt.Errorf("%w: .env file", ErrLoadConfig)
	ErrConfigFile = fmt.Errorf("%w: yaml file", ErrLoadConfig)
	ErrEnvVars    = fmt.Errorf("%w: environment", ErrLoadConfig)
)
