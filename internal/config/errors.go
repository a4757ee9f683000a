package config

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("config: invalid")
	ErrLoadConfig    = errors.New("config: load failed")
)
