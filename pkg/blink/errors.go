package blink

import "errors"

// ErrInvalidSensitivity is returned when a sensitivity update is inconsistent.
var ErrInvalidSensitivity = errors.New("blink: invalid sensitivity")
