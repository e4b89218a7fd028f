package apperror

import "errors"

var (
	ErrNotFound         = errors.New("session not found")
	ErrInvalidConfig    = errors.New("invalid session config")
	ErrOutOfRange       = errors.New("mark index out of range")
	ErrTransportFailure = errors.New("transport failure")
)
