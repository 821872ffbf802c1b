package sentinel

import "errors"

// Sentinel dependency errors. Stores return these (optionally wrapped)
// so services can translate them into domain errors exactly once.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrAlreadyUsed   = errors.New("already used")
	ErrInvalidState  = errors.New("invalid state")
	ErrExpired       = errors.New("expired")
	ErrUnavailable   = errors.New("unavailable")
)
