package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingCredentials indicates an API key or OAuth secret is not set
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrToolMissing indicates an external binary (ffmpeg, ffprobe) is not in PATH
	ErrToolMissing = errors.New("required tool not found")

	// ErrLocked indicates another run holds the ledger lock
	ErrLocked = errors.New("ledger is locked by another run")
)
