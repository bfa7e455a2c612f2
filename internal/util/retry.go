package util

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts, including the first
	InitialWait time.Duration // Doubled after every failed attempt
	MaxWait     time.Duration // Upper bound for a single wait
}

// DefaultRetryConfig returns the default retry configuration used for
// ledger and archive file operations
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     5 * time.Second,
	}
}

var retryableErrnos = []syscall.Errno{
	syscall.EAGAIN,
	syscall.EBUSY,
	syscall.ETIMEDOUT,
	syscall.ECONNRESET,
	syscall.ECONNREFUSED,
	syscall.ENETUNREACH,
	syscall.EHOSTUNREACH,
	syscall.EIO,
}

var transientPatterns = []string{
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"broken pipe",
	"temporary failure",
	"resource temporarily unavailable",
	"i/o error",
}

// IsRetryableError reports whether err looks like a transient filesystem or
// network failure worth another attempt
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		for _, e := range retryableErrnos {
			if errno == e {
				return true
			}
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// RetryWithBackoff runs operation until it succeeds, fails with a
// non-retryable error, or MaxAttempts is reached
func RetryWithBackoff[T any](cfg *RetryConfig, operation func() (T, error), operationName string) (T, error) {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}

	var (
		result T
		err    error
		wait   = cfg.InitialWait
	)
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err = operation()
		if err == nil {
			if attempt > 1 {
				DebugLog("Retry: %s succeeded on attempt %d/%d", operationName, attempt, cfg.MaxAttempts)
			}
			return result, nil
		}
		if !IsRetryableError(err) {
			return result, err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		DebugLog("Retry: %s failed (attempt %d/%d), retrying in %v: %v",
			operationName, attempt, cfg.MaxAttempts, wait, err)
		time.Sleep(wait)
		wait *= 2
		if wait > cfg.MaxWait {
			wait = cfg.MaxWait
		}
	}

	WarnLog("Retry: %s failed after %d attempts: %v", operationName, cfg.MaxAttempts, err)
	return result, fmt.Errorf("max retries exceeded (%d attempts): %w", cfg.MaxAttempts, err)
}

// Retry is RetryWithBackoff for operations without a result
func Retry(cfg *RetryConfig, operation func() error, operationName string) error {
	_, err := RetryWithBackoff(cfg, func() (struct{}, error) {
		return struct{}{}, operation()
	}, operationName)
	return err
}

// RetryableRename renames a file with retry logic
func RetryableRename(oldpath, newpath string, cfg *RetryConfig) error {
	return Retry(cfg, func() error {
		return os.Rename(oldpath, newpath)
	}, fmt.Sprintf("rename(%s -> %s)", oldpath, newpath))
}

// RetryableMkdirAll creates a directory with retry logic
func RetryableMkdirAll(path string, perm os.FileMode, cfg *RetryConfig) error {
	return Retry(cfg, func() error {
		return os.MkdirAll(path, perm)
	}, fmt.Sprintf("mkdir(%s)", path))
}
