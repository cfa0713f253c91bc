package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// ErrChannelNotFound is wrapped by Platform implementations when the channel
// no longer exists on the platform.
var ErrChannelNotFound = errors.New("channel not found")

// ErrorClass represents whether a platform failure is transient or permanent.
// It is used for logging and metrics only; every failure is handled the same way.
type ErrorClass int

const (
	// ErrorClassRetryable indicates a transient failure (rate limit, network, 5xx).
	ErrorClassRetryable ErrorClass = iota
	// ErrorClassFatal indicates a failure that will not go away by itself (permissions, not found).
	ErrorClassFatal
	// ErrorClassUnknown indicates the error type cannot be determined.
	ErrorClassUnknown
)

// String returns a human-readable name for the error class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassRetryable:
		return "retryable"
	case ErrorClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// PlatformError wraps a failure returned by the Platform with the operation
// and the channel or member it was about.
type PlatformError struct {
	Op     string
	Target string
	Class  ErrorClass
	Err    error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

func wrapPlatformError(op, target string, err error) *PlatformError {
	return &PlatformError{Op: op, Target: target, Class: ClassifyError(err), Err: err}
}

// httpStatus matches the status discordgo puts at the front of REST errors.
var httpStatus = regexp.MustCompile(`\bHTTP (\d{3})\b`)

// ClassifyError classifies a platform error into retryable vs fatal.
//
// REST errors carrying an HTTP status are classified by it: 429 and 5xx are
// retryable, other 4xx are fatal. Otherwise:
//   - ErrChannelNotFound, "unknown channel", "missing permissions": fatal
//   - context deadline, timeouts, connection reset/refused, EOF: retryable
//
// Anything else is ErrorClassUnknown.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}
	if errors.Is(err, ErrChannelNotFound) {
		return ErrorClassFatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassRetryable
	}

	msg := err.Error()
	if m := httpStatus.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		switch {
		case code == http.StatusTooManyRequests, code >= 500:
			return ErrorClassRetryable
		case code >= 400:
			return ErrorClassFatal
		}
	}

	lower := strings.ToLower(msg)

	fatalPatterns := []string{
		"unauthorized",
		"forbidden",
		"missing permissions",
		"missing access",
		"unknown channel",
		"unknown member",
		"unknown guild",
	}
	for _, pattern := range fatalPatterns {
		if strings.Contains(lower, pattern) {
			return ErrorClassFatal
		}
	}

	retryablePatterns := []string{
		"too many requests",
		"rate limit",
		"service unavailable",
		"bad gateway",
		"timeout",
		"connection reset",
		"connection refused",
		"broken pipe",
		"eof",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(lower, pattern) {
			return ErrorClassRetryable
		}
	}

	return ErrorClassUnknown
}
