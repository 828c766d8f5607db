// File: internal/agent/errors.go
package agent

import (
	"context"
	"errors"
)

// ErrorCode identifies a failure class in logs and step observations so the
// oracle can pick a recovery strategy.
type ErrorCode string

const (
	CodeElementNotFound   ErrorCode = "ELEMENT_NOT_FOUND"
	CodeNavigationError   ErrorCode = "NAVIGATION_ERROR"
	CodeTimeout           ErrorCode = "TIMEOUT_ERROR"
	CodeOracleUnavailable ErrorCode = "ORACLE_UNAVAILABLE"
	CodeExecutionFailure  ErrorCode = "EXECUTION_FAILURE"
)

// ErrElementNotFound signals a selector that matched nothing after waiting.
var ErrElementNotFound = errors.New("element not found")

// ErrNavigation signals an unreachable or failed page load.
var ErrNavigation = errors.New("navigation failed")

// CodeOf maps an error to its ErrorCode.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrElementNotFound):
		return CodeElementNotFound
	case errors.Is(err, ErrNavigation):
		return CodeNavigationError
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	default:
		return CodeExecutionFailure
	}
}
