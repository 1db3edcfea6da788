package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFileNotFound    = errors.New("file does not exist")
	ErrFileUnreadable  = errors.New("file is not readable")
	ErrNoStrategies    = errors.New("no strategies registered")
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrInvalidCriteria = errors.New("invalid selection criteria")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrResourceDenied  = errors.New("allocation denied by memory governor")
	ErrCacheClosed     = errors.New("cache is closed")
	ErrArchiveDisabled = errors.New("run archive is disabled")
)

// ResourceDeniedError reports why the memory governor refused an allocation.
type ResourceDeniedError struct {
	Strategy    string
	EstimatedMB float64
	Priority    Priority
	Reason      string
}

func (e *ResourceDeniedError) Error() string {
	return fmt.Sprintf("%s denied %.0fMB at %s priority: %s", e.Strategy, e.EstimatedMB, e.Priority, e.Reason)
}

func (e *ResourceDeniedError) Unwrap() error {
	return ErrResourceDenied
}

// StrategyError ties a failure to the strategy that produced it.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e StrategyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e StrategyError) Unwrap() error {
	return e.Err
}

// AllStrategiesFailedError aggregates every per-strategy error from an
// exhausted fallback chain.
type AllStrategiesFailedError struct {
	Path   string
	Errors []StrategyError
}

func (e *AllStrategiesFailedError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, se := range e.Errors {
		parts[i] = se.Error()
	}
	return fmt.Sprintf("all strategies failed for %s: %s", e.Path, strings.Join(parts, "; "))
}

// Unwrap exposes the underlying errors to errors.Is and errors.As.
func (e *AllStrategiesFailedError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, se := range e.Errors {
		errs[i] = se
	}
	return errs
}
