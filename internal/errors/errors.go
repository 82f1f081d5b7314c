// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	// ErrInsufficientFunds is returned when a balance debit would drive the
	// balance negative. An entry fill that hits this is deferred, not failed.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicatePosition is returned when an active position already
	// exists for the same (owner, symbol) pair.
	ErrDuplicatePosition = errors.New("active position already exists")

	// ErrPositionNotFound is returned when no active position exists for
	// the requested (owner, symbol) pair.
	ErrPositionNotFound = errors.New("position not found")

	// ErrCannotDeleteWhileHolding is returned when a delete is attempted
	// on a position that has already filled.
	ErrCannotDeleteWhileHolding = errors.New("cannot delete position while holding")

	// ErrConflict is returned when a compare-and-set transition observes a
	// state other than the expected one. Callers treat it as "already
	// handled by someone else" and do not retry.
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrNoData is returned by price feeds when no quote is available for
	// a symbol. Transient; the engine skips the symbol for the cycle.
	ErrNoData = errors.New("no price data")

	ErrInvalidArgument = errors.New("invalid argument")
	ErrConfigInvalid   = errors.New("invalid configuration")
)

// FeedError represents an error from a price feed.
type FeedError struct {
	Symbol  string
	Message string
	Err     error
}

func (e *FeedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feed error [%s]: %s: %v", e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("feed error [%s]: %s", e.Symbol, e.Message)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// NewFeedError creates a new FeedError.
func NewFeedError(symbol, message string, err error) *FeedError {
	return &FeedError{
		Symbol:  symbol,
		Message: message,
		Err:     err,
	}
}

// StoreError represents a storage failure. The engine logs these and
// continues the cycle; the unmodified position is reprocessed next tick.
type StoreError struct {
	Op      string
	Key     string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store error [%s] %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("store error [%s]: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, key string, err error) *StoreError {
	return &StoreError{
		Op:  op,
		Key: key,
		Err: err,
	}
}

// ValidationError represents a validation error on a command argument.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
