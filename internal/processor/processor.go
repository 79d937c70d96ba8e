// Package processor defines the Processor interface and the pool operation
// processors built on it.
//
// A processor receives a checked request bound to its ledger transaction and
// applies the operation: curve math over live balances, then custody transfers
// through the token service. Processors record metrics as they go.
package processor

import (
	"context"

	"github.com/lugondev/go-cpamm/internal/metrics"
)

// Processor defines the interface for processing a request.
//
// Implementations of this interface handle specific types of data and can record
// metrics during processing. The type parameter T specifies the input data type.
type Processor[T any] interface {
	// Process handles the given data.
	// The context is used for cancellation and timeouts.
	// The metrics collection is used for recording performance metrics.
	Process(ctx context.Context, data T, metrics *metrics.Collection) error
}

// ProcessorFunc is a function type that implements the Processor interface.
// It allows using functions as processors without creating a new type.
type ProcessorFunc[T any] func(ctx context.Context, data T, metrics *metrics.Collection) error

// Process implements the Processor interface.
func (f ProcessorFunc[T]) Process(ctx context.Context, data T, metrics *metrics.Collection) error {
	return f(ctx, data, metrics)
}

// ErrorHandlingProcessor wraps a processor with an error hook. The hook sees
// every failure and returns the error to report.
type ErrorHandlingProcessor[T any] struct {
	processor    Processor[T]
	errorHandler func(error) error
}

// NewErrorHandlingProcessor creates a new ErrorHandlingProcessor.
func NewErrorHandlingProcessor[T any](processor Processor[T], errorHandler func(error) error) *ErrorHandlingProcessor[T] {
	return &ErrorHandlingProcessor[T]{
		processor:    processor,
		errorHandler: errorHandler,
	}
}

// Process calls the wrapped processor and handles any errors.
func (e *ErrorHandlingProcessor[T]) Process(ctx context.Context, data T, metrics *metrics.Collection) error {
	err := e.processor.Process(ctx, data, metrics)
	if err != nil && e.errorHandler != nil {
		return e.errorHandler(err)
	}
	return err
}
