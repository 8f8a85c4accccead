package errors

import "errors"

// Sentinel errors for common pipeline error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoContext indicates that no context chunks were available for a stage
	ErrNoContext = errors.New("no context available")

	// ErrInsufficientContext indicates the retriever found too few chunks
	ErrInsufficientContext = errors.New("insufficient context")

	// ErrParse indicates that a model response could not be parsed
	ErrParse = errors.New("unparseable model output")

	// ErrInternal indicates an internal pipeline error
	ErrInternal = errors.New("internal error")
)
