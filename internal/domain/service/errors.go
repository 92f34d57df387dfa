package service

import "errors"

// Error definitions shared by all predictor implementations
var (
	// ErrInvalidInput marks request text that is empty, whitespace-only or
	// over the accepted length. It is recoverable and surfaced as a client
	// error.
	ErrInvalidInput = errors.New("invalid input text")

	// ErrModelLoad marks an artifact that is missing, unreadable or
	// structurally inconsistent. It is only ever produced at construction
	// time, never during Predict.
	ErrModelLoad = errors.New("model artifact load failed")
)
