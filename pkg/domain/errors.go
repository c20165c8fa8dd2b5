package domain

import "errors"

// Common domain errors
var (
	// ErrNotFound is returned when a referenced reservation, round, transaction
	// or webhook does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when trying to create a resource that already exists
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrInvalidState is returned when an operation targets an entity in a
	// terminal or incompatible state (e.g. charging an assigned reservation).
	ErrInvalidState = errors.New("invalid state")
	// ErrAdapterFailure is returned when the payment provider call failed or
	// answered with an unexpected shape.
	ErrAdapterFailure = errors.New("payment provider failure")
	// ErrInvalidSignature is returned when a webhook could not be authenticated.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInvalidPayload is returned when a webhook could not be parsed or recognized.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrUnauthorized is returned when a caller is not allowed to trigger an operation.
	ErrUnauthorized = errors.New("unauthorized")
)
