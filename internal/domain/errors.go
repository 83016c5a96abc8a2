package domain

import "errors"

var (
	// ErrInvalidArgument signals a request outside the accepted bounds (radius, coordinates, fields).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStoreUnavailable signals a failed read against the backing record store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEncoding signals a spatial key that cannot be produced or parsed.
	// Reaching it means validation was bypassed upstream.
	ErrEncoding = errors.New("spatial key encoding error")

	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict signals a resource in a state that rules the operation out.
	ErrConflict = errors.New("conflict")
	// ErrForbidden signals that the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrDescriberError signals a description provider failure.
	ErrDescriberError = errors.New("description provider error")
)
