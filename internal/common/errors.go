package common

import "errors"

var (
	// ErrInvalidInput is returned when a recipient list or member id is unusable.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownMessageType is returned when a type name has no lookup row.
	ErrUnknownMessageType = errors.New("unknown message type")

	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the acting member takes no part in the requested messages.
	ErrForbidden = errors.New("forbidden")
)
