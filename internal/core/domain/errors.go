package domain

import "errors"

var (
	// ErrProviderUnavailable means registration with a location provider never succeeded.
	ErrProviderUnavailable = errors.New("location provider unavailable")
	// ErrProviderDisconnected means the provider terminated a registration abnormally.
	ErrProviderDisconnected = errors.New("location provider disconnected")

	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
)
