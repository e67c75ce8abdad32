// Package storage defines the analytics event store contract shared by the
// memory, postgres and clickhouse implementations.
package storage

import "errors"

var (
	// ErrDuplicateKey is returned when an event id was already stored.
	// Events are never updated in place.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when an event is missing a required field.
	ErrInvalidInput = errors.New("invalid input")
)
