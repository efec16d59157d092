package builder

import "errors"

var (
	// ErrNoInput is returned when no descriptor file was given.
	ErrNoInput = errors.New("no input descriptor")

	// ErrUnknownBackend is returned for a backend name no generator claims.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrEmptyMap is returned when validation leaves no register to
	// generate code for.
	ErrEmptyMap = errors.New("no valid registers in map")
)
