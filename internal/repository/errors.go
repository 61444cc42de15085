package repository

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conditional update matched no rows
	// because the row was not in the expected prior state.
	ErrConflict = errors.New("conflicting state")
)
