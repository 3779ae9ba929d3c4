package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDataAccess indicates a storage read or write failure.
	ErrDataAccess = errors.New("data access failed")
)
