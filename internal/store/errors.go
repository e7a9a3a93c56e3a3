package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no entry matches the given identifier.
	ErrNotFound = errors.New("entry not found")
	// ErrAlreadyExited is returned when an exit is attempted on an entry
	// that has already left.
	ErrAlreadyExited = errors.New("entry already exited")
	// ErrStorageUnavailable wraps failures of the backing database.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError lists the fields of a request that are missing or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid entry: " + strings.Join(e.Fields, ", ")
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
