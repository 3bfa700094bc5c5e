package datastore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
)

// Sentinel errors for store operations.
var (
	// ErrSpeciesNotFound indicates the requested species does not exist.
	ErrSpeciesNotFound = errors.NewStd("species not found")

	// ErrLocationNotFound indicates the requested survey location does not exist.
	ErrLocationNotFound = errors.NewStd("location not found")

	// ErrNotInitialized indicates the store has no database connection.
	ErrNotInitialized = errors.NewStd("database connection is not initialized")
)

const componentDatastore = "datastore"

// notFoundError wraps a sentinel with the looked-up key.
func notFoundError(sentinel error, operation string, key any) error {
	return errors.New(fmt.Errorf("%w: %v", sentinel, key)).
		Component(componentDatastore).
		Category(errors.CategoryNotFound).
		Context("operation", operation).
		Build()
}

// dbError wraps a storage failure. Cancellation is kept distinct so it is not
// reported as a database fault.
func dbError(err error, operation, table string) error {
	category := errors.CategoryDatabase
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		category = errors.CategoryCancellation
	}
	return errors.New(fmt.Errorf("%s %s: %w", operation, table, err)).
		Component(componentDatastore).
		Category(category).
		Context("operation", operation).
		Context("table", table).
		Build()
}

// isRecordNotFound hides the GORM sentinel from callers.
func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
