package survey

import (
	"fmt"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
)

// Sentinel errors returned by Service operations. Match them with errors.Is.
var (
	// ErrNotFound indicates the referenced species or location does not exist.
	ErrNotFound = errors.NewStd("not found")

	// ErrPageOutOfRange indicates a page index past the last page.
	ErrPageOutOfRange = errors.NewStd("page out of range")

	// ErrParse indicates a malformed external species identifier.
	ErrParse = errors.NewStd("malformed species identifier")

	// ErrConflict indicates a natural key was claimed by a concurrent writer
	// whose row is not yet visible.
	ErrConflict = errors.NewStd("conflicting concurrent write")

	// ErrInvalidInput indicates arguments the service refuses to act on.
	ErrInvalidInput = errors.NewStd("invalid input")
)

const componentSurvey = "survey"

// detailError carries a caller-facing message while matching a sentinel.
type detailError struct {
	sentinel error
	detail   string
}

func (e *detailError) Error() string { return e.detail }

func (e *detailError) Unwrap() error { return e.sentinel }

func newError(sentinel error, category errors.ErrorCategory, operation, detail string) error {
	return errors.New(&detailError{sentinel: sentinel, detail: detail}).
		Component(componentSurvey).
		Category(category).
		Context("operation", operation).
		Build()
}

func speciesNotFound(operation string, id int64) error {
	return newError(ErrNotFound, errors.CategoryNotFound, operation,
		fmt.Sprintf("Species with id %d not found", id))
}

func pageOutOfRange(page int) error {
	return newError(ErrPageOutOfRange, errors.CategoryLimit, "list_species",
		fmt.Sprintf("Page number %d out of range.", page))
}

func invalidInput(operation, format string, args ...any) error {
	return newError(ErrInvalidInput, errors.CategoryValidation, operation, fmt.Sprintf(format, args...))
}
