/*
errors.go - Centralized error types for the enrollment engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Expected conditions (course full, nothing to promote, already dropped)
  are NOT errors: they are Result outcomes (see outcome.go). Errors here
  represent invalid input, missing records, or store failures.

USAGE:
  if errors.Is(err, enroll.ErrCourseExists) {
      // duplicate course id
  }

SEE ALSO:
  - outcome.go: Outcome taxonomy for the Registrar state machine
  - admin.go, registrar.go: Producers of these errors
*/
package enroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrCourseNotFound is returned when a referenced course doesn't exist.
	ErrCourseNotFound = errors.New("course not found")

	// ErrStudentNotFound is returned when a referenced student doesn't exist.
	ErrStudentNotFound = errors.New("student not found")

	// ErrCourseExists is returned when creating a course whose id is taken.
	ErrCourseExists = errors.New("course already exists")

	// ErrStudentExists is returned when a student id is already registered.
	ErrStudentExists = errors.New("student already exists")

	// ErrEmailTaken is returned when an email is already claimed in the index.
	ErrEmailTaken = errors.New("email already exists")

	// ErrSeatsBelowEnrolled is returned when an admin tries to shrink
	// maxSeats below the current enrollment count.
	ErrSeatsBelowEnrolled = errors.New("seats below current enrollment")

	// ErrInvalidInput is returned for blank or malformed identifiers.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable wraps backing-store failures. Propagated to the
	// caller, never retried internally.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SeatReductionError reports why a seat-limit update was rejected.
type SeatReductionError struct {
	CourseID        string
	Requested       int
	CurrentEnrolled int
}

func (e *SeatReductionError) Error() string {
	return fmt.Sprintf("cannot reduce %s to %d seats: %d students enrolled",
		e.CourseID, e.Requested, e.CurrentEnrolled)
}

func (e *SeatReductionError) Unwrap() error {
	return ErrSeatsBelowEnrolled
}

// StoreError wraps an unexpected failure from a backing-store call.
type StoreError struct {
	Op  string // e.g. "reserve seat", "enqueue waitlist"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return ErrStoreUnavailable
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCourseNotFound) ||
		errors.Is(err, ErrStudentNotFound)
}

// IsConflict returns true if the error is a uniqueness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrCourseExists) ||
		errors.Is(err, ErrStudentExists) ||
		errors.Is(err, ErrEmailTaken)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return IsNotFound(err) || IsConflict(err) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrSeatsBelowEnrolled)
}
