/*
errors.go - Centralized error types for the allocation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is/errors.As; the API layer maps these
  to HTTP statuses.

ERROR CATEGORIES:
  1. Validation errors - detected before any write, no side effects
  2. Capacity errors   - detected under lock, still before any write
  3. Transactional errors - mid-operation failures that always roll
     back every step performed so far

SEE ALSO:
  - coordinator.go: Produces these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package hostel

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStudentNotFound is returned when the roll number matches no student.
	ErrStudentNotFound = errors.New("student not found")

	// ErrRoomNotFound is returned when the room number matches no room.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomFull is returned when the target room is at capacity.
	ErrRoomFull = errors.New("room is at full capacity")

	// ErrAlreadyAssigned is returned when allocating to a housed student
	// or transferring to the student's current room.
	ErrAlreadyAssigned = errors.New("student already assigned to room")

	// ErrNotAssigned is returned when vacating or transferring a student
	// who has no current room.
	ErrNotAssigned = errors.New("student has no room assigned")

	// ErrDuplicateStudent is returned when registering an existing roll number.
	ErrDuplicateStudent = errors.New("student already registered")

	// ErrInvalidSharing is returned for unrecognized sharing-arrangement
	// text. The calculator fails closed, never defaults.
	ErrInvalidSharing = errors.New("invalid sharing arrangement")

	// ErrInvalidCategory is returned for an unknown room cost tier.
	ErrInvalidCategory = errors.New("invalid room category")

	// ErrVerificationFailed is returned when the post-write re-read does
	// not match the intended state. Always rolls back.
	ErrVerificationFailed = errors.New("post-transaction verification failed")

	// ErrLockTimeout is returned when a row lock could not be acquired
	// within the store's bound. Treated like a transaction failure.
	ErrLockTimeout = errors.New("lock wait timed out")

	// ErrTransactionFailed wraps any storage failure mid-operation.
	ErrTransactionFailed = errors.New("transaction failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RoomFullError reports a capacity rejection with the room's numbers.
type RoomFullError struct {
	RoomNo    string
	Capacity  int
	Occupancy int
}

func (e *RoomFullError) Error() string {
	return fmt.Sprintf("room %s is at full capacity (%d/%d)", e.RoomNo, e.Occupancy, e.Capacity)
}

func (e *RoomFullError) Unwrap() error { return ErrRoomFull }

// InvalidSharingError reports the offending free-text value.
type InvalidSharingError struct {
	Text string
}

func (e *InvalidSharingError) Error() string {
	return fmt.Sprintf("invalid sharing arrangement %q: expected '1 Sharing', '2 Sharing', '4 Sharing' or 'No Sharing'", e.Text)
}

func (e *InvalidSharingError) Unwrap() error { return ErrInvalidSharing }

// TransactionError wraps the underlying cause of a failed coordinator
// operation. The whole operation has been rolled back; nothing was
// partially applied.
type TransactionError struct {
	Op     string // "allocate", "transfer", "vacate", "register", "remove"
	RollNo string
	Cause  error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s failed for student %s: %v", e.Op, e.RollNo, e.Cause)
}

func (e *TransactionError) Unwrap() []error { return []error{ErrTransactionFailed, e.Cause} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true for errors detected before any write.
func IsValidation(err error) bool {
	return errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrAlreadyAssigned) ||
		errors.Is(err, ErrNotAssigned) ||
		errors.Is(err, ErrDuplicateStudent) ||
		errors.Is(err, ErrInvalidSharing) ||
		errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrRoomFull)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStudentNotFound) || errors.Is(err, ErrRoomNotFound)
}
