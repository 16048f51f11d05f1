/*
store.go - Persistence interfaces for the allocation engine

PURPOSE:
  Defines the boundary between the domain logic and the database.
  The engine never opens transactions itself; it describes the whole
  operation as a function over Tx and the Store runs it atomically.

KEY INTERFACES:
  Store: Read-side queries plus WithTx for atomic multi-table writes
  Tx:    Row-locked reads and the write operations available inside a
         transaction

LOCKING CONTRACT:
  LockStudent/LockRoom read the row with update intent. Backends with
  row locks (PostgreSQL) use SELECT ... FOR UPDATE with a bounded lock
  wait, surfacing ErrLockTimeout on expiry. SQLite serializes
  conflicting writers on the database write lock instead; the occupancy
  guard is additionally enforced in the Reserve SQL so the capacity
  invariant holds under either model.

APPEND-ONLY CONTRACT:
  OpenHistory/RecordPayment only insert. CloseHistory is the single
  permitted mutation of a history row: setting check_out once.
  No interface method deletes or rewrites audit rows.

IMPLEMENTATIONS:
  - store/sqlite:     production embedded backend
  - store/postgres:   deployment backend with row-level locks
  - hostel/store:     in-memory backend for tests

SEE ALSO:
  - coordinator.go: The only writer of occupancy and student rows
*/
package hostel

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Read surface and transaction scope
// =============================================================================

// Store is the data-access layer the engine runs on.
type Store interface {
	// GetStudent returns the student or ErrStudentNotFound.
	GetStudent(ctx context.Context, rollNo string) (*Student, error)

	// GetRoom returns the room or ErrRoomNotFound.
	GetRoom(ctx context.Context, roomNo string) (*Room, error)

	ListStudents(ctx context.Context) ([]Student, error)
	ListRooms(ctx context.Context) ([]Room, error)

	// ListHousedStudents returns students with a non-empty room
	// reference, the Reconciler's scan set.
	ListHousedStudents(ctx context.Context) ([]Student, error)

	// AvailableRooms returns rooms of the given category and sharing
	// arrangement with spare capacity, ordered by room number.
	AvailableRooms(ctx context.Context, category Category, sharing Sharing) ([]Room, error)

	// CreateRoom inserts a room row. Room CRUD is otherwise external.
	CreateRoom(ctx context.Context, room *Room) error

	// HistoryForStudent returns the student's stay intervals ordered by
	// check-in. Read-only audit surface.
	HistoryForStudent(ctx context.Context, rollNo string) ([]RoomHistoryEntry, error)

	// HistoryForRoom returns the room's stay intervals ordered by check-in.
	HistoryForRoom(ctx context.Context, roomNo string) ([]RoomHistoryEntry, error)

	// PaymentsForStudent returns the student's ledger entries ordered by
	// transaction time.
	PaymentsForStudent(ctx context.Context, rollNo string) ([]PaymentEntry, error)

	// RecordPayment appends a single ledger entry outside any
	// coordinator transaction (registration payments, cashier entries).
	RecordPayment(ctx context.Context, entry PaymentEntry) error

	// RecountOccupancy sets every room's occupancy to the count of
	// students referencing it. Admin repair tool only; the engine keeps
	// the count correct transactionally and never needs this.
	RecountOccupancy(ctx context.Context) error

	// WithTx runs fn inside one transaction. If fn returns an error the
	// transaction is rolled back and the error returned unchanged;
	// otherwise it is committed. No reader observes intermediate state.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// =============================================================================
// TX - Operations available inside a transaction
// =============================================================================

// Tx is the write surface of one in-flight transaction. All methods
// operate under the transaction's isolation; none commit.
type Tx interface {
	// LockStudent reads the student row with update intent.
	LockStudent(ctx context.Context, rollNo string) (*Student, error)

	// LockRoom reads the room row with update intent.
	LockRoom(ctx context.Context, roomNo string) (*Room, error)

	// GetStudent re-reads a student without lock escalation. Used by the
	// verification step.
	GetStudent(ctx context.Context, rollNo string) (*Student, error)

	// CreateStudent inserts a student row, ErrDuplicateStudent if the
	// roll number exists.
	CreateStudent(ctx context.Context, s *Student) error

	// UpdateStudent persists the student's mutable fields.
	UpdateStudent(ctx context.Context, s *Student) error

	// DeleteStudent removes the student row. Audit rows keep their data
	// with the student reference nulled by the schema.
	DeleteStudent(ctx context.Context, rollNo string) error

	// Reserve increments the room's occupancy iff occupancy < capacity,
	// returning ErrRoomFull otherwise. Check and increment are atomic.
	Reserve(ctx context.Context, roomNo string) error

	// Release decrements the room's occupancy, floored at zero.
	Release(ctx context.Context, roomNo string) error

	// OpenHistory inserts a stay interval with a nil check-out.
	OpenHistory(ctx context.Context, entry RoomHistoryEntry) error

	// CloseHistory sets check-out (and the closing reason) on the unique
	// open entry for the pair; no-op if none exists.
	CloseHistory(ctx context.Context, rollNo, roomNo, reason string, at time.Time) error

	// RecordPayment appends a ledger entry within the transaction.
	RecordPayment(ctx context.Context, entry PaymentEntry) error
}
