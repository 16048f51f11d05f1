/*
Package sqlite provides the SQLite-backed implementation of
hostel.Store.

PURPOSE:
  Production embedded backend. The schema mirrors the four core tables
  (rooms, students, room_history, payment_history) and is migrated on
  open.

KEY TABLES:
  rooms:            capacity/current_occupancy owned by the engine
  students:         mutable row with the cached room attribute copy
  room_history:     append-only stay intervals (check_out set once)
  payment_history:  append-only charge/refund/payment log

INVARIANTS ENFORCED IN SQL:
  - CHECK (current_occupancy BETWEEN 0 AND capacity) on rooms
  - Reserve's UPDATE carries "current_occupancy < capacity" in its
    WHERE clause, so check-and-increment is atomic regardless of lock
    granularity
  - A partial unique index allows at most one open history entry per
    (student, room)
  - ON DELETE SET NULL keeps audit rows when a student is removed

CONCURRENCY:
  Opened with WAL and foreign keys on, transactions begin in immediate
  mode so conflicting writers queue on the database write lock.
  _busy_timeout bounds the wait; expiry surfaces hostel.ErrLockTimeout.
  SQLite has no row-level FOR UPDATE; LockStudent/LockRoom are plain
  reads under the serialized write transaction.

USAGE:
  st, err := sqlite.New(":memory:")
  ...
  defer st.Close()

SEE ALSO:
  - hostel/store.go: Interface contract
  - store/postgres: Row-locked deployment backend
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/iharshcr7/hostel-engine/hostel"
)

// Store implements hostel.Store on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and migrates the
// schema. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=3000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The write-serialized model assumes one connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		room_no TEXT PRIMARY KEY,
		room_type TEXT NOT NULL,
		sharing_type TEXT NOT NULL,
		capacity INTEGER NOT NULL,
		current_occupancy INTEGER NOT NULL DEFAULT 0,
		block_name TEXT NOT NULL DEFAULT '',
		floor_no INTEGER NOT NULL DEFAULT 0,
		CHECK (current_occupancy >= 0 AND current_occupancy <= capacity)
	);

	CREATE TABLE IF NOT EXISTS students (
		roll_no TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		room_no TEXT REFERENCES rooms(room_no),
		room_type TEXT,
		sharing_type TEXT,
		block_name TEXT,
		floor_no INTEGER,
		amount_paid TEXT NOT NULL DEFAULT '0',
		amount_due TEXT NOT NULL DEFAULT '0'
	);

	CREATE INDEX IF NOT EXISTS idx_students_room ON students(room_no)
		WHERE room_no IS NOT NULL;

	CREATE TABLE IF NOT EXISTS room_history (
		id TEXT PRIMARY KEY,
		student_id TEXT REFERENCES students(roll_no) ON DELETE SET NULL,
		room_no TEXT NOT NULL,
		room_type TEXT,
		sharing_type TEXT,
		block TEXT,
		floor INTEGER,
		check_in TEXT NOT NULL,
		check_out TEXT,
		reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_history_student ON room_history(student_id, check_in);
	CREATE INDEX IF NOT EXISTS idx_history_room ON room_history(room_no, check_in);

	-- At most one open stay per (student, room)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_history_one_open
		ON room_history(student_id, room_no) WHERE check_out IS NULL;

	CREATE TABLE IF NOT EXISTS payment_history (
		id TEXT PRIMARY KEY,
		student_id TEXT REFERENCES students(roll_no) ON DELETE SET NULL,
		amount TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('PAYMENT','REFUND','CHARGE')),
		reason TEXT,
		transaction_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_student
		ON payment_history(student_id, transaction_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROW SCANNING
// =============================================================================

const studentColumns = `roll_no, name, room_no, room_type, sharing_type, block_name, floor_no, amount_paid, amount_due`
const roomColumns = `room_no, room_type, sharing_type, capacity, current_occupancy, block_name, floor_no`
const historyColumns = `id, student_id, room_no, room_type, sharing_type, block, floor, check_in, check_out, reason`
const paymentColumns = `id, student_id, amount, type, reason, transaction_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*hostel.Student, error) {
	var s hostel.Student
	var roomNo, roomType, sharingType, blockName sql.NullString
	var floorNo sql.NullInt64
	var paid, due string
	if err := row.Scan(&s.RollNo, &s.Name, &roomNo, &roomType, &sharingType, &blockName, &floorNo, &paid, &due); err != nil {
		return nil, err
	}
	s.RoomNo = roomNo.String
	s.RoomType = hostel.Category(roomType.String)
	if sharingType.Valid && sharingType.String != "" {
		sharing, err := hostel.ParseSharing(sharingType.String)
		if err != nil {
			return nil, err
		}
		s.SharingType = sharing
	}
	s.BlockName = blockName.String
	s.FloorNo = int(floorNo.Int64)

	var err error
	if s.AmountPaid, err = decimal.NewFromString(paid); err != nil {
		return nil, fmt.Errorf("bad amount_paid for %s: %w", s.RollNo, err)
	}
	if s.AmountDue, err = decimal.NewFromString(due); err != nil {
		return nil, fmt.Errorf("bad amount_due for %s: %w", s.RollNo, err)
	}
	return &s, nil
}

func scanRoom(row rowScanner) (*hostel.Room, error) {
	var r hostel.Room
	var roomType, sharingType string
	if err := row.Scan(&r.RoomNo, &roomType, &sharingType, &r.Capacity, &r.CurrentOccupancy, &r.BlockName, &r.FloorNo); err != nil {
		return nil, err
	}
	r.Type = hostel.Category(roomType)
	sharing, err := hostel.ParseSharing(sharingType)
	if err != nil {
		return nil, err
	}
	r.Sharing = sharing
	return &r, nil
}

func scanHistory(row rowScanner) (hostel.RoomHistoryEntry, error) {
	var e hostel.RoomHistoryEntry
	var studentID, roomType, sharingType, block, reason sql.NullString
	var floor sql.NullInt64
	var checkIn string
	var checkOut sql.NullString
	if err := row.Scan(&e.ID, &studentID, &e.RoomNo, &roomType, &sharingType, &block, &floor, &checkIn, &checkOut, &reason); err != nil {
		return hostel.RoomHistoryEntry{}, err
	}
	e.StudentID = studentID.String
	e.RoomType = hostel.Category(roomType.String)
	if sharingType.Valid && sharingType.String != "" {
		sharing, err := hostel.ParseSharing(sharingType.String)
		if err != nil {
			return hostel.RoomHistoryEntry{}, err
		}
		e.SharingType = sharing
	}
	e.Block = block.String
	e.Floor = int(floor.Int64)
	e.Reason = reason.String

	in, err := time.Parse(time.RFC3339Nano, checkIn)
	if err != nil {
		return hostel.RoomHistoryEntry{}, fmt.Errorf("bad check_in on %s: %w", e.ID, err)
	}
	e.CheckIn = in
	if checkOut.Valid {
		out, err := time.Parse(time.RFC3339Nano, checkOut.String)
		if err != nil {
			return hostel.RoomHistoryEntry{}, fmt.Errorf("bad check_out on %s: %w", e.ID, err)
		}
		e.CheckOut = &out
	}
	return e, nil
}

func scanPayment(row rowScanner) (hostel.PaymentEntry, error) {
	var e hostel.PaymentEntry
	var studentID, reason sql.NullString
	var amount, kind, at string
	if err := row.Scan(&e.ID, &studentID, &amount, &kind, &reason, &at); err != nil {
		return hostel.PaymentEntry{}, err
	}
	e.StudentID = studentID.String
	e.Kind = hostel.PaymentKind(kind)
	e.Reason = reason.String

	var err error
	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return hostel.PaymentEntry{}, fmt.Errorf("bad amount on %s: %w", e.ID, err)
	}
	if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
		return hostel.PaymentEntry{}, fmt.Errorf("bad transaction_date on %s: %w", e.ID, err)
	}
	return e, nil
}

// =============================================================================
// READ SURFACE
// =============================================================================

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getStudent(ctx context.Context, q querier, rollNo string) (*hostel.Student, error) {
	row := q.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE roll_no = ?`, rollNo)
	s, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hostel.ErrStudentNotFound
		}
		return nil, err
	}
	return s, nil
}

func getRoom(ctx context.Context, q querier, roomNo string) (*hostel.Room, error) {
	row := q.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE room_no = ?`, roomNo)
	r, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hostel.ErrRoomNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *Store) GetStudent(ctx context.Context, rollNo string) (*hostel.Student, error) {
	return getStudent(ctx, s.db, rollNo)
}

func (s *Store) GetRoom(ctx context.Context, roomNo string) (*hostel.Room, error) {
	return getRoom(ctx, s.db, roomNo)
}

func (s *Store) ListStudents(ctx context.Context) ([]hostel.Student, error) {
	return s.queryStudents(ctx, `SELECT `+studentColumns+` FROM students ORDER BY roll_no`)
}

func (s *Store) ListHousedStudents(ctx context.Context) ([]hostel.Student, error) {
	return s.queryStudents(ctx, `SELECT `+studentColumns+` FROM students WHERE room_no IS NOT NULL ORDER BY roll_no`)
}

func (s *Store) queryStudents(ctx context.Context, query string, args ...any) ([]hostel.Student, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hostel.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (s *Store) ListRooms(ctx context.Context) ([]hostel.Room, error) {
	return s.queryRooms(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY room_no`)
}

func (s *Store) AvailableRooms(ctx context.Context, category hostel.Category, sharing hostel.Sharing) ([]hostel.Room, error) {
	return s.queryRooms(ctx,
		`SELECT `+roomColumns+` FROM rooms
		 WHERE room_type = ? AND sharing_type = ? AND current_occupancy < capacity
		 ORDER BY room_no`,
		string(category), sharing.String())
}

func (s *Store) queryRooms(ctx context.Context, query string, args ...any) ([]hostel.Room, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hostel.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) CreateRoom(ctx context.Context, room *hostel.Room) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (room_no, room_type, sharing_type, capacity, current_occupancy, block_name, floor_no)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		room.RoomNo, string(room.Type), room.Sharing.String(), room.Capacity, room.CurrentOccupancy, room.BlockName, room.FloorNo)
	return err
}

func (s *Store) HistoryForStudent(ctx context.Context, rollNo string) ([]hostel.RoomHistoryEntry, error) {
	return s.queryHistory(ctx,
		`SELECT `+historyColumns+` FROM room_history WHERE student_id = ? ORDER BY check_in`, rollNo)
}

func (s *Store) HistoryForRoom(ctx context.Context, roomNo string) ([]hostel.RoomHistoryEntry, error) {
	return s.queryHistory(ctx,
		`SELECT `+historyColumns+` FROM room_history WHERE room_no = ? ORDER BY check_in`, roomNo)
}

func (s *Store) queryHistory(ctx context.Context, query string, args ...any) ([]hostel.RoomHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hostel.RoomHistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) PaymentsForStudent(ctx context.Context, rollNo string) ([]hostel.PaymentEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payment_history WHERE student_id = ? ORDER BY transaction_date, id`, rollNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hostel.PaymentEntry
	for rows.Next() {
		e, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) RecordPayment(ctx context.Context, entry hostel.PaymentEntry) error {
	return insertPayment(ctx, s.db, entry)
}

func insertPayment(ctx context.Context, q querier, entry hostel.PaymentEntry) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO payment_history (id, student_id, amount, type, reason, transaction_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.StudentID, entry.Amount.String(), string(entry.Kind), entry.Reason,
		entry.At.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *Store) RecountOccupancy(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rooms SET current_occupancy =
		   (SELECT COUNT(*) FROM students WHERE students.room_no = rooms.room_no)`)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn inside an immediate-mode transaction. Busy-timeout
// expiry on begin or on any statement maps to hostel.ErrLockTimeout.
func (s *Store) WithTx(ctx context.Context, fn func(tx hostel.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteErr(err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return mapSQLiteErr(err)
	}
	if err := tx.Commit(); err != nil {
		return mapSQLiteErr(err)
	}
	return nil
}

func mapSQLiteErr(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%w: %v", hostel.ErrLockTimeout, err)
		}
	}
	return err
}

type sqliteTx struct {
	tx *sql.Tx
}

// LockStudent is a plain read: the immediate-mode transaction already
// holds the database write lock.
func (t *sqliteTx) LockStudent(ctx context.Context, rollNo string) (*hostel.Student, error) {
	return getStudent(ctx, t.tx, rollNo)
}

func (t *sqliteTx) LockRoom(ctx context.Context, roomNo string) (*hostel.Room, error) {
	return getRoom(ctx, t.tx, roomNo)
}

func (t *sqliteTx) GetStudent(ctx context.Context, rollNo string) (*hostel.Student, error) {
	return getStudent(ctx, t.tx, rollNo)
}

func (t *sqliteTx) CreateStudent(ctx context.Context, st *hostel.Student) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO students (roll_no, name, room_no, room_type, sharing_type, block_name, floor_no, amount_paid, amount_due)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.RollNo, st.Name,
		nullIfEmpty(st.RoomNo), nullIfEmpty(string(st.RoomType)), nullIfEmpty(st.SharingType.String()),
		nullIfEmpty(st.BlockName), st.FloorNo,
		st.AmountPaid.String(), st.AmountDue.String())
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
		return hostel.ErrDuplicateStudent
	}
	return err
}

func (t *sqliteTx) UpdateStudent(ctx context.Context, st *hostel.Student) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE students SET name = ?, room_no = ?, room_type = ?, sharing_type = ?,
		        block_name = ?, floor_no = ?, amount_paid = ?, amount_due = ?
		 WHERE roll_no = ?`,
		st.Name,
		nullIfEmpty(st.RoomNo), nullIfEmpty(string(st.RoomType)), nullIfEmpty(st.SharingType.String()),
		nullIfEmpty(st.BlockName), st.FloorNo,
		st.AmountPaid.String(), st.AmountDue.String(),
		st.RollNo)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return hostel.ErrStudentNotFound
	}
	return nil
}

func (t *sqliteTx) DeleteStudent(ctx context.Context, rollNo string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM students WHERE roll_no = ?`, rollNo)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return hostel.ErrStudentNotFound
	}
	return nil
}

// Reserve performs the atomic check-and-increment: the WHERE clause
// refuses the update when the room is full.
func (t *sqliteTx) Reserve(ctx context.Context, roomNo string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE rooms SET current_occupancy = current_occupancy + 1
		 WHERE room_no = ? AND current_occupancy < capacity`, roomNo)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		room, err := getRoom(ctx, t.tx, roomNo)
		if err != nil {
			return err
		}
		return &hostel.RoomFullError{RoomNo: roomNo, Capacity: room.Capacity, Occupancy: room.CurrentOccupancy}
	}
	return nil
}

func (t *sqliteTx) Release(ctx context.Context, roomNo string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE rooms SET current_occupancy = current_occupancy - 1
		 WHERE room_no = ? AND current_occupancy > 0`, roomNo)
	return err
}

func (t *sqliteTx) OpenHistory(ctx context.Context, entry hostel.RoomHistoryEntry) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO room_history (id, student_id, room_no, room_type, sharing_type, block, floor, check_in, check_out, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
		entry.ID, entry.StudentID, entry.RoomNo, string(entry.RoomType), entry.SharingType.String(),
		entry.Block, entry.Floor, entry.CheckIn.UTC().Format(time.RFC3339Nano), entry.Reason)
	return err
}

func (t *sqliteTx) CloseHistory(ctx context.Context, rollNo, roomNo, reason string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE room_history SET check_out = ?, reason = ?
		 WHERE student_id = ? AND room_no = ? AND check_out IS NULL`,
		at.UTC().Format(time.RFC3339Nano), reason, rollNo, roomNo)
	return err
}

func (t *sqliteTx) RecordPayment(ctx context.Context, entry hostel.PaymentEntry) error {
	return insertPayment(ctx, t.tx, entry)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
