// Package store provides an in-memory hostel.Store for tests and dev.
//
// Transactions take the store mutex for their whole scope and work on
// the live maps; WithTx snapshots the state first and restores it when
// the transaction function fails, giving real rollback semantics. The
// FailNext hook injects a one-shot storage failure into a named
// operation, which is how partial-failure rollback is exercised.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iharshcr7/hostel-engine/hostel"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu       sync.Mutex
	students map[string]hostel.Student
	rooms    map[string]hostel.Room
	history  []hostel.RoomHistoryEntry
	payments []hostel.PaymentEntry

	failOp  string
	failErr error
}

func NewMemory() *Memory {
	return &Memory{
		students: make(map[string]hostel.Student),
		rooms:    make(map[string]hostel.Room),
	}
}

// FailNext makes the next call to the named Tx operation return err,
// once. Operation names match the Tx method names.
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOp, m.failErr = op, err
}

func (m *Memory) fail(op string) error {
	if m.failOp == op && m.failErr != nil {
		err := m.failErr
		m.failOp, m.failErr = "", nil
		return err
	}
	return nil
}

// =============================================================================
// READ SURFACE
// =============================================================================

func (m *Memory) GetStudent(_ context.Context, rollNo string) (*hostel.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getStudentLocked(rollNo)
}

func (m *Memory) getStudentLocked(rollNo string) (*hostel.Student, error) {
	s, ok := m.students[rollNo]
	if !ok {
		return nil, hostel.ErrStudentNotFound
	}
	copied := s
	return &copied, nil
}

func (m *Memory) GetRoom(_ context.Context, roomNo string) (*hostel.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getRoomLocked(roomNo)
}

func (m *Memory) getRoomLocked(roomNo string) (*hostel.Room, error) {
	r, ok := m.rooms[roomNo]
	if !ok {
		return nil, hostel.ErrRoomNotFound
	}
	copied := r
	return &copied, nil
}

func (m *Memory) ListStudents(_ context.Context) ([]hostel.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]hostel.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RollNo < out[j].RollNo })
	return out, nil
}

func (m *Memory) ListRooms(_ context.Context) ([]hostel.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]hostel.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomNo < out[j].RoomNo })
	return out, nil
}

func (m *Memory) ListHousedStudents(ctx context.Context) ([]hostel.Student, error) {
	all, err := m.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	housed := all[:0]
	for _, s := range all {
		if s.Housed() {
			housed = append(housed, s)
		}
	}
	return housed, nil
}

func (m *Memory) AvailableRooms(_ context.Context, category hostel.Category, sharing hostel.Sharing) ([]hostel.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []hostel.Room
	for _, r := range m.rooms {
		if r.Type == category && r.Sharing == sharing && r.HasSpace() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomNo < out[j].RoomNo })
	return out, nil
}

func (m *Memory) CreateRoom(_ context.Context, room *hostel.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.RoomNo] = *room
	return nil
}

func (m *Memory) HistoryForStudent(_ context.Context, rollNo string) ([]hostel.RoomHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterHistory(func(e hostel.RoomHistoryEntry) bool { return e.StudentID == rollNo }), nil
}

func (m *Memory) HistoryForRoom(_ context.Context, roomNo string) ([]hostel.RoomHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterHistory(func(e hostel.RoomHistoryEntry) bool { return e.RoomNo == roomNo }), nil
}

func (m *Memory) filterHistory(keep func(hostel.RoomHistoryEntry) bool) []hostel.RoomHistoryEntry {
	var out []hostel.RoomHistoryEntry
	for _, e := range m.history {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out
}

func (m *Memory) PaymentsForStudent(_ context.Context, rollNo string) ([]hostel.PaymentEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []hostel.PaymentEntry
	for _, e := range m.payments {
		if e.StudentID == rollNo {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

func (m *Memory) RecordPayment(_ context.Context, entry hostel.PaymentEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, entry)
	return nil
}

func (m *Memory) RecountOccupancy(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, s := range m.students {
		if s.Housed() {
			counts[s.RoomNo]++
		}
	}
	for no, r := range m.rooms {
		r.CurrentOccupancy = counts[no]
		m.rooms[no] = r
	}
	return nil
}

// =============================================================================
// TRANSACTIONS - Snapshot and restore on failure
// =============================================================================

// WithTx holds the store mutex for the whole transaction, which also
// serializes concurrent coordinator calls the way a database write
// lock would.
func (m *Memory) WithTx(_ context.Context, fn func(tx hostel.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&memoryTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	students map[string]hostel.Student
	rooms    map[string]hostel.Room
	history  []hostel.RoomHistoryEntry
	payments []hostel.PaymentEntry
}

func (m *Memory) snapshot() memorySnapshot {
	snap := memorySnapshot{
		students: make(map[string]hostel.Student, len(m.students)),
		rooms:    make(map[string]hostel.Room, len(m.rooms)),
		history:  append([]hostel.RoomHistoryEntry(nil), m.history...),
		payments: append([]hostel.PaymentEntry(nil), m.payments...),
	}
	for k, v := range m.students {
		snap.students[k] = v
	}
	for k, v := range m.rooms {
		snap.rooms[k] = v
	}
	return snap
}

func (m *Memory) restore(snap memorySnapshot) {
	m.students = snap.students
	m.rooms = snap.rooms
	m.history = snap.history
	m.payments = snap.payments
}

type memoryTx struct {
	m *Memory
}

func (t *memoryTx) LockStudent(_ context.Context, rollNo string) (*hostel.Student, error) {
	if err := t.m.fail("LockStudent"); err != nil {
		return nil, err
	}
	return t.m.getStudentLocked(rollNo)
}

func (t *memoryTx) LockRoom(_ context.Context, roomNo string) (*hostel.Room, error) {
	if err := t.m.fail("LockRoom"); err != nil {
		return nil, err
	}
	return t.m.getRoomLocked(roomNo)
}

func (t *memoryTx) GetStudent(_ context.Context, rollNo string) (*hostel.Student, error) {
	if err := t.m.fail("GetStudent"); err != nil {
		return nil, err
	}
	return t.m.getStudentLocked(rollNo)
}

func (t *memoryTx) CreateStudent(_ context.Context, s *hostel.Student) error {
	if err := t.m.fail("CreateStudent"); err != nil {
		return err
	}
	if _, exists := t.m.students[s.RollNo]; exists {
		return hostel.ErrDuplicateStudent
	}
	t.m.students[s.RollNo] = *s
	return nil
}

func (t *memoryTx) UpdateStudent(_ context.Context, s *hostel.Student) error {
	if err := t.m.fail("UpdateStudent"); err != nil {
		return err
	}
	if _, exists := t.m.students[s.RollNo]; !exists {
		return hostel.ErrStudentNotFound
	}
	t.m.students[s.RollNo] = *s
	return nil
}

func (t *memoryTx) DeleteStudent(_ context.Context, rollNo string) error {
	if err := t.m.fail("DeleteStudent"); err != nil {
		return err
	}
	if _, exists := t.m.students[rollNo]; !exists {
		return hostel.ErrStudentNotFound
	}
	delete(t.m.students, rollNo)
	// Audit rows keep their data; the student reference is nulled the
	// way the SQL schema's ON DELETE SET NULL would.
	for i := range t.m.history {
		if t.m.history[i].StudentID == rollNo {
			t.m.history[i].StudentID = ""
		}
	}
	for i := range t.m.payments {
		if t.m.payments[i].StudentID == rollNo {
			t.m.payments[i].StudentID = ""
		}
	}
	return nil
}

func (t *memoryTx) Reserve(_ context.Context, roomNo string) error {
	if err := t.m.fail("Reserve"); err != nil {
		return err
	}
	r, ok := t.m.rooms[roomNo]
	if !ok {
		return hostel.ErrRoomNotFound
	}
	if r.CurrentOccupancy >= r.Capacity {
		return &hostel.RoomFullError{RoomNo: roomNo, Capacity: r.Capacity, Occupancy: r.CurrentOccupancy}
	}
	r.CurrentOccupancy++
	t.m.rooms[roomNo] = r
	return nil
}

func (t *memoryTx) Release(_ context.Context, roomNo string) error {
	if err := t.m.fail("Release"); err != nil {
		return err
	}
	r, ok := t.m.rooms[roomNo]
	if !ok {
		return nil
	}
	if r.CurrentOccupancy > 0 {
		r.CurrentOccupancy--
	}
	t.m.rooms[roomNo] = r
	return nil
}

func (t *memoryTx) OpenHistory(_ context.Context, entry hostel.RoomHistoryEntry) error {
	if err := t.m.fail("OpenHistory"); err != nil {
		return err
	}
	t.m.history = append(t.m.history, entry)
	return nil
}

func (t *memoryTx) CloseHistory(_ context.Context, rollNo, roomNo, reason string, at time.Time) error {
	if err := t.m.fail("CloseHistory"); err != nil {
		return err
	}
	for i := range t.m.history {
		e := &t.m.history[i]
		if e.StudentID == rollNo && e.RoomNo == roomNo && e.Open() {
			closedAt := at
			e.CheckOut = &closedAt
			e.Reason = reason
			return nil
		}
	}
	return nil // no open entry: vacating a student with no prior stay
}

func (t *memoryTx) RecordPayment(_ context.Context, entry hostel.PaymentEntry) error {
	if err := t.m.fail("RecordPayment"); err != nil {
		return err
	}
	t.m.payments = append(t.m.payments, entry)
	return nil
}
