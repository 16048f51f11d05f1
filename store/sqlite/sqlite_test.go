package sqlite_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iharshcr7/hostel-engine/hostel"
	"github.com/iharshcr7/hostel-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func createRoom(t *testing.T, st *sqlite.Store, no string, category hostel.Category, sharing hostel.Sharing) {
	t.Helper()
	err := st.CreateRoom(context.Background(), &hostel.Room{
		RoomNo:    no,
		Type:      category,
		Sharing:   sharing,
		Capacity:  sharing.Occupants(),
		BlockName: "A Block",
		FloorNo:   1,
	})
	require.NoError(t, err)
}

// =============================================================================
// STUDENT ROUND-TRIP TESTS
// =============================================================================

func TestSQLite_StudentRoundTrip(t *testing.T) {
	// GIVEN: A student created with money and cached room attributes
	// WHEN: Reading it back
	// THEN: Every field survives, including decimal precision

	st := newTestStore(t)
	ctx := context.Background()
	createRoom(t, st, "101", hostel.CategoryStandard, hostel.SharingQuad)

	err := st.WithTx(ctx, func(tx hostel.Tx) error {
		return tx.CreateStudent(ctx, &hostel.Student{
			RollNo:      "R1",
			Name:        "Asha",
			RoomNo:      "101",
			RoomType:    hostel.CategoryStandard,
			SharingType: hostel.SharingQuad,
			BlockName:   "A Block",
			FloorNo:     1,
			AmountPaid:  dec("10000.50"),
			AmountDue:   dec("-0.50"),
		})
	})
	require.NoError(t, err)

	got, err := st.GetStudent(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.Name)
	assert.Equal(t, "101", got.RoomNo)
	assert.Equal(t, hostel.CategoryStandard, got.RoomType)
	assert.Equal(t, hostel.SharingQuad, got.SharingType)
	assert.True(t, got.AmountPaid.Equal(dec("10000.50")), "paid %s", got.AmountPaid)
	assert.True(t, got.AmountDue.Equal(dec("-0.50")), "due %s", got.AmountDue)
}

func TestSQLite_UnhousedStudent_NullColumns(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.WithTx(ctx, func(tx hostel.Tx) error {
		return tx.CreateStudent(ctx, &hostel.Student{RollNo: "R1", Name: "B"})
	})
	require.NoError(t, err)

	got, err := st.GetStudent(ctx, "R1")
	require.NoError(t, err)
	assert.False(t, got.Housed())
	assert.Empty(t, string(got.RoomType))
	assert.Equal(t, hostel.Sharing(0), got.SharingType)

	housed, err := st.ListHousedStudents(ctx)
	require.NoError(t, err)
	assert.Empty(t, housed)
}

func TestSQLite_DuplicateStudent_Rejected(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	create := func() error {
		return st.WithTx(ctx, func(tx hostel.Tx) error {
			return tx.CreateStudent(ctx, &hostel.Student{RollNo: "R1"})
		})
	}
	require.NoError(t, create())
	assert.ErrorIs(t, create(), hostel.ErrDuplicateStudent)
}

func TestSQLite_GetMissing_NotFound(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.GetStudent(ctx, "ghost")
	assert.ErrorIs(t, err, hostel.ErrStudentNotFound)

	_, err = st.GetRoom(ctx, "999")
	assert.ErrorIs(t, err, hostel.ErrRoomNotFound)
}

// =============================================================================
// RESERVATION TESTS
// =============================================================================

func TestSQLite_Reserve_AtomicCapacityCheck(t *testing.T) {
	// GIVEN: A single room (capacity 1)
	// WHEN: Reserving twice
	// THEN: The second reservation fails with RoomFullError and the
	//       occupancy stays at 1

	st := newTestStore(t)
	ctx := context.Background()
	createRoom(t, st, "301", hostel.CategoryStandard, hostel.SharingSingle)

	require.NoError(t, st.WithTx(ctx, func(tx hostel.Tx) error {
		return tx.Reserve(ctx, "301")
	}))

	err := st.WithTx(ctx, func(tx hostel.Tx) error {
		return tx.Reserve(ctx, "301")
	})
	assert.ErrorIs(t, err, hostel.ErrRoomFull)

	room, err := st.GetRoom(ctx, "301")
	require.NoError(t, err)
	assert.Equal(t, 1, room.CurrentOccupancy)
}

func TestSQLite_Release_FloorsAtZero(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	createRoom(t, st, "101", hostel.CategoryStandard, hostel.SharingQuad)

	require.NoError(t, st.WithTx(ctx, func(tx hostel.Tx) error {
		return tx.Release(ctx, "101")
	}))

	room, err := st.GetRoom(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, 0, room.CurrentOccupancy)
}

// =============================================================================
// TRANSACTION ROLLBACK TESTS
// =============================================================================

func TestSQLite_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that reserves a slot and then fails
	// WHEN: It returns an error
	// THEN: The reservation is undone

	st := newTestStore(t)
	ctx := context.Background()
	createRoom(t, st, "101", hostel.CategoryStandard, hostel.SharingQuad)

	err := st.WithTx(ctx, func(tx hostel.Tx) error {
		if err := tx.Reserve(ctx, "101"); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	room, err := st.GetRoom(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, 0, room.CurrentOccupancy, "rollback must undo the reservation")
}

// =============================================================================
// COORDINATOR-ON-SQLITE TESTS
// =============================================================================

func TestSQLite_CoordinatorTransfer_EndToEnd(t *testing.T) {
	// GIVEN: A student registered into Standard 4-sharing (fee 10000)
	// WHEN: Transferring to Luxury 2-sharing (fee 30000) and vacating
	// THEN: Dues, occupancy, history and the ledger all land as the
	//       billing rules dictate, persisted through SQL

	st := newTestStore(t)
	ctx := context.Background()
	c := hostel.NewCoordinator(st)
	createRoom(t, st, "101", hostel.CategoryStandard, hostel.SharingQuad)
	createRoom(t, st, "201", hostel.CategoryLuxury, hostel.SharingDouble)

	require.NoError(t, c.Register(ctx, &hostel.Student{RollNo: "R1", Name: "Asha"}, "101", dec("10000")))

	result, err := c.Transfer(ctx, "R1", "201", "Upgrade request")
	require.NoError(t, err)
	assert.True(t, result.PriceDelta.Equal(dec("20000")))

	got, err := st.GetStudent(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, "201", got.RoomNo)
	assert.True(t, got.AmountDue.Equal(dec("20000")), "due %s", got.AmountDue)

	old, err := st.GetRoom(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, 0, old.CurrentOccupancy)
	now, err := st.GetRoom(ctx, "201")
	require.NoError(t, err)
	assert.Equal(t, 1, now.CurrentOccupancy)

	history, err := st.HistoryForStudent(ctx, "R1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[0].Open())
	assert.True(t, history[1].Open())

	// Vacate: paid 10000 vs Luxury double fee 30000, no refund
	vacated, err := c.Vacate(ctx, "R1", "End of term")
	require.NoError(t, err)
	assert.True(t, vacated.Refund.IsZero())

	got, err = st.GetStudent(ctx, "R1")
	require.NoError(t, err)
	assert.False(t, got.Housed())
	assert.True(t, got.AmountDue.Equal(decimal.Zero))

	payments, err := st.PaymentsForStudent(ctx, "R1")
	require.NoError(t, err)
	require.Len(t, payments, 2) // registration payment + upgrade charge
	assert.Equal(t, hostel.PaymentKindPayment, payments[0].Kind)
	assert.Equal(t, hostel.PaymentKindCharge, payments[1].Kind)
}

func TestSQLite_Remove_KeepsAuditRows(t *testing.T) {
	// GIVEN: A registered student with history and ledger rows
	// WHEN: Removing the student
	// THEN: The row is gone but the audit rows survive with the student
	//       reference cleared (ON DELETE SET NULL)

	st := newTestStore(t)
	ctx := context.Background()
	c := hostel.NewCoordinator(st)
	createRoom(t, st, "101", hostel.CategoryStandard, hostel.SharingQuad)
	require.NoError(t, c.Register(ctx, &hostel.Student{RollNo: "R1"}, "101", dec("5000")))

	require.NoError(t, c.Remove(ctx, "R1", "Withdrawn"))

	_, err := st.GetStudent(ctx, "R1")
	assert.ErrorIs(t, err, hostel.ErrStudentNotFound)

	room, err := st.GetRoom(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, 0, room.CurrentOccupancy)

	history, err := st.HistoryForRoom(ctx, "101")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Empty(t, history[0].StudentID)
	assert.False(t, history[0].Open())
}

// =============================================================================
// QUERY SURFACE TESTS
// =============================================================================

func TestSQLite_AvailableRooms_FiltersOnSpareCapacity(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := hostel.NewCoordinator(st)
	createRoom(t, st, "301", hostel.CategoryStandard, hostel.SharingSingle)
	createRoom(t, st, "302", hostel.CategoryStandard, hostel.SharingSingle)
	createRoom(t, st, "201", hostel.CategoryLuxury, hostel.SharingSingle)

	require.NoError(t, c.Register(ctx, &hostel.Student{RollNo: "R1"}, "301", decimal.Zero))

	rooms, err := st.AvailableRooms(ctx, hostel.CategoryStandard, hostel.SharingSingle)
	require.NoError(t, err)
	require.Len(t, rooms, 1, "full and off-category rooms are excluded")
	assert.Equal(t, "302", rooms[0].RoomNo)
}

func TestSQLite_RecountOccupancy_RepairsDriftedCounts(t *testing.T) {
	// GIVEN: A room whose stored count disagrees with the actual
	//        number of students referencing it
	// WHEN: Recounting
	// THEN: The count is re-derived from the student rows

	st := newTestStore(t)
	ctx := context.Background()
	c := hostel.NewCoordinator(st)
	createRoom(t, st, "101", hostel.CategoryStandard, hostel.SharingQuad)
	require.NoError(t, c.Register(ctx, &hostel.Student{RollNo: "R1"}, "101", decimal.Zero))
	require.NoError(t, c.Register(ctx, &hostel.Student{RollNo: "R2"}, "101", decimal.Zero))

	// Knock the count out of line the way a bad manual edit would.
	require.NoError(t, st.WithTx(ctx, func(tx hostel.Tx) error {
		return tx.Release(ctx, "101")
	}))
	room, err := st.GetRoom(ctx, "101")
	require.NoError(t, err)
	require.Equal(t, 1, room.CurrentOccupancy)

	require.NoError(t, st.RecountOccupancy(ctx))

	room, err = st.GetRoom(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, 2, room.CurrentOccupancy)
}

func TestSQLite_Reconciler_CleanRun(t *testing.T) {
	// A freshly registered population has no drift; the reconciler run
	// makes no corrections and writes nothing to the ledger.

	st := newTestStore(t)
	ctx := context.Background()
	c := hostel.NewCoordinator(st)
	r := hostel.NewReconciler(st)
	createRoom(t, st, "101", hostel.CategoryStandard, hostel.SharingQuad)
	require.NoError(t, c.Register(ctx, &hostel.Student{RollNo: "R1"}, "101", dec("10000")))

	report, err := r.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Corrections)
	assert.Empty(t, report.Failures)

	payments, err := st.PaymentsForStudent(ctx, "R1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, hostel.PaymentKindPayment, payments[0].Kind)
	assert.True(t, payments[0].Amount.Equal(dec("10000")))
}
