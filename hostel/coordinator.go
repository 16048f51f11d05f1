/*
coordinator.go - Room transfer transaction coordinator

PURPOSE:
  Implements allocate, transfer, vacate, register and remove as atomic
  operations spanning the student row, both room rows, the room history
  journal and the payment ledger. Every operation runs the same
  backbone inside one Store.WithTx scope:

    Validate -> Lock -> ClosePriorOccupancy -> ReleasePriorRoom ->
    ComputeFeeDelta -> UpdateStudentRecord -> OpenNewOccupancy ->
    ReserveNewRoom -> RecordPaymentAdjustment -> Verify -> Commit

  with an unconditional rollback on any failure. Validation errors
  (unknown student/room, already assigned, room full) surface before
  any write; anything after the first write is wrapped in
  TransactionError and the whole operation is undone.

BILLING POLICY:
  Transfer: amount_due grows by max(0, fee(target) - fee(prior)). A
  negative difference is never auto-applied to the balance; it is
  recorded as a REFUND ledger entry for the cashier to settle. Dues
  only ever grow from a transfer.

  Vacate: refund = max(0, amount_paid - fee(prior)); the refund is
  deducted from amount_paid, amount_due is zeroed, and a REFUND entry
  is recorded when non-zero.

CONCURRENCY:
  The student row and every room row touched are locked for the whole
  operation, so two transfers racing for the last slot of a room cannot
  both observe spare capacity. Rooms are locked in room-number order to
  keep lock acquisition deadlock-free when two transfers cross. The
  coordinator never retries; conflicts are surfaced to the caller.

SEE ALSO:
  - store.go: Tx contract the backbone is written against
  - reconciler.go: Batch repair outside the transactional path
*/
package hostel

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reasons written by operations that do not take a caller reason.
const (
	reasonInitialAssignment = "Initial room assignment"
	reasonRegistration      = "Registration payment"
	reasonUpgradeCharge     = "Room upgrade charge"
	reasonDowngradeRefund   = "Room downgrade refund"
	reasonVacationRefund    = "Room vacation refund"
)

// Coordinator orchestrates allocation, transfer and vacation as
// all-or-nothing transactions.
type Coordinator struct {
	Store Store

	// Clock is the timestamp source; defaults to time.Now. Tests pin it.
	Clock func() time.Time
}

// NewCoordinator creates a coordinator over the given store.
func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{Store: store, Clock: time.Now}
}

func (c *Coordinator) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// =============================================================================
// ALLOCATE - First assignment of an unhoused student
// =============================================================================

// Allocate assigns a room to a student who has none. The due balance is
// re-derived from the room's fee: amount_due = fee - amount_paid.
func (c *Coordinator) Allocate(ctx context.Context, rollNo, roomNo string) error {
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		s, err := tx.LockStudent(ctx, rollNo)
		if err != nil {
			return err
		}
		if s.Housed() {
			return ErrAlreadyAssigned
		}
		room, err := tx.LockRoom(ctx, roomNo)
		if err != nil {
			return err
		}
		if !room.HasSpace() {
			return &RoomFullError{RoomNo: room.RoomNo, Capacity: room.Capacity, Occupancy: room.CurrentOccupancy}
		}

		fee, err := Fee(room.Type, room.Sharing)
		if err != nil {
			return err
		}

		c.moveInto(s, room)
		s.AmountDue = fee.Sub(s.AmountPaid)
		if err := tx.UpdateStudent(ctx, s); err != nil {
			return err
		}
		if err := tx.Reserve(ctx, room.RoomNo); err != nil {
			return err
		}
		if err := tx.OpenHistory(ctx, c.historyEntry(s, room, reasonInitialAssignment)); err != nil {
			return err
		}
		return c.verifyRoom(ctx, tx, rollNo, room.RoomNo)
	})
	return c.classify("allocate", rollNo, err)
}

// =============================================================================
// TRANSFER - Move a housed student to a different room
// =============================================================================

// Transfer moves a student to a different room, adjusting dues by the
// positive fee difference and recording the full difference (either
// direction) in the payment ledger.
func (c *Coordinator) Transfer(ctx context.Context, rollNo, roomNo, reason string) (TransferResult, error) {
	var result TransferResult
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		s, err := tx.LockStudent(ctx, rollNo)
		if err != nil {
			return err
		}
		if !s.Housed() {
			return ErrNotAssigned
		}
		if s.RoomNo == roomNo {
			return ErrAlreadyAssigned
		}

		prior, target, err := c.lockRoomPair(ctx, tx, s.RoomNo, roomNo)
		if err != nil {
			return err
		}
		if !target.HasSpace() {
			return &RoomFullError{RoomNo: target.RoomNo, Capacity: target.Capacity, Occupancy: target.CurrentOccupancy}
		}

		// Prior fee comes from the authoritative room row, not the
		// student's cache. A dangling reference prices the prior stay
		// at zero, matching the original's left join.
		priorFee := decimal.Zero
		if prior != nil {
			priorFee, err = Fee(prior.Type, prior.Sharing)
			if err != nil {
				return err
			}
		}
		targetFee, err := Fee(target.Type, target.Sharing)
		if err != nil {
			return err
		}
		priceDiff := targetFee.Sub(priorFee)

		if err := tx.CloseHistory(ctx, rollNo, s.RoomNo, reason, c.now()); err != nil {
			return err
		}
		if prior != nil {
			if err := tx.Release(ctx, prior.RoomNo); err != nil {
				return err
			}
		}

		c.moveInto(s, target)
		s.AmountDue = s.AmountDue.Add(decimal.Max(decimal.Zero, priceDiff))
		if err := tx.UpdateStudent(ctx, s); err != nil {
			return err
		}
		if err := tx.OpenHistory(ctx, c.historyEntry(s, target, reason)); err != nil {
			return err
		}
		if err := tx.Reserve(ctx, target.RoomNo); err != nil {
			return err
		}

		if !priceDiff.IsZero() {
			kind, entryReason := PaymentKindCharge, reasonUpgradeCharge
			if priceDiff.IsNegative() {
				kind, entryReason = PaymentKindRefund, reasonDowngradeRefund
			}
			if err := tx.RecordPayment(ctx, c.paymentEntry(rollNo, priceDiff.Abs(), kind, entryReason)); err != nil {
				return err
			}
		}

		if err := c.verifyRoom(ctx, tx, rollNo, target.RoomNo); err != nil {
			return err
		}
		result = TransferResult{PriceDelta: priceDiff}
		return nil
	})
	if err != nil {
		return TransferResult{}, c.classify("transfer", rollNo, err)
	}
	return result, nil
}

// =============================================================================
// VACATE - Clear the student's room and settle the balance
// =============================================================================

// Vacate releases the student's room, refunds any overpayment against
// the prior room's fee, and clears the cached attributes and dues.
func (c *Coordinator) Vacate(ctx context.Context, rollNo, reason string) (VacateResult, error) {
	var result VacateResult
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		refund, err := c.vacateLocked(ctx, tx, rollNo, reason)
		if err != nil {
			return err
		}
		if err := c.verifyRoom(ctx, tx, rollNo, ""); err != nil {
			return err
		}
		result = VacateResult{Refund: refund}
		return nil
	})
	if err != nil {
		return VacateResult{}, c.classify("vacate", rollNo, err)
	}
	return result, nil
}

// vacateLocked runs the vacate steps inside an open transaction. Shared
// with Remove, which vacates before deleting the row.
func (c *Coordinator) vacateLocked(ctx context.Context, tx Tx, rollNo, reason string) (decimal.Decimal, error) {
	s, err := tx.LockStudent(ctx, rollNo)
	if err != nil {
		return decimal.Zero, err
	}
	if !s.Housed() {
		return decimal.Zero, ErrNotAssigned
	}

	priorFee := decimal.Zero
	prior, err := tx.LockRoom(ctx, s.RoomNo)
	switch {
	case err == nil:
		priorFee, err = Fee(prior.Type, prior.Sharing)
		if err != nil {
			return decimal.Zero, err
		}
	case errors.Is(err, ErrRoomNotFound):
		prior = nil
	default:
		return decimal.Zero, err
	}

	refund := decimal.Max(decimal.Zero, s.AmountPaid.Sub(priorFee))

	if err := tx.CloseHistory(ctx, rollNo, s.RoomNo, reason, c.now()); err != nil {
		return decimal.Zero, err
	}
	if prior != nil {
		if err := tx.Release(ctx, prior.RoomNo); err != nil {
			return decimal.Zero, err
		}
	}

	s.ClearRoom()
	s.AmountPaid = s.AmountPaid.Sub(refund)
	s.AmountDue = decimal.Zero
	if err := tx.UpdateStudent(ctx, s); err != nil {
		return decimal.Zero, err
	}

	if refund.IsPositive() {
		if err := tx.RecordPayment(ctx, c.paymentEntry(rollNo, refund, PaymentKindRefund, reasonVacationRefund)); err != nil {
			return decimal.Zero, err
		}
	}
	return refund, nil
}

// =============================================================================
// REGISTER - Create a student with an initial room and payment
// =============================================================================

// Register creates the student row, allocates the chosen room and
// records the initial payment, all in one transaction. The due balance
// is fee - initial payment.
func (c *Coordinator) Register(ctx context.Context, s *Student, roomNo string, initialPayment decimal.Decimal) error {
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		room, err := tx.LockRoom(ctx, roomNo)
		if err != nil {
			return err
		}
		if !room.HasSpace() {
			return &RoomFullError{RoomNo: room.RoomNo, Capacity: room.Capacity, Occupancy: room.CurrentOccupancy}
		}
		fee, err := Fee(room.Type, room.Sharing)
		if err != nil {
			return err
		}

		c.moveInto(s, room)
		s.AmountPaid = initialPayment
		s.AmountDue = fee.Sub(initialPayment)
		if err := tx.CreateStudent(ctx, s); err != nil {
			return err
		}
		if err := tx.Reserve(ctx, room.RoomNo); err != nil {
			return err
		}
		if err := tx.OpenHistory(ctx, c.historyEntry(s, room, reasonInitialAssignment)); err != nil {
			return err
		}
		if initialPayment.IsPositive() {
			if err := tx.RecordPayment(ctx, c.paymentEntry(s.RollNo, initialPayment, PaymentKindPayment, reasonRegistration)); err != nil {
				return err
			}
		}
		return c.verifyRoom(ctx, tx, s.RollNo, room.RoomNo)
	})
	return c.classify("register", s.RollNo, err)
}

// =============================================================================
// REMOVE - Delete a student, releasing any occupied room first
// =============================================================================

// Remove deletes a student. A housed student is vacated first in the
// same transaction so the room's occupancy count stays truthful.
func (c *Coordinator) Remove(ctx context.Context, rollNo, reason string) error {
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		s, err := tx.LockStudent(ctx, rollNo)
		if err != nil {
			return err
		}
		if s.Housed() {
			if _, err := c.vacateLocked(ctx, tx, rollNo, reason); err != nil {
				return err
			}
		}
		return tx.DeleteStudent(ctx, rollNo)
	})
	return c.classify("remove", rollNo, err)
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

// moveInto points the student at the room and refreshes every cached
// attribute from the authoritative row.
func (c *Coordinator) moveInto(s *Student, room *Room) {
	s.RoomNo = room.RoomNo
	s.RoomType = room.Type
	s.SharingType = room.Sharing
	s.BlockName = room.BlockName
	s.FloorNo = room.FloorNo
}

// lockRoomPair locks the prior and target rooms in room-number order.
// A missing prior room is tolerated (nil); a missing target is not.
func (c *Coordinator) lockRoomPair(ctx context.Context, tx Tx, priorNo, targetNo string) (prior, target *Room, err error) {
	lock := func(no string) (*Room, error) { return tx.LockRoom(ctx, no) }

	first, second := priorNo, targetNo
	if first > second {
		first, second = second, first
	}
	rooms := map[string]*Room{}
	for _, no := range []string{first, second} {
		r, lockErr := lock(no)
		if lockErr != nil {
			if no == priorNo && errors.Is(lockErr, ErrRoomNotFound) {
				continue
			}
			return nil, nil, lockErr
		}
		rooms[no] = r
	}
	return rooms[priorNo], rooms[targetNo], nil
}

// verifyRoom re-reads the student and confirms the persisted room
// reference matches intent. Any mismatch aborts the transaction.
func (c *Coordinator) verifyRoom(ctx context.Context, tx Tx, rollNo, wantRoom string) error {
	s, err := tx.GetStudent(ctx, rollNo)
	if err != nil {
		return err
	}
	if s.RoomNo != wantRoom {
		return ErrVerificationFailed
	}
	return nil
}

func (c *Coordinator) historyEntry(s *Student, room *Room, reason string) RoomHistoryEntry {
	return RoomHistoryEntry{
		ID:          uuid.NewString(),
		StudentID:   s.RollNo,
		RoomNo:      room.RoomNo,
		RoomType:    room.Type,
		SharingType: room.Sharing,
		Block:       room.BlockName,
		Floor:       room.FloorNo,
		CheckIn:     c.now(),
		Reason:      reason,
	}
}

func (c *Coordinator) paymentEntry(rollNo string, amount decimal.Decimal, kind PaymentKind, reason string) PaymentEntry {
	return PaymentEntry{
		ID:        uuid.NewString(),
		StudentID: rollNo,
		Amount:    roundMoney(amount),
		Kind:      kind,
		Reason:    reason,
		At:        c.now(),
	}
}

// classify passes validation errors through untouched and wraps
// everything else (storage failures, lock timeouts, verification
// mismatches) so callers can rely on errors.Is(err, ErrTransactionFailed)
// meaning "rolled back mid-operation".
func (c *Coordinator) classify(op, rollNo string, err error) error {
	if err == nil || IsValidation(err) {
		return err
	}
	return &TransactionError{Op: op, RollNo: rollNo, Cause: err}
}
