/*
reconciler.go - Cached room attribute drift repair

PURPOSE:
  Room edits made by the surrounding CRUD do not cascade into the
  denormalized copy each student row carries (type, sharing, block,
  floor). The Reconciler is the explicit repair job for that
  eventual-consistency boundary: it scans every housed student, joins
  to the authoritative room row, and where any cached attribute
  differs it overwrites the cache, re-derives the due balance from the
  room's real fee, and records the due movement in the payment ledger.

GUARANTEES:
  - Idempotent: a second run with no intervening room edits makes zero
    corrections.
  - Per-student transactions: one student's failure does not abort the
    batch; failures are reported alongside corrections.
  - amount_paid is never touched; only amount_due is re-derived.

LIMITS:
  Occupancy is a derived count, not a cached copy, so the Reconciler
  does not repair it. The admin recount operation exists for that.

SEE ALSO:
  - fee.go: The same calculator the Coordinator uses
  - store.go: ListHousedStudents is the scan surface
*/
package hostel

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// dueEpsilon is the smallest due movement worth a ledger entry.
var dueEpsilon = decimal.RequireFromString("0.01")

const reasonReconciliation = "Reconciliation adjustment"

// Reconciler repairs students whose cached room attributes have
// drifted from the authoritative room rows.
type Reconciler struct {
	Store Store
	Clock func() time.Time
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(store Store) *Reconciler {
	return &Reconciler{Store: store, Clock: time.Now}
}

// ReconcileAll scans all housed students and repairs any drift. Each
// student is repaired in its own transaction; a failure is recorded
// and the batch continues.
func (r *Reconciler) ReconcileAll(ctx context.Context) (ReconcileReport, error) {
	students, err := r.Store.ListHousedStudents(ctx)
	if err != nil {
		return ReconcileReport{}, err
	}

	var report ReconcileReport
	for _, student := range students {
		correction, err := r.reconcileStudent(ctx, student.RollNo)
		if err != nil {
			report.Failures = append(report.Failures, ReconcileFailure{RollNo: student.RollNo, Err: err})
			continue
		}
		if correction != nil {
			log.Printf("reconcile: student %s room %s fields %v due %s -> %s",
				correction.RollNo, correction.RoomNo, correction.Fields,
				correction.OldDue.StringFixed(2), correction.NewDue.StringFixed(2))
			report.Corrections = append(report.Corrections, *correction)
		}
	}
	return report, nil
}

// reconcileStudent repairs one student under lock. Returns nil if the
// cache already agrees with the room.
func (r *Reconciler) reconcileStudent(ctx context.Context, rollNo string) (*Correction, error) {
	var correction *Correction
	err := r.Store.WithTx(ctx, func(tx Tx) error {
		s, err := tx.LockStudent(ctx, rollNo)
		if err != nil {
			return err
		}
		if !s.Housed() {
			// Vacated between the scan and the lock.
			return nil
		}
		room, err := tx.LockRoom(ctx, s.RoomNo)
		if err != nil {
			if errors.Is(err, ErrRoomNotFound) {
				return errors.New("room reference is dangling")
			}
			return err
		}

		fields := driftedFields(s, room)
		if len(fields) == 0 {
			return nil
		}

		fee, err := Fee(room.Type, room.Sharing)
		if err != nil {
			return err
		}
		oldDue := s.AmountDue
		newDue := fee.Sub(s.AmountPaid)

		s.RoomType = room.Type
		s.SharingType = room.Sharing
		s.BlockName = room.BlockName
		s.FloorNo = room.FloorNo
		s.AmountDue = newDue
		if err := tx.UpdateStudent(ctx, s); err != nil {
			return err
		}

		correction = &Correction{
			RollNo: s.RollNo,
			RoomNo: s.RoomNo,
			Fields: fields,
			OldDue: oldDue,
			NewDue: newDue,
		}

		delta := newDue.Sub(oldDue)
		if delta.Abs().GreaterThan(dueEpsilon) {
			kind := PaymentKindCharge
			if delta.IsNegative() {
				kind = PaymentKindRefund
			}
			entry := PaymentEntry{
				ID:        uuid.NewString(),
				StudentID: s.RollNo,
				Amount:    roundMoney(delta.Abs()),
				Kind:      kind,
				Reason:    reasonReconciliation,
				At:        r.now(),
			}
			if err := tx.RecordPayment(ctx, entry); err != nil {
				return err
			}
			correction.Adjustment = entry.Amount
			correction.Kind = kind
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return correction, nil
}

// driftedFields lists the cached attributes that disagree with the room.
func driftedFields(s *Student, room *Room) []string {
	var fields []string
	if s.RoomType != room.Type {
		fields = append(fields, "room_type")
	}
	if s.SharingType != room.Sharing {
		fields = append(fields, "sharing_type")
	}
	if s.BlockName != room.BlockName {
		fields = append(fields, "block_name")
	}
	if s.FloorNo != room.FloorNo {
		fields = append(fields, "floor_no")
	}
	return fields
}

func (r *Reconciler) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}
