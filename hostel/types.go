/*
Package hostel implements the room allocation and billing engine.

PURPOSE:
  This package contains the domain types and transactional logic for
  assigning students to rooms, computing per-occupant fees, and keeping
  the audit trail (room history, payment history) consistent with the
  mutable student and room rows.

KEY CONCEPTS IN THIS FILE (types.go):
  - Category/Sharing: Closed enums parsed from free-text at the boundary
  - Student: The mutable record, including the cached copy of room
    attributes that the Reconciler keeps honest
  - Room: Authoritative room row owning capacity and occupancy
  - RoomHistoryEntry: One continuous stay interval (append-only)
  - PaymentEntry: One charge/refund/payment (append-only)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all money, never float
  2. Closed variants: Free-text category/sharing strings are parsed
     once at the boundary; internal logic never sees raw strings
  3. Auditability: Every fee adjustment produces a PaymentEntry
  4. Atomicity: All multi-table writes go through Store.WithTx

SEE ALSO:
  - fee.go: Fee calculation and boundary parsing
  - coordinator.go: Allocate/transfer/vacate state machine
  - reconciler.go: Cached-attribute drift repair
  - store.go: Persistence interfaces
*/
package hostel

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATEGORY - Room cost tier
// =============================================================================

// Category is the room cost tier. Each tier carries a fixed total room
// cost which is divided among occupants.
type Category string

const (
	CategoryStandard Category = "Standard"
	CategoryLuxury   Category = "Luxury"
)

// =============================================================================
// SHARING - Occupant count the room is configured for
// =============================================================================

// Sharing is the number of occupants a room is configured for.
// The zero value means "not set" (an unhoused student's cache).
type Sharing int

const (
	SharingSingle Sharing = 1
	SharingDouble Sharing = 2
	SharingQuad   Sharing = 4
)

// Occupants returns the occupant count the fixed room cost is divided by.
func (s Sharing) Occupants() int { return int(s) }

// String renders the canonical persisted form, e.g. "2 Sharing".
func (s Sharing) String() string {
	switch s {
	case SharingSingle:
		return "1 Sharing"
	case SharingDouble:
		return "2 Sharing"
	case SharingQuad:
		return "4 Sharing"
	}
	return ""
}

// =============================================================================
// STUDENT
// =============================================================================

// Student is the mutable student record. RoomNo == "" means unhoused.
//
// RoomType, SharingType, BlockName and FloorNo are a denormalized copy
// of the referenced Room's attributes, kept for display and query
// convenience. The invariant is: if RoomNo is non-empty the cached
// attributes equal the Room's, otherwise they are all cleared and
// AmountDue is zero. The Coordinator maintains this on every operation;
// the Reconciler restores it when room edits bypass the Coordinator.
type Student struct {
	RollNo string
	Name   string

	RoomNo      string
	RoomType    Category
	SharingType Sharing
	BlockName   string
	FloorNo     int

	AmountPaid decimal.Decimal
	AmountDue  decimal.Decimal
}

// Housed reports whether the student currently references a room.
func (s *Student) Housed() bool { return s.RoomNo != "" }

// ClearRoom drops the room reference and every cached room attribute.
func (s *Student) ClearRoom() {
	s.RoomNo = ""
	s.RoomType = ""
	s.SharingType = 0
	s.BlockName = ""
	s.FloorNo = 0
}

// =============================================================================
// ROOM
// =============================================================================

// Room is the authoritative room row. CurrentOccupancy is a derived
// count (students referencing this room) and is exclusively mutated by
// the engine; it must never exceed Capacity.
type Room struct {
	RoomNo           string
	Type             Category
	Sharing          Sharing
	Capacity         int
	CurrentOccupancy int
	BlockName        string
	FloorNo          int
}

// HasSpace reports whether one more student fits.
func (r *Room) HasSpace() bool { return r.CurrentOccupancy < r.Capacity }

// =============================================================================
// ROOM HISTORY - Append-only stay intervals
// =============================================================================

// RoomHistoryEntry records one continuous stay of a student in a room.
// CheckOut == nil means the stay is open. At most one open entry exists
// per (student, room) pair. Entries are never mutated except to set
// CheckOut once, and never deleted.
type RoomHistoryEntry struct {
	ID          string
	StudentID   string
	RoomNo      string
	RoomType    Category
	SharingType Sharing
	Block       string
	Floor       int
	CheckIn     time.Time
	CheckOut    *time.Time
	Reason      string
}

// Open reports whether the stay has not been checked out yet.
func (e *RoomHistoryEntry) Open() bool { return e.CheckOut == nil }

// =============================================================================
// PAYMENT HISTORY - Append-only charge/refund/payment log
// =============================================================================

// PaymentKind distinguishes the direction of a payment entry.
// Amounts are always stored positive.
type PaymentKind string

const (
	PaymentKindPayment PaymentKind = "PAYMENT"
	PaymentKindRefund  PaymentKind = "REFUND"
	PaymentKindCharge  PaymentKind = "CHARGE"
)

// PaymentEntry is one row of the payment audit trail. Never mutated or
// deleted; corrections are additional entries.
type PaymentEntry struct {
	ID        string
	StudentID string
	Amount    decimal.Decimal
	Kind      PaymentKind
	Reason    string
	At        time.Time
}

// =============================================================================
// RESULTS
// =============================================================================

// TransferResult reports the fee delta of a completed transfer.
// PriceDelta is fee(target) - fee(prior); negative means downgrade.
type TransferResult struct {
	PriceDelta decimal.Decimal
}

// VacateResult reports the refund of a completed vacate.
type VacateResult struct {
	Refund decimal.Decimal
}

// Correction describes one repair made by the Reconciler.
type Correction struct {
	RollNo     string
	RoomNo     string
	Fields     []string // cached attributes that had drifted
	OldDue     decimal.Decimal
	NewDue     decimal.Decimal
	Adjustment decimal.Decimal // positive amount of the ledger entry, zero if within epsilon
	Kind       PaymentKind     // CHARGE or REFUND when Adjustment is non-zero
}

// ReconcileFailure reports a student the Reconciler could not repair.
// The batch continues past failures; they are surfaced for visibility.
type ReconcileFailure struct {
	RollNo string
	Err    error
}

// ReconcileReport is the outcome of one ReconcileAll run.
type ReconcileReport struct {
	Corrections []Correction
	Failures    []ReconcileFailure
}
