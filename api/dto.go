/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts serialize as fixed two-decimal strings so clients never see
  float artifacts.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iharshcr7/hostel-engine/hostel"
)

// =============================================================================
// STUDENTS
// =============================================================================

// StudentDTO represents a student in API responses.
type StudentDTO struct {
	RollNo      string `json:"roll_no"`
	Name        string `json:"name"`
	RoomNo      string `json:"room_no,omitempty"`
	RoomType    string `json:"room_type,omitempty"`
	SharingType string `json:"sharing_type,omitempty"`
	BlockName   string `json:"block_name,omitempty"`
	FloorNo     int    `json:"floor_no,omitempty"`
	AmountPaid  string `json:"amount_paid"`
	AmountDue   string `json:"amount_due"`
}

func toStudentDTO(s *hostel.Student) StudentDTO {
	return StudentDTO{
		RollNo:      s.RollNo,
		Name:        s.Name,
		RoomNo:      s.RoomNo,
		RoomType:    string(s.RoomType),
		SharingType: s.SharingType.String(),
		BlockName:   s.BlockName,
		FloorNo:     s.FloorNo,
		AmountPaid:  money(s.AmountPaid),
		AmountDue:   money(s.AmountDue),
	}
}

// RegisterStudentRequest creates a student with an initial room and payment.
type RegisterStudentRequest struct {
	RollNo         string `json:"roll_no"`
	Name           string `json:"name"`
	RoomNo         string `json:"room_no"`
	InitialPayment string `json:"initial_payment,omitempty"`
}

// =============================================================================
// ROOMS
// =============================================================================

// RoomDTO represents a room in API responses.
type RoomDTO struct {
	RoomNo           string `json:"room_no"`
	RoomType         string `json:"room_type"`
	SharingType      string `json:"sharing_type"`
	Capacity         int    `json:"capacity"`
	CurrentOccupancy int    `json:"current_occupancy"`
	BlockName        string `json:"block_name"`
	FloorNo          int    `json:"floor_no"`
}

func toRoomDTO(r *hostel.Room) RoomDTO {
	return RoomDTO{
		RoomNo:           r.RoomNo,
		RoomType:         string(r.Type),
		SharingType:      r.Sharing.String(),
		Capacity:         r.Capacity,
		CurrentOccupancy: r.CurrentOccupancy,
		BlockName:        r.BlockName,
		FloorNo:          r.FloorNo,
	}
}

// CreateRoomRequest creates an empty room.
type CreateRoomRequest struct {
	RoomNo   string `json:"room_no"`
	Category string `json:"category"`
	Sharing  string `json:"sharing"`
	Block    string `json:"block,omitempty"`
	Floor    int    `json:"floor,omitempty"`
}

// =============================================================================
// MOVES
// =============================================================================

// AllocateRequest assigns a room to an unhoused student.
type AllocateRequest struct {
	RoomNo string `json:"room_no"`
}

// TransferRequest moves a housed student to another room.
type TransferRequest struct {
	RoomNo string `json:"room_no"`
	Reason string `json:"reason"`
}

// VacateRequest clears a student's room.
type VacateRequest struct {
	Reason string `json:"reason"`
}

// TransferResponse reports the fee delta of a transfer.
type TransferResponse struct {
	PriceDelta string `json:"price_delta"`
}

// VacateResponse reports the refund of a vacate.
type VacateResponse struct {
	Refund string `json:"refund"`
}

// =============================================================================
// HISTORY AND PAYMENTS
// =============================================================================

// HistoryEntryDTO is one stay interval.
type HistoryEntryDTO struct {
	ID          string  `json:"id"`
	StudentID   string  `json:"student_id,omitempty"`
	RoomNo      string  `json:"room_no"`
	RoomType    string  `json:"room_type,omitempty"`
	SharingType string  `json:"sharing_type,omitempty"`
	Block       string  `json:"block,omitempty"`
	Floor       int     `json:"floor,omitempty"`
	CheckIn     string  `json:"check_in"`
	CheckOut    *string `json:"check_out,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

func toHistoryDTO(e hostel.RoomHistoryEntry) HistoryEntryDTO {
	dto := HistoryEntryDTO{
		ID:          e.ID,
		StudentID:   e.StudentID,
		RoomNo:      e.RoomNo,
		RoomType:    string(e.RoomType),
		SharingType: e.SharingType.String(),
		Block:       e.Block,
		Floor:       e.Floor,
		CheckIn:     e.CheckIn.UTC().Format(time.RFC3339),
		Reason:      e.Reason,
	}
	if e.CheckOut != nil {
		out := e.CheckOut.UTC().Format(time.RFC3339)
		dto.CheckOut = &out
	}
	return dto
}

// PaymentEntryDTO is one payment ledger row.
type PaymentEntryDTO struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id,omitempty"`
	Amount    string `json:"amount"`
	Kind      string `json:"type"`
	Reason    string `json:"reason,omitempty"`
	At        string `json:"transaction_date"`
}

func toPaymentDTO(e hostel.PaymentEntry) PaymentEntryDTO {
	return PaymentEntryDTO{
		ID:        e.ID,
		StudentID: e.StudentID,
		Amount:    money(e.Amount),
		Kind:      string(e.Kind),
		Reason:    e.Reason,
		At:        e.At.UTC().Format(time.RFC3339),
	}
}

// PaymentSummaryDTO is the ledger-derived balance.
type PaymentSummaryDTO struct {
	TotalPaid    string `json:"total_paid"`
	TotalCharges string `json:"total_charges"`
	TotalRefunds string `json:"total_refunds"`
	Net          string `json:"net"`
}

// =============================================================================
// FEES AND RECONCILIATION
// =============================================================================

// FeeQuoteDTO is the per-occupant price for a category and sharing.
type FeeQuoteDTO struct {
	Category string `json:"category"`
	Sharing  string `json:"sharing"`
	Fee      string `json:"fee"`
}

// CorrectionDTO is one repair made by the reconciler.
type CorrectionDTO struct {
	RollNo     string   `json:"roll_no"`
	RoomNo     string   `json:"room_no"`
	Fields     []string `json:"fields"`
	OldDue     string   `json:"old_due"`
	NewDue     string   `json:"new_due"`
	Adjustment string   `json:"adjustment,omitempty"`
	Kind       string   `json:"kind,omitempty"`
}

// ReconcileResponse is the outcome of one reconcile run.
type ReconcileResponse struct {
	Corrections []CorrectionDTO    `json:"corrections"`
	Failures    []ReconcileFailDTO `json:"failures,omitempty"`
}

// ReconcileFailDTO reports a student the batch could not repair.
type ReconcileFailDTO struct {
	RollNo string `json:"roll_no"`
	Error  string `json:"error"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }
