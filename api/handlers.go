/*
handlers.go - HTTP API handlers for the hostel engine

PURPOSE:
  Exposes the allocation and billing engine via REST. Handles HTTP
  request/response and JSON serialization, delegating all invariants to
  the coordinator and reconciler.

ENDPOINTS:
  Students:
    GET    /api/students                     List students
    POST   /api/students                     Register (room + initial payment)
    GET    /api/students/{roll}              Student details
    DELETE /api/students/{roll}              Remove (releases room first)
    POST   /api/students/{roll}/allocate     Assign first room
    POST   /api/students/{roll}/transfer     Move to another room
    POST   /api/students/{roll}/vacate       Clear room, settle refund
    GET    /api/students/{roll}/history      Stay intervals
    GET    /api/students/{roll}/payments     Payment ledger
    GET    /api/students/{roll}/payments/summary  Ledger-derived balance

  Rooms:
    GET    /api/rooms                        List rooms
    POST   /api/rooms                        Create room
    GET    /api/rooms/available              Spare-capacity filter
    GET    /api/rooms/{no}                   Room details
    GET    /api/rooms/{no}/history           Stay intervals for the room

  Fees:
    GET    /api/fees/quote                   Per-occupant price

  Admin:
    POST   /api/admin/reconcile              Repair cached-attribute drift
    POST   /api/admin/recount                Recount occupancy from students
    POST   /api/admin/seed                   Load the default room catalog

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: invalid input (bad sharing/category text, malformed body)
  - 404: unknown student or room
  - 409: business conflicts (room full, already assigned, duplicate)
  - 500: transaction failures, storage errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iharshcr7/hostel-engine/factory"
	"github.com/iharshcr7/hostel-engine/hostel"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       hostel.Store
	Coordinator *hostel.Coordinator
	Reconciler  *hostel.Reconciler
}

// NewHandler creates a handler over the given store.
func NewHandler(store hostel.Store) *Handler {
	return &Handler{
		Store:       store,
		Coordinator: hostel.NewCoordinator(store),
		Reconciler:  hostel.NewReconciler(store),
	}
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Store.ListStudents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}
	dtos := make([]StudentDTO, len(students))
	for i := range students {
		dtos[i] = toStudentDTO(&students[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	s, err := h.Store.GetStudent(r.Context(), chi.URLParam(r, "roll"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(s))
}

func (h *Handler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req RegisterStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.RollNo == "" || req.RoomNo == "" {
		writeError(w, http.StatusBadRequest, "roll_no and room_no are required", nil)
		return
	}
	initial := decimal.Zero
	if req.InitialPayment != "" {
		var err error
		if initial, err = decimal.NewFromString(req.InitialPayment); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid initial_payment", err)
			return
		}
	}

	student := &hostel.Student{RollNo: req.RollNo, Name: req.Name}
	if err := h.Coordinator.Register(r.Context(), student, req.RoomNo, initial); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(student))
}

func (h *Handler) RemoveStudent(w http.ResponseWriter, r *http.Request) {
	if err := h.Coordinator.Remove(r.Context(), chi.URLParam(r, "roll"), "Student record removed"); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AllocateRoom(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	roll := chi.URLParam(r, "roll")
	if err := h.Coordinator.Allocate(r.Context(), roll, req.RoomNo); err != nil {
		writeDomainError(w, err)
		return
	}
	s, err := h.Store.GetStudent(r.Context(), roll)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(s))
}

func (h *Handler) TransferRoom(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	result, err := h.Coordinator.Transfer(r.Context(), chi.URLParam(r, "roll"), req.RoomNo, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TransferResponse{PriceDelta: money(result.PriceDelta)})
}

func (h *Handler) VacateRoom(w http.ResponseWriter, r *http.Request) {
	var req VacateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	result, err := h.Coordinator.Vacate(r.Context(), chi.URLParam(r, "roll"), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VacateResponse{Refund: money(result.Refund)})
}

func (h *Handler) StudentHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.HistoryForStudent(r.Context(), chi.URLParam(r, "roll"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}
	writeJSON(w, http.StatusOK, historyDTOs(entries))
}

func (h *Handler) StudentPayments(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.PaymentsForStudent(r.Context(), chi.URLParam(r, "roll"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load payments", err)
		return
	}
	dtos := make([]PaymentEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toPaymentDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.PaymentsForStudent(r.Context(), chi.URLParam(r, "roll"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load payments", err)
		return
	}
	summary := hostel.RunningBalance(entries)
	writeJSON(w, http.StatusOK, PaymentSummaryDTO{
		TotalPaid:    money(summary.TotalPaid),
		TotalCharges: money(summary.TotalCharges),
		TotalRefunds: money(summary.TotalRefunds),
		Net:          money(summary.Net),
	})
}

// =============================================================================
// ROOM HANDLERS
// =============================================================================

func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Store.ListRooms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rooms", err)
		return
	}
	writeJSON(w, http.StatusOK, roomDTOs(rooms))
}

func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Store.GetRoom(r.Context(), chi.URLParam(r, "no"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomDTO(room))
}

func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.RoomNo == "" {
		writeError(w, http.StatusBadRequest, "room_no is required", nil)
		return
	}
	category, err := hostel.ParseCategory(req.Category)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sharing, err := hostel.ParseSharing(req.Sharing)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	room := &hostel.Room{
		RoomNo:    req.RoomNo,
		Type:      category,
		Sharing:   sharing,
		Capacity:  sharing.Occupants(),
		BlockName: req.Block,
		FloorNo:   req.Floor,
	}
	if err := h.Store.CreateRoom(r.Context(), room); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create room", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomDTO(room))
}

func (h *Handler) AvailableRooms(w http.ResponseWriter, r *http.Request) {
	category, err := hostel.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sharing, err := hostel.ParseSharing(r.URL.Query().Get("sharing"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rooms, err := h.Store.AvailableRooms(r.Context(), category, sharing)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rooms", err)
		return
	}
	writeJSON(w, http.StatusOK, roomDTOs(rooms))
}

func (h *Handler) RoomHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.HistoryForRoom(r.Context(), chi.URLParam(r, "no"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}
	writeJSON(w, http.StatusOK, historyDTOs(entries))
}

// =============================================================================
// FEE HANDLERS
// =============================================================================

func (h *Handler) QuoteFee(w http.ResponseWriter, r *http.Request) {
	categoryText := r.URL.Query().Get("category")
	sharingText := r.URL.Query().Get("sharing")
	fee, err := hostel.QuoteFee(categoryText, sharingText)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FeeQuoteDTO{
		Category: categoryText,
		Sharing:  sharingText,
		Fee:      money(fee),
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.Reconciler.ReconcileAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Reconciliation failed", err)
		return
	}
	resp := ReconcileResponse{Corrections: make([]CorrectionDTO, len(report.Corrections))}
	for i, c := range report.Corrections {
		dto := CorrectionDTO{
			RollNo: c.RollNo,
			RoomNo: c.RoomNo,
			Fields: c.Fields,
			OldDue: money(c.OldDue),
			NewDue: money(c.NewDue),
			Kind:   string(c.Kind),
		}
		if !c.Adjustment.IsZero() {
			dto.Adjustment = money(c.Adjustment)
		}
		resp.Corrections[i] = dto
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, ReconcileFailDTO{RollNo: f.RollNo, Error: f.Err.Error()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) RecountOccupancy(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.RecountOccupancy(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Recount failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SeedCatalog(w http.ResponseWriter, r *http.Request) {
	created := 0
	for _, room := range factory.DefaultCatalog() {
		room := room
		if _, err := h.Store.GetRoom(r.Context(), room.RoomNo); err == nil {
			continue // already seeded
		}
		if err := h.Store.CreateRoom(r.Context(), &room); err != nil {
			writeError(w, http.StatusInternalServerError, "Seed failed", err)
			return
		}
		created++
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func historyDTOs(entries []hostel.RoomHistoryEntry) []HistoryEntryDTO {
	dtos := make([]HistoryEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toHistoryDTO(e)
	}
	return dtos
}

func roomDTOs(rooms []hostel.Room) []RoomDTO {
	dtos := make([]RoomDTO, len(rooms))
	for i := range rooms {
		dtos[i] = toRoomDTO(&rooms[i])
	}
	return dtos
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: %v", err)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case hostel.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, hostel.ErrRoomFull),
		errors.Is(err, hostel.ErrAlreadyAssigned),
		errors.Is(err, hostel.ErrNotAssigned),
		errors.Is(err, hostel.ErrDuplicateStudent):
		writeError(w, http.StatusConflict, "Conflict", err)
	case errors.Is(err, hostel.ErrInvalidSharing), errors.Is(err, hostel.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	default:
		writeError(w, http.StatusInternalServerError, "Operation failed", err)
	}
}
