/*
handlers.go - HTTP API handlers for the chit settlement engine

PURPOSE:
  Exposes the chit engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the chit services.

ENDPOINTS:
  Groups:
    GET    /api/groups                              List groups (?status=ACTIVE)
    POST   /api/groups                              Create group
    GET    /api/groups/{groupID}                    Get group
    POST   /api/groups/{groupID}/status             Transition group status
    GET    /api/groups/{groupID}/tickets            List tickets
    POST   /api/groups/{groupID}/tickets            Enroll a member
    DELETE /api/groups/{groupID}/tickets/{ticketID} Deactivate a ticket

  Auctions:
    GET    /api/groups/{groupID}/auctions           List auctions by month
    POST   /api/groups/{groupID}/auctions           Settle a month
    POST   /api/groups/{groupID}/auctions/preview   Calculate without posting
    GET    /api/auctions/{auctionID}                Get auction

  Payments:
    GET    /api/payments                            List (?group_id, ?ticket_id, ?month)
    POST   /api/payments                            Record a payment
    GET    /api/groups/{groupID}/months/{month}/statement

  Members:
    GET    /api/members                             List members
    POST   /api/members                             Create member
    GET    /api/members/{memberID}                  Get member
    DELETE /api/members/{memberID}                  Deactivate member

  Demo:
    POST   /api/demo/seed                           Seed a demo group

ARCHITECTURE:
  Handler struct holds the three services:
  - Roster:   groups, members, tickets
  - Auctions: settlement posting and reads
  - Payments: payment reconciliation and statements

REQUEST FLOW:
  1. Parse HTTP request
  2. Convert DTO to service input
  3. Call the chit service
  4. Serialize response
  5. Relay rejections

ERROR HANDLING:
  Rejections are relayed verbatim as {"error": {kind, message, context}}:
  - 400: validation_error, malformed body
  - 404: not_found
  - 409: conflict, not_ready
  - 422: winner_exempt, overpayment
  - 500: internal (message is generic, details go to the log)

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - seed.go: Demo group loader
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/chit-engine/chit"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Roster   *chit.Roster
	Auctions *chit.AuctionService
	Payments *chit.PaymentReconciler
	Health   Pinger
	Log      *slog.Logger
}

// NewHandler creates a handler over the given services.
func NewHandler(roster *chit.Roster, auctions *chit.AuctionService, payments *chit.PaymentReconciler) *Handler {
	return &Handler{
		Roster:   roster,
		Auctions: auctions,
		Payments: payments,
	}
}

// =============================================================================
// GROUP HANDLERS
// =============================================================================

// ListGroups returns all groups, optionally filtered by status.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	var filter chit.GroupFilter
	if s := r.URL.Query().Get("status"); s != "" {
		status := chit.GroupStatus(s)
		filter.Status = &status
	}

	groups, err := h.Roster.ListGroups(r.Context(), filter)
	if err != nil {
		h.relay(w, r, err)
		return
	}

	dtos := make([]GroupDTO, len(groups))
	for i, g := range groups {
		dtos[i] = toGroupDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateGroup creates a PENDING group.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if !decode(w, r, &req) {
		return
	}

	in := chit.CreateGroupInput{
		Name:            req.Name,
		TotalAmount:     req.TotalAmount,
		TotalMembers:    req.TotalMembers,
		CommissionType:  chit.CommissionType(req.CommissionType),
		CommissionValue: req.CommissionValue,
		RoundOffValue:   req.RoundOffValue,
	}
	if req.AuctionStartDate != "" {
		d, err := time.Parse(dateLayout, req.AuctionStartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, chit.KindValidation, "Invalid auction_start_date, expected YYYY-MM-DD", nil)
			return
		}
		in.AuctionStartDate = &d
	}

	g, err := h.Roster.CreateGroup(r.Context(), in)
	if err != nil {
		h.relay(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupDTO(*g))
}

// GetGroup returns a group.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.Roster.GetGroup(r.Context(), chit.GroupID(chi.URLParam(r, "groupID")))
	if err != nil {
		h.relay(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupDTO(*g))
}

// TransitionGroup moves a group to a new lifecycle status.
func (h *Handler) TransitionGroup(w http.ResponseWriter, r *http.Request) {
	var req TransitionGroupRequest
	if !decode(w, r, &req) {
		return
	}

	g, err := h.Roster.TransitionGroup(r.Context(), chit.GroupID(chi.URLParam(r, "groupID")), chit.GroupStatus(req.Status))
	if err != nil {
		h.relay(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupDTO(*g))
}

// =============================================================================
// TICKET HANDLERS
// =============================================================================

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.Roster.ListTickets(r.Context(), chit.GroupID(chi.URLParam(r, "groupID")))
	if err != nil {
		h.relay(w, r, err)
		return
	}

	dtos := make([]TicketDTO, len(tickets))
	for i, t := range tickets {
		dtos[i] = toTicketDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Enroll gives a member a ticket number in the group.
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if !decode(w, r, &req) {
		return
	}

	t, err := h.Roster.Enroll(r.Context(), chit.EnrollInput{
		GroupID:      chit.GroupID(chi.URLParam(r, "groupID")),
		MemberID:     chit.MemberID(req.MemberID),
		TicketNumber: req.TicketNumber,
	})
	if err != nil {
		h.relay(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTicketDTO(*t))
}

// DeactivateTicket marks a ticket inactive. Its history is kept.
func (h *Handler) DeactivateTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.Roster.DeactivateTicket(r.Context(),
		chit.GroupID(chi.URLParam(r, "groupID")),
		chit.TicketID(chi.URLParam(r, "ticketID")))
	if err != nil {
		h.relay(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketDTO(*t))
}

// =============================================================================
// AUCTION HANDLERS
// =============================================================================

func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	auctions, err := h.Auctions.List(r.Context(), chit.GroupID(chi.URLParam(r, "groupID")))
	if err != nil {
		h.relay(w, r, err)
		return
	}

	dtos := make([]AuctionDTO, len(auctions))
	for i, a := range auctions {
		dtos[i] = toAuctionDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SettleAuction posts one month's auction.
func (h *Handler) SettleAuction(w http.ResponseWriter, r *http.Request) {
	var req SettleAuctionRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := h.Auctions.Settle(r.Context(), settleInput(r, req))
	if err != nil {
		h.relay(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuctionDTO(*a))
}

// PreviewAuction returns the settlement a request would produce.
func (h *Handler) PreviewAuction(w http.ResponseWriter, r *http.Request) {
	var req SettleAuctionRequest
	if !decode(w, r, &req) {
		return
	}

	s, err := h.Auctions.Preview(r.Context(), settleInput(r, req))
	if err != nil {
		h.relay(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementDTO(*s))
}

func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	a, err := h.Auctions.Get(r.Context(), chit.AuctionID(chi.URLParam(r, "auctionID")))
	if err != nil {
		h.relay(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuctionDTO(*a))
}

func settleInput(r *http.Request, req SettleAuctionRequest) chit.SettleAuctionInput {
	return chit.SettleAuctionInput{
		GroupID:        chit.GroupID(chi.URLParam(r, "groupID")),
		MonthNumber:    req.MonthNumber,
		WinnerTicketID: chit.TicketID(req.WinnerTicketID),
		OriginalBid:    req.OriginalBid,
	}
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns payments in insertion order.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	var filter chit.PaymentFilter
	q := r.URL.Query()
	if v := q.Get("group_id"); v != "" {
		id := chit.GroupID(v)
		filter.GroupID = &id
	}
	if v := q.Get("ticket_id"); v != "" {
		id := chit.TicketID(v)
		filter.TicketID = &id
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, chit.KindValidation, "Invalid month filter", nil)
			return
		}
		filter.MonthNumber = &month
	}

	payments, err := h.Payments.List(r.Context(), filter)
	if err != nil {
		h.relay(w, r, err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayment records one collection against a ticket's monthly due.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if !decode(w, r, &req) {
		return
	}

	in := chit.RecordPaymentInput{
		GroupID:     chit.GroupID(req.GroupID),
		TicketID:    chit.TicketID(req.TicketID),
		MonthNumber: req.MonthNumber,
		AmountPaid:  req.AmountPaid,
		Method:      chit.PaymentMethod(req.PaymentMethod),
		UPIID:       req.UPIID,
		Notes:       req.Notes,
	}
	if req.PaymentDate != "" {
		d, err := time.Parse(dateLayout, req.PaymentDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, chit.KindValidation, "Invalid payment_date, expected YYYY-MM-DD", nil)
			return
		}
		in.PaymentDate = d
	}

	receipt, err := h.Payments.Record(r.Context(), in)
	if err != nil {
		h.relay(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PaymentReceiptDTO{
		Payment:      toPaymentDTO(receipt.Payment),
		TicketNumber: receipt.TicketNumber,
		TotalPaid:    receipt.TotalPaid,
		MonthlyDue:   receipt.MonthlyDue,
		Remaining:    receipt.Remaining,
	})
}

// GetStatement returns every ticket's collection position for a month.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, chit.KindValidation, "Invalid month", nil)
		return
	}

	st, err := h.Payments.Statement(r.Context(), chit.GroupID(chi.URLParam(r, "groupID")), month)
	if err != nil {
		h.relay(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementDTO(*st))
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Roster.ListMembers(r.Context())
	if err != nil {
		h.relay(w, r, err)
		return
	}

	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if !decode(w, r, &req) {
		return
	}

	m, err := h.Roster.CreateMember(r.Context(), req.Name, req.Mobile)
	if err != nil {
		h.relay(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberDTO(*m))
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.Roster.GetMember(r.Context(), chit.MemberID(chi.URLParam(r, "memberID")))
	if err != nil {
		h.relay(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(*m))
}

// DeactivateMember stops the member from taking new tickets.
func (h *Handler) DeactivateMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.Roster.DeactivateMember(r.Context(), chit.MemberID(chi.URLParam(r, "memberID")))
	if err != nil {
		h.relay(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(*m))
}

// =============================================================================
// DEMO AND HEALTH
// =============================================================================

// SeedDemo creates the demo group and settles its first month.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	g, err := SeedDemo(r.Context(), h.Roster, h.Auctions)
	if err != nil {
		h.relay(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupDTO(*g))
}

// Healthz reports store reachability.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			h.logger().ErrorContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, chit.KindValidation, "Invalid request body", map[string]any{"details": err.Error()})
		return false
	}
	return true
}

// relay writes a chit rejection with its HTTP status.
func (h *Handler) relay(w http.ResponseWriter, r *http.Request, err error) {
	d := chit.Describe(err)
	status := statusFor(d.Kind)
	if status == http.StatusInternalServerError {
		h.logger().ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, d.Kind, d.Message, d.Context)
}

func statusFor(kind chit.Kind) int {
	switch kind {
	case chit.KindValidation:
		return http.StatusBadRequest
	case chit.KindNotFound:
		return http.StatusNotFound
	case chit.KindConflict, chit.KindNotReady:
		return http.StatusConflict
	case chit.KindWinnerExempt, chit.KindOverpayment:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, kind chit.Kind, message string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDTO{
		Kind:    string(kind),
		Message: message,
		Context: details,
	}})
}

func (h *Handler) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}
