package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignite/billingd/internal/pkg/httputil"
)

// createInvoiceRequest accepts the amount as a JSON number or string; the
// decimal type parses both without going through a float.
type createInvoiceRequest struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httputil.BadRequest(w, "invalid user_id: must be a UUID")
		return
	}

	inv, err := s.invoices.Create(r.Context(), userID, req.Amount)
	if err != nil {
		httputil.DomainError(w, s.log, err)
		return
	}
	httputil.Created(w, inv)
}

func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	inv, err := s.invoices.Get(r.Context(), id)
	if err != nil {
		httputil.DomainError(w, s.log, err)
		return
	}
	httputil.OK(w, inv)
}

func (s *Server) payInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	inv, err := s.invoices.MarkPaid(r.Context(), id)
	if err != nil {
		httputil.DomainError(w, s.log, err)
		return
	}
	httputil.OK(w, inv)
}

func (s *Server) requestPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	inv, err := s.invoices.RequestPayment(r.Context(), id)
	if err != nil {
		httputil.DomainError(w, s.log, err)
		return
	}
	httputil.OK(w, inv)
}

func (s *Server) listInvoices(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	var userID *uuid.UUID
	if v := r.URL.Query().Get("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.BadRequest(w, "invalid user_id: must be a UUID")
			return
		}
		userID = &id
	}

	invoices, total, err := s.invoices.List(r.Context(), userID, limit, offset)
	if err != nil {
		httputil.DomainError(w, s.log, err)
		return
	}
	httputil.OK(w, listResponse{Items: invoices, Total: total, Limit: limit, Offset: offset})
}
