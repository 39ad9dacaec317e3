// Package api exposes the HTTP surface: user and invoice CRUD plus the
// payment actions. Handlers stay thin; every business decision lives in the
// services, and errors map to statuses through the shared domain taxonomy.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/ignite/billingd/internal/domain"
	"github.com/ignite/billingd/internal/pkg/httputil"
	"github.com/ignite/billingd/internal/pkg/logger"
	"github.com/ignite/billingd/internal/service/user"
)

// UserService is the slice of the user service the handlers call.
type UserService interface {
	Create(ctx context.Context, in user.CreateInput) (*domain.User, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Patch(ctx context.Context, id uuid.UUID, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]domain.User, int, error)
}

// InvoiceService is the slice of the invoice service the handlers call.
type InvoiceService interface {
	Create(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*domain.Invoice, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	RequestPayment(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	List(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]domain.Invoice, int, error)
}

// Server holds the handler dependencies.
type Server struct {
	users    UserService
	invoices InvoiceService
	log      *logger.Logger
}

// NewServer wires the HTTP layer.
func NewServer(users UserService, invoices InvoiceService, log *logger.Logger) *Server {
	return &Server{users: users, invoices: invoices, log: log}
}

// Router builds the chi router with middleware, health and metrics
// endpoints, and the resource routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.OK(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/users", func(r chi.Router) {
		r.Post("/", s.createUser)
		r.Get("/", s.listUsers)
		r.Get("/{id}", s.getUser)
		r.Patch("/{id}", s.patchUser)
		r.Delete("/{id}", s.deleteUser)
	})

	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", s.createInvoice)
		r.Get("/", s.listInvoices)
		r.Get("/{id}", s.getInvoice)
		r.Post("/{id}/pay", s.payInvoice)
		r.Post("/{id}/request-payment", s.requestPayment)
	})

	return r
}

// pathID parses the {id} route parameter. Writes a 400 and returns false on
// a malformed id.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "invalid id: must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads limit and offset query parameters, clamping to sane
// bounds. Defaults: limit 50, offset 0; limit is capped at 100.
func pagination(r *http.Request) (limit, offset int) {
	limit, offset = 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// listResponse is the paging envelope for collection endpoints.
type listResponse struct {
	Items  any `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
