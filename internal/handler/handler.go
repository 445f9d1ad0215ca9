// Package handler exposes the order desk over JSON/HTTP.
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/coffee-desk/internal/domain/account"
	"github.com/xenking/coffee-desk/internal/domain/order"
	"github.com/xenking/coffee-desk/internal/records"
	"github.com/xenking/coffee-desk/internal/session"
	"github.com/xenking/coffee-desk/pkg/httpmiddleware"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// Location is the shop's time zone; report days are computed in it.
	Location *time.Location
	// MaxUploadBytes caps menu uploads.
	MaxUploadBytes int64
}

// Deps are the collaborators a Handler delegates to.
type Deps struct {
	Accounts *account.Registry
	Sessions *session.Manager
	Orders   *order.Store
	Placer   *order.Service
	// LoginLimiter throttles login attempts per email. Optional.
	LoginLimiter *httpmiddleware.Limiter
}

// Handler serves the /api routes.
type Handler struct {
	Deps

	loc       *time.Location
	codec     records.Codec
	maxUpload int64
	now       func() time.Time

	ordersPlaced metric.Int64Counter
	salesAmount  metric.Float64Counter
}

// New constructs a Handler. Counters are registered on meter.
func New(cfg Config, deps Deps, meter metric.Meter) (*Handler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}

	ordersPlaced, err := meter.Int64Counter("coffee.orders.placed",
		metric.WithDescription("Orders placed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	salesAmount, err := meter.Float64Counter("coffee.sales.amount",
		metric.WithDescription("Sum of placed order totals"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "sales counter")
	}

	return &Handler{
		Deps:         deps,
		loc:          loc,
		codec:        records.Codec{Location: loc},
		maxUpload:    maxUpload,
		now:          time.Now,
		ordersPlaced: ordersPlaced,
		salesAmount:  salesAmount,
	}, nil
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/signup", h.SignUp)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.Handle("POST /api/logout", h.auth(h.Logout))

	mux.Handle("PUT /api/menu", h.auth(h.UploadMenu))
	mux.Handle("GET /api/menu", h.auth(h.GetMenu))

	mux.Handle("POST /api/orders", h.auth(h.PlaceOrder))
	mux.Handle("GET /api/orders", h.auth(h.ListOrders))
	mux.Handle("GET /api/orders/{id}", h.auth(h.GetOrder))
	mux.Handle("POST /api/orders/{id}/deliver", h.auth(h.DeliverOrder))
	mux.Handle("PATCH /api/orders/{id}", h.auth(h.UpdateOrder))
	mux.Handle("DELETE /api/orders/{id}", h.auth(h.DeleteOrder))
	mux.Handle("POST /api/orders/at/{index}/deliver", h.auth(h.DeliverOrderAt))
	mux.Handle("DELETE /api/orders/at/{index}", h.auth(h.DeleteOrderAt))

	mux.Handle("GET /api/reports/sales", h.auth(h.Sales))
	mux.Handle("GET /api/reports/{report}", h.auth(h.ExportReport))
	mux.Handle("GET /api/charts/coffee", h.auth(h.CoffeeChart))
}

// auth resolves the bearer token to a session and stores it in the request
// context.
func (h *Handler) auth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, errUnauthorized)
			return
		}
		s, ok := h.Sessions.Get(token)
		if !ok {
			writeError(w, r, errUnauthorized)
			return
		}
		trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("coffee.user", s.Email))
		next(w, r.WithContext(session.WithSession(r.Context(), s)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// current returns the session stored by auth.
func current(ctx context.Context) *session.Session {
	s, _ := session.FromContext(ctx)
	return s
}
