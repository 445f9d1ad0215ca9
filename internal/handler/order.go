package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/coffee-desk/internal/domain/order"
	"github.com/xenking/coffee-desk/internal/domain/report"
)

// PlaceOrder prices and stores an order against the caller's menu.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	req, err := decodePlaceRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s := current(r.Context())
	req.Owner = s.Email

	o, err := h.Placer.Place(r.Context(), s.Catalog, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	attrs := metric.WithAttributes(attribute.String("coffee", o.Coffee), attribute.String("size", string(o.Size)))
	h.ordersPlaced.Add(r.Context(), 1, attrs)
	h.salesAmount.Add(r.Context(), o.Total.InexactFloat64(), attrs)
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("coffee.order_id", o.ID))
	zctx.From(r.Context()).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("customer", o.Customer),
		zap.Stringer("total", o.Total),
	)

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, *o) })
}

// ListOrders returns orders filtered by ?customer= and the ?from=&to= day range.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.filtered(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrders(e, orders) })
}

// filtered loads every order and applies the customer and date range query
// parameters.
func (h *Handler) filtered(r *http.Request) ([]order.Order, error) {
	q := r.URL.Query()
	from, err := report.ParseDate(q.Get("from"))
	if err != nil {
		return nil, &badRequestError{reason: err.Error()}
	}
	to, err := report.ParseDate(q.Get("to"))
	if err != nil {
		return nil, &badRequestError{reason: err.Error()}
	}
	orders, err := h.Orders.List(r.Context())
	if err != nil {
		return nil, err
	}
	return report.Summarize(h.inLocation(orders), q.Get("customer"), report.DateRange{From: from, To: to}), nil
}

// inLocation converts timestamps to the shop's zone so that day boundaries
// match the shop's calendar.
func (h *Handler) inLocation(orders []order.Order) []order.Order {
	out := make([]order.Order, len(orders))
	for i, o := range orders {
		o.CreatedAt = o.CreatedAt.In(h.loc)
		out[i] = o
	}
	return out
}

// GetOrder returns one order by ID.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), r.PathValue("id"))
	h.respondOrder(w, r, o, err)
}

// DeliverOrder marks an order Delivered. Repeating it is harmless.
func (h *Handler) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.UpdateStatus(r.Context(), r.PathValue("id"), order.Delivered)
	h.respondOrder(w, r, o, err)
}

// UpdateOrder sets the status given in the body.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	status, err := decodeStatus(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.UpdateStatus(r.Context(), r.PathValue("id"), status)
	h.respondOrder(w, r, o, err)
}

// DeleteOrder removes an order and returns it.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Delete(r.Context(), r.PathValue("id"))
	h.respondOrder(w, r, o, err)
}

// DeliverOrderAt marks the order at a list position Delivered.
func (h *Handler) DeliverOrderAt(w http.ResponseWriter, r *http.Request) {
	h.atIndex(w, r, func(ctx context.Context, i int) (*order.Order, error) {
		return h.Orders.UpdateStatusAt(ctx, i, order.Delivered)
	})
}

// DeleteOrderAt removes the order at a list position.
func (h *Handler) DeleteOrderAt(w http.ResponseWriter, r *http.Request) {
	h.atIndex(w, r, h.Orders.DeleteAt)
}

func (h *Handler) atIndex(w http.ResponseWriter, r *http.Request, fn func(context.Context, int) (*order.Order, error)) {
	i, err := parseIndex(r.PathValue("index"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := fn(r.Context(), i)
	h.respondOrder(w, r, o, err)
}

func (h *Handler) respondOrder(w http.ResponseWriter, r *http.Request, o *order.Order, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("coffee.order_id", o.ID))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, *o) })
}
