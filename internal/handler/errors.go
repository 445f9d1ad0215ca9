package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/coffee-desk/internal/domain/account"
	"github.com/xenking/coffee-desk/internal/domain/menu"
	"github.com/xenking/coffee-desk/internal/domain/order"
	"github.com/xenking/coffee-desk/internal/domain/pricing"
	"github.com/xenking/coffee-desk/internal/tabular"
	"github.com/xenking/coffee-desk/pkg/httpmiddleware"
)

var (
	errUnauthorized = errors.New("unauthorized")
	errTooManyLogin = errors.New("too many login attempts")
)

// statusOf maps domain errors to HTTP status codes. Unknown errors are 500.
func statusOf(err error) int {
	var (
		badReq     *badRequestError
		schemaErr  *tabular.SchemaError
		validErr   *order.ValidationError
		sizeErr    *pricing.InvalidSizeError
		inputErr   *pricing.InvalidInputError
		coffeeErr  *menu.NotFoundError
		notFound   *order.NotFoundError
		indexErr   *order.IndexError
		transition *order.TransitionError
	)
	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest
	case errors.As(err, &schemaErr),
		errors.As(err, &validErr),
		errors.As(err, &sizeErr),
		errors.As(err, &inputErr),
		errors.As(err, &coffeeErr),
		errors.Is(err, account.ErrEmailRequired):
		return http.StatusUnprocessableEntity
	case errors.As(err, &notFound), errors.As(err, &indexErr):
		return http.StatusNotFound
	case errors.As(err, &transition),
		errors.Is(err, order.ErrMenuNotLoaded),
		errors.Is(err, account.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, errUnauthorized),
		errors.Is(err, account.ErrEmailNotFound),
		errors.Is(err, account.ErrIncorrectPassword):
		return http.StatusUnauthorized
	case errors.Is(err, errTooManyLogin):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with the mapped status. Server errors are logged and
// their details hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal error"
		span := trace.SpanFromContext(r.Context())
		span.RecordError(err)
		span.SetStatus(codes.Error, "internal error")
	}
	httpmiddleware.WriteError(w, status, msg)
}

func logWriteError(r *http.Request, err error) {
	zctx.From(r.Context()).Error("Write response", zap.Error(err))
}
