package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/coffee-desk/internal/domain/pricing"
)

// Status is the delivery state of an order.
type Status string

const (
	// Pending is the initial status of every order.
	Pending Status = "Pending"
	// Delivered is terminal.
	Delivered Status = "Delivered"
)

// ParseStatus converts a status name to a Status. An empty name reads as
// Pending, matching record sets written before the status column existed.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case Pending, "":
		return Pending, nil
	case Delivered:
		return Delivered, nil
	default:
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
	}
}

// Order is a single priced coffee order.
//
// Total is computed once at creation from UnitPrice, Size, Quantity and Tip
// and is never recomputed afterwards.
type Order struct {
	ID        string
	Customer  string
	Mobile    string
	Address   string
	Coffee    string
	Size      pricing.Size
	Quantity  int
	UnitPrice decimal.Decimal
	Tip       decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
	Status    Status
	// Owner is the email of the user who placed the order.
	Owner string
}

// RecordSet is the persisted collection of orders. It supports only a
// full read and a full replace; every mutation rewrites the whole set.
type RecordSet interface {
	Load(ctx context.Context) ([]Order, error)
	Replace(ctx context.Context, orders []Order) error
}

// ErrMenuNotLoaded is returned when an order is placed before any menu upload.
var ErrMenuNotLoaded = errors.New("menu not loaded: upload a menu first")

// ValidationError indicates a missing or malformed order field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IndexError indicates a positional reference outside the current record set.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("order index %d out of range [0,%d)", e.Index, e.Len)
}

// NotFoundError indicates an order ID that is not in the record set.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %s not found", e.ID)
}

// TransitionError indicates a status change the state machine does not allow.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}
