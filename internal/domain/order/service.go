package order

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/coffee-desk/internal/domain/pricing"
)

// Catalog resolves unit prices for order placement.
type Catalog interface {
	Loaded() bool
	Lookup(name string) (decimal.Decimal, error)
}

// PlaceRequest holds the input for placing an order.
type PlaceRequest struct {
	Customer string
	Mobile   string
	Address  string
	Coffee   string
	Size     string
	Quantity int
	Tip      decimal.Decimal
	Owner    string
}

// Service encapsulates order placement business logic.
type Service struct {
	store *Store
	now   func() time.Time
}

// NewService creates an order Service persisting through store. Order
// timestamps are taken in loc.
func NewService(store *Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().In(loc) },
	}
}

// Place prices the request against catalog, snapshots the unit price and
// persists a new Pending order.
func (s *Service) Place(ctx context.Context, catalog Catalog, req PlaceRequest) (*Order, error) {
	if !catalog.Loaded() {
		return nil, ErrMenuNotLoaded
	}
	if strings.TrimSpace(req.Customer) == "" {
		return nil, &ValidationError{Field: "customer", Reason: "name required"}
	}

	size, err := pricing.ParseSize(req.Size)
	if err != nil {
		return nil, err
	}
	price, err := catalog.Lookup(req.Coffee)
	if err != nil {
		return nil, err
	}
	total, err := pricing.ComputeTotal(price, size, req.Quantity, req.Tip)
	if err != nil {
		return nil, err
	}

	o := &Order{
		Customer:  req.Customer,
		Mobile:    req.Mobile,
		Address:   req.Address,
		Coffee:    req.Coffee,
		Size:      size,
		Quantity:  req.Quantity,
		UnitPrice: price,
		Tip:       req.Tip,
		Total:     total,
		CreatedAt: s.now().Truncate(time.Second),
		Status:    Pending,
		Owner:     req.Owner,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}
