package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/coffee-desk/internal/domain/menu"
	"github.com/xenking/coffee-desk/internal/domain/pricing"
	"github.com/xenking/coffee-desk/internal/tabular"
)

func newTestCatalog(t *testing.T) *menu.Catalog {
	t.Helper()
	c := menu.NewCatalog()
	require.NoError(t, c.Load(&tabular.Table{
		Header: []string{"Coffee", "Price"},
		Rows: [][]string{
			{"Latte", "4.00"},
			{"Espresso", "2.50"},
		},
	}))
	return c
}

func newTestService(records *memRecords) *Service {
	svc := NewService(newTestStore(records), time.UTC)
	svc.now = func() time.Time { return time.Date(2024, 3, 5, 9, 30, 15, 999, time.UTC) }
	return svc
}

func validRequest() PlaceRequest {
	return PlaceRequest{
		Customer: "Joanna",
		Mobile:   "555-0100",
		Address:  "1 Bean St",
		Coffee:   "Latte",
		Size:     "Large",
		Quantity: 2,
		Tip:      decimal.NewFromInt(1),
		Owner:    "barista@example.com",
	}
}

func TestService_Place(t *testing.T) {
	records := &memRecords{}
	svc := newTestService(records)

	o, err := svc.Place(context.Background(), newTestCatalog(t), validRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, Pending, o.Status)
	assert.Equal(t, pricing.Large, o.Size)
	assert.True(t, decimal.RequireFromString("4.00").Equal(o.UnitPrice))
	assert.True(t, decimal.RequireFromString("13.00").Equal(o.Total), "got %s", o.Total)
	assert.Equal(t, time.Date(2024, 3, 5, 9, 30, 15, 0, time.UTC), o.CreatedAt)
	assert.Equal(t, "barista@example.com", o.Owner)

	require.Len(t, records.orders, 1)
	assert.Equal(t, *o, records.orders[0])
}

func TestService_PlaceSnapshotsPrice(t *testing.T) {
	records := &memRecords{}
	svc := newTestService(records)
	catalog := newTestCatalog(t)

	first, err := svc.Place(context.Background(), catalog, validRequest())
	require.NoError(t, err)

	require.NoError(t, catalog.Load(&tabular.Table{
		Header: []string{"Coffee", "Price"},
		Rows:   [][]string{{"Latte", "9.00"}},
	}))

	list, err := svc.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, first.Total.Equal(list[0].Total), "menu change does not reprice stored orders")
	assert.True(t, decimal.RequireFromString("4.00").Equal(list[0].UnitPrice))
}

func TestService_PlaceErrors(t *testing.T) {
	tests := []struct {
		name    string
		catalog func(t *testing.T) *menu.Catalog
		modify  func(r *PlaceRequest)
		check   func(t *testing.T, err error)
	}{
		{
			name:    "menu not loaded",
			catalog: func(*testing.T) *menu.Catalog { return menu.NewCatalog() },
			modify:  func(*PlaceRequest) {},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMenuNotLoaded)
			},
		},
		{
			name:   "blank customer",
			modify: func(r *PlaceRequest) { r.Customer = "  " },
			check: func(t *testing.T, err error) {
				var vErr *ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, "customer", vErr.Field)
			},
		},
		{
			name:   "unknown size",
			modify: func(r *PlaceRequest) { r.Size = "Huge" },
			check: func(t *testing.T, err error) {
				var sErr *pricing.InvalidSizeError
				require.ErrorAs(t, err, &sErr)
				assert.Equal(t, "Huge", sErr.Size)
			},
		},
		{
			name:   "coffee not on menu",
			modify: func(r *PlaceRequest) { r.Coffee = "Mocha" },
			check: func(t *testing.T, err error) {
				var nf *menu.NotFoundError
				require.ErrorAs(t, err, &nf)
				assert.Equal(t, "Mocha", nf.Name)
			},
		},
		{
			name:   "quantity out of range",
			modify: func(r *PlaceRequest) { r.Quantity = 11 },
			check: func(t *testing.T, err error) {
				var inErr *pricing.InvalidInputError
				require.ErrorAs(t, err, &inErr)
				assert.Equal(t, "quantity", inErr.Field)
			},
		},
		{
			name:   "negative tip",
			modify: func(r *PlaceRequest) { r.Tip = decimal.NewFromInt(-1) },
			check: func(t *testing.T, err error) {
				var inErr *pricing.InvalidInputError
				require.ErrorAs(t, err, &inErr)
				assert.Equal(t, "tip", inErr.Field)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := &memRecords{}
			svc := newTestService(records)

			catalog := newTestCatalog(t)
			if tt.catalog != nil {
				catalog = tt.catalog(t)
			}
			req := validRequest()
			tt.modify(&req)

			o, err := svc.Place(context.Background(), catalog, req)
			require.Error(t, err)
			assert.Nil(t, o)
			tt.check(t, err)
			assert.Zero(t, records.replaces, "nothing persisted")
		})
	}
}
