package records

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/coffee-desk/internal/domain/account"
	"github.com/xenking/coffee-desk/internal/domain/order"
	"github.com/xenking/coffee-desk/internal/domain/pricing"
	"github.com/xenking/coffee-desk/internal/tabular"
)

func sampleOrder() order.Order {
	return order.Order{
		ID:        "8b0f6f5e-3c56-4a8e-9b43-1f3cbd1c7a10",
		Customer:  "Ann Lee",
		Mobile:    "555-0100",
		Address:   "1 Bean St",
		Coffee:    "Latte",
		Size:      pricing.Large,
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("4.00"),
		Tip:       decimal.NewFromInt(1),
		Total:     decimal.RequireFromString("13.00"),
		CreatedAt: time.Date(2024, 3, 5, 9, 30, 15, 0, time.UTC),
		Status:    order.Delivered,
		Owner:     "ann@example.com",
	}
}

func TestCodec_OrdersRoundTrip(t *testing.T) {
	codec := Codec{Location: time.UTC}
	in := sampleOrder()

	table := codec.EncodeOrders([]order.Order{in})
	assert.Equal(t, OrderColumns, table.Header)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "2024-03-05 09:30:15", table.Rows[0][10])

	out, err := codec.DecodeOrders(table)
	require.NoError(t, err)
	require.Len(t, out, 1)

	got := out[0]
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.Customer, got.Customer)
	assert.Equal(t, in.Size, got.Size)
	assert.Equal(t, in.Quantity, got.Quantity)
	assert.True(t, in.UnitPrice.Equal(got.UnitPrice))
	assert.True(t, in.Tip.Equal(got.Tip))
	assert.True(t, in.Total.Equal(got.Total))
	assert.True(t, in.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, in.Status, got.Status)
	assert.Equal(t, in.Owner, got.Owner)
}

func TestCodec_LocationWallClock(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	codec := Codec{Location: loc}
	in := sampleOrder()

	table := codec.EncodeOrders([]order.Order{in})
	assert.Equal(t, "2024-03-05 14:30:15", table.Rows[0][10])

	out, err := codec.DecodeOrders(table)
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out[0].CreatedAt))
}

func TestCodec_DecodeLegacyTable(t *testing.T) {
	codec := Codec{Location: time.UTC}
	table := &tabular.Table{
		Header: []string{"Customer", "Coffee", "Size", "Qty", "Price", "Tip", "Total", "Time"},
		Rows: [][]string{
			{"Ann", "Latte", "Small", "1", "4", "0", "4", "2024-01-02 08:00:00"},
			{"Ann", "Latte", "Small", "1", "4", "0", "4", "2024-01-02 08:00:00"},
			{"Bob", "Mocha", "Medium", "2.0", "5", "", "12.5", "45356.5"},
		},
	}

	first, err := codec.DecodeOrders(table)
	require.NoError(t, err)
	require.Len(t, first, 3)

	for _, o := range first {
		assert.NotEmpty(t, o.ID)
		assert.Equal(t, order.Pending, o.Status)
	}
	assert.NotEqual(t, first[0].ID, first[1].ID, "identical rows get distinct IDs")

	again, err := codec.DecodeOrders(table)
	require.NoError(t, err)
	for i := range first {
		assert.Equal(t, first[i].ID, again[i].ID, "IDs are stable across reads")
	}

	bob := first[2]
	assert.Equal(t, 2, bob.Quantity)
	assert.True(t, bob.Tip.IsZero())
	assert.Equal(t, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), bob.CreatedAt)
}

func TestCodec_DecodeErrors(t *testing.T) {
	header := []string{"Customer", "Coffee", "Size", "Qty", "Price", "Tip", "Total", "Time", "Status"}
	valid := []string{"Ann", "Latte", "Small", "1", "4", "0", "4", "2024-01-02 08:00:00", "Pending"}

	tests := []struct {
		name       string
		table      *tabular.Table
		wantColumn string
		wantMiss   []string
	}{
		{
			name:     "missing columns",
			table:    &tabular.Table{Header: []string{"Customer", "Coffee"}},
			wantMiss: []string{"Size", "Qty", "Price", "Tip", "Total", "Time"},
		},
		{name: "bad size", table: withCell(header, valid, 2, "Huge"), wantColumn: ColSize},
		{name: "bad qty", table: withCell(header, valid, 3, "1.5"), wantColumn: ColQty},
		{name: "bad price", table: withCell(header, valid, 4, "four"), wantColumn: ColPrice},
		{name: "bad time", table: withCell(header, valid, 7, "yesterday"), wantColumn: ColTime},
		{name: "bad status", table: withCell(header, valid, 8, "Lost"), wantColumn: ColStatus},
	}

	codec := Codec{Location: time.UTC}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.DecodeOrders(tt.table)
			var schemaErr *tabular.SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, tt.wantMiss, schemaErr.Missing)
			assert.Equal(t, tt.wantColumn, schemaErr.Column)
			if tt.wantColumn != "" {
				assert.Equal(t, 1, schemaErr.Row)
			}
		})
	}
}

func withCell(header, row []string, col int, value string) *tabular.Table {
	r := append([]string(nil), row...)
	r[col] = value
	return &tabular.Table{Header: header, Rows: [][]string{r}}
}

func TestAccounts(t *testing.T) {
	in := []account.Account{
		{Email: "ann@example.com", Password: " spaced "},
		{Email: "bob@example.com", Password: "hunter2"},
	}
	table := EncodeAccounts(in)
	table.Append("", "orphan")

	out, err := DecodeAccounts(table)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeAccounts(&tabular.Table{Header: []string{"Email"}})
	var schemaErr *tabular.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"Password"}, schemaErr.Missing)
}
