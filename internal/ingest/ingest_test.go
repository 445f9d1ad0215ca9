package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/coffee-desk/internal/domain/order"
	"github.com/xenking/coffee-desk/internal/domain/pricing"
	"github.com/xenking/coffee-desk/internal/records"
	"github.com/xenking/coffee-desk/internal/tabular"
)

type memRecords struct {
	orders   []order.Order
	replaces int
}

func (m *memRecords) Load(_ context.Context) ([]order.Order, error) {
	return append([]order.Order(nil), m.orders...), nil
}

func (m *memRecords) Replace(_ context.Context, orders []order.Order) error {
	m.replaces++
	m.orders = append([]order.Order(nil), orders...)
	return nil
}

var legacyHeader = []string{"Customer", "Mobile", "Address", "Coffee", "Size", "Qty", "Price", "Tip", "Total", "Time"}

func writeExport(t *testing.T, dir, name string, rows ...[]string) string {
	t.Helper()
	table := tabular.New(legacyHeader...)
	for _, r := range rows {
		table.Append(r...)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.NoError(t, tabular.WriteCSVGzip(f, table))
	return path
}

func row(customer, when string) []string {
	return []string{customer, "555-0100", "1 Bean St", "Latte", "Large", "2", "4.00", "1", "13.00", when}
}

func names(orders []order.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.Customer
	}
	return out
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "b.csv.gz")
	writeExport(t, dir, "a.csv.gz")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	files, err := Files(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.csv.gz"), filepath.Join(dir, "b.csv.gz")}, files)
}

func TestImporter_Run(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "1.csv.gz",
		row("Ann", "2024-03-05 09:00:00"),
		row("Bob", "2024-03-05 10:00:00"),
	)
	writeExport(t, dir, "2.csv.gz",
		row("Cid", "2024-03-06 09:00:00"),
		row("Bob", "2024-03-05 10:00:00"),
		row("Dee", "2024-03-06 11:00:00"),
	)
	writeExport(t, dir, "3.csv.gz",
		row("Eve", "2024-03-07 12:00:00"),
	)

	codec := records.Codec{Location: time.UTC}
	recs := &memRecords{orders: []order.Order{{
		ID:        "existing",
		Customer:  "Eve",
		Mobile:    "555-0100",
		Address:   "1 Bean St",
		Coffee:    "Latte",
		Size:      pricing.Large,
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("4"),
		Tip:       decimal.NewFromInt(1),
		Total:     decimal.RequireFromString("13"),
		CreatedAt: time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC),
		Status:    order.Delivered,
	}}}
	store := order.NewStore(recs)
	files, err := Files(dir)
	require.NoError(t, err)

	im := New(store, codec, zaptest.NewLogger(t), 2)
	res, err := im.Run(context.Background(), files, false)
	require.NoError(t, err)

	assert.Equal(t, Result{Files: 3, Read: 6, Duplicates: 2, Imported: 4}, res)
	assert.Equal(t, []string{"Eve", "Ann", "Bob", "Cid", "Dee"}, names(recs.orders))
	assert.Equal(t, 1, recs.replaces, "single rewrite")
	for _, o := range recs.orders[1:] {
		assert.Equal(t, order.Pending, o.Status)
		assert.NotEmpty(t, o.ID)
	}

	// A second run over the same files finds nothing new.
	res, err = im.Run(context.Background(), files, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 6, res.Duplicates)
	assert.Equal(t, 1, recs.replaces)
}

func TestImporter_DryRun(t *testing.T) {
	dir := t.TempDir()
	path := writeExport(t, dir, "1.csv.gz", row("Ann", "2024-03-05 09:00:00"))

	recs := &memRecords{}
	im := New(order.NewStore(recs), records.Codec{Location: time.UTC}, nil, 0)
	res, err := im.Run(context.Background(), []string{path}, true)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Read)
	assert.Zero(t, res.Imported)
	assert.Zero(t, recs.replaces)
}

func TestImporter_BadFile(t *testing.T) {
	dir := t.TempDir()
	good := writeExport(t, dir, "1.csv.gz", row("Ann", "2024-03-05 09:00:00"))
	bad := writeExport(t, dir, "2.csv.gz", []string{"Bob", "", "", "Latte", "Huge", "1", "4", "0", "4", "2024-03-05 09:00:00"})

	recs := &memRecords{}
	im := New(order.NewStore(recs), records.Codec{Location: time.UTC}, nil, 0)
	_, err := im.Run(context.Background(), []string{good, bad}, false)
	require.Error(t, err)

	var schemaErr *tabular.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "Size", schemaErr.Column)
	assert.Empty(t, recs.orders, "nothing appended")
}

func TestImporter_NoFiles(t *testing.T) {
	recs := &memRecords{}
	res, err := New(order.NewStore(recs), records.Codec{}, nil, 0).Run(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Zero(t, recs.replaces)
}

func TestFingerprint(t *testing.T) {
	a := order.Order{ID: "1", Customer: "Ann", Status: order.Pending, CreatedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	b := a
	b.ID = "2"
	b.Status = order.Delivered
	b.CreatedAt = a.CreatedAt.In(time.FixedZone("X", 3600))
	assert.Equal(t, Fingerprint(&a), Fingerprint(&b))

	b.Customer = "Bob"
	assert.NotEqual(t, Fingerprint(&a), Fingerprint(&b))
}
