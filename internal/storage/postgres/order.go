package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/coffee-desk/internal/domain/order"
	"github.com/xenking/coffee-desk/internal/domain/pricing"
)

const listOrdersSQL = `SELECT id, customer, mobile, address, coffee, size, quantity,
	unit_price, tip, total, created_at, status, owner
	FROM orders ORDER BY position`

var orderColumns = []string{
	"position", "id", "customer", "mobile", "address", "coffee", "size", "quantity",
	"unit_price", "tip", "total", "created_at", "status", "owner",
}

var _ order.RecordSet = (*OrderRecords)(nil)

// OrderRecords implements order.RecordSet backed by PostgreSQL.
type OrderRecords struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewOrderRecords returns OrderRecords using pool. Loaded timestamps are
// converted to loc.
func NewOrderRecords(pool *pgxpool.Pool, loc *time.Location) *OrderRecords {
	if loc == nil {
		loc = time.Local
	}
	return &OrderRecords{pool: pool, loc: loc}
}

func (r *OrderRecords) Load(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Order, error) {
		var (
			o            order.Order
			size, status string
		)
		err := row.Scan(
			&o.ID, &o.Customer, &o.Mobile, &o.Address, &o.Coffee, &size, &o.Quantity,
			&o.UnitPrice, &o.Tip, &o.Total, &o.CreatedAt, &status, &o.Owner,
		)
		o.Size = pricing.Size(size)
		o.Status = order.Status(status)
		o.CreatedAt = o.CreatedAt.In(r.loc)
		return o, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	return orders, nil
}

func (r *OrderRecords) Replace(ctx context.Context, orders []order.Order) error {
	return replaceAll(ctx, r.pool, "orders", orderColumns, len(orders), func(i int) []any {
		o := orders[i]
		return []any{
			i, o.ID, o.Customer, o.Mobile, o.Address, o.Coffee, string(o.Size), o.Quantity,
			o.UnitPrice, o.Tip, o.Total, o.CreatedAt, string(o.Status), o.Owner,
		}
	})
}

// Ping checks database connectivity.
func (r *OrderRecords) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
