//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/coffee-desk/internal/domain/account"
	"github.com/xenking/coffee-desk/internal/domain/order"
	"github.com/xenking/coffee-desk/internal/domain/pricing"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "coffee",
				"POSTGRES_PASSWORD": "coffee",
				"POSTGRES_DB":       "coffee",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err)

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pool, err := NewPool(ctx, fmt.Sprintf("postgres://coffee:coffee@%s:%s/coffee?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	require.NoError(t, RunMigrations(ctx, pool), "schema is idempotent")
	return pool
}

func TestRecords(t *testing.T) {
	pool := startPostgres(t)

	t.Run("orders", func(t *testing.T) {
		ctx := context.Background()
		records := NewOrderRecords(pool, time.UTC)
		require.NoError(t, records.Ping(ctx))

		got, err := records.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)

		store := order.NewStore(records)
		created := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
		var ids []string
		for _, name := range []string{"Ann", "Bob", "Cid"} {
			o := &order.Order{
				Customer:  name,
				Coffee:    "Latte",
				Size:      pricing.Large,
				Quantity:  2,
				UnitPrice: decimal.RequireFromString("4.00"),
				Tip:       decimal.NewFromInt(1),
				Total:     decimal.RequireFromString("13.00"),
				CreatedAt: created,
			}
			require.NoError(t, store.Create(ctx, o))
			ids = append(ids, o.ID)
		}

		_, err = store.UpdateStatus(ctx, ids[2], order.Delivered)
		require.NoError(t, err)
		_, err = store.Delete(ctx, ids[0])
		require.NoError(t, err)

		got, err = records.Load(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Bob", got[0].Customer)
		assert.Equal(t, "Cid", got[1].Customer)
		assert.Equal(t, order.Delivered, got[1].Status)
		assert.True(t, decimal.RequireFromString("13").Equal(got[0].Total))
		assert.True(t, created.Equal(got[0].CreatedAt))
	})

	t.Run("accounts", func(t *testing.T) {
		ctx := context.Background()
		reg := account.NewRegistry(NewAccountRecords(pool))

		_, err := reg.SignUp(ctx, "ann@example.com", "pw")
		require.NoError(t, err)
		_, err = reg.SignUp(ctx, "ann@example.com", "pw")
		require.ErrorIs(t, err, account.ErrUserExists)

		_, err = reg.Login(ctx, "ann@example.com", "nope")
		require.ErrorIs(t, err, account.ErrIncorrectPassword)
	})
}
