package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/coffee-desk/internal/domain/account"
	"github.com/xenking/coffee-desk/internal/domain/order"
	"github.com/xenking/coffee-desk/internal/records"
	"github.com/xenking/coffee-desk/internal/storage/file"
	"github.com/xenking/coffee-desk/internal/storage/postgres"
)

// Pinger reports backend availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Storage is the opened persistence backend.
type Storage struct {
	Orders interface {
		order.RecordSet
		Pinger
	}
	Accounts interface {
		account.RecordSet
		Pinger
	}
	close func()
}

// Close releases backend resources.
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage opens the configured backend. Postgres schema migrations are
// applied on open.
func OpenStorage(ctx context.Context, lg *zap.Logger, cfg StorageConfig, loc *time.Location) (*Storage, error) {
	switch cfg.Driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		lg.Info("Running migrations")
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &Storage{
			Orders:   postgres.NewOrderRecords(pool, loc),
			Accounts: postgres.NewAccountRecords(pool),
			close:    pool.Close,
		}, nil

	case DriverFile:
		orders, err := file.NewOrderTable(cfg.OrdersFile, records.Codec{Location: loc})
		if err != nil {
			return nil, errors.Wrap(err, "orders file")
		}
		accounts, err := file.NewAccountTable(cfg.UsersFile)
		if err != nil {
			return nil, errors.Wrap(err, "users file")
		}
		lg.Info("Using file storage",
			zap.String("orders", cfg.OrdersFile),
			zap.String("users", cfg.UsersFile),
		)
		return &Storage{Orders: orders, Accounts: accounts}, nil

	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
