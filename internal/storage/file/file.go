// Package file persists record sets as table files on local disk. The
// format follows the file extension: .xlsx, .csv or .csv.gz.
package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/coffee-desk/internal/domain/account"
	"github.com/xenking/coffee-desk/internal/domain/order"
	"github.com/xenking/coffee-desk/internal/records"
	"github.com/xenking/coffee-desk/internal/tabular"
)

// tableFile reads and replaces a whole table file. Replacement writes a
// temporary file in the same directory and renames it over the target, so
// readers never observe a partial table.
type tableFile struct {
	path   string
	format tabular.Format

	mu sync.RWMutex
}

func newTableFile(path string) (*tableFile, error) {
	format, err := tabular.FormatFor(path)
	if err != nil {
		return nil, err
	}
	return &tableFile{path: path, format: format}, nil
}

// read returns the table, or nil when the file does not exist yet.
func (f *tableFile) read(ctx context.Context) (*tabular.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	t, err := tabular.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return t, err
}

func (f *tableFile) replace(ctx context.Context, t *tabular.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tabular.Write(tmp, t, f.format); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write %s", f.path)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return errors.Wrapf(err, "replace %s", f.path)
	}
	return nil
}

// ping checks that the containing directory is usable.
func (f *tableFile) ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrapf(err, "stat %s", dir)
	}
	if !info.IsDir() {
		return errors.Errorf("%s is not a directory", dir)
	}
	return nil
}

var _ order.RecordSet = (*OrderTable)(nil)

// OrderTable stores orders in a single table file.
type OrderTable struct {
	file  *tableFile
	codec records.Codec
}

// NewOrderTable returns an OrderTable at path. The file is created on the
// first write.
func NewOrderTable(path string, codec records.Codec) (*OrderTable, error) {
	f, err := newTableFile(path)
	if err != nil {
		return nil, err
	}
	return &OrderTable{file: f, codec: codec}, nil
}

func (t *OrderTable) Load(ctx context.Context) ([]order.Order, error) {
	table, err := t.file.read(ctx)
	if err != nil || table == nil || (len(table.Header) == 0 && table.Len() == 0) {
		return nil, err
	}
	return t.codec.DecodeOrders(table)
}

func (t *OrderTable) Replace(ctx context.Context, orders []order.Order) error {
	return t.file.replace(ctx, t.codec.EncodeOrders(orders))
}

func (t *OrderTable) Ping(ctx context.Context) error {
	return t.file.ping(ctx)
}

var _ account.RecordSet = (*AccountTable)(nil)

// AccountTable stores credentials in a single table file.
type AccountTable struct {
	file *tableFile
}

func NewAccountTable(path string) (*AccountTable, error) {
	f, err := newTableFile(path)
	if err != nil {
		return nil, err
	}
	return &AccountTable{file: f}, nil
}

func (t *AccountTable) Load(ctx context.Context) ([]account.Account, error) {
	table, err := t.file.read(ctx)
	if err != nil || table == nil || (len(table.Header) == 0 && table.Len() == 0) {
		return nil, err
	}
	return records.DecodeAccounts(table)
}

func (t *AccountTable) Replace(ctx context.Context, accounts []account.Account) error {
	return t.file.replace(ctx, records.EncodeAccounts(accounts))
}

func (t *AccountTable) Ping(ctx context.Context) error {
	return t.file.ping(ctx)
}
