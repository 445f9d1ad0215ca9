// Package ingest bulk-loads order exports into the order record set.
package ingest

import (
	"context"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/coffee-desk/internal/domain/order"
	"github.com/xenking/coffee-desk/internal/records"
	"github.com/xenking/coffee-desk/internal/tabular"
)

const (
	// Pattern matches export files in an import directory.
	Pattern = "*.csv.gz"

	bloomFPR = 0.001
)

// Store is the part of order.Store used by the importer.
type Store interface {
	List(ctx context.Context) ([]order.Order, error)
	Append(ctx context.Context, batch []*order.Order) error
}

// Result summarises an import run.
type Result struct {
	Files      int
	Read       int
	Duplicates int
	Imported   int
}

// Importer reads order exports concurrently and appends every order not
// already present in the store.
type Importer struct {
	store   Store
	codec   records.Codec
	lg      *zap.Logger
	workers int
}

// New creates an Importer. workers bounds concurrent file reads; zero or
// less means one per file.
func New(store Store, codec records.Codec, lg *zap.Logger, workers int) *Importer {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Importer{store: store, codec: codec, lg: lg, workers: workers}
}

// Files lists the export files in dir in name order.
func Files(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, Pattern))
	if err != nil {
		return nil, errors.Wrapf(err, "glob %s", dir)
	}
	slices.Sort(files)
	return files, nil
}

// Run imports files. Orders are appended in file order, then row order.
// An order is a duplicate when its ID or its fingerprint matches an order
// already in the store or earlier in the run. With dryRun the store is not
// written.
func (im *Importer) Run(ctx context.Context, files []string, dryRun bool) (Result, error) {
	res := Result{Files: len(files)}
	if len(files) == 0 {
		return res, nil
	}

	batches, err := im.readAll(ctx, files)
	if err != nil {
		return res, err
	}
	for _, b := range batches {
		res.Read += len(b)
	}

	existing, err := im.store.List(ctx)
	if err != nil {
		return res, errors.Wrap(err, "list existing orders")
	}

	d := newDeduper(uint(len(existing) + res.Read))
	for _, o := range existing {
		d.add(&o)
	}

	var fresh []*order.Order
	for i, b := range batches {
		dups := 0
		for j := range b {
			o := &b[j]
			if d.seen(o) {
				dups++
				continue
			}
			d.add(o)
			fresh = append(fresh, o)
		}
		res.Duplicates += dups
		im.lg.Info("File scanned",
			zap.String("file", files[i]),
			zap.Int("orders", len(b)),
			zap.Int("duplicates", dups),
		)
	}

	if len(fresh) == 0 || dryRun {
		return res, nil
	}
	if err := im.store.Append(ctx, fresh); err != nil {
		return res, errors.Wrap(err, "append orders")
	}
	res.Imported = len(fresh)
	return res, nil
}

func (im *Importer) readAll(ctx context.Context, files []string) ([][]order.Order, error) {
	batches := make([][]order.Order, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if im.workers > 0 {
		g.SetLimit(im.workers)
	}
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			orders, err := im.readFile(path)
			if err != nil {
				return err
			}
			batches[i] = orders
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

func (im *Importer) readFile(path string) ([]order.Order, error) {
	t, err := tabular.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	orders, err := im.codec.DecodeOrders(t)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return orders, nil
}

// deduper tracks IDs and fingerprints of known orders. The bloom filter
// answers most misses without touching the exact sets.
type deduper struct {
	filter *bloom.BloomFilter
	ids    map[string]struct{}
	prints map[string]struct{}
}

func newDeduper(n uint) *deduper {
	return &deduper{
		filter: bloom.NewWithEstimates(max(n, 1)*2, bloomFPR),
		ids:    make(map[string]struct{}, n),
		prints: make(map[string]struct{}, n),
	}
}

func (d *deduper) seen(o *order.Order) bool {
	if _, ok := d.ids[o.ID]; ok {
		return true
	}
	fp := Fingerprint(o)
	if !d.filter.TestString(fp) {
		return false
	}
	_, ok := d.prints[fp]
	return ok
}

func (d *deduper) add(o *order.Order) {
	fp := Fingerprint(o)
	d.filter.AddString(fp)
	d.prints[fp] = struct{}{}
	d.ids[o.ID] = struct{}{}
}

// Fingerprint identifies an order by content, ignoring its ID and status.
func Fingerprint(o *order.Order) string {
	return strings.Join([]string{
		o.Customer,
		o.Mobile,
		o.Address,
		o.Coffee,
		string(o.Size),
		strconv.Itoa(o.Quantity),
		o.UnitPrice.String(),
		o.Tip.String(),
		o.Total.String(),
		o.CreatedAt.UTC().Format(time.RFC3339),
		o.Owner,
	}, "\x1f")
}
