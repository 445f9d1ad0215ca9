package order

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Store owns the order record set. Every mutation reads the full set,
// applies the change and replaces the full set. A mutex serialises
// mutations within the process; writers in other processes are not
// coordinated with.
type Store struct {
	records RecordSet
	newID   func() string

	mu sync.Mutex
}

// NewStore creates a Store persisting to records.
func NewStore(records RecordSet) *Store {
	return &Store{
		records: records,
		newID:   func() string { return uuid.New().String() },
	}
}

// ledger is an insertion-ordered view of a loaded record set keyed by ID.
type ledger struct {
	orders []Order
	pos    map[string]int
}

func newLedger(orders []Order) *ledger {
	l := &ledger{orders: orders}
	l.reindex()
	return l
}

func (l *ledger) reindex() {
	l.pos = make(map[string]int, len(l.orders))
	for i, o := range l.orders {
		l.pos[o.ID] = i
	}
}

func (l *ledger) find(id string) (int, error) {
	i, ok := l.pos[id]
	if !ok {
		return 0, &NotFoundError{ID: id}
	}
	return i, nil
}

func (l *ledger) at(index int) (int, error) {
	if index < 0 || index >= len(l.orders) {
		return 0, &IndexError{Index: index, Len: len(l.orders)}
	}
	return index, nil
}

func (l *ledger) remove(i int) {
	l.orders = slices.Delete(l.orders, i, i+1)
	l.reindex()
}

func (s *Store) load(ctx context.Context) (*ledger, error) {
	orders, err := s.records.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load orders")
	}
	return newLedger(orders), nil
}

func (s *Store) save(ctx context.Context, l *ledger) error {
	if err := s.records.Replace(ctx, l.orders); err != nil {
		return errors.Wrap(err, "replace orders")
	}
	return nil
}

// Create validates o, assigns an ID and Pending status when unset, and
// appends it to the record set. o is updated in place.
func (s *Store) Create(ctx context.Context, o *Order) error {
	return s.Append(ctx, []*Order{o})
}

// Append creates several orders with a single rewrite of the record set.
// Either all orders are appended or none; on failure the batch is left
// untouched.
func (s *Store) Append(ctx context.Context, batch []*Order) error {
	for _, o := range batch {
		if err := validateNew(o); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.load(ctx)
	if err != nil {
		return err
	}
	added := make([]Order, len(batch))
	for i, o := range batch {
		n := *o
		if n.ID == "" {
			n.ID = s.newID()
		}
		if n.Status == "" {
			n.Status = Pending
		}
		if _, dup := l.pos[n.ID]; dup {
			return &ValidationError{Field: "id", Reason: "duplicate order id " + n.ID}
		}
		l.pos[n.ID] = len(l.orders)
		l.orders = append(l.orders, n)
		added[i] = n
	}
	if err := s.save(ctx, l); err != nil {
		return err
	}
	for i, o := range batch {
		*o = added[i]
	}
	return nil
}

func validateNew(o *Order) error {
	if strings.TrimSpace(o.Customer) == "" {
		return &ValidationError{Field: "customer", Reason: "name required"}
	}
	if o.Status != "" && o.Status != Pending && o.Status != Delivered {
		return &ValidationError{Field: "status", Reason: "unknown status " + string(o.Status)}
	}
	return nil
}

// List returns every order in record-set order. Positions in the result
// are valid only until the next deletion.
func (s *Store) List(ctx context.Context) ([]Order, error) {
	orders, err := s.records.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load orders")
	}
	return orders, nil
}

// Get returns the order with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Order, error) {
	l, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i, err := l.find(id)
	if err != nil {
		return nil, err
	}
	o := l.orders[i]
	return &o, nil
}

// At returns the order currently at position index.
func (s *Store) At(ctx context.Context, index int) (*Order, error) {
	l, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i, err := l.at(index)
	if err != nil {
		return nil, err
	}
	o := l.orders[i]
	return &o, nil
}

// UpdateStatus moves the order with the given ID to status. Setting the
// status an order already has is a successful no-op and does not rewrite
// the record set. Delivered is terminal.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) (*Order, error) {
	return s.mutate(ctx, func(l *ledger) (int, error) { return l.find(id) }, func(ctx context.Context, l *ledger, i int) error {
		return s.transition(ctx, l, i, status)
	})
}

// UpdateStatusAt is UpdateStatus addressed by current position.
func (s *Store) UpdateStatusAt(ctx context.Context, index int, status Status) (*Order, error) {
	return s.mutate(ctx, func(l *ledger) (int, error) { return l.at(index) }, func(ctx context.Context, l *ledger, i int) error {
		return s.transition(ctx, l, i, status)
	})
}

// Delete removes the order with the given ID. The relative order of the
// remaining records is preserved.
func (s *Store) Delete(ctx context.Context, id string) (*Order, error) {
	return s.mutate(ctx, func(l *ledger) (int, error) { return l.find(id) }, s.remove)
}

// DeleteAt removes the order currently at position index, shifting later
// positions down by one.
func (s *Store) DeleteAt(ctx context.Context, index int) (*Order, error) {
	return s.mutate(ctx, func(l *ledger) (int, error) { return l.at(index) }, s.remove)
}

// mutate locates a record under the write lock and applies fn to it. The
// returned order is a copy taken after fn ran, or before it for removals.
func (s *Store) mutate(
	ctx context.Context,
	locate func(*ledger) (int, error),
	fn func(context.Context, *ledger, int) error,
) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i, err := locate(l)
	if err != nil {
		return nil, err
	}
	o := l.orders[i]
	if err := fn(ctx, l, i); err != nil {
		return nil, err
	}
	if i < len(l.orders) && l.orders[i].ID == o.ID {
		o = l.orders[i]
	}
	return &o, nil
}

func (s *Store) transition(ctx context.Context, l *ledger, i int, to Status) error {
	if to != Pending && to != Delivered {
		return &ValidationError{Field: "status", Reason: "unknown status " + string(to)}
	}
	from := l.orders[i].Status
	if from == to {
		return nil
	}
	if from == Delivered {
		return &TransitionError{From: from, To: to}
	}
	l.orders[i].Status = to
	return s.save(ctx, l)
}

func (s *Store) remove(ctx context.Context, l *ledger, i int) error {
	l.remove(i)
	return s.save(ctx, l)
}
