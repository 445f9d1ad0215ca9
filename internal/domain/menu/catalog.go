// Package menu holds the coffee price list uploaded by a user.
package menu

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/xenking/coffee-desk/internal/tabular"
)

// Column names required in an uploaded menu table.
const (
	ColumnCoffee = "Coffee"
	ColumnPrice  = "Price"
)

// Entry is a single priced coffee.
type Entry struct {
	Name  string
	Price decimal.Decimal
}

// NotFoundError is returned by Lookup for a coffee missing from the catalog.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("coffee %q not on the menu", e.Name)
}

// Catalog maps coffee names to prices. Each Load replaces the whole
// catalog; entries are never merged across uploads.
type Catalog struct {
	mu      sync.RWMutex
	entries []Entry
	byName  map[string]decimal.Decimal
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Load replaces the catalog with the Coffee and Price columns of t.
// It returns a *tabular.SchemaError when either column is absent or a price
// is not a non-negative number; the previous catalog is kept in that case.
// Rows with an empty name are skipped and the first row wins for duplicates.
func (c *Catalog) Load(t *tabular.Table) error {
	if err := t.Require(ColumnCoffee, ColumnPrice); err != nil {
		return err
	}
	nameCol, priceCol := t.Index(ColumnCoffee), t.Index(ColumnPrice)

	entries := make([]Entry, 0, t.Len())
	byName := make(map[string]decimal.Decimal, t.Len())
	for i, row := range t.Rows {
		name := tabular.Cell(row, nameCol)
		if name == "" {
			continue
		}
		raw := tabular.Cell(row, priceCol)
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return &tabular.SchemaError{Row: i + 1, Column: ColumnPrice, Reason: fmt.Sprintf("%q is not a number", raw)}
		}
		if price.IsNegative() {
			return &tabular.SchemaError{Row: i + 1, Column: ColumnPrice, Reason: "price must not be negative"}
		}
		if _, dup := byName[name]; dup {
			continue
		}
		byName[name] = price
		entries = append(entries, Entry{Name: name, Price: price})
	}

	c.mu.Lock()
	c.entries = entries
	c.byName = byName
	c.mu.Unlock()
	return nil
}

// Reset empties the catalog.
func (c *Catalog) Reset() {
	c.mu.Lock()
	c.entries = nil
	c.byName = nil
	c.mu.Unlock()
}

// Loaded reports whether a menu has been loaded.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byName != nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// PriceOf returns the price of the named coffee, or zero when no menu is
// loaded or the name is unknown. Zero is therefore ambiguous between a
// free item and a miss; use Lookup to tell them apart.
func (c *Catalog) PriceOf(name string) decimal.Decimal {
	price, err := c.Lookup(name)
	if err != nil {
		return decimal.Zero
	}
	return price
}

// Lookup returns the price of the named coffee or a *NotFoundError.
func (c *Catalog) Lookup(name string) (decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	price, ok := c.byName[name]
	if !ok {
		return decimal.Zero, &NotFoundError{Name: name}
	}
	return price, nil
}

// Entries returns the entries in upload order.
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Names returns the coffee names in upload order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Name
	}
	return out
}
