// Package report derives filtered views and sales aggregates from orders.
// Functions never modify their input slices.
package report

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/coffee-desk/internal/domain/order"
)

// FilterByCustomer keeps orders whose customer name contains substr,
// ignoring case. An empty substr keeps everything.
func FilterByCustomer(orders []order.Order, substr string) []order.Order {
	if substr == "" {
		return slices.Clone(orders)
	}
	needle := strings.ToLower(substr)
	return filter(orders, func(o order.Order) bool {
		return strings.Contains(strings.ToLower(o.Customer), needle)
	})
}

// FilterByDateRange keeps orders created on a day within [start, end].
// A zero start or end leaves that side unbounded.
func FilterByDateRange(orders []order.Order, start, end Date) []order.Order {
	r := DateRange{From: start, To: end}
	return filter(orders, func(o order.Order) bool {
		return r.Contains(DateOf(o.CreatedAt))
	})
}

// DailySales sums the totals of orders created on day.
func DailySales(orders []order.Order, day Date) decimal.Decimal {
	return Sum(onDay(orders, day))
}

// MonthlySales sums the totals of orders created in month of any year.
func MonthlySales(orders []order.Order, month time.Month) decimal.Decimal {
	return Sum(inMonth(orders, month))
}

// Summarize applies the customer filter and then the date range.
func Summarize(orders []order.Order, customer string, r DateRange) []order.Order {
	return FilterByDateRange(FilterByCustomer(orders, customer), r.From, r.To)
}

// Sum adds up order totals.
func Sum(orders []order.Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Total)
	}
	return total
}

// Sales is the daily and monthly sales view for a given day.
type Sales struct {
	Day          Date
	DailyTotal   decimal.Decimal
	MonthlyTotal decimal.Decimal
	// Daily holds the orders of Day, Monthly those of Day's month in any year.
	Daily   []order.Order
	Monthly []order.Order
}

// Build computes the sales view for today.
func Build(orders []order.Order, today Date) Sales {
	s := Sales{
		Day:     today,
		Daily:   onDay(orders, today),
		Monthly: inMonth(orders, today.Month),
	}
	s.DailyTotal = Sum(s.Daily)
	s.MonthlyTotal = Sum(s.Monthly)
	return s
}

// CustomerQuantity is the number of cups one customer ordered.
type CustomerQuantity struct {
	Customer string
	Quantity int
}

// CoffeeQuantity is the number of cups ordered of one coffee.
type CoffeeQuantity struct {
	Coffee     string
	Quantity   int
	ByCustomer []CustomerQuantity
}

// QuantityByCoffee groups ordered quantities by coffee and, within each
// coffee, by customer. Coffees and customers are sorted by name.
func QuantityByCoffee(orders []order.Order) []CoffeeQuantity {
	type acc struct {
		total      int
		byCustomer map[string]int
	}
	groups := make(map[string]*acc)
	for _, o := range orders {
		g, ok := groups[o.Coffee]
		if !ok {
			g = &acc{byCustomer: make(map[string]int)}
			groups[o.Coffee] = g
		}
		g.total += o.Quantity
		g.byCustomer[o.Customer] += o.Quantity
	}

	out := make([]CoffeeQuantity, 0, len(groups))
	for coffee, g := range groups {
		cq := CoffeeQuantity{Coffee: coffee, Quantity: g.total}
		for customer, qty := range g.byCustomer {
			cq.ByCustomer = append(cq.ByCustomer, CustomerQuantity{Customer: customer, Quantity: qty})
		}
		slices.SortFunc(cq.ByCustomer, func(a, b CustomerQuantity) int {
			return strings.Compare(a.Customer, b.Customer)
		})
		out = append(out, cq)
	}
	slices.SortFunc(out, func(a, b CoffeeQuantity) int {
		return strings.Compare(a.Coffee, b.Coffee)
	})
	return out
}

func onDay(orders []order.Order, day Date) []order.Order {
	return filter(orders, func(o order.Order) bool { return DateOf(o.CreatedAt) == day })
}

func inMonth(orders []order.Order, month time.Month) []order.Order {
	return filter(orders, func(o order.Order) bool { return o.CreatedAt.Month() == month })
}

func filter(orders []order.Order, keep func(order.Order) bool) []order.Order {
	out := make([]order.Order, 0, len(orders))
	for _, o := range orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}
