// Package records maps domain records to and from the tables they are
// persisted and exported as.
package records

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/xenking/coffee-desk/internal/domain/account"
	"github.com/xenking/coffee-desk/internal/domain/order"
	"github.com/xenking/coffee-desk/internal/domain/pricing"
	"github.com/xenking/coffee-desk/internal/tabular"
)

// TimeLayout is the persisted form of order timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Order table columns, in persisted order.
const (
	ColID       = "ID"
	ColCustomer = "Customer"
	ColMobile   = "Mobile"
	ColAddress  = "Address"
	ColCoffee   = "Coffee"
	ColSize     = "Size"
	ColQty      = "Qty"
	ColPrice    = "Price"
	ColTip      = "Tip"
	ColTotal    = "Total"
	ColTime     = "Time"
	ColStatus   = "Status"
	ColUser     = "User"
)

// OrderColumns is the header written for order tables.
var OrderColumns = []string{
	ColID, ColCustomer, ColMobile, ColAddress, ColCoffee, ColSize,
	ColQty, ColPrice, ColTip, ColTotal, ColTime, ColStatus, ColUser,
}

// Columns that must be present when decoding orders. ID, Status and the
// contact columns are absent from tables written by older versions.
var requiredOrderColumns = []string{
	ColCustomer, ColCoffee, ColSize, ColQty, ColPrice, ColTip, ColTotal, ColTime,
}

// Account table columns.
const (
	ColEmail    = "Email"
	ColPassword = "Password"
)

// legacyNamespace seeds IDs derived for rows persisted without one.
var legacyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("coffee-desk:orders"))

// Codec converts orders between domain values and tables. Timestamps are
// written and read as wall-clock time in Location.
type Codec struct {
	Location *time.Location
}

func (c Codec) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// EncodeOrders renders orders as a table with OrderColumns.
func (c Codec) EncodeOrders(orders []order.Order) *tabular.Table {
	t := tabular.New(OrderColumns...)
	for _, o := range orders {
		t.Append(
			o.ID,
			o.Customer,
			o.Mobile,
			o.Address,
			o.Coffee,
			string(o.Size),
			strconv.Itoa(o.Quantity),
			o.UnitPrice.String(),
			o.Tip.String(),
			o.Total.String(),
			o.CreatedAt.In(c.loc()).Format(TimeLayout),
			string(o.Status),
			o.Owner,
		)
	}
	return t
}

// DecodeOrders parses an order table. Column order is irrelevant.
// Rows without an ID get a deterministic ID derived from their position and
// content, so repeated reads of an unchanged legacy table agree.
func (c Codec) DecodeOrders(t *tabular.Table) ([]order.Order, error) {
	if err := t.Require(requiredOrderColumns...); err != nil {
		return nil, err
	}
	col := make(map[string]int, len(OrderColumns))
	for _, name := range OrderColumns {
		col[name] = t.Index(name)
	}

	orders := make([]order.Order, 0, t.Len())
	for i, row := range t.Rows {
		cell := func(name string) string { return tabular.Cell(row, col[name]) }
		bad := func(name, reason string) error {
			return &tabular.SchemaError{Row: i + 1, Column: name, Reason: reason}
		}

		o := order.Order{
			ID:       cell(ColID),
			Customer: cell(ColCustomer),
			Mobile:   cell(ColMobile),
			Address:  cell(ColAddress),
			Coffee:   cell(ColCoffee),
			Owner:    cell(ColUser),
		}
		if o.ID == "" {
			o.ID = legacyID(i, row)
		}

		size, err := pricing.ParseSize(cell(ColSize))
		if err != nil {
			return nil, bad(ColSize, err.Error())
		}
		o.Size = size

		if o.Quantity, err = parseInt(cell(ColQty)); err != nil {
			return nil, bad(ColQty, err.Error())
		}
		for _, f := range []struct {
			name string
			dst  *decimal.Decimal
		}{
			{ColPrice, &o.UnitPrice},
			{ColTip, &o.Tip},
			{ColTotal, &o.Total},
		} {
			raw := cell(f.name)
			if raw == "" {
				*f.dst = decimal.Zero
				continue
			}
			if *f.dst, err = decimal.NewFromString(raw); err != nil {
				return nil, bad(f.name, fmt.Sprintf("%q is not a number", raw))
			}
		}

		if o.CreatedAt, err = c.parseTime(cell(ColTime)); err != nil {
			return nil, bad(ColTime, err.Error())
		}
		if o.Status, err = order.ParseStatus(cell(ColStatus)); err != nil {
			return nil, bad(ColStatus, err.Error())
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// parseTime accepts the persisted layout and, for workbooks edited by hand,
// an Excel serial date number.
func (c Codec) parseTime(raw string) (time.Time, error) {
	if ts, err := time.ParseInLocation(TimeLayout, raw, c.loc()); err == nil {
		return ts, nil
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, errors.Errorf("%q is not a %s timestamp", raw, TimeLayout)
	}
	ts, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, errors.Errorf("%q is not a valid serial date", raw)
	}
	// Serial dates carry no zone; keep the wall clock.
	ts = ts.Round(time.Second)
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), 0, c.loc()), nil
}

func parseInt(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	// Spreadsheets may store whole numbers as floats.
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, errors.Errorf("%q is not a whole number", raw)
	}
	return int(f), nil
}

func legacyID(index int, row []string) string {
	key := strconv.Itoa(index) + "\x00" + strings.Join(row, "\x00")
	return uuid.NewSHA1(legacyNamespace, []byte(key)).String()
}

// EncodeAccounts renders accounts as an Email, Password table.
func EncodeAccounts(accounts []account.Account) *tabular.Table {
	t := tabular.New(ColEmail, ColPassword)
	for _, a := range accounts {
		t.Append(a.Email, a.Password)
	}
	return t
}

// DecodeAccounts parses an Email, Password table. Rows without an email
// are skipped.
func DecodeAccounts(t *tabular.Table) ([]account.Account, error) {
	if err := t.Require(ColEmail, ColPassword); err != nil {
		return nil, err
	}
	emailCol, passCol := t.Index(ColEmail), t.Index(ColPassword)

	accounts := make([]account.Account, 0, t.Len())
	for _, row := range t.Rows {
		email := tabular.Cell(row, emailCol)
		if email == "" {
			continue
		}
		// Passwords are kept verbatim.
		pass := ""
		if passCol < len(row) {
			pass = row[passCol]
		}
		accounts = append(accounts, account.Account{Email: email, Password: pass})
	}
	return accounts, nil
}
