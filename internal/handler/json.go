package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/coffee-desk/internal/domain/menu"
	"github.com/xenking/coffee-desk/internal/domain/order"
	"github.com/xenking/coffee-desk/internal/domain/report"
	"github.com/xenking/coffee-desk/internal/records"
)

const maxJSONBody = 1 << 20

// decodeBody reads a JSON object from the request and calls field for each
// key. Unknown keys must be skipped by field.
func decodeBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return &badRequestError{reason: "read body"}
	}
	if err := jx.DecodeBytes(body).Obj(field); err != nil {
		return &badRequestError{reason: "malformed JSON body: " + err.Error()}
	}
	return nil
}

// badRequestError marks input the server could not parse at all.
type badRequestError struct {
	reason string
}

func (e *badRequestError) Error() string { return e.reason }

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		return decimal.Zero, errors.New("expected number")
	}
}

type credentials struct {
	Email    string
	Password string
}

func decodeCredentials(r *http.Request) (credentials, error) {
	var c credentials
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "email":
			c.Email, err = d.Str()
		case "password":
			c.Password, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

func decodePlaceRequest(r *http.Request) (order.PlaceRequest, error) {
	var req order.PlaceRequest
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "customer":
			req.Customer, err = d.Str()
		case "mobile":
			req.Mobile, err = d.Str()
		case "address":
			req.Address, err = d.Str()
		case "coffee":
			req.Coffee, err = d.Str()
		case "size":
			req.Size, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		case "tip":
			req.Tip, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return req, err
}

func decodeStatus(r *http.Request) (order.Status, error) {
	var status order.Status
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		s, err := d.Str()
		status = order.Status(s)
		return err
	})
	return status, err
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.String()))
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("customer", func(e *jx.Encoder) { e.Str(o.Customer) })
		e.Field("mobile", func(e *jx.Encoder) { e.Str(o.Mobile) })
		e.Field("address", func(e *jx.Encoder) { e.Str(o.Address) })
		e.Field("coffee", func(e *jx.Encoder) { e.Str(o.Coffee) })
		e.Field("size", func(e *jx.Encoder) { e.Str(string(o.Size)) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(o.Quantity) })
		e.Field("unitPrice", func(e *jx.Encoder) { encodeMoney(e, o.UnitPrice) })
		e.Field("tip", func(e *jx.Encoder) { encodeMoney(e, o.Tip) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, o.Total) })
		e.Field("time", func(e *jx.Encoder) { e.Str(o.CreatedAt.Format(records.TimeLayout)) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("user", func(e *jx.Encoder) { e.Str(o.Owner) })
	})
}

func encodeOrders(e *jx.Encoder, orders []order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("count", func(e *jx.Encoder) { e.Int(len(orders)) })
		e.Field("orders", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, o := range orders {
					encodeOrder(e, o)
				}
			})
		})
	})
}

func encodeMenu(e *jx.Encoder, entries []menu.Entry) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, entry := range entries {
					e.Obj(func(e *jx.Encoder) {
						e.Field("coffee", func(e *jx.Encoder) { e.Str(entry.Name) })
						e.Field("price", func(e *jx.Encoder) { encodeMoney(e, entry.Price) })
					})
				}
			})
		})
	})
}

func encodeSales(e *jx.Encoder, s report.Sales) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("day", func(e *jx.Encoder) { e.Str(s.Day.String()) })
		e.Field("month", func(e *jx.Encoder) { e.Int(int(s.Day.Month)) })
		e.Field("dailyTotal", func(e *jx.Encoder) { encodeMoney(e, s.DailyTotal) })
		e.Field("monthlyTotal", func(e *jx.Encoder) { encodeMoney(e, s.MonthlyTotal) })
		e.Field("dailyOrders", func(e *jx.Encoder) { e.Int(len(s.Daily)) })
		e.Field("monthlyOrders", func(e *jx.Encoder) { e.Int(len(s.Monthly)) })
	})
}

func encodeQuantities(e *jx.Encoder, qs []report.CoffeeQuantity) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("coffees", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, q := range qs {
					e.Obj(func(e *jx.Encoder) {
						e.Field("coffee", func(e *jx.Encoder) { e.Str(q.Coffee) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(q.Quantity) })
						e.Field("customers", func(e *jx.Encoder) {
							e.Arr(func(e *jx.Encoder) {
								for _, c := range q.ByCustomer {
									e.Obj(func(e *jx.Encoder) {
										e.Field("customer", func(e *jx.Encoder) { e.Str(c.Customer) })
										e.Field("quantity", func(e *jx.Encoder) { e.Int(c.Quantity) })
									})
								}
							})
						})
					})
				}
			})
		})
	})
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, &badRequestError{reason: "index must be an integer"}
	}
	return i, nil
}
