package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/coffee-desk/internal/domain/report"
	"github.com/xenking/coffee-desk/internal/tabular"
)

// today returns ?day= or the current day in the shop's zone.
func (h *Handler) today(r *http.Request) (report.Date, error) {
	day, err := report.ParseDate(r.URL.Query().Get("day"))
	if err != nil {
		return report.Date{}, &badRequestError{reason: err.Error()}
	}
	if day.IsZero() {
		day = report.DateOf(h.now().In(h.loc))
	}
	return day, nil
}

func (h *Handler) sales(r *http.Request) (report.Sales, error) {
	day, err := h.today(r)
	if err != nil {
		return report.Sales{}, err
	}
	orders, err := h.Orders.List(r.Context())
	if err != nil {
		return report.Sales{}, err
	}
	return report.Build(h.inLocation(orders), day), nil
}

// Sales returns the daily and monthly totals for ?day= (default today).
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	s, err := h.sales(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSales(e, s) })
}

// ExportReport serves daily and monthly order tables as .csv, .csv.gz or
// .xlsx, in the order table layout.
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("report")
	kind, ext, _ := strings.Cut(name, ".")
	format, err := tabular.FormatFor(name)
	if err != nil || (kind != "daily" && kind != "monthly") {
		http.NotFound(w, r)
		return
	}

	s, err := h.sales(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	orders := s.Daily
	if kind == "monthly" {
		orders = s.Monthly
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+kind+"_report."+ext+`"`)
	if err := tabular.Write(w, h.codec.EncodeOrders(orders), format); err != nil {
		// Headers are already sent.
		logWriteError(r, err)
	}
}

// CoffeeChart returns cups per coffee with a per-customer breakdown, under
// the same filters as ListOrders.
func (h *Handler) CoffeeChart(w http.ResponseWriter, r *http.Request) {
	orders, err := h.filtered(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	qs := report.QuantityByCoffee(orders)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeQuantities(e, qs) })
}
