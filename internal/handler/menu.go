package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/coffee-desk/internal/tabular"
)

// UploadMenu replaces the session's catalog with the uploaded table. The
// body is XLSX unless Content-Type says CSV or gzip.
func (h *Handler) UploadMenu(w http.ResponseWriter, r *http.Request) {
	format := tabular.FormatForContentType(r.Header.Get("Content-Type"))
	t, err := tabular.Read(http.MaxBytesReader(w, r.Body, h.maxUpload), format)
	if err != nil {
		writeError(w, r, &badRequestError{reason: errors.Wrap(err, "read menu").Error()})
		return
	}
	catalog := current(r.Context()).Catalog
	if err := catalog.Load(t); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeMenu(e, catalog.Entries()) })
}

// GetMenu lists the session's catalog.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	entries := current(r.Context()).Catalog.Entries()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeMenu(e, entries) })
}
