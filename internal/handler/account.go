package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// SignUp registers an account.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.Accounts.SignUp(r.Context(), c.Email, c.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("email", func(e *jx.Encoder) { e.Str(a.Email) })
		})
	})
}

// Login checks credentials and opens a session. Attempts are throttled per
// email; a successful login clears the counter.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCredentials(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	key := strings.ToLower(strings.TrimSpace(c.Email))
	if h.LoginLimiter != nil && !h.LoginLimiter.Allow(key).Allowed {
		writeError(w, r, errTooManyLogin)
		return
	}
	a, err := h.Accounts.Login(r.Context(), c.Email, c.Password)
	if err != nil {
		zctx.From(r.Context()).Info("Login rejected", zap.String("email", c.Email), zap.Error(err))
		writeError(w, r, err)
		return
	}
	if h.LoginLimiter != nil {
		h.LoginLimiter.Reset(key)
	}

	s := h.Sessions.Open(a.Email)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("token", func(e *jx.Encoder) { e.Str(s.Token) })
			e.Field("email", func(e *jx.Encoder) { e.Str(s.Email) })
		})
	})
}

// Logout closes the caller's session, discarding its menu.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Close(current(r.Context()).Token)
	w.WriteHeader(http.StatusNoContent)
}
