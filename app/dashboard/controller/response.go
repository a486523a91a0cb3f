package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/pandaskiing/depositview/pkg/chain"
	"github.com/pandaskiing/depositview/pkg/stats"
	"github.com/pandaskiing/depositview/pkg/subgraph"
	"go.uber.org/zap"
)

// errBridgeDisabled is returned by on-chain endpoints when RPC_URL is unset.
var errBridgeDisabled = errors.New("on-chain access disabled: RPC_URL is not configured")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and a JSON body. Extra keys tell the
// client what to do next: "action":"connect" asks for a wallet,
// "state":"not_configured" means the campaign has no next deposit amount.
func (c *Controller) writeError(w http.ResponseWriter, err error) {
	body := map[string]string{"error": err.Error()}
	status := http.StatusInternalServerError

	var sgErr *subgraph.Error
	switch {
	case errors.As(err, &sgErr):
		status = http.StatusBadGateway
	case errors.Is(err, chain.ErrWalletNotConnected):
		status = http.StatusUnauthorized
		body["action"] = "connect"
	case errors.Is(err, chain.ErrInvalidAddress),
		errors.Is(err, chain.ErrInvalidTransaction),
		errors.Is(err, chain.ErrUnexpectedTarget),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, chain.ErrInsufficientBalance):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, chain.ErrNotConfigured):
		status = http.StatusConflict
		body["state"] = "not_configured"
	case errors.Is(err, chain.ErrSubmissionInFlight):
		status = http.StatusConflict
	case errors.Is(err, stats.ErrNoStats), errors.Is(err, errBridgeDisabled):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		c.App.Logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, body)
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// queryLimit reads ?limit=. Zero means the feed default. Only the limits in
// allowed are accepted: every distinct limit is a cache key with its own
// background refresh.
func queryLimit(r *http.Request, allowed ...int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err == nil && slices.Contains(allowed, n) {
		return n, nil
	}
	names := make([]string, len(allowed))
	for i, l := range allowed {
		names[i] = strconv.Itoa(l)
	}
	return 0, badRequest("limit must be one of %s", strings.Join(names, ", "))
}

// decodeBody decodes a small JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}

// recoverer turns handler panics into a 500.
func (c *Controller) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				c.App.Logger.Error("Panic in HTTP handler",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("stack", string(debug.Stack())))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
