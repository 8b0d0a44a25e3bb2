package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/depth"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/feed"
	"github.com/shopspring/decimal"
)

// decodeJSON reads and unmarshals the request body into T with sane limits and timeouts.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var zero T

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	r = r.WithContext(ctx)

	// snapshots of deep books are the largest bodies we accept
	const maxBody = int64(4 << 20) // 4 MiB
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req T
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return zero, errors.New("empty body")
		}
		return zero, err
	}

	// Ensure there’s no trailing garbage
	if dec.More() {
		return zero, errors.New("multiple JSON values in body")
	}

	return req, nil
}

// writeJSON marshals v and writes it with status and proper headers.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

// writeJSONError writes a simple error response as JSON.
func writeJSONError(w http.ResponseWriter, status int, err error) {
	type errorResp struct {
		Error   string `json:"error"`
		Status  int    `json:"status"`
		Message string `json:"message,omitempty"`
	}
	writeJSON(w, status, errorResp{
		Error:   http.StatusText(status),
		Status:  status,
		Message: err.Error(),
	})
}

// statusFor maps use case errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, feed.ErrUnknownMarket):
		return http.StatusNotFound
	case errors.Is(err, feed.ErrReadOnly):
		return http.StatusConflict
	}
	return http.StatusUnprocessableEntity
}

// viewStateFromQuery reads ?zoom= and ?offset=; both are optional.
func viewStateFromQuery(r *http.Request) (depth.ViewState, error) {
	var view depth.ViewState
	q := r.URL.Query()
	if s := q.Get("zoom"); s != "" {
		z, err := decimal.NewFromString(s)
		if err != nil {
			return view, fmt.Errorf("invalid zoom %q", s)
		}
		view.ZoomDomain = z
	}
	if s := q.Get("offset"); s != "" {
		o, err := decimal.NewFromString(s)
		if err != nil {
			return view, fmt.Errorf("invalid offset %q", s)
		}
		view.Offset = o
	}
	return view, nil
}
