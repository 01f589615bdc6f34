package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	lavka "github.com/mkuzmin/lavka/internal"
)

// maxBody is the maximum allowed request body size (1 MB).
const maxBody = 1 << 20

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func errorResponse(msg string) apiError {
	var e apiError
	e.Error.Message = msg
	return e
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, lavka.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, lavka.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, lavka.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lavka.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, lavka.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// jsonCT is a pre-allocated header value slice. Direct map assignment
// (w.Header()["Content-Type"] = jsonCT) avoids the []string{v} alloc
// that Header.Set creates on every call. Saves 1 alloc/req.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError logs unexpected errors server-side and returns a sanitized
// message so storage internals never leak to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
		writeJSON(w, status, errorResponse("internal error"))
		return
	}
	writeJSON(w, status, errorResponse(err.Error()))
}

// decodeJSON limits body size, decodes JSON into v, and writes a 400 on error.
// Returns true if decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return false
	}
	return true
}
