package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/GregMSThompson/utilization-pilot/internal/errs"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body. Syntax errors pass through for HandleError to map.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.NewValidationError("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewValidationError("request body too large")
		}
		return err
	}
	return nil
}

// queryLimit parses ?limit=; absent means zero so the service applies its default.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errs.NewValidationError("limit must be a non-negative integer")
	}
	return n, nil
}
