// Package httpapi exposes the HTTP API layer of the service.
package httpapi

import (
	"encoding/json"
	"net/http"
)

const (
	msgBadRequest      = "Bad request"
	msgFetchNotFound   = "Product not found!"
	msgUpdateNotFound  = "Product not Found!"
	msgDeleteNotFound  = "Product not found"
	msgMissingBody     = "request body is required"
	msgNegativePrice   = "price must be >= 0"
	contentTypeJSON    = "application/json"
	headerRequestID    = "X-Request-Id"
	headerActor        = "X-User-Email"
	unknownActor       = "unknown"
	maxRequestBodySize = 1 << 20
)

// jsonError represents a JSON error payload.
type jsonError struct {
	Message string `json:"message"`
}

// WriteJSONError writes a JSON error payload with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, jsonError{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
