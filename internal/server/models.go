package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// cachePutRequest is the body of POST /v1/cache.
type cachePutRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// cacheResponse reports a cache operation and the worker that served it.
// The worker field echoes which per-worker store was touched, the same way
// a thread-local cache demo reports the handling thread.
type cacheResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  any    `json:"value,omitempty"`
	Worker string `json:"worker"`
}

// itemPutRequest is the body of PUT /v1/items/{key}.
type itemPutRequest struct {
	Value string `json:"value"`
}

// itemResponse reports a read-through item lookup.
type itemResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value,omitempty"`
	Cached bool   `json:"cached"`
	Worker string `json:"worker"`
}

// configResponse exposes the handler configuration plus the process-wide
// last-configured defaults for introspection.
type configResponse struct {
	Capacity       int                `json:"capacity"`
	TTL            string             `json:"ttl"`
	Workers        int                `json:"workers"`
	LastConfigured lastConfiguredInfo `json:"last_configured"`
}

type lastConfiguredInfo struct {
	Capacity int    `json:"capacity"`
	TTL      string `json:"ttl"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func errorResponse(msg string) apiError {
	var e apiError
	e.Error.Message = msg
	e.Error.Type = "invalid_request_error"
	return e
}

// jsonCT avoids the []string{v} alloc from Header.Set on every response.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
