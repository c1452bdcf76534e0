package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eugener/localcache/internal/cache"
	"github.com/eugener/localcache/internal/storage/sqlite"
	"github.com/eugener/localcache/internal/telemetry"
)

// handleCachePut stores a value in the store of the worker owning the key.
func (s *server) handleCachePut(w http.ResponseWriter, r *http.Request) {
	var req cachePutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body: "+err.Error()))
		return
	}
	if req.Key == "" || req.Value == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("key and value are required"))
		return
	}

	var workerID string
	err := s.deps.Pool.Dispatch(r.Context(), req.Key, func(owner cache.Owner) {
		s.deps.Cache.Put(owner, req.Key, req.Value)
		workerID = string(owner)
	})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse(err.Error()))
		return
	}
	if m := s.deps.Metrics; m != nil {
		m.CachePuts.Inc()
	}

	writeJSON(w, http.StatusOK, cacheResponse{
		Status: "success",
		Key:    req.Key,
		Value:  req.Value,
		Worker: workerID,
	})
}

// handleCacheGet looks up a key in the store of the worker owning it.
// Absent and expired entries are indistinguishable by design.
func (s *server) handleCacheGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var (
		value    any
		found    bool
		workerID string
	)
	err := s.deps.Pool.Dispatch(r.Context(), key, func(owner cache.Owner) {
		value, found = s.deps.Cache.Get(owner, key)
		workerID = string(owner)
	})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse(err.Error()))
		return
	}

	if m := s.deps.Metrics; m != nil {
		if found {
			m.CacheHits.Inc()
		} else {
			m.CacheMisses.Inc()
		}
	}

	if !found {
		writeJSON(w, http.StatusNotFound, cacheResponse{
			Status: "not_found",
			Key:    key,
			Worker: workerID,
		})
		return
	}
	writeJSON(w, http.StatusOK, cacheResponse{
		Status: "found",
		Key:    key,
		Value:  value,
		Worker: workerID,
	})
}

// handleItemGet serves an item read-through: the owning worker's cache
// first, then the SQLite origin, filling the cache on the way back.
func (s *server) handleItemGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.Tracer("server").Start(r.Context(), "items.get")
	defer span.End()

	key := chi.URLParam(r, "key")

	var (
		value    string
		cached   bool
		found    bool
		workerID string
		loadErr  error
	)
	err := s.deps.Pool.Dispatch(ctx, key, func(owner cache.Owner) {
		workerID = string(owner)
		// A key stored through /v1/cache may hold a non-string value;
		// treat that as a miss and refresh from the origin.
		if v, ok := s.deps.Cache.Get(owner, key); ok {
			if sv, ok := v.(string); ok {
				value, cached, found = sv, true, true
				return
			}
		}
		it, err := s.deps.Origin.GetItem(ctx, key)
		if err != nil {
			loadErr = err
			return
		}
		s.deps.Cache.Put(owner, key, it.Value)
		value, found = it.Value, true
	})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse(err.Error()))
		return
	}

	if m := s.deps.Metrics; m != nil {
		if cached {
			m.CacheHits.Inc()
		} else {
			m.CacheMisses.Inc()
		}
		if found && !cached {
			m.OriginReads.Inc()
		}
	}

	switch {
	case errors.Is(loadErr, sqlite.ErrNotFound):
		writeJSON(w, http.StatusNotFound, itemResponse{Status: "not_found", Key: key, Worker: workerID})
	case loadErr != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse("origin read failed"))
	default:
		writeJSON(w, http.StatusOK, itemResponse{
			Status: "found",
			Key:    key,
			Value:  value,
			Cached: cached,
			Worker: workerID,
		})
	}
}

// handleItemPut writes an item through to the origin and the owning
// worker's cache.
func (s *server) handleItemPut(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.Tracer("server").Start(r.Context(), "items.put")
	defer span.End()

	key := chi.URLParam(r, "key")

	var req itemPutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body: "+err.Error()))
		return
	}

	if err := s.deps.Origin.UpsertItem(ctx, key, req.Value); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse("origin write failed"))
		return
	}

	var workerID string
	err := s.deps.Pool.Dispatch(ctx, key, func(owner cache.Owner) {
		s.deps.Cache.Put(owner, key, req.Value)
		workerID = string(owner)
	})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse(err.Error()))
		return
	}
	if m := s.deps.Metrics; m != nil {
		m.CachePuts.Inc()
	}

	writeJSON(w, http.StatusOK, itemResponse{
		Status: "success",
		Key:    key,
		Value:  req.Value,
		Worker: workerID,
	})
}

// handleConfig reports the handler configuration and the process-wide
// last-configured defaults.
func (s *server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	lastCapacity, lastTTL := cache.LastConfigured()
	writeJSON(w, http.StatusOK, configResponse{
		Capacity: s.deps.Cache.Capacity(),
		TTL:      s.deps.Cache.TTL().String(),
		Workers:  s.deps.Pool.Size(),
		LastConfigured: lastConfiguredInfo{
			Capacity: lastCapacity,
			TTL:      lastTTL.String(),
		},
	})
}
