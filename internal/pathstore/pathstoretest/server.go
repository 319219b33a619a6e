// Package pathstoretest provides an in-memory pathstore server for tests.
package pathstoretest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Server is a fake pathstore API backed by a map.
type Server struct {
	*httptest.Server

	APIKey string

	mu   sync.Mutex
	data map[string]json.RawMessage
}

// NewServer starts a fake pathstore. When apiKey is non-empty requests must
// carry it as a bearer token.
func NewServer(apiKey string) *Server {
	s := &Server{APIKey: apiKey, data: make(map[string]json.RawMessage)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Keys returns the stored keys in sorted order.
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value returns the raw JSON stored at key.
func (s *Server) Value(key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if s.APIKey != "" && r.Header.Get("Authorization") != "Bearer "+s.APIKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	raw, ok := strings.CutPrefix(r.URL.EscapedPath(), "/kv/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	list := false
	if rest, found := strings.CutSuffix(raw, "/*"); found {
		raw, list = rest, true
	}
	key, err := unescapeKey(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case r.Method == http.MethodPut:
		var body struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.data[key] = body.Value
		w.WriteHeader(http.StatusCreated)

	case r.Method == http.MethodGet && list:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		type entry struct {
			Key   string          `json:"key_path"`
			Value json.RawMessage `json:"value"`
		}
		nodes := []entry{}
		for k, v := range s.data {
			if strings.HasPrefix(k, key+"/") {
				nodes = append(nodes, entry{Key: k, Value: v})
			}
		}
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key < nodes[j].Key })
		if limit > 0 && len(nodes) > limit {
			nodes = nodes[:limit]
		}
		writeJSON(w, map[string]any{"nodes": nodes})

	case r.Method == http.MethodGet:
		v, ok := s.data[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{"key_path": key, "value": v})

	case r.Method == http.MethodDelete:
		delete(s.data, key)
		if r.URL.Query().Get("children") == "true" {
			for k := range s.data {
				if strings.HasPrefix(k, key+"/") {
					delete(s.data, k)
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func unescapeKey(raw string) (string, error) {
	parts := strings.Split(raw, "/")
	for i, p := range parts {
		u, err := url.PathUnescape(p)
		if err != nil {
			return "", err
		}
		parts[i] = u
	}
	return strings.Join(parts, "/"), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
