package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dgallion1/freelink/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// publishedSummary is the listing form of a published document.
type publishedSummary struct {
	Hash        string `json:"hash"`
	Filename    string `json:"filename"`
	Title       string `json:"title"`
	Langcode    string `json:"langcode,omitempty"`
	Occurrences int    `json:"occurrences"`
	CreatedAt   string `json:"created_at"`
}

// handleListPublished lists rendered documents in the published store.
func (s *Server) handleListPublished(w http.ResponseWriter, r *http.Request) {
	if s.published == nil {
		jsonError(w, "publishing is disabled", http.StatusServiceUnavailable)
		return
	}
	entries, err := s.published.List(r.Context(), pipeline.DefaultPublishPrefix, 200)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusBadGateway)
		return
	}

	docs := []publishedSummary{}
	for _, e := range entries {
		var doc publishedSummary
		if err := e.Decode(&doc); err != nil {
			s.log.Warn("skipping unreadable published document", "key", e.Key, "error", err)
			continue
		}
		doc.Hash = e.Key[strings.LastIndex(e.Key, "/")+1:]
		docs = append(docs, doc)
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetPublished(w http.ResponseWriter, r *http.Request) {
	if s.published == nil {
		jsonError(w, "publishing is disabled", http.StatusServiceUnavailable)
		return
	}
	key := publishedKey(chi.URLParam(r, "hash"))
	entry, err := s.published.Get(r.Context(), key)
	if err != nil {
		jsonError(w, "failed to read document: "+err.Error(), http.StatusBadGateway)
		return
	}
	if entry == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(entry.Value)
}

// handleDeletePublished removes a rendered document.
func (s *Server) handleDeletePublished(w http.ResponseWriter, r *http.Request) {
	if s.published == nil {
		jsonError(w, "publishing is disabled", http.StatusServiceUnavailable)
		return
	}
	key := publishedKey(chi.URLParam(r, "hash"))
	if err := s.published.Delete(r.Context(), key, false); err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": key})
}

func publishedKey(hash string) string {
	return fmt.Sprintf("%s/%s", pipeline.DefaultPublishPrefix, hash)
}
