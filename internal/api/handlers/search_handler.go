package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/knova-io/knova/internal/core/retrieval"
	"github.com/knova-io/knova/internal/models"
)

type SearchHandler struct {
	engine *retrieval.Engine
}

func NewSearchHandler(engine *retrieval.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

type SearchRequest struct {
	Query        string  `json:"query"`
	CollectionID string  `json:"collection_id"`
	TopK         int     `json:"top_k,omitempty"`
	Threshold    float64 `json:"threshold,omitempty"`
	Language     string  `json:"language,omitempty"`
}

type SearchResponse struct {
	Results    []models.SearchResult `json:"results"`
	Confidence models.Confidence     `json:"confidence"`
}

// Search runs hybrid retrieval. An empty result list is a valid response
// with low confidence, not an error.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" || req.CollectionID == "" {
		http.Error(w, "query and collection_id required", http.StatusBadRequest)
		return
	}

	results, err := h.engine.Search(r.Context(), req.Query, req.CollectionID, retrieval.Options{
		TopK:      req.TopK,
		Threshold: req.Threshold,
		Language:  req.Language,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Results:    results,
		Confidence: retrieval.Assess(results),
	})
}
