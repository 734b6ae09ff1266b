package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/knova-io/knova/internal/core"
	"github.com/knova-io/knova/internal/core/retrieval"
	"github.com/knova-io/knova/internal/models"
)

type ChatHandler struct {
	engine *retrieval.Engine
	llm    core.LLMProvider
}

func NewChatHandler(engine *retrieval.Engine, llm core.LLMProvider) *ChatHandler {
	return &ChatHandler{engine: engine, llm: llm}
}

type ChatRequest struct {
	Query        string `json:"query"`
	CollectionID string `json:"collection_id"`
	Name         string `json:"name,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Language     string `json:"language,omitempty"`
}

type ChatSource struct {
	ID         string  `json:"id"`
	FileName   string  `json:"file_name"`
	Similarity float64 `json:"similarity"`
}

type ChatResponse struct {
	Answer     string            `json:"answer"`
	Confidence models.Confidence `json:"confidence"`
	Sources    []ChatSource      `json:"sources"`
}

// QueryCollection retrieves context for the query and asks the LLM to answer
// from it. Empty retrieval still produces an answer (the model is told there
// is no context) with low confidence.
func (h *ChatHandler) QueryCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" || req.CollectionID == "" {
		http.Error(w, "query and collection_id required", http.StatusBadRequest)
		return
	}

	results, err := h.engine.Search(ctx, req.Query, req.CollectionID, retrieval.Options{Language: req.Language})
	if err != nil {
		http.Error(w, fmt.Sprintf("search failed: %v", err), http.StatusInternalServerError)
		return
	}

	systemPrompt := retrieval.BuildPrompt(req.Name, req.Instructions, req.Language, results)
	answer, err := h.llm.Generate(ctx, systemPrompt, req.Query)
	if err != nil {
		http.Error(w, fmt.Sprintf("LLM failed: %v", err), http.StatusBadGateway)
		return
	}

	sources := make([]ChatSource, 0, len(results))
	for _, res := range results {
		sources = append(sources, ChatSource{
			ID:         res.ID,
			FileName:   res.Metadata.SourceFileName,
			Similarity: res.Similarity,
		})
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Answer:     answer,
		Confidence: retrieval.Assess(results),
		Sources:    sources,
	})
}
