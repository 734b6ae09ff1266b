package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knova-io/knova/internal/config"
	"github.com/knova-io/knova/internal/core"
	"github.com/knova-io/knova/internal/core/ingest"
	"github.com/knova-io/knova/internal/core/textproc"
	"github.com/knova-io/knova/internal/logger"
	"github.com/knova-io/knova/internal/models"
)

const maxUploadBytes = 52 << 20

type DocumentHandler struct {
	dbclient     core.DbClient
	objectclient core.ObjectClient
	embedder     core.EmbeddingProvider
	ingestor     *ingest.DocumentIngestor
	cfg          *config.Config
}

func NewDocumentHandler(db core.DbClient, obj core.ObjectClient, emb core.EmbeddingProvider, ing *ingest.DocumentIngestor, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{dbclient: db, objectclient: obj, embedder: emb, ingestor: ing, cfg: cfg}
}

// UploadDocument stores the file in object storage, records a pending
// document and enqueues it for background ingestion.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionID")
	if collectionID == "" {
		http.Error(w, "collection id required", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	sourceType, err := sourceTypeFor(header.Filename, contentType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cleanName := filepath.Base(header.Filename)
	docID := uuid.NewString()
	storageKey := fmt.Sprintf("%s/%s/%s", collectionID, docID, cleanName)

	uploadCtx, cancel := contextWithTimeout(r, 5*time.Minute)
	defer cancel()

	if _, err := h.objectclient.UploadFile(uploadCtx, h.cfg.BucketName, storageKey, data, contentType); err != nil {
		http.Error(w, fmt.Sprintf("upload failed: %v", err), http.StatusInternalServerError)
		return
	}

	doc := &models.Document{
		ID:           docID,
		CollectionID: collectionID,
		FileName:     cleanName,
		SourceType:   sourceType,
		StorageKey:   storageKey,
		ContentType:  contentType,
		Status:       models.StatusPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := h.dbclient.CreateDocument(uploadCtx, doc); err != nil {
		logger.Error("document insert failed", zap.String("document", docID), zap.Error(err))
		http.Error(w, fmt.Sprintf("failed to store document metadata: %v", err), http.StatusInternalServerError)
		return
	}

	useVision := r.FormValue("use_vision") == "true"
	if !h.ingestor.Enqueue(doc.ID, useVision) {
		// Queue saturated: the doc row stays pending, the caller retries.
		w.Header().Set("Retry-After", "30")
		http.Error(w, "ingestion queue full, retry later", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

type CrawlRequest struct {
	URL string `json:"url"`
}

// CrawlURL records a pending URL document and enqueues it; fetching and
// parsing happen in the background worker.
func (h *DocumentHandler) CrawlURL(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionID")
	if collectionID == "" {
		http.Error(w, "collection id required", http.StatusBadRequest)
		return
	}

	var req CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		http.Error(w, "invalid url", http.StatusBadRequest)
		return
	}

	doc := &models.Document{
		ID:           uuid.NewString(),
		CollectionID: collectionID,
		FileName:     parsed.Host + parsed.Path,
		SourceType:   models.SourceURL,
		SourceURL:    req.URL,
		Status:       models.StatusPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := h.dbclient.CreateDocument(r.Context(), doc); err != nil {
		http.Error(w, fmt.Sprintf("failed to store document metadata: %v", err), http.StatusInternalServerError)
		return
	}

	if !h.ingestor.Enqueue(doc.ID, false) {
		w.Header().Set("Retry-After", "30")
		http.Error(w, "ingestion queue full, retry later", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

type QARequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SubmitQA ingests a question/answer pair synchronously: one sanitized chunk,
// one embedding, document completed in the request lifetime. The full
// pipeline is skipped because the content is already clean and short.
func (h *DocumentHandler) SubmitQA(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionID")
	if collectionID == "" {
		http.Error(w, "collection id required", http.StatusBadRequest)
		return
	}

	var req QARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	question := textproc.Sanitize(req.Question)
	answer := textproc.Sanitize(req.Answer)
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		http.Error(w, "question and answer required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	content := fmt.Sprintf("Q: %s\nA: %s", question, answer)

	doc := &models.Document{
		ID:           uuid.NewString(),
		CollectionID: collectionID,
		FileName:     question,
		SourceType:   models.SourceQA,
		Status:       models.StatusPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := h.dbclient.CreateDocument(ctx, doc); err != nil {
		http.Error(w, fmt.Sprintf("failed to store document metadata: %v", err), http.StatusInternalServerError)
		return
	}

	vecs, err := h.embedder.EmbedTexts(ctx, []string{content})
	if err != nil || len(vecs) == 0 {
		_ = h.dbclient.FailDocument(ctx, doc.ID, fmt.Sprintf("embedding failed: %v", err))
		http.Error(w, "embedding failed", http.StatusBadGateway)
		return
	}

	chunk := models.DocumentChunk{
		ID:           uuid.NewString(),
		DocumentID:   doc.ID,
		CollectionID: collectionID,
		Content:      content,
		Metadata: models.ChunkMetadata{
			ChunkIndex:     0,
			EndChar:        len(content),
			SourceFileName: question,
		},
		Embedding: vecs[0],
	}
	if err := h.dbclient.InsertChunks(ctx, []models.DocumentChunk{chunk}); err != nil {
		_ = h.dbclient.FailDocument(ctx, doc.ID, fmt.Sprintf("chunk insert failed: %v", err))
		http.Error(w, "failed to store chunk", http.StatusInternalServerError)
		return
	}
	if err := h.dbclient.CompleteDocument(ctx, doc.ID, 1, "", "qa", question); err != nil {
		http.Error(w, "failed to complete document", http.StatusInternalServerError)
		return
	}

	doc.Status = models.StatusCompleted
	doc.ChunkCount = 1
	writeJSON(w, http.StatusCreated, doc)
}

// ListDocuments returns the collection's documents with their ingestion
// status, for polling.
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionID")
	if collectionID == "" {
		http.Error(w, "collection id required", http.StatusBadRequest)
		return
	}

	documents, err := h.dbclient.ListDocumentsByCollection(r.Context(), collectionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, documents)
}

// DeleteDocument removes the row (chunks cascade) and the stored object.
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")

	doc, err := h.dbclient.GetDocumentByID(r.Context(), documentID)
	if err != nil || doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	if err := h.dbclient.DeleteDocument(r.Context(), documentID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if doc.StorageKey != "" {
		if err := h.objectclient.DeleteFile(r.Context(), h.cfg.BucketName, doc.StorageKey); err != nil {
			logger.Warn("stored object delete failed",
				zap.String("document", documentID), zap.Error(err))
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func sourceTypeFor(filename, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case ext == ".pdf" || contentType == "application/pdf":
		return models.SourcePDF, nil
	case ext == ".html" || ext == ".htm" || strings.HasPrefix(contentType, "text/html"):
		return models.SourceHTML, nil
	default:
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
}
