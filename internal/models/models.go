package models

import (
	"time"
)

// Document lifecycle states. Transitions are owned by the ingestion
// orchestrator; retrieval never mutates a document.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document source kinds.
const (
	SourcePDF  = "pdf"
	SourceHTML = "html"
	SourceURL  = "url"
	SourceQA   = "qa"
)

// Document represents an uploaded, crawled or Q&A-submitted document.
type Document struct {
	ID           string    `db:"id" json:"id"`
	CollectionID string    `db:"collection_id" json:"collection_id"`
	FileName     string    `db:"file_name" json:"file_name"`
	SourceType   string    `db:"source_type" json:"source_type"` // pdf | html | url | qa
	SourceURL    string    `db:"source_url" json:"source_url,omitempty"`
	StorageKey   string    `db:"storage_key" json:"-"` // object-store key for uploaded originals
	ContentType  string    `db:"content_type" json:"content_type,omitempty"`
	Status       string    `db:"status" json:"status"`
	Language     string    `db:"language" json:"language,omitempty"`
	DocType      string    `db:"doc_type" json:"doc_type,omitempty"`
	ChunkCount   int       `db:"chunk_count" json:"chunk_count"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ChunkMetadata is stored alongside each chunk and echoed back on search hits.
// Char offsets are approximate after overlap splicing.
type ChunkMetadata struct {
	ChunkIndex     int    `json:"chunk_index"`
	StartChar      int    `json:"start_char"`
	EndChar        int    `json:"end_char"`
	SourceFileName string `json:"source_file_name"`
}

// DocumentChunk is one embedded slice of a document. Immutable once written;
// removed only by cascading document deletion.
type DocumentChunk struct {
	ID           string        `db:"id" json:"id"`
	DocumentID   string        `db:"document_id" json:"document_id"`
	CollectionID string        `db:"collection_id" json:"collection_id"`
	Content      string        `db:"content" json:"content"`
	Metadata     ChunkMetadata `db:"metadata" json:"metadata"`
	Embedding    []float32     `db:"embedding" json:"-"` // pgvector column
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// SearchResult is a transient, per-query retrieval hit. Never persisted.
type SearchResult struct {
	ID         string        `json:"id"`
	Content    string        `json:"content"`
	Metadata   ChunkMetadata `json:"metadata"`
	Similarity float64       `json:"similarity"`
}

// RagSettings is the per-collection retrieval configuration. The stored
// collection row is the source of truth; readers go through the TTL cache.
type RagSettings struct {
	EmbeddingModel string  `db:"embedding_model" json:"embedding_model"`
	TopK           int     `db:"top_k" json:"top_k"`
	MatchThreshold float64 `db:"match_threshold" json:"match_threshold"`
	HydeEnabled    bool    `db:"hyde_enabled" json:"hyde_enabled"`
	RerankEnabled  bool    `db:"rerank_enabled" json:"rerank_enabled"`
	ChunkSize      int     `db:"chunk_size" json:"chunk_size"`
	ChunkOverlap   int     `db:"chunk_overlap" json:"chunk_overlap"`
	Language       string  `db:"language" json:"language"` // pivot language of the collection
}

// DefaultRagSettings are applied when a collection has no stored config.
func DefaultRagSettings() RagSettings {
	return RagSettings{
		EmbeddingModel: "text-embedding-004",
		TopK:           8,
		MatchThreshold: 0.15,
		HydeEnabled:    false,
		RerankEnabled:  false,
		ChunkSize:      500,
		ChunkOverlap:   0, // 0 = derive from the language overlap policy
		Language:       "en",
	}
}

// Confidence levels.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Confidence summarizes how well a result set supports an answer.
// Derived per query, never persisted.
type Confidence struct {
	Level string  `json:"level"`
	Score float64 `json:"score"`
}
