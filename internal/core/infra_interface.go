package core

import (
	"context"

	"github.com/knova-io/knova/internal/models"
)

// DbClient defines all persistence operations the pipeline needs.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByCollection(ctx context.Context, collectionID string) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status string) error
	CompleteDocument(ctx context.Context, id string, chunkCount int, language, docType, displayName string) error
	FailDocument(ctx context.Context, id string, message string) error
	DeleteDocument(ctx context.Context, id string) error

	InsertChunks(ctx context.Context, chunks []models.DocumentChunk) error

	// MatchChunks is the vector-similarity RPC: cosine similarity against the
	// collection's chunks, already filtered to similarity >= threshold.
	MatchChunks(ctx context.Context, embedding []float32, topK int, collectionID string, threshold float64) ([]models.SearchResult, error)

	// KeywordMatchAll returns chunks whose content matches every keyword (ILIKE).
	KeywordMatchAll(ctx context.Context, collectionID string, keywords []string, limit int) ([]models.SearchResult, error)
	// KeywordMatchAny returns chunks whose content matches at least one keyword (ILIKE).
	KeywordMatchAny(ctx context.Context, collectionID string, keywords []string, limit int) ([]models.SearchResult, error)

	// GetCollectionSettings returns (nil, nil) when the collection row is missing.
	GetCollectionSettings(ctx context.Context, collectionID string) (*models.RagSettings, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so you can replace AWS with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}
