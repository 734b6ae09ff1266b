package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/knova-io/knova/internal/config"
	"github.com/knova-io/knova/internal/core"
	"github.com/knova-io/knova/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Documents

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, collection_id, file_name, source_type, source_url, storage_key, content_type, status, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()), COALESCE($10, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.CollectionID, doc.FileName, doc.SourceType, nullable(doc.SourceURL), nullable(doc.StorageKey),
		nullable(doc.ContentType), doc.Status, nullableTime(doc.CreatedAt), nullableTime(doc.UpdatedAt))
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, collection_id, file_name, source_type,
		       COALESCE(source_url, ''), COALESCE(storage_key, ''), COALESCE(content_type, ''),
		       status, COALESCE(language, ''), COALESCE(doc_type, ''), chunk_count,
		       COALESCE(error_message, ''), created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.CollectionID, &d.FileName, &d.SourceType,
		&d.SourceURL, &d.StorageKey, &d.ContentType,
		&d.Status, &d.Language, &d.DocType, &d.ChunkCount,
		&d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocumentsByCollection(ctx context.Context, collectionID string) ([]models.Document, error) {
	const q = `
		SELECT id, collection_id, file_name, source_type,
		       COALESCE(source_url, ''), COALESCE(storage_key, ''), COALESCE(content_type, ''),
		       status, COALESCE(language, ''), COALESCE(doc_type, ''), chunk_count,
		       COALESCE(error_message, ''), created_at, updated_at
		FROM documents
		WHERE collection_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.CollectionID, &d.FileName, &d.SourceType,
			&d.SourceURL, &d.StorageKey, &d.ContentType,
			&d.Status, &d.Language, &d.DocType, &d.ChunkCount,
			&d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id string, status string) error {
	const q = `
		UPDATE documents
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) CompleteDocument(ctx context.Context, id string, chunkCount int, language, docType, displayName string) error {
	const q = `
		UPDATE documents
		SET status = $2, chunk_count = $3, language = $4, doc_type = $5,
		    file_name = COALESCE(NULLIF($6, ''), file_name),
		    error_message = NULL, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, models.StatusCompleted, chunkCount, language, docType, displayName)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) FailDocument(ctx context.Context, id string, message string) error {
	const q = `
		UPDATE documents
		SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1
	`
	_, err := c.db.ExecContext(ctx, q, id, models.StatusFailed, message)
	return err
}

func (c *DatabaseClient) DeleteDocument(ctx context.Context, id string) error {
	// Chunks go with it via ON DELETE CASCADE.
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// Chunks

// InsertChunks inserts all chunk rows for a document in a single transaction.
func (c *DatabaseClient) InsertChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_chunks
			(id, document_id, collection_id, content, metadata, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		meta, err := json.Marshal(ch.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal metadata: %w", err)
		}
		vec := pgvector.NewVector(ch.Embedding)

		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.CollectionID, ch.Content, meta, vec, nullableTime(ch.CreatedAt),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// MatchChunks is the vector-similarity RPC: cosine similarity ordered,
// filtered to the collection and the similarity threshold.
func (c *DatabaseClient) MatchChunks(ctx context.Context, embedding []float32, topK int, collectionID string, threshold float64) ([]models.SearchResult, error) {
	const q = `
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM document_chunks
		WHERE collection_id = $2
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1
		LIMIT $4
	`
	vec := pgvector.NewVector(embedding)
	rows, err := c.db.QueryContext(ctx, q, vec, collectionID, threshold, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

// KeywordMatchAll returns chunks matching every keyword (AND over ILIKE).
func (c *DatabaseClient) KeywordMatchAll(ctx context.Context, collectionID string, keywords []string, limit int) ([]models.SearchResult, error) {
	return c.keywordMatch(ctx, collectionID, keywords, limit, " AND ")
}

// KeywordMatchAny returns chunks matching at least one keyword (OR over ILIKE).
func (c *DatabaseClient) KeywordMatchAny(ctx context.Context, collectionID string, keywords []string, limit int) ([]models.SearchResult, error) {
	return c.keywordMatch(ctx, collectionID, keywords, limit, " OR ")
}

func (c *DatabaseClient) keywordMatch(ctx context.Context, collectionID string, keywords []string, limit int, joiner string) ([]models.SearchResult, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(keywords)+2)
	args = append(args, collectionID)
	conds := make([]string, 0, len(keywords))
	for i, kw := range keywords {
		conds = append(conds, fmt.Sprintf("content ILIKE $%d", i+2))
		args = append(args, "%"+escapeLike(kw)+"%")
	}
	args = append(args, limit)

	q := fmt.Sprintf(`
		SELECT id, content, metadata, 0 AS similarity
		FROM document_chunks
		WHERE collection_id = $1 AND (%s)
		LIMIT $%d
	`, strings.Join(conds, joiner), len(keywords)+2)

	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSearchResults(rows)
}

func scanSearchResults(rows *sql.Rows) ([]models.SearchResult, error) {
	var out []models.SearchResult
	for rows.Next() {
		var (
			r    models.SearchResult
			meta []byte
		)
		if err := rows.Scan(&r.ID, &r.Content, &meta, &r.Similarity); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &r.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// escapeLike escapes ILIKE wildcards inside a keyword.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// Collections

func (c *DatabaseClient) GetCollectionSettings(ctx context.Context, collectionID string) (*models.RagSettings, error) {
	const q = `
		SELECT embedding_model, top_k, match_threshold, hyde_enabled, rerank_enabled,
		       chunk_size, chunk_overlap, language
		FROM collections
		WHERE id = $1
	`
	var s models.RagSettings
	err := c.db.QueryRowContext(ctx, q, collectionID).Scan(
		&s.EmbeddingModel, &s.TopK, &s.MatchThreshold, &s.HydeEnabled, &s.RerankEnabled,
		&s.ChunkSize, &s.ChunkOverlap, &s.Language,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullableTime lets COALESCE(..., now()) fill timestamps the caller left zero.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
