package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knova-io/knova/internal/core"
	"github.com/knova-io/knova/internal/core/classify"
	"github.com/knova-io/knova/internal/core/parser"
	"github.com/knova-io/knova/internal/core/settings"
	"github.com/knova-io/knova/internal/core/tables"
	"github.com/knova-io/knova/internal/core/textproc"
	"github.com/knova-io/knova/internal/logger"
	"github.com/knova-io/knova/internal/models"
)

const (
	jobQueueSize  = 64
	perDocTimeout = 10 * time.Minute
)

type job struct {
	documentID string
	useVision  bool
}

// Result reports the outcome of processing one document.
type Result struct {
	Success    bool
	ChunkCount int
}

// DocumentIngestor sequences the ingestion pipeline per document and drives
// its status transitions. Documents run through a bounded worker queue;
// within one document the steps are strictly sequential.
type DocumentIngestor struct {
	db           core.DbClient
	obj          core.ObjectClient
	embedder     core.EmbeddingProvider
	llm          core.LLMProvider
	classifier   *classify.Classifier
	restructurer *tables.Restructurer
	summarizer   *tables.Summarizer
	settings     *settings.Cache
	bucket       string
	crawlTimeout time.Duration

	jobs chan job
}

func NewDocumentIngestor(
	db core.DbClient,
	obj core.ObjectClient,
	embedder core.EmbeddingProvider,
	llm core.LLMProvider,
	cache *settings.Cache,
	bucket string,
	crawlTimeout time.Duration,
) *DocumentIngestor {
	return &DocumentIngestor{
		db:           db,
		obj:          obj,
		embedder:     embedder,
		llm:          llm,
		classifier:   classify.NewClassifier(llm),
		restructurer: tables.NewRestructurer(llm),
		summarizer:   tables.NewSummarizer(llm),
		settings:     cache,
		bucket:       bucket,
		crawlTimeout: crawlTimeout,
		jobs:         make(chan job, jobQueueSize),
	}
}

// Start launches the worker pool. Workers exit when ctx is canceled; a
// document already in flight runs to completion or failure.
func (ing *DocumentIngestor) Start(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		go ing.worker(ctx, i)
	}
	logger.Info("ingestion workers started", zap.Int("workers", numWorkers))
}

func (ing *DocumentIngestor) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-ing.jobs:
			res, err := ing.ProcessOne(j.documentID, j.useVision)
			if err != nil {
				logger.Error("document ingestion failed",
					zap.Int("worker", id),
					zap.String("document", j.documentID),
					zap.Error(err))
				continue
			}
			logger.Info("document ingested",
				zap.Int("worker", id),
				zap.String("document", j.documentID),
				zap.Int("chunks", res.ChunkCount))
		}
	}
}

// Enqueue schedules a document for processing. Non-blocking: returns false
// when the queue is full so callers can reject the request instead of tying
// up the HTTP goroutine; the document stays pending and can be re-submitted.
func (ing *DocumentIngestor) Enqueue(documentID string, useVision bool) bool {
	select {
	case ing.jobs <- job{documentID: documentID, useVision: useVision}:
		return true
	default:
		logger.Warn("ingestion queue full", zap.String("document", documentID))
		return false
	}
}

// ProcessOne runs the full pipeline for a single document under its own
// timeout. Any pipeline error marks the document failed with the error text;
// there is no automatic retry.
func (ing *DocumentIngestor) ProcessOne(documentID string, useVision bool) (*Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), perDocTimeout)
	defer cancel()

	doc, err := ing.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", documentID, err)
	}
	// The row can vanish between Enqueue and here (deleted while queued).
	if doc == nil {
		return nil, fmt.Errorf("document not found: %s", documentID)
	}

	if err := ing.db.UpdateDocumentStatus(ctx, doc.ID, models.StatusProcessing); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	res, err := ing.runPipeline(ctx, doc, useVision)
	if err != nil {
		if failErr := ing.db.FailDocument(ctx, doc.ID, err.Error()); failErr != nil {
			logger.Error("failed to record document failure",
				zap.String("document", doc.ID), zap.Error(failErr))
		}
		return nil, err
	}
	return res, nil
}

func (ing *DocumentIngestor) runPipeline(ctx context.Context, doc *models.Document, useVision bool) (*Result, error) {
	text, title, err := ing.extract(ctx, doc, useVision)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, parser.ErrEmptyDocument
	}

	cls := ing.classifier.Classify(ctx, text)

	text = textproc.Preprocess(text, cls.Language)

	if cls.DocType == classify.DocTypeTableHeavy {
		text = ing.restructurer.Restructure(ctx, text)
	}

	cfg := ing.settings.Get(ctx, doc.CollectionID)
	overlap := cfg.ChunkOverlap
	if overlap <= 0 {
		overlap = textproc.OverlapFor(cls.Language, cfg.ChunkSize)
	}
	chunks := textproc.Chunk(text, textproc.ChunkOptions{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: overlap,
	})
	if len(chunks) == 0 {
		return nil, parser.ErrEmptyDocument
	}

	var summaries []tables.Summary
	if cls.DocType == classify.DocTypeTableHeavy {
		summaries = ing.summarizer.Summarize(ctx, text)
	}

	rows := ing.buildChunkRows(doc, chunks, summaries)

	texts := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = r.Content
	}
	embeddings, err := ing.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(rows) {
		return nil, fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(rows), len(embeddings))
	}
	for i := range rows {
		rows[i].Embedding = embeddings[i]
	}

	if err := ing.db.InsertChunks(ctx, rows); err != nil {
		return nil, fmt.Errorf("insert chunks: %w", err)
	}

	displayName := doc.FileName
	if doc.SourceType == models.SourceURL && title != "" {
		displayName = title
	}
	if err := ing.db.CompleteDocument(ctx, doc.ID, len(rows), cls.Language, cls.DocType, displayName); err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}

	return &Result{Success: true, ChunkCount: len(rows)}, nil
}

// extract produces raw text (and a page title for URL sources) from the
// document's source bytes or URL.
func (ing *DocumentIngestor) extract(ctx context.Context, doc *models.Document, useVision bool) (text, title string, err error) {
	switch doc.SourceType {
	case models.SourcePDF:
		data, err := ing.obj.GetFile(ctx, ing.bucket, doc.StorageKey)
		if err != nil {
			return "", "", fmt.Errorf("fetch %s: %w", doc.StorageKey, err)
		}
		if useVision {
			text, err = parser.ParsePDFWithVision(ctx, data, ing.llm)
		} else {
			text, err = parser.ParsePDF(data)
		}
		return text, "", err

	case models.SourceHTML:
		data, err := ing.obj.GetFile(ctx, ing.bucket, doc.StorageKey)
		if err != nil {
			return "", "", fmt.Errorf("fetch %s: %w", doc.StorageKey, err)
		}
		text, title, err = parser.ParseHTML(data)
		return text, title, err

	case models.SourceURL:
		res, err := parser.Crawl(ctx, doc.SourceURL, ing.crawlTimeout)
		if err != nil {
			return "", "", err
		}
		return res.Text, res.Title, nil

	default:
		return "", "", fmt.Errorf("%w: %s", parser.ErrUnsupportedType, doc.SourceType)
	}
}

func (ing *DocumentIngestor) buildChunkRows(doc *models.Document, chunks []textproc.TextChunk, summaries []tables.Summary) []models.DocumentChunk {
	rows := make([]models.DocumentChunk, 0, len(chunks)+len(summaries))
	for _, c := range chunks {
		rows = append(rows, models.DocumentChunk{
			ID:           uuid.NewString(),
			DocumentID:   doc.ID,
			CollectionID: doc.CollectionID,
			Content:      c.Content,
			Metadata: models.ChunkMetadata{
				ChunkIndex:     c.Index,
				StartChar:      c.StartChar,
				EndChar:        c.EndChar,
				SourceFileName: doc.FileName,
			},
		})
	}
	for _, s := range summaries {
		rows = append(rows, models.DocumentChunk{
			ID:           uuid.NewString(),
			DocumentID:   doc.ID,
			CollectionID: doc.CollectionID,
			Content:      s.Content,
			Metadata: models.ChunkMetadata{
				ChunkIndex:     s.ChunkIndex,
				SourceFileName: doc.FileName,
			},
		})
	}
	return rows
}
