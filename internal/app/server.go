package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/knova-io/knova/internal/api/handlers"
	"github.com/knova-io/knova/internal/config"
	"github.com/knova-io/knova/internal/core"
	"github.com/knova-io/knova/internal/core/ingest"
	"github.com/knova-io/knova/internal/core/retrieval"
	"github.com/knova-io/knova/internal/logger"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, obj core.ObjectClient, emb core.EmbeddingProvider, llm core.LLMProvider, ing *ingest.DocumentIngestor, engine *retrieval.Engine) *Server {
	docHandler := handlers.NewDocumentHandler(db, obj, emb, ing, cfg)
	searchHandler := handlers.NewSearchHandler(engine)
	chatHandler := handlers.NewChatHandler(engine, llm)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/collections/{collectionID}", func(col chi.Router) {
			col.Post("/documents", docHandler.UploadDocument)
			col.Get("/documents", docHandler.ListDocuments)
			col.Post("/crawl", docHandler.CrawlURL)
			col.Post("/qa", docHandler.SubmitQA)
		})
		api.Delete("/documents/{documentID}", docHandler.DeleteDocument)
		api.Post("/search", searchHandler.Search)
		api.Post("/chat/query", chatHandler.QueryCollection)
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
