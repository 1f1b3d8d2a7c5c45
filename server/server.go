// Package server exposes PaperQA over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
)

// MaxUploadSize bounds the body of an upload request.
const MaxUploadSize = 64 << 20

// Service is the part of PaperQA the HTTP routes call.
type Service interface {
	Ingest(ctx context.Context, fileName string, data []byte) (*model.IngestManifest, error)
	ReembedPaper(ctx context.Context, paperID int64) (*model.EmbedResult, error)
	Query(ctx context.Context, question string, k int) (*model.Answer, error)
	Search(ctx context.Context, query string, k int) ([]model.SearchHit, error)
	KeywordTotals(ctx context.Context, limit int) ([]model.KeywordWeight, error)
	ListPapers(ctx context.Context, lastCreatedAt *time.Time, limit int) ([]*model.PaperListItem, error)
	Paper(ctx context.Context, paperID int64) (*model.Paper, error)
	DeletePaper(ctx context.Context, paperID int64) error
	Analytics(ctx context.Context) (*model.Analytics, error)
	Stats(ctx context.Context) (*model.Stats, error)
}

// Server is the HTTP server of the frontend API and the legacy routes.
type Server struct {
	service Service
	addr    string
	log     *slog.Logger
}

// NewServer creates a server for service listening on addr.
func NewServer(service Service, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		service: service,
		addr:    addr,
		log:     logger,
	}
}

// Handler returns the routes wrapped with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)

	// Frontend API
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("GET /api/library", s.handleLibrary)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/analytics", s.handleAnalytics)
	mux.HandleFunc("GET /api/keywords", s.handleKeywords)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/papers/{id}", s.handlePaper)
	mux.HandleFunc("DELETE /api/papers/{id}", s.handleDeletePaper)
	mux.HandleFunc("POST /api/papers/{id}/embed", s.handleEmbed)

	// Legacy routes with unwrapped responses
	mux.HandleFunc("POST /ingest/pdf", s.handleIngestLegacy)
	mux.HandleFunc("POST /embed/{id}", s.handleEmbedLegacy)
	mux.HandleFunc("POST /chat/", s.handleChatLegacy)
	mux.HandleFunc("GET /papers/", s.handleLibraryLegacy)
	mux.HandleFunc("GET /query/", s.handleQueryLegacy)
	mux.HandleFunc("GET /analytics/keywords", s.handleKeywordsLegacy)
	mux.HandleFunc("GET /analytics/stats", s.handleStatsLegacy)

	return corsMiddleware(s.loggingMiddleware(mux))
}

// Start serves until ctx is done and then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      5 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Error("Failed to shut down server", slog.String("error", err.Error()))
		}
	}()

	s.log.Info("Starting server", slog.String("addr", s.addr))

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return helper.NewError("serve http", err)
}

// statusCode maps error kinds to HTTP status codes.
func statusCode(err error) int {
	switch helper.KindOf(err) {
	case helper.ErrUnsupportedInput, helper.ErrPrecondition:
		return http.StatusBadRequest
	case helper.ErrNotFound:
		return http.StatusNotFound
	case helper.ErrProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.log.Debug("Handled request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", recorder.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
