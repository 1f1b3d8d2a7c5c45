// Package mcp exposes PaperQA as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Service is the part of PaperQA the tools call.
type Service interface {
	Query(ctx context.Context, question string, k int) (*model.Answer, error)
	Search(ctx context.Context, query string, k int) ([]model.SearchHit, error)
	KeywordTotals(ctx context.Context, limit int) ([]model.KeywordWeight, error)
	ListPapers(ctx context.Context, lastCreatedAt *time.Time, limit int) ([]*model.PaperListItem, error)
}

// Server is the MCP server of PaperQA.
type Server struct {
	service Service
	server  *mcp.Server
	log     *slog.Logger
}

// NewServer creates an MCP server with the ask, search, keyword_totals,
// top_keywords and list_papers tools.
func NewServer(service Service, logger *slog.Logger) (*Server, error) {
	if service == nil {
		return nil, helper.NewError("create mcp server", fmt.Errorf("service is nil"))
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		service: service,
		server:  mcp.NewServer(&mcp.Implementation{Name: "paperqa", Version: Version}, nil),
		log:     logger,
	}
	s.registerTools()

	return s, nil
}

// Run serves over stdio until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("Starting mcp server", slog.String("transport", "stdio"))
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is done.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.log.Info("Starting mcp server", slog.String("transport", "http"), slog.String("addr", addr))

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return helper.NewError("serve mcp", err)
}
