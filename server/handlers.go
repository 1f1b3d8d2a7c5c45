package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
)

type chatRequest struct {
	Message string `json:"message"`
	K       int    `json:"k,omitempty"`
}

type uploadData struct {
	EmbeddingID string `json:"embedding_id"`
	PaperID     int64  `json:"paper_id"`
	FileName    string `json:"file_name"`
	Chunks      int    `json:"chunks"`
	Summary     string `json:"summary"`
}

type embedData struct {
	Message string `json:"message"`
	PaperID int64  `json:"paper_id"`
	Chunks  int    `json:"chunks"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "AI Research Platform API is running"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, err := s.upload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func (s *Server) handleIngestLegacy(w http.ResponseWriter, r *http.Request) {
	data, err := s.upload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "PDF processed",
		"paper_id":     data.PaperID,
		"embedding_id": data.EmbeddingID,
		"chunks":       data.Chunks,
		"summary":      data.Summary,
	})
}

// upload ingests the multipart file field "file".
func (s *Server) upload(w http.ResponseWriter, r *http.Request) (*uploadData, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, helper.Kind(helper.ErrPrecondition, helper.NewError("read upload", err))
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, helper.Kind(helper.ErrPrecondition, helper.NewError("read upload", err))
	}

	manifest, err := s.service.Ingest(r.Context(), header.Filename, content)
	if err != nil {
		return nil, err
	}

	return &uploadData{
		EmbeddingID: manifest.DocumentID,
		PaperID:     manifest.PaperID,
		FileName:    manifest.FileName,
		Chunks:      manifest.ChunkCount,
		Summary:     manifest.Summary,
	}, nil
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	papers, err := s.library(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": papers})
}

func (s *Server) handleLibraryLegacy(w http.ResponseWriter, r *http.Request) {
	papers, err := s.library(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, papers)
}

// library lists papers, optionally paged with ?limit= and ?before=<RFC 3339>.
func (s *Server) library(r *http.Request) ([]*model.PaperListItem, error) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		return nil, err
	}

	var before *time.Time
	if v := r.URL.Query().Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, helper.Kind(helper.ErrPrecondition, helper.NewError("parse before", err))
		}
		before = &t
	}

	return s.service.ListPapers(r.Context(), before, limit)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	answer, err := s.chat(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"response":  answer.Answer,
		"citations": answer.Citations,
	})
}

func (s *Server) handleChatLegacy(w http.ResponseWriter, r *http.Request) {
	answer, err := s.chat(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) chat(r *http.Request) (*model.Answer, error) {
	var request chatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, helper.Kind(helper.ErrPrecondition, helper.NewError("decode chat request", err))
	}
	return s.service.Query(r.Context(), request.Message, request.K)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	hits, err := s.search(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"results": hits}})
}

func (s *Server) handleQueryLegacy(w http.ResponseWriter, r *http.Request) {
	hits, err := s.search(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

func (s *Server) search(r *http.Request) ([]model.SearchHit, error) {
	k, err := intParam(r, "k", 5)
	if err != nil {
		return nil, err
	}
	return s.service.Search(r.Context(), r.URL.Query().Get("q"), k)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.service.Analytics(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": analytics})
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	keywords, err := s.keywords(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": keywords})
}

func (s *Server) handleKeywordsLegacy(w http.ResponseWriter, r *http.Request) {
	keywords, err := s.keywords(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keywords": keywords})
}

func (s *Server) keywords(r *http.Request) ([]model.KeywordWeight, error) {
	limit, err := intParam(r, "limit", 25)
	if err != nil {
		return nil, err
	}
	return s.service.KeywordTotals(r.Context(), limit)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": stats})
}

func (s *Server) handleStatsLegacy(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePaper(w http.ResponseWriter, r *http.Request) {
	id, err := paperID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	paper, err := s.service.Paper(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": paper})
}

func (s *Server) handleDeletePaper(w http.ResponseWriter, r *http.Request) {
	id, err := paperID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.service.DeletePaper(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]int64{"paper_id": id}})
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	data, err := s.embed(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func (s *Server) handleEmbedLegacy(w http.ResponseWriter, r *http.Request) {
	data, err := s.embed(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) embed(r *http.Request) (*embedData, error) {
	id, err := paperID(r)
	if err != nil {
		return nil, err
	}

	result, err := s.service.ReembedPaper(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return &embedData{Message: "Rebuilt embeddings", PaperID: id, Chunks: result.UpsertedCount}, nil
}

func paperID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, helper.Kind(helper.ErrPrecondition, fmt.Errorf("invalid paper id %q", r.PathValue("id")))
	}
	return id, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, helper.Kind(helper.ErrPrecondition, fmt.Errorf("invalid %s %q", name, v))
	}
	return i, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusCode(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("Request failed", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	}
	writeJSON(w, status, map[string]any{"success": false, "detail": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
