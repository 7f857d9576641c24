// Package chi exposes the chat pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tutordex/internal/db"
	"github.com/kailas-cloud/tutordex/internal/domain"
	"github.com/kailas-cloud/tutordex/internal/usecase/chat"
)

// ChatService is the transport's view of the chat pipeline.
type ChatService interface {
	Send(ctx context.Context, req chat.Request) (chat.Response, error)
	GetSession(ctx context.Context, id string) (domain.Session, error)
}

// Server implements the HTTP API.
type Server struct {
	chat   ChatService
	pinger db.Pinger
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(chatSvc ChatService, pinger db.Pinger, logger *zap.Logger) *Server {
	return &Server{chat: chatSvc, pinger: pinger, logger: logger}
}

// RegisterRoutes mounts all API routes on the router.
func (s *Server) RegisterRoutes(r gochi.Router) {
	r.Post("/chat/message", s.sendMessage)
	r.Get("/chat/sessions/{sessionID}", s.getSession)
	r.Get("/health", s.healthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// sendMessage handles POST /chat/message.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "content is required")
		return
	}

	resp, err := s.chat.Send(r.Context(), chat.Request{
		SessionID:       req.SessionID,
		Content:         req.Content,
		ChapterID:       req.ChapterID,
		HighlightedText: req.SelectedText,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	out := chatResponse{
		SessionID: resp.SessionID,
		Response:  resp.Answer,
		Sources:   sourcesToDTO(resp.Sources),
	}
	if resp.Err != "" {
		out.Error = &resp.Err
	}
	writeJSON(w, http.StatusOK, out)
}

// getSession handles GET /chat/sessions/{sessionID}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := gochi.URLParam(r, "sessionID")

	session, err := s.chat.GetSession(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionToDTO(session))
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK
	if err := s.pinger.Ping(r.Context()); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]string{"status": status})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, codeSessionNotFound, "Session not found or expired")
		return
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
