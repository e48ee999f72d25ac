package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nexusflow/taxassist/internal/agent"
	"github.com/nexusflow/taxassist/internal/memory"
	"github.com/nexusflow/taxassist/internal/vectordb"
)

// registerRoutes mounts the assistant API.
func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Route("/chat", func(r chi.Router) {
		r.Post("/agent", s.handleAsk)
		r.Post("/clear", s.handleClear)
		r.Get("/{userID}/history", s.handleHistory)
		r.Get("/ws", s.handleWebSocket)
	})
	r.Post("/documents", s.handleStoreDocument)
	r.Get("/users/{userID}", s.handleDescribeUser)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"service":  "Tax Document Assistant API",
		"features": []string{"RAG document search", "User-specific storage", "Document management"},
	})
}

type askRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

type askResponse struct {
	Response  string  `json:"response"`
	Query     string  `json:"query"`
	UserID    string  `json:"user_id"`
	Timestamp float64 `json:"timestamp"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := s.engine.Ask(r.Context(), req.Query, req.UserID)
	if err != nil {
		writeAgentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Response:  answer,
		Query:     req.Query,
		UserID:    req.UserID,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	})
}

type clearRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.engine.Clear(r.Context(), req.UserID); err != nil {
		writeAgentError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "user_id": req.UserID})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	messages, err := s.engine.History(r.Context(), userID)
	if err != nil {
		writeAgentError(w, err)
		return
	}
	if messages == nil {
		messages = []memory.Message{}
	}

	writeJSON(w, http.StatusOK, messages)
}

type storeDocumentRequest struct {
	UserID   string `json:"user_id"`
	Content  string `json:"content"`
	Source   string `json:"source"`
	Filename string `json:"filename"`
}

type storeDocumentResponse struct {
	Status     string `json:"status"`
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
	DataSource string `json:"data_source"`
}

func (s *Server) handleStoreDocument(w http.ResponseWriter, r *http.Request) {
	var req storeDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Source == "" {
		req.Source = "document"
	}

	docID, err := s.store.Store(r.Context(), req.UserID, req.Content, req.Source, req.Filename)
	if err != nil {
		if errors.Is(err, vectordb.ErrBadUserID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, storeDocumentResponse{
		Status:     "success",
		DocumentID: docID,
		UserID:     req.UserID,
		DataSource: req.Source,
	})
}

func (s *Server) handleDescribeUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	stats, err := s.store.Describe(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, vectordb.ErrNoIndex):
			writeError(w, http.StatusNotFound, "no documents stored for user "+userID)
		case errors.Is(err, vectordb.ErrBadUserID):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// writeAgentError maps engine errors onto HTTP statuses. Validation failures
// are client errors; everything else is a server failure with the wrapped
// message, never a stack trace.
func writeAgentError(w http.ResponseWriter, err error) {
	if errors.Is(err, agent.ErrEmptyQuery) || errors.Is(err, agent.ErrEmptyUserID) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
