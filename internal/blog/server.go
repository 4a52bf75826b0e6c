package blog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Server serves the posts API over HTTP.
type Server struct {
	store  *Store
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer builds the HTTP API around a store.
func NewServer(store *Store, logger *slog.Logger) *Server {
	s := &Server{store: store, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /posts", s.handleList)
	s.mux.HandleFunc("POST /posts", s.handleCreate)
	s.mux.HandleFunc("GET /posts/{id}", s.handleGet)
	s.mux.HandleFunc("DELETE /posts/{id}", s.handleDelete)
	s.mux.HandleFunc("OPTIONS /", s.handlePreflight)
	return s
}

// ServeHTTP makes the server usable directly under httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The frontend is served from a different origin.
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "*")
	w.Header().Set("Access-Control-Allow-Headers", "*")
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.List(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid post id")
		return
	}
	post, err := s.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.Title == "" || req.Content == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "title and content are required")
		return
	}
	post, err := s.store.Create(r.Context(), req.Title, req.Content)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid post id")
		return
	}
	err = s.store.Delete(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	writeDetail(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
