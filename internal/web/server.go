package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"storyvis/internal/app"
	"storyvis/internal/apperr"
	"storyvis/internal/story"
)

const (
	MediaPrefix  = "/media/"
	maxBodyBytes = 1 << 20
)

//go:embed static/index.html
var indexHTML []byte

type MediaLister interface {
	Dir() string
	List() ([]string, error)
}

type Server struct {
	session *app.Session
	svc     *app.Service
	media   MediaLister
	// jobs outlive the HTTP request that started them.
	jobCtx context.Context
	mux    *http.ServeMux
}

func NewServer(jobCtx context.Context, svc *app.Service, session *app.Session, media MediaLister) *Server {
	s := &Server{
		session: session,
		svc:     svc,
		media:   media,
		jobCtx:  jobCtx,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.Handle("GET "+MediaPrefix, http.StripPrefix(MediaPrefix, http.FileServer(http.Dir(s.media.Dir()))))
	s.mux.HandleFunc("GET /api/media", s.handleListMedia)
	s.mux.HandleFunc("POST /api/context", s.handleContext)
	s.mux.HandleFunc("POST /api/generate", s.handleGenerate)
	s.mux.HandleFunc("DELETE /api/generate", s.handleCancel)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/type", s.handleType)
	s.mux.HandleFunc("GET /api/key", s.handleKeyStatus)
	s.mux.HandleFunc("POST /api/key", s.handleSelectKey)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve runs the HTTP server on l until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	server := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type contextRequest struct {
	Story    string `json:"story"`
	Sentence string `json:"sentence"`
}

type typeRequest struct {
	Type string `json:"type"`
}

type keyRequest struct {
	Key string `json:"key"`
}

type keyResponse struct {
	KeyReady bool `json:"keyReady"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleListMedia(w http.ResponseWriter, _ *http.Request) {
	names, err := s.media.List()
	if err != nil {
		writeError(w, err)
		return
	}

	urls := make([]string, 0, len(names))
	for _, name := range names {
		urls = append(urls, MediaPrefix+name)
	}
	writeJSON(w, http.StatusOK, urls)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if !decode(w, r, &req) {
		return
	}

	window, err := s.svc.ExtractContext(req.Story, req.Sentence)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, window)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req app.Request
	if !decode(w, r, &req) {
		return
	}

	if err := s.session.Start(s.jobCtx, req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.session.Snapshot())
}

func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	if !s.session.Cancel() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "nothing to cancel"})
		return
	}
	writeJSON(w, http.StatusAccepted, s.session.Snapshot())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleType(w http.ResponseWriter, r *http.Request) {
	var req typeRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.session.SetType(r.Context(), req.Type); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleKeyStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, keyResponse{KeyReady: s.session.Snapshot().KeyReady})
}

func (s *Server) handleSelectKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if !decode(w, r, &req) {
		return
	}

	key := strings.TrimSpace(req.Key)
	if key == "" {
		writeError(w, fmt.Errorf("%w: key is empty", apperr.ErrValidation))
		return
	}

	if store := s.svc.KeyStore(); store != nil {
		store.Set(key)
	}
	if err := s.session.SelectAPIKey(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keyResponse{KeyReady: s.session.Snapshot().KeyReady})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	msg, _ := apperr.UserMessage(err)
	writeJSON(w, statusFor(err), errorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, story.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrConfig):
		return http.StatusPreconditionFailed
	case errors.Is(err, apperr.ErrProvider), errors.Is(err, apperr.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}
