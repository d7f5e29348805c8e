// Package http exposes workflow sessions as a JSON API.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/tracescribe"
	"github.com/aretw0/tracescribe/internal/logging"
	"github.com/aretw0/tracescribe/pkg/catalog"
	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/aretw0/tracescribe/pkg/session"
	"github.com/aretw0/tracescribe/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// uploadOverhead leaves room for multipart boundaries and the template field.
const uploadOverhead = 1 << 20

// Server routes HTTP requests to sessions owned by a session.Manager.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler creates a new HTTP handler for the sessions of m.
func NewHandler(m *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Sessions: m,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/templates", s.ListTemplates)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/template", s.SelectTemplate)
			r.Post("/upload", s.UploadFile)
			r.Post("/back", s.GoBack)
			r.Post("/reset", s.Reset)
			r.Get("/artifact", s.DownloadArtifact)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionResponse is the body returned by every session endpoint.
type SessionResponse struct {
	ID    string                `json:"id"`
	State *domain.WorkflowState `json:"state"`
}

type templateRequest struct {
	Template string `json:"template"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "tracescribe-http",
		"version": strings.TrimSpace(tracescribe.Version),
	})
}

// ListTemplates handles the GET /templates request.
func (s *Server) ListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.List())
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sessions.List())
}

// CreateSession handles the POST /sessions request.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Create(r.Context())
	snapshots, _ := sess.Subscribe()
	go s.relay(sess, snapshots, sess.Snapshot())
	writeJSON(w, http.StatusCreated, SessionResponse{ID: sess.ID(), State: sess.Snapshot()})
}

// GetSession handles the GET /sessions/{id} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: sess.ID(), State: sess.Snapshot()})
}

// DeleteSession handles the DELETE /sessions/{id} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, "DeleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectTemplate handles the POST /sessions/{id}/template request.
func (s *Server) SelectTemplate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var body templateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("SelectTemplate: Invalid request body", "error", err)
		return
	}
	id, err := domain.ParseTemplateID(body.Template)
	if err != nil {
		s.writeError(w, "SelectTemplate", err)
		return
	}

	s.intent(w, r, sess, "SelectTemplate", func() error {
		return sess.SelectTemplate(r.Context(), id)
	})
}

// UploadFile handles the POST /sessions/{id}/upload request.
// The body is multipart with a "file" part and an optional "template_type" field
// that selects the template first when the session is still choosing one.
func (s *Server) UploadFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, validator.MaxFileSize+uploadOverhead)
	part, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, "UploadFile", &domain.RejectionError{Reason: validator.ReasonTooLarge})
			return
		}
		http.Error(w, "Missing file part", http.StatusBadRequest)
		s.logger.Warn("UploadFile: Missing file part", "error", err)
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		s.logger.Warn("UploadFile: Read failed", "error", err)
		return
	}
	file := domain.BytesFile(validator.SanitizeName(header.Filename), data)

	if raw := r.FormValue("template_type"); raw != "" {
		id, err := domain.ParseTemplateID(raw)
		if err != nil {
			s.writeError(w, "UploadFile", err)
			return
		}
		state := sess.Snapshot()
		switch {
		case state.Step != domain.StepResult:
			if err := sess.SelectTemplate(r.Context(), id); err != nil {
				s.writeError(w, "UploadFile", err)
				return
			}
		case state.SelectedTemplate != id:
			s.writeError(w, "UploadFile", fmt.Errorf("%w: template %s differs from the selected %s; go back or reset first",
				domain.ErrTransitionNotAllowed, id, state.SelectedTemplate))
			return
		}
	}

	s.intent(w, r, sess, "UploadFile", func() error {
		return sess.UploadFile(r.Context(), file)
	})
}

// GoBack handles the POST /sessions/{id}/back request.
func (s *Server) GoBack(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.intent(w, r, sess, "GoBack", func() error {
		return sess.GoBack(r.Context())
	})
}

// Reset handles the POST /sessions/{id}/reset request.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.intent(w, r, sess, "Reset", func() error {
		return sess.Reset(r.Context())
	})
}

// DownloadArtifact handles the GET /sessions/{id}/artifact request.
// With ?wait=true it blocks until the in-flight request completes.
func (s *Server) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		if _, err := sess.Await(r.Context()); err != nil {
			s.writeError(w, "DownloadArtifact", err)
			return
		}
	}

	blob, err := sess.OpenArtifact(r.Context())
	if err != nil {
		s.writeError(w, "DownloadArtifact", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", blob.Name))
	w.Header().Set("Content-Length", fmt.Sprint(len(blob.Data)))
	if _, err := w.Write(blob.Data); err != nil {
		s.logger.Error("DownloadArtifact write failed", "error", err, "session_id", sess.ID())
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "Session", err)
		return nil, false
	}
	return sess, true
}

func (s *Server) intent(w http.ResponseWriter, r *http.Request, sess *session.Session, name string, fn func() error) {
	if err := fn(); err != nil {
		s.writeError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: sess.ID(), State: sess.Snapshot()})
}

// ErrorResponse mirrors the formatting service's error body.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	} else {
		s.logger.Debug(op+" rejected", "error", err, "status", status)
	}
	writeJSON(w, status, ErrorResponse{Detail: domain.UserMessage(err)})
}

func statusFor(err error) int {
	var rej *domain.RejectionError
	switch {
	case errors.As(err, &rej):
		if rej.Reason == validator.ReasonTooLarge {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnknownTemplate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTransitionNotAllowed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionClosed):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}
