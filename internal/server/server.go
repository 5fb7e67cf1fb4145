package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"chat-relay/internal/domain"
	"chat-relay/internal/usecase"
)

const maxBodyBytes = 1 << 20

// ChatRelay runs one chat turn.
type ChatRelay interface {
	HandleTurn(ctx context.Context, in domain.ChatTurnRequest) (domain.NormalizedResponse, error)
}

// Profiles reads and merges user preferences.
type Profiles interface {
	Get(ctx context.Context, userID string) (domain.Profile, error)
	Update(ctx context.Context, userID string, partial domain.Profile) (domain.Profile, error)
}

type Options struct {
	AllowedOrigin string
	// StaticDir, when set, serves the built UI with an index.html fallback.
	StaticDir string
	Logger    *slog.Logger
	Now       func() time.Time
}

type Server struct {
	router   *chi.Mux
	relay    ChatRelay
	profiles Profiles
	logger   *slog.Logger
	now      func() time.Time
}

func NewServer(relay ChatRelay, profiles Profiles, opts Options) (*Server, error) {
	if relay == nil {
		return nil, errors.New("server: chat relay must not be nil")
	}
	if profiles == nil {
		return nil, errors.New("server: profiles must not be nil")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "http://localhost:5173"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{opts.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", "X-Correlation-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s := &Server{
		router:   r,
		relay:    relay,
		profiles: profiles,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	s.routes(opts.StaticDir)
	return s, nil
}

func (s *Server) routes(staticDir string) {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/profile/{userId}", s.handleGetProfile)
	s.router.Post("/api/profile/{userId}", s.handleUpdateProfile)
	s.router.Post("/api/chat", s.handleChat)

	if staticDir != "" {
		s.router.NotFound(s.spaHandler(staticDir))
	}
}

func (s *Server) Router() http.Handler { return s.router }

type chatRequest struct {
	Message  string         `json:"message"`
	UserID   string         `json:"userId"`
	Profile  domain.Profile `json:"profile"`
	Language any            `json:"language"`
}

type chatResponse struct {
	OK bool `json:"ok"`
	domain.NormalizedResponse
}

type profileUpdateRequest struct {
	Preferences domain.Profile `json:"preferences"`
}

type okResponse struct {
	OK   bool           `json:"ok"`
	Data domain.Profile `json:"data,omitempty"`
	Time string         `json:"time,omitempty"`
}

type errorResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Detail any    `json:"detail,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, okResponse{OK: true, Time: s.now().UTC().Format(time.RFC3339)})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profiles.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		s.writeUsecaseError(w, r, err)
		return
	}
	// Data is always present, even when empty.
	writeJSON(w, http.StatusOK, struct {
		OK   bool           `json:"ok"`
		Data domain.Profile `json:"data"`
	}{OK: true, Data: profile})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}
	if _, err := s.profiles.Update(r.Context(), chi.URLParam(r, "userId"), req.Preferences); err != nil {
		s.writeUsecaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}
	language, _ := req.Language.(string)

	out, err := s.relay.HandleTurn(r.Context(), domain.ChatTurnRequest{
		Message:  req.Message,
		UserID:   req.UserID,
		Profile:  req.Profile,
		Language: language,
	})
	if err != nil {
		s.writeUsecaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{OK: true, NormalizedResponse: out})
}

// decodeBody accepts an empty body as an empty request.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) writeUsecaseError(w http.ResponseWriter, r *http.Request, err error) {
	status, summary, detail := describeError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"status", status,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
	}
	writeError(w, status, summary, detail)
}

// describeError maps service errors onto an HTTP status and response body.
func describeError(err error) (status int, summary string, detail any) {
	var usecaseErr *usecase.Error
	if !errors.As(err, &usecaseErr) {
		return http.StatusInternalServerError, "internal error", nil
	}
	switch usecaseErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, "invalid input", usecaseErr.Reason
	case usecase.ErrorUpstreamConfig:
		return http.StatusInternalServerError, "Dify configuration missing or invalid", usecaseErr.Detail
	case usecase.ErrorUpstreamRequest:
		status := usecaseErr.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return status, "Dify request failed", usecaseErr.Detail
	default:
		return http.StatusInternalServerError, "internal error", nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, summary string, detail any) {
	writeJSON(w, status, errorResponse{OK: false, Error: summary, Detail: detail})
}

// spaHandler serves files from dir and falls back to index.html so
// client-side routes resolve. Unknown /api paths stay JSON 404s.
func (s *Server) spaHandler(dir string) http.HandlerFunc {
	files := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			writeError(w, http.StatusNotFound, "not found", nil)
			return
		}
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	}
}
