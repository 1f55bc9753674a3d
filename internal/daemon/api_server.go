package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidslides/internal/api"
	"vidslides/internal/config"
	"vidslides/internal/logging"
	"vidslides/internal/services"
)

const (
	maxRequestBody  = 1 << 20
	pptxMediaType   = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	requestIDHeader = "X-Request-ID"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	jobs   *api.JobService

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

type errorResponse struct {
	Error  string            `json:"error"`
	Code   api.ErrorCode     `json:"code,omitempty"`
	JobID  string            `json:"job_id,omitempty"`
	Status string            `json:"status,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
		jobs:   d.jobs,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/jobs", srv.handleCreateJob)
	mux.HandleFunc("GET /api/jobs", srv.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{job_id}", srv.handleGetJob)
	mux.HandleFunc("POST /api/jobs/{job_id}/reprocess", srv.handleReprocess)
	mux.HandleFunc("GET /api/jobs/{job_id}/deck", srv.handleDeck)
	mux.HandleFunc("POST /api/queue/drain", srv.handleDrain)
	mux.HandleFunc("GET /api/library", srv.handleLibrary)
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.Handle("GET /api/events", d.hub)

	srv.handler = srv.withRequestID(authMiddleware(cfg.Paths.APIToken, mux))
	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
}

// address reports the bound listener, which differs from bind for ":0".
func (s *apiServer) address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := services.WithRequestID(r.Context(), id)
		logging.WithContext(ctx, s.logger).Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *apiServer) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req api.CreateJobRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, r, &api.ServiceError{Code: api.CodeInvalidRequest, Message: "invalid JSON body: " + err.Error()})
		return
	}
	job, err := s.jobs.CreateJob(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, job)
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := optionalInt(query.Get("limit"))
	if err != nil || limit < 0 {
		s.writeError(w, r, &api.ServiceError{Code: api.CodeInvalidRequest, Message: "limit must be a positive integer"})
		return
	}
	resp, err := s.jobs.ListJobs(r.Context(), limit, query.Get("status"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.GetJob(r.Context(), r.PathValue("job_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *apiServer) handleReprocess(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Reprocess(r.Context(), r.PathValue("job_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *apiServer) handleDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := s.jobs.DeckFile(r.Context(), r.PathValue("job_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	file, err := os.Open(deck.Path)
	if err != nil {
		s.writeError(w, r, &api.ServiceError{Code: api.CodeNotReady, Message: "Deck file is missing", JobID: r.PathValue("job_id")})
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", pptxMediaType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": deck.Filename}))
	http.ServeContent(w, r, deck.Filename, info.ModTime(), file)
}

func (s *apiServer) handleDrain(w http.ResponseWriter, r *http.Request) {
	resp, err := s.jobs.DrainQueue(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleLibrary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := optionalInt(query.Get("page"))
	if err != nil {
		s.writeError(w, r, &api.ServiceError{Code: api.CodeInvalidRequest, Message: "page must be an integer"})
		return
	}
	pageSize, err := optionalInt(query.Get("page_size"))
	if err != nil {
		s.writeError(w, r, &api.ServiceError{Code: api.CodeInvalidRequest, Message: "page_size must be an integer"})
		return
	}
	resp, err := s.jobs.BrowseCompleted(r.Context(), page, pageSize, query.Get("search"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func optionalInt(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if svcErr, ok := api.AsServiceError(err); ok {
		s.writeJSON(w, svcErr.HTTPStatus(), errorResponse{
			Error:  svcErr.Message,
			Code:   svcErr.Code,
			JobID:  svcErr.JobID,
			Status: svcErr.Status,
			Fields: svcErr.Fields,
		})
		return
	}
	logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_error",
		logging.String("path", r.URL.Path),
		logging.Error(err),
	)
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
