// Package api exposes trainings, reports, exports and respondent submissions
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"evalreport-go/internal/logger"
	"evalreport-go/internal/session"
	"evalreport-go/internal/store"
	"evalreport-go/internal/types"
)

// Notifier is told which groups a stored submission touched.
type Notifier interface {
	OnResponses(ctx context.Context, trainingID string, kind types.ResponseType, groupKeys []string) []string
}

type Options struct {
	AdminSecret      string
	SuperAdminSecret string
	Location         *time.Location
	// NotifyTimeout bounds one background notification run.
	NotifyTimeout time.Duration
	Now           func() time.Time
}

type Server struct {
	store     *store.Store
	notifier  Notifier
	log       *logger.Logger
	opts      Options
	validator *trainingValidator

	// submitMu serializes the participant-limit count with the write.
	submitMu sync.Mutex
	bg       sync.WaitGroup
}

// New builds the server. notifier may be nil when no gateway is configured.
func New(st *store.Store, n Notifier, log *logger.Logger, opts Options) *Server {
	if log == nil {
		log = logger.New()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 30 * time.Second
	}
	return &Server{
		store:     st,
		notifier:  n,
		log:       log.Component("api"),
		opts:      opts,
		validator: newTrainingValidator(),
	}
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /trainings", s.requireRole(types.RoleAdmin, s.listTrainings))
	mux.HandleFunc("GET /trainings/{id}", s.getTraining)
	mux.HandleFunc("PUT /trainings/{id}", s.requireRole(types.RoleAdmin, s.putTraining))
	mux.HandleFunc("DELETE /trainings/{id}", s.requireRole(types.RoleSuperAdmin, s.deleteTraining))

	mux.HandleFunc("GET /trainings/{id}/report", s.getReport)
	mux.HandleFunc("GET /trainings/{id}/export.xlsx", s.requireRole(types.RoleAdmin, s.exportXLSX))
	mux.HandleFunc("GET /trainings/{id}/export.csv", s.requireRole(types.RoleAdmin, s.exportCSV))

	mux.HandleFunc("GET /trainings/{id}/targets", s.getTargets)
	mux.HandleFunc("POST /trainings/{id}/responses", s.postResponses)

	mux.HandleFunc("POST /trainings/{id}/groups/rename", s.requireRole(types.RoleAdmin, s.renameGroup))
	mux.HandleFunc("DELETE /trainings/{id}/groups", s.requireRole(types.RoleAdmin, s.deleteGroup))
	mux.HandleFunc("GET /trainings/{id}/orphans", s.requireRole(types.RoleAdmin, s.listOrphans))
	mux.HandleFunc("POST /trainings/{id}/orphans/{qid}/restore", s.requireRole(types.RoleAdmin, s.restoreOrphan))

	mux.HandleFunc("GET /settings", s.requireRole(types.RoleAdmin, s.getSettings))
	mux.HandleFunc("PUT /settings", s.requireRole(types.RoleAdmin, s.putSettings))
	mux.HandleFunc("GET /backup", s.requireRole(types.RoleSuperAdmin, s.getBackup))
	mux.HandleFunc("POST /backup", s.requireRole(types.RoleSuperAdmin, s.postBackup))

	return s.withRequestLog(mux)
}

// Wait blocks until background notifications have finished.
func (s *Server) Wait() { s.bg.Wait() }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := logger.RequestID(r)
		w.Header().Set(logger.RequestIDHeader, reqID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.log.WithRequest(r, reqID).
			WithField("status", rec.status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("request handled")
	})
}

type errorBody struct {
	Error  string      `json:"error"`
	Fields FieldErrors `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fields FieldErrors
	if errors.As(err, &fields) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: fields})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidBackup),
		errors.Is(err, session.ErrInvalidKind),
		errors.Is(err, session.ErrNoAnswers),
		errors.Is(err, session.ErrUnknownTarget),
		errors.Is(err, session.ErrInvalidAnswer),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrParticipantLimit),
		errors.Is(err, errSessionClosed):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.log.WithRequest(r, w.Header().Get(logger.RequestIDHeader)).WithField("error", err.Error()).Error("request failed")
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}
