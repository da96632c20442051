package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"streamline/internal/jobstatus"
	"streamline/internal/logging"
	"streamline/internal/orchestrator"
	"streamline/internal/services"
	"streamline/internal/streaming"
)

const (
	healthPath      = "/healthz"
	requestIDHeader = "X-Request-ID"

	defaultMaxBodyBytes = 1 << 20
	defaultRunLimit     = 50
)

// Submitter accepts streaming requests.
type Submitter interface {
	Submit(ctx context.Context, req streaming.Request) (orchestrator.Submission, error)
}

// StatusReader reads job status views.
type StatusReader interface {
	Read(ctx context.Context, jobID string) (jobstatus.View, error)
}

// Options wires the HTTP handler. Runs may be nil when the ledger is off.
type Options struct {
	Submitter      Submitter
	Status         StatusReader
	Runs           *RunService
	Token          string
	AllowedOrigins []string
	MaxBodyBytes   int64
	Logger         *slog.Logger
}

type handler struct {
	submitter    Submitter
	status       StatusReader
	runs         *RunService
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewHandler returns the routed, CORS-wrapped and authenticated handler.
func NewHandler(opts Options) (http.Handler, error) {
	if opts.Submitter == nil || opts.Status == nil {
		return nil, errors.New("api: submitter and status reader are required")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	h := &handler{
		submitter:    opts.Submitter,
		status:       opts.Status,
		runs:         opts.Runs,
		maxBodyBytes: opts.MaxBodyBytes,
		logger:       logging.NewComponentLogger(opts.Logger, "api"),
	}

	r := mux.NewRouter()
	r.HandleFunc("/streaming", h.submit).Methods(http.MethodPost)
	r.HandleFunc("/streaming/{id}", h.readStatus).Methods(http.MethodGet)
	r.HandleFunc("/runs", h.listRuns).Methods(http.MethodGet)
	r.HandleFunc("/runs/{id}", h.describeRun).Methods(http.MethodGet)
	r.HandleFunc(healthPath, h.health).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "route not found", Kind: string(services.KindNotFound)})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	})

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	return h.withRequestID(c.Handler(authMiddleware(opts.Token, r))), nil
}

// withRequestID tags each request with a correlation id and logs it.
func (h *handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(services.WithRequestID(r.Context(), id)))
		h.logger.Debug("http request",
			logging.String(logging.FieldCorrelationID, id),
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("duration", time.Since(start)),
		)
	})
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	req, err := streaming.Decode(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.submitter.Submit(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *handler) readStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	view, err := h.status.Read(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) listRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := defaultRunLimit
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			h.writeError(w, r, services.Wrap(services.ErrInvalidRequest, "", "list runs", "limit must be a non-negative integer", err))
			return
		}
		limit = parsed
	}
	var states []string
	for _, value := range query["state"] {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			states = append(states, trimmed)
		}
	}
	items, err := h.runs.List(r.Context(), limit, states...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []RunItem{}
	}
	writeJSON(w, http.StatusOK, RunListResponse{Items: items})
}

func (h *handler) describeRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	detail, err := h.runs.Describe(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if detail == nil {
		h.writeError(w, r, services.Wrap(services.ErrNotFound, "", "describe run", id, nil))
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusForError(err)
	kind := services.KindOf(err)
	logger := logging.WithContext(r.Context(), h.logger)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(logger, "request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
			logging.Impact("caller received an error response"),
		)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: string(kind)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
