// Package httpapi serves the peer /api contract over a core.Service, plus the
// local ticker, aggregation, sync and change-event endpoints.
package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"aeracore/internal/core"
	"aeracore/pkg/domain"
)

// Option customises a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithModerator replaces the broadcast moderator.
func WithModerator(m core.Moderator) Option {
	return func(h *Handler) {
		if m != nil {
			h.moderator = m
		}
	}
}

// WithMetrics exposes gatherer on /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(h *Handler) { h.gatherer = gatherer }
}

// WithRequestTimeout bounds every non-streaming request.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// Handler routes HTTP requests to a core.Service.
type Handler struct {
	svc       *core.Service
	router    *mux.Router
	logger    *zap.Logger
	moderator core.Moderator
	gatherer  prometheus.Gatherer
	timeout   time.Duration
	upgrader  websocket.Upgrader
}

// NewHandler builds the router for svc.
func NewHandler(svc *core.Service, opts ...Option) *Handler {
	h := &Handler{
		svc:       svc,
		router:    mux.NewRouter(),
		logger:    zap.NewNop(),
		moderator: core.NewKeywordModerator(),
		timeout:   10 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.routes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.Use(h.requestID, h.logRequests)
	h.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	h.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	api := h.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/events", h.handleEvents).Methods(http.MethodGet)

	rest := api.NewRoute().Subrouter()
	rest.Use(h.withTimeout)
	rest.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	rest.HandleFunc("/orgs/{orgId}/inventory", h.handleGetInventory).Methods(http.MethodGet)
	rest.HandleFunc("/orgs/{orgId}/inventory", h.handleSaveInventory).Methods(http.MethodPost)
	rest.HandleFunc("/orgs/{orgId}/requests", h.handleListRequests).Methods(http.MethodGet)
	rest.HandleFunc("/orgs/{orgId}/requests", h.handleCreateRequest).Methods(http.MethodPost)
	rest.HandleFunc("/requests/{id}/status", h.handleRequestStatus).Methods(http.MethodPost)
	rest.HandleFunc("/orgs/{orgId}/status", h.handleGetMemberStatus).Methods(http.MethodGet)
	rest.HandleFunc("/orgs/{orgId}/status", h.handleSetMemberStatus).Methods(http.MethodPost)
	rest.HandleFunc("/orgs/{orgId}/broadcast", h.handleGetBroadcast).Methods(http.MethodGet)
	rest.HandleFunc("/orgs/{orgId}/broadcast", h.handleSetBroadcast).Methods(http.MethodPost)
	rest.HandleFunc("/users/{userId}/help", h.handleCreateHelp).Methods(http.MethodPost)
	rest.HandleFunc("/users/{userId}/help/active", h.handleActiveHelp).Methods(http.MethodGet)
	rest.HandleFunc("/help/{id}/location", h.handleHelpLocation).Methods(http.MethodPost)
	rest.HandleFunc("/ticker", h.handleTicker).Methods(http.MethodGet)
	rest.HandleFunc("/replenishment/aggregate", h.handleAggregate).Methods(http.MethodGet)
	rest.HandleFunc("/sync", h.handleSync).Methods(http.MethodPost)

	if h.gatherer != nil {
		h.router.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
}

type requestIDKey struct{}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (h *Handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()[:8]
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(contextWithRequestID(r.Context(), id)))
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("request",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(started)),
		)
	})
}

func (h *Handler) withTimeout(next http.Handler) http.Handler {
	return http.TimeoutHandler(next, h.timeout, `{"error":"request timed out"}`)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer cannot be hijacked")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// writeServiceError maps service errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var violation domain.RuleViolationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAccountDeactivated), errors.Is(err, domain.ErrSelfDeactivationBlocked):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrStaleWrite), errors.As(err, &violation):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body, rejecting unknown fields. An empty body decodes
// to the zero value.
func decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func pathVar(r *http.Request, name string) string {
	return strings.TrimSpace(mux.Vars(r)[name])
}
