// Package httpserver exposes the login and protected-resource endpoints over HTTP.
package httpserver

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/and161185/authgate/internal/errs"
	"github.com/and161185/authgate/internal/model"
	"github.com/and161185/authgate/internal/service"
)

const maxLoginBody = 1 << 16

// Router serves the HTTP API.
type Router struct {
	gate       service.AccessGate
	log        *zap.Logger
	gatherer   prometheus.Gatherer
	corsOrigin string
	mux        *http.ServeMux
	handler    http.Handler
}

// Option customizes a Router.
type Option func(*Router)

// WithMetrics exposes the gatherer at /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(r *Router) { r.gatherer = g }
}

// WithCORSOrigin sets Access-Control-Allow-Origin. Empty disables CORS headers.
func WithCORSOrigin(origin string) Option {
	return func(r *Router) { r.corsOrigin = origin }
}

// NewRouter registers all routes.
func NewRouter(gate service.AccessGate, log *zap.Logger, opts ...Option) *Router {
	r := &Router{gate: gate, log: log, mux: http.NewServeMux()}
	for _, o := range opts {
		o(r)
	}

	r.mux.HandleFunc("GET /{$}", r.handleIndex)
	r.mux.HandleFunc("GET /healthz", r.handleHealth)
	r.mux.HandleFunc("POST /login", r.handleLogin)
	r.mux.HandleFunc("GET /protected", r.requireAuth(r.handleProtected))
	if r.gatherer != nil {
		r.mux.Handle("GET /metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	}
	r.mux.HandleFunc("/", r.handleNotFound)

	r.handler = r.recoverer(r.logging(r.cors(r.mux)))
	return r
}

// ServeHTTP applies middleware and dispatches to the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to AuthGate"})
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeMsg(w, http.StatusNotFound, "Resource not found")
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxLoginBody)).Decode(&creds); err != nil {
		writeMsg(w, http.StatusBadRequest, "Missing username or password")
		return
	}

	tok, err := r.gate.AuthorizeLogin(req.Context(), creds, clientIP(req))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, loginResponse{AccessToken: tok.AccessToken, ExpiresAt: tok.ExpiresAt.UTC()})
	case errors.Is(err, errs.ErrInvalidRequest):
		writeMsg(w, http.StatusBadRequest, "Missing username or password")
	case errors.Is(err, errs.ErrInvalidCredentials):
		writeMsg(w, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, errs.ErrRateLimited):
		writeMsg(w, http.StatusTooManyRequests, "Too many login attempts")
	default:
		r.log.Error("login", zap.Error(err))
		writeMsg(w, http.StatusInternalServerError, "Internal server error")
	}
}

// subjectHandler receives the subject resolved from the request's bearer token.
type subjectHandler func(w http.ResponseWriter, req *http.Request, sub model.Subject)

// requireAuth resolves the bearer token and hands the subject to next explicitly.
func (r *Router) requireAuth(next subjectHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		token, err := bearerToken(req.Header.Get("Authorization"))
		if err != nil {
			writeMsg(w, http.StatusUnauthorized, "Missing Authorization Header")
			return
		}
		sub, err := r.gate.AuthorizeRequest(req.Context(), token)
		if err != nil {
			status, msg := tokenFailure(err)
			if status == http.StatusInternalServerError {
				r.log.Error("authorize request", zap.Error(err))
			}
			writeMsg(w, status, msg)
			return
		}
		next(w, req, sub)
	}
}

func (r *Router) handleProtected(w http.ResponseWriter, _ *http.Request, sub model.Subject) {
	r.log.Info("protected resource accessed", zap.Int64("user_id", sub.ID))
	writeJSON(w, http.StatusOK, map[string]string{"logged_in_as": sub.Username})
}

func tokenFailure(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrTokenExpired):
		return http.StatusUnauthorized, "Token has expired"
	case errors.Is(err, errs.ErrTokenInvalidSignature):
		return http.StatusUnauthorized, "Signature verification failed"
	case errors.Is(err, errs.ErrTokenMalformed):
		return http.StatusUnauthorized, "Malformed token"
	case errors.Is(err, errs.ErrUnknownSubject):
		return http.StatusNotFound, "User not found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

func clientIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
