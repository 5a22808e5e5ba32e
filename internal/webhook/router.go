// Package webhook serves Telegram webhook deliveries over HTTP.
package webhook

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// HealthPath answers liveness probes.
const HealthPath = "/healthz"

// UpdateHandler consumes one webhook delivery.
type UpdateHandler interface {
	HandleWebhook(r *http.Request) error
}

// HealthFunc reports whether the daemon is serving normally.
type HealthFunc func() bool

// PathFromURL returns the route for the public webhook URL.
func PathFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Path == "" {
		return "/", nil
	}
	return u.Path, nil
}

// NewRouter routes POST deliveries on path to h and GET /healthz to healthy.
func NewRouter(path string, h UpdateHandler, healthy HealthFunc, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)

	r.Post(path, func(w http.ResponseWriter, req *http.Request) {
		if err := h.HandleWebhook(req); err != nil {
			logger.Warn("bad webhook delivery",
				zap.String("request_id", middleware.GetReqID(req.Context())), zap.Error(err))
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		if healthy != nil && !healthy() {
			http.Error(w, "not serving", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
