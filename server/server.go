// Package server runs the liveness endpoint, metrics and, in webhook mode,
// the Telegram update intake.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const runningText = "US Representative's Stock Trades bot is running!"

// CacheStatus reports the age of the cached dataset. *query.Cache
// implements it.
type CacheStatus interface {
	FetchedAt() (time.Time, bool)
}

type Options struct {
	Cache       CacheStatus
	Metrics     http.Handler
	WebhookPath string
	Webhook     http.Handler
	Logger      *zap.Logger
	Now         func() time.Time
}

type health struct {
	Status          string  `json:"status"`
	Uptime          string  `json:"uptime"`
	CacheLoaded     bool    `json:"cache_loaded"`
	CacheFetchedAt  string  `json:"cache_fetched_at,omitempty"`
	CacheAgeSeconds float64 `json:"cache_age_seconds,omitempty"`
}

// NewRouter builds the HTTP routes.
func NewRouter(opts Options) http.Handler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	started := now()

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(runningText))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h := health{Status: "ok", Uptime: now().Sub(started).Round(time.Second).String()}
		if opts.Cache != nil {
			if at, ok := opts.Cache.FetchedAt(); ok {
				h.CacheLoaded = true
				h.CacheFetchedAt = at.UTC().Format(time.RFC3339)
				h.CacheAgeSeconds = now().Sub(at).Seconds()
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(h)
	})

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	if opts.Webhook != nil && opts.WebhookPath != "" {
		r.Method(http.MethodPost, opts.WebhookPath, opts.Webhook)
	}
	return r
}

// New wraps h in an http.Server with conservative timeouts.
func New(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
