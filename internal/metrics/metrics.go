// Package metrics exposes Prometheus counters for the scrape pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazalert_cycles_total",
		Help: "Completed scrape cycles.",
	})
	CyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazalert_cycles_skipped_total",
		Help: "Cycle triggers skipped because a cycle was already running.",
	})
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bazalert_cycle_duration_seconds",
		Help:    "Wall-clock duration of a scrape cycle.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	AdsSeen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazalert_ads_seen_total",
		Help: "Ads observed on index pages across all cycles.",
	})
	Changes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazalert_changes_total",
		Help: "Detected changes by kind.",
	}, []string{"kind"})
	FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazalert_fetch_failures_total",
		Help: "Page fetches that failed after all retries.",
	})
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazalert_notifications_sent_total",
		Help: "Notifications delivered to users.",
	})
	NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazalert_notifications_failed_total",
		Help: "Notification deliveries that failed.",
	})
)

// Server exposes /metrics on a dedicated listener.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

// NewServer builds a metrics server on addr. Call Start to begin serving.
func NewServer(addr string, log *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		srv: &http.Server{Addr: addr, Handler: mux},
		log: log,
	}
}

// Start serves in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info("metrics server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
