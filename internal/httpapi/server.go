package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apimw "github.com/hamed0406/sitemonitor/internal/httpapi/middleware"
	"github.com/hamed0406/sitemonitor/internal/scheduler"
)

// StatusSource is the read-only view of a running monitor.
type StatusSource interface {
	Target() string
	State() scheduler.State
	Cycles() int64
	LastCycleAt() time.Time
}

type Server struct {
	Logger  *zap.Logger
	Status  StatusSource
	Metrics prometheus.Gatherer
}

func NewServer(l *zap.Logger, status StatusSource, g prometheus.Gatherer) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Status: status, Metrics: g}
}

// Router serves /healthz openly; /status and /metrics require one of keys
// (when any are configured) and are rate limited per client.
func (s *Server) Router(keys []string, rpm, burst int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(rpm, burst))
		r.Use(apimw.RequireKey(keys))

		r.Get("/status", s.handleStatus)
		if s.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Metrics, promhttp.HandlerOpts{
				ErrorLog: zap.NewStdLog(s.Logger),
			}))
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Status.State() != scheduler.StateRunning {
		http.Error(w, "stopped", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type statusResponse struct {
	Target    string `json:"target"`
	State     string `json:"state"`
	Cycles    int64  `json:"cycles"`
	LastCycle string `json:"last_cycle,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	out := statusResponse{
		Target: s.Status.Target(),
		State:  s.Status.State().String(),
		Cycles: s.Status.Cycles(),
	}
	if at := s.Status.LastCycleAt(); !at.IsZero() {
		out.LastCycle = at.UTC().Format(time.RFC3339)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.Logger.Warn("status_encode_error", zap.Error(err))
	}
}
