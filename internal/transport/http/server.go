// Package httptransport builds the HTTP servers the binaries listen on.
package httptransport

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/healthtracker/internal/observability"
)

// ServerConfig contains tunables for the HTTP server.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the 5s/10s/60s read/write/idle timeouts used by the api binary.
func DefaultServerConfig(address string) ServerConfig {
	return ServerConfig{
		Address:      address,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates *http.Server with provided handler. A non-nil metrics manager tracks open connections.
func NewServer(cfg ServerConfig, handler http.Handler, metricsManager *observability.Manager) *http.Server {
	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	if metricsManager != nil {
		srv.ConnState = connStateMetrics(metricsManager)
	}
	return srv
}

// NewMetricsServer exposes gatherer on /metrics.
func NewMetricsServer(address string, gatherer prometheus.Gatherer) *http.Server {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func connStateMetrics(m *observability.Manager) func(net.Conn, http.ConnState) {
	return func(_ net.Conn, state http.ConnState) {
		switch state {
		case http.StateNew:
			m.GaugeRequests.Add(1)
		case http.StateClosed, http.StateHijacked:
			m.GaugeRequests.Add(-1)
		}
	}
}
