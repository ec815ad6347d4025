package main

import (
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is backed by its own registry so the default Go collectors stay out
// of /metrics.
type Metrics struct {
	registry *prometheus.Registry

	sessionsActive prometheus.Gauge
	sessionsTotal  prometheus.Counter
	clients        prometheus.Gauge
	actions        *prometheus.CounterVec
	roundsClosed   prometheus.Counter
	resultImages   *prometheus.CounterVec
	catalogGames   prometheus.Gauge
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "metagame",
			Subsystem: "scoreboard",
			Name:      "sessions_active",
			Help:      "Scoreboard sessions currently held in memory.",
		}),
		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "metagame",
			Subsystem: "scoreboard",
			Name:      "sessions_created_total",
			Help:      "Scoreboard sessions created since start.",
		}),
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "metagame",
			Subsystem: "scoreboard",
			Name:      "clients_connected",
			Help:      "Open scoreboard websocket connections.",
		}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metagame",
			Subsystem: "scoreboard",
			Name:      "actions_total",
			Help:      "Scoreboard actions by type and outcome.",
		}, []string{"action", "outcome"}),
		roundsClosed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "metagame",
			Subsystem: "scoreboard",
			Name:      "rounds_closed_total",
			Help:      "Rounds closed across all sessions.",
		}),
		resultImages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metagame",
			Subsystem: "results",
			Name:      "images_rendered_total",
			Help:      "Result images rendered, by whether a cover was included.",
		}, []string{"cover"}),
		catalogGames: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "metagame",
			Subsystem: "catalog",
			Name:      "games",
			Help:      "Games loaded from the catalog file.",
		}),
	}
}

func registerMetricsHandler(cfg *Config, m *Metrics, mux *httprouter.Router) {
	mux.Handler("GET", cfg.prefix+"/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func registerProfileHandlers(cfg *Config, mux *httprouter.Router) {
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handler("GET", cfg.prefix+"/pprof/"+name, pprof.Handler(name))
	}

	mux.HandlerFunc("GET", cfg.prefix+"/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/trace", pprof.Trace)
}
