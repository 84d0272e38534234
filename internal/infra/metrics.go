package infra

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resultados del protocolo de registro de venta (label "resultado").
const (
	ResultadoOK            = "ok"
	ResultadoValidacion    = "validacion"
	ResultadoNoAutenticado = "no_autenticado"
	ResultadoPersistencia  = "persistencia"
	ResultadoParcial       = "parcial"
)

// Metrics groups the register's Prometheus collectors.
type Metrics struct {
	Ventas            *prometheus.CounterVec
	VentaDuracionMS   *prometheus.HistogramVec
	MovimientosCaja   *prometheus.CounterVec
	ReintentosLineas  *prometheus.CounterVec
	CatalogoCacheHits *prometheus.CounterVec
}

// NewMetrics registers all collectors on reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration on the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ventas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verdupos",
			Subsystem: "ventas",
			Name:      "commit_total",
			Help:      "Sale commit attempts by outcome.",
		}, []string{"resultado"}),
		VentaDuracionMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "verdupos",
			Subsystem: "ventas",
			Name:      "paso_duration_ms",
			Help:      "Latency of each commit step in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}, []string{"paso"}),
		MovimientosCaja: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verdupos",
			Subsystem: "caja",
			Name:      "movimientos_total",
			Help:      "Cash movements written by type.",
		}, []string{"tipo"}),
		ReintentosLineas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verdupos",
			Subsystem: "ventas",
			Name:      "reintento_lineas_total",
			Help:      "Addressed line retries against orphaned headers by outcome.",
		}, []string{"resultado"}),
		CatalogoCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "verdupos",
			Subsystem: "catalogo",
			Name:      "lecturas_total",
			Help:      "Catalog reads by source (cache, store, stale).",
		}, []string{"origen"}),
	}
	reg.MustRegister(m.Ventas, m.VentaDuracionMS, m.MovimientosCaja, m.ReintentosLineas, m.CatalogoCacheHits)
	return m
}

// MetricsHandler exposes the default registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
