// Package metrics provides Prometheus metrics for the radar.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/phenomenon0/matchradar/pkg/signals"
)

// RadarMetrics collects and exposes radar Prometheus metrics.
type RadarMetrics struct {
	registry *prometheus.Registry

	// Refresh metrics
	TicksTotal   *prometheus.CounterVec
	TickDuration *prometheus.HistogramVec
	FeedErrors   *prometheus.CounterVec
	FeedBreaker  *prometheus.GaugeVec

	// Board metrics
	BoardMatches *prometheus.GaugeVec
	MinOdds      *prometheus.HistogramVec

	// Radar metrics
	AlertsTotal     *prometheus.CounterVec
	RadarEnabled    *prometheus.GaugeVec
	RadarGeneration *prometheus.GaugeVec

	// Enrichment metrics
	EnrichmentTotal   *prometheus.CounterVec
	EnrichmentLatency *prometheus.HistogramVec
	Confidence        *prometheus.HistogramVec

	// History metrics
	HistoryEntries *prometheus.GaugeVec
	HistoryCorrect *prometheus.GaugeVec

	// Streaming metrics
	StreamClients *prometheus.GaugeVec
}

// NewRadarMetrics creates a collector on its own registry.
func NewRadarMetrics() *RadarMetrics {
	rm := &RadarMetrics{
		registry: prometheus.NewRegistry(),

		TicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchradar_ticks_total",
				Help: "Refresh ticks by resulting feed mode",
			},
			[]string{"mode"},
		),
		TickDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matchradar_tick_duration_seconds",
				Help:    "Time spent pulling and applying one tick",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"mode"},
		),
		FeedErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchradar_feed_errors_total",
				Help: "Feed pulls that fell back to demo data",
			},
			[]string{},
		),
		FeedBreaker: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "matchradar_feed_breaker_state",
				Help: "Feed circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{},
		),

		BoardMatches: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "matchradar_board_matches",
				Help: "Matches on the board by signal category",
			},
			[]string{"category"},
		),
		MinOdds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matchradar_min_odds",
				Help:    "Shorter price of each live match at refresh",
				Buckets: []float64{1.05, 1.1, 1.2, 1.25, 1.3, 1.4, 1.5, 1.75, 2, 2.5, 3},
			},
			[]string{},
		),

		AlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchradar_alerts_total",
				Help: "Alerts emitted by kind",
			},
			[]string{"kind"},
		),
		RadarEnabled: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "matchradar_radar_enabled",
				Help: "1 while the radar is armed",
			},
			[]string{},
		),
		RadarGeneration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "matchradar_radar_generation",
				Help: "Number of times the radar has been armed",
			},
			[]string{},
		),

		EnrichmentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchradar_enrichment_total",
				Help: "Enrichment completions by request kind and status",
			},
			[]string{"kind", "status"},
		),
		EnrichmentLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matchradar_enrichment_latency_seconds",
				Help:    "Text-generation round trip",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
			},
			[]string{"kind"},
		),
		Confidence: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matchradar_confidence_score",
				Help:    "Confidence scores read from match analyses",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"parsed"},
		),

		HistoryEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "matchradar_history_entries",
				Help: "Finished matches recorded this session",
			},
			[]string{},
		),
		HistoryCorrect: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "matchradar_history_correct",
				Help: "Finished matches won by the pre-match favorite",
			},
			[]string{},
		),

		StreamClients: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "matchradar_stream_clients",
				Help: "Connected websocket clients",
			},
			[]string{},
		),
	}

	rm.registerAll()
	return rm
}

func (rm *RadarMetrics) registerAll() {
	rm.registry.MustRegister(
		rm.TicksTotal,
		rm.TickDuration,
		rm.FeedErrors,
		rm.FeedBreaker,
		rm.BoardMatches,
		rm.MinOdds,
		rm.AlertsTotal,
		rm.RadarEnabled,
		rm.RadarGeneration,
		rm.EnrichmentTotal,
		rm.EnrichmentLatency,
		rm.Confidence,
		rm.HistoryEntries,
		rm.HistoryCorrect,
		rm.StreamClients,
	)
}

// Registry returns the prometheus registry.
func (rm *RadarMetrics) Registry() *prometheus.Registry {
	return rm.registry
}

// --- Helper methods for recording metrics ---

func (rm *RadarMetrics) RecordTick(mode string, durationSec float64, feedFailed bool) {
	rm.TicksTotal.WithLabelValues(mode).Inc()
	rm.TickDuration.WithLabelValues(mode).Observe(durationSec)
	if feedFailed {
		rm.FeedErrors.WithLabelValues().Inc()
	}
}

func (rm *RadarMetrics) SetBreakerState(state int) {
	rm.FeedBreaker.WithLabelValues().Set(float64(state))
}

// UpdateBoard publishes the dashboard header counts.
func (rm *RadarMetrics) UpdateBoard(sum signals.Summary) {
	rm.BoardMatches.WithLabelValues("total").Set(float64(sum.Total))
	rm.BoardMatches.WithLabelValues("live").Set(float64(sum.Live))
	rm.BoardMatches.WithLabelValues(string(signals.KindFavorite)).Set(float64(sum.Favorites))
	rm.BoardMatches.WithLabelValues(string(signals.KindUltraFavorite)).Set(float64(sum.UltraFavorites))
	rm.BoardMatches.WithLabelValues(string(signals.KindGoliathPanic)).Set(float64(sum.GoliathPanic))
	rm.BoardMatches.WithLabelValues(string(signals.KindCritical)).Set(float64(sum.Critical))
	rm.BoardMatches.WithLabelValues(string(signals.KindMomentum)).Set(float64(sum.Momentum))
	rm.BoardMatches.WithLabelValues(string(signals.KindValueBet)).Set(float64(sum.ValueBets))
}

func (rm *RadarMetrics) ObserveMinOdds(d decimal.Decimal) {
	rm.MinOdds.WithLabelValues().Observe(DecimalToFloat64(d))
}

func (rm *RadarMetrics) RecordAlert(kind string) {
	rm.AlertsTotal.WithLabelValues(kind).Inc()
}

func (rm *RadarMetrics) SetRadar(enabled bool, generation uint64) {
	v := 0.0
	if enabled {
		v = 1
	}
	rm.RadarEnabled.WithLabelValues().Set(v)
	rm.RadarGeneration.WithLabelValues().Set(float64(generation))
}

// RecordEnrichment counts one completion. A negative confidence skips the
// confidence histogram (market analyses have none).
func (rm *RadarMetrics) RecordEnrichment(kind, status string, latencySec, confidence float64, parsed bool) {
	rm.EnrichmentTotal.WithLabelValues(kind, status).Inc()
	if latencySec > 0 {
		rm.EnrichmentLatency.WithLabelValues(kind).Observe(latencySec)
	}
	if confidence >= 0 {
		label := "false"
		if parsed {
			label = "true"
		}
		rm.Confidence.WithLabelValues(label).Observe(confidence)
	}
}

func (rm *RadarMetrics) UpdateHistory(correct, total int) {
	rm.HistoryEntries.WithLabelValues().Set(float64(total))
	rm.HistoryCorrect.WithLabelValues().Set(float64(correct))
}

func (rm *RadarMetrics) SetStreamClients(n int) {
	rm.StreamClients.WithLabelValues().Set(float64(n))
}

// --- Decimal helpers ---

// DecimalToFloat64 converts decimal.Decimal to float64 for metrics.
func DecimalToFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// Global instance for convenience
var defaultMetrics *RadarMetrics
var once sync.Once

// Default returns the default global metrics instance.
func Default() *RadarMetrics {
	once.Do(func() {
		defaultMetrics = NewRadarMetrics()
	})
	return defaultMetrics
}
