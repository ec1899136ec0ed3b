package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label names
const (
	LabelMethod = "method"
	LabelPath   = "path"
	LabelStatus = "status"
	LabelCase   = "case"
	LabelRarity = "rarity"
	LabelResult = "result"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseopener_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caseopener_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "caseopener_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Spin Metrics
var (
	SpinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseopener_spins_total",
			Help: "Spin attempts by case and outcome",
		},
		[]string{LabelCase, LabelResult},
	)

	ItemsWonTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseopener_items_won_total",
			Help: "Items awarded by rarity",
		},
		[]string{LabelRarity},
	)

	MoneySpentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caseopener_money_spent_total",
			Help: "Sum of case prices charged to spend ledgers",
		},
	)

	SpinDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "caseopener_spin_duration_seconds",
			Help:    "Time spent resolving and committing a spin",
			Buckets: prometheus.DefBuckets,
		},
	)

	CatalogAutoSeedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caseopener_catalog_auto_seed_total",
			Help: "Times a spin seeded the empty catalog",
		},
	)

	HistoryWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caseopener_history_write_failures_total",
			Help: "Acquisition history writes that failed and were dropped",
		},
	)
)

// Catalog Metrics
var (
	CatalogItemsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caseopener_catalog_items_ingested_total",
			Help: "Items created or updated by asset scans",
		},
		[]string{LabelResult},
	)
)
