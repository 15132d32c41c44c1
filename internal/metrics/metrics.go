package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "integrationhub"
)

var (
	registryBuildBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

	// Registry Metrics
	RegistryBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "registry_build_duration_seconds",
		Help:      "Time taken to discover and instantiate integrations.",
		Buckets:   registryBuildBuckets,
	})

	RegistryBuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registry_builds_total",
		Help:      "Count of registry builds.",
	}, []string{"status"})

	RegistryIntegrations = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "registry_integrations",
		Help:      "Number of integrations in the current registry snapshot.",
	})

	RegistryConstructors = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "registry_constructors",
		Help:      "Number of integration constructors known to the registry.",
	})

	IntegrationsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "integrations_skipped_total",
		Help:      "Discovered integrations that could not be instantiated.",
	}, []string{"reason"})

	CacheInvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_invalidations_total",
		Help:      "Count of explicit cache invalidations.",
	}, []string{"cache"})

	// Profile Sync Metrics
	ProfileFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_fetches_total",
		Help:      "Count of social profile and activity fetches.",
	}, []string{"integration", "kind", "status"})

	ProfileFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "profile_fetch_duration_seconds",
		Help:      "Time taken by remote profile fetches.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"integration"})

	ProfileCachePurgesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_cache_purges_total",
		Help:      "Cached social entries removed because the integration no longer qualifies.",
	}, []string{"integration"})

	// Field Catalog Metrics
	FieldCatalogBuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "field_catalog_builds_total",
		Help:      "Count of field catalog builds.",
	}, []string{"status"})

	FieldCatalogFields = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "field_catalog_fields",
		Help:      "Number of labelled fields per integration in the current catalog.",
	}, []string{"integration"})
)
