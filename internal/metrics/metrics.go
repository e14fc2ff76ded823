package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfaq_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidfaq_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Tenant Metrics
	TenantResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfaq_tenant_resolutions_total",
			Help: "Total number of host resolutions by outcome",
		},
		[]string{"kind"},
	)

	// Collection Metrics
	CollectionOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfaq_collection_operations_total",
			Help: "Total number of collection operations by outcome",
		},
		[]string{"operation", "status"},
	)

	// Fetch Metrics
	FetchOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfaq_fetch_operations_total",
			Help: "Total number of yt-dlp fetches",
		},
		[]string{"kind", "status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidfaq_fetch_duration_seconds",
			Help:    "yt-dlp fetch duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to 32s
		},
		[]string{"kind"},
	)

	// Caption Job Metrics
	CaptionJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfaq_caption_jobs_total",
			Help: "Total number of caption jobs by status",
		},
		[]string{"status"},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfaq_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidfaq_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfaq_storage_bytes_transferred_total",
			Help: "Total bytes transferred to/from storage",
		},
		[]string{"operation"},
	)

	// Database Metrics
	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfaq_database_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidfaq_database_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfaq_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfaq_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidfaq_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordTenantResolution records the outcome of a host resolution
func RecordTenantResolution(kind string) {
	TenantResolutionsTotal.WithLabelValues(kind).Inc()
}

// RecordCollectionOperation records a collection service operation
func RecordCollectionOperation(operation string, err error) {
	CollectionOperationsTotal.WithLabelValues(operation, statusOf(err)).Inc()
}

// RecordFetch records a yt-dlp fetch
func RecordFetch(kind string, duration float64, err error) {
	FetchOperationsTotal.WithLabelValues(kind, statusOf(err)).Inc()
	FetchDuration.WithLabelValues(kind).Observe(duration)
}

// RecordCaptionJob records a caption job outcome
func RecordCaptionJob(status string) {
	CaptionJobsTotal.WithLabelValues(status).Inc()
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string, duration float64, bytesTransferred int64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
	StorageBytesTransferred.WithLabelValues(operation).Add(float64(bytesTransferred))
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string, duration float64) {
	DatabaseOperationsTotal.WithLabelValues(operation, status).Inc()
	DatabaseOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheAccess records cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
