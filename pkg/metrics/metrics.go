package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// HTTP Метрики
// =============================================================================

// HttpRequestsTotal - счётчик всех HTTP запросов
// Labels: service, method, path, status
// Пример запроса PromQL: rate(http_requests_total{service="catalog"}[5m])
var HttpRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	},
	[]string{"service", "method", "path", "status"},
)

// HttpRequestDuration - гистограмма времени ответа
// Пример: histogram_quantile(0.95, rate(http_request_duration_seconds_bucket[5m]))
var HttpRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
	[]string{"service", "method", "path"},
)

// HttpRequestsInFlight - текущее количество обрабатываемых запросов
var HttpRequestsInFlight = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Current number of HTTP requests being processed",
	},
	[]string{"service"},
)

// =============================================================================
// Redis Метрики
// =============================================================================

// RedisCacheHits - попадания в кеш
var RedisCacheHits = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redis_cache_hits_total",
		Help: "Total number of Redis cache hits",
	},
	[]string{"service", "key_prefix"},
)

// RedisCacheMisses - промахи кеша
var RedisCacheMisses = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redis_cache_misses_total",
		Help: "Total number of Redis cache misses",
	},
	[]string{"service", "key_prefix"},
)

// RedisErrors - ошибки Redis
var RedisErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "redis_errors_total",
		Help: "Total number of Redis errors",
	},
	[]string{"service", "operation"},
)

// =============================================================================
// Kafka Метрики
// =============================================================================

// KafkaMessagesProduced - отправленные сообщения
var KafkaMessagesProduced = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_messages_produced_total",
		Help: "Total number of Kafka messages produced",
	},
	[]string{"service", "topic"},
)

// KafkaProduceDuration - время отправки сообщения
var KafkaProduceDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "kafka_produce_duration_seconds",
		Help:    "Duration of Kafka produce operations",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	},
	[]string{"service", "topic"},
)

// KafkaErrors - ошибки Kafka
var KafkaErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_errors_total",
		Help: "Total number of Kafka errors",
	},
	[]string{"service", "topic", "operation"},
)

// =============================================================================
// Business Метрики каталога
// =============================================================================

// ProductsCreated - созданные товары
var ProductsCreated = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "catalog_products_created_total",
		Help: "Total number of products created",
	},
)

// ProductsDeleted - логически удалённые товары
var ProductsDeleted = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "catalog_products_deleted_total",
		Help: "Total number of products soft deleted",
	},
)

// AssetUploads - загрузки изображений во внешнее хранилище
var AssetUploads = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_asset_uploads_total",
		Help: "Total number of image uploads to the asset store",
	},
	[]string{"status"}, // success, failed
)

// AssetDeletes - удаления изображений из внешнего хранилища
var AssetDeletes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_asset_deletes_total",
		Help: "Total number of image deletions in the asset store",
	},
	[]string{"status"}, // success, failed
)

// OrphanedAssetsCleaned - удалённые reconciliation job'ом осиротевшие изображения
var OrphanedAssetsCleaned = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "catalog_orphaned_assets_cleaned_total",
		Help: "Total number of orphaned assets removed by the cleanup job",
	},
)

// --- Auth ---

// AuthLogins - попытки входа
var AuthLogins = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_logins_total",
		Help: "Total number of login attempts",
	},
	[]string{"status"}, // success, failed
)
