package metrics

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Kargones/darklaunch/internal/entity/comparison"
	"github.com/Kargones/darklaunch/internal/pkg/logging"
	"github.com/Kargones/darklaunch/internal/pkg/urlutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PrometheusCollector реализует Collector поверх Aggregator с экспортом
// в Prometheus: scrape через Handler() и опциональный push в Pushgateway.
type PrometheusCollector struct {
	config     Config
	logger     logging.Logger
	registry   *prometheus.Registry
	aggregator *Aggregator

	// Метрики
	comparisonTotal *prometheus.CounterVec
	responseLatency *prometheus.HistogramVec
	streamEvents    *prometheus.HistogramVec
	droppedTotal    prometheus.Counter

	// Instance label (hostname)
	instance string
}

// NewPrometheusCollector создаёт PrometheusCollector с указанной конфигурацией.
// Регистрирует метрики:
//   - darklaunch_comparison_total (counter)
//   - darklaunch_response_latency_seconds (histogram)
//   - darklaunch_stream_events (histogram)
//   - darklaunch_dropped_results_total (counter)
func NewPrometheusCollector(config Config, logger logging.Logger) (*PrometheusCollector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	instance := config.InstanceLabel
	if instance == "" {
		hostname, err := os.Hostname()
		if err != nil {
			logger.Warn("не удалось получить hostname для metrics instance label, используется 'unknown'",
				"error", err.Error())
			hostname = "unknown"
		}
		instance = hostname
	}

	registry := prometheus.NewRegistry()

	comparisonTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "darklaunch",
			Name:      "comparison_total",
			Help:      "Total number of shadow comparisons by outcome",
		},
		[]string{"method", "endpoint", "outcome"},
	)

	// Buckets покрывают диапазон от быстрых плоских ответов до долгих
	// потоковых генераций
	responseLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "darklaunch",
			Name:      "response_latency_seconds",
			Help:      "Response latency per side in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"side", "endpoint"},
	)

	streamEvents := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "darklaunch",
			Name:      "stream_events",
			Help:      "Number of parsed events per streaming response",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"side", "endpoint"},
	)

	droppedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "darklaunch",
			Name:      "dropped_results_total",
			Help:      "Total number of comparison results dropped due to queue overflow",
		},
	)

	// Регистрируем все метрики атомарно.
	// Используем Register вместо MustRegister для избежания panic.
	collectors := []prometheus.Collector{comparisonTotal, responseLatency, streamEvents, droppedTotal}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("ошибка регистрации метрики: %w", err)
		}
	}

	return &PrometheusCollector{
		config:          config,
		logger:          logger,
		registry:        registry,
		aggregator:      NewAggregator(),
		comparisonTotal: comparisonTotal,
		responseLatency: responseLatency,
		streamEvents:    streamEvents,
		droppedTotal:    droppedTotal,
		instance:        instance,
	}, nil
}

// maxLabelLength — максимальная длина значения label для защиты от cardinality explosion.
const maxLabelLength = 128

// sanitizeLabel обрезает значение label до допустимой длины и удаляет
// контрольные символы (\n, \r, \0), которые могут нарушить Prometheus text format.
// Обрезка выполняется по рунам (не по байтам) для корректной работы с UTF-8.
func sanitizeLabel(value string) string {
	clean := strings.Map(func(r rune) rune {
		if r < 0x20 { // контрольные символы: \n, \r, \t, \0 и др.
			return '_'
		}
		return r
	}, value)

	runes := []rune(clean)
	if len(runes) > maxLabelLength {
		return string(runes[:maxLabelLength])
	}
	return clean
}

// RecordComparison записывает итог сравнения в агрегатор и Prometheus-метрики.
func (c *PrometheusCollector) RecordComparison(result *comparison.Result) {
	if result == nil {
		return
	}
	c.aggregator.Record(result)

	method := sanitizeLabel(result.Request.Method)
	endpoint := sanitizeLabel(result.Request.Endpoint)

	outcome := "mismatch"
	switch {
	case result.CandidateError() != "":
		outcome = "candidate_error"
	case result.Match:
		outcome = "match"
	}
	c.comparisonTotal.WithLabelValues(method, endpoint, outcome).Inc()

	primaryMs, candidateMs := sideLatencies(result)
	c.responseLatency.WithLabelValues("primary", endpoint).Observe(primaryMs / 1000)
	c.responseLatency.WithLabelValues("candidate", endpoint).Observe(candidateMs / 1000)

	if result.Streaming {
		c.streamEvents.WithLabelValues("primary", endpoint).Observe(float64(result.PrimaryStream.EventCount()))
		c.streamEvents.WithLabelValues("candidate", endpoint).Observe(float64(result.CandidateStream.EventCount()))
	}

	c.logger.Debug("metrics: comparison recorded",
		"method", method,
		"endpoint", endpoint,
		"outcome", outcome,
	)
}

// RecordDropped увеличивает счётчик отброшенных результатов.
func (c *PrometheusCollector) RecordDropped() {
	c.aggregator.RecordDropped()
	c.droppedTotal.Inc()
}

// Snapshot возвращает срез агрегированных показателей.
func (c *PrometheusCollector) Snapshot() Stats {
	return c.aggregator.Snapshot()
}

// Reset обнуляет агрегатор. Prometheus-счётчики не сбрасываются:
// монотонность counter-ов — контракт scrape-модели.
func (c *PrometheusCollector) Reset() {
	c.aggregator.Reset()
}

// Handler возвращает HTTP-обработчик scrape-эндпоинта.
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Push отправляет метрики в Pushgateway.
// Возвращает nil даже при ошибке — ошибки логируются.
func (c *PrometheusCollector) Push(ctx context.Context) error {
	if c.config.PushgatewayURL == "" {
		c.logger.Debug("metrics: pushgateway URL not configured, skipping push")
		return nil
	}

	select {
	case <-ctx.Done():
		c.logger.Debug("metrics push отменён")
		return nil
	default:
	}

	pusher := push.New(c.config.PushgatewayURL, c.config.JobName).
		Gatherer(c.registry).
		Grouping("instance", c.instance)

	pushCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if err := pusher.PushContext(pushCtx); err != nil {
		c.logger.Error("ошибка отправки метрик в Pushgateway",
			"error", err.Error(),
			"url", urlutil.MaskURL(c.config.PushgatewayURL),
			"job", c.config.JobName,
		)
		// Ошибка метрик не критична
		return nil
	}

	c.logger.Info("метрики отправлены в Pushgateway",
		"url", urlutil.MaskURL(c.config.PushgatewayURL),
		"job", c.config.JobName,
		"instance", c.instance,
	)
	return nil
}

// GetRegistry возвращает внутренний registry для тестирования.
func (c *PrometheusCollector) GetRegistry() *prometheus.Registry {
	return c.registry
}

var _ Collector = (*PrometheusCollector)(nil)

// PushPeriodically отправляет метрики с заданным интервалом до отмены
// контекста. Финальный push при остановке выполняет вызывающая сторона.
func (c *PrometheusCollector) PushPeriodically(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Push(ctx)
		}
	}
}
