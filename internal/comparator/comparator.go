package comparator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Kargones/darklaunch/internal/capture"
	"github.com/Kargones/darklaunch/internal/constants"
	"github.com/Kargones/darklaunch/internal/entity/comparison"
	"github.com/Kargones/darklaunch/internal/forward"
	"github.com/Kargones/darklaunch/internal/pkg/logging"
	"github.com/Kargones/darklaunch/internal/pkg/metrics"
	"github.com/Kargones/darklaunch/internal/pkg/tracing"
	"github.com/Kargones/darklaunch/internal/sink"
)

// Config содержит настройки оркестратора сравнений.
type Config struct {
	// MaxConcurrent — предел одновременных фоновых сравнений.
	// Превышение предела отбрасывает сравнение, не задерживая запрос.
	MaxConcurrent int

	// QueueSize — ёмкость очереди доставки результатов в синки.
	QueueSize int

	// IgnoredPaths — глобальный список игнорируемых путей сравнения.
	IgnoredPaths []string
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 16,
		QueueSize:     constants.DefaultResultQueueSize,
	}
}

// Comparator запускает фоновые сравнения и раздаёт результаты
// метрикам и синкам. Обслуживание клиента никогда не ждёт сравнение:
// при переполнении пределов сравнение отбрасывается со счётчиком.
type Comparator struct {
	config    Config
	forwarder *forward.Forwarder
	collector metrics.Collector
	sink      sink.Sink
	logger    logging.Logger
	tracer    trace.Tracer

	group        *errgroup.Group
	results      chan *comparison.Result
	dispatchDone chan struct{}
	closed       atomic.Bool
}

// New создаёт Comparator и запускает горутину доставки результатов.
// Завершается вызовом Close.
func New(config Config, forwarder *forward.Forwarder, collector metrics.Collector, resultSink sink.Sink, logger logging.Logger) *Comparator {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if config.QueueSize <= 0 {
		config.QueueSize = constants.DefaultResultQueueSize
	}

	group := &errgroup.Group{}
	group.SetLimit(config.MaxConcurrent)

	c := &Comparator{
		config:       config,
		forwarder:    forwarder,
		collector:    collector,
		sink:         resultSink,
		logger:       logger,
		tracer:       otel.Tracer("darklaunch/comparator"),
		group:        group,
		results:      make(chan *comparison.Result, config.QueueSize),
		dispatchDone: make(chan struct{}),
	}
	go c.dispatch()
	return c
}

// Launch ставит фоновое сравнение перехваченного ответа primary
// с candidate. Возвращает false если сравнение отброшено: оркестратор
// закрыт либо достигнут предел одновременных сравнений.
func (c *Comparator) Launch(shadow *forward.ShadowRequest, captured capture.Captured, endpoint *Endpoint, traceID string) bool {
	if c.closed.Load() {
		return false
	}

	scheduled := c.group.TryGo(func() error {
		c.run(shadow, captured, endpoint, traceID)
		return nil
	})
	if !scheduled {
		c.collector.RecordDropped()
		c.logger.Warn("сравнение отброшено: достигнут предел одновременных сравнений",
			"endpoint", endpoint.Path,
			"max_concurrent", c.config.MaxConcurrent,
		)
	}
	return scheduled
}

// Close останавливает приём новых сравнений, дожидается завершения
// запущенных и доставки накопленных результатов. Прерывается по ctx.
func (c *Comparator) Close(ctx context.Context) error {
	if c.closed.Swap(true) {
		return nil
	}

	drained := make(chan struct{})
	go func() {
		_ = c.group.Wait()
		close(c.results)
		<-c.dispatchDone
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch последовательно доставляет результаты синку.
func (c *Comparator) dispatch() {
	defer close(c.dispatchDone)
	for result := range c.results {
		if err := c.sink.Deliver(context.Background(), result); err != nil {
			c.logger.Error("сбой доставки результата сравнения",
				"comparison_id", result.ID,
				"error", err.Error(),
			)
		}
	}
}

// run выполняет одно сравнение в фоновой горутине.
func (c *Comparator) run(shadow *forward.ShadowRequest, captured capture.Captured, endpoint *Endpoint, traceID string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("паника в фоновом сравнении",
				"endpoint", endpoint.Path,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()

	if captured.Truncated {
		// Обрезанный перехват дал бы ложные расхождения на ровном месте.
		c.logger.Warn("сравнение пропущено: тело primary превысило предел перехвата",
			"endpoint", endpoint.Path,
		)
		return
	}

	ctx := context.Background()
	if traceID != "" {
		ctx = tracing.WithTraceID(ctx, traceID)
		ctx = tracing.ContextWithOTelTraceID(ctx, traceID)
	}

	ctx, span := c.tracer.Start(ctx, "shadow.compare",
		trace.WithAttributes(
			attribute.String("http.method", shadow.Method),
			attribute.String("darklaunch.endpoint", endpoint.Path),
			attribute.Bool("darklaunch.streaming", endpoint.Streaming),
		),
	)
	defer span.End()

	result := comparison.NewResult(comparison.RequestInfo{
		Method:    shadow.Method,
		Path:      shadow.RequestURI,
		Endpoint:  endpoint.Path,
		Timestamp: time.Now(),
	})

	ignored := c.ignoredFor(endpoint)
	if endpoint.Streaming {
		c.compareStreaming(ctx, result, shadow, captured, ignored)
	} else {
		c.compareFlat(ctx, result, shadow, captured, ignored)
	}

	span.SetAttributes(
		attribute.Bool("darklaunch.match", result.Match),
		attribute.Int("darklaunch.differences", result.DifferenceCount()),
	)

	c.collector.RecordComparison(result)

	select {
	case c.results <- result:
	default:
		c.collector.RecordDropped()
		c.logger.Warn("результат сравнения отброшен: очередь доставки переполнена",
			"comparison_id", result.ID,
			"queue_size", c.config.QueueSize,
		)
	}
}

// compareFlat сравнивает плоские ответы обеих сторон.
func (c *Comparator) compareFlat(ctx context.Context, result *comparison.Result, shadow *forward.ShadowRequest, captured capture.Captured, ignored []string) {
	result.Primary = &comparison.ResponseSummary{
		StatusCode: captured.StatusCode,
		Body:       forward.ParseBody(captured.Body, captured.Header.Get("Content-Type")),
		Latency:    captured.Duration,
	}
	result.Candidate = c.forwarder.Forward(ctx, shadow)

	// Сбой candidate — не расхождение тел, сравнивать нечего.
	if result.Candidate.Error != "" {
		result.Match = false
		return
	}

	result.Differences, result.Match = CompareFlat(result.Primary, result.Candidate, ignored)
}

// compareStreaming сравнивает потоковые ответы обеих сторон.
func (c *Comparator) compareStreaming(ctx context.Context, result *comparison.Result, shadow *forward.ShadowRequest, captured capture.Captured, ignored []string) {
	result.Streaming = true

	primary := &comparison.StreamSummary{
		StatusCode:       captured.StatusCode,
		Events:           captured.Events,
		TimeToFirstEvent: captured.TimeToFirstByte,
		TotalDuration:    captured.Duration,
	}
	primary.Completed = primary.TerminalEvent() != nil
	result.PrimaryStream = primary

	result.CandidateStream = c.forwarder.ForwardStream(ctx, shadow)

	if result.CandidateStream.Error != "" {
		result.Match = false
		return
	}

	result.Stream, result.Match = CompareStreams(result.PrimaryStream, result.CandidateStream, ignored)
}

// ignoredFor объединяет глобальные игнорируемые пути с путями endpoint-а.
func (c *Comparator) ignoredFor(endpoint *Endpoint) []string {
	if len(endpoint.IgnoredPaths) == 0 {
		return c.config.IgnoredPaths
	}
	merged := make([]string, 0, len(c.config.IgnoredPaths)+len(endpoint.IgnoredPaths))
	merged = append(merged, c.config.IgnoredPaths...)
	merged = append(merged, endpoint.IgnoredPaths...)
	return merged
}
