package di

import (
	"context"

	"github.com/Kargones/darklaunch/internal/comparator"
	"github.com/Kargones/darklaunch/internal/config"
	"github.com/Kargones/darklaunch/internal/forward"
	"github.com/Kargones/darklaunch/internal/pkg/logging"
	"github.com/Kargones/darklaunch/internal/pkg/metrics"
	"github.com/Kargones/darklaunch/internal/pkg/tracing"
	"github.com/Kargones/darklaunch/internal/sink"
	"github.com/Kargones/darklaunch/internal/sink/mssqlsink"
)

// ProvideLogger создаёт Logger на основе настроек логирования.
func ProvideLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(cfg.LoggingConfig())
}

// ProvideMetricsCollector создаёт Collector метрик сравнений.
// При отключённых метриках или ошибке создания возвращает NopCollector.
func ProvideMetricsCollector(cfg *config.Config, logger logging.Logger) metrics.Collector {
	collector, err := metrics.NewCollector(cfg.MetricsConfig(), logger)
	if err != nil {
		logger.Error("ошибка создания MetricsCollector, используется NopCollector",
			"error", err.Error(),
		)
		return metrics.NewNopCollector()
	}
	return collector
}

// ProvideTracerShutdown создаёт и инициализирует OTel TracerProvider.
// Возвращает shutdown function; при отключённом трейсинге или ошибке — nop.
func ProvideTracerShutdown(cfg *config.Config, logger logging.Logger) func(context.Context) error {
	shutdown, err := tracing.NewTracerProvider(cfg.TracingConfig(), logger)
	if err != nil {
		logger.Error("ошибка создания TracerProvider, трейсинг отключён",
			"error", err.Error(),
		)
		return tracing.NewNopTracerProvider()
	}
	return shutdown
}

// ProvideEndpoints загружает файл endpoint-ов.
func ProvideEndpoints(cfg *config.Config, logger logging.Logger) (*config.EndpointsFile, error) {
	return config.LoadEndpoints(cfg.EndpointsFile, logger)
}

// ProvideForwarder создаёт Forwarder теневых запросов.
// Возвращает nil когда затенение отключено.
func ProvideForwarder(cfg *config.Config, logger logging.Logger) (*forward.Forwarder, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return forward.NewForwarder(cfg.ForwardConfig(), logger)
}

// ProvideMSSQLStore создаёт и подключает MSSQL-синк результатов.
// Возвращает nil когда синк отключён. Ошибка подключения не фатальна:
// результаты продолжают идти в лог, синк заменяется на nil.
func ProvideMSSQLStore(cfg *config.Config, logger logging.Logger) *mssqlsink.Store {
	opts, enabled := cfg.MSSQLOptions()
	if !enabled {
		return nil
	}

	store, err := mssqlsink.NewStore(opts)
	if err != nil {
		logger.Error("ошибка создания MSSQL-синка, результаты идут только в лог",
			"error", err.Error(),
		)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	if err := store.Connect(ctx); err != nil {
		logger.Error("не удалось подключиться к MSSQL, результаты идут только в лог",
			"server", opts.Server,
			"database", opts.Database,
			"error", err.Error(),
		)
		return nil
	}

	logger.Info("MSSQL-синк результатов подключён",
		"server", opts.Server,
		"database", opts.Database,
		"table", opts.Table,
	)
	return store
}

// ProvideResultSink собирает цепочку доставки результатов:
// LogSink всегда, MSSQL-синк — когда подключён.
func ProvideResultSink(logger logging.Logger, store *mssqlsink.Store) sink.Sink {
	logSink := sink.NewLogSink(logger, 0)
	if store == nil {
		return logSink
	}
	return sink.NewMultiSink(logger, logSink, store)
}

// ProvideComparator создаёт оркестратор фоновых сравнений.
// Возвращает nil когда затенение отключено.
func ProvideComparator(cfg *config.Config, endpoints *config.EndpointsFile, forwarder *forward.Forwarder, collector metrics.Collector, resultSink sink.Sink, logger logging.Logger) *comparator.Comparator {
	if forwarder == nil {
		return nil
	}
	return comparator.New(cfg.ComparatorConfig(endpoints.IgnoredPaths), forwarder, collector, resultSink, logger)
}

// ProvideMatcher создаёт Matcher над endpoint-ами из файла.
func ProvideMatcher(endpoints *config.EndpointsFile) *comparator.Matcher {
	return comparator.NewMatcher(endpoints.Endpoints)
}

// ProvideSampler создаёт Sampler с глобальной долей затенения.
func ProvideSampler(cfg *config.Config) *comparator.Sampler {
	return comparator.NewSampler(cfg.Enabled, cfg.SampleRate)
}

// ProvideMiddleware создаёт теневой Middleware.
// Возвращает nil когда затенение отключено.
func ProvideMiddleware(cfg *config.Config, matcher *comparator.Matcher, sampler *comparator.Sampler, comp *comparator.Comparator, logger logging.Logger) *comparator.Middleware {
	if comp == nil {
		return nil
	}
	return comparator.NewMiddleware(matcher, sampler, comp, logger, int(cfg.MaxBodySize), cfg.MaxBodySize)
}
