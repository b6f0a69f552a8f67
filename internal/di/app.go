package di

import (
	"context"

	"github.com/Kargones/darklaunch/internal/comparator"
	"github.com/Kargones/darklaunch/internal/config"
	"github.com/Kargones/darklaunch/internal/forward"
	"github.com/Kargones/darklaunch/internal/pkg/logging"
	"github.com/Kargones/darklaunch/internal/pkg/metrics"
	"github.com/Kargones/darklaunch/internal/sink"
	"github.com/Kargones/darklaunch/internal/sink/mssqlsink"
)

// App содержит инициализированные зависимости приложения.
// Создаётся через Wire DI в InitializeApp().
//
// При добавлении новых зависимостей:
// 1. Добавить поле в App struct
// 2. Создать провайдер в providers.go
// 3. Добавить провайдер в ProviderSet в wire.go
// 4. Перегенерировать wire_gen.go: go generate ./internal/di/...
type App struct {
	// Config содержит конфигурацию приложения.
	// Передаётся извне через InitializeApp().
	Config *config.Config

	// Logger предоставляет структурированное логирование.
	Logger logging.Logger

	// Collector собирает метрики сравнений и отдаёт их на /metrics.
	// Если метрики отключены — NopCollector.
	Collector metrics.Collector

	// TracerShutdown завершает OTel TracerProvider и отправляет
	// буферизированные span-ы. Если трейсинг отключён — nop function.
	TracerShutdown func(context.Context) error

	// Endpoints — загруженный файл endpoint-ов (пустой при отсутствии).
	Endpoints *config.EndpointsFile

	// Forwarder отправляет теневые запросы к candidate.
	// nil когда затенение отключено.
	Forwarder *forward.Forwarder

	// Store — MSSQL-синк результатов; nil когда отключён.
	Store *mssqlsink.Store

	// ResultSink — цепочка доставки результатов сравнения.
	ResultSink sink.Sink

	// Comparator — оркестратор фоновых сравнений.
	// nil когда затенение отключено.
	Comparator *comparator.Comparator

	// Matcher подбирает endpoint-дескриптор для входящего запроса.
	Matcher *comparator.Matcher

	// Sampler принимает вероятностное решение о затенении.
	Sampler *comparator.Sampler

	// Middleware встраивает теневой контур в цепочку обработчиков.
	// nil когда затенение отключено.
	Middleware *comparator.Middleware
}

// ShadowingEnabled сообщает, собран ли теневой контур.
func (a *App) ShadowingEnabled() bool {
	return a.Middleware != nil
}

// Shutdown останавливает фоновые подсистемы: дожидается завершения
// запущенных сравнений, закрывает MSSQL-синк и завершает трейсинг.
// Прерывается по ctx.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error

	if a.Comparator != nil {
		if err := a.Comparator.Close(ctx); err != nil {
			a.Logger.Error("оркестратор сравнений не завершился корректно", "error", err.Error())
			firstErr = err
		}
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.TracerShutdown != nil {
		if err := a.TracerShutdown(ctx); err != nil {
			a.Logger.Error("трейсинг не завершился корректно", "error", err.Error())
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
