//go:build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/Kargones/darklaunch/internal/config"
)

//go:generate wire

// ProviderSet объединяет все провайдеры приложения.
// Используется в InitializeApp для построения графа зависимостей.
//
// При добавлении новых провайдеров:
// 1. Создать функцию провайдера в providers.go
// 2. Добавить её в ProviderSet
// 3. Перегенерировать: go generate ./internal/di/...
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideMetricsCollector,
	ProvideTracerShutdown,
	ProvideEndpoints,
	ProvideForwarder,
	ProvideMSSQLStore,
	ProvideResultSink,
	ProvideComparator,
	ProvideMatcher,
	ProvideSampler,
	ProvideMiddleware,
	wire.Struct(new(App), "*"),
)

// InitializeApp создаёт и инициализирует App через Wire DI.
// Принимает внешний Config (загруженный через config.Load()).
//
// Wire генерирует реализацию этой функции в wire_gen.go.
// Функция здесь является "заглушкой" с wire.Build() вызовом.
func InitializeApp(cfg *config.Config) (*App, error) {
	wire.Build(ProviderSet)
	return nil, nil // Wire заменит это на реальную реализацию
}
