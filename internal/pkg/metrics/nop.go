package metrics

import (
	"context"
	"net/http"

	"github.com/Kargones/darklaunch/internal/entity/comparison"
)

// NopCollector — no-op реализация Collector.
// Используется когда метрики отключены (Config.Enabled = false).
type NopCollector struct{}

// NewNopCollector создаёт NopCollector.
func NewNopCollector() *NopCollector {
	return &NopCollector{}
}

// RecordComparison — no-op, ничего не делает.
func (c *NopCollector) RecordComparison(result *comparison.Result) {}

// RecordDropped — no-op, ничего не делает.
func (c *NopCollector) RecordDropped() {}

// Snapshot возвращает нулевой срез.
func (c *NopCollector) Snapshot() Stats {
	return Stats{}
}

// Reset — no-op, ничего не делает.
func (c *NopCollector) Reset() {}

// Handler возвращает обработчик, отвечающий 404: scrape-эндпоинт
// при отключённых метриках отсутствует.
func (c *NopCollector) Handler() http.Handler {
	return http.NotFoundHandler()
}

// Push — no-op, всегда возвращает nil.
func (c *NopCollector) Push(ctx context.Context) error {
	return nil
}

var _ Collector = (*NopCollector)(nil)
