// Package metrics предоставляет интерфейсы и реализации для агрегации
// метрик теневых сравнений и их экспорта в Prometheus.
//
// Пакет следует паттернам проекта darklaunch:
//   - Interface Segregation: Collector interface для абстракции
//   - Factory pattern: NewCollector выбирает реализацию на основе конфигурации
//   - Graceful degradation: NopCollector при отключённых метриках
package metrics

import (
	"context"
	"net/http"

	"github.com/Kargones/darklaunch/internal/entity/comparison"
)

// Collector определяет интерфейс для сбора метрик сравнений.
// Реализации: PrometheusCollector (активный) и NopCollector (no-op).
type Collector interface {
	// RecordComparison записывает итог одного теневого сравнения.
	// Потокобезопасен: вызывается из фоновых горутин сравнения.
	RecordComparison(result *comparison.Result)

	// RecordDropped записывает результат, отброшенный из-за переполнения
	// очереди доставки в синки.
	RecordDropped()

	// Snapshot возвращает консистентный срез агрегированных показателей.
	Snapshot() Stats

	// Reset обнуляет агрегированные показатели.
	Reset()

	// Handler возвращает HTTP-обработчик для scrape-эндпоинта /metrics.
	Handler() http.Handler

	// Push отправляет метрики в Pushgateway.
	// Возвращает nil даже при ошибке — ошибки логируются внутри реализации:
	// сбой доставки метрик не должен ронять теневой контур.
	Push(ctx context.Context) error
}

// Stats — срез агрегированных показателей на момент вызова Snapshot.
type Stats struct {
	// Total — общее число выполненных сравнений.
	Total int64 `json:"total"`
	// Matches — число совпадений.
	Matches int64 `json:"matches"`
	// Mismatches — число расхождений.
	Mismatches int64 `json:"mismatches"`
	// CandidateErrors — число сбоев на стороне candidate.
	CandidateErrors int64 `json:"candidateErrors"`
	// Dropped — число результатов, отброшенных при переполнении очереди.
	Dropped int64 `json:"dropped"`
	// AvgPrimaryLatencyMs — средняя длительность ответа primary.
	AvgPrimaryLatencyMs float64 `json:"avgPrimaryLatencyMs"`
	// AvgCandidateLatencyMs — средняя длительность ответа candidate.
	AvgCandidateLatencyMs float64 `json:"avgCandidateLatencyMs"`
	// Endpoints — разбивка по ключу "METHOD path-шаблон".
	Endpoints map[string]EndpointStats `json:"endpoints,omitempty"`
}

// EndpointStats — показатели одного endpoint-а.
type EndpointStats struct {
	Total           int64 `json:"total"`
	Matches         int64 `json:"matches"`
	Mismatches      int64 `json:"mismatches"`
	CandidateErrors int64 `json:"candidateErrors"`
}

// MatchRate возвращает долю совпадений от общего числа сравнений,
// 0 если сравнений не было.
func (s Stats) MatchRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Matches) / float64(s.Total)
}
