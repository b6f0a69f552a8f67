package metrics

import (
	"sync"
	"time"

	"github.com/Kargones/darklaunch/internal/entity/comparison"
)

// Aggregator — потокобезопасный in-memory агрегатор показателей сравнений.
// Средние длительности считаются инкрементально, без хранения истории.
// Используется самостоятельно (Snapshot для периодических сводок в журнал)
// и как подложка PrometheusCollector.
type Aggregator struct {
	mu sync.Mutex

	total           int64
	matches         int64
	mismatches      int64
	candidateErrors int64
	dropped         int64

	primarySumMs   float64
	candidateSumMs float64

	endpoints map[string]EndpointStats
}

// NewAggregator создаёт пустой агрегатор.
func NewAggregator() *Aggregator {
	return &Aggregator{endpoints: make(map[string]EndpointStats)}
}

// Record записывает итог одного сравнения.
func (a *Aggregator) Record(result *comparison.Result) {
	if result == nil {
		return
	}

	primaryMs, candidateMs := sideLatencies(result)
	key := result.Request.Method + " " + result.Request.Endpoint
	failed := result.CandidateError() != ""

	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.primarySumMs += primaryMs
	a.candidateSumMs += candidateMs

	ep := a.endpoints[key]
	ep.Total++
	switch {
	case failed:
		a.candidateErrors++
		ep.CandidateErrors++
	case result.Match:
		a.matches++
		ep.Matches++
	default:
		a.mismatches++
		ep.Mismatches++
	}
	a.endpoints[key] = ep
}

// RecordDropped увеличивает счётчик отброшенных результатов.
func (a *Aggregator) RecordDropped() {
	a.mu.Lock()
	a.dropped++
	a.mu.Unlock()
}

// Snapshot возвращает консистентный срез показателей.
// Карта endpoint-ов копируется: срез не связан с живым агрегатором.
func (a *Aggregator) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := Stats{
		Total:           a.total,
		Matches:         a.matches,
		Mismatches:      a.mismatches,
		CandidateErrors: a.candidateErrors,
		Dropped:         a.dropped,
	}
	if a.total > 0 {
		stats.AvgPrimaryLatencyMs = a.primarySumMs / float64(a.total)
		stats.AvgCandidateLatencyMs = a.candidateSumMs / float64(a.total)
	}
	if len(a.endpoints) > 0 {
		stats.Endpoints = make(map[string]EndpointStats, len(a.endpoints))
		for k, v := range a.endpoints {
			stats.Endpoints[k] = v
		}
	}
	return stats
}

// Reset обнуляет все показатели.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total = 0
	a.matches = 0
	a.mismatches = 0
	a.candidateErrors = 0
	a.dropped = 0
	a.primarySumMs = 0
	a.candidateSumMs = 0
	a.endpoints = make(map[string]EndpointStats)
}

// sideLatencies возвращает длительности обеих сторон в миллисекундах.
// Для потоковых сравнений берётся полная длительность потока.
func sideLatencies(result *comparison.Result) (primaryMs, candidateMs float64) {
	toMs := func(d time.Duration) float64 {
		return float64(d) / float64(time.Millisecond)
	}
	if result.Streaming {
		if result.PrimaryStream != nil {
			primaryMs = toMs(result.PrimaryStream.TotalDuration)
		}
		if result.CandidateStream != nil {
			candidateMs = toMs(result.CandidateStream.TotalDuration)
		}
		return primaryMs, candidateMs
	}
	if result.Primary != nil {
		primaryMs = toMs(result.Primary.Latency)
	}
	if result.Candidate != nil {
		candidateMs = toMs(result.Candidate.Latency)
	}
	return primaryMs, candidateMs
}
