// Package comparison содержит доменную модель результата теневого
// сравнения: сводки ответов обеих сторон, расхождения и итоговый вердикт.
package comparison

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Kargones/darklaunch/internal/eventstream"
	"github.com/Kargones/darklaunch/internal/jsondiff"
)

// EventDiffKind — разновидность расхождения на позиции потока событий.
type EventDiffKind string

const (
	// EventDiffType — на одной позиции разные типы событий.
	EventDiffType EventDiffKind = "type_mismatch"
	// EventDiffData — типы совпали, payload-ы различаются.
	EventDiffData EventDiffKind = "data_mismatch"
	// EventDiffMissingPrimary — у primary на этой позиции события нет.
	EventDiffMissingPrimary EventDiffKind = "missing_primary"
	// EventDiffMissingCandidate — у candidate на этой позиции события нет.
	EventDiffMissingCandidate EventDiffKind = "missing_candidate"
)

// RequestInfo — сведения о затенённом запросе.
type RequestInfo struct {
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Endpoint  string    `json:"endpoint"`
	Timestamp time.Time `json:"timestamp"`
}

// ResponseSummary — сводка плоского (не потокового) ответа одной стороны.
type ResponseSummary struct {
	// StatusCode равен 0, если ответ не был получен.
	StatusCode int `json:"statusCode"`
	// Body — разобранное тело: JSON-значение либо исходная строка.
	Body any `json:"body,omitempty"`
	// Latency — длительность от отправки запроса до полного чтения тела.
	Latency time.Duration `json:"-"`
	// Error — описание сбоя получения ответа (пусто при успехе).
	Error string `json:"error,omitempty"`
}

// StreamSummary — сводка потокового (SSE) ответа одной стороны.
type StreamSummary struct {
	StatusCode int `json:"statusCode"`
	// Events — разобранные события в порядке получения.
	Events []eventstream.ParsedEvent `json:"-"`
	// TimeToFirstEvent — задержка до первого события (0 если событий нет).
	TimeToFirstEvent time.Duration `json:"-"`
	// TotalDuration — длительность потока целиком.
	TotalDuration time.Duration `json:"-"`
	// Completed — поток завершился терминальным событием.
	Completed bool `json:"completed"`
	// Error — описание сбоя чтения потока (пусто при успехе).
	Error string `json:"error,omitempty"`
}

// EventCount возвращает число разобранных событий.
func (s *StreamSummary) EventCount() int {
	if s == nil {
		return 0
	}
	return len(s.Events)
}

// EventTypes возвращает типы событий в порядке получения.
func (s *StreamSummary) EventTypes() []string {
	if s == nil || len(s.Events) == 0 {
		return nil
	}
	types := make([]string, len(s.Events))
	for i, e := range s.Events {
		types[i] = e.Type
	}
	return types
}

// FinalEvent возвращает последнее разобранное событие потока, nil
// если событий не было.
func (s *StreamSummary) FinalEvent() *eventstream.ParsedEvent {
	if s == nil || len(s.Events) == 0 {
		return nil
	}
	return &s.Events[len(s.Events)-1]
}

// TerminalEvent возвращает последнее событие, если оно терминальное,
// иначе nil. Используется для признака Completed и сравнения итогов.
func (s *StreamSummary) TerminalEvent() *eventstream.ParsedEvent {
	last := s.FinalEvent()
	if last == nil || !last.IsTerminal() {
		return nil
	}
	return last
}

// EventDifference — расхождение потоков на одной позиции.
type EventDifference struct {
	Index          int                   `json:"index"`
	Kind           EventDiffKind         `json:"kind"`
	PrimaryType    string                `json:"primaryType,omitempty"`
	CandidateType  string                `json:"candidateType,omitempty"`
	PrimaryData    any                   `json:"primaryData,omitempty"`
	CandidateData  any                   `json:"candidateData,omitempty"`
	DataDiffs      []jsondiff.Difference `json:"dataDiffs,omitempty"`
}

// StreamComparison — четыре сигнала сравнения потоков и позиционные
// расхождения. Совпадением считается истинность всех сигналов.
type StreamComparison struct {
	EventCountMatch  bool              `json:"eventCountMatch"`
	EventTypesMatch  bool              `json:"eventTypesMatch"`
	FinalResultMatch bool              `json:"finalResultMatch"`
	EventDifferences []EventDifference `json:"eventDifferences,omitempty"`
}

// Result — итог одного теневого сравнения.
type Result struct {
	// ID — уникальный идентификатор сравнения.
	ID string
	// Request — сведения о затенённом запросе.
	Request RequestInfo
	// Streaming — признак потокового сравнения; определяет, какая пара
	// сводок заполнена.
	Streaming bool
	// Match — итоговый вердикт.
	Match bool

	// Плоский режим.
	Primary     *ResponseSummary
	Candidate   *ResponseSummary
	Differences []jsondiff.Difference

	// Потоковый режим.
	PrimaryStream   *StreamSummary
	CandidateStream *StreamSummary
	Stream          *StreamComparison
}

// NewResult создаёт результат со свежим идентификатором.
func NewResult(req RequestInfo) *Result {
	return &Result{ID: uuid.NewString(), Request: req}
}

// CandidateError возвращает описание сбоя на стороне candidate,
// пустую строку если сбоя не было.
func (r *Result) CandidateError() string {
	if r.Candidate != nil && r.Candidate.Error != "" {
		return r.Candidate.Error
	}
	if r.CandidateStream != nil && r.CandidateStream.Error != "" {
		return r.CandidateStream.Error
	}
	return ""
}

// DifferenceCount возвращает общее число расхождений результата.
func (r *Result) DifferenceCount() int {
	n := len(r.Differences)
	if r.Stream != nil {
		n += len(r.Stream.EventDifferences)
	}
	return n
}

// resultJSON — сериализуемое представление результата. Длительности
// выводятся в миллисекундах, сводки потоков — с производными полями.
type resultJSON struct {
	ID          string                `json:"id"`
	Request     RequestInfo           `json:"request"`
	Streaming   bool                  `json:"streaming"`
	Match       bool                  `json:"match"`
	Primary     *responseSummaryJSON  `json:"primary,omitempty"`
	Candidate   *responseSummaryJSON  `json:"candidate,omitempty"`
	Differences []jsondiff.Difference `json:"differences,omitempty"`

	PrimaryStream   *streamSummaryJSON `json:"primaryStream,omitempty"`
	CandidateStream *streamSummaryJSON `json:"candidateStream,omitempty"`
	Stream          *StreamComparison  `json:"stream,omitempty"`
}

type responseSummaryJSON struct {
	StatusCode int    `json:"statusCode"`
	Body       any    `json:"body,omitempty"`
	LatencyMs  int64  `json:"latencyMs"`
	Error      string `json:"error,omitempty"`
}

type streamSummaryJSON struct {
	StatusCode         int      `json:"statusCode"`
	EventCount         int      `json:"eventCount"`
	EventTypes         []string `json:"eventTypes,omitempty"`
	TimeToFirstEventMs int64    `json:"timeToFirstEventMs"`
	TotalDurationMs    int64    `json:"totalDurationMs"`
	FinalEvent         any      `json:"finalEvent,omitempty"`
	Completed          bool     `json:"completed"`
	Error              string   `json:"error,omitempty"`
}

func summaryToJSON(s *ResponseSummary) *responseSummaryJSON {
	if s == nil {
		return nil
	}
	return &responseSummaryJSON{
		StatusCode: s.StatusCode,
		Body:       s.Body,
		LatencyMs:  s.Latency.Milliseconds(),
		Error:      s.Error,
	}
}

func streamToJSON(s *StreamSummary) *streamSummaryJSON {
	if s == nil {
		return nil
	}
	out := &streamSummaryJSON{
		StatusCode:         s.StatusCode,
		EventCount:         s.EventCount(),
		EventTypes:         s.EventTypes(),
		TimeToFirstEventMs: s.TimeToFirstEvent.Milliseconds(),
		TotalDurationMs:    s.TotalDuration.Milliseconds(),
		Completed:          s.Completed,
		Error:              s.Error,
	}
	if final := s.FinalEvent(); final != nil {
		out.FinalEvent = final.Data
	}
	return out
}

// ToJSON сериализует результат в JSON для синков и журналирования.
func (r *Result) ToJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		ID:              r.ID,
		Request:         r.Request,
		Streaming:       r.Streaming,
		Match:           r.Match,
		Primary:         summaryToJSON(r.Primary),
		Candidate:       summaryToJSON(r.Candidate),
		Differences:     r.Differences,
		PrimaryStream:   streamToJSON(r.PrimaryStream),
		CandidateStream: streamToJSON(r.CandidateStream),
		Stream:          r.Stream,
	})
}
