// Package capture перехватывает ответ primary без вмешательства в его
// доставку клиенту. TeeWriter оборачивает http.ResponseWriter: каждая
// запись сначала уходит клиенту и только затем копируется в буфер
// перехвата. Сбой перехвата никогда не ломает ответ клиенту.
package capture

import (
	"bytes"
	"net/http"
	"time"

	"github.com/Kargones/darklaunch/internal/eventstream"
)

// DefaultBodyLimit — предел буфера перехвата тела ответа.
// Тело длиннее предела отбрасывается с признаком Truncated: сравнение
// обрезанного тела дало бы ложные расхождения.
const DefaultBodyLimit = 4 << 20

// Captured — снимок перехваченного ответа primary.
type Captured struct {
	// StatusCode — статус ответа; 200 если обработчик писал тело
	// без явного WriteHeader.
	StatusCode int
	// Header — копия заголовков на момент завершения.
	Header http.Header
	// Body — перехваченное тело (пусто при Truncated).
	Body []byte
	// Truncated — тело превысило предел буфера.
	Truncated bool
	// Events — разобранные события (только потоковый режим).
	Events []eventstream.ParsedEvent
	// TimeToFirstByte — задержка до первого байта тела.
	TimeToFirstByte time.Duration
	// Duration — длительность от создания перехвата до Finish.
	Duration time.Duration
}

// TeeWriter — http.ResponseWriter с перехватом. Не потокобезопасен,
// как и сам http.ResponseWriter: используется одной горутиной обработчика.
type TeeWriter struct {
	rw http.ResponseWriter

	limit     int
	status    int
	wroteHead bool

	body      bytes.Buffer
	truncated bool

	parser *eventstream.Parser

	start     time.Time
	firstByte time.Time
	finished  time.Time
}

// NewTeeWriter создаёт перехват плоского ответа.
// limit <= 0 заменяется на DefaultBodyLimit.
func NewTeeWriter(rw http.ResponseWriter, limit int) *TeeWriter {
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	return &TeeWriter{rw: rw, limit: limit, start: time.Now()}
}

// NewStreamingTeeWriter создаёт перехват потокового (SSE) ответа:
// тело дополнительно скармливается инкрементальному разборщику событий.
func NewStreamingTeeWriter(rw http.ResponseWriter, limit int) *TeeWriter {
	t := NewTeeWriter(rw, limit)
	t.parser = eventstream.NewParser(t.start)
	return t
}

// Header возвращает заголовки нижележащего writer-а.
func (t *TeeWriter) Header() http.Header {
	return t.rw.Header()
}

// WriteHeader фиксирует статус и передаёт его клиенту.
func (t *TeeWriter) WriteHeader(status int) {
	if !t.wroteHead {
		t.status = status
		t.wroteHead = true
	}
	t.rw.WriteHeader(status)
}

// Write передаёт данные клиенту и копирует их в буфер перехвата.
// Ошибка записи клиенту возвращается как есть; перехват при этом
// уже получил свою копию.
func (t *TeeWriter) Write(p []byte) (int, error) {
	if !t.wroteHead {
		t.status = http.StatusOK
		t.wroteHead = true
	}
	if t.firstByte.IsZero() && len(p) > 0 {
		t.firstByte = time.Now()
	}

	t.capture(p)

	return t.rw.Write(p)
}

// Flush пробрасывает сброс буфера клиенту, если нижележащий writer
// его поддерживает. Для SSE-ответов это обязательный путь.
func (t *TeeWriter) Flush() {
	if f, ok := t.rw.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap отдаёт нижележащий writer для http.ResponseController.
func (t *TeeWriter) Unwrap() http.ResponseWriter {
	return t.rw
}

// Finish завершает перехват и возвращает снимок ответа.
// Вызывается после возврата обработчика; повторный вызов вернёт
// снимок с той же длительностью.
func (t *TeeWriter) Finish() Captured {
	if t.finished.IsZero() {
		t.finished = time.Now()
		if t.parser != nil {
			t.parser.Close()
		}
	}

	c := Captured{
		StatusCode: t.status,
		Header:     t.rw.Header().Clone(),
		Truncated:  t.truncated,
		Duration:   t.finished.Sub(t.start),
	}
	if t.status == 0 {
		c.StatusCode = http.StatusOK
	}
	if !t.firstByte.IsZero() {
		c.TimeToFirstByte = t.firstByte.Sub(t.start)
	}
	if !t.truncated {
		c.Body = t.body.Bytes()
	}
	if t.parser != nil {
		c.Events = t.parser.Events()
	}
	return c
}

// capture копирует чанк в буфер и разборщик с учётом предела.
func (t *TeeWriter) capture(p []byte) {
	if t.parser != nil {
		t.parser.Feed(p)
	}
	if t.truncated {
		return
	}
	if t.body.Len()+len(p) > t.limit {
		t.truncated = true
		t.body.Reset()
		return
	}
	t.body.Write(p)
}
