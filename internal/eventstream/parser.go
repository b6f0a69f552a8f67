// Package eventstream разбирает поток server-sent events (SSE) в
// последовательность типизированных событий.
//
// Единое буферизующее ядро обслуживает два режима работы: push (Feed —
// байтовые чанки произвольной нарезки, например из tee-перехвата ответа
// primary) и pull (ParseStream — чтение io.Reader тела ответа candidate).
// Результат разбора не зависит от того, как поток нарезан на чанки.
package eventstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/Kargones/darklaunch/internal/constants"
	"github.com/Kargones/darklaunch/internal/pkg/apperrors"
)

// ParsedEvent — одно разобранное событие потока.
type ParsedEvent struct {
	// Type — тип события из строки "event:"; constants.SentinelEventType
	// если строка "event:" перед данными не встретилась.
	Type string `json:"type"`
	// Data — разобранный payload: JSON-значение либо исходная строка,
	// если payload не является валидным JSON.
	Data any `json:"data"`
	// Raw — payload как есть, до попытки разбора JSON.
	Raw string `json:"-"`
	// OffsetMs — смещение момента получения события от начала потока.
	OffsetMs int64 `json:"offsetMs"`
}

// IsTerminal возвращает true для событий, завершающих поток.
func (e ParsedEvent) IsTerminal() bool {
	return constants.TerminalEventTypes[e.Type]
}

// Parser — инкрементальный разборщик SSE. Нулевое значение готово
// к использованию. Не потокобезопасен: каждый поток разбирается
// собственным экземпляром.
type Parser struct {
	buf         bytes.Buffer // незавершённая строка на границе чанков
	pendingType string       // тип из "event:", ещё не привязанный к данным
	events      []ParsedEvent
	start       time.Time
	clock       func() time.Time
}

// NewParser создаёт разборщик с отсчётом смещений от start.
func NewParser(start time.Time) *Parser {
	return &Parser{start: start, clock: time.Now}
}

// Feed скармливает разборщику очередной чанк байтов. Чанк может
// заканчиваться посреди строки — хвост буферизуется до следующего вызова.
func (p *Parser) Feed(chunk []byte) {
	p.buf.Write(chunk)
	for {
		raw := p.buf.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			return
		}
		line := string(raw[:idx])
		p.buf.Next(idx + 1)
		p.feedLine(strings.TrimSuffix(line, "\r"))
	}
}

// Close завершает разбор: хвост без перевода строки обрабатывается как
// последняя строка.
func (p *Parser) Close() {
	if p.buf.Len() > 0 {
		line := strings.TrimSuffix(p.buf.String(), "\r")
		p.buf.Reset()
		p.feedLine(line)
	}
}

// Events возвращает все события, разобранные к текущему моменту.
func (p *Parser) Events() []ParsedEvent {
	return p.events
}

// feedLine обрабатывает одну полную строку потока.
// Каждая строка "data:" немедленно фиксирует одно событие; строка
// "event:" без последующих данных события не создаёт. Пустые строки,
// комментарии (":") и неизвестные поля игнорируются.
func (p *Parser) feedLine(line string) {
	switch {
	case strings.HasPrefix(line, "event:"):
		p.pendingType = strings.TrimSpace(line[len("event:"):])
	case strings.HasPrefix(line, "data:"):
		p.emit(trimFieldValue(line[len("data:"):]))
	}
}

// emit фиксирует одно событие с текущим pending-типом и сбрасывает его:
// тип действует только в пределах своего события и не протекает дальше.
func (p *Parser) emit(raw string) {
	eventType := p.pendingType
	if eventType == "" {
		eventType = constants.SentinelEventType
	}
	p.pendingType = ""

	var offset int64
	if !p.start.IsZero() {
		now := time.Now
		if p.clock != nil {
			now = p.clock
		}
		offset = now().Sub(p.start).Milliseconds()
	}

	p.events = append(p.events, ParsedEvent{
		Type:     eventType,
		Data:     parseData(raw),
		Raw:      raw,
		OffsetMs: offset,
	})
}

// parseData разбирает payload как JSON; не-JSON остаётся исходной строкой.
func parseData(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// trimFieldValue убирает один ведущий пробел после двоеточия,
// как того требует формат SSE.
func trimFieldValue(s string) string {
	return strings.TrimPrefix(s, " ")
}

// ParseStream читает поток из r до EOF либо отмены контекста и возвращает
// разобранные события. При ошибке чтения возвращаются события, разобранные
// до момента ошибки, вместе с самой ошибкой: частичный результат ценен
// для диагностики оборвавшегося потока.
func ParseStream(ctx context.Context, r io.Reader, start time.Time) ([]ParsedEvent, error) {
	p := NewParser(start)
	reader := bufio.NewReader(r)
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			p.Close()
			return p.Events(), apperrors.NewAppError(apperrors.ErrParseStream, "разбор потока прерван", err)
		}
		n, err := reader.Read(buf)
		if n > 0 {
			p.Feed(buf[:n])
		}
		if err != nil {
			p.Close()
			if err == io.EOF {
				return p.Events(), nil
			}
			return p.Events(), apperrors.NewAppError(apperrors.ErrParseStream, "ошибка чтения потока событий", err)
		}
	}
}
