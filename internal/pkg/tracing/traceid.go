// Package tracing предоставляет генерацию trace ID и интеграцию
// с OpenTelemetry. Trace ID корреллирует логи и span-ы одного запроса:
// обслуживание primary и фоновое сравнение делят один идентификатор.
//
// Формат trace ID: 32-символьный hex string (16 байт), совместим
// с W3C Trace Context.
package tracing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// fallbackCounter используется для генерации уникальных fallback ID.
var fallbackCounter atomic.Uint64

// GenerateTraceID генерирует уникальный trace ID.
// Формат: 32 символа hex (16 байт).
//
// Использует crypto/rand; при его ошибке (практически невозможной)
// возвращает fallback значение на основе timestamp и счётчика.
func GenerateTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fallbackTraceID()
	}
	return hex.EncodeToString(b)
}

// fallbackTraceID генерирует ID на основе текущего времени и счётчика.
// %016x для uint64 даёт ровно 16 hex символов, итого всегда 32 символа.
func fallbackTraceID() string {
	counter := fallbackCounter.Add(1)
	timestamp := uint64(time.Now().UnixNano())
	return fmt.Sprintf("%016x%016x", timestamp, counter)
}
