// Package apperrors предоставляет структурированные ошибки приложения.
// Имя выбрано чтобы не конфликтовать со стандартным пакетом errors.
package apperrors

import "fmt"

// Коды ошибок в иерархическом формате CATEGORY.SPECIFIC_ERROR.
// Формат позволяет grep по категориям: `grep "FORWARD\."` для всех ошибок форвардера.
const (
	// Category: CONFIG — ошибки загрузки и валидации конфигурации.
	ErrConfigLoad     = "CONFIG.LOAD_FAILED"
	ErrConfigParse    = "CONFIG.PARSE_FAILED"
	ErrConfigValidate = "CONFIG.VALIDATION_FAILED"

	// Category: FORWARD — ошибки дублирующего вызова candidate-сервиса.
	// Эти ошибки никогда не поднимаются в primary-путь: они попадают
	// в поле error соответствующего summary.
	ErrForwardRequest = "FORWARD.REQUEST_FAILED"
	ErrForwardTimeout = "FORWARD.TIMEOUT"

	// Category: PARSE — ошибки разбора тел и потоков событий.
	ErrParseStream = "PARSE.STREAM_FAILED"
	ErrParseBody   = "PARSE.BODY_FAILED"

	// Category: SINK — ошибки доставки результатов сравнения.
	ErrSinkDeliver = "SINK.DELIVER_FAILED"
	ErrSinkStore   = "SINK.STORE_FAILED"
)

// AppError представляет структурированную ошибку приложения.
// Реализует error и поддерживает wrapping через Unwrap().
//
// ВАЖНО: Message НЕ ДОЛЖЕН содержать секреты (токены, заголовки авторизации).
// Для URL используйте urlutil.MaskURL.
type AppError struct {
	// Code — машиночитаемый код в формате CATEGORY.SPECIFIC.
	Code string `json:"code"`

	// Message — человекочитаемое описание. Без секретов!
	Message string `json:"message"`

	// Cause — wrapped оригинальная ошибка.
	// Не сериализуется в JSON: может содержать чувствительные детали транспорта.
	Cause error `json:"-"`
}

// Error реализует интерфейс error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap возвращает wrapped ошибку для errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError создаёт AppError с заданным кодом, сообщением и причиной.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
