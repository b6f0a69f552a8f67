package forward

import (
	"errors"
	"net/url"
	"time"
)

// Ошибки валидации конфигурации форвардера.
var (
	// ErrCandidateURLRequired — базовый URL candidate обязателен.
	ErrCandidateURLRequired = errors.New("forward: candidate base URL обязателен")

	// ErrCandidateURLInvalid — базовый URL имеет невалидный формат.
	ErrCandidateURLInvalid = errors.New("forward: candidate base URL должен быть валидным URL со схемой и host")

	// ErrTimeoutInvalid — таймаут должен быть положительным.
	ErrTimeoutInvalid = errors.New("forward: timeout должен быть положительным")
)

// Config содержит настройки отправки теневых запросов в candidate.
type Config struct {
	// CandidateBaseURL — базовый URL candidate-бэкенда.
	// Путь и query исходного запроса добавляются к нему.
	CandidateBaseURL string

	// Timeout — таймаут одного теневого запроса целиком,
	// включая чтение тела. Для потоковых ответов — таймаут потока.
	Timeout time.Duration

	// HeaderAllowlist — заголовки, пробрасываемые в candidate.
	// Остальные заголовки исходного запроса отбрасываются.
	HeaderAllowlist []string

	// MaxBodySize — предел чтения тела ответа candidate в байтах.
	MaxBodySize int64
}

// DefaultHeaderAllowlist — заголовки, пробрасываемые по умолчанию.
func DefaultHeaderAllowlist() []string {
	return []string{"Authorization", "Content-Type", "Accept", "X-Request-Id"}
}

// Validate проверяет корректность конфигурации.
func (c *Config) Validate() error {
	if c.CandidateBaseURL == "" {
		return ErrCandidateURLRequired
	}
	u, err := url.Parse(c.CandidateBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrCandidateURLInvalid
	}
	if c.Timeout <= 0 {
		return ErrTimeoutInvalid
	}
	return nil
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		HeaderAllowlist: DefaultHeaderAllowlist(),
		MaxBodySize:     4 << 20,
	}
}
