package metrics

import "errors"

var (
	// ErrJobNameRequired возвращается если не указано имя job.
	ErrJobNameRequired = errors.New("job name is required")

	// ErrInvalidTimeout возвращается если указан невалидный таймаут.
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrInvalidPushInterval возвращается если указан отрицательный период отправки.
	ErrInvalidPushInterval = errors.New("push interval must not be negative")

	// ErrPushgatewayURLInvalid возвращается если URL Pushgateway имеет невалидный формат.
	ErrPushgatewayURLInvalid = errors.New("pushgateway URL has invalid format")
)
