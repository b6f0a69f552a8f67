package metrics

import (
	"net/url"
	"time"
)

// Config содержит настройки сбора и экспорта метрик.
type Config struct {
	// Enabled — включены ли метрики (по умолчанию true: теневой контур
	// без метрик почти бесполезен).
	Enabled bool

	// PushgatewayURL — URL Prometheus Pushgateway.
	// Пусто — push отключён, метрики доступны только через scrape.
	PushgatewayURL string

	// JobName — имя job для группировки метрик.
	// По умолчанию: "darklaunch"
	JobName string

	// Timeout — таймаут HTTP запросов к Pushgateway.
	// По умолчанию: 10 секунд.
	Timeout time.Duration

	// PushInterval — период фоновой отправки в Pushgateway.
	// 0 — фоновая отправка отключена.
	PushInterval time.Duration

	// InstanceLabel — переопределение instance label.
	// Если пусто — используется hostname.
	InstanceLabel string
}

// Validate проверяет корректность конфигурации.
// Возвращает ошибку если конфигурация невалидна.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil // отключённые метрики валидны
	}

	if c.PushgatewayURL != "" {
		u, err := url.Parse(c.PushgatewayURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ErrPushgatewayURLInvalid
		}
	}

	if c.JobName == "" {
		return ErrJobNameRequired
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.PushInterval < 0 {
		return ErrInvalidPushInterval
	}

	return nil
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		PushgatewayURL: "",
		JobName:        "darklaunch",
		Timeout:        10 * time.Second,
		PushInterval:   0,
		InstanceLabel:  "",
	}
}
