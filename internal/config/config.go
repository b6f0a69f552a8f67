// Package config содержит конфигурацию приложения darklaunch.
//
// Конфигурация собирается из YAML-файла и переменных окружения
// через cleanenv; переменные окружения (префикс DL_) переопределяют
// значения из файла. Пакет только описывает и валидирует настройки,
// преобразование в конфигурации подсистем выполняют методы-мапперы.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Kargones/darklaunch/internal/comparator"
	"github.com/Kargones/darklaunch/internal/constants"
	"github.com/Kargones/darklaunch/internal/forward"
	"github.com/Kargones/darklaunch/internal/pkg/logging"
	"github.com/Kargones/darklaunch/internal/pkg/metrics"
	"github.com/Kargones/darklaunch/internal/pkg/tracing"
	"github.com/Kargones/darklaunch/internal/sink/mssqlsink"
)

var (
	// ErrCandidateURLRequired возвращается когда затенение включено,
	// но candidate URL не задан.
	ErrCandidateURLRequired = errors.New("config: DL_CANDIDATE_BASE_URL обязателен когда затенение включено")

	// ErrPrimaryURLRequired возвращается когда primary URL не задан.
	ErrPrimaryURLRequired = errors.New("config: DL_PRIMARY_BASE_URL обязателен")

	// ErrSampleRateInvalid возвращается при доле затенения вне [0, 1].
	ErrSampleRateInvalid = errors.New("config: DL_SAMPLE_RATE должен быть от 0.0 до 1.0")

	// ErrListenAddrRequired возвращается при пустом адресе listener-а.
	ErrListenAddrRequired = errors.New("config: DL_LISTEN_ADDR не может быть пустым")
)

// Config — полная конфигурация darklaunch.
type Config struct {
	// Enabled — глобальный флаг теневого сравнения. При false прокси
	// работает как прозрачный reverse proxy без затенения.
	Enabled bool `yaml:"enabled" env:"DL_SHADOW_ENABLED" env-default:"true"`

	// SampleRate — глобальная доля затеняемых запросов (0..1).
	// Endpoint может переопределить её в файле endpoint-ов.
	SampleRate float64 `yaml:"sampleRate" env:"DL_SAMPLE_RATE" env-default:"0.1"`

	// CandidateBaseURL — базовый URL candidate-сервиса.
	CandidateBaseURL string `yaml:"candidateBaseUrl" env:"DL_CANDIDATE_BASE_URL"`

	// PrimaryBaseURL — базовый URL primary-сервиса, на который
	// проксируются клиентские запросы.
	PrimaryBaseURL string `yaml:"primaryBaseUrl" env:"DL_PRIMARY_BASE_URL"`

	// EndpointsFile — путь к YAML-файлу с описанием endpoint-ов.
	// Пустой путь — ни один endpoint не затеняется.
	EndpointsFile string `yaml:"endpointsFile" env:"DL_ENDPOINTS_FILE"`

	// ListenAddr — адрес HTTP listener-а прокси.
	ListenAddr string `yaml:"listenAddr" env:"DL_LISTEN_ADDR" env-default:":8080"`

	// ForwardTimeout — таймаут теневого запроса к candidate.
	ForwardTimeout time.Duration `yaml:"forwardTimeout" env:"DL_FORWARD_TIMEOUT" env-default:"30s"`

	// MaxBodySize — предел размера тела (запроса и перехваченного
	// ответа) в байтах.
	MaxBodySize int64 `yaml:"maxBodySize" env:"DL_MAX_BODY_SIZE" env-default:"4194304"`

	// MaxConcurrent — предел одновременных фоновых сравнений.
	MaxConcurrent int `yaml:"maxConcurrent" env:"DL_MAX_CONCURRENT" env-default:"16"`

	// QueueSize — ёмкость очереди доставки результатов в синки.
	QueueSize int `yaml:"queueSize" env:"DL_QUEUE_SIZE" env-default:"256"`

	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	MSSQL   MSSQLConfig   `yaml:"mssql"`
}

// LoggingConfig содержит настройки логирования.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"DL_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"DL_LOG_FORMAT" env-default:"json"`

	// Output — stderr или file (ротация через lumberjack).
	Output     string `yaml:"output" env:"DL_LOG_OUTPUT" env-default:"stderr"`
	FilePath   string `yaml:"filePath" env:"DL_LOG_FILE_PATH"`
	MaxSize    int    `yaml:"maxSize" env:"DL_LOG_MAX_SIZE"`
	MaxBackups int    `yaml:"maxBackups" env:"DL_LOG_MAX_BACKUPS"`
	MaxAge     int    `yaml:"maxAge" env:"DL_LOG_MAX_AGE"`
	Compress   bool   `yaml:"compress" env:"DL_LOG_COMPRESS" env-default:"true"`
}

// MetricsConfig содержит настройки Prometheus метрик.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"DL_METRICS_ENABLED" env-default:"true"`

	// PushgatewayURL — необязательный Pushgateway; метрики всегда
	// доступны и на /metrics самого прокси.
	PushgatewayURL string        `yaml:"pushgatewayUrl" env:"DL_METRICS_PUSHGATEWAY_URL"`
	JobName        string        `yaml:"jobName" env:"DL_METRICS_JOB_NAME" env-default:"darklaunch"`
	Timeout        time.Duration `yaml:"timeout" env:"DL_METRICS_TIMEOUT" env-default:"10s"`
	PushInterval   time.Duration `yaml:"pushInterval" env:"DL_METRICS_PUSH_INTERVAL"`
	InstanceLabel  string        `yaml:"instanceLabel" env:"DL_METRICS_INSTANCE"`
}

// TracingConfig содержит настройки OpenTelemetry трейсинга.
type TracingConfig struct {
	Enabled      bool          `yaml:"enabled" env:"DL_TRACING_ENABLED" env-default:"false"`
	Endpoint     string        `yaml:"endpoint" env:"DL_TRACING_ENDPOINT"`
	ServiceName  string        `yaml:"serviceName" env:"DL_TRACING_SERVICE_NAME" env-default:"darklaunch"`
	Environment  string        `yaml:"environment" env:"DL_TRACING_ENVIRONMENT" env-default:"production"`
	Insecure     bool          `yaml:"insecure" env:"DL_TRACING_INSECURE" env-default:"false"`
	Timeout      time.Duration `yaml:"timeout" env:"DL_TRACING_TIMEOUT" env-default:"10s"`
	SamplingRate float64       `yaml:"samplingRate" env:"DL_TRACING_SAMPLING_RATE" env-default:"1.0"`
}

// MSSQLConfig содержит настройки MSSQL-синка результатов.
// Синк необязателен: при Enabled=false результаты идут только в лог.
type MSSQLConfig struct {
	Enabled  bool          `yaml:"enabled" env:"DL_MSSQL_ENABLED" env-default:"false"`
	Server   string        `yaml:"server" env:"DL_MSSQL_SERVER"`
	Port     int           `yaml:"port" env:"DL_MSSQL_PORT" env-default:"1433"`
	User     string        `yaml:"user" env:"DL_MSSQL_USER"`
	Password string        `yaml:"password" env:"DL_MSSQL_PASSWORD"`
	Database string        `yaml:"database" env:"DL_MSSQL_DATABASE"`
	Table    string        `yaml:"table" env:"DL_MSSQL_TABLE" env-default:"ComparisonResults"`
	Timeout  time.Duration `yaml:"timeout" env:"DL_MSSQL_TIMEOUT" env-default:"10s"`
	Encrypt  bool          `yaml:"encrypt" env:"DL_MSSQL_ENCRYPT" env-default:"false"`
}

// Load читает конфигурацию из файла path (если задан и существует)
// и переменных окружения, затем валидирует её.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: файл конфигурации недоступен: %w", err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: не удалось прочитать %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: не удалось прочитать переменные окружения: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность конфигурации.
func (c *Config) Validate() error {
	if c.PrimaryBaseURL == "" {
		return ErrPrimaryURLRequired
	}
	if c.ListenAddr == "" {
		return ErrListenAddrRequired
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return ErrSampleRateInvalid
	}
	if c.Enabled {
		if c.CandidateBaseURL == "" {
			return ErrCandidateURLRequired
		}
		forwardCfg := c.ForwardConfig()
		if err := forwardCfg.Validate(); err != nil {
			return err
		}
	}
	metricsCfg := c.MetricsConfig()
	if err := metricsCfg.Validate(); err != nil {
		return err
	}
	tracingCfg := c.TracingConfig()
	if err := tracingCfg.Validate(); err != nil {
		return err
	}
	return nil
}

// LoggingConfig преобразует настройки в конфигурацию пакета logging.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if c.Logging.Level != "" {
		cfg.Level = c.Logging.Level
	}
	if c.Logging.Format != "" {
		cfg.Format = c.Logging.Format
	}
	if c.Logging.Output != "" {
		cfg.Output = c.Logging.Output
	}
	if c.Logging.FilePath != "" {
		cfg.FilePath = c.Logging.FilePath
	}
	if c.Logging.MaxSize > 0 {
		cfg.MaxSize = c.Logging.MaxSize
	}
	if c.Logging.MaxBackups > 0 {
		cfg.MaxBackups = c.Logging.MaxBackups
	}
	if c.Logging.MaxAge > 0 {
		cfg.MaxAge = c.Logging.MaxAge
	}
	cfg.Compress = c.Logging.Compress
	return cfg
}

// MetricsConfig преобразует настройки в конфигурацию пакета metrics.
func (c *Config) MetricsConfig() metrics.Config {
	return metrics.Config{
		Enabled:        c.Metrics.Enabled,
		PushgatewayURL: c.Metrics.PushgatewayURL,
		JobName:        c.Metrics.JobName,
		Timeout:        c.Metrics.Timeout,
		PushInterval:   c.Metrics.PushInterval,
		InstanceLabel:  c.Metrics.InstanceLabel,
	}
}

// TracingConfig преобразует настройки в конфигурацию пакета tracing.
func (c *Config) TracingConfig() tracing.Config {
	return tracing.Config{
		Enabled:      c.Tracing.Enabled,
		Endpoint:     c.Tracing.Endpoint,
		ServiceName:  c.Tracing.ServiceName,
		Version:      constants.Version,
		Environment:  c.Tracing.Environment,
		Insecure:     c.Tracing.Insecure,
		Timeout:      c.Tracing.Timeout,
		SamplingRate: c.Tracing.SamplingRate,
	}
}

// ForwardConfig преобразует настройки в конфигурацию пакета forward.
func (c *Config) ForwardConfig() forward.Config {
	cfg := forward.DefaultConfig()
	cfg.CandidateBaseURL = c.CandidateBaseURL
	if c.ForwardTimeout > 0 {
		cfg.Timeout = c.ForwardTimeout
	}
	if c.MaxBodySize > 0 {
		cfg.MaxBodySize = c.MaxBodySize
	}
	return cfg
}

// ComparatorConfig преобразует настройки в конфигурацию оркестратора.
// Глобальные игнорируемые пути добавляются из файла endpoint-ов.
func (c *Config) ComparatorConfig(ignoredPaths []string) comparator.Config {
	cfg := comparator.DefaultConfig()
	if c.MaxConcurrent > 0 {
		cfg.MaxConcurrent = c.MaxConcurrent
	}
	if c.QueueSize > 0 {
		cfg.QueueSize = c.QueueSize
	}
	cfg.IgnoredPaths = ignoredPaths
	return cfg
}

// MSSQLOptions преобразует настройки в опции MSSQL-синка.
// Второе значение false когда синк выключен.
func (c *Config) MSSQLOptions() (mssqlsink.Options, bool) {
	if !c.MSSQL.Enabled {
		return mssqlsink.Options{}, false
	}
	return mssqlsink.Options{
		Server:   c.MSSQL.Server,
		Port:     c.MSSQL.Port,
		User:     c.MSSQL.User,
		Password: c.MSSQL.Password,
		Database: c.MSSQL.Database,
		Table:    c.MSSQL.Table,
		Timeout:  c.MSSQL.Timeout,
		Encrypt:  c.MSSQL.Encrypt,
	}, true
}
