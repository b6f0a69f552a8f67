// Package constants содержит константы, используемые в проекте darklaunch.
// Константы сгруппированы по функциональному назначению.
package constants

// Version - версия приложения.
const Version = "0.3.0"

// Имена переменных окружения.
// Префикс DL_ отделяет настройки darklaunch от настроек хост-окружения.
const (
	// EnvEnabled - глобальный флаг включения теневого сравнения.
	EnvEnabled = "DL_SHADOW_ENABLED"
	// EnvSampleRate - доля запросов для теневого сравнения (0..1).
	EnvSampleRate = "DL_SAMPLE_RATE"
	// EnvCandidateURL - базовый URL candidate-сервиса.
	EnvCandidateURL = "DL_CANDIDATE_BASE_URL"
	// EnvPrimaryURL - базовый URL primary-сервиса (для reverse proxy в cmd/darklaunch).
	EnvPrimaryURL = "DL_PRIMARY_BASE_URL"
	// EnvEndpointsFile - путь к YAML файлу с описанием endpoint-ов.
	EnvEndpointsFile = "DL_ENDPOINTS_FILE"
	// EnvLogLevel - уровень логирования (debug, info, warn, error).
	EnvLogLevel = "DL_LOG_LEVEL"
	// EnvListenAddr - адрес HTTP listener-а прокси.
	EnvListenAddr = "DL_LISTEN_ADDR"
)

// Значения по умолчанию для теневого сравнения.
const (
	// DefaultSampleRate - доля запросов для сравнения по умолчанию.
	DefaultSampleRate = 0.1
	// DefaultListenAddr - адрес listener-а по умолчанию.
	DefaultListenAddr = ":8080"
	// DefaultResultQueueSize - ёмкость очереди результатов между задачами
	// сравнения и диспетчером sink-ов.
	DefaultResultQueueSize = 256
	// DefaultMaxLoggedDifferences - число расхождений в однострочном отчёте LogSink.
	DefaultMaxLoggedDifferences = 5
)

// SentinelEventType - тип события по умолчанию, когда поток
// не указал строку "event:" перед "data:".
const SentinelEventType = "message"

// TerminalEventTypes - типы событий, завершающие поток.
// Поток, оборванный без одного из них, считается незавершённым (completed=false).
var TerminalEventTypes = map[string]bool{
	"complete": true,
	"error":    true,
}
