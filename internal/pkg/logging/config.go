package logging

// Форматы вывода логов.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Уровни логирования.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Типы вывода логов.
const (
	OutputStderr = "stderr"
	OutputFile   = "file"
)

// Значения по умолчанию для Config.
const (
	DefaultLevel      = LevelInfo
	DefaultFormat     = FormatJSON
	DefaultOutput     = OutputStderr
	DefaultFilePath   = "/var/log/darklaunch.log"
	DefaultMaxSize    = 100 // MB
	DefaultMaxBackups = 3
	DefaultMaxAge     = 7 // дней
	DefaultCompress   = true
)

// Config содержит настройки логирования.
type Config struct {
	// Level — минимальный уровень логирования: debug, info, warn, error.
	Level string

	// Format — формат вывода: json или text.
	// По умолчанию json: darklaunch — долгоживущий сервис, логи идут в коллектор.
	Format string

	// Output — куда писать: stderr или file.
	Output string

	// FilePath — путь к файлу логов при Output=file.
	FilePath string

	// MaxSize — размер файла в мегабайтах до ротации.
	MaxSize int

	// MaxBackups — количество backup файлов.
	MaxBackups int

	// MaxAge — возраст backup файлов в днях.
	MaxAge int

	// Compress — сжимать ли backup файлы в gzip.
	Compress bool
}

// DefaultConfig возвращает Config со значениями по умолчанию.
func DefaultConfig() Config {
	return Config{
		Level:      DefaultLevel,
		Format:     DefaultFormat,
		Output:     DefaultOutput,
		FilePath:   DefaultFilePath,
		MaxSize:    DefaultMaxSize,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAge,
		Compress:   DefaultCompress,
	}
}
