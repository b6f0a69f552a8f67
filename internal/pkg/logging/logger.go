// Package logging предоставляет интерфейс и реализации структурированного логирования
// для darklaunch. Логи пишутся только в stderr или файл: stdout зарезервирован
// за прокси-трафиком и диагностическим выводом.
package logging

// Logger определяет интерфейс структурированного логирования.
// Реализации: SlogAdapter (slog из stdlib) и NopLogger (тесты).
//
// Все методы принимают сообщение и опциональные key-value пары:
//
//	logger.Info("сравнение завершено", "endpoint", ep, "match", true)
type Logger interface {
	// Debug записывает сообщение уровня DEBUG (детальная диагностика).
	Debug(msg string, args ...any)

	// Info записывает сообщение уровня INFO (значимые события).
	Info(msg string, args ...any)

	// Warn записывает сообщение уровня WARN (recoverable issues).
	Warn(msg string, args ...any)

	// Error записывает сообщение уровня ERROR.
	Error(msg string, args ...any)

	// With возвращает новый Logger с добавленными атрибутами,
	// включаемыми во все последующие записи.
	With(args ...any) Logger
}
