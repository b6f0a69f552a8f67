// Package mssqlsink сохраняет результаты теневых сравнений в Microsoft
// SQL Server. Используется когда журнала недостаточно: накопленная
// таблица результатов позволяет анализировать расхождения за период
// обычными SQL-запросами.
package mssqlsink

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	// blank import для драйвера SQL Server
	_ "github.com/denisenkom/go-mssqldb"

	"github.com/Kargones/darklaunch/internal/entity/comparison"
	"github.com/Kargones/darklaunch/internal/sink"
)

// Коды ошибок для операций хранилища результатов.
const (
	// ErrStoreConnect — ошибка подключения к серверу MSSQL
	ErrStoreConnect = "MSSQL.CONNECT_FAILED"
	// ErrStoreInsert — ошибка записи результата сравнения
	ErrStoreInsert = "MSSQL.INSERT_FAILED"
	// ErrStoreTimeout — превышено время ожидания операции
	ErrStoreTimeout = "MSSQL.TIMEOUT"
)

// Compile-time проверка реализации интерфейса
var _ sink.Sink = (*Store)(nil)

// Options содержит параметры подключения к SQL Server.
type Options struct {
	// Server — адрес сервера MSSQL
	Server string
	// Port — порт сервера (по умолчанию 1433)
	Port int
	// User — имя пользователя
	User string
	// Password — пароль пользователя
	Password string
	// Database — имя базы данных с таблицей результатов
	Database string
	// Table — имя таблицы результатов (по умолчанию ComparisonResults)
	Table string
	// Timeout — таймаут операций записи
	Timeout time.Duration
	// Encrypt — использовать TLS шифрование
	Encrypt bool
}

// Store — хранилище результатов сравнения в MSSQL.
type Store struct {
	db   *sql.DB
	opts Options
}

// NewStore создаёт Store с указанными параметрами.
// Подключение устанавливается отложенно через Connect().
func NewStore(opts Options) (*Store, error) {
	if opts.Server == "" {
		return nil, fmt.Errorf("%s: server is required", ErrStoreConnect)
	}
	if opts.Port == 0 {
		opts.Port = 1433
	}
	if opts.Port < 1 || opts.Port > 65535 {
		return nil, fmt.Errorf("%s: invalid port %d, must be between 1 and 65535", ErrStoreConnect, opts.Port)
	}
	if opts.Database == "" {
		return nil, fmt.Errorf("%s: database is required", ErrStoreConnect)
	}
	if opts.Table == "" {
		opts.Table = "ComparisonResults"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Store{opts: opts}, nil
}

// NewStoreWithDB создаёт Store поверх готового подключения.
// Используется в тестах с sqlmock.
func NewStoreWithDB(db *sql.DB, opts Options) *Store {
	if opts.Table == "" {
		opts.Table = "ComparisonResults"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Store{db: db, opts: opts}
}

// Connect устанавливает соединение с сервером MSSQL.
func (s *Store) Connect(ctx context.Context) error {
	encryptMode := "true"
	if !s.opts.Encrypt {
		encryptMode = "disable"
	}

	// Экранируем параметры для защиты от инъекций в connection string.
	connString := fmt.Sprintf(
		"server=%s;user id=%s;password=%s;port=%d;database=%s;encrypt=%s;connection timeout=%d",
		escapeConnStringParam(s.opts.Server),
		escapeConnStringParam(s.opts.User),
		escapeConnStringParam(s.opts.Password),
		s.opts.Port,
		escapeConnStringParam(s.opts.Database),
		encryptMode,
		int(s.opts.Timeout.Seconds()),
	)

	db, err := sql.Open("sqlserver", connString)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrStoreConnect, err)
	}

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			// best-effort close; original error is more important
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: context cancelled during ping: %w", ErrStoreConnect, ctx.Err())
		}
		return fmt.Errorf("%s: ping failed: %w", ErrStoreConnect, err)
	}

	s.db = db
	return nil
}

// Close закрывает соединение с сервером.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Ping проверяет доступность сервера.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("%s: connection not established", ErrStoreConnect)
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrStoreConnect, err)
	}
	return nil
}

// Name возвращает имя синка.
func (s *Store) Name() string {
	return "mssql"
}

// Deliver сохраняет результат сравнения одной строкой таблицы.
// Полный результат кладётся в колонку ResultJson: схема результата
// эволюционирует быстрее, чем хочется мигрировать таблицу.
func (s *Store) Deliver(ctx context.Context, result *comparison.Result) error {
	if s.db == nil {
		return fmt.Errorf("%s: connection not established", ErrStoreInsert)
	}

	payload, err := result.ToJSON()
	if err != nil {
		return fmt.Errorf("%s: serialization failed: %w", ErrStoreInsert, err)
	}

	execCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	// Имя таблицы — compile-time умолчание либо значение из конфигурации
	// оператора; пользовательский ввод сюда не попадает.
	query := fmt.Sprintf(`
	INSERT INTO %s
		(ComparisonId, RequestMethod, Endpoint, IsStreaming, IsMatch, DifferenceCount, CandidateError, ResultJson, RecordedAt)
	VALUES
		(@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9);
	`, s.opts.Table)

	_, err = s.db.ExecContext(execCtx, query,
		result.ID,
		result.Request.Method,
		result.Request.Endpoint,
		result.Streaming,
		result.Match,
		result.DifferenceCount(),
		result.CandidateError(),
		string(payload),
		result.Request.Timestamp,
	)
	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s: insert timed out after %v", ErrStoreTimeout, s.opts.Timeout)
		}
		return fmt.Errorf("%s: %w", ErrStoreInsert, err)
	}
	return nil
}

// escapeConnStringParam экранирует параметр для безопасного использования
// в connection string: ; и = имеют в DSN особое значение.
func escapeConnStringParam(s string) string {
	return url.QueryEscape(s)
}
