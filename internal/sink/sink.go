// Package sink доставляет результаты теневых сравнений потребителям:
// в журнал, во внешнее хранилище, в пользовательские обработчики.
//
// Синки работают в фоновом контуре доставки. Ошибка или паника одного
// синка изолируется и не мешает остальным.
package sink

import (
	"context"

	"github.com/Kargones/darklaunch/internal/entity/comparison"
)

// Sink — потребитель результатов сравнения.
type Sink interface {
	// Deliver передаёт результат потребителю. Вызывается последовательно
	// из горутины доставки; результат после вызова не модифицируется.
	Deliver(ctx context.Context, result *comparison.Result) error

	// Name возвращает имя синка для журналирования сбоев доставки.
	Name() string
}

// SinkFunc адаптирует функцию к интерфейсу Sink.
type SinkFunc func(ctx context.Context, result *comparison.Result) error

// Deliver вызывает функцию.
func (f SinkFunc) Deliver(ctx context.Context, result *comparison.Result) error {
	return f(ctx, result)
}

// Name возвращает имя адаптера.
func (f SinkFunc) Name() string {
	return "func"
}
