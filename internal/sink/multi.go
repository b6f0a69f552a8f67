package sink

import (
	"context"
	"fmt"

	"github.com/Kargones/darklaunch/internal/entity/comparison"
	"github.com/Kargones/darklaunch/internal/pkg/apperrors"
	"github.com/Kargones/darklaunch/internal/pkg/logging"
)

// MultiSink раздаёт результат нескольким синкам по порядку.
// Ошибка или паника одного синка журналируется и не прерывает доставку
// остальным: синки независимы друг от друга.
type MultiSink struct {
	sinks  []Sink
	logger logging.Logger
}

// NewMultiSink создаёт MultiSink. nil-синки отбрасываются.
func NewMultiSink(logger logging.Logger, sinks ...Sink) *MultiSink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MultiSink{sinks: kept, logger: logger}
}

// Name возвращает имя синка.
func (m *MultiSink) Name() string {
	return "multi"
}

// Deliver доставляет результат каждому синку. Возвращает nil всегда:
// частичные сбои уже зажурналированы, эскалировать их некому.
func (m *MultiSink) Deliver(ctx context.Context, result *comparison.Result) error {
	for _, s := range m.sinks {
		if err := m.deliverOne(ctx, s, result); err != nil {
			m.logger.Error("сбой доставки результата сравнения",
				"sink", s.Name(),
				"comparison_id", result.ID,
				"error", err.Error(),
			)
		}
	}
	return nil
}

// deliverOne вызывает один синк с перехватом паники.
func (m *MultiSink) deliverOne(ctx context.Context, s Sink, result *comparison.Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewAppError(apperrors.ErrSinkDeliver,
				"паника в синке", fmt.Errorf("panic: %v", r))
		}
	}()
	return s.Deliver(ctx, result)
}
