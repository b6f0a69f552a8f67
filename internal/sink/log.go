package sink

import (
	"context"
	"strconv"

	"github.com/Kargones/darklaunch/internal/constants"
	"github.com/Kargones/darklaunch/internal/entity/comparison"
	"github.com/Kargones/darklaunch/internal/pkg/logging"
)

// LogSink пишет итог каждого сравнения одной строкой журнала.
// Для расхождений дополнительно выводится ограниченное число путей:
// полный результат при необходимости уходит в хранилище, журнал
// не раздувается мегабайтными телами.
type LogSink struct {
	logger  logging.Logger
	maxDiff int
}

// NewLogSink создаёт LogSink. maxDifferences <= 0 заменяется умолчанием.
func NewLogSink(logger logging.Logger, maxDifferences int) *LogSink {
	if maxDifferences <= 0 {
		maxDifferences = constants.DefaultMaxLoggedDifferences
	}
	return &LogSink{logger: logger, maxDiff: maxDifferences}
}

// Name возвращает имя синка.
func (s *LogSink) Name() string {
	return "log"
}

// Deliver журналирует результат. Совпадение — Debug, расхождение — Warn,
// сбой candidate — Error.
func (s *LogSink) Deliver(_ context.Context, result *comparison.Result) error {
	logger := s.logger.With(
		"comparison_id", result.ID,
		"method", result.Request.Method,
		"endpoint", result.Request.Endpoint,
		"streaming", result.Streaming,
	)

	if candErr := result.CandidateError(); candErr != "" {
		logger.Error("candidate недоступен для сравнения", "error", candErr)
		return nil
	}

	if result.Match {
		logger.Debug("ответы совпали")
		return nil
	}

	logger.Warn("расхождение ответов",
		"differences", result.DifferenceCount(),
		"sample_paths", s.samplePaths(result),
	)
	return nil
}

// samplePaths возвращает до maxDiff путей расхождений для журнала.
func (s *LogSink) samplePaths(result *comparison.Result) []string {
	paths := make([]string, 0, s.maxDiff)
	for _, d := range result.Differences {
		if len(paths) == s.maxDiff {
			return paths
		}
		paths = append(paths, d.Path)
	}
	if result.Stream != nil {
		for _, ed := range result.Stream.EventDifferences {
			if len(paths) == s.maxDiff {
				return paths
			}
			for _, d := range ed.DataDiffs {
				if len(paths) == s.maxDiff {
					return paths
				}
				paths = append(paths, d.Path)
			}
			if len(ed.DataDiffs) == 0 {
				paths = append(paths, "events["+strconv.Itoa(ed.Index)+"]:"+string(ed.Kind))
			}
		}
	}
	return paths
}
