package comparator

import (
	"net/http"

	"github.com/Kargones/darklaunch/internal/capture"
	"github.com/Kargones/darklaunch/internal/forward"
	"github.com/Kargones/darklaunch/internal/pkg/logging"
	"github.com/Kargones/darklaunch/internal/pkg/tracing"
)

// Middleware встраивает теневой контур в цепочку HTTP-обработчиков.
// Решение о затенении принимается один раз до оборачивания перехватом:
// незатеняемый запрос проходит через next без какого-либо overhead-а.
type Middleware struct {
	matcher    *Matcher
	sampler    *Sampler
	comparator *Comparator
	logger     logging.Logger

	// captureLimit — предел буфера перехвата ответа primary.
	captureLimit int
	// requestBodyLimit — предел снимка тела входящего запроса.
	requestBodyLimit int64
}

// NewMiddleware создаёт Middleware. Пределы <= 0 заменяются умолчаниями.
func NewMiddleware(matcher *Matcher, sampler *Sampler, comp *Comparator, logger logging.Logger, captureLimit int, requestBodyLimit int64) *Middleware {
	if captureLimit <= 0 {
		captureLimit = capture.DefaultBodyLimit
	}
	if requestBodyLimit <= 0 {
		requestBodyLimit = 1 << 20
	}
	return &Middleware{
		matcher:          matcher,
		sampler:          sampler,
		comparator:       comp,
		logger:           logger,
		captureLimit:     captureLimit,
		requestBodyLimit: requestBodyLimit,
	}
}

// Wrap оборачивает обработчик primary теневым контуром.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint, ok := m.matcher.Match(r.Method, r.URL.Path)
		if !ok || !m.sampler.Sample(endpoint) {
			next.ServeHTTP(w, r)
			return
		}

		shadow, err := forward.SnapshotRequest(r, m.requestBodyLimit)
		if err != nil {
			// Снимок не удался — запрос обслуживается без затенения.
			m.logger.Debug("затенение пропущено: снимок запроса не удался",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err.Error(),
			)
			next.ServeHTTP(w, r)
			return
		}
		shadow.Endpoint = endpoint.Path
		shadow.Streaming = endpoint.Streaming
		if endpoint.CandidatePath != "" {
			shadow.RequestURI = endpoint.CandidatePath
			if r.URL.RawQuery != "" {
				shadow.RequestURI += "?" + r.URL.RawQuery
			}
		}

		traceID := tracing.GenerateTraceID()

		var tee *capture.TeeWriter
		if endpoint.Streaming {
			tee = capture.NewStreamingTeeWriter(w, m.captureLimit)
		} else {
			tee = capture.NewTeeWriter(w, m.captureLimit)
		}

		next.ServeHTTP(tee, r)

		m.comparator.Launch(shadow, tee.Finish(), endpoint, traceID)
	})
}
