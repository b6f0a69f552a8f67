// Package forward отправляет теневые копии запросов в candidate-бэкенд
// и превращает его ответы в сводки для сравнения.
//
// Форвардер работает только в фоновом контуре: любые его сбои (отказ
// сети, таймаут, кривой ответ) превращаются в сводку с заполненным
// полем Error и никогда не влияют на обслуживание клиента.
package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/Kargones/darklaunch/internal/entity/comparison"
	"github.com/Kargones/darklaunch/internal/eventstream"
	"github.com/Kargones/darklaunch/internal/pkg/apperrors"
	"github.com/Kargones/darklaunch/internal/pkg/logging"
	"github.com/Kargones/darklaunch/internal/pkg/urlutil"
)

// HTTPClient — интерфейс HTTP-клиента для инъекции в тестах.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Forwarder отправляет теневые запросы в candidate.
type Forwarder struct {
	client HTTPClient
	config Config
	logger logging.Logger
}

// NewForwarder создаёт Forwarder со стандартным http.Client.
func NewForwarder(config Config, logger logging.Logger) (*Forwarder, error) {
	return NewForwarderWithClient(config, logger, &http.Client{Timeout: config.Timeout})
}

// NewForwarderWithClient создаёт Forwarder с указанным HTTP-клиентом.
// Используется в тестах для подмены транспорта.
func NewForwarderWithClient(config Config, logger logging.Logger, client HTTPClient) (*Forwarder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(config.HeaderAllowlist) == 0 {
		config.HeaderAllowlist = DefaultHeaderAllowlist()
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultConfig().MaxBodySize
	}
	return &Forwarder{client: client, config: config, logger: logger}, nil
}

// Forward отправляет теневой запрос и возвращает сводку плоского ответа.
// Ошибка не возвращается: сбой фиксируется в поле Error сводки,
// StatusCode при этом равен 0.
func (f *Forwarder) Forward(ctx context.Context, shadow *ShadowRequest) *comparison.ResponseSummary {
	start := time.Now()

	resp, err := f.send(ctx, shadow)
	if err != nil {
		return &comparison.ResponseSummary{
			Latency: time.Since(start),
			Error:   err.Error(),
		}
	}
	defer f.closeBody(resp)

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodySize))
	summary := &comparison.ResponseSummary{StatusCode: resp.StatusCode}
	if readErr != nil {
		summary.Latency = time.Since(start)
		summary.Error = apperrors.NewAppError(apperrors.ErrParseBody,
			"не удалось прочитать тело ответа candidate", readErr).Error()
		return summary
	}

	summary.Latency = time.Since(start)
	summary.Body = ParseBody(raw, resp.Header.Get("Content-Type"))
	return summary
}

// ForwardStream отправляет теневой запрос и читает потоковый (SSE) ответ
// до конца. Частично разобранные события сохраняются даже при обрыве потока.
func (f *Forwarder) ForwardStream(ctx context.Context, shadow *ShadowRequest) *comparison.StreamSummary {
	start := time.Now()

	resp, err := f.send(ctx, shadow)
	if err != nil {
		return &comparison.StreamSummary{
			TotalDuration: time.Since(start),
			Error:         err.Error(),
		}
	}
	defer f.closeBody(resp)

	events, parseErr := eventstream.ParseStream(ctx, resp.Body, start)

	summary := &comparison.StreamSummary{
		StatusCode:    resp.StatusCode,
		Events:        events,
		TotalDuration: time.Since(start),
	}
	if len(events) > 0 {
		summary.TimeToFirstEvent = time.Duration(events[0].OffsetMs) * time.Millisecond
	}
	if parseErr != nil {
		summary.Error = parseErr.Error()
		return summary
	}
	summary.Completed = summary.TerminalEvent() != nil
	return summary
}

// send строит и выполняет HTTP-запрос к candidate.
func (f *Forwarder) send(ctx context.Context, shadow *ShadowRequest) (*http.Response, error) {
	target := strings.TrimSuffix(f.config.CandidateBaseURL, "/") + shadow.RequestURI

	var body io.Reader
	if len(shadow.Body) > 0 {
		body = bytes.NewReader(shadow.Body)
	}

	req, err := http.NewRequestWithContext(ctx, shadow.Method, target, body)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrForwardRequest,
			"не удалось построить теневой запрос", err)
	}

	for _, name := range f.config.HeaderAllowlist {
		if values := shadow.Header.Values(name); len(values) > 0 {
			req.Header[http.CanonicalHeaderKey(name)] = values
		}
	}
	if shadow.Streaming && req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		code := apperrors.ErrForwardRequest
		msg := "теневой запрос не выполнен"
		if isTimeout(err) {
			code = apperrors.ErrForwardTimeout
			msg = "теневой запрос превысил таймаут"
		}
		f.logger.Warn("сбой теневого запроса",
			"method", shadow.Method,
			"endpoint", shadow.Endpoint,
			"candidate", urlutil.MaskURL(f.config.CandidateBaseURL),
			"error", err.Error(),
		)
		return nil, apperrors.NewAppError(code, msg, err)
	}
	return resp, nil
}

// closeBody дочитывает остаток тела перед закрытием для переиспользования
// соединения.
func (f *Forwarder) closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// isTimeout распознаёт таймаут и отмену дедлайна в ошибке транспорта.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ParseBody превращает тело плоского ответа в сравнимое значение:
// JSON разбирается в дерево, остальное остаётся строкой. Legacy-бэкенды
// отвечают в национальных кодировках — тело перекодируется в UTF-8
// по charset из Content-Type. Используется для обеих сторон сравнения:
// перехваченного ответа primary и ответа candidate.
func ParseBody(raw []byte, contentType string) any {
	decoded := decodeCharset(raw, contentType)

	var v any
	if err := json.Unmarshal(decoded, &v); err != nil {
		return string(decoded)
	}
	return v
}

// decodeCharset перекодирует тело в UTF-8 по параметру charset.
// Неизвестный charset и ошибки перекодирования оставляют тело как есть.
func decodeCharset(raw []byte, contentType string) []byte {
	if contentType == "" {
		return raw
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return raw
	}
	enc := encodingFor(params["charset"])
	if enc == nil {
		return raw
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return raw
	}
	return decoded
}

// encodingFor возвращает декодер для charset-ов legacy-бэкендов.
func encodingFor(charset string) encoding.Encoding {
	switch strings.ToLower(charset) {
	case "windows-1251", "cp1251":
		return charmap.Windows1251
	case "koi8-r":
		return charmap.KOI8R
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1
	default:
		return nil
	}
}
