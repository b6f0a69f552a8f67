package forward

import (
	"bytes"
	"io"
	"net/http"

	"github.com/Kargones/darklaunch/internal/pkg/apperrors"
)

// ShadowRequest — снимок входящего запроса, достаточный для повторной
// отправки в candidate. Снимается до обслуживания primary: тело исходного
// запроса читается один раз и восстанавливается.
type ShadowRequest struct {
	// Method — HTTP-метод исходного запроса.
	Method string
	// RequestURI — путь с query исходного запроса.
	RequestURI string
	// Endpoint — шаблон endpoint-а, под который подошёл запрос.
	Endpoint string
	// Header — заголовки исходного запроса (фильтрация по allowlist
	// выполняется при отправке).
	Header http.Header
	// Body — тело исходного запроса.
	Body []byte
	// Streaming — ожидается потоковый (SSE) ответ.
	Streaming bool
}

// SnapshotRequest снимает копию запроса для теневой отправки.
// Тело читается целиком и подменяется в r свежим reader-ом, так что
// обработчик primary получает запрос нетронутым. maxBody <= 0 — без предела.
func SnapshotRequest(r *http.Request, maxBody int64) (*ShadowRequest, error) {
	snap := &ShadowRequest{
		Method:     r.Method,
		RequestURI: r.URL.RequestURI(),
		Header:     r.Header.Clone(),
	}

	if r.Body == nil || r.Body == http.NoBody {
		return snap, nil
	}

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		// +1 байт чтобы отличить "ровно предел" от "больше предела".
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrParseBody, "не удалось прочитать тело запроса", err)
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		// Тело не влезло в предел: затенение такого запроса невозможно
		// без искажения, запрос восстанавливается и пропускается.
		r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))
		return nil, apperrors.NewAppError(apperrors.ErrParseBody, "тело запроса превышает предел затенения", nil)
	}

	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	snap.Body = body
	return snap, nil
}
