package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/darklaunch/internal/pkg/logging"
)

func newTestCollector(t *testing.T) *PrometheusCollector {
	t.Helper()
	collector, err := NewPrometheusCollector(Config{
		Enabled: true,
		JobName: "test-job",
		Timeout: 10 * time.Second,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	return collector
}

// TestPrometheusCollector_RecordComparison проверяет регистрацию и запись метрик.
func TestPrometheusCollector_RecordComparison(t *testing.T) {
	collector := newTestCollector(t)

	collector.RecordComparison(flatResult("GET", "/api/items", true, 100*time.Millisecond, 150*time.Millisecond))
	collector.RecordComparison(errorResult("POST", "/api/items"))

	metrics, err := collector.GetRegistry().Gather()
	require.NoError(t, err)

	found := make(map[string]bool)
	for _, m := range metrics {
		found[m.GetName()] = true
	}

	assert.True(t, found["darklaunch_comparison_total"], "должен быть counter сравнений")
	assert.True(t, found["darklaunch_response_latency_seconds"], "должен быть histogram длительностей")

	stats := collector.Snapshot()
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Matches)
	assert.Equal(t, int64(1), stats.CandidateErrors)
}

// TestPrometheusCollector_Handler проверяет scrape-эндпоинт.
func TestPrometheusCollector_Handler(t *testing.T) {
	collector := newTestCollector(t)
	collector.RecordComparison(flatResult("GET", "/api/items", true, time.Millisecond, time.Millisecond))
	collector.RecordDropped()

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "darklaunch_comparison_total")
	assert.Contains(t, string(body), "darklaunch_dropped_results_total 1")
}

// TestPrometheusCollector_Push проверяет отправку метрик.
func TestPrometheusCollector_Push(t *testing.T) {
	var receivedMethod string
	var receivedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedMethod = r.Method
		receivedPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	config := Config{
		Enabled:        true,
		PushgatewayURL: server.URL,
		JobName:        "darklaunch",
		Timeout:        10 * time.Second,
	}

	collector, err := NewPrometheusCollector(config, logging.NewNopLogger())
	require.NoError(t, err)

	collector.RecordComparison(flatResult("GET", "/api/items", true, time.Millisecond, time.Millisecond))

	err = collector.Push(context.Background())
	assert.NoError(t, err)

	// Prometheus Pushgateway использует PUT для push операций
	assert.Equal(t, http.MethodPut, receivedMethod)
	assert.Contains(t, receivedPath, "/metrics/job/darklaunch")
}

// TestPrometheusCollector_PushErrorReturnsNil проверяет что сбой доставки
// метрик не превращается в ошибку вызывающей стороны.
func TestPrometheusCollector_PushErrorReturnsNil(t *testing.T) {
	config := Config{
		Enabled:        true,
		PushgatewayURL: "http://127.0.0.1:1", // заведомо недоступен
		JobName:        "darklaunch",
		Timeout:        500 * time.Millisecond,
	}
	collector, err := NewPrometheusCollector(config, logging.NewNopLogger())
	require.NoError(t, err)

	assert.NoError(t, collector.Push(context.Background()))
}

// TestNewCollector_Disabled проверяет выбор NopCollector.
func TestNewCollector_Disabled(t *testing.T) {
	collector, err := NewCollector(Config{Enabled: false}, logging.NewNopLogger())
	require.NoError(t, err)

	_, isNop := collector.(*NopCollector)
	assert.True(t, isNop, "при disabled должен быть NopCollector")
}

func TestNopCollector_HandlerReturns404(t *testing.T) {
	rec := httptest.NewRecorder()
	NewNopCollector().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "отключённые метрики валидны",
			config:  Config{Enabled: false},
			wantErr: nil,
		},
		{
			name: "включённые без pushgateway валидны",
			config: Config{
				Enabled: true,
				JobName: "darklaunch",
				Timeout: time.Second,
			},
			wantErr: nil,
		},
		{
			name: "невалидный URL",
			config: Config{
				Enabled:        true,
				PushgatewayURL: "not a url",
				JobName:        "darklaunch",
				Timeout:        time.Second,
			},
			wantErr: ErrPushgatewayURLInvalid,
		},
		{
			name: "пустое имя job",
			config: Config{
				Enabled: true,
				Timeout: time.Second,
			},
			wantErr: ErrJobNameRequired,
		},
		{
			name: "нулевой таймаут",
			config: Config{
				Enabled: true,
				JobName: "darklaunch",
			},
			wantErr: ErrInvalidTimeout,
		},
		{
			name: "отрицательный интервал отправки",
			config: Config{
				Enabled:      true,
				JobName:      "darklaunch",
				Timeout:      time.Second,
				PushInterval: -time.Second,
			},
			wantErr: ErrInvalidPushInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "normal", sanitizeLabel("normal"))
	assert.Equal(t, "with_newline", sanitizeLabel("with\nnewline"))

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, sanitizeLabel(string(long)), maxLabelLength)
}
