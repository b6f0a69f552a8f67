package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/darklaunch/internal/entity/comparison"
	"github.com/Kargones/darklaunch/internal/jsondiff"
	"github.com/Kargones/darklaunch/internal/pkg/logging"
)

func mismatchResult() *comparison.Result {
	r := comparison.NewResult(comparison.RequestInfo{
		Method:    "GET",
		Path:      "/api/items",
		Endpoint:  "/api/items",
		Timestamp: time.Now(),
	})
	r.Match = false
	r.Primary = &comparison.ResponseSummary{StatusCode: 200}
	r.Candidate = &comparison.ResponseSummary{StatusCode: 200}
	r.Differences = []jsondiff.Difference{
		{Path: "a", Primary: 1, Candidate: 2},
		{Path: "b", Primary: "x", Candidate: "y"},
		{Path: "c[0]", Primary: true, Candidate: false},
		{Path: "d", Primary: 1, Candidate: nil},
		{Path: "e", Primary: 1, Candidate: 2},
		{Path: "f", Primary: 1, Candidate: 2},
		{Path: "g", Primary: 1, Candidate: 2},
	}
	return r
}

// logLines разбирает JSON-строки журнала из буфера.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, raw := range bytes.Split(buf.Bytes(), []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		var line map[string]any
		require.NoError(t, json.Unmarshal(raw, &line))
		lines = append(lines, line)
	}
	return lines
}

func TestLogSink_MismatchLogsLimitedPaths(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(logging.Config{Level: logging.LevelDebug, Format: logging.FormatJSON}, &buf)

	s := NewLogSink(logger, 5)
	require.NoError(t, s.Deliver(context.Background(), mismatchResult()))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, float64(7), lines[0]["differences"])

	paths, ok := lines[0]["sample_paths"].([]any)
	require.True(t, ok)
	assert.Len(t, paths, 5, "в журнал попадает не больше пяти путей")
}

func TestLogSink_MatchLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(logging.Config{Level: logging.LevelDebug, Format: logging.FormatJSON}, &buf)

	r := mismatchResult()
	r.Match = true
	r.Differences = nil

	require.NoError(t, NewLogSink(logger, 0).Deliver(context.Background(), r))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "DEBUG", lines[0]["level"])
	assert.Equal(t, r.ID, lines[0]["comparison_id"])
}

func TestLogSink_CandidateErrorLogsError(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(logging.Config{Level: logging.LevelDebug, Format: logging.FormatJSON}, &buf)

	r := mismatchResult()
	r.Candidate = &comparison.ResponseSummary{Error: "connection refused"}

	require.NoError(t, NewLogSink(logger, 0).Deliver(context.Background(), r))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "connection refused", lines[0]["error"])
}

func TestLogSink_StreamDifferencePaths(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(logging.Config{Level: logging.LevelDebug, Format: logging.FormatJSON}, &buf)

	r := comparison.NewResult(comparison.RequestInfo{Method: "POST", Endpoint: "/api/chat"})
	r.Streaming = true
	r.PrimaryStream = &comparison.StreamSummary{}
	r.CandidateStream = &comparison.StreamSummary{}
	r.Stream = &comparison.StreamComparison{
		EventDifferences: []comparison.EventDifference{
			{Index: 1, Kind: comparison.EventDiffData, DataDiffs: []jsondiff.Difference{{Path: "delta"}}},
			{Index: 2, Kind: comparison.EventDiffMissingCandidate},
		},
	}

	require.NoError(t, NewLogSink(logger, 5).Deliver(context.Background(), r))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	paths, ok := lines[0]["sample_paths"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"delta", "events[2]:missing_candidate"}, paths)
}

// recordingSink запоминает доставленные результаты.
type recordingSink struct {
	name      string
	delivered []*comparison.Result
	err       error
	panicMsg  string
}

func (s *recordingSink) Deliver(_ context.Context, result *comparison.Result) error {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.delivered = append(s.delivered, result)
	return s.err
}

func (s *recordingSink) Name() string { return s.name }

func TestMultiSink_DeliversToAll(t *testing.T) {
	first := &recordingSink{name: "first"}
	second := &recordingSink{name: "second"}

	m := NewMultiSink(logging.NewNopLogger(), first, nil, second)
	r := mismatchResult()
	require.NoError(t, m.Deliver(context.Background(), r))

	require.Len(t, first.delivered, 1)
	require.Len(t, second.delivered, 1)
	assert.Same(t, r, first.delivered[0])
}

func TestMultiSink_ErrorDoesNotStopOthers(t *testing.T) {
	failing := &recordingSink{name: "failing", err: errors.New("store down")}
	healthy := &recordingSink{name: "healthy"}

	m := NewMultiSink(logging.NewNopLogger(), failing, healthy)
	require.NoError(t, m.Deliver(context.Background(), mismatchResult()))

	assert.Len(t, healthy.delivered, 1)
}

func TestMultiSink_PanicIsolated(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(logging.Config{Level: logging.LevelDebug, Format: logging.FormatJSON}, &buf)

	panicking := &recordingSink{name: "panicking", panicMsg: "boom"}
	healthy := &recordingSink{name: "healthy"}

	m := NewMultiSink(logger, panicking, healthy)
	require.NotPanics(t, func() {
		require.NoError(t, m.Deliver(context.Background(), mismatchResult()))
	})

	assert.Len(t, healthy.delivered, 1)

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "panicking", lines[0]["sink"])
	assert.Contains(t, lines[0]["error"], "boom")
}

func TestSinkFunc_Adapts(t *testing.T) {
	var got *comparison.Result
	f := SinkFunc(func(_ context.Context, result *comparison.Result) error {
		got = result
		return nil
	})

	r := mismatchResult()
	require.NoError(t, f.Deliver(context.Background(), r))
	assert.Same(t, r, got)
	assert.Equal(t, "func", f.Name())
}
