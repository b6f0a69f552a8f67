package eventstream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/darklaunch/internal/pkg/apperrors"
)

const sampleStream = "event: start\n" +
	"data: {\"id\": 1}\n" +
	"\n" +
	"data: {\"delta\": \"a\"}\n" +
	"\n" +
	"event: complete\n" +
	"data: {\"total\": 2}\n" +
	"\n"

func feedAll(p *Parser, stream string, chunkSize int) {
	data := []byte(stream)
	for len(data) > 0 {
		n := chunkSize
		if n > len(data) {
			n = len(data)
		}
		p.Feed(data[:n])
		data = data[n:]
	}
	p.Close()
}

func TestParser_BasicStream(t *testing.T) {
	p := NewParser(time.Time{})
	feedAll(p, sampleStream, len(sampleStream))

	events := p.Events()
	require.Len(t, events, 3)

	assert.Equal(t, "start", events[0].Type)
	assert.Equal(t, map[string]any{"id": float64(1)}, events[0].Data)

	// Без строки "event:" тип — сентинел "message".
	assert.Equal(t, "message", events[1].Type)
	assert.Equal(t, map[string]any{"delta": "a"}, events[1].Data)

	assert.Equal(t, "complete", events[2].Type)
	assert.True(t, events[2].IsTerminal())
}

func TestParser_ChunkBoundaryInvariance(t *testing.T) {
	reference := NewParser(time.Time{})
	feedAll(reference, sampleStream, len(sampleStream))

	for _, chunkSize := range []int{1, 2, 3, 7, 16} {
		p := NewParser(time.Time{})
		feedAll(p, sampleStream, chunkSize)

		require.Len(t, p.Events(), len(reference.Events()), "chunkSize=%d", chunkSize)
		for i, e := range p.Events() {
			assert.Equal(t, reference.Events()[i].Type, e.Type, "chunkSize=%d", chunkSize)
			assert.Equal(t, reference.Events()[i].Data, e.Data, "chunkSize=%d", chunkSize)
		}
	}
}

func TestParser_NonJSONDataFallsBackToRawString(t *testing.T) {
	p := NewParser(time.Time{})
	feedAll(p, "data: not json at all\n\n", 5)

	events := p.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "not json at all", events[0].Data)
	assert.Equal(t, "not json at all", events[0].Raw)
}

func TestParser_PendingTypeResetsBetweenEvents(t *testing.T) {
	stream := "event: custom\ndata: 1\n\ndata: 2\n\n"
	p := NewParser(time.Time{})
	feedAll(p, stream, len(stream))

	events := p.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "custom", events[0].Type)
	assert.Equal(t, "message", events[1].Type)
}

func TestParser_EventWithoutDataIsDropped(t *testing.T) {
	stream := "event: ping\n"
	p := NewParser(time.Time{})
	feedAll(p, stream, len(stream))

	assert.Empty(t, p.Events())
}

// TestParser_EachDataLineIsOneEvent: строка "data:" фиксирует событие
// немедленно; вторая подряд строка "data:" — отдельное событие
// с сентинельным типом, а не продолжение первого.
func TestParser_EachDataLineIsOneEvent(t *testing.T) {
	stream := "event: a\ndata: 1\ndata: 2\n\n"
	p := NewParser(time.Time{})
	feedAll(p, stream, len(stream))

	events := p.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Type)
	assert.Equal(t, float64(1), events[0].Data)
	assert.Equal(t, "message", events[1].Type)
	assert.Equal(t, float64(2), events[1].Data)
}

func TestParser_MultilineData(t *testing.T) {
	stream := "data: line one\ndata: line two\n\n"
	p := NewParser(time.Time{})
	feedAll(p, stream, len(stream))

	events := p.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "line one", events[0].Data)
	assert.Equal(t, "line two", events[1].Data)
}

func TestParser_CRLFLines(t *testing.T) {
	stream := "event: start\r\ndata: {\"a\": 1}\r\n\r\n"
	p := NewParser(time.Time{})
	feedAll(p, stream, len(stream))

	events := p.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "start", events[0].Type)
	assert.Equal(t, map[string]any{"a": float64(1)}, events[0].Data)
}

func TestParser_CloseFlushesTrailingEvent(t *testing.T) {
	// Последнее событие без завершающей пустой строки.
	stream := "event: complete\ndata: {\"done\": true}"
	p := NewParser(time.Time{})
	feedAll(p, stream, len(stream))

	events := p.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "complete", events[0].Type)
}

func TestParser_CommentsIgnored(t *testing.T) {
	stream := ": keep-alive\ndata: 1\n\n"
	p := NewParser(time.Time{})
	feedAll(p, stream, len(stream))

	require.Len(t, p.Events(), 1)
}

func TestParseStream_ReadsToEOF(t *testing.T) {
	events, err := ParseStream(context.Background(), strings.NewReader(sampleStream), time.Now())

	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "complete", events[2].Type)
}

// brokenReader отдаёт часть потока, после чего возвращает ошибку.
type brokenReader struct {
	data []byte
	err  error
}

func (r *brokenReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestParseStream_MidStreamErrorReturnsPartialEvents(t *testing.T) {
	readErr := errors.New("connection reset")
	r := &brokenReader{data: []byte("event: start\ndata: 1\n\ndata: 2\n\n"), err: readErr}

	events, err := ParseStream(context.Background(), r, time.Now())

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrParseStream, appErr.Code)
	assert.ErrorIs(t, err, readErr)
	require.Len(t, events, 2)
}

func TestParseStream_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events, err := ParseStream(ctx, io.LimitReader(strings.NewReader(sampleStream), 1<<20), time.Now())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, events)
}

func TestParser_OffsetsMonotonic(t *testing.T) {
	now := time.Now()
	tick := 0
	p := NewParser(now)
	p.clock = func() time.Time {
		tick++
		return now.Add(time.Duration(tick) * 10 * time.Millisecond)
	}
	feedAll(p, sampleStream, len(sampleStream))

	events := p.Events()
	require.Len(t, events, 3)
	assert.Equal(t, int64(10), events[0].OffsetMs)
	assert.Equal(t, int64(20), events[1].OffsetMs)
	assert.Equal(t, int64(30), events[2].OffsetMs)
}
