package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/darklaunch/internal/entity/comparison"
)

func flatResult(method, endpoint string, match bool, primary, candidate time.Duration) *comparison.Result {
	r := comparison.NewResult(comparison.RequestInfo{
		Method:    method,
		Path:      endpoint,
		Endpoint:  endpoint,
		Timestamp: time.Now(),
	})
	r.Match = match
	r.Primary = &comparison.ResponseSummary{StatusCode: 200, Latency: primary}
	r.Candidate = &comparison.ResponseSummary{StatusCode: 200, Latency: candidate}
	return r
}

func errorResult(method, endpoint string) *comparison.Result {
	r := flatResult(method, endpoint, false, 10*time.Millisecond, 0)
	r.Candidate = &comparison.ResponseSummary{Error: "connection refused"}
	return r
}

func TestAggregator_RecordAndSnapshot(t *testing.T) {
	a := NewAggregator()

	a.Record(flatResult("GET", "/api/items", true, 100*time.Millisecond, 200*time.Millisecond))
	a.Record(flatResult("GET", "/api/items", false, 300*time.Millisecond, 100*time.Millisecond))
	a.Record(errorResult("POST", "/api/items"))

	stats := a.Snapshot()

	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Matches)
	assert.Equal(t, int64(1), stats.Mismatches)
	assert.Equal(t, int64(1), stats.CandidateErrors)

	// (100 + 300 + 10) / 3
	assert.InDelta(t, 136.67, stats.AvgPrimaryLatencyMs, 0.01)
	// (200 + 100 + 0) / 3
	assert.InDelta(t, 100.0, stats.AvgCandidateLatencyMs, 0.01)

	require.Len(t, stats.Endpoints, 2)
	assert.Equal(t, EndpointStats{Total: 2, Matches: 1, Mismatches: 1}, stats.Endpoints["GET /api/items"])
	assert.Equal(t, EndpointStats{Total: 1, CandidateErrors: 1}, stats.Endpoints["POST /api/items"])
}

func TestAggregator_StreamingLatencies(t *testing.T) {
	a := NewAggregator()

	r := comparison.NewResult(comparison.RequestInfo{Method: "POST", Endpoint: "/api/chat"})
	r.Streaming = true
	r.Match = true
	r.PrimaryStream = &comparison.StreamSummary{TotalDuration: 2 * time.Second}
	r.CandidateStream = &comparison.StreamSummary{TotalDuration: 3 * time.Second}
	a.Record(r)

	stats := a.Snapshot()
	assert.InDelta(t, 2000.0, stats.AvgPrimaryLatencyMs, 0.01)
	assert.InDelta(t, 3000.0, stats.AvgCandidateLatencyMs, 0.01)
}

func TestAggregator_Reset(t *testing.T) {
	a := NewAggregator()
	a.Record(flatResult("GET", "/api/items", true, time.Millisecond, time.Millisecond))
	a.RecordDropped()

	a.Reset()

	stats := a.Snapshot()
	assert.Equal(t, Stats{}, stats)
}

func TestAggregator_SnapshotIsDetached(t *testing.T) {
	a := NewAggregator()
	a.Record(flatResult("GET", "/api/items", true, time.Millisecond, time.Millisecond))

	stats := a.Snapshot()
	stats.Endpoints["GET /api/items"] = EndpointStats{Total: 99}

	assert.Equal(t, int64(1), a.Snapshot().Endpoints["GET /api/items"].Total)
}

func TestAggregator_NilResultIgnored(t *testing.T) {
	a := NewAggregator()
	a.Record(nil)
	assert.Equal(t, int64(0), a.Snapshot().Total)
}

func TestAggregator_ConcurrentRecord(t *testing.T) {
	a := NewAggregator()

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(match bool) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				a.Record(flatResult("GET", "/api/items", match, 10*time.Millisecond, 20*time.Millisecond))
				a.RecordDropped()
			}
		}(w%2 == 0)
	}
	wg.Wait()

	stats := a.Snapshot()
	assert.Equal(t, int64(workers*perWorker), stats.Total)
	assert.Equal(t, int64(workers*perWorker), stats.Dropped)
	assert.Equal(t, stats.Total, stats.Matches+stats.Mismatches)
	assert.Equal(t, int64(workers*perWorker), stats.Endpoints["GET /api/items"].Total)
	assert.InDelta(t, 10.0, stats.AvgPrimaryLatencyMs, 0.01)
}

func TestStats_MatchRate(t *testing.T) {
	assert.Equal(t, 0.0, Stats{}.MatchRate())
	assert.InDelta(t, 0.75, Stats{Total: 4, Matches: 3}.MatchRate(), 0.001)
}
