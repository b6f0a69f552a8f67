package jsondiff

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustJSON разбирает JSON-литерал в any для тестовых сценариев.
func mustJSON(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestDiff_IdenticalValues(t *testing.T) {
	cases := []string{
		`{"a": 1, "b": [1, 2, {"c": "x"}], "d": null}`,
		`[1, "two", true, null]`,
		`"scalar"`,
		`42`,
		`null`,
	}
	for _, raw := range cases {
		v1 := mustJSON(t, raw)
		v2 := mustJSON(t, raw)
		assert.Empty(t, Diff(v1, v2, "", nil), "raw=%s", raw)
	}
}

func TestDiff_NestedArrayElement(t *testing.T) {
	a := mustJSON(t, `{"a": {"b": [1, 2, 3]}}`)
	b := mustJSON(t, `{"a": {"b": [1, 3, 3]}}`)

	diffs := Diff(a, b, "", nil)

	require.Len(t, diffs, 1)
	assert.Equal(t, "a.b[1]", diffs[0].Path)
	assert.Equal(t, float64(2), diffs[0].Primary)
	assert.Equal(t, float64(3), diffs[0].Candidate)
}

func TestDiff_TypeMismatchIsTerminal(t *testing.T) {
	a := mustJSON(t, `{"a": {"b": 1, "c": 2}}`)
	b := mustJSON(t, `{"a": [1, 2]}`)

	diffs := Diff(a, b, "", nil)

	// Одно терминальное расхождение, без спуска в поддерево.
	require.Len(t, diffs, 1)
	assert.Equal(t, "a", diffs[0].Path)
}

func TestDiff_NullAndAbsentAreEquivalent(t *testing.T) {
	a := mustJSON(t, `{"a": 1, "b": null}`)
	b := mustJSON(t, `{"a": 1}`)

	assert.Empty(t, Diff(a, b, "", nil))
	assert.Empty(t, Diff(b, a, "", nil))
}

func TestDiff_MissingKey(t *testing.T) {
	a := mustJSON(t, `{"a": 1, "b": 2}`)
	b := mustJSON(t, `{"a": 1}`)

	diffs := Diff(a, b, "", nil)

	require.Len(t, diffs, 1)
	assert.Equal(t, "b", diffs[0].Path)
	assert.Equal(t, float64(2), diffs[0].Primary)
	assert.Nil(t, diffs[0].Candidate)
}

func TestDiff_ArrayLengthMismatch(t *testing.T) {
	a := mustJSON(t, `[1, 2, 3]`)
	b := mustJSON(t, `[1, 2]`)

	diffs := Diff(a, b, "", nil)

	require.Len(t, diffs, 1)
	assert.Equal(t, "[2]", diffs[0].Path)
	assert.Equal(t, float64(3), diffs[0].Primary)
	assert.Nil(t, diffs[0].Candidate)
}

func TestDiff_RootScalarMismatch(t *testing.T) {
	diffs := Diff("alpha", "beta", "", nil)

	require.Len(t, diffs, 1)
	assert.Equal(t, RootPath, diffs[0].Path)
	assert.Equal(t, "alpha", diffs[0].Primary)
	assert.Equal(t, "beta", diffs[0].Candidate)
}

func TestDiff_IgnoredPaths(t *testing.T) {
	a := mustJSON(t, `{"meta": {"ts": 1}, "metadata": "x", "data": [{"id": 1}]}`)
	b := mustJSON(t, `{"meta": {"ts": 2}, "metadata": "y", "data": [{"id": 2}]}`)

	tests := []struct {
		name    string
		ignored []string
		paths   []string
	}{
		{
			name:    "без игнорирования",
			ignored: nil,
			paths:   []string{"data[0].id", "meta.ts", "metadata"},
		},
		{
			name:    "префикс поддерева",
			ignored: []string{"meta"},
			paths:   []string{"data[0].id", "metadata"},
		},
		{
			name:    "префикс не срабатывает внутри сегмента",
			ignored: []string{"met"},
			paths:   []string{"data[0].id", "meta.ts", "metadata"},
		},
		{
			name:    "игнорирование элемента массива",
			ignored: []string{"data[0]"},
			paths:   []string{"meta.ts", "metadata"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diffs := Diff(a, b, "", tt.ignored)
			var got []string
			for _, d := range diffs {
				got = append(got, d.Path)
			}
			assert.Equal(t, tt.paths, got)
		})
	}
}

func TestDiff_DeterministicKeyOrder(t *testing.T) {
	a := mustJSON(t, `{"z": 1, "a": 1, "m": 1}`)
	b := mustJSON(t, `{"z": 2, "a": 2, "m": 2}`)

	diffs := Diff(a, b, "", nil)

	require.Len(t, diffs, 3)
	assert.Equal(t, "a", diffs[0].Path)
	assert.Equal(t, "m", diffs[1].Path)
	assert.Equal(t, "z", diffs[2].Path)
}

func TestDiff_NumberVsStringIsTypeMismatch(t *testing.T) {
	a := mustJSON(t, `{"v": 1}`)
	b := mustJSON(t, `{"v": "1"}`)

	diffs := Diff(a, b, "", nil)

	require.Len(t, diffs, 1)
	assert.Equal(t, "v", diffs[0].Path)
}

func TestDiffAbsent_OneSideMissing(t *testing.T) {
	diffs := DiffAbsent(mustJSON(t, `{"a": 1}`), true, nil, false, "final", nil)

	require.Len(t, diffs, 1)
	assert.Equal(t, "final", diffs[0].Path)
	assert.Nil(t, diffs[0].Candidate)
}

func TestDiffAbsent_BothMissing(t *testing.T) {
	assert.Empty(t, DiffAbsent(nil, false, nil, false, "final", nil))
}

// TestDiffAbsent_SymmetryOfAbsence: отсутствие значения с любой стороны
// даёт ровно одно расхождение по тому же пути с переставленными значениями.
func TestDiffAbsent_SymmetryOfAbsence(t *testing.T) {
	v := mustJSON(t, `{"a": [1, {"b": "x"}]}`)

	left := DiffAbsent(v, true, nil, false, "p", nil)
	right := DiffAbsent(nil, false, v, true, "p", nil)

	require.Len(t, left, 1)
	require.Len(t, right, 1)
	assert.Equal(t, left[0].Path, right[0].Path)
	assert.Equal(t, left[0].Primary, right[0].Candidate)
	assert.Equal(t, left[0].Candidate, right[0].Primary)
}
