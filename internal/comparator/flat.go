// Package comparator сводит обе стороны теневого запроса в ComparisonResult:
// плоские ответы сравниваются целиком, потоковые — по событиям.
// Оркестратор пакета запускает сравнения в фоне и раздаёт результаты
// метрикам и синкам.
package comparator

import (
	"github.com/Kargones/darklaunch/internal/entity/comparison"
	"github.com/Kargones/darklaunch/internal/jsondiff"
)

// StatusCodePath — путь расхождения статус-кодов в списке различий.
const StatusCodePath = "statusCode"

// CompareFlat сравнивает плоские сводки обеих сторон.
// Расхождение статус-кодов — одно отдельное расхождение по пути
// "statusCode", тела сравниваются структурно.
func CompareFlat(primary, candidate *comparison.ResponseSummary, ignoredPaths []string) ([]jsondiff.Difference, bool) {
	var diffs []jsondiff.Difference

	if primary.StatusCode != candidate.StatusCode {
		diffs = append(diffs, jsondiff.Difference{
			Path:      StatusCodePath,
			Primary:   primary.StatusCode,
			Candidate: candidate.StatusCode,
		})
	}

	diffs = append(diffs, jsondiff.Diff(primary.Body, candidate.Body, "", ignoredPaths)...)
	return diffs, len(diffs) == 0
}
