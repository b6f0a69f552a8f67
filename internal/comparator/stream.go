package comparator

import (
	"github.com/Kargones/darklaunch/internal/entity/comparison"
	"github.com/Kargones/darklaunch/internal/jsondiff"
)

// CompareStreams сравнивает потоковые сводки обеих сторон.
// Четыре независимых сигнала: равенство числа событий, равенство
// последовательности типов (позиционно, до длины более короткого потока),
// структурное совпадение терминальных payload-ов и отсутствие попозиционных
// расхождений. Совпадением считается истинность всех четырёх.
//
// Выравнивание строго позиционное: пропущенное в середине потока событие
// сдвигает все последующие позиции и даёт каскад расхождений. Это
// осознанная политика — позиционная семантика проста и детерминирована,
// выравнивание по типам оставлено будущим версиям.
func CompareStreams(primary, candidate *comparison.StreamSummary, ignoredPaths []string) (*comparison.StreamComparison, bool) {
	cmp := &comparison.StreamComparison{
		EventCountMatch: primary.EventCount() == candidate.EventCount(),
		EventTypesMatch: eventTypesMatch(primary, candidate),
	}

	pe, ce := primary.Events, candidate.Events
	n := len(pe)
	if len(ce) > n {
		n = len(ce)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(pe):
			cmp.EventDifferences = append(cmp.EventDifferences, comparison.EventDifference{
				Index:         i,
				Kind:          comparison.EventDiffMissingPrimary,
				CandidateType: ce[i].Type,
				CandidateData: ce[i].Data,
			})
		case i >= len(ce):
			cmp.EventDifferences = append(cmp.EventDifferences, comparison.EventDifference{
				Index:       i,
				Kind:        comparison.EventDiffMissingCandidate,
				PrimaryType: pe[i].Type,
				PrimaryData: pe[i].Data,
			})
		case pe[i].Type != ce[i].Type:
			cmp.EventDifferences = append(cmp.EventDifferences, comparison.EventDifference{
				Index:         i,
				Kind:          comparison.EventDiffType,
				PrimaryType:   pe[i].Type,
				CandidateType: ce[i].Type,
				PrimaryData:   pe[i].Data,
				CandidateData: ce[i].Data,
			})
		default:
			if dataDiffs := jsondiff.Diff(pe[i].Data, ce[i].Data, "", ignoredPaths); len(dataDiffs) > 0 {
				cmp.EventDifferences = append(cmp.EventDifferences, comparison.EventDifference{
					Index:         i,
					Kind:          comparison.EventDiffData,
					PrimaryType:   pe[i].Type,
					CandidateType: ce[i].Type,
					DataDiffs:     dataDiffs,
				})
			}
		}
	}

	cmp.FinalResultMatch = finalResultMatch(primary, candidate, ignoredPaths)

	match := cmp.EventCountMatch &&
		cmp.EventTypesMatch &&
		cmp.FinalResultMatch &&
		len(cmp.EventDifferences) == 0
	return cmp, match
}

// eventTypesMatch сравнивает последовательности типов позиционно до длины
// более короткого потока: расхождение длин само по себе не проваливает
// сигнал типов, его фиксирует eventCountMatch.
func eventTypesMatch(primary, candidate *comparison.StreamSummary) bool {
	pt, ct := primary.EventTypes(), candidate.EventTypes()
	n := len(pt)
	if len(ct) < n {
		n = len(ct)
	}
	for i := 0; i < n; i++ {
		if pt[i] != ct[i] {
			return false
		}
	}
	return true
}

// finalResultMatch структурно сравнивает payload-ы терминальных событий.
// Терминальное событие только у одной стороны — расхождение; отсутствие
// у обеих — совпадение-по-отсутствию.
func finalResultMatch(primary, candidate *comparison.StreamSummary, ignoredPaths []string) bool {
	pf, cf := primary.TerminalEvent(), candidate.TerminalEvent()
	switch {
	case pf == nil && cf == nil:
		return true
	case pf == nil || cf == nil:
		return false
	case pf.Type != cf.Type:
		return false
	default:
		return len(jsondiff.Diff(pf.Data, cf.Data, "", ignoredPaths)) == 0
	}
}
