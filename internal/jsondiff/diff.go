// Package jsondiff реализует рекурсивное структурное сравнение двух
// JSON-подобных значений с path-адресацией расхождений.
//
// Пакет не знает ни про endpoint-ы, ни про транспорт: одна и та же функция
// используется для сравнения целых тел ответов и payload-ов отдельных
// событий потока. Функция тотальна над произвольными значениями,
// полученными из encoding/json (map[string]any, []any, string, float64,
// bool, nil) — неожиданная форма значения даёт расхождение типов,
// а не панику.
package jsondiff

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// RootPath - путь, под которым регистрируется расхождение скалярных
// значений верхнего уровня (когда путь ещё пуст).
const RootPath = "root"

// Difference описывает одно расхождение в листе дерева значений.
// Для каждого пути в рамках одного вызова Diff создаётся не более
// одного расхождения: после фиксации несовпадения типов рекурсия
// в поддерево не продолжается.
type Difference struct {
	// Path — адрес расхождения в dot/bracket нотации: "a.b[2].c".
	Path string `json:"path"`
	// Primary — значение на стороне primary (nil если отсутствует).
	Primary any `json:"primaryValue"`
	// Candidate — значение на стороне candidate (nil если отсутствует).
	Candidate any `json:"candidateValue"`
}

// Diff сравнивает два значения, считая оба присутствующими.
// ignoredPrefixes — пути, расхождения под которыми намеренно игнорируются
// (volatile-поля: timestamp-ы, request id и т.п.). Префикс срабатывает
// при точном совпадении пути либо на границе сегмента ("." или "[").
func Diff(primary, candidate any, path string, ignoredPrefixes []string) []Difference {
	return diffValue(value{primary, true}, value{candidate, true}, path, ignoredPrefixes)
}

// DiffAbsent сравнивает значения с явным признаком присутствия каждой
// стороны. Используется для индексов за пределами более короткого массива
// и для ключей, существующих только на одной стороне.
func DiffAbsent(primary any, primaryPresent bool, candidate any, candidatePresent bool, path string, ignoredPrefixes []string) []Difference {
	return diffValue(value{primary, primaryPresent}, value{candidate, candidatePresent}, path, ignoredPrefixes)
}

// value — значение вместе с признаком присутствия.
// null и отсутствие ключа эквивалентны (правило null/undefined-эквивалентности).
type value struct {
	v       any
	present bool
}

// absent возвращает true если значение отсутствует либо равно null.
func (v value) absent() bool {
	return !v.present || v.v == nil
}

func diffValue(a, b value, path string, ignored []string) []Difference {
	// Правило 1: игнорируемое поддерево.
	if isIgnoredPath(path, ignored) {
		return nil
	}

	// Правило 2: эквивалентность null/отсутствия.
	if a.absent() && b.absent() {
		return nil
	}
	if a.absent() != b.absent() {
		return []Difference{leaf(path, a, b)}
	}

	ak, bk := kindOf(a.v), kindOf(b.v)

	// Правило 3: расхождение типов — одно терминальное расхождение,
	// без рекурсии в поддерево.
	if ak != bk {
		return []Difference{leaf(path, a, b)}
	}

	switch ak {
	case kindArray:
		return diffArrays(a.v.([]any), b.v.([]any), path, ignored)
	case kindObject:
		return diffObjects(a.v.(map[string]any), b.v.(map[string]any), path, ignored)
	default:
		// Правило 6: скаляры.
		if !scalarEqual(a.v, b.v) {
			return []Difference{leaf(path, a, b)}
		}
		return nil
	}
}

// diffArrays сравнивает массивы поиндексно до max(len(a), len(b)).
// Индексы за пределами одного из массивов сравниваются с отсутствующим
// значением (правило 2 для этого индекса).
func diffArrays(a, b []any, path string, ignored []string) []Difference {
	var diffs []Difference
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		av := value{}
		if i < len(a) {
			av = value{a[i], true}
		}
		bv := value{}
		if i < len(b) {
			bv = value{b[i], true}
		}
		diffs = append(diffs, diffValue(av, bv, fmt.Sprintf("%s[%d]", path, i), ignored)...)
	}
	return diffs
}

// diffObjects сравнивает объединение ключей обеих сторон.
// Ключ, отсутствующий на одной стороне, попадает под правило 2
// в рамках пути path.key.
func diffObjects(a, b map[string]any, path string, ignored []string) []Difference {
	var diffs []Difference
	for _, key := range unionKeys(a, b) {
		av, aok := a[key]
		bv, bok := b[key]
		diffs = append(diffs, diffValue(value{av, aok}, value{bv, bok}, childPath(path, key), ignored)...)
	}
	return diffs
}

// leaf создаёт расхождение по адресу path; пустой путь заменяется на RootPath.
func leaf(path string, a, b value) Difference {
	if path == "" {
		path = RootPath
	}
	var pv, cv any
	if a.present {
		pv = a.v
	}
	if b.present {
		cv = b.v
	}
	return Difference{Path: path, Primary: pv, Candidate: cv}
}

// isIgnoredPath проверяет попадание пути под игнорируемый префикс.
// Срабатывает точное совпадение либо префикс на границе сегмента:
// "meta" игнорирует "meta", "meta.ts", "meta[0]", но не "metadata".
func isIgnoredPath(path string, ignored []string) bool {
	if path == "" {
		return false
	}
	for _, prefix := range ignored {
		if prefix == "" {
			continue
		}
		if path == prefix {
			return true
		}
		if strings.HasPrefix(path, prefix) {
			rest := path[len(prefix):]
			if rest[0] == '.' || rest[0] == '[' {
				return true
			}
		}
	}
	return false
}

// childPath строит путь дочернего ключа объекта.
func childPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// unionKeys возвращает отсортированное объединение ключей обеих сторон.
// Сортировка даёт детерминированный порядок расхождений.
func unionKeys(a, b map[string]any) []string {
	keys := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, m := range []map[string]any{a, b} {
		for k := range m {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

type kind int

const (
	kindScalar kind = iota
	kindArray
	kindObject
)

// kindOf классифицирует значение. Всё, что не массив и не объект,
// считается скаляром — в том числе неожиданные формы значений,
// для которых сравнение выполнится через reflect.DeepEqual.
func kindOf(v any) kind {
	switch v.(type) {
	case []any:
		return kindArray
	case map[string]any:
		return kindObject
	default:
		return kindScalar
	}
}

// scalarEqual сравнивает скаляры. Значения из encoding/json сравнимы
// через ==; reflect.DeepEqual страхует от паники на несравнимых формах
// (диагностируются как расхождение, не как exception).
func scalarEqual(a, b any) bool {
	if isComparable(a) && isComparable(b) {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func isComparable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}
