package comparator

import (
	"math/rand/v2"
	"strings"
)

// Endpoint — дескриптор затеняемого endpoint-а.
// Загружается из YAML-файла endpoint-ов.
type Endpoint struct {
	// Path — точный путь ("/api/items") либо префиксный шаблон
	// со звёздочкой на конце ("/api/items/*").
	Path string `yaml:"path"`

	// Methods — допустимые HTTP-методы; пустой список — любой метод.
	Methods []string `yaml:"methods"`

	// CandidatePath — необязательная замена пути при отправке теневого
	// запроса: candidate может обслуживать тот же endpoint по другому
	// пути. Query string запроса сохраняется.
	CandidatePath string `yaml:"candidate_path"`

	// Streaming — endpoint отвечает потоком событий (SSE).
	Streaming bool `yaml:"streaming"`

	// IgnoredPaths — пути, расхождения под которыми игнорируются
	// при сравнении (дополняют глобальный список).
	IgnoredPaths []string `yaml:"ignored_paths"`

	// SampleRate — переопределение глобальной доли затенения
	// для этого endpoint-а.
	SampleRate *float64 `yaml:"sample_rate"`
}

// MatchesMethod проверяет допустимость метода.
func (e *Endpoint) MatchesMethod(method string) bool {
	if len(e.Methods) == 0 {
		return true
	}
	for _, m := range e.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// MatchesPath проверяет попадание пути под шаблон endpoint-а.
func (e *Endpoint) MatchesPath(path string) bool {
	if prefix, ok := strings.CutSuffix(e.Path, "*"); ok {
		return strings.HasPrefix(path, prefix)
	}
	return path == e.Path
}

// Matcher подбирает дескриптор endpoint-а для входящего запроса.
// Список просматривается по порядку, выигрывает первый подходящий:
// порядок в конфигурации — приоритет.
type Matcher struct {
	endpoints []Endpoint
}

// NewMatcher создаёт Matcher над списком дескрипторов.
func NewMatcher(endpoints []Endpoint) *Matcher {
	return &Matcher{endpoints: endpoints}
}

// Match возвращает первый дескриптор, подходящий по пути и методу.
func (m *Matcher) Match(method, path string) (*Endpoint, bool) {
	for i := range m.endpoints {
		e := &m.endpoints[i]
		if e.MatchesPath(path) && e.MatchesMethod(method) {
			return e, true
		}
	}
	return nil, false
}

// Sampler принимает вероятностное решение о затенении запроса.
// Решение принимается один раз, до оборачивания перехватом.
type Sampler struct {
	enabled bool
	rate    float64

	// randFloat — источник равномерных значений [0,1); подменяется в тестах.
	randFloat func() float64
}

// NewSampler создаёт Sampler с глобальной долей затенения.
func NewSampler(enabled bool, rate float64) *Sampler {
	return &Sampler{enabled: enabled, rate: rate, randFloat: rand.Float64}
}

// Sample решает, затенять ли запрос к данному endpoint-у.
func (s *Sampler) Sample(endpoint *Endpoint) bool {
	if !s.enabled {
		return false
	}
	rate := s.rate
	if endpoint != nil && endpoint.SampleRate != nil {
		rate = *endpoint.SampleRate
	}
	switch {
	case rate <= 0:
		return false
	case rate >= 1:
		return true
	default:
		return s.randFloat() < rate
	}
}
