package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Kargones/darklaunch/internal/comparator"
	"github.com/Kargones/darklaunch/internal/pkg/logging"
)

// EndpointsFile описывает YAML-файл endpoint-ов.
//
// Пример:
//
//	ignored_paths:
//	  - requestId
//	  - meta.timestamp
//	endpoints:
//	  - path: /api/items
//	    methods: [GET]
//	  - path: /api/chat
//	    methods: [POST]
//	    streaming: true
//	    sample_rate: 0.05
type EndpointsFile struct {
	// IgnoredPaths — глобальные игнорируемые пути сравнения.
	IgnoredPaths []string `yaml:"ignored_paths"`

	// Endpoints — затеняемые endpoint-ы; порядок задаёт приоритет.
	Endpoints []comparator.Endpoint `yaml:"endpoints"`
}

// LoadEndpoints читает и валидирует файл endpoint-ов.
// Пустой path и отсутствующий файл не являются ошибкой: затенение
// просто не включается ни для одного endpoint-а (fail-safe).
func LoadEndpoints(path string, logger logging.Logger) (*EndpointsFile, error) {
	if path == "" {
		logger.Warn("файл endpoint-ов не задан, затенение отключено для всех путей")
		return &EndpointsFile{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("файл endpoint-ов не найден, затенение отключено для всех путей",
				"path", path,
			)
			return &EndpointsFile{}, nil
		}
		return nil, fmt.Errorf("config: не удалось прочитать файл endpoint-ов %s: %w", path, err)
	}

	var file EndpointsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: не удалось разобрать файл endpoint-ов %s: %w", path, err)
	}

	for i := range file.Endpoints {
		e := &file.Endpoints[i]
		if e.Path == "" {
			return nil, fmt.Errorf("config: endpoint #%d без path в %s", i, path)
		}
		if e.SampleRate != nil && (*e.SampleRate < 0 || *e.SampleRate > 1) {
			return nil, fmt.Errorf("config: endpoint %s: sample_rate должен быть от 0.0 до 1.0", e.Path)
		}
	}

	logger.Info("файл endpoint-ов загружен",
		"path", path,
		"endpoints", len(file.Endpoints),
		"ignored_paths", len(file.IgnoredPaths),
	)
	return &file, nil
}
