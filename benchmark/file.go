package benchmark

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadBenchmarkFile reads a YAML (or JSON) list of serialized benchmarks.
func LoadBenchmarkFile(path string) (BenchmarkFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read benchmark file: %w", err)
	}
	bf, err := ParseBenchmarkFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bf, nil
}

func ParseBenchmarkFile(data []byte) (BenchmarkFile, error) {
	var bf BenchmarkFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("parse benchmark YAML: %w", err)
	}
	if err := validate(bf); err != nil {
		return nil, err
	}
	return bf, nil
}

func validate(bf BenchmarkFile) error {
	if len(bf) == 0 {
		return fmt.Errorf("benchmark file has no benchmarks")
	}
	for i, sb := range bf {
		if sb.Type == "" {
			return fmt.Errorf("benchmark at index %d has no type", i)
		}
		if _, ok := benchmarks[sb.Type]; !ok {
			return fmt.Errorf("benchmark at index %d has unknown type %q", i, sb.Type)
		}
		if sb.Input == nil {
			bf[i].Input = map[string]any{}
		}
	}
	return nil
}
