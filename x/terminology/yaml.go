package terminology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseYAML compiles a YAML dictionary layered over the core vocabulary.
func ParseYAML(data []byte) (*Tables, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("terminology: parse yaml: %w", err)
	}
	return Build(Default(), defs)
}

// YAMLFile returns a Loader reading the dictionary at path.
func YAMLFile(path string) Loader {
	return func() (*Tables, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &SourceError{Source: path, Err: err}
		}
		t, err := ParseYAML(data)
		if err != nil {
			return nil, &SourceError{Source: path, Err: err}
		}
		return t, nil
	}
}

// LoadYAML reads and compiles the dictionary at path.
func LoadYAML(path string) (*Tables, error) {
	return YAMLFile(path)()
}
