package terminology

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ParseTOML compiles a TOML dictionary layered over the core vocabulary.
func ParseTOML(data string) (*Tables, error) {
	var defs Definitions
	if _, err := toml.Decode(data, &defs); err != nil {
		return nil, fmt.Errorf("terminology: parse toml: %w", err)
	}
	return Build(Default(), defs)
}

// TOMLFile returns a Loader reading the TOML dictionary at path.
func TOMLFile(path string) Loader {
	return func() (*Tables, error) {
		var defs Definitions
		if _, err := toml.DecodeFile(path, &defs); err != nil {
			return nil, &SourceError{Source: path, Err: err}
		}
		t, err := Build(Default(), defs)
		if err != nil {
			return nil, &SourceError{Source: path, Err: err}
		}
		return t, nil
	}
}

// FileLoader picks the dictionary format from the file extension.
func FileLoader(path string) Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOMLFile(path)
	default:
		return YAMLFile(path)
	}
}
