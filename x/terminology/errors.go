package terminology

import "fmt"

// DefinitionError reports a dictionary entry whose code cannot be parsed.
type DefinitionError struct {
	Kind string
	Name string
	Code string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("terminology: invalid %s %q code %q", e.Kind, e.Name, e.Code)
}

// SourceError reports that a dictionary could not be loaded at all.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("terminology: source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
