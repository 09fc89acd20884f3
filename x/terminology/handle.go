package terminology

import (
	"errors"
	"sync"
)

// Loader produces tables on demand, typically by reading an application's
// dictionary.
type Loader func() (*Tables, error)

type handleState int

const (
	stateUnloaded handleState = iota
	stateLoaded
)

// Handle defers loading a dictionary until the first lookup. It is either
// unloaded (holding its loader) or loaded (holding the tables); a failed load
// leaves it unloaded so the next call retries.
//
// A Handle is itself a Terms. Lookups made while the dictionary cannot be
// loaded report misses; Load surfaces the failure.
type Handle struct {
	mu     sync.Mutex
	state  handleState
	load   Loader
	tables *Tables
}

var _ Terms = (*Handle)(nil)

// empty answers lookups while the dictionary is unavailable.
var empty = &Tables{}

// NewHandle returns an unloaded handle.
func NewHandle(load Loader) *Handle {
	return &Handle{load: load}
}

// Loaded returns a handle that already holds t.
func Loaded(t *Tables) *Handle {
	return &Handle{state: stateLoaded, tables: t}
}

// Tables loads the dictionary once and returns it. Load failures are
// reported as *SourceError.
func (h *Handle) Tables() (*Tables, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case stateLoaded:
		return h.tables, nil
	default:
		if h.load == nil {
			h.tables, h.state = Default(), stateLoaded
			return h.tables, nil
		}
		t, err := h.load()
		if err != nil {
			var srcErr *SourceError
			if !errors.As(err, &srcErr) {
				err = &SourceError{Source: "loader", Err: err}
			}
			return nil, err
		}
		h.tables, h.state, h.load = t, stateLoaded, nil
		return t, nil
	}
}

// Load makes sure the dictionary is loaded.
func (h *Handle) Load() error {
	_, err := h.Tables()
	return err
}

// IsLoaded reports whether the dictionary has been loaded.
func (h *Handle) IsLoaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == stateLoaded
}

func (h *Handle) current() *Tables {
	t, err := h.Tables()
	if err != nil {
		return empty
	}
	return t
}

func (h *Handle) TypeByName(name string) (uint32, bool) {
	return h.current().TypeByName(name)
}

func (h *Handle) TypeByCode(code uint32) (string, bool) {
	return h.current().TypeByCode(code)
}

func (h *Handle) PropertyByName(name string) (uint32, bool) {
	return h.current().PropertyByName(name)
}

func (h *Handle) PropertyByCode(code uint32) (string, bool) {
	return h.current().PropertyByCode(code)
}

func (h *Handle) ElementByName(name string) (uint32, bool) {
	return h.current().ElementByName(name)
}

func (h *Handle) ElementByCode(code uint32) (string, bool) {
	return h.current().ElementByCode(code)
}

func (h *Handle) CommandByName(name string) (Command, bool) {
	return h.current().CommandByName(name)
}

func (h *Handle) CommandByCode(class, id uint32) (Command, bool) {
	return h.current().CommandByCode(class, id)
}
