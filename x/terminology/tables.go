package terminology

import (
	"maps"
	"slices"

	"github.com/compose-network/aebridge/x/fourcc"
)

type commandKey struct {
	class uint32
	id    uint32
}

// Tables is an immutable set of name/code mappings.
type Tables struct {
	typesByName      map[string]uint32
	typesByCode      map[uint32]string
	propertiesByName map[string]uint32
	propertiesByCode map[uint32]string
	elementsByName   map[string]uint32
	elementsByCode   map[uint32]string
	commandsByName   map[string]Command
	commandsByCode   map[commandKey]Command
}

// Definitions is the declarative form of a dictionary. Codes may be spelled
// as bare four-character strings, quoted, or in hex.
type Definitions struct {
	Types      map[string]string   `yaml:"types" toml:"types"`
	Enums      map[string]string   `yaml:"enums" toml:"enums"`
	Properties map[string]string   `yaml:"properties" toml:"properties"`
	Elements   map[string]string   `yaml:"elements" toml:"elements"`
	Commands   []CommandDefinition `yaml:"commands" toml:"commands"`
}

// CommandDefinition is the declarative form of a Command.
type CommandDefinition struct {
	Name   string            `yaml:"name" toml:"name"`
	Class  string            `yaml:"class" toml:"class"`
	ID     string            `yaml:"id" toml:"id"`
	Params map[string]string `yaml:"params" toml:"params"`
}

func newTables() *Tables {
	return &Tables{
		typesByName:      make(map[string]uint32),
		typesByCode:      make(map[uint32]string),
		propertiesByName: make(map[string]uint32),
		propertiesByCode: make(map[uint32]string),
		elementsByName:   make(map[string]uint32),
		elementsByCode:   make(map[uint32]string),
		commandsByName:   make(map[string]Command),
		commandsByCode:   make(map[commandKey]Command),
	}
}

// Build compiles definitions into tables layered over base. A nil base
// starts from empty tables.
func Build(base *Tables, defs Definitions) (*Tables, error) {
	t := newTables()
	if base != nil {
		t = base.clone()
	}
	if err := addPairs(t.typesByName, t.typesByCode, defs.Types, "type"); err != nil {
		return nil, err
	}
	if err := addPairs(t.typesByName, t.typesByCode, defs.Enums, "enum"); err != nil {
		return nil, err
	}
	if err := addPairs(t.propertiesByName, t.propertiesByCode, defs.Properties, "property"); err != nil {
		return nil, err
	}
	if err := addPairs(t.elementsByName, t.elementsByCode, defs.Elements, "element"); err != nil {
		return nil, err
	}
	for _, def := range defs.Commands {
		cmd, err := def.compile()
		if err != nil {
			return nil, err
		}
		t.commandsByName[cmd.Name] = cmd
		t.commandsByCode[commandKey{cmd.Class, cmd.ID}] = cmd
	}
	return t, nil
}

func (d CommandDefinition) compile() (Command, error) {
	if d.Name == "" {
		return Command{}, &DefinitionError{Kind: "command", Name: d.Name, Code: d.Class + "/" + d.ID}
	}
	class, ok := fourcc.Parse(d.Class)
	if !ok {
		return Command{}, &DefinitionError{Kind: "command class", Name: d.Name, Code: d.Class}
	}
	id, ok := fourcc.Parse(d.ID)
	if !ok {
		return Command{}, &DefinitionError{Kind: "command id", Name: d.Name, Code: d.ID}
	}
	cmd := Command{Name: d.Name, Class: class, ID: id, Params: make(map[string]uint32, len(d.Params))}
	for name, raw := range d.Params {
		code, ok := fourcc.Parse(raw)
		if !ok {
			return Command{}, &DefinitionError{Kind: "parameter", Name: d.Name + "." + name, Code: raw}
		}
		cmd.Params[name] = code
	}
	return cmd, nil
}

func addPairs(byName map[string]uint32, byCode map[uint32]string, defs map[string]string, kind string) error {
	for _, name := range slices.Sorted(maps.Keys(defs)) {
		raw := defs[name]
		code, ok := fourcc.Parse(raw)
		if !ok {
			return &DefinitionError{Kind: kind, Name: name, Code: raw}
		}
		byName[name] = code
		if _, taken := byCode[code]; !taken {
			byCode[code] = name
		}
	}
	return nil
}

func (t *Tables) clone() *Tables {
	return &Tables{
		typesByName:      maps.Clone(t.typesByName),
		typesByCode:      maps.Clone(t.typesByCode),
		propertiesByName: maps.Clone(t.propertiesByName),
		propertiesByCode: maps.Clone(t.propertiesByCode),
		elementsByName:   maps.Clone(t.elementsByName),
		elementsByCode:   maps.Clone(t.elementsByCode),
		commandsByName:   maps.Clone(t.commandsByName),
		commandsByCode:   maps.Clone(t.commandsByCode),
	}
}

func (t *Tables) TypeByName(name string) (uint32, bool) {
	code, ok := t.typesByName[name]
	return code, ok
}

func (t *Tables) TypeByCode(code uint32) (string, bool) {
	name, ok := t.typesByCode[code]
	return name, ok
}

func (t *Tables) PropertyByName(name string) (uint32, bool) {
	code, ok := t.propertiesByName[name]
	return code, ok
}

func (t *Tables) PropertyByCode(code uint32) (string, bool) {
	name, ok := t.propertiesByCode[code]
	return name, ok
}

func (t *Tables) ElementByName(name string) (uint32, bool) {
	code, ok := t.elementsByName[name]
	return code, ok
}

func (t *Tables) ElementByCode(code uint32) (string, bool) {
	name, ok := t.elementsByCode[code]
	return name, ok
}

func (t *Tables) CommandByName(name string) (Command, bool) {
	cmd, ok := t.commandsByName[name]
	return cmd, ok
}

func (t *Tables) CommandByCode(class, id uint32) (Command, bool) {
	cmd, ok := t.commandsByCode[commandKey{class, id}]
	return cmd, ok
}
