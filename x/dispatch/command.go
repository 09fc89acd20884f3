package dispatch

import (
	"fmt"

	"github.com/compose-network/aebridge/x/fourcc"
	"github.com/compose-network/aebridge/x/terminology"
)

// Command is a remotely invocable command: its event class, id and the codes
// of its named parameters.
type Command = terminology.Command

// CommandFromTerminology looks a command up by name. A nil terms uses the
// core vocabulary.
func CommandFromTerminology(terms terminology.Terms, name string) (Command, error) {
	if terms == nil {
		terms = terminology.Default()
	}
	cmd, ok := terms.CommandByName(name)
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return cmd, nil
}

// NewCommand builds a definition from class, id and parameter codes given
// as four characters or code literals.
func NewCommand(name, class, id string, params map[string]string) (Command, error) {
	cmd := Command{Name: name, Params: make(map[string]uint32, len(params))}
	var ok bool
	if cmd.Class, ok = fourcc.Parse(class); !ok {
		return Command{}, fmt.Errorf("%w: class %q", ErrUnknownCommand, class)
	}
	if cmd.ID, ok = fourcc.Parse(id); !ok {
		return Command{}, fmt.Errorf("%w: id %q", ErrUnknownCommand, id)
	}
	for pname, code := range params {
		c, ok := fourcc.Parse(code)
		if !ok {
			return Command{}, fmt.Errorf("%w: parameter %q code %q", ErrUnknownCommand, pname, code)
		}
		cmd.Params[pname] = c
	}
	return cmd, nil
}
