package dispatch

import (
	"errors"
	"fmt"

	"github.com/compose-network/aebridge/x/specifier"
)

var (
	ErrUnknownCommand   = errors.New("dispatch: unknown command")
	ErrUnknownParameter = errors.New("dispatch: unknown parameter")
	ErrInvalidOption    = errors.New("dispatch: invalid call option")
)

// ErrorGeneric is the number sent for handler failures that carry none.
const ErrorGeneric = -2700

// ApplicationError is a numbered error returned by the target application.
type ApplicationError struct {
	Number          int
	Message         string
	ExpectedType    any
	OffendingObject any
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("application error %d", e.Number)
	}
	return fmt.Sprintf("application error %d: %s", e.Number, e.Message)
}

// CommandError wraps every dispatch failure with what was being sent.
type CommandError struct {
	Target  *specifier.Node
	Command Command
	Params  map[string]any
	Cause   error
}

func (e *CommandError) Error() string {
	target := "application"
	if e.Target != nil {
		target = e.Target.String()
	}
	return fmt.Sprintf("dispatch: %s of %s: %v", e.Command, target, e.Cause)
}

func (e *CommandError) Unwrap() error {
	return e.Cause
}
