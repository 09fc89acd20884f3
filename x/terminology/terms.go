// Package terminology maps the human names of an application's vocabulary to
// the four-character codes used on the wire. Lookups report misses with a
// false result and never fail; only loading a dictionary can fail.
package terminology

import "github.com/compose-network/aebridge/x/fourcc"

// Terms is the read-only lookup surface consumed by the codec and the
// specifier builders.
type Terms interface {
	TypeByName(name string) (uint32, bool)
	TypeByCode(code uint32) (string, bool)
	PropertyByName(name string) (uint32, bool)
	PropertyByCode(code uint32) (string, bool)
	ElementByName(name string) (uint32, bool)
	ElementByCode(code uint32) (string, bool)
	CommandByName(name string) (Command, bool)
	CommandByCode(class, id uint32) (Command, bool)
}

// Command describes one remotely invocable command.
type Command struct {
	Name   string
	Class  uint32
	ID     uint32
	Params map[string]uint32
}

// Param returns the code of a named parameter.
func (c Command) Param(name string) (uint32, bool) {
	code, ok := c.Params[name]
	return code, ok
}

func (c Command) String() string {
	if c.Name != "" {
		return c.Name
	}
	return fourcc.String(c.Class) + "/" + fourcc.String(c.ID)
}

// Core command codes the dispatcher treats specially.
var (
	ClassCore        = fourcc.Make("core")
	ClassRequired    = fourcc.Make("aevt")
	ClassScript      = fourcc.Make("ascr")
	IDGetData        = fourcc.Make("getd")
	IDSetData        = fourcc.Make("setd")
	IDCreateElement  = fourcc.Make("crel")
	IDOpenApp        = fourcc.Make("oapp")
	IDNoop           = fourcc.Make("noop")
	ParamInsertHere  = fourcc.Make("insh")
	ParamDirect      = fourcc.Make("----")
	ParamResultType  = fourcc.Make("rtyp")
	ParamData        = fourcc.Make("data")
	ParamNewClass    = fourcc.Make("kocl")
	ParamProperties  = fourcc.Make("prdt")
	ParamSaving      = fourcc.Make("savo")
	ParamSavingIn    = fourcc.Make("kfil")
	ParamErrorNumber = fourcc.Make("errn")
	ParamErrorString = fourcc.Make("errs")
	ParamErrorType   = fourcc.Make("errt")
	ParamErrorObject = fourcc.Make("erob")
)

// GetCommand is the command a bare reference is invoked with.
var GetCommand = Command{
	Name:   "get",
	Class:  ClassCore,
	ID:     IDGetData,
	Params: map[string]uint32{},
}
