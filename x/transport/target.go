package transport

import (
	"encoding/hex"
	"fmt"
)

// TargetKind says how a target process is addressed.
type TargetKind int

const (
	TargetCurrent TargetKind = iota
	TargetName
	TargetPath
	TargetBundleID
	TargetProcessID
	TargetURL
	TargetAddress
)

func (k TargetKind) String() string {
	switch k {
	case TargetCurrent:
		return "current"
	case TargetName:
		return "name"
	case TargetPath:
		return "path"
	case TargetBundleID:
		return "bundle"
	case TargetProcessID:
		return "pid"
	case TargetURL:
		return "url"
	case TargetAddress:
		return "address"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Target identifies the process events are sent to.
type Target struct {
	Kind TargetKind
	// Name holds the application name, path, bundle identifier or URL.
	Name string
	PID  int32
	// Address is a pre-built address descriptor for TargetAddress.
	Address []byte
}

func Current() Target              { return Target{Kind: TargetCurrent} }
func ByName(name string) Target    { return Target{Kind: TargetName, Name: name} }
func ByPath(path string) Target    { return Target{Kind: TargetPath, Name: path} }
func ByBundleID(id string) Target  { return Target{Kind: TargetBundleID, Name: id} }
func ByPID(pid int32) Target       { return Target{Kind: TargetProcessID, PID: pid} }
func ByURL(url string) Target      { return Target{Kind: TargetURL, Name: url} }
func ByAddress(addr []byte) Target { return Target{Kind: TargetAddress, Address: addr} }

// Relaunchable reports whether the target can be found again after its
// process exits. Only targets addressed by something other than a process
// instance qualify.
func (t Target) Relaunchable() bool {
	switch t.Kind {
	case TargetName, TargetPath, TargetBundleID:
		return true
	default:
		return false
	}
}

func (t Target) String() string {
	switch t.Kind {
	case TargetCurrent:
		return "current application"
	case TargetProcessID:
		return fmt.Sprintf("pid %d", t.PID)
	case TargetAddress:
		return "address " + hex.EncodeToString(t.Address)
	default:
		return fmt.Sprintf("%s %q", t.Kind, t.Name)
	}
}
