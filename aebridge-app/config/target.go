package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/compose-network/aebridge/x/transport"
)

// ParseTarget reads a "kind:value" target spelling.
func ParseTarget(s string) (transport.Target, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "current" {
		return transport.Current(), nil
	}

	kind, value, ok := strings.Cut(s, ":")
	if !ok || value == "" {
		return transport.Target{}, fmt.Errorf("want kind:value, got %q", s)
	}

	switch strings.ToLower(kind) {
	case "name":
		return transport.ByName(value), nil
	case "bundle":
		return transport.ByBundleID(value), nil
	case "path":
		return transport.ByPath(value), nil
	case "url":
		return transport.ByURL(value), nil
	case "pid":
		pid, err := strconv.ParseInt(value, 10, 32)
		if err != nil || pid <= 0 {
			return transport.Target{}, fmt.Errorf("bad process id %q", value)
		}
		return transport.ByPID(int32(pid)), nil
	default:
		return transport.Target{}, fmt.Errorf("unknown target kind %q", kind)
	}
}
