package beacon

import (
	"fmt"
	"strings"
)

// NoNamePlaceholder is shown for devices that advertise no name.
const NoNamePlaceholder = "SIN_NOMBRE"

// DefaultTargetName is the name the tablet app advertises.
const DefaultTargetName = "HT-MT"

type MatchMode int

const (
	MatchPrefix MatchMode = iota
	MatchExact
)

func (m MatchMode) String() string {
	if m == MatchExact {
		return "exact"
	}
	return "prefix"
}

// ParseMatchMode accepts "prefix" or "exact".
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prefix":
		return MatchPrefix, nil
	case "exact":
		return MatchExact, nil
	default:
		return MatchPrefix, fmt.Errorf("invalid name match mode %q (allowed: prefix, exact)", s)
	}
}

// NameFilter gates advertisements on their display name.
type NameFilter struct {
	Enabled bool
	Target  string
	Mode    MatchMode
}

// Matches reports whether name passes the filter. A disabled filter passes
// everything; an enabled one never passes a missing or placeholder name.
func (f NameFilter) Matches(name string) bool {
	if !f.Enabled {
		return true
	}
	if name == "" || name == NoNamePlaceholder {
		return false
	}
	if f.Mode == MatchExact {
		return name == f.Target
	}
	return strings.HasPrefix(name, f.Target)
}
