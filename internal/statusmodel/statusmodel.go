// Package statusmodel holds the value types shared by every agent that talks
// to the Aggregator: AppName, AppStatus, and StatusRecord (spec §3).
package statusmodel

import (
	"fmt"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/version"
)

// AppName is the closed enumeration of local agents the Aggregator tracks.
type AppName int

const (
	Github AppName = iota
	Directive
	Apache
	Systemd
	Security
)

var appNames = [...]string{"Github", "Directive", "Apache", "Systemd", "Security"}

// String renders the symbolic name used on the wire and in logs.
func (a AppName) String() string {
	if a < 0 || int(a) >= len(appNames) {
		return "Unknown"
	}
	return appNames[a]
}

// MarshalJSON serializes AppName as its symbolic name.
func (a AppName) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON parses AppName from its symbolic name.
func (a *AppName) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	for i, name := range appNames {
		if name == s {
			*a = AppName(i)
			return nil
		}
	}
	return fmt.Errorf("statusmodel: unknown AppName %q", s)
}

// MarshalText serializes AppName as its symbolic name. encoding/json only
// consults MarshalJSON for values, never for map keys — it checks
// encoding.TextMarshaler for those — so this is what keeps
// map[AppName]StatusRecord keyed by name on the wire instead of by
// underlying int.
func (a AppName) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses AppName from its symbolic name, the map-key
// counterpart to UnmarshalJSON.
func (a *AppName) UnmarshalText(text []byte) error {
	name, ok := ParseAppName(string(text))
	if !ok {
		return fmt.Errorf("statusmodel: unknown AppName %q", text)
	}
	*a = name
	return nil
}

// ParseAppName parses a symbolic name into an AppName.
func ParseAppName(s string) (AppName, bool) {
	for i, name := range appNames {
		if name == s {
			return AppName(i), true
		}
	}
	return 0, false
}

// AppStatus is the lifecycle state of one tracked agent.
type AppStatus int

const (
	Running AppStatus = iota
	Stopped
	TimedOut
	Warning
)

var appStatuses = [...]string{"Running", "Stopped", "TimedOut", "Warning"}

// String renders the symbolic status name.
func (s AppStatus) String() string {
	if s < 0 || int(s) >= len(appStatuses) {
		return "Unknown"
	}
	return appStatuses[s]
}

// MarshalJSON serializes AppStatus as its symbolic name.
func (s AppStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses AppStatus from its symbolic name.
func (s *AppStatus) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	for i, name := range appStatuses {
		if name == str {
			*s = AppStatus(i)
			return nil
		}
	}
	return fmt.Errorf("statusmodel: unknown AppStatus %q", str)
}

// StatusRecord is one agent's reported state (spec §3). Equality is by all
// fields; identity within the registry is App alone.
type StatusRecord struct {
	App         AppName      `json:"app"`
	Status      AppStatus    `json:"status"`
	WallSeconds uint64       `json:"wall_seconds"`
	Version     version.Tag  `json:"version"`
}

// Equal reports whether two records are identical in every field.
func (r StatusRecord) Equal(other StatusRecord) bool {
	return r.App == other.App &&
		r.Status == other.Status &&
		r.WallSeconds == other.WallSeconds &&
		r.Version == other.Version
}

