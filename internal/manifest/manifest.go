// Package manifest implements ProjectManifest parsing (spec §3/§4.5, C5):
// a JSON document permitting line comments, read fresh on every reconciler tick.
package manifest

import (
	"encoding/json"
	"strings"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/ferrors"
)

// SentinelName is the file name that marks a directory as a project manifest
// (spec §4.5 Discovery, GLOSSARY).
const SentinelName = "directive.ais"

// RestartPolicyKind discriminates the RestartPolicy sum type (spec §3).
type RestartPolicyKind string

const (
	RestartAlways    RestartPolicyKind = "Always"
	RestartOnFailure RestartPolicyKind = "OnFailure"
	RestartNo        RestartPolicyKind = "No"
)

// RestartPolicy is the sum type `Always | OnFailure{max_burst,
// retry_after_minutes} | No` (spec §3). OnFailure's fields are only
// meaningful when Kind == RestartOnFailure.
type RestartPolicy struct {
	Kind              RestartPolicyKind `json:"kind"`
	MaxBurst          int               `json:"max_burst,omitempty"`
	RetryAfterMinutes int               `json:"retry_after_minutes,omitempty"`
}

// ServiceSettings is the manifest's `service_settings` block (spec §3).
type ServiceSettings struct {
	ExecCommand    string        `json:"exec_command,omitempty"`
	ExecPreCommand string        `json:"exec_pre_command,omitempty"`
	RestartPolicy  RestartPolicy `json:"restart_policy"`
}

// ProjectManifest is one project's declarative configuration (spec §3).
type ProjectManifest struct {
	URL               string           `json:"url"`
	Port              uint16           `json:"port"`
	Apache            bool             `json:"apache"`
	PHPFPMVersion     *string          `json:"php_fpm_version,omitempty"`
	NodeJSBool        bool             `json:"nodejs_bool"`
	NodeJSVersion     *string          `json:"nodejs_version,omitempty"`
	ServiceSettings   ServiceSettings  `json:"service_settings"`
	DirectoryTracking bool             `json:"directory_tracking"`
	ExecPreAsRoot     bool             `json:"exec_pre_as_root"`
	DirectiveExecuted bool             `json:"directive_executed"`
}

// RecognizedPHPVersions enumerates the php_fpm_version values the renderer
// knows how to map to a socket path (spec §3).
var RecognizedPHPVersions = map[string]bool{"7.4": true, "8.1": true, "8.2": true}

// StripComments removes lines whose first non-blank character is '#' before
// JSON parsing (spec §3). Scenario 6 requires this to be transparent: a
// manifest prefixed by a comment line parses identically to one without it.
func StripComments(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Parse strips comments and decodes the manifest JSON.
func Parse(raw []byte) (ProjectManifest, error) {
	stripped := StripComments(string(raw))
	var m ProjectManifest
	if err := json.Unmarshal([]byte(stripped), &m); err != nil {
		return ProjectManifest{}, ferrors.Wrap(ferrors.KindInvalidManifest, "parse manifest JSON", err)
	}
	return m, nil
}
