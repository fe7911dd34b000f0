// Package serviceid derives the stable 8-hex-digit service id used to name
// every artifact a repository or manifest produces (spec GLOSSARY).
package serviceid

import (
	"crypto/sha256"
	"encoding/hex"
)

// From truncates the SHA-256 hash of the input string to its first 8 hex
// digits (32 bits), matching spec §3's "8-hex-digit truncated hash".
func From(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:8]
}

// FromRepo derives a RepoAuth's service id from user/repo/branch (spec §3).
func FromRepo(user, repo, branch string) string {
	return From(user + "-" + repo + "-" + branch)
}

// FromManifestPath derives a manifest's service id from its path relative to
// the project base directory (spec §4.5 step 1).
func FromManifestPath(relPath string) string {
	return From(relPath)
}
